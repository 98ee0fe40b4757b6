// Package domain holds the read models shared by storage, the API and the CLI.
package domain

// Session is the summary row of a stored conversation.
type Session struct {
	ID        string `json:"id"`
	MenuID    string `json:"menu_id"`
	Finalized bool   `json:"finalized"`
	LineCount int    `json:"line_count"`
	ItemCount int    `json:"item_count"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID        int64  `json:"id"`
	TS        string `json:"ts" format:"date-time"`
	Type      string `json:"type" enum:"session.created,turn.completed,order.finalized"`
	SessionID string `json:"session_id"`
	Payload   string `json:"payload_json"`
}
