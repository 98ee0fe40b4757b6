package server

import (
	"encoding/json"
	"time"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/domain"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/engine"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

type MenuResponse struct {
	MenuID   string           `json:"menu_id"`
	MenuName string           `json:"menu_name"`
	Version  string           `json:"menu_version"`
	Location catalog.Location `json:"location"`
	Items    []catalog.Item   `json:"items"`
}

type CreateSessionRequest struct {
	SessionID string `json:"session_id,omitempty" doc:"Client chosen id; generated when empty"`
	Greeting  string `json:"greeting,omitempty" doc:"Opening utterance sent as the first turn" default:"Hi"`
}

type TurnRequest struct {
	Text string `json:"text" minLength:"1" doc:"Customer utterance"`
}

type TurnResponse struct {
	SessionID  string       `json:"session_id"`
	Reply      string       `json:"reply"`
	Finalized  bool         `json:"finalized"`
	Iterations int          `json:"iterations"`
	Actions    []string     `json:"actions"`
	Order      order.Ledger `json:"order"`
}

type SessionResponse struct {
	domain.Session
	Order     order.Ledger      `json:"order"`
	Messages  []llm.ChatMessage `json:"messages"`
	Rationale []string          `json:"rationale"`
	LastReply string            `json:"last_reply"`
}

type SessionList struct {
	Items []domain.Session `json:"items"`
}

type EventResponse struct {
	ID        int64          `json:"id"`
	TS        string         `json:"ts" format:"date-time"`
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Payload   map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func menuResponse(c *catalog.Catalog) MenuResponse {
	return MenuResponse{
		MenuID:   c.MenuID,
		MenuName: c.MenuName,
		Version:  c.Version,
		Location: c.Location,
		Items:    c.Items(),
	}
}

func turnResponse(res engine.TurnResult) TurnResponse {
	actions := res.ActionsCalled
	if actions == nil {
		actions = []string{}
	}
	return TurnResponse{
		SessionID:  res.Conversation.SessionID,
		Reply:      res.Reply,
		Finalized:  res.Finalized,
		Iterations: res.Iterations,
		Actions:    actions,
		Order:      res.Conversation.Order,
	}
}

func sessionResponse(c *conversation.Context) SessionResponse {
	return SessionResponse{
		Session: domain.Session{
			ID:        c.SessionID,
			MenuID:    c.MenuID,
			Finalized: c.Finalized,
			LineCount: c.Order.LineCount(),
			ItemCount: c.Order.ItemCount(),
			CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
			UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339Nano),
		},
		Order:     c.Order,
		Messages:  c.Messages,
		Rationale: c.Rationale,
		LastReply: c.LastReply(),
	}
}

func eventResponse(e domain.Event) EventResponse {
	payload := map[string]any{}
	if e.Payload != "" {
		_ = json.Unmarshal([]byte(e.Payload), &payload)
	}
	return EventResponse{
		ID:        e.ID,
		TS:        e.TS,
		Type:      e.Type,
		SessionID: e.SessionID,
		Payload:   payload,
	}
}
