package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeSessionCreated = "session.created"
	TypeTurnCompleted  = "turn.completed"
	TypeOrderFinalized = "order.finalized"
)

type EventPayload map[string]any

// Record is an event waiting to be written alongside a session save.
type Record struct {
	Type    string
	Payload EventPayload
}

// Writer appends events inside the caller's transaction.
type Writer struct {
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, sessionID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	data, err := Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,session_id,payload_json) VALUES (?,?,?,?)`,
		ts, evtType, sessionID, data)
	return err
}

// Marshal encodes a payload, treating nil as an empty object.
func Marshal(payload EventPayload) (string, error) {
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal event payload: %w", err)
	}
	return string(data), nil
}
