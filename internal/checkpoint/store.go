// Package checkpoint persists conversations between turns.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/domain"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/events"
)

var ErrNotFound = errors.New("session not found")

// Store saves and restores conversations keyed by session id. Loaded
// conversations have no catalog bound; callers re-bind by MenuID.
type Store interface {
	// Save writes conv and appends evts atomically where the backend allows.
	Save(ctx context.Context, conv *conversation.Context, evts ...events.Record) error
	Load(ctx context.Context, sessionID string) (*conversation.Context, error)
	List(ctx context.Context, limit int) ([]domain.Session, error)
	Delete(ctx context.Context, sessionID string) error
	// Events returns a session's events with ids above after, oldest first.
	Events(ctx context.Context, sessionID string, after int64, limit int) ([]domain.Event, error)
	Close() error
}

func summary(conv *conversation.Context) domain.Session {
	return domain.Session{
		ID:        conv.SessionID,
		MenuID:    conv.MenuID,
		Finalized: conv.Finalized,
		LineCount: conv.Order.LineCount(),
		ItemCount: conv.Order.ItemCount(),
		CreatedAt: formatTime(conv.CreatedAt),
		UpdatedAt: formatTime(conv.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func encode(conv *conversation.Context) ([]byte, error) {
	data, err := json.Marshal(conv)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", conv.SessionID, err)
	}
	return data, nil
}

func decode(data []byte) (*conversation.Context, error) {
	var conv conversation.Context
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &conv, nil
}

func pageAfter(all []domain.Event, after int64, limit int) []domain.Event {
	if limit <= 0 {
		limit = 100
	}
	out := []domain.Event{}
	for _, e := range all {
		if e.ID <= after {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}
