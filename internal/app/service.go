// Package app wires the turn engine to storage and notifications. The CLI
// and the HTTP server both drive conversations through a Service.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/checkpoint"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/domain"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/engine"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/events"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/notify"
)

var (
	ErrEmptyUtterance = errors.New("utterance is empty")
	ErrMenuMismatch   = errors.New("session was started on a different menu")
)

type Service struct {
	Engine   engine.Engine
	Store    checkpoint.Store
	Catalog  *catalog.Catalog
	Notifier notify.Notifier
	Logger   *zap.Logger
	Now      func() time.Time

	locks sessionLocks
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Log returns the service logger, or a no-op logger when none is set.
func (s *Service) Log() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// ResolveSession loads the stored conversation with the catalog bound, or
// returns a fresh unsaved one when the id is unknown or empty.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*conversation.Context, bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return conversation.New(uuid.NewString(), s.Catalog, s.now().UTC()), true, nil
	}
	conv, err := s.Store.Load(ctx, sessionID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return conversation.New(sessionID, s.Catalog, s.now().UTC()), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if err := s.checkMenu(conv); err != nil {
		return nil, false, err
	}
	conv.Bind(s.Catalog)
	return conv, false, nil
}

func (s *Service) checkMenu(conv *conversation.Context) error {
	if conv.MenuID != "" && conv.MenuID != s.Catalog.MenuID {
		return fmt.Errorf("%w: %s uses %s, serving %s", ErrMenuMismatch, conv.SessionID, conv.MenuID, s.Catalog.MenuID)
	}
	return nil
}

// Turn runs one customer utterance against the session, persists the result
// with its events and notifies on completion. Turns on the same session are
// serialized. A failed turn is not saved.
func (s *Service) Turn(ctx context.Context, sessionID, text string) (engine.TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return engine.TurnResult{}, ErrEmptyUtterance
	}
	if strings.TrimSpace(sessionID) == "" {
		sessionID = uuid.NewString()
	}
	unlock := s.locks.lock(sessionID)
	defer unlock()

	conv, created, err := s.ResolveSession(ctx, sessionID)
	if err != nil {
		return engine.TurnResult{}, err
	}
	res, err := s.Engine.RunTurn(ctx, conv, text)
	if err != nil {
		return engine.TurnResult{}, err
	}
	final := res.Conversation

	var records []events.Record
	if created {
		records = append(records, events.Record{Type: events.TypeSessionCreated, Payload: events.EventPayload{
			"menu_id":  final.MenuID,
			"order_id": final.Order.OrderID,
		}})
	}
	records = append(records, events.Record{Type: events.TypeTurnCompleted, Payload: events.EventPayload{
		"iterations": res.Iterations,
		"actions":    res.ActionsCalled,
		"line_count": final.Order.LineCount(),
		"item_count": final.Order.ItemCount(),
	}})
	if res.Finalized {
		records = append(records, events.Record{Type: events.TypeOrderFinalized, Payload: events.EventPayload{
			"order_id":   final.Order.OrderID,
			"line_count": final.Order.LineCount(),
			"item_count": final.Order.ItemCount(),
		}})
	}
	if err := s.Store.Save(ctx, final, records...); err != nil {
		return engine.TurnResult{}, fmt.Errorf("save session %s: %w", final.SessionID, err)
	}

	if res.Finalized && s.Notifier != nil {
		if err := s.Notifier.OrderFinalized(ctx, notify.NewOrderEvent(final)); err != nil {
			s.Log().Warn("order notification failed", zap.String("session_id", final.SessionID), zap.Error(err))
		}
	}
	return res, nil
}

// Session returns a stored conversation with the catalog bound. A session
// started on another menu is ErrMenuMismatch.
func (s *Service) Session(ctx context.Context, sessionID string) (*conversation.Context, error) {
	conv, err := s.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkMenu(conv); err != nil {
		return nil, err
	}
	conv.Bind(s.Catalog)
	return conv, nil
}

func (s *Service) Sessions(ctx context.Context, limit int) ([]domain.Session, error) {
	return s.Store.List(ctx, limit)
}

func (s *Service) Events(ctx context.Context, sessionID string, after int64, limit int) ([]domain.Event, error) {
	return s.Store.Events(ctx, sessionID, after, limit)
}

// sessionLocks hands out one mutex per session id, dropping it once no
// caller holds or waits on it.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sessionLock)
	}
	sl, ok := l.locks[id]
	if !ok {
		sl = &sessionLock{}
		l.locks[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
