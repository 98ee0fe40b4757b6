package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/db"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/domain"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/events"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/migrate"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/repo"
)

// SQLStore keeps sessions and their event log in SQLite. A session row and
// the events of the same save are written in one transaction.
type SQLStore struct {
	DB     *sql.DB
	Repo   repo.Repo
	Writer events.Writer
}

// OpenSQL opens the workspace database and applies migrations.
func OpenSQL(ctx context.Context, workspace string) (*SQLStore, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return NewSQL(conn), nil
}

func NewSQL(conn *sql.DB) *SQLStore {
	return &SQLStore{DB: conn, Repo: repo.Repo{DB: conn}, Writer: events.Writer{Now: time.Now}}
}

func (s *SQLStore) Save(ctx context.Context, conv *conversation.Context, evts ...events.Record) error {
	state, err := encode(conv)
	if err != nil {
		return err
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	row := repo.SessionRow{Session: summary(conv), StateJSON: string(state)}
	if err := s.Repo.UpsertSessionTx(ctx, tx, row); err != nil {
		return fmt.Errorf("save session %s: %w", conv.SessionID, err)
	}
	for _, e := range evts {
		if err := s.Writer.Append(ctx, tx, e.Type, conv.SessionID, e.Payload); err != nil {
			return fmt.Errorf("append %s event: %w", e.Type, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) Load(ctx context.Context, sessionID string) (*conversation.Context, error) {
	row, err := s.Repo.GetSession(ctx, sessionID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return decode([]byte(row.StateJSON))
}

func (s *SQLStore) List(ctx context.Context, limit int) ([]domain.Session, error) {
	return s.Repo.ListSessions(ctx, limit)
}

func (s *SQLStore) Delete(ctx context.Context, sessionID string) error {
	err := s.Repo.DeleteSession(ctx, sessionID)
	if errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return err
}

func (s *SQLStore) Events(ctx context.Context, sessionID string, after int64, limit int) ([]domain.Event, error) {
	if _, err := s.Repo.GetSession(ctx, sessionID); errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	} else if err != nil {
		return nil, err
	}
	evts, err := s.Repo.EventsAfter(ctx, limit, after, sessionID)
	if err != nil {
		return nil, err
	}
	if evts == nil {
		evts = []domain.Event{}
	}
	return evts, nil
}

func (s *SQLStore) Close() error {
	return s.DB.Close()
}
