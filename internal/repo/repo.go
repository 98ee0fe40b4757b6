package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// SessionRow is a session summary plus its serialized conversation state.
type SessionRow struct {
	domain.Session
	StateJSON string
}

const sessionCols = `id,menu_id,finalized,line_count,item_count,created_at,updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner, extra ...any) (domain.Session, error) {
	var s domain.Session
	var finalized int
	dest := append([]any{&s.ID, &s.MenuID, &finalized, &s.LineCount, &s.ItemCount, &s.CreatedAt, &s.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, ErrNotFound
		}
		return s, err
	}
	s.Finalized = finalized != 0
	return s, nil
}

// UpsertSessionTx writes the session row, keeping the original created_at.
func (r Repo) UpsertSessionTx(ctx context.Context, tx *sql.Tx, s SessionRow) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sessions(id,menu_id,state_json,finalized,line_count,item_count,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET menu_id=excluded.menu_id, state_json=excluded.state_json, finalized=excluded.finalized,
line_count=excluded.line_count, item_count=excluded.item_count, updated_at=excluded.updated_at`,
		s.ID, s.MenuID, s.StateJSON, boolInt(s.Finalized), s.LineCount, s.ItemCount, s.CreatedAt, s.UpdatedAt)
	return err
}

// SessionExistsTx reports whether a session row is already stored.
func (r Repo) SessionExistsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE id=?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r Repo) GetSession(ctx context.Context, id string) (SessionRow, error) {
	var row SessionRow
	s, err := scanSession(r.DB.QueryRowContext(ctx, `SELECT `+sessionCols+`,state_json FROM sessions WHERE id=?`, id), &row.StateJSON)
	if err != nil {
		return SessionRow{}, err
	}
	row.Session = s
	return row, nil
}

// ListSessions returns sessions most recently updated first.
func (r Repo) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+sessionCols+` FROM sessions ORDER BY updated_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) DeleteSession(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestEvents returns the newest events first, optionally before a cursor.
func (r Repo) LatestEvents(ctx context.Context, limit int, cursor int64, sessionID, evtType string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if sessionID != "" {
		clauses = append(clauses, "session_id=?")
		args = append(args, sessionID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,session_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limitOrDefault(limit))
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64, sessionID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if sessionID != "" {
		clauses = append(clauses, "session_id=?")
		args = append(args, sessionID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,session_id,payload_json FROM events %s ORDER BY id ASC LIMIT ?`, where)
	args = append(args, limitOrDefault(limit))
	return r.queryEvents(ctx, query, args...)
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.SessionID, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
