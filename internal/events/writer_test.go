package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/db"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/events"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/migrate"
)

func TestAppendWritesThroughTransaction(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO sessions(id,menu_id,state_json,finalized,line_count,item_count,created_at,updated_at) VALUES ('lane-1','m','{}',0,0,0,'t','t')`); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	w := events.Writer{Now: func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }}
	if err := w.Append(ctx, tx, events.TypeTurnCompleted, "lane-1", events.EventPayload{"iterations": 2}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var ts, typ, payload string
	if err := conn.QueryRowContext(ctx, `SELECT ts,type,payload_json FROM events WHERE session_id='lane-1'`).Scan(&ts, &typ, &payload); err != nil {
		t.Fatalf("query: %v", err)
	}
	if ts != "2026-01-02T03:04:05Z" || typ != events.TypeTurnCompleted || payload != `{"iterations":2}` {
		t.Fatalf("unexpected event %s %s %s", ts, typ, payload)
	}
}
