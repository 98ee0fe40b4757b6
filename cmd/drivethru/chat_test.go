package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/app"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/checkpoint"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/config"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/engine"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm/scripted"
)

func newChatService(t *testing.T) *app.Service {
	t.Helper()
	color.NoColor = true
	cfg := config.Default()
	cfg.LLM.Provider = config.ProviderScripted
	cfg.Store.Backend = config.BackendMemory
	cfg.Log.File = ""
	svc, closeFn, err := app.Build(context.Background(), cfg, t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeFn() })
	return svc
}

func TestRunChatTakesOrderUntilFinalized(t *testing.T) {
	svc := newChatService(t)
	in := strings.NewReader("two hash brown\n\nthat's all\nthis line is never read\n")
	var out bytes.Buffer

	require.NoError(t, runChat(context.Background(), svc, "lane-1", in, &out))

	text := out.String()
	assert.Contains(t, text, "Bot: Welcome to")
	assert.Contains(t, text, "Got it, Hash Brown")
	assert.Contains(t, text, "Order ")
	assert.NotContains(t, text, turnFailedReply)

	conv, err := svc.Session(context.Background(), "lane-1")
	require.NoError(t, err)
	assert.True(t, conv.Finalized)
	assert.Equal(t, 2, conv.Order.ItemCount())
}

func TestRunChatQuitKeepsSessionOpen(t *testing.T) {
	svc := newChatService(t)
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), svc, "lane-2", strings.NewReader("one hash brown\nquit\n"), &out))

	conv, err := svc.Session(context.Background(), "lane-2")
	require.NoError(t, err)
	assert.False(t, conv.Finalized)
	assert.Equal(t, 1, conv.Order.ItemCount())

	out.Reset()
	require.NoError(t, runChat(context.Background(), svc, "lane-2", strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Got it, Hash Brown")
}

func TestRunChatFinalizedSessionPrintsOrder(t *testing.T) {
	svc := newChatService(t)
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), svc, "lane-3", strings.NewReader("one hash brown\nthat's all\n"), &out))

	out.Reset()
	require.NoError(t, runChat(context.Background(), svc, "lane-3", strings.NewReader("one more hash brown\n"), &out))
	assert.Contains(t, out.String(), "already complete")
}

func TestRunChatReportsFailedTurnWithoutLogger(t *testing.T) {
	color.NoColor = true
	eng, err := engine.New(scripted.New(), nil, nil, 0)
	require.NoError(t, err)
	svc := &app.Service{
		Engine:  eng,
		Store:   checkpoint.NewMemory(time.Hour),
		Catalog: catalog.Default(),
	}
	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), svc, "", strings.NewReader("one hash brown\n"), &out))
	assert.Equal(t, 2, strings.Count(out.String(), turnFailedReply))
}
