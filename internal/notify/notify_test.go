package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/notify"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

func finalizedConversation() *conversation.Context {
	cat := catalog.Default()
	conv := conversation.New("sess-1", cat, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	it, _ := cat.FindByName("Hash Brown")
	conv.Order = order.MergeOrder(conv.Order, order.LineItem{
		ItemID: it.ID, Name: it.Name, Category: it.Category, Size: it.DefaultSize, Quantity: 3,
	})
	conv.Finalized = true
	return conv
}

func TestNewOrderEvent(t *testing.T) {
	conv := finalizedConversation()
	evt := notify.NewOrderEvent(conv)
	assert.Equal(t, notify.EventOrderFinalized, evt.Type)
	assert.Equal(t, conv.Order.OrderID, evt.OrderID)
	assert.Equal(t, 1, evt.LineCount)
	assert.Equal(t, 3, evt.ItemCount)
	assert.Equal(t, "2026-03-01T09:00:00Z", evt.FinalizedAt)
}

func TestWebhookPostsEvent(t *testing.T) {
	var got notify.OrderEvent
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	evt := notify.NewOrderEvent(finalizedConversation())
	hook := notify.NewWebhook(srv.URL, "s3cret", time.Second)
	require.NoError(t, hook.OrderFinalized(context.Background(), evt))
	assert.Equal(t, evt.OrderID, got.OrderID)
	assert.Equal(t, "order.finalized", headers.Get("X-Drivethru-Event"))
	assert.Equal(t, "s3cret", headers.Get("X-Drivethru-Secret"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
}

func TestWebhookReportsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "kitchen offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := notify.NewWebhook(srv.URL, "", 0).OrderFinalized(context.Background(), notify.OrderEvent{OrderID: "o1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "kitchen offline")
}

type recorder struct {
	err  error
	seen []string
}

func (r *recorder) OrderFinalized(_ context.Context, evt notify.OrderEvent) error {
	r.seen = append(r.seen, evt.OrderID)
	return r.err
}

func TestMultiLogsFailuresAndContinues(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	failing := &recorder{err: errors.New("down")}
	ok := &recorder{}
	m := notify.Multi{Notifiers: []notify.Notifier{failing, ok}, Logger: zap.New(core)}

	require.NoError(t, m.OrderFinalized(context.Background(), notify.OrderEvent{OrderID: "o1", SessionID: "s1"}))
	assert.Equal(t, []string{"o1"}, failing.seen)
	assert.Equal(t, []string{"o1"}, ok.seen)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "order notification failed", logs.All()[0].Message)
}
