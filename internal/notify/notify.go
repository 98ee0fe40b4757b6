// Package notify tells downstream systems that an order is ready to prepare.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

const EventOrderFinalized = "order.finalized"

// OrderEvent is the body published when an order completes.
type OrderEvent struct {
	Type        string           `json:"type"`
	SessionID   string           `json:"session_id"`
	OrderID     string           `json:"order_id"`
	MenuID      string           `json:"menu_id"`
	LineCount   int              `json:"line_count"`
	ItemCount   int              `json:"item_count"`
	Items       []order.LineItem `json:"items"`
	FinalizedAt string           `json:"finalized_at"`
}

func NewOrderEvent(conv *conversation.Context) OrderEvent {
	return OrderEvent{
		Type:        EventOrderFinalized,
		SessionID:   conv.SessionID,
		OrderID:     conv.Order.OrderID,
		MenuID:      conv.MenuID,
		LineCount:   conv.Order.LineCount(),
		ItemCount:   conv.Order.ItemCount(),
		Items:       conv.Order.Items,
		FinalizedAt: conv.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

type Notifier interface {
	OrderFinalized(ctx context.Context, evt OrderEvent) error
}

// Nop discards events.
type Nop struct{}

func (Nop) OrderFinalized(context.Context, OrderEvent) error { return nil }

// Multi fans an event out to every notifier. Delivery failures are logged and
// never returned: a finalized order stays finalized.
type Multi struct {
	Notifiers []Notifier
	Logger    *zap.Logger
}

func (m Multi) OrderFinalized(ctx context.Context, evt OrderEvent) error {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, n := range m.Notifiers {
		if err := n.OrderFinalized(ctx, evt); err != nil {
			logger.Warn("order notification failed",
				zap.String("session_id", evt.SessionID),
				zap.String("order_id", evt.OrderID),
				zap.Error(err),
			)
		}
	}
	return nil
}
