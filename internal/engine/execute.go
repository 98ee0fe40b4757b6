package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
)

// ExecuteActions runs every tool call of the latest assistant message and
// appends one tool message per call, in request order. Calls in a batch run
// concurrently against the same ledger snapshot.
func (e Engine) ExecuteActions(ctx context.Context, conv *conversation.Context) ([]string, error) {
	last := lastRequest(conv.Messages)
	if last < 0 {
		return nil, nil
	}
	calls := conv.Messages[last].ToolCalls
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Function.Name
	}
	ctx, span := e.tracer().Start(ctx, "engine.ExecuteActions", trace.WithAttributes(
		attribute.String("session.id", conv.SessionID),
		attribute.StringSlice("tool.names", names),
	))
	defer span.End()

	results := make([]llm.ChatMessage, len(calls))
	ledger := conv.Order
	cat := conv.Catalog
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := e.Dispatcher.Dispatch(call.Function.Name, call.Function.Arguments, cat, ledger)
			results[i] = llm.ChatMessage{
				Role:       llm.RoleTool,
				Content:    string(out),
				ToolCallID: call.ID,
				Name:       call.Function.Name,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	conv.Append(results...)
	return names, nil
}
