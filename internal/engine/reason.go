package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/actions"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/prompt"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/rationale"
)

// SystemPrompt compiles the template against the conversation's catalog and
// current ledger.
func (e Engine) SystemPrompt(ctx context.Context, conv *conversation.Context) string {
	tmpl := prompt.Resolve(ctx, e.Prompt, e.logger())
	cat := conv.Catalog
	return prompt.Compile(tmpl, prompt.Vars{
		LocationName:    cat.Location.Name,
		LocationAddress: cat.Location.FullAddress(),
		MenuItems:       cat.PromptListing(),
		CurrentOrder:    conv.Order.PromptListing(),
	})
}

// Reason invokes the reasoning capability once and appends exactly one
// assistant message and one rationale entry. It never touches the ledger.
func (e Engine) Reason(ctx context.Context, conv *conversation.Context, iteration int) error {
	ctx, span := e.tracer().Start(ctx, "engine.Reason", trace.WithAttributes(
		attribute.String("session.id", conv.SessionID),
		attribute.Int("turn.iteration", iteration),
	))
	defer span.End()

	req := llm.Request{
		System:   e.SystemPrompt(ctx, conv),
		Messages: conv.Messages,
		Tools:    actions.Tools(),
	}
	e.logger().Debug("invoking reasoning", zap.String("session_id", conv.SessionID), zap.Int("messages", len(req.Messages)))
	resp, err := e.Provider.Chat(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider failed")
		return fmt.Errorf("%w: %w", ErrReasoning, err)
	}

	reasoning, cleaned := rationale.Extract(resp.Content)
	calls := make([]llm.ToolCall, 0, len(resp.ToolCalls))
	for i, c := range resp.ToolCalls {
		if c.ID == "" {
			c.ID = fmt.Sprintf("call-%d-%d", iteration, i)
		}
		if c.Type == "" {
			c.Type = "function"
		}
		calls = append(calls, c)
	}
	msg := llm.ChatMessage{Role: llm.RoleAssistant, Content: cleaned}
	if len(calls) > 0 {
		msg.ToolCalls = calls
	}
	entry := rationale.Format(calls, reasoning, cleaned)
	conv.Append(msg)
	conv.Rationale = append(conv.Rationale, entry)

	span.SetAttributes(attribute.Int("tool_calls", len(calls)))
	e.logger().Debug("reasoning", zap.String("session_id", conv.SessionID), zap.String("entry", entry))
	return nil
}
