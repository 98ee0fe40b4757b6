// Package engine runs the order-taking loop: reasoning, action execution,
// ledger bridge and routing, one turn at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/actions"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/prompt"
)

const DefaultMaxIterations = 8

var (
	// ErrReasoning wraps any failure of the reasoning capability. The turn is
	// abandoned and the conversation left as it was.
	ErrReasoning = errors.New("reasoning step failed")
	// ErrIterationLimit is returned when a turn keeps requesting actions
	// past the iteration cap.
	ErrIterationLimit = errors.New("turn exceeded iteration limit")
	ErrFinalized      = errors.New("order already finalized")
	ErrNoCatalog      = errors.New("conversation has no catalog bound")
)

var tracer = otel.Tracer("drivethru/engine")

type Engine struct {
	Provider      llm.Provider
	Dispatcher    *actions.Dispatcher
	Prompt        prompt.Source
	Logger        *zap.Logger
	Tracer        trace.Tracer
	MaxIterations int
	Now           func() time.Time
}

func New(provider llm.Provider, src prompt.Source, logger *zap.Logger, maxIterations int) (Engine, error) {
	d, err := actions.NewDispatcher()
	if err != nil {
		return Engine{}, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return Engine{
		Provider:      provider,
		Dispatcher:    d,
		Prompt:        src,
		Logger:        logger,
		Tracer:        tracer,
		MaxIterations: maxIterations,
		Now:           time.Now,
	}, nil
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

func (e Engine) tracer() trace.Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}
	return tracer
}

func (e Engine) maxIterations() int {
	if e.MaxIterations > 0 {
		return e.MaxIterations
	}
	return DefaultMaxIterations
}

// TurnResult is the outcome of one customer utterance.
type TurnResult struct {
	Conversation  *conversation.Context
	Reply         string
	Finalized     bool
	Iterations    int
	ActionsCalled []string
}

const closingReply = "Thank you! Your order is complete. Please pull forward to the window."

// RunTurn appends the customer's text and drives the loop until the router
// ends the turn. It works on a copy: on error conv is untouched and the
// returned TurnResult is empty.
func (e Engine) RunTurn(ctx context.Context, conv *conversation.Context, text string) (TurnResult, error) {
	ctx, span := e.tracer().Start(ctx, "engine.RunTurn", trace.WithAttributes(
		attribute.String("session.id", conv.SessionID),
	))
	defer span.End()

	res, err := e.runTurn(ctx, conv, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		e.logger().Error("turn failed", zap.String("session_id", conv.SessionID), zap.Error(err))
		return TurnResult{}, err
	}
	span.SetAttributes(
		attribute.Int("turn.iterations", res.Iterations),
		attribute.Bool("order.finalized", res.Finalized),
		attribute.Int("order.lines", res.Conversation.Order.LineCount()),
	)
	e.logger().Info("turn complete",
		zap.String("session_id", conv.SessionID),
		zap.Int("iterations", res.Iterations),
		zap.Strings("actions", res.ActionsCalled),
		zap.Bool("finalized", res.Finalized),
	)
	return res, nil
}

func (e Engine) runTurn(ctx context.Context, conv *conversation.Context, text string) (TurnResult, error) {
	if conv.Finalized {
		return TurnResult{}, ErrFinalized
	}
	if conv.Catalog == nil {
		return TurnResult{}, ErrNoCatalog
	}
	work := conv.Clone()
	work.Append(llm.ChatMessage{Role: llm.RoleUser, Content: text})

	res := TurnResult{Conversation: work}
	state := StateAwaitingReasoning
	for state != StateDone {
		switch state {
		case StateAwaitingReasoning:
			if res.Iterations >= e.maxIterations() {
				return TurnResult{}, fmt.Errorf("%w: %d iterations", ErrIterationLimit, res.Iterations)
			}
			res.Iterations++
			if err := e.Reason(ctx, work, res.Iterations); err != nil {
				return TurnResult{}, err
			}
			state = RouteAfterReasoning(work)
		case StateHasActions:
			names, err := e.ExecuteActions(ctx, work)
			if err != nil {
				return TurnResult{}, err
			}
			res.ActionsCalled = append(res.ActionsCalled, names...)
			e.ApplyResults(work)
			state = StateCheckTerminal
		case StateCheckTerminal:
			state = RouteAfterBridge(work)
			if state == StateDone {
				work.Finalized = true
			}
		case StateDirectReply:
			state = StateDone
		default:
			return TurnResult{}, fmt.Errorf("unexpected state %s", state)
		}
	}

	work.UpdatedAt = e.now().UTC()
	res.Finalized = work.Finalized
	res.Reply = work.LastReply()
	if res.Finalized && res.Reply == "" {
		res.Reply = closingReply
	}
	return res, nil
}
