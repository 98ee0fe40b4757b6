package eval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/engine"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

// TurnFunc runs one utterance on a session. app.Service.Turn satisfies it.
type TurnFunc func(ctx context.Context, sessionID, text string) (engine.TurnResult, error)

// Output is what a case produced.
type Output struct {
	OrderItems []order.LineItem `json:"order_items"`
	ToolCalls  []string         `json:"tool_calls"`
	Response   string           `json:"response"`
	ItemCount  int              `json:"item_count"`
}

type Result struct {
	Case   Case    `json:"case"`
	Output Output  `json:"output"`
	Scores []Score `json:"scores"`
	Err    string  `json:"error,omitempty"`
}

// Score returns the named score, or zero when absent.
func (r Result) Score(name string) float64 {
	for _, s := range r.Scores {
		if s.Name == name {
			return s.Value
		}
	}
	return 0
}

type Report struct {
	Dataset string   `json:"dataset"`
	Results []Result `json:"results"`
	Average Score    `json:"average"`
}

type Runner struct {
	Turn        TurnFunc
	Catalog     *catalog.Catalog
	Concurrency int
	Logger      *zap.Logger
}

// Run executes each case on a fresh session. A failing case is scored zero
// on every evaluator and does not stop the run.
func (r Runner) Run(ctx context.Context, ds Dataset) (Report, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := r.Concurrency
	if limit <= 0 {
		limit = 1
	}
	results := make([]Result, len(ds.Cases))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range ds.Cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.runCase(gctx, c)
			logger.Info("eval case done",
				zap.String("case", c.ID),
				zap.Float64(ScoreOrderCorrectness, results[i].Score(ScoreOrderCorrectness)),
				zap.String("error", results[i].Err),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	avg, _ := AverageOrderCorrectness(results)
	return Report{Dataset: ds.Name, Results: results, Average: avg}, nil
}

func (r Runner) runCase(ctx context.Context, c Case) Result {
	res := Result{Case: c}
	turn, err := r.Turn(ctx, "eval-"+uuid.NewString(), c.Utterance)
	if err != nil {
		res.Err = err.Error()
		comment := fmt.Sprintf("Task failed: %v", err)
		res.Scores = []Score{
			{Name: ScoreOrderCorrectness, Comment: comment},
			{Name: ScoreToolCallAccuracy, Comment: comment},
			{Name: ScoreNoHallucinatedItems, Comment: comment},
		}
		return res
	}
	res.Output = outputOf(turn)
	res.Scores = []Score{
		OrderCorrectness(c.ExpectedItems, res.Output.OrderItems),
		ToolCallAccuracy(c.ExpectedItems, res.Output.ToolCalls),
		NoHallucinatedItems(res.Output.OrderItems, r.Catalog),
	}
	return res
}

func outputOf(turn engine.TurnResult) Output {
	out := Output{Response: turn.Reply, ToolCalls: []string{}, OrderItems: []order.LineItem{}}
	if turn.Conversation == nil {
		return out
	}
	for _, m := range turn.Conversation.Messages {
		if m.Role != llm.RoleAssistant {
			continue
		}
		for _, tc := range m.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, tc.Function.Name)
		}
	}
	out.OrderItems = append(out.OrderItems, turn.Conversation.Order.Items...)
	out.ItemCount = turn.Conversation.Order.ItemCount()
	return out
}
