package eval_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/app"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/checkpoint"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/engine"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/eval"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm/scripted"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

func line(id, name string, qty int, mods ...string) order.LineItem {
	li := order.LineItem{ItemID: id, Name: name, Quantity: qty, Size: catalog.SizeRegular, Modifiers: []catalog.Customization{}}
	for _, m := range mods {
		li.Modifiers = append(li.Modifiers, catalog.Customization{ID: m, Name: m})
	}
	return li
}

func expect(id, name string, qty int, mods ...string) eval.ExpectedItem {
	it := eval.ExpectedItem{ItemID: id, Name: name, Quantity: qty, Size: "regular"}
	for _, m := range mods {
		it.Modifiers = append(it.Modifiers, eval.Modifier{ModifierID: m, Name: m})
	}
	return it
}

func TestDefaultDatasetLoads(t *testing.T) {
	ds, err := eval.LoadDataset("")
	require.NoError(t, err)
	assert.Equal(t, "order-correctness-v1", ds.Name)
	assert.Len(t, ds.Cases, 25)
}

func TestParseDatasetRejectsDuplicates(t *testing.T) {
	_, err := eval.ParseDataset([]byte(`name: x
cases:
  - id: a
    utterance: hi
  - id: a
    utterance: hello
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestOrderCorrectness(t *testing.T) {
	cases := []struct {
		name     string
		expected []eval.ExpectedItem
		actual   []order.LineItem
		want     float64
	}{
		{"both empty", nil, nil, 1},
		{"hallucinated", nil, []order.LineItem{line("hash-brown", "Hash Brown", 1)}, 0},
		{"missed", []eval.ExpectedItem{expect("hash-brown", "Hash Brown", 1)}, nil, 0},
		{"exact", []eval.ExpectedItem{expect("hash-brown", "Hash Brown", 2)}, []order.LineItem{line("hash-brown", "Hash Brown", 2)}, 1},
		{"quantity ratio", []eval.ExpectedItem{expect("hash-brown", "Hash Brown", 2)}, []order.LineItem{line("hash-brown", "Hash Brown", 1)}, 0.85},
		{"modifier jaccard", []eval.ExpectedItem{expect("sausage-biscuit", "Sausage Biscuit", 1, "egg", "cheese")},
			[]order.LineItem{line("sausage-biscuit", "Sausage Biscuit", 1, "egg")}, 0.9},
		{"one of two", []eval.ExpectedItem{expect("hash-brown", "Hash Brown", 1), expect("hotcakes", "Hotcakes", 1)},
			[]order.LineItem{line("hash-brown", "Hash Brown", 1)}, 0.5},
		{"order independent", []eval.ExpectedItem{expect("hotcakes", "Hotcakes", 1), expect("hash-brown", "Hash Brown", 1)},
			[]order.LineItem{line("hash-brown", "Hash Brown", 1), line("hotcakes", "Hotcakes", 1)}, 1},
		{"unexpected extra", []eval.ExpectedItem{expect("hash-brown", "Hash Brown", 1)},
			[]order.LineItem{line("hash-brown", "Hash Brown", 1), line("hotcakes", "Hotcakes", 1), line("bacon", "Bacon", 1)}, 0.333},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := eval.OrderCorrectness(tc.expected, tc.actual)
			assert.Equal(t, eval.ScoreOrderCorrectness, got.Name)
			assert.InDelta(t, tc.want, got.Value, 1e-9, got.Comment)
		})
	}
}

func TestToolCallAccuracy(t *testing.T) {
	items := []eval.ExpectedItem{expect("hash-brown", "Hash Brown", 1)}
	cases := []struct {
		name     string
		expected []eval.ExpectedItem
		calls    []string
		want     float64
	}{
		{"nothing expected nothing added", nil, []string{"lookup_menu_item"}, 1},
		{"nothing expected but added", nil, []string{"lookup_menu_item", "add_item_to_order"}, 0},
		{"no calls", items, nil, 0},
		{"add only", items, []string{"add_item_to_order"}, 0.3},
		{"lookup only", items, []string{"lookup_menu_item"}, 0.3},
		{"correct", items, []string{"lookup_menu_item", "add_item_to_order"}, 1},
		{"reversed", items, []string{"add_item_to_order", "lookup_menu_item"}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, eval.ToolCallAccuracy(tc.expected, tc.calls).Value)
		})
	}
}

func TestNoHallucinatedItems(t *testing.T) {
	cat := catalog.Default()
	assert.Equal(t, 1.0, eval.NoHallucinatedItems(nil, cat).Value)
	assert.Equal(t, 1.0, eval.NoHallucinatedItems([]order.LineItem{line("hash-brown", "Hash Brown", 1)}, cat).Value)
	got := eval.NoHallucinatedItems([]order.LineItem{line("big-mac", "Big Mac", 1)}, cat)
	assert.Equal(t, 0.0, got.Value)
	assert.Contains(t, got.Comment, "Big Mac")
}

func TestAverageOrderCorrectness(t *testing.T) {
	_, ok := eval.AverageOrderCorrectness(nil)
	assert.False(t, ok)
	avg, ok := eval.AverageOrderCorrectness([]eval.Result{
		{Scores: []eval.Score{{Name: eval.ScoreOrderCorrectness, Value: 1}}},
		{Scores: []eval.Score{{Name: eval.ScoreOrderCorrectness, Value: 0.5}, {Name: eval.ScoreToolCallAccuracy, Value: 0}}},
	})
	require.True(t, ok)
	assert.Equal(t, 0.75, avg.Value)
}

func TestRunnerWithOfflineMatcher(t *testing.T) {
	cat := catalog.Default()
	eng, err := engine.New(scripted.Matcher{Catalog: cat}, nil, nil, 0)
	require.NoError(t, err)
	svc := &app.Service{Engine: eng, Store: checkpoint.NewMemory(time.Minute), Catalog: cat}

	ds, err := eval.ParseDataset([]byte(`name: mini
cases:
  - id: two-hash-browns
    utterance: Two hash browns please
    expected_items:
      - {item_id: hash-brown, name: Hash Brown, quantity: 2, size: regular, modifiers: []}
  - id: greeting
    utterance: Hi, good morning!
    expected_items: []
  - id: not-on-menu
    utterance: I'd like a Big Mac
    expected_items: []
`))
	require.NoError(t, err)

	report, err := eval.Runner{Turn: svc.Turn, Catalog: cat, Concurrency: 2}.Run(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	for _, r := range report.Results {
		assert.Empty(t, r.Err, r.Case.ID)
		assert.Equal(t, 1.0, r.Score(eval.ScoreOrderCorrectness), r.Case.ID)
		assert.Equal(t, 1.0, r.Score(eval.ScoreToolCallAccuracy), r.Case.ID)
		assert.Equal(t, 1.0, r.Score(eval.ScoreNoHallucinatedItems), r.Case.ID)
	}
	assert.Equal(t, []string{"lookup_menu_item", "add_item_to_order"}, report.Results[0].Output.ToolCalls)
	assert.Equal(t, 2, report.Results[0].Output.ItemCount)
	assert.Equal(t, 1.0, report.Average.Value)
}

func TestRunnerScoresFailuresAsZero(t *testing.T) {
	ds, err := eval.ParseDataset([]byte("name: f\ncases:\n  - id: a\n    utterance: hi\n"))
	require.NoError(t, err)
	boom := errors.New("boom")
	turn := func(context.Context, string, string) (engine.TurnResult, error) { return engine.TurnResult{}, boom }

	report, err := eval.Runner{Turn: turn, Catalog: catalog.Default()}.Run(context.Background(), ds)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "boom", report.Results[0].Err)
	assert.Equal(t, 0.0, report.Average.Value)
}
