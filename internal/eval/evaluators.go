package eval

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/actions"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

const (
	ScoreOrderCorrectness    = "order_correctness"
	ScoreToolCallAccuracy    = "tool_call_accuracy"
	ScoreNoHallucinatedItems = "no_hallucinated_items"
	ScoreAvgOrderCorrectness = "avg_order_correctness"
)

type Score struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Comment string  `json:"comment"`
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// OrderCorrectness compares lines matched by item id; list order does not
// matter. Each id in either side is worth one point split as name 0.4,
// quantity 0.3 (ratio credit), size 0.1 and modifier Jaccard 0.2.
func OrderCorrectness(expected []ExpectedItem, actual []order.LineItem) Score {
	s := Score{Name: ScoreOrderCorrectness}
	switch {
	case len(expected) == 0 && len(actual) == 0:
		s.Value, s.Comment = 1, "Correctly added no items"
		return s
	case len(expected) == 0:
		names := make([]string, 0, len(actual))
		for _, li := range actual {
			names = append(names, li.Name)
		}
		s.Comment = fmt.Sprintf("Expected no items but got: %s", strings.Join(names, ", "))
		return s
	case len(actual) == 0:
		names := make([]string, 0, len(expected))
		for _, it := range expected {
			names = append(names, it.Name)
		}
		s.Comment = fmt.Sprintf("Expected %s but order is empty", strings.Join(names, ", "))
		return s
	}

	expByID := make(map[string]ExpectedItem, len(expected))
	for _, it := range expected {
		expByID[it.ItemID] = it
	}
	actByID := make(map[string]order.LineItem, len(actual))
	for _, li := range actual {
		actByID[li.ItemID] = li
	}
	ids := make([]string, 0, len(expByID)+len(actByID))
	for id := range expByID {
		ids = append(ids, id)
	}
	for id := range actByID {
		if _, ok := expByID[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var total float64
	details := make([]string, 0, len(ids))
	for _, id := range ids {
		exp, hasExp := expByID[id]
		act, hasAct := actByID[id]
		switch {
		case hasExp && hasAct:
			score := lineScore(exp, act)
			total += score
			details = append(details, fmt.Sprintf("%s: %.2f/1.0", exp.Name, score))
		case hasExp:
			details = append(details, exp.Name+": MISSING from order")
		default:
			details = append(details, act.Name+": UNEXPECTED in order")
		}
	}
	s.Value = round3(total / float64(len(ids)))
	s.Comment = strings.Join(details, "; ")
	return s
}

func lineScore(exp ExpectedItem, act order.LineItem) float64 {
	var score float64
	if strings.EqualFold(act.Name, exp.Name) {
		score += 0.4
	}
	if act.Quantity == exp.Quantity {
		score += 0.3
	} else {
		lo, hi := act.Quantity, exp.Quantity
		if lo > hi {
			lo, hi = hi, lo
		}
		if hi > 0 {
			score += 0.3 * float64(lo) / float64(hi)
		}
	}
	expSize := exp.Size
	if expSize == "" {
		expSize = string(catalog.SizeRegular)
	}
	if string(act.Size) == expSize {
		score += 0.1
	}
	expMods := make(map[string]bool, len(exp.Modifiers))
	for _, m := range exp.Modifiers {
		expMods[m.ModifierID] = true
	}
	actMods := make(map[string]bool, len(act.Modifiers))
	for _, m := range act.Modifiers {
		actMods[m.ID] = true
	}
	if len(expMods) == 0 && len(actMods) == 0 {
		return score + 0.2
	}
	inter := 0
	union := len(expMods)
	for id := range actMods {
		if expMods[id] {
			inter++
		} else {
			union++
		}
	}
	return score + 0.2*float64(inter)/float64(union)
}

// ToolCallAccuracy checks the lookup-before-add protocol. toolCalls are the
// tool names in the order they were requested.
func ToolCallAccuracy(expected []ExpectedItem, toolCalls []string) Score {
	s := Score{Name: ScoreToolCallAccuracy}
	firstLookup, firstAdd := indexOf(toolCalls, actions.ToolLookup), indexOf(toolCalls, actions.ToolAdd)
	if len(expected) == 0 {
		if firstAdd < 0 {
			s.Value, s.Comment = 1, "Correctly did not add items"
			return s
		}
		s.Comment = fmt.Sprintf("Should not have called %s. Tool calls: %v", actions.ToolAdd, toolCalls)
		return s
	}
	switch {
	case firstLookup < 0 && firstAdd < 0:
		s.Comment = "No tool calls made, expected ordering tools"
	case firstLookup < 0:
		s.Value, s.Comment = 0.3, actions.ToolAdd+" called without "+actions.ToolLookup+" first"
	case firstAdd < 0:
		s.Value, s.Comment = 0.3, actions.ToolLookup+" called but "+actions.ToolAdd+" never called"
	case firstLookup < firstAdd:
		s.Value, s.Comment = 1, "Correct: lookup before add"
	default:
		s.Value = 0.5
		s.Comment = fmt.Sprintf("Protocol violation: %s at index %d before %s at %d", actions.ToolAdd, firstAdd, actions.ToolLookup, firstLookup)
	}
	return s
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

// NoHallucinatedItems fails when any line's item id is not on the menu.
func NoHallucinatedItems(actual []order.LineItem, cat *catalog.Catalog) Score {
	s := Score{Name: ScoreNoHallucinatedItems}
	if len(actual) == 0 {
		s.Value, s.Comment = 1, "No items in order"
		return s
	}
	var bad []string
	for _, li := range actual {
		if _, ok := cat.FindByID(li.ItemID); !ok {
			bad = append(bad, li.Name)
		}
	}
	if len(bad) == 0 {
		s.Value, s.Comment = 1, "All items are on the menu"
		return s
	}
	s.Comment = "Hallucinated items not on menu: " + strings.Join(bad, ", ")
	return s
}

// AverageOrderCorrectness is the run-level mean. ok is false when no result
// carries an order_correctness score.
func AverageOrderCorrectness(results []Result) (Score, bool) {
	var sum float64
	n := 0
	for _, r := range results {
		for _, sc := range r.Scores {
			if sc.Name == ScoreOrderCorrectness {
				sum += sc.Value
				n++
			}
		}
	}
	if n == 0 {
		return Score{Name: ScoreAvgOrderCorrectness, Comment: "No scores"}, false
	}
	avg := sum / float64(n)
	return Score{
		Name:    ScoreAvgOrderCorrectness,
		Value:   round3(avg),
		Comment: fmt.Sprintf("Average order correctness: %.1f%% across %d items", avg*100, n),
	}, true
}
