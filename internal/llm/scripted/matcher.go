package scripted

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
)

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var closingPhrases = []string{"that's all", "thats all", "that's it", "that is all", "i'm done", "nothing else"}

// Matcher is an offline order taker. It spots menu item names in the latest
// customer utterance, looks them up, adds them, and finalizes when the
// customer says they are done. Used for demos and eval dry runs.
type Matcher struct {
	Catalog *catalog.Catalog
}

type mention struct {
	item     catalog.Item
	quantity int
}

func (m Matcher) Chat(ctx context.Context, req llm.Request) (llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.ChatResponse{}, err
	}
	msgs := req.Messages
	if len(msgs) == 0 {
		return greeting(m.Catalog), nil
	}
	last := msgs[len(msgs)-1]
	if last.Role == llm.RoleTool {
		return m.afterResults(msgs), nil
	}
	text := strings.ToLower(last.Content)
	for _, p := range closingPhrases {
		if strings.Contains(text, p) {
			return llm.ChatResponse{
				Content:      "<reasoning>Customer is done ordering.</reasoning>",
				ToolCalls:    []llm.ToolCall{Call("call-finalize-0", "finalize_order", "{}")},
				FinishReason: "tool_calls",
			}, nil
		}
	}
	found := m.mentions(text)
	if len(found) == 0 {
		return greeting(m.Catalog), nil
	}
	calls := make([]llm.ToolCall, 0, len(found))
	for i, f := range found {
		args, _ := json.Marshal(map[string]string{"item_name": f.item.Name})
		calls = append(calls, Call(fmt.Sprintf("call-lookup-%d", i), "lookup_menu_item", string(args)))
	}
	return llm.ChatResponse{
		Content:      "<reasoning>Look up each item the customer named.</reasoning>",
		ToolCalls:    calls,
		FinishReason: "tool_calls",
	}, nil
}

func greeting(c *catalog.Catalog) llm.ChatResponse {
	name := "our restaurant"
	if c != nil && c.Location.Name != "" {
		name = c.Location.Name
	}
	return llm.ChatResponse{Content: fmt.Sprintf("Welcome to %s! What can I get for you?", name), FinishReason: "stop"}
}

// afterResults decides the next move from the latest batch of tool results.
func (m Matcher) afterResults(msgs []llm.ChatMessage) llm.ChatResponse {
	start := len(msgs)
	for start > 0 && msgs[start-1].Role == llm.RoleTool {
		start--
	}
	batch := msgs[start:]
	var lookups, added []string
	finalized := false
	for _, res := range batch {
		var body struct {
			Found    bool   `json:"found"`
			Added    bool   `json:"added"`
			Complete bool   `json:"complete"`
			Name     string `json:"name"`
			ItemName string `json:"item_name"`
		}
		if err := json.Unmarshal([]byte(res.Content), &body); err != nil {
			continue
		}
		switch res.Name {
		case "lookup_menu_item":
			if body.Found {
				lookups = append(lookups, body.Name)
			}
		case "add_item_to_order":
			if body.Added {
				added = append(added, body.ItemName)
			}
		case "finalize_order":
			finalized = body.Complete
		}
	}
	switch {
	case finalized:
		return llm.ChatResponse{Content: "Thank you! Please pull forward to the window.", FinishReason: "stop"}
	case len(lookups) > 0:
		qty := m.quantities(lastUserText(msgs))
		calls := make([]llm.ToolCall, 0, len(lookups))
		for i, name := range lookups {
			it, ok := m.Catalog.FindByName(name)
			if !ok {
				continue
			}
			q := qty[it.ID]
			if q == 0 {
				q = 1
			}
			args, _ := json.Marshal(map[string]any{"item_id": it.ID, "quantity": q})
			calls = append(calls, Call(fmt.Sprintf("call-add-%d", i), "add_item_to_order", string(args)))
		}
		return llm.ChatResponse{
			Content:      "<reasoning>All items found, add them.</reasoning>",
			ToolCalls:    calls,
			FinishReason: "tool_calls",
		}
	case len(added) > 0:
		return llm.ChatResponse{Content: "Got it, " + strings.Join(added, ", ") + ". Anything else?", FinishReason: "stop"}
	default:
		return llm.ChatResponse{Content: "Sorry, I couldn't find that on our menu. Anything else?", FinishReason: "stop"}
	}
}

func lastUserText(msgs []llm.ChatMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return strings.ToLower(msgs[i].Content)
		}
	}
	return ""
}

func (m Matcher) quantities(text string) map[string]int {
	out := make(map[string]int)
	for _, f := range m.mentions(text) {
		out[f.item.ID] += f.quantity
	}
	return out
}

// mentions finds menu items named in text, longest names first so that a
// shorter name inside a longer one is not double counted.
func (m Matcher) mentions(text string) []mention {
	if m.Catalog == nil {
		return nil
	}
	items := m.Catalog.Items()
	sort.SliceStable(items, func(i, j int) bool { return len(items[i].Name) > len(items[j].Name) })
	masked := []byte(text)
	type hit struct {
		at int
		mention
	}
	var hits []hit
	for _, it := range items {
		name := strings.ToLower(it.Name)
		for {
			idx := strings.Index(string(masked), name)
			if idx < 0 {
				break
			}
			hits = append(hits, hit{at: idx, mention: mention{item: it, quantity: quantityBefore(text[:idx])}})
			for k := idx; k < idx+len(name); k++ {
				masked[k] = '#'
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at < hits[j].at })
	out := make([]mention, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.mention)
	}
	return out
}

func quantityBefore(prefix string) int {
	fields := strings.Fields(prefix)
	if len(fields) == 0 {
		return 1
	}
	word := strings.Trim(fields[len(fields)-1], ",.")
	if n, ok := numberWords[word]; ok {
		return n
	}
	if n, err := strconv.Atoi(word); err == nil && n > 0 {
		return n
	}
	return 1
}
