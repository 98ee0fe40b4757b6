package engine_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/actions"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/engine"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm/scripted"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

const addedHashBrown = `{"added":true,"item_id":"hash-brown","item_name":"Hash Brown","category_name":"snacks-sides","quantity":1,"size":"regular","modifiers":[]}`

func bridgeConv(msgs ...llm.ChatMessage) *conversation.Context {
	c := conversation.New("bridge", catalog.Default(), time.Unix(0, 0))
	c.Append(msgs...)
	return c
}

func request(calls ...llm.ToolCall) llm.ChatMessage {
	return llm.ChatMessage{Role: llm.RoleAssistant, ToolCalls: calls}
}

func result(id, name, content string) llm.ChatMessage {
	return llm.ChatMessage{Role: llm.RoleTool, ToolCallID: id, Name: name, Content: content}
}

func TestWindowOnlyCoversLatestBatch(t *testing.T) {
	msgs := []llm.ChatMessage{
		{Role: llm.RoleUser, Content: "hash brown"},
		request(scripted.Call("a", actions.ToolAdd, `{}`)),
		result("a", actions.ToolAdd, addedHashBrown),
		{Role: llm.RoleAssistant, Content: "Added."},
		{Role: llm.RoleUser, Content: "what do I have"},
		request(scripted.Call("b", actions.ToolSummarize, `{}`)),
		result("b", actions.ToolSummarize, `{}`),
	}
	w := engine.Window(msgs)
	if len(w) != 1 || w[0].ToolCallID != "b" {
		t.Fatalf("unexpected window %+v", w)
	}
	if engine.Window(msgs[:1]) != nil {
		t.Fatalf("expected empty window without a request")
	}
}

func TestApplyResultsNeverReplaysEarlierBatches(t *testing.T) {
	eng, _ := engine.New(scripted.New(), nil, nil, 0)
	conv := bridgeConv(
		request(scripted.Call("a", actions.ToolAdd, `{}`)),
		result("a", actions.ToolAdd, addedHashBrown),
	)
	if n := eng.ApplyResults(conv); n != 1 {
		t.Fatalf("expected 1 applied, got %d", n)
	}
	conv.Append(
		request(scripted.Call("b", actions.ToolSummarize, `{}`)),
		result("b", actions.ToolSummarize, `{}`),
	)
	if n := eng.ApplyResults(conv); n != 0 {
		t.Fatalf("expected nothing re-applied, got %d", n)
	}
	if conv.Order.ItemCount() != 1 {
		t.Fatalf("expected a single hash brown, got %+v", conv.Order.Items)
	}
}

func TestApplyResultsSkipsMalformedAndRejected(t *testing.T) {
	eng, _ := engine.New(scripted.New(), nil, nil, 0)
	conv := bridgeConv(
		request(
			scripted.Call("a", actions.ToolAdd, `{}`),
			scripted.Call("b", actions.ToolAdd, `{}`),
			scripted.Call("c", actions.ToolAdd, `{}`),
			scripted.Call("d", actions.ToolAdd, `{}`),
		),
		result("a", actions.ToolAdd, `not json`),
		result("b", actions.ToolAdd, `{"added":false,"error":"nope"}`),
		result("c", actions.ToolAdd, `{"added":true,"item_id":"ghost","item_name":"Ghost","category_name":"breakfast","quantity":1}`),
		result("d", actions.ToolAdd, `{"added":true,"item_id":"iced-coffee","item_name":"Iced Coffee","category_name":"coffee-tea","quantity":2,"size":"gigantic"}`),
	)
	if n := eng.ApplyResults(conv); n != 1 {
		t.Fatalf("expected only the iced coffee applied, got %d", n)
	}
	if got := conv.Order.Items[0]; got.Size != catalog.SizeMedium || got.Quantity != 2 {
		t.Fatalf("expected default size fallback, got %+v", got)
	}
}

func TestApplyResultsBatchOrderDoesNotMatter(t *testing.T) {
	eng, _ := engine.New(scripted.New(), nil, nil, 0)
	results := []llm.ChatMessage{
		result("a", actions.ToolAdd, addedHashBrown),
		result("b", actions.ToolAdd, `{"added":true,"item_id":"hotcakes","item_name":"Hotcakes","category_name":"breakfast","quantity":1,"modifiers":[{"modifier_id":"extra-syrup","name":"Extra Syrup"}]}`),
		result("c", actions.ToolAdd, addedHashBrown),
	}
	forward := bridgeConv(append([]llm.ChatMessage{request(scripted.Call("a", actions.ToolAdd, `{}`))}, results...)...)
	reversed := bridgeConv(request(scripted.Call("a", actions.ToolAdd, `{}`)), results[2], results[1], results[0])
	eng.ApplyResults(forward)
	eng.ApplyResults(reversed)
	if forward.Order.LineCount() != 2 || forward.Order.ItemCount() != 3 {
		t.Fatalf("unexpected ledger %+v", forward.Order.Items)
	}
	if forward.Order.LineCount() != reversed.Order.LineCount() || forward.Order.ItemCount() != reversed.Order.ItemCount() {
		t.Fatalf("batch order changed the ledger")
	}
}

func TestApplyResultsKeepsQuantityWithinLimit(t *testing.T) {
	eng, _ := engine.New(scripted.New(), nil, nil, 0)
	huge := `{"added":true,"item_id":"hash-brown","item_name":"Hash Brown","category_name":"snacks-sides","quantity":9223372036854775807}`
	near := fmt.Sprintf(`{"added":true,"item_id":"hash-brown","item_name":"Hash Brown","category_name":"snacks-sides","quantity":%d}`, order.MaxQuantity-1)
	conv := bridgeConv(
		request(scripted.Call("a", actions.ToolAdd, `{}`)),
		result("a", actions.ToolAdd, huge),
		result("b", actions.ToolAdd, huge),
		result("c", actions.ToolAdd, near),
		result("d", actions.ToolAdd, addedHashBrown),
		result("e", actions.ToolAdd, addedHashBrown),
	)
	if n := eng.ApplyResults(conv); n != 2 {
		t.Fatalf("expected two additions within the limit, got %d", n)
	}
	if conv.Order.LineCount() != 1 {
		t.Fatalf("unexpected ledger %+v", conv.Order.Items)
	}
	for _, li := range conv.Order.Items {
		if li.Quantity < 1 || li.Quantity > order.MaxQuantity {
			t.Fatalf("line quantity out of range: %+v", li)
		}
	}
	if got := conv.Order.Items[0].Quantity; got != order.MaxQuantity {
		t.Fatalf("expected %d hash browns, got %d", order.MaxQuantity, got)
	}
}

func TestApplyResultsUsesCatalogIdentity(t *testing.T) {
	eng, _ := engine.New(scripted.New(), nil, nil, 0)
	conv := bridgeConv(
		request(scripted.Call("a", actions.ToolAdd, `{}`)),
		result("a", actions.ToolAdd, `{"added":true,"item_id":"hash-brown","item_name":"hashbrown!!","category_name":"desserts","quantity":1}`),
	)
	if n := eng.ApplyResults(conv); n != 1 {
		t.Fatalf("expected one addition, got %d", n)
	}
	got := conv.Order.Items[0]
	if got.Name != "Hash Brown" || got.Category != catalog.CategorySnacksSides || got.Size != catalog.SizeRegular {
		t.Fatalf("expected catalog name, category and default size, got %+v", got)
	}
}
