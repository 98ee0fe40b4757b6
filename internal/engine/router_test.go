package engine_test

import (
	"testing"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/actions"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/engine"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm/scripted"
)

func TestRouteAfterReasoning(t *testing.T) {
	direct := bridgeConv(llm.ChatMessage{Role: llm.RoleAssistant, Content: "Hello"})
	withCalls := bridgeConv(request(scripted.Call("a", actions.ToolLookup, `{}`)))
	for i := 0; i < 3; i++ {
		if got := engine.RouteAfterReasoning(direct); got != engine.StateDirectReply {
			t.Fatalf("direct reply routed to %s", got)
		}
		if got := engine.RouteAfterReasoning(withCalls); got != engine.StateHasActions {
			t.Fatalf("tool calls routed to %s", got)
		}
	}
}

func TestRouteAfterBridge(t *testing.T) {
	cases := []struct {
		name string
		msgs []llm.ChatMessage
		want engine.State
	}{
		{"no terminal", []llm.ChatMessage{
			request(scripted.Call("a", actions.ToolSummarize, `{}`)),
			result("a", actions.ToolSummarize, `{}`),
		}, engine.StateAwaitingReasoning},
		{"terminal complete", []llm.ChatMessage{
			request(scripted.Call("a", actions.ToolFinalize, `{}`)),
			result("a", actions.ToolFinalize, `{"complete":true,"order_id":"x"}`),
		}, engine.StateDone},
		{"terminal failed", []llm.ChatMessage{
			request(scripted.Call("a", actions.ToolFinalize, `{"x":1}`)),
			result("a", actions.ToolFinalize, `{"error":"finalize_order: invalid arguments"}`),
		}, engine.StateAwaitingReasoning},
		{"terminal in earlier batch", []llm.ChatMessage{
			request(scripted.Call("a", actions.ToolFinalize, `{}`)),
			result("a", actions.ToolFinalize, `{"complete":true}`),
			request(scripted.Call("b", actions.ToolSummarize, `{}`)),
			result("b", actions.ToolSummarize, `{}`),
		}, engine.StateAwaitingReasoning},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := engine.RouteAfterBridge(bridgeConv(tc.msgs...)); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}
