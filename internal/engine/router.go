package engine

import (
	"encoding/json"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/actions"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
)

type State int

const (
	StateAwaitingReasoning State = iota
	StateHasActions
	StateDirectReply
	StateCheckTerminal
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingReasoning:
		return "awaiting_reasoning"
	case StateHasActions:
		return "has_actions"
	case StateDirectReply:
		return "direct_reply"
	case StateCheckTerminal:
		return "check_terminal"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// RouteAfterReasoning looks only at the latest message.
func RouteAfterReasoning(conv *conversation.Context) State {
	if n := len(conv.Messages); n > 0 && conv.Messages[n-1].HasToolCalls() {
		return StateHasActions
	}
	return StateDirectReply
}

// RouteAfterBridge ends the turn only when the latest batch holds a
// successful terminal action result.
func RouteAfterBridge(conv *conversation.Context) State {
	for _, m := range Window(conv.Messages) {
		if !actions.IsTerminal(m.Name) {
			continue
		}
		var res actions.CompletionResult
		if err := json.Unmarshal([]byte(m.Content), &res); err == nil && res.Complete {
			return StateDone
		}
	}
	return StateAwaitingReasoning
}
