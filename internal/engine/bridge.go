package engine

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/actions"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

// lastRequest is the index of the most recent assistant message that
// requested actions, or -1.
func lastRequest(msgs []llm.ChatMessage) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].HasToolCalls() {
			return i
		}
	}
	return -1
}

// Window returns the tool results appended after the most recent action
// request. Results from earlier requests are never part of it.
func Window(msgs []llm.ChatMessage) []llm.ChatMessage {
	idx := lastRequest(msgs)
	if idx < 0 {
		return nil
	}
	var out []llm.ChatMessage
	for _, m := range msgs[idx+1:] {
		if m.Role == llm.RoleTool {
			out = append(out, m)
		}
	}
	return out
}

// ApplyResults merges every successful addition in the window into the
// ledger and returns how many were merged. Malformed results are skipped.
func (e Engine) ApplyResults(conv *conversation.Context) int {
	ledger := conv.Order
	applied := 0
	for _, msg := range Window(conv.Messages) {
		if msg.Name != actions.ToolAdd {
			continue
		}
		var res actions.AdditionResult
		if err := json.Unmarshal([]byte(msg.Content), &res); err != nil {
			e.logger().Warn("skipping malformed action result",
				zap.String("session_id", conv.SessionID),
				zap.String("tool_call_id", msg.ToolCallID),
				zap.Error(err))
			continue
		}
		if !res.Added || res.Addition == nil {
			continue
		}
		item, ok := conv.Catalog.FindByID(res.ItemID)
		if !ok {
			e.logger().Warn("skipping addition for unknown item", zap.String("item_id", res.ItemID))
			continue
		}
		if res.Quantity < 1 {
			e.logger().Warn("skipping addition with invalid quantity", zap.String("item_id", res.ItemID), zap.Int("quantity", res.Quantity))
			continue
		}
		line := res.Addition.LineItem()
		line.ItemID = item.ID
		line.Name = item.Name
		line.Category = item.Category
		if !line.Size.Valid() {
			line.Size = item.DefaultSize
		}
		next, err := order.Add(ledger, line)
		if err != nil {
			e.logger().Warn("skipping addition over quantity limit",
				zap.String("session_id", conv.SessionID),
				zap.String("item_id", line.ItemID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err))
			continue
		}
		ledger = next
		applied++
		e.logger().Info("added to order",
			zap.String("session_id", conv.SessionID),
			zap.Int("quantity", line.Quantity),
			zap.String("item", line.Name))
	}
	conv.Order = ledger
	return applied
}
