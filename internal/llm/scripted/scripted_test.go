package scripted_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm/scripted"
)

func TestProviderReplaysInOrder(t *testing.T) {
	boom := errors.New("boom")
	p := scripted.New(scripted.Reply("one"), scripted.Fail(boom))
	ctx := context.Background()

	resp, err := p.Chat(ctx, llm.Request{System: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "one", resp.Content)

	_, err = p.Chat(ctx, llm.Request{System: "s2"})
	assert.ErrorIs(t, err, boom)

	_, err = p.Chat(ctx, llm.Request{})
	assert.ErrorIs(t, err, scripted.ErrExhausted)

	reqs := p.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "s2", reqs[1].System)
}

func TestMatcherLooksUpNamedItemsWithQuantities(t *testing.T) {
	m := scripted.Matcher{Catalog: catalog.Default()}
	resp, err := m.Chat(context.Background(), llm.Request{Messages: []llm.ChatMessage{
		{Role: llm.RoleUser, Content: "Can I get two Sausage McMuffin with Egg and a hash brown"},
	}})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)
	assert.JSONEq(t, `{"item_name":"Sausage McMuffin with Egg"}`, resp.ToolCalls[0].Function.Arguments)
	assert.JSONEq(t, `{"item_name":"Hash Brown"}`, resp.ToolCalls[1].Function.Arguments)

	msgs := []llm.ChatMessage{
		{Role: llm.RoleUser, Content: "Can I get two Sausage McMuffin with Egg and a hash brown"},
		{Role: llm.RoleAssistant, ToolCalls: resp.ToolCalls},
		{Role: llm.RoleTool, Name: "lookup_menu_item", ToolCallID: "call-lookup-0", Content: `{"found":true,"name":"Sausage McMuffin with Egg"}`},
		{Role: llm.RoleTool, Name: "lookup_menu_item", ToolCallID: "call-lookup-1", Content: `{"found":true,"name":"Hash Brown"}`},
	}
	resp, err = m.Chat(context.Background(), llm.Request{Messages: msgs})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)
	assert.JSONEq(t, `{"item_id":"sausage-mcmuffin-with-egg","quantity":2}`, resp.ToolCalls[0].Function.Arguments)
	assert.JSONEq(t, `{"item_id":"hash-brown","quantity":1}`, resp.ToolCalls[1].Function.Arguments)
}

func TestMatcherFinalizesOnClosingPhrase(t *testing.T) {
	m := scripted.Matcher{Catalog: catalog.Default()}
	resp, err := m.Chat(context.Background(), llm.Request{Messages: []llm.ChatMessage{
		{Role: llm.RoleUser, Content: "That's all, thanks"},
	}})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "finalize_order", resp.ToolCalls[0].Function.Name)
}
