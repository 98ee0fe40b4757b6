// Package scripted provides deterministic llm.Provider implementations.
package scripted

import (
	"context"
	"errors"
	"sync"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
)

// ErrExhausted is returned once every scripted step has been consumed.
var ErrExhausted = errors.New("scripted provider exhausted")

// Step is one canned reply. A non-nil Err is returned instead of Response.
type Step struct {
	Response llm.ChatResponse
	Err      error
}

// Provider replays Steps in order and records each request.
type Provider struct {
	mu       sync.Mutex
	steps    []Step
	requests []llm.Request
}

func New(steps ...Step) *Provider {
	return &Provider{steps: steps}
}

func (p *Provider) Chat(ctx context.Context, req llm.Request) (llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.ChatResponse{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.steps) == 0 {
		return llm.ChatResponse{}, ErrExhausted
	}
	step := p.steps[0]
	p.steps = p.steps[1:]
	if step.Err != nil {
		return llm.ChatResponse{}, step.Err
	}
	return step.Response, nil
}

// Push appends more steps.
func (p *Provider) Push(steps ...Step) {
	p.mu.Lock()
	p.steps = append(p.steps, steps...)
	p.mu.Unlock()
}

func (p *Provider) Requests() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.requests...)
}

func (p *Provider) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.steps)
}

// Reply is a direct-answer step.
func Reply(content string) Step {
	return Step{Response: llm.ChatResponse{Content: content, FinishReason: "stop"}}
}

// Calls is a step requesting the given tool calls.
func Calls(content string, calls ...llm.ToolCall) Step {
	return Step{Response: llm.ChatResponse{Content: content, ToolCalls: calls, FinishReason: "tool_calls"}}
}

// Call builds a tool call with raw JSON arguments.
func Call(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Type: "function", Function: llm.ToolCallFunction{Name: name, Arguments: args}}
}

func Fail(err error) Step {
	return Step{Err: err}
}
