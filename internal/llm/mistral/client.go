// Package mistral talks to the Mistral chat-completions endpoint.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
)

const (
	DefaultBaseURL    = "https://api.mistral.ai"
	DefaultModel      = "mistral-small-latest"
	maxErrorBodyBytes = 2048
)

type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	BaseURL     string
	Timeout     time.Duration
}

// Client implements llm.Provider over HTTP.
type Client struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.ChatResponse, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return llm.ChatResponse{}, llm.ErrUnauthorized
	}
	temp := c.cfg.Temperature
	payload := completionRequest{
		Model:       c.cfg.Model,
		Temperature: &temp,
		Messages:    toWireMessages(req.System, req.Messages),
	}
	if len(req.Tools) > 0 {
		payload.Tools = toWireTools(req.Tools)
		payload.ToolChoice = "auto"
	}
	content, calls, err := c.send(ctx, payload)
	if err != nil {
		return llm.ChatResponse{}, err
	}
	if strings.TrimSpace(content) == "" && len(calls) == 0 {
		return llm.ChatResponse{}, llm.ErrEmptyResponse
	}
	finish := "stop"
	if len(calls) > 0 {
		finish = "tool_calls"
	}
	return llm.ChatResponse{Content: content, ToolCalls: calls, FinishReason: finish}, nil
}

func (c *Client) send(ctx context.Context, payload completionRequest) (string, []llm.ToolCall, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", llm.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", nil, llm.ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", nil, llm.ErrRateLimited
	case resp.StatusCode >= 500:
		return "", nil, llm.ErrUnavailable
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", nil, fmt.Errorf("mistral error: %s - %s", resp.Status, string(errBody))
	}
	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", nil, fmt.Errorf("decode mistral response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", nil, llm.ErrEmptyResponse
	}
	msg := completion.Choices[0].Message
	return extractContent(msg.Content), fromWireToolCalls(msg.ToolCalls), nil
}

type completionRequest struct {
	Model       string        `json:"model"`
	Temperature *float64      `json:"temperature,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireCallSent `json:"tool_calls,omitempty"`
}

type wireCallSent struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireCallArgs `json:"function"`
}

type wireCallArgs struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content   json.RawMessage    `json:"content"`
			ToolCalls []wireCallReceived `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

type wireCallReceived struct {
	ID       string `json:"id"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

func toWireMessages(system string, messages []llm.ChatMessage) []wireMessage {
	out := make([]wireMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, wireMessage{Role: llm.RoleSystem, Content: system})
	}
	toolNames := make(map[string]string)
	for _, msg := range messages {
		if msg.Role == llm.RoleTool {
			entry := wireMessage{Role: llm.RoleTool, Content: msg.Content, ToolCallID: msg.ToolCallID, Name: msg.Name}
			if entry.Name == "" {
				entry.Name = toolNames[msg.ToolCallID]
			}
			out = append(out, entry)
			continue
		}
		entry := wireMessage{Role: normalizeRole(msg.Role), Content: msg.Content}
		for i, call := range msg.ToolCalls {
			id := call.ID
			if id == "" {
				id = fmt.Sprintf("call-%s-%d", call.Function.Name, i)
			}
			entry.ToolCalls = append(entry.ToolCalls, wireCallSent{
				ID:       id,
				Type:     "function",
				Function: wireCallArgs{Name: call.Function.Name, Arguments: call.Function.Arguments},
			})
			toolNames[id] = call.Function.Name
		}
		out = append(out, entry)
	}
	return out
}

func toWireTools(tools []llm.Tool) []wireTool {
	out := make([]wireTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}
	return out
}

func normalizeRole(role string) string {
	switch role {
	case llm.RoleAssistant, llm.RoleUser, llm.RoleSystem, llm.RoleTool:
		return role
	default:
		return llm.RoleUser
	}
}

// extractContent accepts either a plain string or a list of text chunks.
func extractContent(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var chunks []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &chunks); err == nil {
		var b strings.Builder
		for _, ch := range chunks {
			b.WriteString(ch.Text)
		}
		return b.String()
	}
	return ""
}

func fromWireToolCalls(calls []wireCallReceived) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]llm.ToolCall, 0, len(calls))
	for i, call := range calls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			continue
		}
		id := strings.TrimSpace(call.ID)
		if id == "" {
			id = fmt.Sprintf("call-%s-%d", name, i)
		}
		out = append(out, llm.ToolCall{
			ID:       id,
			Type:     "function",
			Function: llm.ToolCallFunction{Name: name, Arguments: normalizeArguments(call.Function.Arguments)},
		})
	}
	return out
}

// normalizeArguments returns the arguments as a JSON object string. Some
// responses send an object, others a string holding one.
func normalizeArguments(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "{}"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return "{}"
		}
		return s
	}
	return trimmed
}
