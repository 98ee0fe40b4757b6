// Package gemini adapts the Google GenAI SDK to llm.Provider.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
)

const DefaultModel = "gemini-2.0-flash"

type Config struct {
	APIKey      string
	Model       string
	Temperature float64
}

// generator is the slice of *genai.Models the provider uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models      generator
	model       string
	temperature float64
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{models: client.Models, model: cfg.Model, temperature: cfg.Temperature}, nil
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.ChatResponse, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(c.temperature)),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		tools, err := toDeclarations(req.Tools)
		if err != nil {
			return llm.ChatResponse{}, err
		}
		config.Tools = tools
	}
	resp, err := c.models.GenerateContent(ctx, c.model, toContents(req.Messages), config)
	if err != nil {
		return llm.ChatResponse{}, mapError(err)
	}
	out := fromResponse(resp)
	if strings.TrimSpace(out.Content) == "" && len(out.ToolCalls) == 0 {
		return llm.ChatResponse{}, llm.ErrEmptyResponse
	}
	return out, nil
}

func toDeclarations(tools []llm.Tool) ([]*genai.Tool, error) {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		var schema map[string]any
		if len(t.Function.Parameters) > 0 {
			if err := json.Unmarshal(t.Function.Parameters, &schema); err != nil {
				return nil, fmt.Errorf("tool %s schema: %w", t.Function.Name, err)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 t.Function.Name,
			Description:          t.Function.Description,
			ParametersJsonSchema: schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}, nil
}

// toContents maps chat history onto GenAI turns. Consecutive tool results
// are folded into a single user turn of function responses.
func toContents(messages []llm.ChatMessage) []*genai.Content {
	var out []*genai.Content
	names := make(map[string]string)
	var pending []*genai.Part
	flush := func() {
		if len(pending) > 0 {
			out = append(out, genai.NewContentFromParts(pending, genai.RoleUser))
			pending = nil
		}
	}
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleTool:
			name := msg.Name
			if name == "" {
				name = names[msg.ToolCallID]
			}
			pending = append(pending, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     name,
				Response: toolOutput(msg.Content),
			}})
		case llm.RoleAssistant:
			flush()
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				names[call.ID] = call.Function.Name
				args := map[string]any{}
				_ = json.Unmarshal([]byte(call.Function.Arguments), &args)
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Function.Name,
					Args: args,
				}})
			}
			if len(parts) > 0 {
				out = append(out, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		default:
			flush()
			out = append(out, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	flush()
	return out
}

func toolOutput(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		return map[string]any{"output": obj}
	}
	return map[string]any{"output": content}
}

func fromResponse(resp *genai.GenerateContentResponse) llm.ChatResponse {
	var out llm.ChatResponse
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	var text strings.Builder
	for i, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
		if fc := part.FunctionCall; fc != nil && fc.Name != "" {
			id := fc.ID
			if id == "" {
				id = fmt.Sprintf("call-%s-%d", fc.Name, i)
			}
			args, err := json.Marshal(fc.Args)
			if err != nil || fc.Args == nil {
				args = []byte("{}")
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:       id,
				Type:     "function",
				Function: llm.ToolCallFunction{Name: fc.Name, Arguments: string(args)},
			})
		}
	}
	out.Content = text.String()
	out.FinishReason = "stop"
	if len(out.ToolCalls) > 0 {
		out.FinishReason = "tool_calls"
	}
	return out
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %s", llm.ErrUnauthorized, apiErr.Message)
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", llm.ErrRateLimited, apiErr.Message)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %w", llm.ErrUnavailable, err)
}
