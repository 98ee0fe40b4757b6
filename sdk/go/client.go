package drivethrusdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal drive-thru HTTP API client for lane terminals.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. Turn calls wait on the model, so
// the timeout is generous.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v1",
		Timeout:  90 * time.Second,
	}
}

// LineItem is one entry of an order.
type LineItem struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	Category  string `json:"category_name"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	Modifiers []struct {
		ID   string `json:"modifier_id"`
		Name string `json:"name"`
	} `json:"modifiers"`
}

type Order struct {
	OrderID string     `json:"order_id"`
	Items   []LineItem `json:"items"`
}

// Turn is the result of one utterance.
type Turn struct {
	SessionID  string   `json:"session_id"`
	Reply      string   `json:"reply"`
	Finalized  bool     `json:"finalized"`
	Iterations int      `json:"iterations"`
	Actions    []string `json:"actions"`
	Order      Order    `json:"order"`
}

type Session struct {
	ID        string   `json:"id"`
	MenuID    string   `json:"menu_id"`
	Finalized bool     `json:"finalized"`
	LineCount int      `json:"line_count"`
	ItemCount int      `json:"item_count"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
	Order     Order    `json:"order"`
	Rationale []string `json:"rationale"`
	LastReply string   `json:"last_reply"`
}

// Event represents a log entry.
type Event struct {
	ID        int64          `json:"id"`
	TS        string         `json:"ts"`
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Payload   map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s body=%s", e.StatusCode, e.Code, e.Body)
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// StartSession opens a conversation and returns the greeting turn. An empty
// sessionID lets the server pick one.
func (c *Client) StartSession(ctx context.Context, sessionID, greeting string) (Turn, error) {
	body := map[string]any{}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	if greeting != "" {
		body["greeting"] = greeting
	}
	var resp Turn
	err := c.do(ctx, http.MethodPost, "sessions", body, &resp)
	return resp, err
}

// Say sends one customer utterance.
func (c *Client) Say(ctx context.Context, sessionID, text string) (Turn, error) {
	var resp Turn
	endpoint := fmt.Sprintf("sessions/%s/turns", url.PathEscape(sessionID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"text": text}, &resp)
	return resp, err
}

func (c *Client) Session(ctx context.Context, sessionID string) (Session, error) {
	var resp Session
	err := c.do(ctx, http.MethodGet, "sessions/"+url.PathEscape(sessionID), nil, &resp)
	return resp, err
}

// EventsPage returns a paginated event listing for a session.
func (c *Client) EventsPage(ctx context.Context, sessionID string, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := fmt.Sprintf("sessions/%s/events", url.PathEscape(sessionID))
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(c.BasePath, "/")
}
