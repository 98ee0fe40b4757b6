// Package conversation holds the per-session state the orchestration loop
// reads and writes.
package conversation

import (
	"time"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/llm"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

// Context is one conversation. Messages and Rationale only grow. The Catalog
// is not serialized and is re-bound by MenuID when a stored session loads.
type Context struct {
	SessionID string            `json:"session_id"`
	MenuID    string            `json:"menu_id"`
	Messages  []llm.ChatMessage `json:"messages"`
	Order     order.Ledger      `json:"order"`
	Rationale []string          `json:"rationale"`
	Finalized bool              `json:"finalized"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	Catalog *catalog.Catalog `json:"-"`
}

func New(sessionID string, cat *catalog.Catalog, now time.Time) *Context {
	return &Context{
		SessionID: sessionID,
		MenuID:    cat.MenuID,
		Messages:  []llm.ChatMessage{},
		Order:     order.New(),
		Rationale: []string{},
		CreatedAt: now,
		UpdatedAt: now,
		Catalog:   cat,
	}
}

// Clone returns a copy that can be appended to without affecting c.
func (c *Context) Clone() *Context {
	out := *c
	out.Messages = append(make([]llm.ChatMessage, 0, len(c.Messages)+8), c.Messages...)
	out.Rationale = append(make([]string, 0, len(c.Rationale)+4), c.Rationale...)
	out.Order.Items = append([]order.LineItem(nil), c.Order.Items...)
	return &out
}

func (c *Context) Append(msgs ...llm.ChatMessage) {
	c.Messages = append(c.Messages, msgs...)
}

// LastReply is the content of the latest assistant message.
func (c *Context) LastReply() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == llm.RoleAssistant {
			return c.Messages[i].Content
		}
	}
	return ""
}

// Bind attaches a catalog after loading from storage.
func (c *Context) Bind(cat *catalog.Catalog) {
	c.Catalog = cat
	if c.MenuID == "" {
		c.MenuID = cat.MenuID
	}
	if c.Messages == nil {
		c.Messages = []llm.ChatMessage{}
	}
	if c.Rationale == nil {
		c.Rationale = []string{}
	}
	if c.Order.Items == nil {
		c.Order.Items = []order.LineItem{}
	}
}
