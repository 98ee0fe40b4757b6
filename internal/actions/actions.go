// Package actions holds the functions the reasoning step may invoke. They
// read the catalog and ledger and describe outcomes; they never mutate the
// ledger.
package actions

import (
	"fmt"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

const (
	ToolLookup    = "lookup_menu_item"
	ToolAdd       = "add_item_to_order"
	ToolSummarize = "get_current_order"
	ToolFinalize  = "finalize_order"
)

// IsTerminal reports whether a tool ends the conversation.
func IsTerminal(name string) bool { return name == ToolFinalize }

// MenuItem is the found half of a LookupResult.
type MenuItem struct {
	ItemID             string                  `json:"item_id"`
	Name               string                  `json:"name"`
	Category           catalog.Category        `json:"category_name"`
	DefaultSize        catalog.Size            `json:"default_size"`
	AvailableModifiers []catalog.Customization `json:"available_modifiers"`
}

// Miss is the not-found half of a LookupResult.
type Miss struct {
	Requested   string   `json:"requested"`
	Suggestions []string `json:"suggestions"`
	Message     string   `json:"message"`
}

type LookupResult struct {
	Found bool `json:"found"`
	*MenuItem
	*Miss
}

func LookupItem(name string, cat *catalog.Catalog) LookupResult {
	it, ok := cat.FindByName(name)
	if !ok {
		suggestions := cat.Suggest(name)
		if suggestions == nil {
			suggestions = []string{}
		}
		return LookupResult{Miss: &Miss{
			Requested:   name,
			Suggestions: suggestions,
			Message:     fmt.Sprintf("%q is not on the menu", name),
		}}
	}
	mods := cat.AllowedCustomizations(it.ID)
	return LookupResult{Found: true, MenuItem: &MenuItem{
		ItemID:             it.ID,
		Name:               it.Name,
		Category:           it.Category,
		DefaultSize:        it.DefaultSize,
		AvailableModifiers: mods,
	}}
}

// AdditionRequest is the argument shape of add_item_to_order. Name and
// category are informational; the catalog entry for ItemID is authoritative.
type AdditionRequest struct {
	ItemID       string   `json:"item_id"`
	ItemName     string   `json:"item_name,omitempty"`
	CategoryName string   `json:"category_name,omitempty"`
	Quantity     *int     `json:"quantity,omitempty"`
	Size         string   `json:"size,omitempty"`
	Modifiers    []string `json:"modifiers,omitempty"`
}

// Addition describes a line the bridge should merge.
type Addition struct {
	ItemID    string                  `json:"item_id"`
	ItemName  string                  `json:"item_name"`
	Category  catalog.Category        `json:"category_name"`
	Quantity  int                     `json:"quantity"`
	Size      catalog.Size            `json:"size"`
	Modifiers []catalog.Customization `json:"modifiers"`
}

type AdditionResult struct {
	Added bool   `json:"added"`
	Error string `json:"error,omitempty"`
	*Addition
}

func rejected(format string, args ...any) AdditionResult {
	return AdditionResult{Error: fmt.Sprintf(format, args...)}
}

// ProposeAddition validates a requested addition against the catalog.
func ProposeAddition(req AdditionRequest, cat *catalog.Catalog) AdditionResult {
	it, ok := cat.FindByID(req.ItemID)
	if !ok {
		return rejected("item_id %q is not on the menu", req.ItemID)
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if qty < 1 {
		return rejected("quantity must be at least 1, got %d", qty)
	}
	if qty > order.MaxQuantity {
		return rejected("quantity must be at most %d, got %d", order.MaxQuantity, qty)
	}
	size := it.DefaultSize
	if req.Size != "" {
		size = catalog.Size(req.Size)
		if !size.Valid() {
			return rejected("size %q is not one of snack, small, medium, large, regular", req.Size)
		}
	}
	allowed := make(map[string]catalog.Customization, len(it.AvailableModifiers))
	for _, m := range it.AvailableModifiers {
		allowed[m.ID] = m
	}
	mods := []catalog.Customization{}
	seen := make(map[string]bool, len(req.Modifiers))
	for _, id := range req.Modifiers {
		m, ok := allowed[id]
		if !ok {
			return rejected("modifier %q is not available for %s", id, it.Name)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		mods = append(mods, m)
	}
	return AdditionResult{Added: true, Addition: &Addition{
		ItemID:    it.ID,
		ItemName:  it.Name,
		Category:  it.Category,
		Quantity:  qty,
		Size:      size,
		Modifiers: mods,
	}}
}

// LineItem converts a successful addition into a ledger line.
func (a Addition) LineItem() order.LineItem {
	return order.LineItem{
		ItemID:    a.ItemID,
		Name:      a.ItemName,
		Category:  a.Category,
		Size:      a.Size,
		Quantity:  a.Quantity,
		Modifiers: append([]catalog.Customization(nil), a.Modifiers...),
	}
}

type SummaryLine struct {
	ItemID    string                  `json:"item_id"`
	Name      string                  `json:"name"`
	Quantity  int                     `json:"quantity"`
	Size      catalog.Size            `json:"size"`
	Modifiers []catalog.Customization `json:"modifiers"`
}

type OrderSummary struct {
	OrderID   string        `json:"order_id"`
	LineCount int           `json:"line_count"`
	ItemCount int           `json:"item_count"`
	Items     []SummaryLine `json:"items"`
}

func SummarizeOrder(l order.Ledger) OrderSummary {
	s := OrderSummary{
		OrderID:   l.OrderID,
		LineCount: l.LineCount(),
		ItemCount: l.ItemCount(),
		Items:     make([]SummaryLine, 0, len(l.Items)),
	}
	for _, it := range l.Items {
		mods := append([]catalog.Customization{}, it.Modifiers...)
		s.Items = append(s.Items, SummaryLine{
			ItemID:    it.ItemID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Modifiers: mods,
		})
	}
	return s
}

type CompletionResult struct {
	Complete  bool   `json:"complete"`
	OrderID   string `json:"order_id"`
	ItemCount int    `json:"item_count"`
}

func MarkComplete(l order.Ledger) CompletionResult {
	return CompletionResult{Complete: true, OrderID: l.OrderID, ItemCount: l.ItemCount()}
}

// ErrorResult is returned for unknown tools and malformed arguments.
type ErrorResult struct {
	Error string `json:"error"`
}
