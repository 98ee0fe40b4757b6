package order

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
)

// MaxQuantity is the largest quantity a single line may hold.
const MaxQuantity = 100

var (
	// ErrDifferentItem is returned when merging line items whose business
	// identities differ.
	ErrDifferentItem = errors.New("line items have different identities")
	// ErrQuantityLimit is returned when a line would hold more than
	// MaxQuantity units.
	ErrQuantityLimit = errors.New("line quantity exceeds limit")
)

// LineItem is one entry of a ledger.
type LineItem struct {
	ItemID    string                  `json:"item_id"`
	Name      string                  `json:"name"`
	Category  catalog.Category        `json:"category_name"`
	Size      catalog.Size            `json:"size"`
	Quantity  int                     `json:"quantity"`
	Modifiers []catalog.Customization `json:"modifiers"`
}

// modifierKey is the sorted, de-duplicated set of customization ids.
func (li LineItem) modifierKey() string {
	ids := make([]string, 0, len(li.Modifiers))
	seen := make(map[string]bool, len(li.Modifiers))
	for _, m := range li.Modifiers {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// SameItem reports whether a and b share business identity: item id, name,
// category and the set of customization ids. Size and quantity are ignored.
func SameItem(a, b LineItem) bool {
	return a.ItemID == b.ItemID &&
		a.Name == b.Name &&
		a.Category == b.Category &&
		a.modifierKey() == b.modifierKey()
}

// MergeLineItem returns a copy of a whose quantity is the sum of both.
// The size of a is kept. A sum above MaxQuantity is ErrQuantityLimit.
func MergeLineItem(a, b LineItem) (LineItem, error) {
	if !SameItem(a, b) {
		return LineItem{}, fmt.Errorf("%w: %s vs %s", ErrDifferentItem, a.Name, b.Name)
	}
	if a.Quantity > MaxQuantity || b.Quantity > MaxQuantity-a.Quantity {
		return LineItem{}, fmt.Errorf("%w: %s would hold more than %d", ErrQuantityLimit, a.Name, MaxQuantity)
	}
	out := a
	out.Quantity = a.Quantity + b.Quantity
	out.Modifiers = append([]catalog.Customization(nil), a.Modifiers...)
	return out, nil
}

// Ledger is the order being built for a conversation.
type Ledger struct {
	OrderID string     `json:"order_id"`
	Items   []LineItem `json:"items"`
}

// New returns an empty ledger with a fresh id.
func New() Ledger {
	return Ledger{OrderID: uuid.NewString(), Items: []LineItem{}}
}

// Add returns a new ledger with item appended, or merged into the existing
// line that shares its business identity. The input is not modified. When
// the resulting line would exceed MaxQuantity, l is returned unchanged with
// ErrQuantityLimit.
func Add(l Ledger, item LineItem) (Ledger, error) {
	if item.Quantity > MaxQuantity {
		return l, fmt.Errorf("%w: %s would hold more than %d", ErrQuantityLimit, item.Name, MaxQuantity)
	}
	out := Ledger{OrderID: l.OrderID, Items: make([]LineItem, 0, len(l.Items)+1)}
	merged := false
	for _, existing := range l.Items {
		if !merged && SameItem(existing, item) {
			sum, err := MergeLineItem(existing, item)
			if err != nil {
				return l, err
			}
			out.Items = append(out.Items, sum)
			merged = true
			continue
		}
		out.Items = append(out.Items, existing)
	}
	if !merged {
		item.Modifiers = append([]catalog.Customization(nil), item.Modifiers...)
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// MergeOrder is Add with the line quantity capped at MaxQuantity.
func MergeOrder(l Ledger, item LineItem) Ledger {
	if item.Quantity > MaxQuantity {
		item.Quantity = MaxQuantity
	}
	out, err := Add(l, item)
	if err == nil {
		return out
	}
	for _, existing := range l.Items {
		if SameItem(existing, item) {
			item.Quantity = MaxQuantity - existing.Quantity
			break
		}
	}
	if item.Quantity < 1 {
		return l
	}
	out, _ = Add(l, item)
	return out
}

// LineCount is the number of distinct lines.
func (l Ledger) LineCount() int { return len(l.Items) }

// ItemCount is the total quantity across all lines.
func (l Ledger) ItemCount() int {
	n := 0
	for _, it := range l.Items {
		n += it.Quantity
	}
	return n
}

// Equivalent reports whether two ledgers hold the same multiset of lines,
// ignoring insertion order and ledger id.
func Equivalent(a, b Ledger) bool {
	if len(a.Items) != len(b.Items) {
		return false
	}
	used := make([]bool, len(b.Items))
	for _, x := range a.Items {
		found := false
		for j, y := range b.Items {
			if used[j] || !SameItem(x, y) || x.Quantity != y.Quantity || x.Size != y.Size {
				continue
			}
			used[j] = true
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return true
}

// PromptListing renders the ledger for the system prompt.
func (l Ledger) PromptListing() string {
	if len(l.Items) == 0 {
		return "Empty"
	}
	lines := make([]string, 0, len(l.Items))
	for _, it := range l.Items {
		line := fmt.Sprintf("- %dx %s (%s)", it.Quantity, it.Name, it.Size)
		if len(it.Modifiers) > 0 {
			names := make([]string, 0, len(it.Modifiers))
			for _, m := range it.Modifiers {
				names = append(names, m.Name)
			}
			line += " [" + strings.Join(names, ", ") + "]"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
