package catalog

import (
	"fmt"
	"strings"
)

type Size string

const (
	SizeSnack   Size = "snack"
	SizeSmall   Size = "small"
	SizeMedium  Size = "medium"
	SizeLarge   Size = "large"
	SizeRegular Size = "regular"
)

// Valid reports whether s is one of the known sizes.
func (s Size) Valid() bool {
	switch s {
	case SizeSnack, SizeSmall, SizeMedium, SizeLarge, SizeRegular:
		return true
	}
	return false
}

type Category string

const (
	CategoryBreakfast       Category = "breakfast"
	CategoryBeefPork        Category = "beef-pork"
	CategoryChickenFish     Category = "chicken-fish"
	CategorySalads          Category = "salads"
	CategorySnacksSides     Category = "snacks-sides"
	CategoryDesserts        Category = "desserts"
	CategoryBeverages       Category = "beverages"
	CategoryCoffeeTea       Category = "coffee-tea"
	CategorySmoothiesShakes Category = "smoothies-shakes"
)

var knownCategories = map[Category]bool{
	CategoryBreakfast:       true,
	CategoryBeefPork:        true,
	CategoryChickenFish:     true,
	CategorySalads:          true,
	CategorySnacksSides:     true,
	CategoryDesserts:        true,
	CategoryBeverages:       true,
	CategoryCoffeeTea:       true,
	CategorySmoothiesShakes: true,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return knownCategories[c]
}

// Customization is a selectable modification of an item. Two customizations
// are the same customization when their ids match.
type Customization struct {
	ID   string `json:"modifier_id" yaml:"modifier_id"`
	Name string `json:"name" yaml:"name"`
}

type Item struct {
	ID                 string          `json:"item_id" yaml:"item_id"`
	Name               string          `json:"name" yaml:"name"`
	Category           Category        `json:"category_name" yaml:"category_name"`
	DefaultSize        Size            `json:"default_size" yaml:"default_size"`
	AvailableModifiers []Customization `json:"available_modifiers" yaml:"available_modifiers"`
}

// Allows reports whether the customization id is selectable for the item.
func (it Item) Allows(customizationID string) bool {
	for _, m := range it.AvailableModifiers {
		if m.ID == customizationID {
			return true
		}
	}
	return false
}

type Location struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	City    string `json:"city" yaml:"city"`
	State   string `json:"state" yaml:"state"`
	Zip     string `json:"zip" yaml:"zip"`
	Country string `json:"country" yaml:"country"`
}

// FullAddress renders the street address line used in prompts.
func (l Location) FullAddress() string {
	return fmt.Sprintf("%s, %s, %s %s", l.Address, l.City, l.State, l.Zip)
}

// Catalog is the read-only menu for one location. It is built once by New
// and never mutated, so concurrent reads need no locking.
type Catalog struct {
	MenuID   string
	MenuName string
	Version  string
	Location Location

	items  []Item
	byID   map[string]int
	byName map[string]int
}

// New indexes items and validates them.
func New(menuID, menuName, version string, loc Location, items []Item) (*Catalog, error) {
	c := &Catalog{
		MenuID:   menuID,
		MenuName: menuName,
		Version:  version,
		Location: loc,
		items:    make([]Item, len(items)),
		byID:     make(map[string]int, len(items)),
		byName:   make(map[string]int, len(items)),
	}
	copy(c.items, items)
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) index() error {
	if c.MenuID == "" {
		return fmt.Errorf("menu.metadata.menu_id is required")
	}
	for i, it := range c.items {
		if it.ID == "" {
			return fmt.Errorf("menu item %d has empty item_id", i)
		}
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("menu item %s has empty name", it.ID)
		}
		if !it.Category.Valid() {
			return fmt.Errorf("menu item %s has unknown category %q", it.ID, it.Category)
		}
		if it.DefaultSize == "" {
			c.items[i].DefaultSize = SizeRegular
		} else if !it.DefaultSize.Valid() {
			return fmt.Errorf("menu item %s has unknown default size %q", it.ID, it.DefaultSize)
		}
		if _, dup := c.byID[it.ID]; dup {
			return fmt.Errorf("duplicate menu item id %s", it.ID)
		}
		key := strings.ToLower(strings.TrimSpace(it.Name))
		if prev, dup := c.byName[key]; dup {
			return fmt.Errorf("duplicate menu item name %q (%s and %s)", it.Name, c.items[prev].ID, it.ID)
		}
		c.byID[it.ID] = i
		c.byName[key] = i
	}
	return nil
}

// Items returns a copy of the menu items in file order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Len() int { return len(c.items) }

// FindByName matches the display name case-insensitively.
func (c *Catalog) FindByName(name string) (Item, bool) {
	idx, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

func (c *Catalog) FindByID(id string) (Item, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[idx], true
}

// AllowedCustomizations returns the customizations selectable for an item,
// or nil when the item is unknown.
func (c *Catalog) AllowedCustomizations(itemID string) []Customization {
	it, ok := c.FindByID(itemID)
	if !ok {
		return nil
	}
	out := make([]Customization, len(it.AvailableModifiers))
	copy(out, it.AvailableModifiers)
	return out
}

const maxSuggestions = 3

// Suggest returns up to three item names where either the query contains the
// name or the name contains the query, ignoring case.
func (c *Catalog) Suggest(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []string
	for _, it := range c.items {
		n := strings.ToLower(it.Name)
		if strings.Contains(n, q) || strings.Contains(q, n) {
			out = append(out, it.Name)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}
