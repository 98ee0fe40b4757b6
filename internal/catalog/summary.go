package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// FlatListingLimit is the largest menu rendered item-by-item into the prompt.
// Larger menus are summarized per category and items are found via lookup.
const FlatListingLimit = 75

// PromptListing renders the menu section of the system prompt.
func (c *Catalog) PromptListing() string {
	if len(c.items) <= FlatListingLimit {
		lines := make([]string, 0, len(c.items))
		for _, it := range c.items {
			lines = append(lines, fmt.Sprintf("- %s [%s] (default size: %s)", it.Name, it.Category, it.DefaultSize))
		}
		return strings.Join(lines, "\n")
	}
	counts := map[Category]int{}
	for _, it := range c.items {
		counts[it.Category]++
	}
	cats := make([]string, 0, len(counts))
	for cat := range counts {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)
	lines := make([]string, 0, len(cats)+1)
	for _, cat := range cats {
		lines = append(lines, fmt.Sprintf("- %s: %d items", cat, counts[Category(cat)]))
	}
	lines = append(lines, "The menu is too large to list here. Call lookup_menu_item to find a specific item.")
	return strings.Join(lines, "\n")
}
