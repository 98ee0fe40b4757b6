package catalog_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
)

func TestDefaultMenuLoads(t *testing.T) {
	c := catalog.Default()
	assert.Equal(t, "mcd-breakfast-menu", c.MenuID)
	assert.Equal(t, "McDonald's Breakfast Menu", c.MenuName)
	assert.NotEmpty(t, c.Location.Name)
	assert.NotEmpty(t, c.Location.Address)
	require.Greater(t, c.Len(), 0)
	for _, it := range c.Items() {
		assert.NotEmpty(t, it.ID)
		assert.NotEmpty(t, it.Name)
		assert.True(t, it.Category.Valid(), it.ID)
		assert.True(t, it.DefaultSize.Valid(), it.ID)
	}
}

func TestFindByNameCaseInsensitive(t *testing.T) {
	c := catalog.Default()
	it, ok := c.FindByName("  egg mcmuffin ")
	require.True(t, ok)
	assert.Equal(t, "egg-mcmuffin", it.ID)

	_, ok = c.FindByName("Nonexistent Item")
	assert.False(t, ok)
}

func TestSuggestUsesContainmentAndCaps(t *testing.T) {
	c := catalog.Default()
	// "mcmuffin" is contained in several names.
	got := c.Suggest("McMuffin")
	assert.LessOrEqual(t, len(got), 3)
	assert.Contains(t, got, "Egg McMuffin")

	// query contains a name
	got = c.Suggest("a large hotcakes please")
	assert.Contains(t, got, "Hotcakes")

	assert.Empty(t, c.Suggest("Nonexistent Item"))
	assert.Empty(t, c.Suggest(""))
}

func TestAllowedCustomizations(t *testing.T) {
	c := catalog.Default()
	mods := c.AllowedCustomizations("egg-mcmuffin")
	require.NotEmpty(t, mods)
	it, _ := c.FindByID("egg-mcmuffin")
	assert.True(t, it.Allows("extra-cheese"))
	assert.False(t, it.Allows("extra-syrup"))
	assert.Nil(t, c.AllowedCustomizations("missing"))
}

func TestNewRejectsInvalidItems(t *testing.T) {
	loc := catalog.Location{ID: "loc"}
	_, err := catalog.New("m", "Menu", "1", loc, []catalog.Item{
		{ID: "a", Name: "A", Category: catalog.CategoryBreakfast},
		{ID: "a", Name: "A again", Category: catalog.CategoryBreakfast},
	})
	assert.ErrorContains(t, err, "duplicate")

	_, err = catalog.New("m", "Menu", "1", loc, []catalog.Item{
		{ID: "a", Name: "Hash Brown", Category: catalog.CategorySnacksSides},
		{ID: "b", Name: " hash brown", Category: catalog.CategorySnacksSides},
	})
	assert.ErrorContains(t, err, "duplicate menu item name")

	_, err = catalog.New("m", "Menu", "1", loc, []catalog.Item{{ID: "a", Name: "A", Category: "pizza"}})
	assert.ErrorContains(t, err, "unknown category")

	_, err = catalog.New("m", "Menu", "1", loc, []catalog.Item{{ID: "a", Name: "A", Category: catalog.CategoryBreakfast, DefaultSize: "huge"}})
	assert.ErrorContains(t, err, "unknown default size")

	c, err := catalog.New("m", "Menu", "1", loc, []catalog.Item{{ID: "a", Name: "A", Category: catalog.CategoryBreakfast}})
	require.NoError(t, err)
	it, _ := c.FindByID("a")
	assert.Equal(t, catalog.SizeRegular, it.DefaultSize)
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.yaml")
	doc := `metadata:
  menu_id: test-menu
  menu_name: Test Menu
  menu_version: "1"
  location:
    id: loc-1
    name: Test Location
    address: 1 Main St
    city: Springfield
    state: IL
    zip: "62701"
    country: USA
items:
  - item_id: item-a
    name: Item A
    category_name: breakfast
    default_size: regular
    available_modifiers:
      - modifier_id: extra-cheese
        name: Extra Cheese
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	c, err := catalog.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "test-menu", c.MenuID)
	assert.Equal(t, "1 Main St, Springfield, IL 62701", c.Location.FullAddress())
	it, ok := c.FindByName("item a")
	require.True(t, ok)
	assert.Equal(t, []catalog.Customization{{ID: "extra-cheese", Name: "Extra Cheese"}}, it.AvailableModifiers)

	_, err = catalog.LoadFile(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "not found")
}

func TestPromptListingSwitchesToCategorySummary(t *testing.T) {
	small := catalog.Default()
	assert.Contains(t, small.PromptListing(), "- Egg McMuffin [breakfast] (default size: regular)")

	var items []catalog.Item
	for i := 0; i < catalog.FlatListingLimit+1; i++ {
		items = append(items, catalog.Item{ID: fmt.Sprintf("i-%d", i), Name: fmt.Sprintf("Item %d", i), Category: catalog.CategoryDesserts})
	}
	big, err := catalog.New("big", "Big", "1", catalog.Location{}, items)
	require.NoError(t, err)
	listing := big.PromptListing()
	assert.Contains(t, listing, "- desserts: 76 items")
	assert.NotContains(t, listing, "Item 3 [")
	assert.Contains(t, listing, "lookup_menu_item")
}

func TestConcurrentReads(t *testing.T) {
	c := catalog.Default()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.FindByName("Hash Brown")
			_ = c.Suggest("sausage")
			_ = c.AllowedCustomizations("hotcakes")
		}()
	}
	wg.Wait()
}
