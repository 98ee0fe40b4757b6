package order_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/catalog"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/order"
)

func itemA(qty int, mods ...catalog.Customization) order.LineItem {
	return order.LineItem{
		ItemID:    "item-a",
		Name:      "Item A",
		Category:  catalog.CategoryBreakfast,
		Size:      catalog.SizeRegular,
		Quantity:  qty,
		Modifiers: mods,
	}
}

var (
	cheese = catalog.Customization{ID: "extra-cheese", Name: "Extra Cheese"}
	bacon  = catalog.Customization{ID: "extra-bacon", Name: "Extra Bacon"}
)

func TestSameItemIgnoresSizeQuantityAndModifierOrder(t *testing.T) {
	a := itemA(1, cheese, bacon)
	b := itemA(5, bacon, cheese)
	b.Size = catalog.SizeLarge
	assert.True(t, order.SameItem(a, b))

	c := itemA(1, cheese)
	assert.False(t, order.SameItem(a, c))

	d := itemA(1)
	d.Name = "Item A Deluxe"
	assert.False(t, order.SameItem(itemA(1), d))
}

func TestMergeLineItem(t *testing.T) {
	sum, err := order.MergeLineItem(itemA(1), itemA(2))
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Quantity)

	other := itemA(1)
	other.ItemID = "item-b"
	_, err = order.MergeLineItem(itemA(1), other)
	assert.ErrorIs(t, err, order.ErrDifferentItem)
}

func TestMergeLineItemRejectsQuantityOverLimit(t *testing.T) {
	_, err := order.MergeLineItem(itemA(order.MaxQuantity), itemA(1))
	assert.ErrorIs(t, err, order.ErrQuantityLimit)

	// a sum that would wrap around int must not come back negative
	_, err = order.MergeLineItem(itemA(math.MaxInt), itemA(math.MaxInt))
	assert.ErrorIs(t, err, order.ErrQuantityLimit)

	sum, err := order.MergeLineItem(itemA(order.MaxQuantity-1), itemA(1))
	require.NoError(t, err)
	assert.Equal(t, order.MaxQuantity, sum.Quantity)
}

func TestAddLeavesLedgerUnchangedOverLimit(t *testing.T) {
	l, err := order.Add(order.New(), itemA(order.MaxQuantity-2))
	require.NoError(t, err)

	next, err := order.Add(l, itemA(3))
	assert.ErrorIs(t, err, order.ErrQuantityLimit)
	assert.Equal(t, l, next)

	_, err = order.Add(order.New(), itemA(order.MaxQuantity+1))
	assert.ErrorIs(t, err, order.ErrQuantityLimit)
}

func TestMergeOrderCapsQuantity(t *testing.T) {
	l := order.MergeOrder(order.New(), itemA(math.MaxInt))
	l = order.MergeOrder(l, itemA(math.MaxInt))
	require.Equal(t, 1, l.LineCount())
	assert.Equal(t, order.MaxQuantity, l.Items[0].Quantity)
}

func TestMergeOrderSimpleAdd(t *testing.T) {
	l := order.MergeOrder(order.New(), itemA(1))
	want := []order.LineItem{itemA(1)}
	if diff := cmp.Diff(want, l.Items); diff != "" {
		t.Fatalf("ledger mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeOrderDuplicateMerges(t *testing.T) {
	l := order.New()
	l = order.MergeOrder(l, itemA(1))
	l = order.MergeOrder(l, itemA(2))
	require.Len(t, l.Items, 1)
	assert.Equal(t, 3, l.Items[0].Quantity)
	assert.Equal(t, 3, l.ItemCount())
}

func TestMergeOrderDoesNotMutateInput(t *testing.T) {
	base := order.MergeOrder(order.New(), itemA(1))
	next := order.MergeOrder(base, itemA(4))
	assert.Equal(t, 1, base.Items[0].Quantity)
	assert.Equal(t, 5, next.Items[0].Quantity)
	assert.Equal(t, base.OrderID, next.OrderID)
}

func TestMergeOrderKeepsDistinctIdentities(t *testing.T) {
	l := order.New()
	l = order.MergeOrder(l, itemA(1))
	l = order.MergeOrder(l, itemA(1, cheese))
	partial := itemA(1)
	partial.ItemID = "item-ab"
	partial.Name = "Item AB"
	l = order.MergeOrder(l, partial)
	assert.Equal(t, 3, l.LineCount())
}

func TestEquivalentIgnoresOrder(t *testing.T) {
	b := itemA(2)
	b.ItemID, b.Name = "item-b", "Item B"
	x := order.MergeOrder(order.MergeOrder(order.New(), itemA(1)), b)
	y := order.MergeOrder(order.MergeOrder(order.New(), b), itemA(1))
	assert.True(t, order.Equivalent(x, y))
	assert.False(t, order.Equivalent(x, order.MergeOrder(y, itemA(1))))
}

func TestPromptListing(t *testing.T) {
	assert.Equal(t, "Empty", order.New().PromptListing())
	l := order.MergeOrder(order.New(), itemA(2, cheese))
	assert.Equal(t, "- 2x Item A (regular) [Extra Cheese]", l.PromptListing())
}
