package items

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoice-bot-poc/server/internal/invoice/model"
)

func item(desc string, qty int) model.LineItem {
	return model.LineItem{Description: desc, Quantity: qty}
}

func serials(list []model.LineItem) []int {
	out := make([]int, len(list))
	for i, it := range list {
		out[i] = it.Serial
	}
	return out
}

func TestAppend_NumbersNewItemsAfterExisting(t *testing.T) {
	first := Append(nil, []model.LineItem{item("pen", 3), item("ink", 1)})
	require.Equal(t, []int{1, 2}, serials(first))

	second := Append(first, []model.LineItem{{Serial: 99, Description: "pad", Quantity: 2}})
	assert.Equal(t, []int{1, 2, 3}, serials(second))
	assert.Equal(t, []int{1, 2}, serials(first), "existing slice must not change")
}

func TestAppend_DoesNotMutateInputs(t *testing.T) {
	newItems := []model.LineItem{{Serial: 7, Description: "pen", Quantity: 0}}
	got := Append(nil, newItems)

	assert.Equal(t, 7, newItems[0].Serial)
	assert.Equal(t, 0, newItems[0].Quantity)
	assert.Equal(t, 1, got[0].Serial)
	assert.Equal(t, 1, got[0].Quantity, "missing quantity defaults to 1")
}

func TestAppend_KeepsDuplicates(t *testing.T) {
	got := Append([]model.LineItem{{Serial: 1, Description: "pen", Quantity: 1}}, []model.LineItem{item("pen", 1)})
	require.Len(t, got, 2)
	assert.Equal(t, got[0].Description, got[1].Description)
	assert.Equal(t, []int{1, 2}, serials(got))
}

func TestAppend_ContiguousAfterManyBatches(t *testing.T) {
	var list []model.LineItem
	for batch := 1; batch <= 5; batch++ {
		var next []model.LineItem
		for i := 0; i < batch; i++ {
			next = append(next, item("x", 1))
		}
		before := serials(list)
		list = Append(list, next)
		assert.Equal(t, before, serials(list)[:len(before)])
	}
	for i, it := range list {
		assert.Equal(t, i+1, it.Serial)
	}
}

func TestResetAndRenumber(t *testing.T) {
	assert.Empty(t, Reset())

	got := Renumber([]model.LineItem{{Serial: 4}, {Serial: 9}})
	assert.Equal(t, []int{1, 2}, serials(got))
}

func TestApplyDiscountToLast(t *testing.T) {
	list := Append(nil, []model.LineItem{item("a", 1), item("b", 1), item("c", 1)})
	got := ApplyDiscountToLast(list, decimal.NewFromInt(10))

	assert.True(t, got[0].DiscountPercent.IsZero())
	assert.True(t, got[1].DiscountPercent.IsZero())
	assert.True(t, got[2].DiscountPercent.Equal(decimal.NewFromInt(10)))
	assert.True(t, list[2].DiscountPercent.IsZero(), "input untouched")

	assert.Empty(t, ApplyDiscountToLast(nil, decimal.NewFromInt(5)))
}

func TestUnpricedAndSetRate(t *testing.T) {
	r := decimal.NewFromInt(10)
	list := []model.LineItem{{Serial: 1, UnitRate: &r}, {Serial: 2}, {Serial: 3}}
	require.Equal(t, []int{1, 2}, Unpriced(list))

	got := SetRate(list, 1, decimal.NewFromInt(25))
	assert.Equal(t, []int{2}, Unpriced(got))
	assert.Equal(t, []int{1, 2}, Unpriced(list))
	assert.Equal(t, 3, TotalQuantity([]model.LineItem{{Quantity: 1}, {Quantity: 2}}))
}
