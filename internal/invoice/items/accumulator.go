// Package items accumulates the line items of an invoice across turns.
package items

import (
	"github.com/shopspring/decimal"

	"github.com/invoice-bot-poc/server/internal/invoice/model"
)

// Append returns a new slice holding existing followed by newItems, with the
// new items numbered from len(existing)+1. Neither input is modified and
// existing items keep their serials. Identical items are not merged.
func Append(existing, newItems []model.LineItem) []model.LineItem {
	out := make([]model.LineItem, 0, len(existing)+len(newItems))
	out = append(out, existing...)
	next := len(existing) + 1
	for _, it := range newItems {
		it.Serial = next
		if it.Quantity <= 0 {
			it.Quantity = 1
		}
		out = append(out, it)
		next++
	}
	return out
}

// Reset returns an empty item list.
func Reset() []model.LineItem {
	return []model.LineItem{}
}

// Renumber returns a copy of items with serials rebuilt as 1..n.
func Renumber(items []model.LineItem) []model.LineItem {
	out := make([]model.LineItem, len(items))
	for i, it := range items {
		it.Serial = i + 1
		out[i] = it
	}
	return out
}

// ApplyDiscountToLast returns a copy of items where only the final item carries
// pct as its discount. An empty list is returned unchanged.
func ApplyDiscountToLast(list []model.LineItem, pct decimal.Decimal) []model.LineItem {
	out := make([]model.LineItem, len(list))
	copy(out, list)
	if len(out) == 0 {
		return out
	}
	out[len(out)-1].DiscountPercent = pct
	return out
}

// Unpriced returns the indexes of items without a unit rate, in serial order.
func Unpriced(list []model.LineItem) []int {
	var idx []int
	for i, it := range list {
		if !it.Priced() {
			idx = append(idx, i)
		}
	}
	return idx
}

// SetRate returns a copy of items with the rate of the item at index i set.
func SetRate(list []model.LineItem, i int, rate decimal.Decimal) []model.LineItem {
	out := make([]model.LineItem, len(list))
	copy(out, list)
	if i >= 0 && i < len(out) {
		r := rate
		out[i].UnitRate = &r
	}
	return out
}

// TotalQuantity sums the quantities of all items.
func TotalQuantity(list []model.LineItem) int {
	n := 0
	for _, it := range list {
		n += it.Quantity
	}
	return n
}
