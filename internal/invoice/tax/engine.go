// Package tax computes invoice totals under split or unified tax.
package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	errx "github.com/invoice-bot-poc/server/internal/core/error"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
)

var hundred = decimal.NewFromInt(100)

// ComputeTotals returns subtotal, discount, taxable value, tax components and
// grand total for items. Every figure is rounded half-up to 2 places where it
// is computed; rounded values feed the next step.
//
// Per-item discounts are not applied here; see EffectiveItems.
func ComputeTotals(items []model.LineItem, invoiceDiscountPercent decimal.Decimal, mode model.TaxMode, taxRatePercent decimal.Decimal) (model.Totals, error) {
	if mode != model.TaxModeSplit && mode != model.TaxModeUnified {
		return model.Totals{}, fmt.Errorf("%w: unknown tax mode %q", errx.ErrInvalidItem, mode)
	}

	subtotal := decimal.Zero
	for _, it := range items {
		if it.UnitRate == nil {
			return model.Totals{}, fmt.Errorf("%w: item %d (%s): %w", errx.ErrInvalidItem, it.Serial, it.Description, errx.ErrMissingUnitRate)
		}
		if it.UnitRate.IsNegative() || it.Quantity < 0 {
			return model.Totals{}, fmt.Errorf("%w: item %d (%s) has a negative rate or quantity", errx.ErrInvalidItem, it.Serial, it.Description)
		}
		subtotal = subtotal.Add(it.Amount())
	}
	subtotal = round(subtotal)

	discount := decimal.Zero
	if invoiceDiscountPercent.IsPositive() {
		discount = round(subtotal.Mul(invoiceDiscountPercent).Div(hundred))
	}
	taxable := round(subtotal.Sub(discount))

	t := model.Totals{
		Mode:             mode,
		TaxRatePercent:   taxRatePercent,
		Subtotal:         subtotal,
		DiscountAmount:   discount,
		TaxableValue:     taxable,
		TaxAmountA:       decimal.Zero,
		TaxAmountB:       decimal.Zero,
		TaxAmountUnified: decimal.Zero,
	}

	switch mode {
	case model.TaxModeSplit:
		half := taxRatePercent.Div(decimal.NewFromInt(2))
		component := round(taxable.Mul(half).Div(hundred))
		t.TaxAmountA = component
		t.TaxAmountB = component
	case model.TaxModeUnified:
		t.TaxAmountUnified = round(taxable.Mul(taxRatePercent).Div(hundred))
	}

	t.GrandTotal = round(taxable.Add(t.TotalTax()))
	return t, nil
}

// EffectiveItems returns copies of items with each per-item discount folded
// into the unit rate. Unpriced items stay unpriced.
func EffectiveItems(items []model.LineItem) []model.LineItem {
	out := make([]model.LineItem, len(items))
	for i, it := range items {
		out[i] = it
		if it.UnitRate == nil || !it.DiscountPercent.IsPositive() {
			continue
		}
		factor := hundred.Sub(it.DiscountPercent).Div(hundred)
		if factor.IsNegative() {
			factor = decimal.Zero
		}
		rate := it.UnitRate.Mul(factor)
		out[i].UnitRate = &rate
		out[i].DiscountPercent = decimal.Zero
	}
	return out
}

// Preview sums quantity × effective rate of the priced items, ignoring tax.
func Preview(items []model.LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range EffectiveItems(items) {
		sum = sum.Add(it.Amount())
	}
	return round(sum)
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
