package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one row of the invoice being built.
type LineItem struct {
	Serial          int              `json:"serial"`
	Description     string           `json:"description"`
	Quantity        int              `json:"quantity"`
	UnitRate        *decimal.Decimal `json:"unit_rate"` // nil means unpriced
	TaxCode         string           `json:"tax_code,omitempty"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
}

// Priced reports whether the unit rate is known.
func (i LineItem) Priced() bool {
	return i.UnitRate != nil
}

// Amount is quantity × unit rate before any discount. Unpriced items count as zero.
func (i LineItem) Amount() decimal.Decimal {
	if i.UnitRate == nil {
		return decimal.Zero
	}
	return i.UnitRate.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ClientRecord is what the directory remembers about a client between invoices.
type ClientRecord struct {
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	GSTNumber string    `json:"gst_number"`
	TaxMode   TaxMode   `json:"tax_mode"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Totals is the immutable result of a tax computation.
type Totals struct {
	Mode             TaxMode         `json:"mode"`
	TaxRatePercent   decimal.Decimal `json:"tax_rate_percent"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	TaxableValue     decimal.Decimal `json:"taxable_value"`
	TaxAmountA       decimal.Decimal `json:"tax_amount_a"`
	TaxAmountB       decimal.Decimal `json:"tax_amount_b"`
	TaxAmountUnified decimal.Decimal `json:"tax_amount_unified"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
}

// TotalTax is the sum of all tax components.
func (t Totals) TotalTax() decimal.Decimal {
	return t.TaxAmountA.Add(t.TaxAmountB).Add(t.TaxAmountUnified)
}
