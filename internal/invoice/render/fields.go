// Package render turns a finalized invoice into a document.
package render

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/invoice-bot-poc/server/internal/invoice/items"
	"github.com/invoice-bot-poc/server/internal/invoice/model"
	"github.com/invoice-bot-poc/server/internal/invoice/tax"
)

// Field keys understood by renderers.
const (
	FieldInvoiceNo     = "[INVOICE_NO]"
	FieldDate          = "[DATE]"
	FieldGSTNumber     = "[GST_NUMBER]"
	FieldState         = "[STATE]"
	FieldReverseCharge = "[YES/NO]"
	FieldTotalQty      = "[TOTAL_QTY]"
	FieldTotalAmount   = "[TOTAL_AMOUNT]"
	FieldAmountInWords = "[AMOUNT_IN_WORDS]"
	FieldClientName    = "[CLIENT_NAME]"
	FieldClientAddress = "[CLIENT_ADDRESS]"
	FieldTaxRate       = "[TAX_RATE]"

	FieldSubtotal     = "<<SUBTOTAL>>"
	FieldDiscount     = "<<DISCOUNT>>"
	FieldTaxableValue = "<<TAXABLE_VALUE>>"
	FieldCGST         = "<<CGST>>"
	FieldSGST         = "<<SGST>>"
	FieldIGST         = "<<IGST>>"
	FieldTotalTax     = "<<TOTAL_TAX>>"
	FieldTotal        = "<<TOTAL>>"
)

// DateLayout is the invoice date format (dd-mm-yyyy).
const DateLayout = "02-01-2006"

// Invoice is the finalized data a field map is built from.
type Invoice struct {
	Number        string
	Date          time.Time
	ClientName    string
	ClientAddress string
	GSTNumber     string
	State         string
	ReverseCharge string
	Items         []model.LineItem
	Totals        model.Totals
}

// BuildFields returns the flat key/value map for inv.
func BuildFields(inv Invoice) map[string]string {
	t := inv.Totals
	reverse := inv.ReverseCharge
	if reverse == "" {
		reverse = "NO"
	}
	return map[string]string{
		FieldInvoiceNo:     inv.Number,
		FieldDate:          inv.Date.Format(DateLayout),
		FieldGSTNumber:     inv.GSTNumber,
		FieldState:         inv.State,
		FieldReverseCharge: reverse,
		FieldTotalQty:      strconv.Itoa(items.TotalQuantity(inv.Items)),
		FieldTotalAmount:   money(t.GrandTotal),
		FieldAmountInWords: AmountInWords(t.GrandTotal),
		FieldClientName:    inv.ClientName,
		FieldClientAddress: inv.ClientAddress,
		FieldTaxRate:       t.TaxRatePercent.String(),

		FieldSubtotal:     money(t.Subtotal),
		FieldDiscount:     money(t.DiscountAmount),
		FieldTaxableValue: money(t.TaxableValue),
		FieldCGST:         money(t.TaxAmountA),
		FieldSGST:         money(t.TaxAmountB),
		FieldIGST:         money(t.TaxAmountUnified),
		FieldTotalTax:     money(t.TotalTax()),
		FieldTotal:        money(t.GrandTotal),
	}
}

// Row is one printed item line with its own discount and tax breakdown.
type Row struct {
	Item     model.LineItem
	Amount   decimal.Decimal
	Discount decimal.Decimal
	Taxable  decimal.Decimal
	TaxA     decimal.Decimal
	TaxB     decimal.Decimal
	Unified  decimal.Decimal
	NetTotal decimal.Decimal
}

// Rows computes per-row amounts for list under mode and ratePercent. The
// per-item discount is folded in the same way the totals fold it; row figures
// are informational and the invoice totals always come from the tax engine.
func Rows(list []model.LineItem, mode model.TaxMode, ratePercent decimal.Decimal) []Row {
	hundred := decimal.NewFromInt(100)
	effective := tax.EffectiveItems(list)
	rows := make([]Row, 0, len(list))
	for i, it := range list {
		amount := it.Amount().Round(2)
		taxable := effective[i].Amount().Round(2)
		r := Row{
			Item:     it,
			Amount:   amount,
			Discount: amount.Sub(taxable),
			Taxable:  taxable,
			TaxA:     decimal.Zero,
			TaxB:     decimal.Zero,
			Unified:  decimal.Zero,
		}
		switch mode {
		case model.TaxModeSplit:
			half := taxable.Mul(ratePercent.Div(decimal.NewFromInt(2))).Div(hundred).Round(2)
			r.TaxA, r.TaxB = half, half
		case model.TaxModeUnified:
			r.Unified = taxable.Mul(ratePercent).Div(hundred).Round(2)
		}
		r.NetTotal = r.Taxable.Add(r.TaxA).Add(r.TaxB).Add(r.Unified)
		rows = append(rows, r)
	}
	return rows
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
