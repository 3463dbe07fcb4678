package dialogue

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/invoice-bot-poc/server/internal/invoice/model"
)

const (
	msgWelcome        = "👋 Hi! Let's create an invoice.\nPlease tell me the *client name*."
	msgTypeStart      = "⚠️ Please type 'start' to begin a new invoice."
	msgBusy           = "⏳ I'm still working on your previous message, please try again in a moment."
	msgAskName        = "Please tell me the *client name*."
	msgAskAddress     = "Please enter the client address:"
	msgAskGST         = "✅ Address saved.\nPlease enter the client's *GST number* (or type *skip*):"
	msgAskTaxMode     = "Is this an intra-state supply? Reply *yes* for CGST + SGST or *no* for IGST."
	msgAskInvoiceNo   = "Please enter the *invoice number* (or type *auto* to generate one):"
	msgAskItems       = "Now tell me the *items* (e.g. '3 pens ₹10 each and 2 notebooks ₹50 each')."
	msgAskMoreItems   = "Please describe the next items:"
	msgNoItems        = "❌ Sorry, I couldn’t detect any valid items. Try describing again (e.g. '2 shirts ₹500 each')."
	msgAskAddMore     = "Do you want to add more items? (yes/no)"
	msgAddMoreAgain   = "Please reply *yes* to add more items or *no* to review the invoice."
	msgSavedAgain     = "Please reply *yes* to use the saved details or *change* to enter a new address."
	msgEdit           = "✏️ Okay, let's re-enter the items. Please describe them again:"
	msgCancelled      = "🗑️ Invoice cancelled. Type 'start' to begin a new one."
	msgFinalAgain     = "Please reply *confirm* to generate the invoice, *edit* to re-enter items or *cancel* to discard it."
	msgAddressMissing = "The address can't be empty. " + msgAskAddress
)

func msgSavedClient(s *model.Session) string {
	gst := s.GSTNumber
	if gst == "" {
		gst = "N/A"
	}
	return fmt.Sprintf("📍 Found saved client: *%s*\nAddress: %s\nGST: %s\nTax: %s\n\nReply *yes* to use these details or *change* to enter a new address.",
		s.ClientName, s.ClientAddress, gst, taxModeLabel(s.TaxMode))
}

func msgFoundItems(list []model.LineItem) string {
	return fmt.Sprintf("📦 I found these items:\n%s\n\nAny discount %% on item %d (%s)? Enter a number, or 0 for none.",
		summarize(list), list[len(list)-1].Serial, list[len(list)-1].Description)
}

func msgAskRate(it model.LineItem) string {
	return fmt.Sprintf("💰 What is the rate of *%s* (item %d)?", it.Description, it.Serial)
}

func msgRateAgain(it model.LineItem) string {
	return fmt.Sprintf("Please enter the rate of *%s* as a number (e.g. 120 or 99.50).", it.Description)
}

func msgReview(s *model.Session, preview decimal.Decimal) string {
	return fmt.Sprintf("🧾 Invoice *%s* for *%s*\n%s\n\nPreview total (before tax): ₹%s\n\n%s",
		s.InvoiceNumber, s.ClientName, summarize(s.PendingItems), preview.StringFixed(2), msgFinalAgain)
}

func msgGenerated(d *model.Delivery, words string) string {
	return fmt.Sprintf("✅ Invoice generated successfully!\n🧾 Invoice No: %s\nTotal: ₹%s (%s)\nDownload here: %s",
		d.InvoiceNumber, d.Totals.GrandTotal.StringFixed(2), words, d.DownloadRef)
}

// summarize lists items as "n. description – qty × ₹rate (HSN: code)".
func summarize(list []model.LineItem) string {
	lines := make([]string, 0, len(list))
	for _, it := range list {
		rate := "?"
		if it.UnitRate != nil {
			rate = it.UnitRate.StringFixed(2)
		}
		code := it.TaxCode
		if code == "" {
			code = "N/A"
		}
		line := fmt.Sprintf("%d. %s – %d × ₹%s (HSN: %s)", it.Serial, it.Description, it.Quantity, rate, code)
		if it.DiscountPercent.IsPositive() {
			line += fmt.Sprintf(" less %s%%", it.DiscountPercent.String())
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func taxModeLabel(mode model.TaxMode) string {
	switch mode {
	case model.TaxModeSplit:
		return "CGST + SGST"
	case model.TaxModeUnified:
		return "IGST"
	}
	return "not set"
}
