package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/invoice-bot-poc/server/internal/invoice/model"
	logx "github.com/invoice-bot-poc/server/pkg/logger"
)

// TemplateTaxInvoice is the only layout PDFRenderer knows.
const TemplateTaxInvoice = "tax-invoice"

// Seller is printed in the document header.
type Seller struct {
	Name    string
	Address string
	GSTIN   string
}

// PDFRenderer draws tax invoices with gofpdf.
type PDFRenderer struct {
	seller Seller
}

func NewPDFRenderer(seller Seller) *PDFRenderer {
	return &PDFRenderer{seller: seller}
}

// Extension implements model.Renderer.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

type column struct {
	title string
	width float64
	align string
}

// Render implements model.Renderer.
func (r *PDFRenderer) Render(ctx context.Context, req model.RenderRequest) ([]byte, error) {
	if req.Template != "" && req.Template != TemplateTaxInvoice {
		return nil, fmt.Errorf("unknown invoice template %q", req.Template)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := req.Fields

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Invoice "+f[FieldInvoiceNo], true)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 8, tr(r.seller.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	if r.seller.Address != "" {
		pdf.MultiCell(0, 4, tr(r.seller.Address), "", "C", false)
	}
	if r.seller.GSTIN != "" {
		pdf.CellFormat(0, 5, "GSTIN: "+tr(r.seller.GSTIN), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, "TAX INVOICE", "TB", 1, "C", false, 0, "")
	pdf.Ln(2)

	// invoice meta and bill-to
	pdf.SetFont("Arial", "", 9)
	meta := [][2]string{
		{"Invoice No", f[FieldInvoiceNo]},
		{"Date", f[FieldDate]},
		{"State", f[FieldState]},
		{"Reverse Charge", f[FieldReverseCharge]},
	}
	for _, kv := range meta {
		pdf.CellFormat(30, 5, kv[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, tr(kv[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, tr(req.ClientName), "", 1, "L", false, 0, "")
	if req.Address != "" {
		pdf.MultiCell(0, 5, tr(req.Address), "", "L", false)
	}
	gst := f[FieldGSTNumber]
	if gst == "" {
		gst = "N/A"
	}
	pdf.CellFormat(0, 5, "GSTIN: "+tr(gst), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// item table
	split := req.Totals.Mode == model.TaxModeSplit
	cols := []column{
		{"Sl", 8, "C"}, {"Description", 52, "L"}, {"HSN", 16, "C"}, {"Qty", 10, "R"},
		{"Rate", 18, "R"}, {"Amount", 20, "R"}, {"Disc", 16, "R"}, {"Taxable", 20, "R"},
	}
	if split {
		cols = append(cols, column{"CGST", 15, "R"}, column{"SGST", 15, "R"})
	} else {
		cols = append(cols, column{"IGST", 30, "R"})
	}
	cols = append(cols, column{"Net", 20, "R"})
	// shrink description so the table fits the printable width
	used := 0.0
	for _, c := range cols {
		used += c.width
	}
	cols[1].width -= used - 190

	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range cols {
		pdf.CellFormat(c.width, 6, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range Rows(req.Items, req.Totals.Mode, req.Totals.TaxRatePercent) {
		rate := "?"
		if row.Item.UnitRate != nil {
			rate = money(*row.Item.UnitRate)
		}
		cells := []string{
			fmt.Sprint(row.Item.Serial),
			tr(truncate(row.Item.Description, 60)),
			tr(row.Item.TaxCode),
			fmt.Sprint(row.Item.Quantity),
			rate,
			money(row.Amount),
			money(row.Discount),
			money(row.Taxable),
		}
		if split {
			cells = append(cells, money(row.TaxA), money(row.TaxB))
		} else {
			cells = append(cells, money(row.Unified))
		}
		cells = append(cells, money(row.NetTotal))
		for i, c := range cols {
			pdf.CellFormat(c.width, 6, cells[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(cols[0].width+cols[1].width+cols[2].width, 6, "Total Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(cols[3].width, 6, f[FieldTotalQty], "1", 1, "R", false, 0, "")
	pdf.Ln(3)

	// totals
	totals := [][2]string{
		{"Subtotal", f[FieldSubtotal]},
		{"Discount", f[FieldDiscount]},
		{"Taxable Value", f[FieldTaxableValue]},
	}
	if split {
		totals = append(totals, [2]string{"CGST", f[FieldCGST]}, [2]string{"SGST", f[FieldSGST]})
	} else {
		totals = append(totals, [2]string{"IGST", f[FieldIGST]})
	}
	totals = append(totals, [2]string{"Total Tax", f[FieldTotalTax]}, [2]string{"Grand Total", f[FieldTotal]})
	for i, kv := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Arial", "B", 10)
		} else {
			pdf.SetFont("Arial", "", 9)
		}
		pdf.CellFormat(140, 6, kv[0], "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, "Rs. "+kv[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	// tax summary
	pdf.SetFont("Arial", "B", 8)
	for _, h := range []string{"Tax Rate %", "Taxable Value", "CGST", "SGST", "IGST", "Total Tax"} {
		pdf.CellFormat(190.0/6, 6, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 8)
	for _, v := range []string{f[FieldTaxRate], f[FieldTaxableValue], f[FieldCGST], f[FieldSGST], f[FieldIGST], f[FieldTotalTax]} {
		pdf.CellFormat(190.0/6, 6, v, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "I", 9)
	pdf.MultiCell(0, 5, "Amount in words: "+tr(f[FieldAmountInWords]), "", "L", false)

	if pdf.Err() {
		logx.Error().Err(pdf.Error()).Str("invoice", f[FieldInvoiceNo]).Msg("pdf generation failed")
		return nil, fmt.Errorf("pdf generation failed: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output failed: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
