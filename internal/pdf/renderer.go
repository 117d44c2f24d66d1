package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/noah-isme/backend-faktur/internal/billing"
	"github.com/noah-isme/backend-faktur/internal/document"
)

// Company identifies the issuing business on rendered documents.
type Company struct {
	Name    string
	Address string
	TaxID   string
	Email   string
}

// Renderer produces printable A4 PDFs for quotations, invoices and credit
// notes. Amounts and dates are rendered in the billing locale.
type Renderer struct {
	Company Company
}

// Render returns the document as PDF bytes.
func (r Renderer) Render(doc document.Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(titleFor(doc.Kind)+" "+displayNumber(doc), false)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	r.header(pdf, tr, doc)
	r.billTo(pdf, tr, doc)
	r.lineTable(pdf, tr, doc)
	r.totalsBlock(pdf, doc)
	r.vatSummary(pdf, doc)
	r.notesBlock(pdf, tr, doc)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render document %s: %w", doc.ID, err)
	}
	return buf.Bytes(), nil
}

func titleFor(kind document.Kind) string {
	switch kind {
	case document.KindQuotation:
		return "PENAWARAN"
	case document.KindCreditNote:
		return "NOTA KREDIT"
	default:
		return "FAKTUR"
	}
}

func displayNumber(doc document.Document) string {
	if doc.Number != "" {
		return doc.Number
	}
	return "DRAF"
}

func (r Renderer) header(pdf *gofpdf.Fpdf, tr func(string) string, doc document.Document) {
	startY := pdf.GetY()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(110, 7, tr(r.Company.Name))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	if r.Company.Address != "" {
		pdf.MultiCell(110, 4.5, tr(r.Company.Address), "", "L", false)
	}
	if r.Company.TaxID != "" {
		pdf.Cell(110, 4.5, tr("NPWP: "+r.Company.TaxID))
		pdf.Ln(4.5)
	}
	if r.Company.Email != "" {
		pdf.Cell(110, 4.5, tr(r.Company.Email))
		pdf.Ln(4.5)
	}
	leftY := pdf.GetY()

	pdf.SetXY(125, startY)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(70, 8, titleFor(doc.Kind), "", 2, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(70, 5, displayNumber(doc), "", 2, "R", false, 0, "")
	if doc.IssuedAt != nil {
		pdf.CellFormat(70, 5, "Tanggal: "+billing.FormatDate(*doc.IssuedAt), "", 2, "R", false, 0, "")
	}
	if doc.DueDate != nil {
		pdf.CellFormat(70, 5, "Jatuh tempo: "+billing.FormatDate(*doc.DueDate), "", 2, "R", false, 0, "")
	}
	switch doc.Status {
	case document.StatusPaid:
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(22, 130, 53)
		pdf.CellFormat(70, 6, "LUNAS", "", 2, "R", false, 0, "")
	case document.StatusVoid:
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(190, 32, 32)
		pdf.CellFormat(70, 6, "DIBATALKAN", "", 2, "R", false, 0, "")
	}
	rightY := pdf.GetY()
	pdf.SetTextColor(0, 0, 0)

	y := leftY
	if rightY > y {
		y = rightY
	}
	pdf.SetY(y + 6)
}

func (r Renderer) billTo(pdf *gofpdf.Fpdf, tr func(string) string, doc document.Document) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(40, 5, "Kepada:")
	pdf.Ln(5)
	pdf.SetFont("Helvetica", "", 10)
	name := doc.CustomerName
	if name == "" {
		name = doc.CustomerID
	}
	pdf.Cell(110, 5, tr(name))
	pdf.Ln(5)
	if doc.CustomerEmail != "" {
		pdf.SetTextColor(90, 90, 90)
		pdf.Cell(110, 5, tr(doc.CustomerEmail))
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(5)
	}
	pdf.Ln(4)
}

func (r Renderer) lineTable(pdf *gofpdf.Fpdf, tr func(string) string, doc document.Document) {
	cols := []struct {
		label string
		width float64
		align string
	}{
		{"No", 10, "C"},
		{"Deskripsi", 72, "L"},
		{"Qty", 18, "R"},
		{"Harga Satuan", 30, "R"},
		{"PPN", 15, "R"},
		{"Jumlah", 35, "R"},
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for _, c := range cols {
		pdf.CellFormat(c.width, 7, c.label, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetFillColor(248, 248, 248)
	for i, line := range doc.Lines {
		fill := i%2 == 1
		pdf.CellFormat(10, 6, strconv.Itoa(i+1), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(72, 6, tr(line.Description), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(18, 6, formatQuantity(line.Quantity), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(30, 6, billing.FormatMoney(line.UnitPrice), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(15, 6, billing.FormatPercent(line.VatRate), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(35, 6, billing.FormatMoney(line.Net), "1", 0, "R", fill, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(3)
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

type totalRow struct {
	label string
	value string
	bold  bool
}

func (r Renderer) totalsBlock(pdf *gofpdf.Fpdf, doc document.Document) {
	rows := []totalRow{
		{label: "Subtotal", value: billing.FormatMoney(doc.Subtotal)},
	}
	if doc.DiscountAmount > 0 {
		rows = append(rows, totalRow{label: "Diskon", value: "-" + billing.FormatMoney(doc.DiscountAmount)})
	}
	rows = append(rows,
		totalRow{label: "DPP", value: billing.FormatMoney(doc.TaxableAmount)},
		totalRow{label: "PPN", value: billing.FormatMoney(doc.VatAmount)},
		totalRow{label: "Total", value: billing.FormatMoney(doc.Total), bold: true},
	)
	if doc.AmountPaid > 0 {
		rows = append(rows,
			totalRow{label: "Terbayar", value: billing.FormatMoney(doc.AmountPaid)},
			totalRow{label: "Sisa Tagihan", value: billing.FormatMoney(doc.BalanceDue), bold: true},
		)
	}
	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.SetX(110)
		pdf.CellFormat(45, 6, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, row.value, "", 1, "R", false, 0, "")
	}
	pdf.Ln(3)
}

func (r Renderer) vatSummary(pdf *gofpdf.Fpdf, doc document.Document) {
	if len(doc.VatBreakdown) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.Cell(60, 5, "Rincian PPN")
	pdf.Ln(6)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(20, 6, "Tarif", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 6, "DPP", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 6, "PPN", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	var net, vat float64
	for _, row := range doc.VatBreakdown {
		pdf.CellFormat(20, 6, row.DisplayRate, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, billing.FormatMoney(row.NetAmount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, billing.FormatMoney(row.VatAmount), "1", 1, "R", false, 0, "")
		net += row.NetAmount
		vat += row.VatAmount
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(20, 6, "Total", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, billing.FormatMoney(net), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, billing.FormatMoney(vat), "1", 1, "R", false, 0, "")
	pdf.Ln(4)
}

func (r Renderer) notesBlock(pdf *gofpdf.Fpdf, tr func(string) string, doc document.Document) {
	if strings.TrimSpace(doc.Notes) == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.Cell(40, 5, "Catatan:")
	pdf.Ln(5)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(70, 70, 70)
	pdf.MultiCell(180, 4.5, tr(doc.Notes), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
}
