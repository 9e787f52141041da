package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/totals"
)

const (
	euroFormat    = `#,##0.00\ "€"`
	percentFormat = `0.00" %"`
)

// Exporter writes quote and invoice line tables as a single-sheet workbook.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

type sheetSpec struct {
	name    string
	title   string
	headers []string
	widths  []float64
	// money columns, 1-based
	money   []int
	percent []int
	rows    [][]any
	totals  domain.Totals
}

func (e *Exporter) Export(doc domain.Document) ([]byte, error) {
	var sheet sheetSpec
	switch d := doc.(type) {
	case domain.QuoteDocument:
		sheet = quoteSheet(d)
	case *domain.QuoteDocument:
		sheet = quoteSheet(*d)
	case domain.InvoiceDocument:
		sheet = invoiceSheet(d)
	case *domain.InvoiceDocument:
		sheet = invoiceSheet(*d)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "export", fmt.Errorf("%s has no line items", doc.Kind()))
	}
	return write(sheet)
}

func quoteSheet(d domain.QuoteDocument) sheetSpec {
	sheet := sheetSpec{
		name:    "Devis",
		title:   "Devis " + d.QuoteNumber,
		headers: []string{"Désignation", "Description", "Quantité", "P.U. HT", "TVA", "Total HT", "Montant TVA"},
		widths:  []float64{32, 48, 10, 14, 9, 14, 14},
		money:   []int{4, 6, 7},
		percent: []int{5},
		totals:  d.Totals,
	}
	for _, line := range d.Lines {
		sheet.rows = append(sheet.rows, []any{
			line.Label,
			line.Description,
			line.Qty,
			line.UnitPriceHT,
			line.VATRate,
			totals.QuoteLineHT(line),
			totals.QuoteLineVAT(line),
		})
	}
	if sheet.totals.IsZero() {
		sheet.totals = totals.ComputeQuote(d.Lines)
	}
	return sheet
}

func invoiceSheet(d domain.InvoiceDocument) sheetSpec {
	sheet := sheetSpec{
		name:    "Facture",
		title:   "Facture " + d.InvoiceNumber,
		headers: []string{"Description", "Quantité", "Prix unitaire", "Total"},
		widths:  []float64{60, 10, 14, 14},
		money:   []int{3, 4},
		totals:  d.Totals,
	}
	for _, line := range d.Lines {
		sheet.rows = append(sheet.rows, []any{
			line.Description,
			line.Qty,
			line.UnitPrice,
			totals.InvoiceLineTotal(line),
		})
	}
	if sheet.totals.IsZero() {
		sheet.totals = totals.ComputeInvoice(d.Lines)
	}
	return sheet
}

func write(sheet sheetSpec) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet.name); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	f.SetDocProps(&excelize.DocProperties{Title: sheet.title, Creator: "freelance-docs"})

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: ptr(euroFormat)})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}
	boldMoney, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: ptr(euroFormat)})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}
	percent, err := f.NewStyle(&excelize.Style{CustomNumFmt: ptr(percentFormat)})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	set := func(col, row int, value any, style int) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet.name, cell, value)
		if style != 0 {
			_ = f.SetCellStyle(sheet.name, cell, cell, style)
		}
	}

	for i, h := range sheet.headers {
		set(i+1, 1, h, bold)
		colName, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet.name, colName, colName, sheet.widths[i])
	}
	if err := f.SetPanes(sheet.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("xlsx panes: %w", err)
	}

	row := 2
	for _, values := range sheet.rows {
		for i, v := range values {
			style := 0
			switch {
			case contains(sheet.money, i+1):
				style = money
			case contains(sheet.percent, i+1):
				style = percent
			}
			set(i+1, row, v, style)
		}
		row++
	}

	row++
	labelCol := len(sheet.headers) - 1
	valueCol := len(sheet.headers)
	for _, t := range []struct {
		label string
		value float64
	}{
		{"Total HT", sheet.totals.TotalHT},
		{"TVA", sheet.totals.TotalTVA},
		{"Total TTC", sheet.totals.TotalTTC},
	} {
		set(labelCol, row, t.label, bold)
		set(valueCol, row, t.value, boldMoney)
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func contains(cols []int, col int) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

func ptr(s string) *string { return &s }
