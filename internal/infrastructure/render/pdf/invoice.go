package pdf

import (
	"strings"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/format"
	"github.com/kirillkom/freelance-docs/internal/core/totals"
)

const placeholderCell = "-"

var invoiceColumns = []column{
	{title: "Description", width: 95, align: "L"},
	{title: "Qté", width: 20, align: "R"},
	{title: "Prix unitaire", width: 30, align: "R"},
	{title: "Total", width: 35, align: "R"},
}

func checkInvoice(d domain.InvoiceDocument) error {
	var problems []string
	problems = requireText(problems, "invoiceNumber", d.InvoiceNumber)
	problems = requireDate(problems, "dateIssue", d.DateIssue)
	problems = optionalDate(problems, "dueDate", d.DueDate)
	problems = requireText(problems, "seller.name", d.Seller.Name)
	problems = requireText(problems, "buyer.name", d.Buyer.Name)
	if len(d.Lines) == 0 {
		problems = append(problems, "lines is empty")
	}
	return precondition(domain.KindInvoice, problems)
}

// invoiceRows formats the lines and, when padding is on, fills short tables
// with placeholder rows up to MinRows and cuts long ones at MaxRows.
func invoiceRows(lines []domain.InvoiceLine, padding domain.RowPadding) [][]string {
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, []string{
			strings.TrimSpace(line.Description),
			formatQty(line.Qty),
			format.Money(line.UnitPrice),
			format.Money(totals.InvoiceLineTotal(line)),
		})
	}
	if !padding.Enabled {
		return rows
	}
	if padding.MaxRows > 0 && len(rows) > padding.MaxRows {
		rows = rows[:padding.MaxRows]
	}
	for len(rows) < padding.MinRows {
		rows = append(rows, []string{placeholderCell, "1", format.Money(0), format.Money(0)})
	}
	return rows
}

func (r *Renderer) buildInvoice(d domain.InvoiceDocument, opts domain.RenderOptions) (*canvas, error) {
	if err := checkInvoice(d); err != nil {
		return nil, err
	}

	c := newCanvas(r.cfg, "Facture "+d.InvoiceNumber)
	footerHeight := c.installFooter(c.footerLines(opts.Footer, d.Seller))
	c.pdf.AddPage()

	y := c.header(headerSpec{
		title:  "FACTURE",
		number: "N° " + d.InvoiceNumber,
		dates: [][2]string{
			{"Date", format.DateFr(d.DateIssue)},
			{"Échéance", format.DateFr(d.DueDate)},
		},
	}, opts.Logo)
	y = c.parties(y, sellerBlock(d.Seller), buyerBlock(d.Buyer))

	rows := invoiceRows(d.Lines, opts.InvoicePadding)
	summary := totalsRows(d.Totals, opts.VATNotApplicableNotice)
	if capacity := c.rowCapacity(y, totalsHeight(summary), footerHeight); len(rows) > capacity {
		return nil, capacityError(domain.KindInvoice, capacity, len(rows))
	}

	y = c.table(y, invoiceColumns, rows)
	c.totals(y, summary)
	return c, nil
}
