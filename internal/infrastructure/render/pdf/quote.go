package pdf

import (
	"strings"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/format"
	"github.com/kirillkom/freelance-docs/internal/core/totals"
)

const acceptanceHeight = 26.0

var quoteColumns = []column{
	{title: "Désignation", width: 82, align: "L"},
	{title: "Qté", width: 18, align: "R"},
	{title: "P.U. HT", width: 30, align: "R"},
	{title: "TVA", width: 18, align: "R"},
	{title: "Total HT", width: 32, align: "R"},
}

func checkQuote(d domain.QuoteDocument) error {
	var problems []string
	problems = requireText(problems, "quoteNumber", d.QuoteNumber)
	problems = requireDate(problems, "dateIssue", d.DateIssue)
	problems = optionalDate(problems, "validityUntil", d.ValidityUntil)
	problems = requireText(problems, "seller.name", d.Seller.Name)
	problems = requireText(problems, "buyer.name", d.Buyer.Name)
	if len(d.Lines) == 0 {
		problems = append(problems, "lines is empty")
	}
	return precondition(domain.KindQuote, problems)
}

func quoteRows(lines []domain.QuoteLine) [][]string {
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		label := strings.TrimSpace(line.Label)
		if desc := strings.TrimSpace(line.Description); desc != "" {
			label += " - " + desc
		}
		rows = append(rows, []string{
			label,
			formatQty(line.Qty),
			format.Money(line.UnitPriceHT),
			format.Percent(line.VATRate),
			format.Money(totals.QuoteLineHT(line)),
		})
	}
	return rows
}

func (r *Renderer) buildQuote(d domain.QuoteDocument, opts domain.RenderOptions) (*canvas, error) {
	if err := checkQuote(d); err != nil {
		return nil, err
	}

	c := newCanvas(r.cfg, "Devis "+d.QuoteNumber)
	footerHeight := c.installFooter(c.footerLines(opts.Footer, d.Seller))
	c.pdf.AddPage()

	y := c.header(headerSpec{
		title:  "DEVIS",
		number: "N° " + d.QuoteNumber,
		dates: [][2]string{
			{"Date", format.DateFr(d.DateIssue)},
			{"Valable jusqu'au", format.DateFr(d.ValidityUntil)},
		},
	}, opts.Logo)
	if title := strings.TrimSpace(d.Title); title != "" {
		y = c.subtitle(y, title)
	}
	y = c.parties(y, sellerBlock(d.Seller), buyerBlock(d.Buyer))

	rows := quoteRows(d.Lines)
	summary := totalsRows(d.Totals, opts.VATNotApplicableNotice)
	notes := c.wrapBody(d.Notes)
	tail := totalsHeight(summary) + paragraphHeight(notes) + acceptanceHeight
	if capacity := c.rowCapacity(y, tail, footerHeight); len(rows) > capacity {
		return nil, capacityError(domain.KindQuote, capacity, len(rows))
	}

	y = c.table(y, quoteColumns, rows)
	y = c.totals(y, summary)
	y = c.paragraph(y, "Notes", notes)
	c.acceptance(y)
	return c, nil
}

// acceptance is the "bon pour accord" box the client signs.
func (c *canvas) acceptance(y float64) {
	y += sectionGap / 2
	x := pageMargin + contentWidth - totalsWidth
	c.pdf.SetXY(x, y)
	c.font("B", 9)
	c.text(x, totalsWidth, 5, "Bon pour accord", "L")
	c.font("", 8)
	c.textColor(colorMuted)
	c.text(x, totalsWidth, 4, "Date, signature et mention « lu et approuvé »", "L")
	c.textColor(colorText)
	c.pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	c.pdf.Rect(x, c.pdf.GetY()+1, totalsWidth, acceptanceHeight-sectionGap/2-10, "D")
}
