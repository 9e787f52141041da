package pdf

import (
	"strings"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/format"
)

const signatureHeight = 32.0

func checkContract(d domain.ContractDocument) error {
	var problems []string
	problems = requireText(problems, "contractText", d.ContractText)
	problems = optionalDate(problems, "date", d.Date)
	return precondition(domain.KindContract, problems)
}

// buildContract is the one template allowed to flow onto further pages.
func (r *Renderer) buildContract(d domain.ContractDocument, opts domain.RenderOptions) (*canvas, error) {
	if err := checkContract(d); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = domain.DefaultContractTitle
	}

	c := newCanvas(r.cfg, title)
	footerHeight := c.installFooter(c.footerLines(domain.FooterText{LegalMentions: opts.Footer.LegalMentions}, domain.Party{}))
	bottom := c.pageHeight() - c.contentBottom(footerHeight)
	c.pdf.SetAutoPageBreak(true, bottom)
	c.pdf.AddPage()

	var dates [][2]string
	if d.Date != "" {
		dates = append(dates, [2]string{"Date", format.DateFr(d.Date)})
	}
	y := c.header(headerSpec{title: "CONTRAT", dates: dates}, opts.Logo)

	c.pdf.SetXY(pageMargin, y)
	c.font("B", 14)
	c.textColor(colorAccent)
	for _, line := range c.wrap(title, contentWidth) {
		c.text(pageMargin, contentWidth, 7, line, "C")
	}
	c.textColor(colorText)
	c.pdf.SetY(c.pdf.GetY() + sectionGap/2)

	c.font("", 10)
	seller := strings.TrimSpace(d.Parties.SellerName)
	buyer := strings.TrimSpace(d.Parties.BuyerName)
	if seller != "" {
		c.text(pageMargin, contentWidth, 5.5, "Entre : "+seller+", ci-après « le Prestataire »", "L")
	}
	if buyer != "" {
		c.text(pageMargin, contentWidth, 5.5, "Et : "+buyer+", ci-après « le Client »", "L")
	}
	if seller != "" || buyer != "" {
		c.pdf.SetY(c.pdf.GetY() + sectionGap/2)
	}

	c.font("", 10)
	c.pdf.SetX(pageMargin)
	c.pdf.MultiCell(contentWidth, 5, c.tr(strings.TrimSpace(d.ContractText)), "", "J", false)

	if c.pdf.GetY()+signatureHeight > c.contentBottom(footerHeight) {
		c.pdf.AddPage()
	}
	c.signatures(c.pdf.GetY()+sectionGap, seller, buyer)
	return c, nil
}

func (c *canvas) signatures(y float64, seller, buyer string) {
	left := partyBlock{caption: "Le Prestataire", name: seller}
	right := partyBlock{caption: "Le Client", name: buyer}
	for i, block := range []partyBlock{left, right} {
		x := pageMargin
		if i == 1 {
			x = pageMargin + contentWidth - partyWidth
		}
		c.pdf.SetXY(x, y)
		c.font("B", 9)
		c.text(x, partyWidth, 5, block.caption, "L")
		c.font("", 9)
		if block.name != "" {
			c.text(x, partyWidth, 5, c.fit(block.name, partyWidth), "L")
		}
		c.pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
		c.pdf.Rect(x, y+11, partyWidth, signatureHeight-14, "D")
	}
}
