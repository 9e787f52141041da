package pdf

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/format"
)

const (
	logoImageName   = "logo"
	logoMaxWidth    = 45.0
	logoMaxHeight   = 22.0
	headerBoxWidth  = 95.0
	partyWidth      = 85.0
	rowHeight       = 7.0
	tableHeaderH    = 8.0
	totalsWidth     = 85.0
	totalsRowHeight = 6.5
	footerLineH     = 3.6
	footerGap       = 4.0
)

// VATNotApplicableText is printed instead of a zero VAT row when the
// seller is exempt.
const VATNotApplicableText = "TVA non applicable, art. 293 B du CGI"

type headerSpec struct {
	title  string
	number string
	dates  [][2]string
}

// header draws the logo slot and the title column; it returns the y below both.
func (c *canvas) header(spec headerSpec, logo *domain.Logo) float64 {
	top := pageMargin
	c.drawLogo(logo, pageMargin, top)

	x := pageMargin + contentWidth - headerBoxWidth
	c.pdf.SetXY(x, top)
	c.font("B", 20)
	c.textColor(colorAccent)
	c.text(x, headerBoxWidth, 10, spec.title, "R")

	c.font("B", 10)
	c.textColor(colorText)
	if spec.number != "" {
		c.text(x, headerBoxWidth, 5.5, c.fit(spec.number, headerBoxWidth), "R")
	}
	c.font("", 9)
	for _, d := range spec.dates {
		if d[1] == "" {
			continue
		}
		c.text(x, headerBoxWidth, lineHeight+0.5, d[0]+" : "+d[1], "R")
	}
	return math.Max(c.pdf.GetY(), top+logoMaxHeight) + sectionGap
}

// drawLogo leaves the slot blank when the image is missing or unusable.
func (c *canvas) drawLogo(logo *domain.Logo, x, y float64) {
	imageType, ok := logoImageType(logo)
	if !ok {
		return
	}
	opts := fpdf.ImageOptions{ImageType: imageType}
	info := c.pdf.RegisterImageOptionsReader(logoImageName, opts, bytes.NewReader(logo.Data))
	if info == nil || info.Width() <= 0 || info.Height() <= 0 {
		return
	}
	w, h := logoMaxWidth, logoMaxWidth*info.Height()/info.Width()
	if h > logoMaxHeight {
		h = logoMaxHeight
		w = logoMaxHeight * info.Width() / info.Height()
	}
	c.pdf.ImageOptions(logoImageName, x, y, w, h, false, opts, 0, "")
}

// logoImageType decodes the header and test-registers the image on a scratch
// document, so a malformed logo never puts the real document in error state.
func logoImageType(logo *domain.Logo) (string, bool) {
	if logo == nil || len(logo.Data) == 0 {
		return "", false
	}
	_, name, err := image.DecodeConfig(bytes.NewReader(logo.Data))
	if err != nil {
		return "", false
	}
	var imageType string
	switch name {
	case "png":
		imageType = "PNG"
	case "jpeg":
		imageType = "JPG"
	case "gif":
		imageType = "GIF"
	default:
		return "", false
	}
	scratch := fpdf.New("P", "mm", "A4", "")
	scratch.RegisterImageOptionsReader("logo", fpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(logo.Data))
	if !scratch.Ok() {
		return "", false
	}
	return imageType, true
}

// subtitle draws a one-line caption such as a quote title.
func (c *canvas) subtitle(y float64, txt string) float64 {
	c.font("B", 12)
	c.textColor(colorAccent)
	c.pdf.SetXY(pageMargin, y)
	c.text(pageMargin, contentWidth, 6, c.fit(txt, contentWidth), "L")
	c.textColor(colorText)
	return y + 6 + sectionGap/2
}

type partyBlock struct {
	caption string
	name    string
	lines   []string
}

func sellerBlock(p domain.Party) partyBlock {
	return partyBlock{caption: "Émetteur", name: p.Name, lines: partyLines(p)}
}

func buyerBlock(p domain.Party) partyBlock {
	return partyBlock{caption: "Client", name: p.Name, lines: partyLines(p)}
}

func partyLines(p domain.Party) []string {
	var lines []string
	for _, l := range p.AddressLines {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, label+value)
		}
	}
	add("SIRET : ", p.Siret)
	add("TVA intracom. : ", p.VATNumber)
	add("", p.Email)
	add("Tél. : ", p.Phone)
	return lines
}

// parties draws seller and buyer side by side and returns the y below the taller one.
func (c *canvas) parties(y float64, left, right partyBlock) float64 {
	bottomLeft := c.party(pageMargin, y, left)
	bottomRight := c.party(pageMargin+contentWidth-partyWidth, y, right)
	return math.Max(bottomLeft, bottomRight) + sectionGap
}

func (c *canvas) party(x, y float64, block partyBlock) float64 {
	c.pdf.SetXY(x, y)
	c.font("B", 8)
	c.textColor(colorMuted)
	c.text(x, partyWidth, lineHeight, strings.ToUpper(block.caption), "L")
	c.pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	c.pdf.Line(x, c.pdf.GetY(), x+partyWidth, c.pdf.GetY())
	c.pdf.SetY(c.pdf.GetY() + 1.5)

	c.textColor(colorText)
	c.font("B", 10.5)
	c.text(x, partyWidth, 5.5, c.fit(block.name, partyWidth), "L")
	c.font("", 9)
	for _, line := range block.lines {
		c.text(x, partyWidth, lineHeight, c.fit(line, partyWidth), "L")
	}
	return c.pdf.GetY()
}

type column struct {
	title string
	width float64
	align string
}

// table draws the header row and the given rows; it returns the y below the last row.
func (c *canvas) table(y float64, cols []column, rows [][]string) float64 {
	c.pdf.SetXY(pageMargin, y)
	c.font("B", 9)
	c.pdf.SetFillColor(colorFill.r, colorFill.g, colorFill.b)
	c.pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	for _, col := range cols {
		c.pdf.CellFormat(col.width, tableHeaderH, c.tr(col.title), "B", 0, col.align, true, 0, "")
	}
	c.pdf.Ln(-1)

	c.font("", 9)
	for _, row := range rows {
		c.pdf.SetX(pageMargin)
		for i, col := range cols {
			cell := ""
			if i < len(row) {
				cell = c.fit(row[i], col.width-2)
			}
			c.pdf.CellFormat(col.width, rowHeight, c.tr(cell), "B", 0, col.align, false, 0, "")
		}
		c.pdf.Ln(-1)
	}
	return c.pdf.GetY()
}

type totalsRow struct {
	label  string
	value  string
	strong bool
	// notice spans the whole box and has no value.
	notice bool
}

func totalsRows(t domain.Totals, vatNotice bool) []totalsRow {
	rows := []totalsRow{{label: "Total HT", value: format.Money(t.TotalHT)}}
	if vatNotice && t.TotalTVA == 0 {
		rows = append(rows,
			totalsRow{label: VATNotApplicableText, notice: true},
			totalsRow{label: "Net à payer", value: format.Money(t.TotalTTC), strong: true},
		)
		return rows
	}
	return append(rows,
		totalsRow{label: "TVA", value: format.Money(t.TotalTVA)},
		totalsRow{label: "Total TTC", value: format.Money(t.TotalTTC), strong: true},
	)
}

func totalsHeight(rows []totalsRow) float64 {
	return float64(len(rows))*totalsRowHeight + sectionGap/2
}

// totals draws the right-aligned totals box below y.
func (c *canvas) totals(y float64, rows []totalsRow) float64 {
	y += sectionGap / 2
	x := pageMargin + contentWidth - totalsWidth
	valueWidth := 35.0
	c.pdf.SetFillColor(colorFill.r, colorFill.g, colorFill.b)
	for _, row := range rows {
		c.pdf.SetXY(x, y)
		switch {
		case row.notice:
			c.font("I", 8)
			c.pdf.CellFormat(totalsWidth, totalsRowHeight, c.tr(row.label), "", 0, "R", false, 0, "")
		case row.strong:
			c.font("B", 10)
			c.pdf.CellFormat(totalsWidth-valueWidth, totalsRowHeight, c.tr(row.label), "", 0, "L", true, 0, "")
			c.pdf.CellFormat(valueWidth, totalsRowHeight, c.tr(row.value), "", 0, "R", true, 0, "")
		default:
			c.font("", 9)
			c.pdf.CellFormat(totalsWidth-valueWidth, totalsRowHeight, c.tr(row.label), "", 0, "L", false, 0, "")
			c.pdf.CellFormat(valueWidth, totalsRowHeight, c.tr(row.value), "", 0, "R", false, 0, "")
		}
		y += totalsRowHeight
	}
	return y
}

// paragraph draws a captioned block of wrapped text; an empty body draws nothing.
func (c *canvas) paragraph(y float64, caption string, lines []string) float64 {
	if len(lines) == 0 {
		return y
	}
	y += sectionGap / 2
	c.pdf.SetXY(pageMargin, y)
	c.font("B", 9)
	c.text(pageMargin, contentWidth, 5, caption, "L")
	c.font("", 9)
	for _, line := range lines {
		c.text(pageMargin, contentWidth, lineHeight, line, "L")
	}
	return c.pdf.GetY()
}

func paragraphHeight(lines []string) float64 {
	if len(lines) == 0 {
		return 0
	}
	return sectionGap/2 + 5 + float64(len(lines))*lineHeight
}

// wrapBody wraps free text with the body font so heights can be measured before drawing.
func (c *canvas) wrapBody(txt string) []string {
	txt = strings.TrimSpace(txt)
	if txt == "" {
		return nil
	}
	c.font("", 9)
	return c.wrap(txt, contentWidth)
}

// footerLines collects bank details and legal boilerplate wrapped to the footer font.
func (c *canvas) footerLines(footer domain.FooterText, seller domain.Party) []string {
	var parts []string
	var bank []string
	if v := strings.TrimSpace(seller.BankName); v != "" {
		bank = append(bank, v)
	}
	if v := strings.TrimSpace(seller.IBAN); v != "" {
		bank = append(bank, "IBAN : "+v)
	}
	if v := strings.TrimSpace(seller.BIC); v != "" {
		bank = append(bank, "BIC : "+v)
	}
	if len(bank) > 0 {
		parts = append(parts, strings.Join(bank, " - "))
	}
	for _, v := range []string{footer.PaymentTerms, footer.LatePenalty, footer.LegalMentions} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}

	c.font("", 7.5)
	var lines []string
	for _, p := range parts {
		lines = append(lines, c.wrap(p, contentWidth)...)
	}
	return lines
}

// installFooter registers the per-page footer and returns its height.
func (c *canvas) installFooter(lines []string) float64 {
	height := float64(len(lines)+1) * footerLineH
	c.pdf.SetFooterFunc(func() {
		top := c.pageHeight() - pageMargin - height
		c.rule(top - 1.5)
		c.font("", 7.5)
		c.textColor(colorMuted)
		y := top
		for _, line := range lines {
			c.pdf.SetXY(pageMargin, y)
			c.pdf.CellFormat(contentWidth, footerLineH, c.tr(line), "", 0, "C", false, 0, "")
			y += footerLineH
		}
		c.pdf.SetXY(pageMargin, y)
		c.pdf.CellFormat(contentWidth, footerLineH, fmt.Sprintf("Page %d/{nb}", c.pdf.PageNo()), "", 0, "R", false, 0, "")
		c.textColor(colorText)
	})
	return height
}

// contentBottom is the lowest y body content may reach above the footer.
func (c *canvas) contentBottom(footerHeight float64) float64 {
	return c.pageHeight() - pageMargin - footerHeight - footerGap
}

// rowCapacity is how many table rows fit between tableTop and the reserved tail.
func (c *canvas) rowCapacity(tableTop, tailHeight, footerHeight float64) int {
	available := c.contentBottom(footerHeight) - tableTop - tableHeaderH - tailHeight
	if available <= 0 {
		return 0
	}
	return int(math.Floor(available/rowHeight + 1e-9))
}

func capacityError(kind domain.DocumentKind, capacity, got int) error {
	return &domain.ValidationError{
		Kind: kind,
		Violations: []domain.FieldViolation{{
			Path:       "lines",
			Constraint: domain.ReasonPageCapacityReached,
			Message:    fmt.Sprintf("%d lines do not fit on a single page (at most %d)", got, capacity),
		}},
	}
}
