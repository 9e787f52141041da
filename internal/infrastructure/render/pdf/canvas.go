package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	fontFamily   = "Helvetica"
	pageMargin   = 15.0
	contentWidth = 180.0
	lineHeight   = 4.5
	sectionGap   = 8.0
)

type rgb struct{ r, g, b int }

var (
	colorText   = rgb{33, 37, 41}
	colorMuted  = rgb{108, 117, 125}
	colorAccent = rgb{31, 58, 96}
	colorRule   = rgb{206, 212, 218}
	colorFill   = rgb{233, 237, 242}
)

// canvas is one A4 document with the cp1252 translator the core fonts need.
type canvas struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newCanvas(cfg Config, title string) *canvas {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(pageMargin, pageMargin, pageMargin)
	doc.SetAutoPageBreak(false, pageMargin)
	doc.SetCreationDate(cfg.CreationDate)
	doc.SetModificationDate(cfg.CreationDate)
	doc.SetCatalogSort(true)
	doc.SetCompression(!cfg.DisableCompression)
	doc.SetTitle(title, true)
	doc.SetCreator(cfg.Creator, true)
	doc.AliasNbPages("")

	c := &canvas{pdf: doc, tr: doc.UnicodeTranslatorFromDescriptor("")}
	c.font("", 10)
	c.textColor(colorText)
	return c
}

func (c *canvas) font(style string, size float64) {
	c.pdf.SetFont(fontFamily, style, size)
}

func (c *canvas) textColor(col rgb) {
	c.pdf.SetTextColor(col.r, col.g, col.b)
}

func (c *canvas) pageHeight() float64 {
	_, h := c.pdf.GetPageSize()
	return h
}

// text writes one line at (x, current y) and moves below it.
func (c *canvas) text(x, w, h float64, txt, align string) {
	c.pdf.SetX(x)
	c.pdf.CellFormat(w, h, c.tr(txt), "", 2, align, false, 0, "")
}

func (c *canvas) width(txt string) float64 {
	return c.pdf.GetStringWidth(c.tr(txt))
}

// fit shortens txt with an ellipsis until it fits w with the current font.
func (c *canvas) fit(txt string, w float64) string {
	if c.width(txt) <= w {
		return txt
	}
	runes := []rune(txt)
	ellipsized := func(n int) string {
		return strings.TrimRight(string(runes[:n]), " ") + "..."
	}
	n := longestPrefix(len(runes)-1, func(n int) bool {
		return c.width(ellipsized(n)) <= w
	})
	if n < 0 {
		return ""
	}
	return ellipsized(n)
}

// wrap splits txt into lines no wider than w with the current font.
// Paragraph breaks are kept; words longer than w are cut.
func (c *canvas) wrap(txt string, w float64) []string {
	var out []string
	for _, paragraph := range strings.Split(strings.ReplaceAll(txt, "\r\n", "\n"), "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, word := range words {
			runes := []rune(word)
			for len(runes) > 1 {
				n := c.cut(runes, w)
				if n == len(runes) {
					break
				}
				if line != "" {
					out = append(out, line)
					line = ""
				}
				out = append(out, string(runes[:n]))
				runes = runes[n:]
			}
			word = string(runes)

			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if c.width(candidate) <= w {
				line = candidate
				continue
			}
			out = append(out, line)
			line = word
		}
		out = append(out, line)
	}
	return out
}

// cut returns how many leading runes of word fit w, never less than one.
func (c *canvas) cut(word []rune, w float64) int {
	n := longestPrefix(len(word), func(n int) bool {
		return c.width(string(word[:n])) <= w
	})
	return max(n, 1)
}

// longestPrefix returns the largest n in [0, limit] for which fits(n) holds,
// or -1 when fits(0) fails. fits must stay false once it turns false.
// The search gallops from zero, so its cost follows the answer rather than
// limit.
func longestPrefix(limit int, fits func(int) bool) int {
	if limit < 0 || !fits(0) {
		return -1
	}
	lo, hi := 0, 1
	for hi <= limit && fits(hi) {
		lo, hi = hi, hi*2
	}
	hi = min(hi, limit+1)
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

func (c *canvas) rule(y float64) {
	c.pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	c.pdf.SetLineWidth(0.2)
	c.pdf.Line(pageMargin, y, pageMargin+contentWidth, y)
}

func (c *canvas) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := c.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
