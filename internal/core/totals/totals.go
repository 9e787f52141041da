// Package totals derives HT/TVA/TTC amounts from line items. Every monetary
// derivation in the service goes through this package so that rendering,
// validation and export agree to the cent.
package totals

import (
	"github.com/shopspring/decimal"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

var hundred = decimal.NewFromInt(100)

// Tolerance is the largest accepted gap between totalTtc and totalHt+totalTva.
const Tolerance = 0.01

// QuoteLineHT returns qty x unitPriceHt.
func QuoteLineHT(line domain.QuoteLine) float64 {
	return toFloat(quoteLineHT(line))
}

// QuoteLineVAT returns qty x unitPriceHt x vatRate / 100.
func QuoteLineVAT(line domain.QuoteLine) float64 {
	return toFloat(quoteLineVAT(line))
}

// InvoiceLineTotal returns qty x unitPrice.
func InvoiceLineTotal(line domain.InvoiceLine) float64 {
	return toFloat(invoiceLineTotal(line))
}

// ComputeQuote sums per-line HT and VAT.
func ComputeQuote(lines []domain.QuoteLine) domain.Totals {
	ht := decimal.Zero
	tva := decimal.Zero
	for _, line := range lines {
		ht = ht.Add(quoteLineHT(line))
		tva = tva.Add(quoteLineVAT(line))
	}
	return build(ht, tva)
}

// ComputeInvoice sums line totals; invoices carry no per-line VAT so TVA is 0.
func ComputeInvoice(lines []domain.InvoiceLine) domain.Totals {
	return ComputeInvoiceWithVAT(lines, 0)
}

// ComputeInvoiceWithVAT applies one global VAT rate for VAT-registered sellers.
func ComputeInvoiceWithVAT(lines []domain.InvoiceLine, vatRate float64) domain.Totals {
	ht := decimal.Zero
	for _, line := range lines {
		ht = ht.Add(invoiceLineTotal(line))
	}
	tva := ht.Mul(decimal.NewFromFloat(vatRate)).Div(hundred)
	return build(ht, tva)
}

// Consistent reports whether totalTtc matches totalHt + totalTva.
func Consistent(t domain.Totals) bool {
	gap := decimal.NewFromFloat(t.TotalTTC).Sub(decimal.NewFromFloat(t.TotalHT).Add(decimal.NewFromFloat(t.TotalTVA)))
	return gap.Abs().LessThanOrEqual(decimal.NewFromFloat(Tolerance))
}

func build(ht, tva decimal.Decimal) domain.Totals {
	ht = ht.Round(2)
	tva = tva.Round(2)
	return domain.Totals{
		TotalHT:  toFloat(ht),
		TotalTVA: toFloat(tva),
		TotalTTC: toFloat(ht.Add(tva)),
	}
}

func quoteLineHT(line domain.QuoteLine) decimal.Decimal {
	return decimal.NewFromFloat(line.Qty).Mul(decimal.NewFromFloat(line.UnitPriceHT))
}

func quoteLineVAT(line domain.QuoteLine) decimal.Decimal {
	return quoteLineHT(line).Mul(decimal.NewFromFloat(line.VATRate)).Div(hundred)
}

func invoiceLineTotal(line domain.InvoiceLine) decimal.Decimal {
	return decimal.NewFromFloat(line.Qty).Mul(decimal.NewFromFloat(line.UnitPrice))
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
