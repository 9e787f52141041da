package pdftext

import (
	"context"
	"testing"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	renderpdf "github.com/kirillkom/freelance-docs/internal/infrastructure/render/pdf"
)

func TestReadTextRoundTripsRenderedInvoice(t *testing.T) {
	doc := domain.InvoiceDocument{
		InvoiceNumber: "F2026-014",
		DateIssue:     "2026-01-10",
		Seller:        domain.Party{Name: "Jeanne Martin EI"},
		Buyer:         domain.Party{Name: "ACME"},
		Lines:         []domain.InvoiceLine{{Description: "Maintenance", Qty: 1, UnitPrice: 100}},
		Totals:        domain.Totals{TotalHT: 100, TotalTTC: 100},
	}
	data, err := renderpdf.NewRenderer(renderpdf.Config{}).Render(doc, domain.RenderOptions{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	text, err := NewReader(0).ReadText(context.Background(), data)
	if err != nil {
		t.Fatalf("ReadText() error = %v", err)
	}
	if text == "" {
		t.Fatalf("expected a text layer from a generated PDF")
	}
}

func TestReadTextRejectsGarbage(t *testing.T) {
	if _, err := NewReader(0).ReadText(context.Background(), []byte("not a pdf at all")); err == nil {
		t.Fatalf("expected an error for non-PDF input")
	}
}

func TestReadTextHonoursCancellation(t *testing.T) {
	data, err := renderpdf.NewRenderer(renderpdf.Config{}).Render(domain.ContractDocument{ContractText: "Objet du contrat."}, domain.RenderOptions{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewReader(0).ReadText(ctx, data); err == nil {
		t.Fatalf("expected context error")
	}
}
