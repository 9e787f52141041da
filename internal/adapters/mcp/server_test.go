package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

type documentsStub struct {
	err error
}

func (d documentsStub) Validate(_ context.Context, _ domain.Identity, kind domain.DocumentKind, raw []byte) (domain.Document, error) {
	if d.err != nil {
		return nil, d.err
	}
	var doc domain.QuoteDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "decode", err)
	}
	return doc, nil
}

func (documentsStub) Render(context.Context, domain.Identity, domain.DocumentKind, []byte, domain.RenderMode) (*domain.RenderedDocument, error) {
	return nil, errors.New("not used")
}

func (documentsStub) Export(context.Context, domain.Identity, domain.DocumentKind, []byte) (*domain.RenderedDocument, error) {
	return nil, errors.New("not used")
}

type extractorStub struct {
	err error
}

func (extractorStub) ExtractFromFile(context.Context, domain.DocumentKind, []byte, string) (*domain.ExtractionOutcome, error) {
	return nil, errors.New("not used")
}

func (e extractorStub) ExtractFromText(_ context.Context, kind domain.DocumentKind, _ string) (*domain.ExtractionOutcome, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &domain.ExtractionOutcome{Kind: kind.ImportKind(), Data: domain.ImportDevis{Warnings: []string{}}}, nil
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	return text.Text
}

func newTestServer(extractErr error) *Server {
	return NewServer(documentsStub{}, extractorStub{err: extractErr}, domain.Identity{UserID: "local"}, nil)
}

func TestComputeTotalsQuote(t *testing.T) {
	res, err := newTestServer(nil).computeTotals(context.Background(), call(map[string]any{
		"kind":  "devis",
		"lines": `[{"qty":2,"unitPriceHt":500,"vatRate":20},{"qty":1,"unitPriceHt":250,"vatRate":10}]`,
	}))
	if err != nil {
		t.Fatalf("computeTotals() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var got domain.Totals
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decode totals: %v", err)
	}
	if got.TotalHT != 1250 || got.TotalTVA != 225 || got.TotalTTC != 1475 {
		t.Fatalf("unexpected totals %+v", got)
	}
}

func TestComputeTotalsInvoiceWithVAT(t *testing.T) {
	res, _ := newTestServer(nil).computeTotals(context.Background(), call(map[string]any{
		"kind":     "invoice",
		"lines":    `[{"qty":3,"unitPrice":100}]`,
		"vat_rate": 20.0,
	}))
	var got domain.Totals
	if err := json.Unmarshal([]byte(resultText(t, res)), &got); err != nil {
		t.Fatalf("decode totals: %v", err)
	}
	if got.TotalHT != 300 || got.TotalTVA != 60 || got.TotalTTC != 360 {
		t.Fatalf("unexpected totals %+v", got)
	}
}

func TestComputeTotalsRejectsNegativeLines(t *testing.T) {
	res, _ := newTestServer(nil).computeTotals(context.Background(), call(map[string]any{
		"kind":  "facture",
		"lines": `[{"qty":-1,"unitPrice":100}]`,
	}))
	if !res.IsError {
		t.Fatalf("expected tool error")
	}
	if text := resultText(t, res); !strings.Contains(text, "InputValidationError") || !strings.Contains(text, "lines/0") {
		t.Fatalf("unexpected error text %q", text)
	}
}

func TestComputeTotalsRejectsContract(t *testing.T) {
	res, _ := newTestServer(nil).computeTotals(context.Background(), call(map[string]any{"kind": "contrat", "lines": `[]`}))
	if !res.IsError {
		t.Fatalf("contracts have no totals")
	}
}

func TestValidateDocumentEchoesNormalizedDocument(t *testing.T) {
	res, _ := newTestServer(nil).validateDocument(context.Background(), call(map[string]any{
		"kind":     "quote",
		"document": `{"quoteNumber":"D001"}`,
	}))
	if res.IsError || !strings.Contains(resultText(t, res), `"quoteNumber": "D001"`) {
		t.Fatalf("unexpected result %q", resultText(t, res))
	}
}

func TestExtractDocumentDataReportsFailureMessage(t *testing.T) {
	failure := domain.NewFailure(domain.ErrUpstreamUnavailable, domain.ReasonModelsUnavailable, "no model could process the document", errors.New("503"))
	res, _ := newTestServer(failure).extractDocumentData(context.Background(), call(map[string]any{
		"kind": "devis",
		"text": "DEVIS",
	}))
	if !res.IsError {
		t.Fatalf("expected tool error")
	}
	if text := resultText(t, res); text != "UpstreamUnavailableError: no model could process the document" {
		t.Fatalf("unexpected error text %q", text)
	}
}

func TestMCPServerRegistersTools(t *testing.T) {
	srv := newTestServer(nil).MCPServer("test")
	reply := srv.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(reply)
	if err != nil {
		t.Fatalf("encode reply: %v", err)
	}
	for _, name := range []string{"validate_document", "compute_totals", "extract_document_data"} {
		if !strings.Contains(string(raw), `"name":"`+name+`"`) {
			t.Fatalf("tool %s is not listed in %s", name, raw)
		}
	}
}
