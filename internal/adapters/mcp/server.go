package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
	"github.com/kirillkom/freelance-docs/internal/core/totals"
)

const (
	serverName = "freelance-docs"
	kindHelp   = "Document kind: quote|devis, invoice|facture or contract|contrat."
)

// Server exposes the document use cases as MCP tools. Calls run as one
// fixed identity: the tool host is trusted like a local CLI.
type Server struct {
	documents ports.DocumentService
	extractor ports.DataExtractor
	identity  domain.Identity
	logger    *slog.Logger
}

func NewServer(documents ports.DocumentService, extractor ports.DataExtractor, identity domain.Identity, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{documents: documents, extractor: extractor, identity: identity, logger: logger}
}

func (s *Server) MCPServer(version string) *server.MCPServer {
	srv := server.NewMCPServer(serverName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	srv.AddTool(mcp.NewTool("validate_document",
		mcp.WithDescription("Validate a quote, invoice or contract JSON document, apply profile defaults and fill computed totals."),
		mcp.WithString("kind", mcp.Required(), mcp.Description(kindHelp)),
		mcp.WithString("document", mcp.Required(), mcp.Description("The document as a JSON object string.")),
	), s.validateDocument)

	srv.AddTool(mcp.NewTool("compute_totals",
		mcp.WithDescription("Compute HT, TVA and TTC totals for quote or invoice lines."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("quote|devis or invoice|facture.")),
		mcp.WithString("lines", mcp.Required(), mcp.Description("JSON array of lines: {qty, unitPriceHt, vatRate} for quotes, {qty, unitPrice} for invoices.")),
		mcp.WithNumber("vat_rate", mcp.Description("Invoice-wide VAT rate in percent; invoices default to 0.")),
	), s.computeTotals)

	if s.extractor != nil {
		srv.AddTool(mcp.NewTool("extract_document_data",
			mcp.WithDescription("Extract a best-effort quote, invoice or contract from raw document text with the configured language model."),
			mcp.WithString("kind", mcp.Required(), mcp.Description(kindHelp)),
			mcp.WithString("text", mcp.Required(), mcp.Description("Raw text of the source document.")),
		), s.extractDocumentData)
	}
	return srv
}

func (s *Server) validateDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := parseKind(request)
	if err != nil {
		return s.failure("validate_document", err), nil
	}
	raw, err := request.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.documents.Validate(ctx, s.identity, kind, []byte(raw))
	if err != nil {
		return s.failure("validate_document", err), nil
	}
	return jsonResult(doc)
}

func (s *Server) computeTotals(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := parseKind(request)
	if err != nil {
		return s.failure("compute_totals", err), nil
	}
	raw, err := request.RequireString("lines")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result domain.Totals
	switch kind {
	case domain.KindQuote:
		var lines []domain.QuoteLine
		if err := decodeLines(raw, &lines); err != nil {
			return s.failure("compute_totals", err), nil
		}
		for i, line := range lines {
			if line.Qty < 0 || line.UnitPriceHT < 0 || line.VATRate < 0 {
				return s.failure("compute_totals", negativeLine(kind, i)), nil
			}
		}
		result = totals.ComputeQuote(lines)
	case domain.KindInvoice:
		var lines []domain.InvoiceLine
		if err := decodeLines(raw, &lines); err != nil {
			return s.failure("compute_totals", err), nil
		}
		for i, line := range lines {
			if line.Qty < 0 || line.UnitPrice < 0 {
				return s.failure("compute_totals", negativeLine(kind, i)), nil
			}
		}
		vatRate := request.GetFloat("vat_rate", 0)
		if vatRate < 0 {
			return s.failure("compute_totals", domain.WrapError(domain.ErrInvalidInput, "compute totals", errors.New("vat_rate must be >= 0"))), nil
		}
		result = totals.ComputeInvoiceWithVAT(lines, vatRate)
	default:
		return s.failure("compute_totals", domain.WrapError(domain.ErrInvalidInput, "compute totals",
			fmt.Errorf("%s has no line items", kind))), nil
	}
	return jsonResult(result)
}

func (s *Server) extractDocumentData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := parseKind(request)
	if err != nil {
		return s.failure("extract_document_data", err), nil
	}
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outcome, err := s.extractor.ExtractFromText(ctx, kind, text)
	if err != nil {
		return s.failure("extract_document_data", err), nil
	}
	return jsonResult(outcome)
}

func parseKind(request mcp.CallToolRequest) (domain.DocumentKind, error) {
	raw, err := request.RequireString("kind")
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse kind", err)
	}
	return domain.ParseKind(raw)
}

func decodeLines(raw string, out any) error {
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode lines", err)
	}
	return nil
}

func negativeLine(kind domain.DocumentKind, i int) error {
	return &domain.ValidationError{Kind: kind, Violations: []domain.FieldViolation{{
		Path:       fmt.Sprintf("lines/%d", i),
		Constraint: "minimum",
		Message:    "quantities, prices and rates must be >= 0",
	}}}
}

// failure turns a pipeline error into a tool error the model can act on.
func (s *Server) failure(tool string, err error) *mcp.CallToolResult {
	kind := domain.ErrorKindName(err)
	if domain.Classify(err) != domain.ClassClient {
		s.logger.Warn("mcp_tool_failed", "tool", tool, "error_kind", kind, "error", err)
	}

	var b strings.Builder
	b.WriteString(kind)
	b.WriteString(": ")
	ve, isValidation := domain.AsValidationError(err)
	failure, isFailure := domain.AsFailure(err)
	switch {
	case isValidation:
		b.WriteString("validation failed")
		for _, v := range ve.Violations {
			fmt.Fprintf(&b, "\n- %s: %s", v.Path, v.Message)
		}
	case isFailure && failure.Message != "":
		b.WriteString(failure.Message)
	case domain.Classify(err) == domain.ClassClient:
		b.WriteString(err.Error())
	default:
		b.WriteString("the operation failed, see server logs")
	}
	return mcp.NewToolResultError(b.String())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
