package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapErrorKeepsKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(ErrUpstreamUnavailable, "call model", cause)

	if !IsKind(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream kind, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain, got %v", err)
	}
	if WrapError(ErrInvalidInput, "noop", nil) != nil {
		t.Fatalf("expected nil for nil cause")
	}
}

func TestFailureUnwrapsToKindAndCause(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := fmt.Errorf("extract: %w", NewFailure(ErrUpstreamUnavailable, ReasonModelsUnavailable, "AI unavailable", cause))

	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("expected Failure in chain")
	}
	if f.Reason != ReasonModelsUnavailable {
		t.Fatalf("unexpected reason %q", f.Reason)
	}
	if !IsKind(err, ErrUpstreamUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("expected kind and cause reachable, got %v", err)
	}
}

func TestValidationErrorIsInvalidInput(t *testing.T) {
	err := error(&ValidationError{
		Kind:       KindInvoice,
		Violations: []FieldViolation{{Path: "invoiceNumber", Constraint: "required", Message: "is required"}},
	})
	if !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input kind")
	}
	if got := err.Error(); got != "invoice validation failed: invoiceNumber: is required" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestClassifyAndKindName(t *testing.T) {
	shapeFromValidation := NewFailure(ErrUpstreamShape, ReasonSchemaMismatch, "bad shape", &ValidationError{Kind: KindImportDevis})

	cases := []struct {
		name  string
		err   error
		class ErrorClass
		kind  string
	}{
		{"validation", &ValidationError{Kind: KindQuote}, ClassClient, "InputValidationError"},
		{"configuration", WrapError(ErrConfiguration, "ocr", errors.New("missing processor")), ClassConfiguration, "ConfigurationError"},
		{"insufficient text", WrapError(ErrInsufficientText, "extract", errors.New("empty")), ClassClient, "ExtractionInsufficientTextError"},
		{"unavailable", WrapError(ErrUpstreamUnavailable, "llm", errors.New("503")), ClassUpstream, "UpstreamUnavailableError"},
		{"timeout", WrapError(ErrUpstreamTimeout, "llm", errors.New("deadline")), ClassUpstream, "UpstreamTimeoutError"},
		{"shape wins over nested validation", shapeFromValidation, ClassUpstream, "UpstreamShapeError"},
		{"precondition", WrapError(ErrRenderingPrecondition, "render", errors.New("no lines")), ClassInternal, "RenderingPreconditionError"},
		{"unknown", errors.New("plain"), ClassInternal, "InternalError"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.class {
				t.Fatalf("Classify() = %q, want %q", got, tc.class)
			}
			if got := ErrorKindName(tc.err); got != tc.kind {
				t.Fatalf("ErrorKindName() = %q, want %q", got, tc.kind)
			}
		})
	}
}

func TestParseKindAliases(t *testing.T) {
	cases := map[string]DocumentKind{
		"quote":    KindQuote,
		"Devis":    KindQuote,
		"facture":  KindInvoice,
		"contrat":  KindContract,
		"contract": KindContract,
	}
	for raw, want := range cases {
		got, err := ParseKind(raw)
		if err != nil {
			t.Fatalf("ParseKind(%q) error = %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseKind(%q) = %q, want %q", raw, got, want)
		}
	}

	if _, err := ParseKind("receipt"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown kind, got %v", err)
	}
	if KindQuote.ImportKind() != KindImportDevis || KindImportFacture.DocumentKindFor() != KindInvoice {
		t.Fatalf("unexpected kind mapping")
	}
}

func TestReferencePrefersNumberThenDate(t *testing.T) {
	if got := Reference(QuoteDocument{QuoteNumber: "D001", DateIssue: "2026-01-10"}); got != "D001" {
		t.Fatalf("expected number, got %q", got)
	}
	if got := Reference(InvoiceDocument{DateIssue: "2026-01-10"}); got != "2026-01-10" {
		t.Fatalf("expected date fallback, got %q", got)
	}
	if got := Reference(ContractDocument{Date: "2026-03-01"}); got != "2026-03-01" {
		t.Fatalf("expected contract date, got %q", got)
	}
}
