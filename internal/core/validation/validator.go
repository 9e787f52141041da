// Package validation is the single gate every document payload passes
// through, whether it comes from a caller or from a language model.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/format"
)

const schemaBaseURL = "https://schemas.freelance-docs.local/"

type Validator struct {
	schemas map[domain.DocumentKind]*jsonschema.Schema
}

// New compiles the schema of every document kind.
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	urls := make(map[domain.DocumentKind]string, len(domain.AllKinds()))
	for _, kind := range domain.AllKinds() {
		raw, err := json.Marshal(BuildSchema(kind))
		if err != nil {
			return nil, fmt.Errorf("marshal %s schema: %w", kind, err)
		}
		url := schemaBaseURL + string(kind) + ".json"
		if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add %s schema: %w", kind, err)
		}
		urls[kind] = url
	}

	schemas := make(map[domain.DocumentKind]*jsonschema.Schema, len(urls))
	for kind, url := range urls {
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", kind, err)
		}
		schemas[kind] = schema
	}
	return &Validator{schemas: schemas}, nil
}

// Validate decodes raw JSON and validates it as kind.
func (v *Validator) Validate(kind domain.DocumentKind, raw []byte) (domain.Document, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, &domain.ValidationError{
			Kind: kind,
			Violations: []domain.FieldViolation{{
				Constraint: "json",
				Message:    fmt.Sprintf("body is not valid JSON: %v", err),
			}},
		}
	}
	return v.ValidateValue(kind, value)
}

// ValidateValue validates an already decoded JSON value (maps, slices,
// float64, string, bool, nil) and returns the typed document with defaults.
func (v *Validator) ValidateValue(kind domain.DocumentKind, value any) (domain.Document, error) {
	schema, ok := v.schemas[kind]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate", fmt.Errorf("unknown document kind %q", kind))
	}

	// Calendar checks run alongside the schema so that one response lists
	// every problem in the payload.
	calendar := calendarViolations(kind, value)
	if err := schema.Validate(value); err != nil {
		return nil, toValidationError(kind, err, calendar...)
	}
	if len(calendar) > 0 {
		return nil, &domain.ValidationError{Kind: kind, Violations: calendar}
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("re-encode %s payload: %w", kind, err)
	}

	doc, err := decode(kind, raw)
	if err != nil {
		return nil, &domain.ValidationError{
			Kind:       kind,
			Violations: []domain.FieldViolation{{Constraint: "type", Message: err.Error()}},
		}
	}
	return doc, nil
}

func decode(kind domain.DocumentKind, raw []byte) (domain.Document, error) {
	switch kind {
	case domain.KindQuote:
		var d domain.QuoteDocument
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return applyQuoteDefaults(d), nil
	case domain.KindInvoice:
		var d domain.InvoiceDocument
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return applyInvoiceDefaults(d), nil
	case domain.KindContract:
		var d domain.ContractDocument
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return applyContractDefaults(d), nil
	case domain.KindImportDevis:
		var d domain.ImportDevis
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		d.QuoteDocument = applyQuoteDefaults(d.QuoteDocument)
		d.Warnings = nonNilStrings(d.Warnings)
		return d, nil
	case domain.KindImportFacture:
		var d domain.ImportFacture
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		d.InvoiceDocument = applyInvoiceDefaults(d.InvoiceDocument)
		d.Warnings = nonNilStrings(d.Warnings)
		return d, nil
	case domain.KindImportContrat:
		var d domain.ImportContrat
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		d.ContractDocument = applyContractDefaults(d.ContractDocument)
		d.Warnings = nonNilStrings(d.Warnings)
		return d, nil
	default:
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
}

func applyQuoteDefaults(d domain.QuoteDocument) domain.QuoteDocument {
	d.Seller = applyPartyDefaults(d.Seller)
	d.Buyer = applyPartyDefaults(d.Buyer)
	if d.Lines == nil {
		d.Lines = []domain.QuoteLine{}
	}
	return d
}

func applyInvoiceDefaults(d domain.InvoiceDocument) domain.InvoiceDocument {
	d.Seller = applyPartyDefaults(d.Seller)
	d.Buyer = applyPartyDefaults(d.Buyer)
	if d.Lines == nil {
		d.Lines = []domain.InvoiceLine{}
	}
	return d
}

func applyContractDefaults(d domain.ContractDocument) domain.ContractDocument {
	if strings.TrimSpace(d.Title) == "" {
		d.Title = domain.DefaultContractTitle
	}
	return d
}

func applyPartyDefaults(p domain.Party) domain.Party {
	p.AddressLines = nonNilStrings(p.AddressLines)
	return p
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

var dateFields = map[domain.DocumentKind][]string{
	domain.KindQuote:         {"dateIssue", "validityUntil"},
	domain.KindInvoice:       {"dateIssue", "dueDate"},
	domain.KindContract:      {"date"},
	domain.KindImportDevis:   {"dateIssue", "validityUntil"},
	domain.KindImportFacture: {"dateIssue", "dueDate"},
	domain.KindImportContrat: {"date"},
}

var datePattern = regexp.MustCompile(isoDatePattern)

// calendarViolations rejects dates that match YYYY-MM-DD but do not exist.
// Values of the wrong shape are left to the schema pattern.
func calendarViolations(kind domain.DocumentKind, value any) []domain.FieldViolation {
	object, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	var out []domain.FieldViolation
	for _, path := range dateFields[kind] {
		date, ok := object[path].(string)
		if !ok || !datePattern.MatchString(date) {
			continue
		}
		if _, ok := format.ParseISODate(date); !ok {
			out = append(out, domain.FieldViolation{
				Path:       path,
				Constraint: "date",
				Message:    fmt.Sprintf("%q is not a calendar date", date),
			})
		}
	}
	sortViolations(out)
	return out
}

var quotedName = regexp.MustCompile(`'([^']+)'`)

func toValidationError(kind domain.DocumentKind, err error, extra ...domain.FieldViolation) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return domain.WrapError(domain.ErrInvalidInput, "validate "+string(kind), err)
	}

	var violations []domain.FieldViolation
	for _, leaf := range leaves(ve) {
		constraint := lastSegment(leaf.KeywordLocation)
		base := pointerToPath(leaf.InstanceLocation)

		if constraint == "required" {
			names := quotedName.FindAllStringSubmatch(leaf.Message, -1)
			for _, m := range names {
				violations = append(violations, domain.FieldViolation{
					Path:       joinPath(base, m[1]),
					Constraint: "required",
					Message:    "is required",
				})
			}
			if len(names) > 0 {
				continue
			}
		}

		violations = append(violations, domain.FieldViolation{
			Path:       base,
			Constraint: constraint,
			Message:    leaf.Message,
		})
	}
	violations = append(violations, extra...)
	sortViolations(violations)
	return &domain.ValidationError{Kind: kind, Violations: violations}
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		out = append(out, leaves(cause)...)
	}
	return out
}

func lastSegment(location string) string {
	location = strings.TrimRight(location, "/")
	if idx := strings.LastIndex(location, "/"); idx >= 0 {
		return location[idx+1:]
	}
	return location
}

// pointerToPath turns /lines/0/qty into lines[0].qty.
func pointerToPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range strings.Split(pointer, "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		if _, err := strconv.Atoi(seg); err == nil {
			b.WriteString("[" + seg + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}

func sortViolations(v []domain.FieldViolation) {
	sort.SliceStable(v, func(i, j int) bool {
		if v[i].Path != v[j].Path {
			return v[i].Path < v[j].Path
		}
		return v[i].Constraint < v[j].Constraint
	})
}
