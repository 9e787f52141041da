package validation

import (
	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

const (
	isoDatePattern         = `^\d{4}-\d{2}-\d{2}$`
	optionalISODatePattern = `^(\d{4}-\d{2}-\d{2})?$`
	nonBlankPattern        = `\S`
)

// shape selects how strict a schema is. Import shapes accept null and omit
// every required constraint; range constraints still apply.
type shape struct {
	lenient bool
}

// BuildSchema returns the JSON Schema (draft 2020-12) for one document kind.
func BuildSchema(kind domain.DocumentKind) map[string]any {
	switch kind {
	case domain.KindQuote:
		return quoteSchema(shape{})
	case domain.KindInvoice:
		return invoiceSchema(shape{})
	case domain.KindContract:
		return contractSchema(shape{})
	case domain.KindImportDevis:
		return withWarnings(quoteSchema(shape{lenient: true}))
	case domain.KindImportFacture:
		return withWarnings(invoiceSchema(shape{lenient: true}))
	case domain.KindImportContrat:
		return withWarnings(contractSchema(shape{lenient: true}))
	default:
		return nil
	}
}

func quoteSchema(s shape) map[string]any {
	return s.object(map[string]any{
		"quoteNumber":   s.identity(),
		"title":         s.text(),
		"dateIssue":     s.date(true),
		"validityUntil": s.date(false),
		"seller":        s.party(),
		"buyer":         s.party(),
		"lines":         s.lines(s.quoteLine()),
		"notes":         s.text(),
		"totals":        s.totals(),
	}, "quoteNumber", "dateIssue", "seller", "buyer", "lines")
}

func invoiceSchema(s shape) map[string]any {
	return s.object(map[string]any{
		"invoiceNumber": s.identity(),
		"dateIssue":     s.date(true),
		"dueDate":       s.date(false),
		"seller":        s.party(),
		"buyer":         s.party(),
		"lines":         s.lines(s.invoiceLine()),
		"totals":        s.totals(),
	}, "invoiceNumber", "dateIssue", "seller", "buyer", "lines")
}

func contractSchema(s shape) map[string]any {
	return s.object(map[string]any{
		"title":        s.text(),
		"date":         s.date(false),
		"contractText": s.identity(),
		"parties": s.object(map[string]any{
			"sellerName": s.text(),
			"buyerName":  s.text(),
		}),
	}, "contractText")
}

func withWarnings(schema map[string]any) map[string]any {
	props := schema["properties"].(map[string]any)
	props["warnings"] = shape{lenient: true}.stringList()
	return schema
}

func (s shape) object(props map[string]any, required ...string) map[string]any {
	out := map[string]any{
		"type":       s.types("object"),
		"properties": props,
	}
	if !s.lenient && len(required) > 0 {
		out["required"] = required
	}
	return out
}

func (s shape) party() map[string]any {
	return s.object(map[string]any{
		"name":         s.identity(),
		"addressLines": s.stringList(),
		"siret":        s.text(),
		"vatNumber":    s.text(),
		"email":        s.text(),
		"phone":        s.text(),
		"iban":         s.text(),
		"bic":          s.text(),
		"bankName":     s.text(),
	}, "name")
}

func (s shape) quoteLine() map[string]any {
	return s.object(map[string]any{
		"label":       s.text(),
		"description": s.text(),
		"qty":         s.amount(),
		"unitPriceHt": s.amount(),
		"vatRate":     s.amount(),
	})
}

func (s shape) invoiceLine() map[string]any {
	return s.object(map[string]any{
		"description": s.text(),
		"qty":         s.amount(),
		"unitPrice":   s.amount(),
	})
}

func (s shape) totals() map[string]any {
	return s.object(map[string]any{
		"totalHt":  s.amount(),
		"totalTva": s.amount(),
		"totalTtc": s.amount(),
	})
}

func (s shape) lines(item map[string]any) map[string]any {
	out := map[string]any{
		"type":  s.types("array"),
		"items": item,
	}
	if !s.lenient {
		out["minItems"] = 1
	}
	return out
}

func (s shape) stringList() map[string]any {
	return map[string]any{
		"type":  s.types("array"),
		"items": map[string]any{"type": "string"},
	}
}

// identity fields must carry at least one visible character when present.
func (s shape) identity() map[string]any {
	if s.lenient {
		return s.text()
	}
	return map[string]any{
		"type":      "string",
		"minLength": 1,
		"pattern":   nonBlankPattern,
	}
}

func (s shape) text() map[string]any {
	return map[string]any{"type": s.types("string")}
}

func (s shape) date(required bool) map[string]any {
	pattern := optionalISODatePattern
	if required && !s.lenient {
		pattern = isoDatePattern
	}
	return map[string]any{
		"type":    s.types("string"),
		"pattern": pattern,
	}
}

func (s shape) amount() map[string]any {
	return map[string]any{
		"type":    s.types("number"),
		"minimum": 0,
	}
}

func (s shape) types(base string) any {
	if s.lenient {
		return []string{base, "null"}
	}
	return base
}
