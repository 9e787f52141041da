package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	numericFields = map[string]struct{}{
		"qty":         {},
		"unitPriceHt": {},
		"unitPrice":   {},
		"vatRate":     {},
		"totalHt":     {},
		"totalTva":    {},
		"totalTtc":    {},
	}
	dateFields = map[string]struct{}{
		"dateIssue":     {},
		"validityUntil": {},
		"dueDate":       {},
		"date":          {},
	}
	// identifiers a model sometimes emits as bare numbers
	textFields = map[string]struct{}{
		"quoteNumber":   {},
		"invoiceNumber": {},
		"siret":         {},
		"phone":         {},
		"vatNumber":     {},
		"iban":          {},
		"bic":           {},
		"name":          {},
		"label":         {},
		"description":   {},
	}

	reFrenchDate = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})$`)
	reLooseISO   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ].*)?$`)
	reNumberBody = regexp.MustCompile(`^-?[0-9][0-9.,]*$`)
)

// CoercePayload repairs the formatting slips language models make in
// otherwise well-shaped output: numeric strings in amount fields, French
// dates, explicit nulls and scalar lists. Anything it does not recognize is
// left for the validator to reject.
func CoercePayload(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, field := range v {
			if field == nil {
				delete(v, key)
				continue
			}
			v[key] = coerceField(key, field)
		}
		return v
	case []any:
		for i := range v {
			v[i] = CoercePayload(v[i])
		}
		return v
	default:
		return value
	}
}

func coerceField(key string, field any) any {
	if _, ok := numericFields[key]; ok {
		if s, isString := field.(string); isString {
			if n, parsed := ParseLooseNumber(s); parsed {
				return n
			}
		}
		return field
	}
	if _, ok := dateFields[key]; ok {
		if s, isString := field.(string); isString {
			return normalizeDate(s)
		}
		return field
	}
	if _, ok := textFields[key]; ok {
		if n, isNumber := field.(float64); isNumber {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
		return field
	}
	switch key {
	case "addressLines":
		return coerceStringList(field, true)
	case "warnings":
		return coerceStringList(field, false)
	}
	return CoercePayload(field)
}

func coerceStringList(field any, splitLines bool) any {
	switch v := field.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return []any{}
		}
		if !splitLines {
			return []any{v}
		}
		out := []any{}
		for _, line := range strings.Split(v, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			switch s := item.(type) {
			case nil:
				continue
			case string:
				out = append(out, s)
			default:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out
	default:
		return field
	}
}

// ParseLooseNumber reads "1 234,50", "20 %", "500.00 €" or "1.234,5" style
// amounts.
func ParseLooseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	for _, noise := range []string{"€", "EUR", "eur", "%", "HT", "TTC", " ", "\u00a0", "\u202f", "'"} {
		s = strings.ReplaceAll(s, noise, "")
	}
	if s == "" || !reNumberBody.MatchString(s) {
		return 0, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func normalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if m := reFrenchDate.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[3], pad2(m[2]), pad2(m[1]))
	}
	if m := reLooseISO.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-%s-%s", m[1], pad2(m[2]), pad2(m[3]))
	}
	return s
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
