package usecase

import (
	"encoding/json"
	"strings"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/format"
)

// SeedFromProfile fills fields the caller left out with the profile's
// defaults. It works on the decoded payload so that "absent" and "zero"
// stay distinguishable; explicit caller values always win.
func SeedFromProfile(kind domain.DocumentKind, value any, profile *domain.Profile) any {
	obj, ok := value.(map[string]any)
	if !ok || profile == nil {
		return value
	}

	switch kind.DocumentKindFor() {
	case domain.KindQuote:
		seedSeller(obj, profile.Seller)
		if isBlank(obj["validityUntil"]) && profile.QuoteValidityDays > 0 {
			if issued, ok := obj["dateIssue"].(string); ok {
				if until := format.AddDays(issued, profile.QuoteValidityDays); until != "" {
					obj["validityUntil"] = until
				}
			}
		}
		if profile.DefaultVATRate != nil {
			if lines, ok := obj["lines"].([]any); ok {
				for _, item := range lines {
					if line, ok := item.(map[string]any); ok && line["vatRate"] == nil {
						line["vatRate"] = *profile.DefaultVATRate
					}
				}
			}
		}
	case domain.KindInvoice:
		seedSeller(obj, profile.Seller)
	case domain.KindContract:
		if isBlank(obj["title"]) && strings.TrimSpace(profile.DefaultContractTitle) != "" {
			obj["title"] = profile.DefaultContractTitle
		}
		if profile.Seller.Name != "" {
			parties, ok := obj["parties"].(map[string]any)
			if !ok {
				if obj["parties"] != nil {
					return obj
				}
				parties = map[string]any{}
				obj["parties"] = parties
			}
			if isBlank(parties["sellerName"]) {
				parties["sellerName"] = profile.Seller.Name
			}
		}
	}
	return obj
}

func seedSeller(obj map[string]any, seller domain.Party) {
	defaults := partyFields(seller)
	if len(defaults) == 0 {
		return
	}
	current, ok := obj["seller"].(map[string]any)
	if !ok {
		if obj["seller"] != nil {
			return
		}
		current = map[string]any{}
		obj["seller"] = current
	}
	for key, def := range defaults {
		if isBlank(current[key]) {
			current[key] = def
		}
	}
}

// partyFields lists the non-empty fields of p keyed by their JSON names.
func partyFields(p domain.Party) map[string]any {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	for key, v := range fields {
		if isBlank(v) {
			delete(fields, key)
		}
	}
	return fields
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	default:
		return false
	}
}
