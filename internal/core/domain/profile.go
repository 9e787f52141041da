package domain

// Identity is the authenticated caller.
type Identity struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous,omitempty"`
}

// Profile holds per-user defaults seeded into documents before validation.
type Profile struct {
	UserID               string   `json:"user_id" yaml:"user_id"`
	Seller               Party    `json:"seller" yaml:"seller"`
	LogoRef              string   `json:"logo_ref" yaml:"logo_ref"`
	DefaultVATRate       *float64 `json:"default_vat_rate,omitempty" yaml:"default_vat_rate"`
	VATNotApplicable     bool     `json:"vat_not_applicable" yaml:"vat_not_applicable"`
	QuoteValidityDays    int      `json:"quote_validity_days" yaml:"quote_validity_days"`
	PaymentTerms         string   `json:"payment_terms" yaml:"payment_terms"`
	LatePenaltyNotice    string   `json:"late_penalty_notice" yaml:"late_penalty_notice"`
	LegalMentions        string   `json:"legal_mentions" yaml:"legal_mentions"`
	DefaultContractTitle string   `json:"default_contract_title" yaml:"default_contract_title"`
	Tone                 string   `json:"tone" yaml:"tone"`
}

// Logo is a resolved image ready for layout.
type Logo struct {
	Data        []byte
	ContentType string
}
