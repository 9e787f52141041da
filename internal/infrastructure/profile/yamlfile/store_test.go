package yamlfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

const sample = `
default:
  quote_validity_days: 30
  default_vat_rate: 20
profiles:
  - user_id: u1
    seller:
      name: Jeanne Martin EI
      siret: "12345678900012"
      addressLines:
        - 12 rue des Lilas
        - 69003 Lyon
    vat_not_applicable: true
    payment_terms: Paiement à réception
`

func TestLoadReadsProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	store, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	profile, err := store.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if profile.Seller.Name != "Jeanne Martin EI" || len(profile.Seller.AddressLines) != 2 {
		t.Fatalf("unexpected seller %+v", profile.Seller)
	}
	if !profile.VATNotApplicable || profile.PaymentTerms != "Paiement à réception" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestGetProfileFallsBackToDefault(t *testing.T) {
	store, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	profile, err := store.GetProfile(context.Background(), "someone-else")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if profile.UserID != "someone-else" || profile.QuoteValidityDays != 30 {
		t.Fatalf("unexpected default profile %+v", profile)
	}
	if profile.DefaultVATRate == nil || *profile.DefaultVATRate != 20 {
		t.Fatalf("unexpected default VAT rate %v", profile.DefaultVATRate)
	}
}

func TestGetProfileNotFoundWithoutDefault(t *testing.T) {
	store, err := Parse([]byte("profiles: []\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := store.GetProfile(context.Background(), "u1"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseRejectsDuplicateUsers(t *testing.T) {
	raw := "profiles:\n  - user_id: u1\n  - user_id: u1\n"
	if _, err := Parse([]byte(raw)); err == nil {
		t.Fatalf("expected duplicate user error")
	}
}
