package domain

import (
	"fmt"
	"strings"
)

// DocumentKind selects which schema applies to a payload.
type DocumentKind string

const (
	KindQuote         DocumentKind = "quote"
	KindInvoice       DocumentKind = "invoice"
	KindContract      DocumentKind = "contract"
	KindImportDevis   DocumentKind = "import_devis"
	KindImportFacture DocumentKind = "import_facture"
	KindImportContrat DocumentKind = "import_contrat"
)

var allKinds = []DocumentKind{
	KindQuote,
	KindInvoice,
	KindContract,
	KindImportDevis,
	KindImportFacture,
	KindImportContrat,
}

func AllKinds() []DocumentKind {
	out := make([]DocumentKind, len(allKinds))
	copy(out, allKinds)
	return out
}

func (k DocumentKind) Valid() bool {
	for _, known := range allKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsImport reports whether k is an extraction result shape.
func (k DocumentKind) IsImport() bool {
	switch k {
	case KindImportDevis, KindImportFacture, KindImportContrat:
		return true
	default:
		return false
	}
}

// ImportKind maps a renderable kind to its extraction result shape.
func (k DocumentKind) ImportKind() DocumentKind {
	switch k {
	case KindQuote:
		return KindImportDevis
	case KindInvoice:
		return KindImportFacture
	case KindContract:
		return KindImportContrat
	default:
		return k
	}
}

// DocumentKindFor maps an extraction result shape back to its renderable kind.
func (k DocumentKind) DocumentKindFor() DocumentKind {
	switch k {
	case KindImportDevis:
		return KindQuote
	case KindImportFacture:
		return KindInvoice
	case KindImportContrat:
		return KindContract
	default:
		return k
	}
}

// Label is the French document name used in titles and filenames.
func (k DocumentKind) Label() string {
	switch k.DocumentKindFor() {
	case KindQuote:
		return "Devis"
	case KindInvoice:
		return "Facture"
	case KindContract:
		return "Contrat"
	default:
		return "Document"
	}
}

// ParseKind accepts English and French aliases used by clients.
func ParseKind(raw string) (DocumentKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "quote", "devis":
		return KindQuote, nil
	case "invoice", "facture":
		return KindInvoice, nil
	case "contract", "contrat":
		return KindContract, nil
	case "import_devis", "importdevis":
		return KindImportDevis, nil
	case "import_facture", "importfacture":
		return KindImportFacture, nil
	case "import_contrat", "importcontrat":
		return KindImportContrat, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse document kind", fmt.Errorf("unknown kind %q", raw))
	}
}
