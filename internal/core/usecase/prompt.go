package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

const systemPromptRules = `Tu es un extracteur de données de documents commerciaux (devis, factures, contrats) rédigés pour des indépendants français.

Règles de sortie :
- Réponds UNIQUEMENT avec un objet JSON valide. Aucun texte avant ou après, aucune explication.
- Respecte exactement la structure demandée. N'ajoute aucun autre champ.
- Un champ introuvable vaut "" pour un texte, 0 pour un nombre et [] pour une liste.
- Les montants sont des nombres JSON : point décimal, sans symbole €, sans séparateur de milliers.
- Les taux de TVA sont exprimés en pourcentage (20 pour 20 %).
- Les dates sont au format AAAA-MM-JJ.
- N'invente rien. Pour chaque valeur incertaine, déduite ou absente, ajoute une phrase courte dans "warnings".`

var promptSkeletons = map[domain.DocumentKind]string{
	domain.KindImportDevis: `{
  "quoteNumber": "",
  "title": "",
  "dateIssue": "",
  "validityUntil": "",
  "seller": {"name": "", "addressLines": [], "siret": "", "vatNumber": "", "email": "", "phone": "", "iban": "", "bic": "", "bankName": ""},
  "buyer": {"name": "", "addressLines": [], "siret": "", "vatNumber": "", "email": "", "phone": ""},
  "lines": [{"label": "", "description": "", "qty": 0, "unitPriceHt": 0, "vatRate": 0}],
  "notes": "",
  "totals": {"totalHt": 0, "totalTva": 0, "totalTtc": 0},
  "warnings": []
}`,
	domain.KindImportFacture: `{
  "invoiceNumber": "",
  "dateIssue": "",
  "dueDate": "",
  "seller": {"name": "", "addressLines": [], "siret": "", "vatNumber": "", "email": "", "phone": "", "iban": "", "bic": "", "bankName": ""},
  "buyer": {"name": "", "addressLines": [], "siret": "", "vatNumber": "", "email": "", "phone": ""},
  "lines": [{"description": "", "qty": 0, "unitPrice": 0}],
  "totals": {"totalHt": 0, "totalTva": 0, "totalTtc": 0},
  "warnings": []
}`,
	domain.KindImportContrat: `{
  "title": "",
  "date": "",
  "contractText": "",
  "parties": {"sellerName": "", "buyerName": ""},
  "warnings": []
}`,
}

var promptHints = map[domain.DocumentKind]string{
	domain.KindImportDevis: `- "unitPriceHt" est le prix unitaire hors taxes, "vatRate" le taux de TVA de la ligne.
- "seller" est le prestataire qui émet le devis, "buyer" le client.
- Une adresse sur plusieurs lignes donne plusieurs éléments dans "addressLines", dans l'ordre du document.`,
	domain.KindImportFacture: `- "unitPrice" est le prix unitaire de la ligne tel qu'affiché.
- "seller" est le prestataire qui émet la facture, "buyer" le client.
- Si la facture mentionne "TVA non applicable", "totalTva" vaut 0.`,
	domain.KindImportContrat: `- "contractText" reprend le texte intégral des clauses, paragraphes séparés par une ligne vide.
- "parties.sellerName" est le prestataire, "parties.buyerName" le client.`,
}

// SystemPrompt is the fixed instruction for one import shape.
func SystemPrompt(kind domain.DocumentKind) string {
	kind = kind.ImportKind()
	var b strings.Builder
	b.WriteString(systemPromptRules)
	b.WriteString("\n\nType de document : ")
	b.WriteString(kind.Label())
	if hint := promptHints[kind]; hint != "" {
		b.WriteString("\n\nPrécisions :\n")
		b.WriteString(hint)
	}
	b.WriteString("\n\nStructure JSON attendue :\n")
	b.WriteString(promptSkeletons[kind])
	return b.String()
}

// UserPrompt carries the document kind and a bounded prefix of the source text.
func UserPrompt(kind domain.DocumentKind, text string, maxChars int) string {
	truncated, cut := truncateRunes(text, maxChars)
	var b strings.Builder
	fmt.Fprintf(&b, "Type de document : %s\n", kind.Label())
	if cut {
		fmt.Fprintf(&b, "Texte source (tronqué aux %d premiers caractères) :\n", maxChars)
	} else {
		b.WriteString("Texte source :\n")
	}
	b.WriteString("<<<\n")
	b.WriteString(truncated)
	b.WriteString("\n>>>\n")
	b.WriteString("Renvoie uniquement l'objet JSON.")
	return b.String()
}

func truncateRunes(s string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i], true
		}
		count++
	}
	return s, false
}
