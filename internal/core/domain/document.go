package domain

// Party is a seller or buyer block.
type Party struct {
	Name         string   `json:"name" yaml:"name"`
	AddressLines []string `json:"addressLines" yaml:"addressLines"`
	Siret        string   `json:"siret" yaml:"siret"`
	VATNumber    string   `json:"vatNumber" yaml:"vatNumber"`
	Email        string   `json:"email" yaml:"email"`
	Phone        string   `json:"phone" yaml:"phone"`
	IBAN         string   `json:"iban" yaml:"iban"`
	BIC          string   `json:"bic" yaml:"bic"`
	BankName     string   `json:"bankName" yaml:"bankName"`
}

// QuoteLine carries its own VAT rate in percent.
type QuoteLine struct {
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	UnitPriceHT float64 `json:"unitPriceHt"`
	VATRate     float64 `json:"vatRate"`
}

type InvoiceLine struct {
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	UnitPrice   float64 `json:"unitPrice"`
}

type Totals struct {
	TotalHT  float64 `json:"totalHt"`
	TotalTVA float64 `json:"totalTva"`
	TotalTTC float64 `json:"totalTtc"`
}

func (t Totals) IsZero() bool {
	return t.TotalHT == 0 && t.TotalTVA == 0 && t.TotalTTC == 0
}

type QuoteDocument struct {
	QuoteNumber   string      `json:"quoteNumber"`
	Title         string      `json:"title"`
	DateIssue     string      `json:"dateIssue"`
	ValidityUntil string      `json:"validityUntil"`
	Seller        Party       `json:"seller"`
	Buyer         Party       `json:"buyer"`
	Lines         []QuoteLine `json:"lines"`
	Notes         string      `json:"notes"`
	Totals        Totals      `json:"totals"`
}

type InvoiceDocument struct {
	InvoiceNumber string        `json:"invoiceNumber"`
	DateIssue     string        `json:"dateIssue"`
	DueDate       string        `json:"dueDate"`
	Seller        Party         `json:"seller"`
	Buyer         Party         `json:"buyer"`
	Lines         []InvoiceLine `json:"lines"`
	Totals        Totals        `json:"totals"`
}

type ContractParties struct {
	SellerName string `json:"sellerName"`
	BuyerName  string `json:"buyerName"`
}

const DefaultContractTitle = "Contrat"

type ContractDocument struct {
	Title        string          `json:"title"`
	Date         string          `json:"date"`
	ContractText string          `json:"contractText"`
	Parties      ContractParties `json:"parties"`
}

// ImportDevis is the best-effort quote reconstruction returned by extraction.
type ImportDevis struct {
	QuoteDocument
	Warnings []string `json:"warnings"`
}

type ImportFacture struct {
	InvoiceDocument
	Warnings []string `json:"warnings"`
}

type ImportContrat struct {
	ContractDocument
	Warnings []string `json:"warnings"`
}

// Document is any validated payload the core hands around.
type Document interface {
	Kind() DocumentKind
}

func (QuoteDocument) Kind() DocumentKind    { return KindQuote }
func (InvoiceDocument) Kind() DocumentKind  { return KindInvoice }
func (ContractDocument) Kind() DocumentKind { return KindContract }
func (ImportDevis) Kind() DocumentKind      { return KindImportDevis }
func (ImportFacture) Kind() DocumentKind    { return KindImportFacture }
func (ImportContrat) Kind() DocumentKind    { return KindImportContrat }

// Reference is the number-or-date part of a suggested filename.
func Reference(doc Document) string {
	switch d := doc.(type) {
	case QuoteDocument:
		return firstNonEmpty(d.QuoteNumber, d.DateIssue)
	case InvoiceDocument:
		return firstNonEmpty(d.InvoiceNumber, d.DateIssue)
	case ContractDocument:
		return d.Date
	case ImportDevis:
		return Reference(d.QuoteDocument)
	case ImportFacture:
		return Reference(d.InvoiceDocument)
	case ImportContrat:
		return Reference(d.ContractDocument)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
