package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/validation"
)

type rendererFake struct {
	doc  domain.Document
	opts domain.RenderOptions
	err  error
}

func (f *rendererFake) Render(doc domain.Document, opts domain.RenderOptions) ([]byte, error) {
	f.doc = doc
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-fake"), nil
}

type exporterFake struct {
	doc domain.Document
}

func (f *exporterFake) Export(doc domain.Document) ([]byte, error) {
	f.doc = doc
	return []byte("PK"), nil
}

type profileStoreFake struct {
	profile *domain.Profile
	err     error
	calls   int
}

func (f *profileStoreFake) GetProfile(context.Context, string) (*domain.Profile, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.profile == nil {
		return nil, domain.WrapError(domain.ErrNotFound, "get profile", errors.New("no rows"))
	}
	return f.profile, nil
}

type logoStoreFake struct {
	logo *domain.Logo
	err  error
}

func (f *logoStoreFake) OpenLogo(context.Context, string) (*domain.Logo, error) {
	return f.logo, f.err
}

var user = domain.Identity{UserID: "u-1"}

const scenarioQuote = `{
	"quoteNumber": "D001",
	"dateIssue": "2026-01-10",
	"validityUntil": "2026-02-09",
	"seller": {"name": "Jean Dupont"},
	"buyer": {"name": "ACME"},
	"lines": [{"label": "Dev", "qty": 2, "unitPriceHt": 500, "vatRate": 20}]
}`

type documentDeps struct {
	renderer *rendererFake
	exporter *exporterFake
	profiles *profileStoreFake
	logos    *logoStoreFake
	observer *observerFake
}

func newDocumentUseCase(t *testing.T, cfg RenderConfig) (*DocumentUseCase, *documentDeps) {
	t.Helper()
	v, err := validation.New()
	require.NoError(t, err)
	deps := &documentDeps{
		renderer: &rendererFake{},
		exporter: &exporterFake{},
		profiles: &profileStoreFake{},
		logos:    &logoStoreFake{},
		observer: &observerFake{},
	}
	uc := NewDocumentUseCase(v, deps.renderer, deps.exporter, deps.profiles, deps.logos, cfg, deps.observer, nil)
	return uc, deps
}

func TestRenderQuoteHappyPath(t *testing.T) {
	uc, deps := newDocumentUseCase(t, RenderConfig{})

	rendered, err := uc.Render(context.Background(), user, domain.KindQuote, []byte(scenarioQuote), domain.RenderModeStandard)
	require.NoError(t, err)

	assert.Equal(t, "Devis-D001.pdf", rendered.Filename)
	assert.Equal(t, ContentTypePDF, rendered.ContentType)
	quote := deps.renderer.doc.(domain.QuoteDocument)
	assert.Equal(t, domain.Totals{TotalHT: 1000, TotalTVA: 200, TotalTTC: 1200}, quote.Totals)
	assert.Equal(t, 1, deps.observer.renders)
	assert.NoError(t, deps.observer.lastErr)
}

func TestRenderInvoiceMissingNumberProducesNoPDF(t *testing.T) {
	uc, deps := newDocumentUseCase(t, RenderConfig{})

	_, err := uc.Render(context.Background(), user, domain.KindInvoice, []byte(`{
		"dateIssue": "2026-01-10",
		"seller": {"name": "Jean Dupont"},
		"buyer": {"name": "ACME"},
		"lines": [{"description": "Dev", "qty": 1, "unitPrice": 100}]
	}`), domain.RenderModeStandard)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
	assert.Equal(t, "InputValidationError", domain.ErrorKindName(err))
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "invoiceNumber", ve.Violations[0].Path)
	assert.Nil(t, deps.renderer.doc, "renderer must not be called")
}

func TestRenderRejectsInconsistentTotals(t *testing.T) {
	uc, deps := newDocumentUseCase(t, RenderConfig{})

	_, err := uc.Render(context.Background(), user, domain.KindQuote, []byte(`{
		"quoteNumber": "D002",
		"dateIssue": "2026-01-10",
		"seller": {"name": "Jean"},
		"buyer": {"name": "ACME"},
		"lines": [{"label": "Dev", "qty": 1, "unitPriceHt": 100, "vatRate": 20}],
		"totals": {"totalHt": 100, "totalTva": 20, "totalTtc": 150}
	}`), domain.RenderModeStandard)
	require.Error(t, err)
	ve, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "totals.totalTtc", ve.Violations[0].Path)
	assert.Nil(t, deps.renderer.doc)
}

func TestRenderKeepsConsistentSuppliedTotals(t *testing.T) {
	uc, deps := newDocumentUseCase(t, RenderConfig{})

	_, err := uc.Render(context.Background(), user, domain.KindInvoice, []byte(`{
		"invoiceNumber": "F001",
		"dateIssue": "2026-01-10",
		"seller": {"name": "Jean"},
		"buyer": {"name": "ACME"},
		"lines": [{"description": "Dev", "qty": 1, "unitPrice": 100}],
		"totals": {"totalHt": 100, "totalTva": 20, "totalTtc": 120}
	}`), domain.RenderModeStandard)
	require.NoError(t, err)
	assert.Equal(t, 20.0, deps.renderer.doc.(domain.InvoiceDocument).Totals.TotalTVA)
}

func TestRenderSeedsProfileDefaults(t *testing.T) {
	uc, deps := newDocumentUseCase(t, RenderConfig{})
	vat := 20.0
	deps.profiles.profile = &domain.Profile{
		UserID:            "u-1",
		Seller:            domain.Party{Name: "Jean Dupont", AddressLines: []string{"1 rue de la Paix"}, Siret: "12345678900011"},
		DefaultVATRate:    &vat,
		QuoteValidityDays: 30,
		PaymentTerms:      "Paiement à 30 jours.",
		VATNotApplicable:  true,
	}

	_, err := uc.Render(context.Background(), user, domain.KindQuote, []byte(`{
		"quoteNumber": "D003",
		"dateIssue": "2026-01-10",
		"seller": {"siret": "99999999900011"},
		"buyer": {"name": "ACME"},
		"lines": [{"label": "Dev", "qty": 1, "unitPriceHt": 100}, {"label": "Formation", "qty": 1, "unitPriceHt": 100, "vatRate": 0}]
	}`), domain.RenderModeStandard)
	require.NoError(t, err)

	quote := deps.renderer.doc.(domain.QuoteDocument)
	assert.Equal(t, "Jean Dupont", quote.Seller.Name)
	assert.Equal(t, "99999999900011", quote.Seller.Siret, "caller value wins")
	assert.Equal(t, []string{"1 rue de la Paix"}, quote.Seller.AddressLines)
	assert.Equal(t, "2026-02-09", quote.ValidityUntil)
	assert.Equal(t, 20.0, quote.Lines[0].VATRate)
	assert.Equal(t, 0.0, quote.Lines[1].VATRate, "explicit zero is kept")
	assert.Equal(t, 220.0, quote.Totals.TotalTTC)
	assert.Equal(t, "Paiement à 30 jours.", deps.renderer.opts.Footer.PaymentTerms)
	assert.True(t, deps.renderer.opts.VATNotApplicableNotice)
}

func TestRenderDegradesWithoutProfileOrLogo(t *testing.T) {
	uc, deps := newDocumentUseCase(t, RenderConfig{})
	deps.profiles.err = errors.New("connection refused")

	_, err := uc.Render(context.Background(), user, domain.KindQuote, []byte(scenarioQuote), domain.RenderModeStandard)
	require.NoError(t, err)
	assert.Nil(t, deps.renderer.opts.Logo)

	deps.profiles.err = nil
	deps.profiles.profile = &domain.Profile{UserID: "u-1", LogoRef: "logos/u-1.png"}
	deps.logos.err = errors.New("object not found")

	_, err = uc.Render(context.Background(), user, domain.KindQuote, []byte(scenarioQuote), domain.RenderModeStandard)
	require.NoError(t, err)
	assert.Nil(t, deps.renderer.opts.Logo)

	deps.logos.err = nil
	deps.logos.logo = &domain.Logo{Data: []byte{1}, ContentType: "image/png"}
	_, err = uc.Render(context.Background(), user, domain.KindQuote, []byte(scenarioQuote), domain.RenderModeStandard)
	require.NoError(t, err)
	assert.NotNil(t, deps.renderer.opts.Logo)
}

func TestRenderAnonymousSkipsProfileStore(t *testing.T) {
	uc, deps := newDocumentUseCase(t, RenderConfig{})

	_, err := uc.Render(context.Background(), domain.Identity{Anonymous: true}, domain.KindQuote, []byte(scenarioQuote), domain.RenderModeStandard)
	require.NoError(t, err)
	assert.Equal(t, 0, deps.profiles.calls)
}

func TestInvoicePaddingIsConfigAndModeGated(t *testing.T) {
	invoice := []byte(`{
		"invoiceNumber": "F001",
		"dateIssue": "2026-01-10",
		"seller": {"name": "Jean"},
		"buyer": {"name": "ACME"},
		"lines": [{"description": "Dev", "qty": 1, "unitPrice": 100}]
	}`)
	padding := domain.RowPadding{Enabled: true, MinRows: 5, MaxRows: 8}

	enabled, deps := newDocumentUseCase(t, RenderConfig{InvoicePadding: padding})
	_, err := enabled.Render(context.Background(), user, domain.KindInvoice, invoice, domain.RenderModeDemo)
	require.NoError(t, err)
	assert.Equal(t, padding, deps.renderer.opts.InvoicePadding)

	_, err = enabled.Render(context.Background(), user, domain.KindInvoice, invoice, domain.RenderModeStandard)
	require.NoError(t, err)
	assert.False(t, deps.renderer.opts.InvoicePadding.Enabled, "standard mode never pads")

	disabled, deps := newDocumentUseCase(t, RenderConfig{InvoicePadding: domain.RowPadding{MinRows: 5, MaxRows: 8}})
	_, err = disabled.Render(context.Background(), user, domain.KindInvoice, invoice, domain.RenderModeDemo)
	require.NoError(t, err)
	assert.False(t, deps.renderer.opts.InvoicePadding.Enabled, "demo mode pads only when configured")
}

func TestRenderRejectsImportKinds(t *testing.T) {
	uc, _ := newDocumentUseCase(t, RenderConfig{})

	_, err := uc.Render(context.Background(), user, domain.KindImportDevis, []byte(`{}`), domain.RenderModeStandard)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
}

func TestRenderContractFilenameUsesDate(t *testing.T) {
	uc, deps := newDocumentUseCase(t, RenderConfig{})
	deps.profiles.profile = &domain.Profile{DefaultContractTitle: "Contrat de prestation", Seller: domain.Party{Name: "Jean Dupont"}}

	rendered, err := uc.Render(context.Background(), user, domain.KindContract,
		[]byte(`{"date": "2026-03-01", "contractText": "Article 1. Objet."}`), domain.RenderModeStandard)
	require.NoError(t, err)
	assert.Equal(t, "Contrat-2026-03-01.pdf", rendered.Filename)

	contract := deps.renderer.doc.(domain.ContractDocument)
	assert.Equal(t, "Contrat de prestation", contract.Title)
	assert.Equal(t, "Jean Dupont", contract.Parties.SellerName)
}

func TestExportQuote(t *testing.T) {
	uc, deps := newDocumentUseCase(t, RenderConfig{})

	out, err := uc.Export(context.Background(), user, domain.KindQuote, []byte(scenarioQuote))
	require.NoError(t, err)
	assert.Equal(t, "Devis-D001.xlsx", out.Filename)
	assert.Equal(t, ContentTypeXLSX, out.ContentType)
	assert.Equal(t, 1200.0, deps.exporter.doc.(domain.QuoteDocument).Totals.TotalTTC)

	_, err = uc.Export(context.Background(), user, domain.KindContract, []byte(`{"contractText": "x"}`))
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
}

func TestValidateAppliesDefaultsAndTotals(t *testing.T) {
	uc, _ := newDocumentUseCase(t, RenderConfig{})

	doc, err := uc.Validate(context.Background(), user, domain.KindQuote, []byte(scenarioQuote))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, doc.(domain.QuoteDocument).Totals.TotalHT)

	_, err = uc.Validate(context.Background(), user, domain.KindQuote, []byte(`{"quoteNumber":`))
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
}

func TestSuggestedFilename(t *testing.T) {
	assert.Equal(t, "Facture-F-2026-001.pdf", SuggestedFilename(domain.InvoiceDocument{InvoiceNumber: "F/2026/001"}, "pdf"))
	assert.Equal(t, "Devis-2026-01-10.pdf", SuggestedFilename(domain.QuoteDocument{DateIssue: "2026-01-10"}, "pdf"))
	assert.Equal(t, "Contrat.pdf", SuggestedFilename(domain.ContractDocument{}, "pdf"))
}
