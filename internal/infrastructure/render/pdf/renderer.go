package pdf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/format"
)

// Config controls document metadata. Identical input and Config give identical bytes.
type Config struct {
	// CreationDate is stamped into the PDF info dictionary instead of the wall clock.
	CreationDate       time.Time
	Creator            string
	DisableCompression bool
}

// DefaultCreationDate keeps output reproducible when no date is configured.
var DefaultCreationDate = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

type Renderer struct {
	cfg Config
}

func NewRenderer(cfg Config) *Renderer {
	if cfg.CreationDate.IsZero() {
		cfg.CreationDate = DefaultCreationDate
	}
	if cfg.Creator == "" {
		cfg.Creator = "freelance-docs"
	}
	return &Renderer{cfg: cfg}
}

func (r *Renderer) Render(doc domain.Document, opts domain.RenderOptions) ([]byte, error) {
	var (
		c   *canvas
		err error
	)
	switch d := doc.(type) {
	case domain.QuoteDocument:
		c, err = r.buildQuote(d, opts)
	case *domain.QuoteDocument:
		c, err = r.buildQuote(*d, opts)
	case domain.InvoiceDocument:
		c, err = r.buildInvoice(d, opts)
	case *domain.InvoiceDocument:
		c, err = r.buildInvoice(*d, opts)
	case domain.ContractDocument:
		c, err = r.buildContract(d, opts)
	case *domain.ContractDocument:
		c, err = r.buildContract(*d, opts)
	default:
		return nil, domain.WrapError(domain.ErrRenderingPrecondition, "render", fmt.Errorf("no template for %T", doc))
	}
	if err != nil {
		return nil, err
	}
	out, err := c.bytes()
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", doc.Kind(), err)
	}
	return out, nil
}

func precondition(kind domain.DocumentKind, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return domain.WrapError(
		domain.ErrRenderingPrecondition,
		"render "+string(kind),
		errors.New(strings.Join(problems, "; ")),
	)
}

func requireText(problems []string, field, value string) []string {
	if strings.TrimSpace(value) == "" {
		return append(problems, field+" is empty")
	}
	return problems
}

func requireDate(problems []string, field, value string) []string {
	if _, ok := format.ParseISODate(value); !ok {
		return append(problems, field+" is not a YYYY-MM-DD date")
	}
	return problems
}

func optionalDate(problems []string, field, value string) []string {
	if value == "" {
		return problems
	}
	return requireDate(problems, field, value)
}

// formatQty prints quantities without trailing zeros: 2, 0,5, 1,25.
func formatQty(qty float64) string {
	d := decimal.NewFromFloat(qty).Round(3)
	return strings.Replace(d.String(), ".", ",", 1)
}
