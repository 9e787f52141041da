package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/format"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
	"github.com/kirillkom/freelance-docs/internal/core/totals"
	"github.com/kirillkom/freelance-docs/internal/core/validation"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type RenderConfig struct {
	// InvoicePadding is applied only to demo renders and only when Enabled.
	InvoicePadding         domain.RowPadding
	VATNotApplicableNotice bool
}

// DocumentUseCase is the direct flow: seed defaults, validate, reconcile
// totals, then render or export.
type DocumentUseCase struct {
	validator *validation.Validator
	renderer  ports.DocumentRenderer
	exporter  ports.SpreadsheetExporter
	profiles  ports.ProfileStore
	logos     ports.LogoStore
	cfg       RenderConfig
	observer  ports.PipelineObserver
	logger    *slog.Logger
}

// NewDocumentUseCase wires the direct flow. exporter, profiles and logos may
// be nil.
func NewDocumentUseCase(
	validator *validation.Validator,
	renderer ports.DocumentRenderer,
	exporter ports.SpreadsheetExporter,
	profiles ports.ProfileStore,
	logos ports.LogoStore,
	cfg RenderConfig,
	observer ports.PipelineObserver,
	logger *slog.Logger,
) *DocumentUseCase {
	if observer == nil {
		observer = ports.NopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentUseCase{
		validator: validator,
		renderer:  renderer,
		exporter:  exporter,
		profiles:  profiles,
		logos:     logos,
		cfg:       cfg,
		observer:  observer,
		logger:    logger,
	}
}

func (uc *DocumentUseCase) Validate(ctx context.Context, identity domain.Identity, kind domain.DocumentKind, raw []byte) (domain.Document, error) {
	profile := uc.loadProfile(ctx, identity)
	return uc.prepare(kind, raw, profile)
}

func (uc *DocumentUseCase) Render(
	ctx context.Context,
	identity domain.Identity,
	kind domain.DocumentKind,
	raw []byte,
	mode domain.RenderMode,
) (*domain.RenderedDocument, error) {
	if kind.IsImport() || !kind.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "render", fmt.Errorf("kind %q cannot be rendered", kind))
	}

	ctx, span := tracer.Start(ctx, "render_document")
	defer span.End()
	span.SetAttributes(attribute.String("document_kind", string(kind)), attribute.String("render_mode", string(mode)))

	start := time.Now()
	rendered, err := uc.render(ctx, identity, kind, raw, mode)
	uc.observer.ObserveRender(kind, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.ErrorKindName(err))
		return nil, err
	}
	span.SetAttributes(attribute.Int("size_bytes", len(rendered.Content)))
	return rendered, nil
}

func (uc *DocumentUseCase) render(
	ctx context.Context,
	identity domain.Identity,
	kind domain.DocumentKind,
	raw []byte,
	mode domain.RenderMode,
) (*domain.RenderedDocument, error) {
	profile := uc.loadProfile(ctx, identity)
	doc, err := uc.prepare(kind, raw, profile)
	if err != nil {
		return nil, err
	}

	content, err := uc.renderer.Render(doc, uc.renderOptions(ctx, kind, mode, profile))
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}
	return &domain.RenderedDocument{
		Filename:    SuggestedFilename(doc, "pdf"),
		ContentType: ContentTypePDF,
		Content:     content,
	}, nil
}

func (uc *DocumentUseCase) Export(ctx context.Context, identity domain.Identity, kind domain.DocumentKind, raw []byte) (*domain.RenderedDocument, error) {
	if kind != domain.KindQuote && kind != domain.KindInvoice {
		return nil, domain.WrapError(domain.ErrInvalidInput, "export", fmt.Errorf("kind %q has no line items to export", kind))
	}
	if uc.exporter == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "export", errors.New("spreadsheet export is not wired"))
	}

	profile := uc.loadProfile(ctx, identity)
	doc, err := uc.prepare(kind, raw, profile)
	if err != nil {
		return nil, err
	}
	content, err := uc.exporter.Export(doc)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", kind, err)
	}
	return &domain.RenderedDocument{
		Filename:    SuggestedFilename(doc, "xlsx"),
		ContentType: ContentTypeXLSX,
		Content:     content,
	}, nil
}

func (uc *DocumentUseCase) prepare(kind domain.DocumentKind, raw []byte, profile *domain.Profile) (domain.Document, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return uc.validator.Validate(kind, raw)
	}
	doc, err := uc.validator.ValidateValue(kind, SeedFromProfile(kind, value, profile))
	if err != nil {
		return nil, err
	}
	return ReconcileTotals(doc)
}

// ReconcileTotals fills all-zero totals from the lines and rejects supplied
// totals that do not add up.
func ReconcileTotals(doc domain.Document) (domain.Document, error) {
	switch d := doc.(type) {
	case domain.QuoteDocument:
		t, err := reconcile(d.Kind(), d.Totals, func() domain.Totals { return totals.ComputeQuote(d.Lines) })
		d.Totals = t
		return d, err
	case domain.InvoiceDocument:
		t, err := reconcile(d.Kind(), d.Totals, func() domain.Totals { return totals.ComputeInvoice(d.Lines) })
		d.Totals = t
		return d, err
	default:
		return doc, nil
	}
}

func reconcile(kind domain.DocumentKind, supplied domain.Totals, compute func() domain.Totals) (domain.Totals, error) {
	if supplied.IsZero() {
		return compute(), nil
	}
	if !totals.Consistent(supplied) {
		return supplied, &domain.ValidationError{
			Kind: kind,
			Violations: []domain.FieldViolation{{
				Path:       "totals.totalTtc",
				Constraint: "consistency",
				Message: fmt.Sprintf("totalTtc %s must equal totalHt %s + totalTva %s",
					format.Money(supplied.TotalTTC), format.Money(supplied.TotalHT), format.Money(supplied.TotalTVA)),
			}},
		}
	}
	return supplied, nil
}

func (uc *DocumentUseCase) renderOptions(ctx context.Context, kind domain.DocumentKind, mode domain.RenderMode, profile *domain.Profile) domain.RenderOptions {
	opts := domain.RenderOptions{VATNotApplicableNotice: uc.cfg.VATNotApplicableNotice}
	if kind == domain.KindInvoice && mode == domain.RenderModeDemo && uc.cfg.InvoicePadding.Enabled {
		opts.InvoicePadding = uc.cfg.InvoicePadding
	}
	if profile == nil {
		return opts
	}

	opts.VATNotApplicableNotice = opts.VATNotApplicableNotice || profile.VATNotApplicable
	opts.Footer = domain.FooterText{
		PaymentTerms:  profile.PaymentTerms,
		LatePenalty:   profile.LatePenaltyNotice,
		LegalMentions: profile.LegalMentions,
	}
	if profile.LogoRef != "" && uc.logos != nil {
		logo, err := uc.logos.OpenLogo(ctx, profile.LogoRef)
		if err != nil {
			uc.logger.Warn("logo_unavailable", "logo_ref", profile.LogoRef, "error", err.Error())
		} else {
			opts.Logo = logo
		}
	}
	return opts
}

// loadProfile never fails: a missing or unreachable profile means schema
// defaults only.
func (uc *DocumentUseCase) loadProfile(ctx context.Context, identity domain.Identity) *domain.Profile {
	if uc.profiles == nil || identity.Anonymous || identity.UserID == "" {
		return nil
	}
	profile, err := uc.profiles.GetProfile(ctx, identity.UserID)
	if err != nil {
		if !domain.IsKind(err, domain.ErrNotFound) {
			uc.logger.Warn("profile_unavailable", "user_id", identity.UserID, "error", err.Error())
		}
		return nil
	}
	return profile
}

// SuggestedFilename is <DocKind>-<number-or-date>.<ext>.
func SuggestedFilename(doc domain.Document, ext string) string {
	ref := domain.Reference(doc)
	if ref == "" {
		return doc.Kind().Label() + "." + ext
	}
	return doc.Kind().Label() + "-" + sanitizeFilename(strings.ReplaceAll(ref, "/", "-")) + "." + ext
}
