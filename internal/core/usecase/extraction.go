package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
	"github.com/kirillkom/freelance-docs/internal/core/validation"
)

var tracer = otel.Tracer("github.com/kirillkom/freelance-docs/internal/core/usecase")

const (
	defaultMaxInputChars   = 12000
	defaultMaxOutputTokens = 4096
	defaultModelTimeout    = 60 * time.Second
	defaultSnippetChars    = 500

	attemptSuccess     = "success"
	attemptFailed      = "failed"
	attemptTimeout     = "timeout"
	attemptEmpty       = "empty"
	attemptMisconfig   = "misconfigured"
	attemptInterrupted = "cancelled"
)

type ExtractionConfig struct {
	// Models is the ordered fallback list; earlier entries are preferred.
	Models          []string
	MaxOutputTokens int
	MaxInputChars   int
	ModelTimeout    time.Duration
	SnippetChars    int
}

// ExtractionUseCase drives a language model to turn raw text into a
// validated import result.
type ExtractionUseCase struct {
	text      *TextExtractionUseCase
	model     ports.LanguageModel
	validator *validation.Validator
	cfg       ExtractionConfig
	observer  ports.PipelineObserver
	logger    *slog.Logger
}

func NewExtractionUseCase(
	text *TextExtractionUseCase,
	model ports.LanguageModel,
	validator *validation.Validator,
	cfg ExtractionConfig,
	observer ports.PipelineObserver,
	logger *slog.Logger,
) *ExtractionUseCase {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = defaultMaxInputChars
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultMaxOutputTokens
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = defaultModelTimeout
	}
	if cfg.SnippetChars <= 0 {
		cfg.SnippetChars = defaultSnippetChars
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionUseCase{
		text:      text,
		model:     model,
		validator: validator,
		cfg:       cfg,
		observer:  observer,
		logger:    logger,
	}
}

func (uc *ExtractionUseCase) ExtractFromFile(ctx context.Context, kind domain.DocumentKind, data []byte, mimeType string) (*domain.ExtractionOutcome, error) {
	if _, err := importKindOf(kind); err != nil {
		return nil, err
	}
	if uc.text == nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "extract from file", errors.New("text extraction is not wired"))
	}
	text, err := uc.text.ExtractText(ctx, data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return uc.ExtractFromText(ctx, kind, text)
}

func (uc *ExtractionUseCase) ExtractFromText(ctx context.Context, kind domain.DocumentKind, text string) (*domain.ExtractionOutcome, error) {
	importKind, err := importKindOf(kind)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "structured_extraction")
	defer span.End()
	span.SetAttributes(attribute.String("document_kind", string(importKind)))

	start := time.Now()
	outcome, err := uc.extract(ctx, importKind, text)
	uc.observer.ObserveExtraction(importKind, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.ErrorKindName(err))
		return nil, err
	}
	return outcome, nil
}

func (uc *ExtractionUseCase) extract(ctx context.Context, kind domain.DocumentKind, text string) (*domain.ExtractionOutcome, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewFailure(domain.ErrInsufficientText, domain.ReasonNoExtractableText,
			"Aucun texte à analyser.", nil)
	}
	if uc.model == nil || len(uc.cfg.Models) == 0 {
		return nil, domain.NewFailure(domain.ErrConfiguration, domain.ReasonModelNotConfigured,
			"Aucun modèle d'IA n'est configuré pour l'import.", nil)
	}

	req := ports.GenerateRequest{
		SystemPrompt:    SystemPrompt(kind),
		UserPrompt:      UserPrompt(kind, text, uc.cfg.MaxInputChars),
		MaxOutputTokens: uc.cfg.MaxOutputTokens,
	}

	raw, err := uc.generateWithFallback(ctx, req)
	if err != nil {
		return nil, err
	}

	cleaned := StripCodeFences(raw)
	value, err := parseObject(cleaned)
	if err != nil {
		failure := domain.NewFailure(domain.ErrUpstreamShape, domain.ReasonNonDataResponse,
			"L'IA a renvoyé une réponse qui n'est pas un objet JSON.", err)
		failure.Snippet = Snippet(cleaned, uc.cfg.SnippetChars)
		uc.logger.Debug("model_non_data_response", "kind", kind, "snippet", failure.Snippet)
		return nil, failure
	}

	doc, err := uc.validator.ValidateValue(kind, CoercePayload(value))
	if err != nil {
		failure := domain.NewFailure(domain.ErrUpstreamShape, domain.ReasonSchemaMismatch,
			"La réponse de l'IA ne respecte pas la structure attendue.", err)
		failure.Snippet = Snippet(cleaned, uc.cfg.SnippetChars)
		return nil, failure
	}
	return &domain.ExtractionOutcome{Kind: kind, Data: doc}, nil
}

// generateWithFallback walks the model list in order and returns the first
// non-empty response.
func (uc *ExtractionUseCase) generateWithFallback(ctx context.Context, req ports.GenerateRequest) (string, error) {
	var lastErr error
	allTimedOut := true
	for i, model := range uc.cfg.Models {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("model fallback interrupted: %w", err)
		}

		out, outcome, err := uc.attempt(ctx, model, req)
		uc.observer.ObserveModelAttempt(model, outcome)
		if err == nil {
			return out, nil
		}
		if outcome == attemptInterrupted {
			return "", fmt.Errorf("model fallback interrupted: %w", err)
		}
		if outcome == attemptMisconfig {
			return "", domain.NewFailure(domain.ErrConfiguration, domain.ReasonModelNotConfigured,
				"Le fournisseur d'IA est mal configuré (clé ou point d'accès).", err)
		}

		uc.logger.Warn("model_attempt_failed",
			"model", model,
			"attempt", i+1,
			"of", len(uc.cfg.Models),
			"outcome", outcome,
			"error", err.Error(),
		)
		if outcome != attemptTimeout {
			allTimedOut = false
		}
		lastErr = err
	}

	if allTimedOut {
		return "", domain.NewFailure(domain.ErrUpstreamTimeout, domain.ReasonUpstreamTimeout,
			"Le service d'IA n'a pas répondu à temps.", lastErr)
	}
	return "", domain.NewFailure(domain.ErrUpstreamUnavailable, domain.ReasonModelsUnavailable,
		"Le service d'IA est indisponible pour le moment.", lastErr)
}

func (uc *ExtractionUseCase) attempt(ctx context.Context, model string, req ports.GenerateRequest) (string, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.ModelTimeout)
	defer cancel()

	callCtx, span := tracer.Start(callCtx, "model_attempt")
	defer span.End()
	span.SetAttributes(attribute.String("model", model))

	req.Model = model
	out, err := uc.model.Generate(callCtx, req)
	switch {
	case err == nil && strings.TrimSpace(out) == "":
		err = domain.WrapError(domain.ErrUpstreamUnavailable, "generate "+model, errors.New("empty response"))
		span.SetStatus(codes.Error, attemptEmpty)
		return "", attemptEmpty, err
	case err == nil:
		span.SetAttributes(attribute.Int("response_chars", len(out)))
		return out, attemptSuccess, nil
	}

	span.RecordError(err)
	switch {
	case ctx.Err() != nil:
		span.SetStatus(codes.Error, attemptInterrupted)
		return "", attemptInterrupted, err
	case domain.IsKind(err, domain.ErrConfiguration):
		span.SetStatus(codes.Error, attemptMisconfig)
		return "", attemptMisconfig, err
	case errors.Is(callCtx.Err(), context.DeadlineExceeded) || domain.IsKind(err, domain.ErrUpstreamTimeout):
		span.SetStatus(codes.Error, attemptTimeout)
		return "", attemptTimeout, domain.WrapError(domain.ErrUpstreamTimeout, "generate "+model, err)
	default:
		span.SetStatus(codes.Error, attemptFailed)
		return "", attemptFailed, fmt.Errorf("generate %s: %w", model, err)
	}
}

func importKindOf(kind domain.DocumentKind) (domain.DocumentKind, error) {
	importKind := kind.ImportKind()
	if !importKind.IsImport() {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract", fmt.Errorf("unsupported document kind %q", kind))
	}
	return importKind, nil
}

// StripCodeFences removes a surrounding ``` block, with or without a
// language tag. Text outside the fences is kept as is.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\ufeff"))
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexAny(s, "\n{["); idx >= 0 && isLanguageTag(s[:idx]) {
		s = s[idx:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isLanguageTag(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func parseObject(cleaned string) (map[string]any, error) {
	if cleaned == "" {
		return nil, errors.New("empty response")
	}
	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("model response is a %T, not an object", value)
	}
	return obj, nil
}

// Snippet bounds diagnostic text to max runes.
func Snippet(s string, max int) string {
	out, cut := truncateRunes(s, max)
	if cut {
		return out + "…"
	}
	return out
}
