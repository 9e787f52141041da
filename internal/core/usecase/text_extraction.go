package usecase

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
)

const (
	TextSourceTextLayer = "text_layer"
	TextSourceOCR       = "ocr"
	TextSourcePlain     = "plain"

	defaultTextLayerMinChars = 50
	defaultTextMinChars      = 20
	defaultOCRTimeout        = 60 * time.Second
)

type TextExtractionConfig struct {
	// TextLayerMinChars is the length under which a PDF text layer counts as absent.
	TextLayerMinChars int
	// MinChars is the absolute floor applied to the final text, whatever the path.
	MinChars   int
	OCRTimeout time.Duration
}

type sourceFormat int

const (
	formatUnsupported sourceFormat = iota
	formatPDF
	formatImage
	formatPlainText
)

var ocrImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
	"image/jpg":  {},
	"image/gif":  {},
	"image/tiff": {},
	"image/bmp":  {},
	"image/webp": {},
}

// TextExtractionUseCase turns an uploaded file into raw text: PDF text layer
// first, OCR when the layer is missing or the file is an image.
type TextExtractionUseCase struct {
	pdf      ports.PDFTextReader
	ocr      ports.OCRBackend
	cfg      TextExtractionConfig
	observer ports.PipelineObserver
}

// NewTextExtractionUseCase builds the front-end. ocr may be nil when no OCR
// backend is configured.
func NewTextExtractionUseCase(
	pdf ports.PDFTextReader,
	ocr ports.OCRBackend,
	cfg TextExtractionConfig,
	observer ports.PipelineObserver,
) *TextExtractionUseCase {
	if cfg.TextLayerMinChars <= 0 {
		cfg.TextLayerMinChars = defaultTextLayerMinChars
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = defaultTextMinChars
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = defaultOCRTimeout
	}
	if observer == nil {
		observer = ports.NopObserver{}
	}
	return &TextExtractionUseCase{pdf: pdf, ocr: ocr, cfg: cfg, observer: observer}
}

// OCREnabled reports whether an OCR backend is wired.
func (uc *TextExtractionUseCase) OCREnabled() bool {
	return uc.ocr != nil
}

func (uc *TextExtractionUseCase) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	ctx, span := tracer.Start(ctx, "text_extraction")
	defer span.End()

	mimeType = normalizeMimeType(mimeType, data)
	span.SetAttributes(attribute.String("mime_type", mimeType), attribute.Int("size_bytes", len(data)))

	text, source, err := uc.extract(ctx, data, mimeType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.ErrorKindName(err))
		return "", err
	}
	span.SetAttributes(attribute.String("text_source", source), attribute.Int("text_chars", utf8.RuneCountInString(text)))
	uc.observer.ObserveTextSource(source)
	return text, nil
}

func (uc *TextExtractionUseCase) extract(ctx context.Context, data []byte, mimeType string) (string, string, error) {
	switch classifyFormat(mimeType) {
	case formatPlainText:
		if !utf8.Valid(data) {
			return "", "", domain.NewFailure(domain.ErrInvalidInput, domain.ReasonUnsupportedFormat,
				"Le fichier texte n'est pas encodé en UTF-8.", nil)
		}
		return uc.finalCheck(NormalizeText(string(data)), TextSourcePlain)

	case formatPDF:
		layer, err := uc.pdf.ReadText(ctx, data)
		if err != nil {
			// An unreadable text layer is treated like a scanned PDF.
			layer = ""
		}
		layer = NormalizeText(layer)
		if utf8.RuneCountInString(layer) >= uc.cfg.TextLayerMinChars {
			return uc.finalCheck(layer, TextSourceTextLayer)
		}
		if uc.ocr == nil {
			return "", "", domain.NewFailure(domain.ErrInsufficientText, domain.ReasonScannedPDFNoOCR,
				"Ce PDF ne contient pas de texte exploitable (document scanné) et la reconnaissance de caractères n'est pas configurée.", nil)
		}
		text, err := uc.recognize(ctx, data, mimeType)
		if err != nil {
			return "", "", err
		}
		if utf8.RuneCountInString(layer) > utf8.RuneCountInString(text) {
			return uc.finalCheck(layer, TextSourceTextLayer)
		}
		return uc.finalCheck(text, TextSourceOCR)

	case formatImage:
		if uc.ocr == nil {
			return "", "", domain.NewFailure(domain.ErrConfiguration, domain.ReasonImageWithoutOCR,
				"L'import depuis une image n'est pas encore disponible : la reconnaissance de caractères n'est pas configurée.", nil)
		}
		text, err := uc.recognize(ctx, data, mimeType)
		if err != nil {
			return "", "", err
		}
		return uc.finalCheck(text, TextSourceOCR)

	default:
		return "", "", domain.NewFailure(domain.ErrInvalidInput, domain.ReasonUnsupportedFormat,
			fmt.Sprintf("Format de fichier non pris en charge (%s). Formats acceptés : PDF, PNG, JPEG, TIFF, texte.", displayMime(mimeType)), nil)
	}
}

func (uc *TextExtractionUseCase) recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.cfg.OCRTimeout)
	defer cancel()

	text, err := uc.ocr.Recognize(ctx, ports.OCRRequest{Data: data, MimeType: mimeType})
	if err != nil {
		return "", classifyOCRError(ctx, err)
	}
	return NormalizeText(text), nil
}

func (uc *TextExtractionUseCase) finalCheck(text, source string) (string, string, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < uc.cfg.MinChars {
		return "", "", domain.NewFailure(domain.ErrInsufficientText, domain.ReasonNoExtractableText,
			"Aucun texte exploitable n'a pu être extrait de ce document.", nil)
	}
	return text, source, nil
}

func classifyOCRError(ctx context.Context, err error) error {
	switch {
	case domain.IsKind(err, domain.ErrConfiguration):
		return domain.NewFailure(domain.ErrConfiguration, domain.ReasonOCRConfiguration,
			"La reconnaissance de caractères est mal configurée (identifiants ou processeur).", err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || domain.IsKind(err, domain.ErrUpstreamTimeout):
		return domain.NewFailure(domain.ErrUpstreamTimeout, domain.ReasonUpstreamTimeout,
			"Le service de reconnaissance de caractères n'a pas répondu à temps.", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("ocr: %w", err)
	case domain.IsKind(err, domain.ErrInvalidInput):
		return domain.NewFailure(domain.ErrInvalidInput, domain.ReasonUnsupportedFormat,
			"Le service de reconnaissance de caractères a refusé ce fichier.", err)
	default:
		return domain.NewFailure(domain.ErrUpstreamUnavailable, domain.ReasonOCRFailed,
			"Le service de reconnaissance de caractères est indisponible.", err)
	}
}

func classifyFormat(mimeType string) sourceFormat {
	switch {
	case mimeType == "application/pdf" || mimeType == "application/x-pdf":
		return formatPDF
	case mimeType == "text/plain":
		return formatPlainText
	}
	if _, ok := ocrImageTypes[mimeType]; ok {
		return formatImage
	}
	return formatUnsupported
}

// normalizeMimeType drops parameters and sniffs the content when the caller
// sent nothing useful.
func normalizeMimeType(mimeType string, data []byte) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		sniffed := http.DetectContentType(data)
		if parsed, _, err := mime.ParseMediaType(sniffed); err == nil {
			return parsed
		}
		return sniffed
	}
	return mimeType
}

func displayMime(mimeType string) string {
	if mimeType == "" {
		return "inconnu"
	}
	return mimeType
}

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText collapses noisy whitespace while keeping line breaks.
func NormalizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\x00", "")
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
