package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

// ExtractionJobRepository persists and reads job state.
type ExtractionJobRepository interface {
	Create(ctx context.Context, job *domain.ExtractionJob) error
	GetByID(ctx context.Context, id string) (*domain.ExtractionJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errorKind, errMessage string) error
	SaveResult(ctx context.Context, id string, result []byte) error
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes extraction job events.
type MessageQueue interface {
	PublishExtractionRequested(ctx context.Context, jobID string) error
	SubscribeExtractionRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// PDFTextReader reads the embedded text layer of a PDF.
type PDFTextReader interface {
	ReadText(ctx context.Context, data []byte) (string, error)
}

// OCRRequest is one document submitted to the OCR backend.
type OCRRequest struct {
	Data     []byte
	MimeType string
}

// OCRBackend turns scanned pages or images into text.
type OCRBackend interface {
	Recognize(ctx context.Context, req OCRRequest) (string, error)
}

// GenerateRequest is one model call.
type GenerateRequest struct {
	SystemPrompt    string
	UserPrompt      string
	Model           string
	MaxOutputTokens int
}

// LanguageModel generates text for one model identifier.
type LanguageModel interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// DocumentRenderer lays out a validated document as PDF bytes.
type DocumentRenderer interface {
	Render(doc domain.Document, opts domain.RenderOptions) ([]byte, error)
}

// SpreadsheetExporter writes line items and totals as a workbook.
type SpreadsheetExporter interface {
	Export(doc domain.Document) ([]byte, error)
}

// ProfileStore supplies per-user defaults; domain.ErrNotFound when absent.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// LogoStore resolves a logo reference to image bytes.
type LogoStore interface {
	OpenLogo(ctx context.Context, ref string) (*domain.Logo, error)
}

// Authenticator maps a bearer credential to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (domain.Identity, error)
}

// PipelineObserver receives pipeline measurements.
type PipelineObserver interface {
	ObserveModelAttempt(model, outcome string)
	ObserveTextSource(source string)
	ObserveExtraction(kind domain.DocumentKind, duration time.Duration, err error)
	ObserveRender(kind domain.DocumentKind, duration time.Duration, err error)
}

// NopObserver discards measurements.
type NopObserver struct{}

func (NopObserver) ObserveModelAttempt(string, string)                          {}
func (NopObserver) ObserveTextSource(string)                                    {}
func (NopObserver) ObserveExtraction(domain.DocumentKind, time.Duration, error) {}
func (NopObserver) ObserveRender(domain.DocumentKind, time.Duration, error)     {}
