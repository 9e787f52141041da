package ports

import (
	"context"
	"io"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

// DocumentService is the inbound contract for the direct rendering flow.
type DocumentService interface {
	Validate(ctx context.Context, identity domain.Identity, kind domain.DocumentKind, raw []byte) (domain.Document, error)
	Render(ctx context.Context, identity domain.Identity, kind domain.DocumentKind, raw []byte, mode domain.RenderMode) (*domain.RenderedDocument, error)
	Export(ctx context.Context, identity domain.Identity, kind domain.DocumentKind, raw []byte) (*domain.RenderedDocument, error)
}

// DataExtractor is the inbound contract for synchronous extraction.
type DataExtractor interface {
	ExtractFromFile(ctx context.Context, kind domain.DocumentKind, data []byte, mimeType string) (*domain.ExtractionOutcome, error)
	ExtractFromText(ctx context.Context, kind domain.DocumentKind, text string) (*domain.ExtractionOutcome, error)
}

// ExtractionJobSubmitter accepts files for asynchronous extraction.
type ExtractionJobSubmitter interface {
	Submit(ctx context.Context, identity domain.Identity, kind domain.DocumentKind, filename, mimeType string, body io.Reader) (*domain.ExtractionJob, error)
}

// ExtractionJobReader is the read model for job state.
type ExtractionJobReader interface {
	GetByID(ctx context.Context, id string) (*domain.ExtractionJob, error)
}

// ExtractionJobProcessor runs one queued job.
type ExtractionJobProcessor interface {
	ProcessByID(ctx context.Context, jobID string) error
}
