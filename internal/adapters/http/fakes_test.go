package httpadapter

import (
	"context"
	"io"
	"net/http"

	"github.com/kirillkom/freelance-docs/internal/config"
	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

type documentsFake struct {
	err      error
	gotKind  domain.DocumentKind
	gotMode  domain.RenderMode
	gotUser  string
	rendered *domain.RenderedDocument
}

func (f *documentsFake) Validate(_ context.Context, identity domain.Identity, kind domain.DocumentKind, _ []byte) (domain.Document, error) {
	f.gotKind, f.gotUser = kind, identity.UserID
	if f.err != nil {
		return nil, f.err
	}
	return domain.QuoteDocument{QuoteNumber: "D001"}, nil
}

func (f *documentsFake) Render(_ context.Context, identity domain.Identity, kind domain.DocumentKind, _ []byte, mode domain.RenderMode) (*domain.RenderedDocument, error) {
	f.gotKind, f.gotMode, f.gotUser = kind, mode, identity.UserID
	if f.err != nil {
		return nil, f.err
	}
	if f.rendered != nil {
		return f.rendered, nil
	}
	return &domain.RenderedDocument{Filename: "Facture-F1.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.3")}, nil
}

func (f *documentsFake) Export(_ context.Context, identity domain.Identity, kind domain.DocumentKind, _ []byte) (*domain.RenderedDocument, error) {
	f.gotKind, f.gotUser = kind, identity.UserID
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RenderedDocument{Filename: "Devis-D001.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Content: []byte("PK")}, nil
}

type extractorFake struct {
	err      error
	gotKind  domain.DocumentKind
	gotMime  string
	gotBytes []byte
	gotText  string
}

func (f *extractorFake) ExtractFromFile(_ context.Context, kind domain.DocumentKind, data []byte, mimeType string) (*domain.ExtractionOutcome, error) {
	f.gotKind, f.gotBytes, f.gotMime = kind, data, mimeType
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ExtractionOutcome{Kind: kind.ImportKind(), Data: domain.ImportFacture{Warnings: []string{}}}, nil
}

func (f *extractorFake) ExtractFromText(_ context.Context, kind domain.DocumentKind, text string) (*domain.ExtractionOutcome, error) {
	f.gotKind, f.gotText = kind, text
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ExtractionOutcome{Kind: kind.ImportKind(), Data: domain.ImportDevis{Warnings: []string{"dateIssue"}}}, nil
}

type jobsFake struct {
	job *domain.ExtractionJob
	err error
}

func (f *jobsFake) Submit(_ context.Context, identity domain.Identity, kind domain.DocumentKind, filename, mimeType string, body io.Reader) (*domain.ExtractionJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return nil, err
	}
	return &domain.ExtractionJob{ID: "job-1", UserID: identity.UserID, Kind: kind.ImportKind(), Filename: filename, MimeType: mimeType, Status: domain.JobStatusQueued}, nil
}

func (f *jobsFake) GetByID(context.Context, string) (*domain.ExtractionJob, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.job, nil
}

// authFake accepts "good" and maps it to user-1; an empty token is anonymous.
type authFake struct{}

func (authFake) Authenticate(_ context.Context, bearer string) (domain.Identity, error) {
	switch bearer {
	case "good":
		return domain.Identity{UserID: "user-1"}, nil
	case "":
		return domain.Identity{Anonymous: true}, nil
	default:
		return domain.Identity{}, domain.WrapError(domain.ErrUnauthorized, "authenticate", io.EOF)
	}
}

func newTestHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.Auth == nil {
		deps.Auth = authFake{}
	}
	if deps.Documents == nil {
		deps.Documents = &documentsFake{}
	}
	if deps.Extractor == nil {
		deps.Extractor = &extractorFake{}
	}
	return NewRouter(cfg, deps).Handler()
}
