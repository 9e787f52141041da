package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
)

type SubmitExtractionJobUseCase struct {
	repo    ports.ExtractionJobRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewSubmitExtractionJobUseCase(
	repo ports.ExtractionJobRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *SubmitExtractionJobUseCase {
	return &SubmitExtractionJobUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *SubmitExtractionJobUseCase) Submit(
	ctx context.Context,
	identity domain.Identity,
	kind domain.DocumentKind,
	filename, mimeType string,
	body io.Reader,
) (*domain.ExtractionJob, error) {
	importKind, err := importKindOf(kind)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	job := &domain.ExtractionJob{
		ID:          id,
		UserID:      identity.UserID,
		Kind:        importKind,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.JobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create extraction job: %w", err)
	}

	if err := uc.queue.PublishExtractionRequested(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("publish extraction event: %w", err)
	}

	return job, nil
}

type GetExtractionJobUseCase struct {
	repo ports.ExtractionJobRepository
}

func NewGetExtractionJobUseCase(repo ports.ExtractionJobRepository) *GetExtractionJobUseCase {
	return &GetExtractionJobUseCase{repo: repo}
}

func (uc *GetExtractionJobUseCase) GetByID(ctx context.Context, id string) (*domain.ExtractionJob, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get extraction job", errors.New("job id is required"))
	}
	job, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get extraction job: %w", err)
	}
	return job, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "/" {
		return "document.bin"
	}
	return base
}
