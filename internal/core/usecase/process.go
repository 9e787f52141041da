package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
)

type ProcessExtractionJobUseCase struct {
	repo      ports.ExtractionJobRepository
	storage   ports.ObjectStorage
	extractor ports.DataExtractor
	maxBytes  int64
}

func NewProcessExtractionJobUseCase(
	repo ports.ExtractionJobRepository,
	storage ports.ObjectStorage,
	extractor ports.DataExtractor,
	maxBytes int64,
) *ProcessExtractionJobUseCase {
	return &ProcessExtractionJobUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		maxBytes:  maxBytes,
	}
}

func (uc *ProcessExtractionJobUseCase) ProcessByID(ctx context.Context, jobID string) error {
	if err := uc.markStatus(ctx, jobID, domain.JobStatusProcessing, nil); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	result, err := uc.processPipeline(ctx, jobID)
	if err != nil {
		if failErr := uc.markFailed(ctx, jobID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveResult(ctx, jobID, result); err != nil {
		err = fmt.Errorf("save extraction result: %w", err)
		if failErr := uc.markFailed(ctx, jobID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, jobID, domain.JobStatusReady, nil); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	return nil
}

func (uc *ProcessExtractionJobUseCase) processPipeline(ctx context.Context, jobID string) ([]byte, error) {
	job, err := uc.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	data, err := uc.loadSource(ctx, job)
	if err != nil {
		return nil, err
	}

	outcome, err := uc.extractor.ExtractFromFile(ctx, job.Kind, data, job.MimeType)
	if err != nil {
		return nil, fmt.Errorf("extract structured data: %w", err)
	}

	result, err := json.Marshal(outcome.Data)
	if err != nil {
		return nil, fmt.Errorf("encode extraction result: %w", err)
	}
	return result, nil
}

func (uc *ProcessExtractionJobUseCase) loadJob(ctx context.Context, jobID string) (*domain.ExtractionJob, error) {
	job, err := uc.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch extraction job by id: %w", err)
	}
	return job, nil
}

func (uc *ProcessExtractionJobUseCase) loadSource(ctx context.Context, job *domain.ExtractionJob) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, job.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer reader.Close()

	var src io.Reader = reader
	if uc.maxBytes > 0 {
		src = io.LimitReader(reader, uc.maxBytes+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	if uc.maxBytes > 0 && int64(len(data)) > uc.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read source file",
			fmt.Errorf("file exceeds %d bytes", uc.maxBytes))
	}
	return data, nil
}

func (uc *ProcessExtractionJobUseCase) markStatus(ctx context.Context, jobID string, status domain.JobStatus, cause error) error {
	var kind, message string
	if cause != nil {
		kind = domain.ErrorKindName(cause)
		message = cause.Error()
		if failure, ok := domain.AsFailure(cause); ok && failure.Message != "" {
			message = failure.Message
		}
	}
	return uc.repo.UpdateStatus(ctx, jobID, status, kind, message)
}

func (uc *ProcessExtractionJobUseCase) markFailed(ctx context.Context, jobID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, jobID, domain.JobStatusFailed, processErr)
}
