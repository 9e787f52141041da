package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

type ExtractionJobRepository struct {
	db *sql.DB
}

func NewExtractionJobRepository(db *sql.DB) *ExtractionJobRepository {
	return &ExtractionJobRepository{db: db}
}

func (r *ExtractionJobRepository) Create(ctx context.Context, job *domain.ExtractionJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO extraction_jobs (
	id, user_id, kind, filename, mime_type, storage_path, status, error_kind, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		job.ID, job.UserID, string(job.Kind), job.Filename, job.MimeType, job.StoragePath,
		string(job.Status), job.ErrorKind, job.Error, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert extraction job: %w", err)
	}
	return nil
}

func (r *ExtractionJobRepository) GetByID(ctx context.Context, id string) (*domain.ExtractionJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, kind, filename, mime_type, storage_path, status, error_kind, error_message, result, created_at, updated_at
FROM extraction_jobs
WHERE id = $1
`, id)

	var job domain.ExtractionJob
	var kind, status string
	var result []byte

	err := row.Scan(
		&job.ID, &job.UserID, &kind, &job.Filename, &job.MimeType, &job.StoragePath,
		&status, &job.ErrorKind, &job.Error, &result, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get extraction job", fmt.Errorf("job %s", id))
		}
		return nil, fmt.Errorf("scan extraction job: %w", err)
	}

	job.Kind = domain.DocumentKind(kind)
	job.Status = domain.JobStatus(status)
	if len(result) > 0 {
		job.Result = result
	}
	return &job, nil
}

func (r *ExtractionJobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errorKind, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE extraction_jobs
SET status = $2, error_kind = $3, error_message = $4, updated_at = $5
WHERE id = $1
`, id, string(status), errorKind, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update extraction job status: %w", err)
	}
	return requireAffected(res, "update extraction job status", id)
}

func (r *ExtractionJobRepository) SaveResult(ctx context.Context, id string, result []byte) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE extraction_jobs
SET result = $2, updated_at = $3
WHERE id = $1
`, id, result, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save extraction result: %w", err)
	}
	return requireAffected(res, "save extraction result", id)
}

func requireAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("job %s", id))
	}
	return nil
}
