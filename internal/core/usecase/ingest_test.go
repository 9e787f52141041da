package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

type statusCall struct {
	status    domain.JobStatus
	errorKind string
	errMsg    string
}

type jobRepoFake struct {
	job           *domain.ExtractionJob
	created       *domain.ExtractionJob
	createErr     error
	getErr        error
	saveErr       error
	failStatusErr error
	statusCalls   []statusCall
	result        []byte
}

func (f *jobRepoFake) Create(_ context.Context, job *domain.ExtractionJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyJob := *job
	f.created = &copyJob
	return nil
}

func (f *jobRepoFake) GetByID(_ context.Context, id string) (*domain.ExtractionJob, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.job == nil || f.job.ID != id {
		return nil, domain.WrapError(domain.ErrNotFound, "get job", errors.New("no rows"))
	}
	copyJob := *f.job
	return &copyJob, nil
}

func (f *jobRepoFake) UpdateStatus(_ context.Context, _ string, status domain.JobStatus, errorKind, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errorKind: errorKind, errMsg: errMessage})
	if status == domain.JobStatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	return nil
}

func (f *jobRepoFake) SaveResult(_ context.Context, _ string, result []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.result = append([]byte(nil), result...)
	return nil
}

type storageFake struct {
	savedKey  string
	savedBody string
	objects   map[string]string
	err       error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type queueFake struct {
	jobID string
	err   error
}

func (f *queueFake) PublishExtractionRequested(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.jobID = jobID
	return nil
}

func (f *queueFake) SubscribeExtractionRequested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func TestSubmitJobSuccess(t *testing.T) {
	repo := &jobRepoFake{}
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewSubmitExtractionJobUseCase(repo, storage, queue)

	job, err := uc.Submit(context.Background(), domain.Identity{UserID: "u-1"}, domain.KindInvoice,
		"facture mars.pdf", "application/pdf", bytes.NewBufferString("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if job.ID == "" {
		t.Fatalf("expected job id")
	}
	if job.Status != domain.JobStatusQueued {
		t.Fatalf("expected status queued, got %s", job.Status)
	}
	if job.Kind != domain.KindImportFacture {
		t.Fatalf("expected import kind, got %s", job.Kind)
	}
	if repo.created == nil || repo.created.UserID != "u-1" {
		t.Fatalf("expected repo.Create call with user id, got %+v", repo.created)
	}
	if queue.jobID != job.ID {
		t.Fatalf("expected queued job id %s, got %s", job.ID, queue.jobID)
	}
	if !strings.HasSuffix(storage.savedKey, "_facture_mars.pdf") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "%PDF-1.4" {
		t.Fatalf("unexpected saved body %q", storage.savedBody)
	}
}

func TestSubmitJobQueueError(t *testing.T) {
	uc := NewSubmitExtractionJobUseCase(&jobRepoFake{}, &storageFake{}, &queueFake{err: errors.New("queue down")})

	_, err := uc.Submit(context.Background(), domain.Identity{}, domain.KindQuote, "devis.pdf", "application/pdf", bytes.NewBufferString("x"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish extraction event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestSubmitJobRejectsUnknownKind(t *testing.T) {
	storage := &storageFake{}
	uc := NewSubmitExtractionJobUseCase(&jobRepoFake{}, storage, &queueFake{})

	_, err := uc.Submit(context.Background(), domain.Identity{}, domain.DocumentKind("receipt"), "a.pdf", "application/pdf", bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if storage.savedKey != "" {
		t.Fatalf("nothing should be stored for a rejected kind")
	}
}

func TestGetJobRequiresID(t *testing.T) {
	uc := NewGetExtractionJobUseCase(&jobRepoFake{})
	if _, err := uc.GetByID(context.Background(), " "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := uc.GetByID(context.Background(), "missing"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report 1.txt":     "report_1.txt",
		"../../etc/passwd": "passwd",
		"D-2026/001":       "001",
		"F 2026-001":       "F_2026-001",
		"":                 "document.bin",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
