package domain

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusReady      JobStatus = "ready"
	JobStatusFailed     JobStatus = "failed"
)

// ExtractionJob tracks an asynchronous file -> import result extraction.
type ExtractionJob struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id,omitempty"`
	Kind        DocumentKind    `json:"kind"`
	Filename    string          `json:"filename"`
	MimeType    string          `json:"mime_type"`
	StoragePath string          `json:"-"`
	Status      JobStatus       `json:"status"`
	ErrorKind   string          `json:"error_kind,omitempty"`
	Error       string          `json:"error,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ExtractionOutcome is the synchronous extraction response body.
type ExtractionOutcome struct {
	Kind DocumentKind `json:"kind"`
	Data Document     `json:"data"`
}

// RenderedDocument is a finished binary artifact.
type RenderedDocument struct {
	Filename    string
	ContentType string
	Content     []byte
}
