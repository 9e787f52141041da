package httpadapter

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/kirillkom/freelance-docs/internal/config"
	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("CreatePart() error = %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestExtractFromFileSuccess(t *testing.T) {
	extractor := &extractorFake{}
	handler := newTestHandler(config.Config{UploadMaxBytes: 1 << 20}, Dependencies{Extractor: extractor})

	body, contentType := multipartBody(t, "facture.pdf", "application/pdf", []byte("%PDF-1.4 ..."))
	req := httptest.NewRequest(http.MethodPost, "/v1/extractions/facture", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if extractor.gotKind != domain.KindInvoice || extractor.gotMime != "application/pdf" {
		t.Fatalf("unexpected call kind=%q mime=%q", extractor.gotKind, extractor.gotMime)
	}
	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["kind"] != string(domain.KindImportFacture) {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestExtractFromFileMissingMultipartField(t *testing.T) {
	handler := newTestHandler(config.Config{}, Dependencies{})

	req := httptest.NewRequest(http.MethodPost, "/v1/extractions/devis", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestExtractFromFileTooLarge(t *testing.T) {
	handler := newTestHandler(config.Config{UploadMaxBytes: 4}, Dependencies{})

	body, contentType := multipartBody(t, "scan.png", "image/png", []byte("0123456789"))
	req := httptest.NewRequest(http.MethodPost, "/v1/extractions/devis", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestExtractFromText(t *testing.T) {
	extractor := &extractorFake{}
	handler := newTestHandler(config.Config{}, Dependencies{Extractor: extractor})

	req := httptest.NewRequest(http.MethodPost, "/v1/extractions/devis/text", strings.NewReader(`{"text":"DEVIS D-12 ..."}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if extractor.gotText != "DEVIS D-12 ..." || extractor.gotKind != domain.KindQuote {
		t.Fatalf("unexpected call text=%q kind=%q", extractor.gotText, extractor.gotKind)
	}
}

func TestExtractionJobRoutesRequireAsyncJobs(t *testing.T) {
	handler := newTestHandler(config.Config{}, Dependencies{})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/extraction-jobs/job-1", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without async jobs, got %d", res.Code)
	}
}

func TestSubmitAndReadExtractionJob(t *testing.T) {
	jobs := &jobsFake{job: &domain.ExtractionJob{ID: "job-1", UserID: "user-1", Status: domain.JobStatusReady}}
	handler := newTestHandler(config.Config{}, Dependencies{JobSubmitter: jobs, JobReader: jobs})

	body, contentType := multipartBody(t, "contrat.pdf", "application/pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/v1/extraction-jobs/contrat", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer good")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}

	get := httptest.NewRequest(http.MethodGet, "/v1/extraction-jobs/job-1", nil)
	get.Header.Set("Authorization", "Bearer good")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, get)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestExtractionJobOfAnotherUserIsHidden(t *testing.T) {
	jobs := &jobsFake{job: &domain.ExtractionJob{ID: "job-1", UserID: "user-2"}}
	handler := newTestHandler(config.Config{}, Dependencies{JobSubmitter: jobs, JobReader: jobs})

	req := httptest.NewRequest(http.MethodGet, "/v1/extraction-jobs/job-1", nil)
	req.Header.Set("Authorization", "Bearer good")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}
