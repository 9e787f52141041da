package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kirillkom/freelance-docs/internal/config"
	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
	"github.com/kirillkom/freelance-docs/internal/observability/metrics"
)

const (
	serviceName = "api"
	// room for multipart boundaries and headers around the file part
	multipartOverhead = 1 << 20
)

// HealthReporter exposes upstream breaker states on /healthz.
type HealthReporter interface {
	States() map[string]string
}

// Dependencies are the inbound use cases the router serves. JobSubmitter and
// JobReader are nil when asynchronous jobs are disabled.
type Dependencies struct {
	Documents    ports.DocumentService
	Extractor    ports.DataExtractor
	JobSubmitter ports.ExtractionJobSubmitter
	JobReader    ports.ExtractionJobReader
	Auth         ports.Authenticator
	Metrics      *metrics.HTTPServerMetrics
	Health       HealthReporter
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	mux.HandleFunc("POST /v1/documents/{kind}/validate", rt.authenticated(rt.validateDocument))
	mux.HandleFunc("POST /v1/documents/{kind}/render", rt.authenticated(rt.renderDocument))
	mux.HandleFunc("POST /v1/documents/{kind}/export", rt.authenticated(rt.exportDocument))
	mux.HandleFunc("POST /v1/extractions/{kind}", rt.authenticated(rt.extractFromFile))
	mux.HandleFunc("POST /v1/extractions/{kind}/text", rt.authenticated(rt.extractFromText))
	if rt.deps.JobSubmitter != nil && rt.deps.JobReader != nil {
		mux.HandleFunc("POST /v1/extraction-jobs/{kind}", rt.authenticated(rt.submitExtractionJob))
		mux.HandleFunc("GET /v1/extraction-jobs/{id}", rt.authenticated(rt.getExtractionJob))
	}

	var onReject func(string)
	var handler http.Handler = mux
	if rt.deps.Metrics != nil {
		onReject = rt.deps.Metrics.RecordRejected
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWait, onReject)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onReject)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return otelhttp.NewHandler(handler, "http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + metrics.NormalizePath(r.URL.Path)
		}),
	)
}

type identityHandler func(w http.ResponseWriter, r *http.Request, identity domain.Identity)

func (rt *Router) authenticated(next identityHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rt.deps.Auth == nil {
			writeError(w, r, domain.WrapError(domain.ErrConfiguration, "authenticate", errors.New("no authenticator wired")))
			return
		}
		identity, err := rt.deps.Auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		setIdentity(r.Context(), identity)
		next(w, r, identity)
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{"status": "ok"}
	if rt.deps.Health != nil {
		if states := rt.deps.Health.States(); len(states) > 0 {
			payload["upstreams"] = states
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (rt *Router) validateDocument(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	kind, raw, ok := rt.documentRequest(w, r)
	if !ok {
		return
	}
	doc, err := rt.deps.Documents.Validate(r.Context(), identity, kind, raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) renderDocument(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	mode, err := parseRenderMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	kind, raw, ok := rt.documentRequest(w, r)
	if !ok {
		return
	}
	rendered, err := rt.deps.Documents.Render(r.Context(), identity, kind, raw, mode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, rendered)
}

func (rt *Router) exportDocument(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	kind, raw, ok := rt.documentRequest(w, r)
	if !ok {
		return
	}
	exported, err := rt.deps.Documents.Export(r.Context(), identity, kind, raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeAttachment(w, exported)
}

func (rt *Router) extractFromFile(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	upload, err := rt.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	outcome, err := rt.deps.Extractor.ExtractFromFile(r.Context(), kind, upload.data, upload.mimeType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) extractFromText(w http.ResponseWriter, r *http.Request, _ domain.Identity) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	raw, err := rt.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode request", err))
		return
	}
	outcome, err := rt.deps.Extractor.ExtractFromText(r.Context(), kind, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) submitExtractionJob(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	upload, err := rt.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := rt.deps.JobSubmitter.Submit(r.Context(), identity, kind, upload.filename, upload.mimeType, bytes.NewReader(upload.data))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (rt *Router) getExtractionJob(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	id := r.PathValue("id")
	job, err := rt.deps.JobReader.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !identity.Anonymous && job.UserID != "" && job.UserID != identity.UserID {
		writeError(w, r, domain.WrapError(domain.ErrNotFound, "get extraction job", fmt.Errorf("id=%s", id)))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) documentRequest(w http.ResponseWriter, r *http.Request) (domain.DocumentKind, []byte, bool) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return "", nil, false
	}
	raw, err := rt.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return "", nil, false
	}
	return kind, raw, true
}

func (rt *Router) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := r.Body
	if rt.cfg.APIMaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, rt.cfg.APIMaxBodyBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read request body", err)
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read request body", errors.New("body is empty"))
	}
	return raw, nil
}

type upload struct {
	filename string
	mimeType string
	data     []byte
}

func (rt *Router) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	if rt.cfg.UploadMaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.UploadMaxBytes+multipartOverhead)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'file' is required"))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}
	if rt.cfg.UploadMaxBytes > 0 && int64(len(data)) > rt.cfg.UploadMaxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload",
			&http.MaxBytesError{Limit: rt.cfg.UploadMaxBytes})
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("file is empty"))
	}

	mimeType := header.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = parsed
	}
	return &upload{filename: header.Filename, mimeType: mimeType, data: data}, nil
}

func parseRenderMode(raw string) (domain.RenderMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(domain.RenderModeStandard):
		return domain.RenderModeStandard, nil
	case string(domain.RenderModeDemo):
		return domain.RenderModeDemo, nil
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "render", fmt.Errorf("unknown mode %q", raw))
	}
}

func writeAttachment(w http.ResponseWriter, doc *domain.RenderedDocument) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Content)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
