package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/observability/logging"
)

// Upstream and configuration kinds are checked first: a Failure can carry a
// client-looking cause (an OCR InvalidArgument) under an upstream kind.
func mapErrorToHTTPStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrConfiguration):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case domain.IsKind(err, domain.ErrUpstreamShape):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrInsufficientText):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	ErrorKind         string                  `json:"errorKind"`
	Reason            string                  `json:"reason,omitempty"`
	Message           string                  `json:"message"`
	DiagnosticSnippet string                  `json:"diagnosticSnippet,omitempty"`
	Violations        []domain.FieldViolation `json:"violations,omitempty"`
	RequestID         string                  `json:"request_id,omitempty"`
}

func newErrorResponse(err error) errorResponse {
	resp := errorResponse{
		ErrorKind: domain.ErrorKindName(err),
		Message:   publicMessage(err),
	}
	if failure, ok := domain.AsFailure(err); ok {
		resp.Reason = failure.Reason
		resp.DiagnosticSnippet = failure.Snippet
		if failure.Message != "" {
			resp.Message = failure.Message
		}
	}
	if ve, ok := domain.AsValidationError(err); ok && domain.Classify(err) == domain.ClassClient {
		resp.Violations = ve.Violations
	}
	return resp
}

// publicMessage keeps raw transport errors out of responses; client errors
// are the caller's own input and are echoed back.
func publicMessage(err error) string {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return "request body too large"
	}
	switch domain.Classify(err) {
	case domain.ClassClient:
		return err.Error()
	case domain.ClassConfiguration:
		return "the service is not configured for this operation"
	case domain.ClassUpstream:
		switch {
		case domain.IsKind(err, domain.ErrUpstreamTimeout):
			return "an upstream service did not answer in time"
		case domain.IsKind(err, domain.ErrUpstreamShape):
			return "an upstream service returned an unusable response"
		default:
			return "an upstream service is unavailable, retry later"
		}
	default:
		return "internal error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	resp := newErrorResponse(err)
	resp.RequestID = requestIDFromContext(r.Context())

	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request_failed",
			"error_kind", resp.ErrorKind,
			"reason", resp.Reason,
			"error", err,
		)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="freelance-docs"`)
	}
	writeJSON(w, status, resp)
}
