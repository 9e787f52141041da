package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Model      string
	StatusCode int
	Message    string
}

func (e *HTTPStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ollama model %s: status %d", e.Model, e.StatusCode)
	}
	return fmt.Sprintf("ollama model %s: status %d: %s", e.Model, e.StatusCode, e.Message)
}

// statusKinds maps HTTP statuses to the kind the fallback chain acts on.
// A missing model (404) is not pulled on this server: skip to the next one.
var statusKinds = map[int]error{
	http.StatusBadRequest:          domain.ErrUpstreamShape,
	http.StatusUnauthorized:        domain.ErrConfiguration,
	http.StatusForbidden:           domain.ErrConfiguration,
	http.StatusNotFound:            domain.ErrUpstreamUnavailable,
	http.StatusRequestTimeout:      domain.ErrUpstreamTimeout,
	http.StatusGatewayTimeout:      domain.ErrUpstreamTimeout,
	http.StatusTooManyRequests:     domain.ErrUpstreamUnavailable,
	http.StatusInternalServerError: domain.ErrUpstreamUnavailable,
	http.StatusBadGateway:          domain.ErrUpstreamUnavailable,
	http.StatusServiceUnavailable:  domain.ErrUpstreamUnavailable,
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func classifyOllamaError(err error) resilience.ErrorClassification {
	var statusErr *HTTPStatusError
	var netErr net.Error
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case errors.As(err, &statusErr):
		// 4xx says nothing about server health.
		return resilience.ErrorClassification{
			Retryable:     retryableStatus(statusErr.StatusCode),
			RecordFailure: statusErr.StatusCode >= http.StatusInternalServerError,
		}
	case errors.As(err, &netErr):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

func toDomainError(operation string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrUpstreamTimeout, operation, err)
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if kind, ok := statusKinds[statusErr.StatusCode]; ok {
			return domain.WrapError(kind, operation, err)
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.WrapError(domain.ErrUpstreamTimeout, operation, err)
	}
	return domain.WrapError(domain.ErrUpstreamUnavailable, operation, err)
}
