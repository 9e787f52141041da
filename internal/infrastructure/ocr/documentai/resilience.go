package documentai

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/resilience"
)

func classifyDocumentAIError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case codes.DeadlineExceeded:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	case codes.InvalidArgument, codes.Unauthenticated, codes.PermissionDenied, codes.NotFound, codes.FailedPrecondition:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

func toDomainError(err error) error {
	const op = "documentai process"
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return domain.WrapError(domain.ErrUpstreamTimeout, op, err)
	case resilience.IsCircuitOpen(err):
		return domain.WrapError(domain.ErrUpstreamUnavailable, op, err)
	}
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied, codes.NotFound:
		return domain.WrapError(domain.ErrConfiguration, op, err)
	case codes.InvalidArgument:
		return domain.WrapError(domain.ErrInvalidInput, op, err)
	case codes.DeadlineExceeded:
		return domain.WrapError(domain.ErrUpstreamTimeout, op, err)
	default:
		return domain.WrapError(domain.ErrUpstreamUnavailable, op, err)
	}
}
