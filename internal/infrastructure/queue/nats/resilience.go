package nats

import (
	"context"
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/resilience"
)

var transientErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrConnectionDraining,
	nats.ErrConnectionReconnecting,
	nats.ErrDisconnected,
	nats.ErrStaleConnection,
}

// setupErrors cannot heal by retrying: the subject, credentials or payload
// limit need an operator.
var setupErrors = []error{
	nats.ErrBadSubject,
	nats.ErrAuthorization,
	nats.ErrMaxPayload,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func classifyNATSError(err error) resilience.ErrorClassification {
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err), isAny(err, transientErrors):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

// toDomainError gives job submitters a kind the HTTP layer can map; unknown
// errors pass through untouched.
func toDomainError(operation string, err error) error {
	switch {
	case err == nil:
		return nil
	case domain.IsKind(err, domain.ErrUpstreamUnavailable), domain.IsKind(err, domain.ErrConfiguration):
		return err
	case isAny(err, setupErrors):
		return domain.WrapError(domain.ErrConfiguration, operation, err)
	case resilience.IsCircuitOpen(err), isAny(err, transientErrors):
		return domain.WrapError(domain.ErrUpstreamUnavailable, operation, err)
	default:
		return err
	}
}
