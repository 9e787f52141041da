package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTemp),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     1 * time.Millisecond,
		RetryMaxBackoff:         1 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestStatesReportsOpenBreaker(t *testing.T) {
	var transitions []string
	exec := NewExecutor(Config{
		RetryMaxAttempts:        1,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}).WithStateObserver(func(operation string, state gobreaker.State) {
		transitions = append(transitions, operation+":"+state.String())
	})

	if exec.Degraded() {
		t.Fatalf("fresh executor must not be degraded")
	}

	classifier := func(error) ErrorClassification { return ErrorClassification{RecordFailure: true} }
	_ = exec.Execute(context.Background(), "gemini.generate", func(context.Context) error {
		return errors.New("upstream down")
	}, classifier)

	states := exec.States()
	if states["gemini.generate"] != gobreaker.StateOpen.String() {
		t.Fatalf("expected open breaker, got %v", states)
	}
	if !exec.Degraded() {
		t.Fatalf("expected degraded executor")
	}
	if len(transitions) != 1 || transitions[0] != "gemini.generate:open" {
		t.Fatalf("unexpected transitions %v", transitions)
	}
}

func TestNormalizeFillsDefaultsAndOrdersBackoff(t *testing.T) {
	got := Config{RetryInitialBackoff: 3 * time.Second, RetryMultiplier: 0.5, BreakerFailureRatio: 2}.normalize()
	def := DefaultConfig()
	if got.RetryMaxAttempts != def.RetryMaxAttempts {
		t.Fatalf("expected default attempts, got %d", got.RetryMaxAttempts)
	}
	if got.RetryMaxBackoff != 3*time.Second {
		t.Fatalf("max backoff must not undercut the initial backoff, got %s", got.RetryMaxBackoff)
	}
	if got.RetryMultiplier != def.RetryMultiplier || got.BreakerFailureRatio != def.BreakerFailureRatio {
		t.Fatalf("out-of-range values must fall back to defaults: %+v", got)
	}
	if got.BreakerHalfOpenMaxCalls != def.BreakerHalfOpenMaxCalls {
		t.Fatalf("expected default half-open calls, got %d", got.BreakerHalfOpenMaxCalls)
	}
}

func TestRetryStopsWhenContextEndsDuringBackoff(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: time.Hour,
		RetryMaxBackoff:     time.Hour,
	})
	ctx, cancel := context.WithCancel(context.Background())
	errUpstream := errors.New("ocr busy")

	attempts := 0
	err := exec.Execute(ctx, "documentai.process", func(context.Context) error {
		attempts++
		cancel()
		return errUpstream
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true}
	})
	if !errors.Is(err, errUpstream) {
		t.Fatalf("expected the upstream error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestRetriesAreRecordedOnTheSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx, span := provider.Tracer("test").Start(context.Background(), "extract")

	exec := NewExecutor(Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	})
	attempts := 0
	_ = exec.Execute(ctx, "gemini.generate", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("503")
		}
		return nil
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected one span, got %d", len(ended))
	}
	events := ended[0].Events()
	if len(events) != 2 || events[0].Name != "upstream_retry" {
		t.Fatalf("expected two retry events, got %+v", events)
	}
}
