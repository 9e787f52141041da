package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/resilience"
)

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
}

func TestGenerateSendsSystemPromptAndModel(t *testing.T) {
	var payload generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":" {\"title\":\"Contrat\"} "}`))
	}))
	defer server.Close()

	client := New(server.URL, time.Second, fastExecutor())
	out, err := client.Generate(context.Background(), ports.GenerateRequest{
		SystemPrompt:    "Réponds en JSON.",
		UserPrompt:      "<<<texte>>>",
		Model:           "llama3.1",
		MaxOutputTokens: 512,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != `{"title":"Contrat"}` {
		t.Fatalf("unexpected output %q", out)
	}
	if payload.Model != "llama3.1" || payload.System != "Réponds en JSON." || payload.Format != "json" || payload.Stream {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Options["num_predict"] != float64(512) {
		t.Fatalf("expected num_predict option, got %v", payload.Options)
	}
}

func TestGenerateIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second, fastExecutor()).Generate(context.Background(), ports.GenerateRequest{Model: "m"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
}

func TestGenerateUnauthorizedIsConfiguration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second, fastExecutor()).Generate(context.Background(), ports.GenerateRequest{Model: "m"})
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"response":"{}"}`))
	}))
	defer server.Close()

	if _, err := New(server.URL, time.Second, fastExecutor()).Generate(context.Background(), ports.GenerateRequest{Model: "m"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
}

func TestGenerateMissingModelFallsThroughWithoutRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"mistral\" not found, try pulling it first"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second, fastExecutor()).Generate(context.Background(), ports.GenerateRequest{Model: "mistral"})
	if !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream unavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "try pulling it first") || strings.Contains(err.Error(), `{"error"`) {
		t.Fatalf("expected decoded error message, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("a missing model must not be retried, got %d calls", calls)
	}
}
