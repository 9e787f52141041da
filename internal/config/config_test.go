package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MODELS", "")
	t.Setenv("RENDER_INVOICE_PADDING", "")
	t.Setenv("AUTH_MODE", "")

	cfg := Load()
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected default provider gemini, got %q", cfg.LLMProvider)
	}
	if len(cfg.LLMModels) != 3 || cfg.LLMModels[0] != "gemini-2.5-flash" {
		t.Fatalf("unexpected default fallback list %v", cfg.LLMModels)
	}
	if cfg.RenderInvoicePadding {
		t.Fatalf("invoice padding must be off by default")
	}
	if cfg.RenderInvoiceMinRows != 5 || cfg.RenderInvoiceMaxRows != 8 {
		t.Fatalf("unexpected padding bounds %d/%d", cfg.RenderInvoiceMinRows, cfg.RenderInvoiceMaxRows)
	}
	if cfg.AuthMode != "none" {
		t.Fatalf("expected auth mode none, got %q", cfg.AuthMode)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("LLM_MODELS", " gpt-4o-mini , ,gpt-4o")
	t.Setenv("LLM_TIMEOUT", "45")
	t.Setenv("OCR_TIMEOUT", "1m30s")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("ASYNC_JOBS_ENABLED", "true")

	cfg := Load()
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected provider openai, got %q", cfg.LLMProvider)
	}
	if !reflect.DeepEqual(cfg.LLMModels, []string{"gpt-4o-mini", "gpt-4o"}) {
		t.Fatalf("unexpected model list %v", cfg.LLMModels)
	}
	if cfg.LLMTimeout != 45*time.Second {
		t.Fatalf("bare seconds must parse, got %v", cfg.LLMTimeout)
	}
	if cfg.OCRTimeout != 90*time.Second {
		t.Fatalf("duration must parse, got %v", cfg.OCRTimeout)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("unexpected rate limit %v", cfg.APIRateLimitRPS)
	}
	if !cfg.NeedsPostgres() {
		t.Fatalf("async jobs need postgres")
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("LLM_MAX_OUTPUT_TOKENS", "lots")
	t.Setenv("RENDER_INVOICE_PADDING", "maybe")

	cfg := Load()
	if cfg.LLMMaxOutputTokens != 4096 {
		t.Fatalf("expected fallback token budget, got %d", cfg.LLMMaxOutputTokens)
	}
	if cfg.RenderInvoicePadding {
		t.Fatalf("malformed bool must fall back to false")
	}
}

func TestValidateRejectsInconsistentSettings(t *testing.T) {
	cfg := Load()
	cfg.AuthMode = "jwt"
	cfg.AuthJWTSecret = ""
	cfg.LogoStore = "s3"
	cfg.RenderInvoiceMinRows = 9

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"AUTH_JWT_SECRET", "LOGO_STORE", "RENDER_INVOICE_MIN_ROWS"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}
