package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/freelance-docs/internal/config"
	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
	"github.com/kirillkom/freelance-docs/internal/core/usecase"
	"github.com/kirillkom/freelance-docs/internal/core/validation"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/auth/jwtauth"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/auth/static"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/llm/openai"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/ocr/documentai"
	profilepg "github.com/kirillkom/freelance-docs/internal/infrastructure/profile/postgres"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/profile/yamlfile"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/queue/nats"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/render/pdf"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/resilience"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/storage/minio"
)

// Observer receives pipeline and circuit breaker measurements.
type Observer interface {
	ports.PipelineObserver
	ObserveBreakerState(operation, state string)
}

type App struct {
	Config   config.Config
	Executor *resilience.Executor

	Documents *usecase.DocumentUseCase
	Extractor *usecase.ExtractionUseCase
	Auth      ports.Authenticator

	// Async job wiring; nil unless ASYNC_JOBS_ENABLED.
	Jobs         ports.ExtractionJobRepository
	Queue        ports.MessageQueue
	JobSubmitter ports.ExtractionJobSubmitter
	JobReader    ports.ExtractionJobReader
	JobProcessor ports.ExtractionJobProcessor

	closers []func() error
}

// New wires every adapter cfg selects. observer may be nil.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, observer Observer) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	var pipeline ports.PipelineObserver = ports.NopObserver{}
	if observer != nil {
		pipeline = observer
	}

	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.Executor = resilience.NewExecutor(resilienceConfig(cfg)).WithLogger(logger)
	if observer != nil {
		app.Executor.WithStateObserver(func(operation string, state gobreaker.State) {
			observer.ObserveBreakerState(operation, state.String())
		})
	}

	validator, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("init validator: %w", err)
	}

	var db *sql.DB
	if cfg.NeedsPostgres() {
		db, err = postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.closers = append(app.closers, db.Close)
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	profiles, err := newProfileStore(cfg, db)
	if err != nil {
		return nil, err
	}

	var object ports.ObjectStorage
	var logos ports.LogoStore
	switch cfg.LogoStore {
	case "localfs":
		fs, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		object, logos = fs, fs
	case "minio":
		store, err := minio.New(ctx, minioConfig(cfg), app.Executor)
		if err != nil {
			return nil, fmt.Errorf("init minio storage: %w", err)
		}
		object, logos = store, store
	}

	app.Auth, err = newAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	renderCfg := usecase.RenderConfig{
		InvoicePadding: domain.RowPadding{
			Enabled: cfg.RenderInvoicePadding,
			MinRows: cfg.RenderInvoiceMinRows,
			MaxRows: cfg.RenderInvoiceMaxRows,
		},
		VATNotApplicableNotice: cfg.RenderVATNotApplicableNotice,
	}
	app.Documents = usecase.NewDocumentUseCase(
		validator,
		pdf.NewRenderer(pdf.Config{}),
		xlsx.NewExporter(),
		profiles,
		logos,
		renderCfg,
		pipeline,
		logger,
	)

	ocr, err := app.newOCR(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	text := usecase.NewTextExtractionUseCase(
		pdftext.NewReader(cfg.PDFMaxPages),
		ocr,
		usecase.TextExtractionConfig{
			TextLayerMinChars: cfg.TextLayerMinChars,
			MinChars:          cfg.TextMinChars,
			OCRTimeout:        cfg.OCRTimeout,
		},
		pipeline,
	)

	model, err := app.newLanguageModel(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.Extractor = usecase.NewExtractionUseCase(text, model, validator, usecase.ExtractionConfig{
		Models:          cfg.LLMModels,
		MaxOutputTokens: cfg.LLMMaxOutputTokens,
		MaxInputChars:   cfg.LLMMaxInputChars,
		ModelTimeout:    cfg.LLMTimeout,
	}, pipeline, logger)

	if cfg.AsyncJobsEnabled {
		if err := app.wireJobs(ctx, cfg, db, object); err != nil {
			return nil, err
		}
	}

	logger.Info("bootstrap_completed",
		"llm_provider", cfg.LLMProvider,
		"llm_models", cfg.LLMModels,
		"ocr_enabled", ocr != nil,
		"auth_mode", cfg.AuthMode,
		"profile_store", cfg.ProfileStore,
		"logo_store", cfg.LogoStore,
		"async_jobs", cfg.AsyncJobsEnabled,
	)
	return app, nil
}

func (a *App) wireJobs(ctx context.Context, cfg config.Config, db *sql.DB, object ports.ObjectStorage) error {
	if db == nil {
		return domain.WrapError(domain.ErrConfiguration, "async jobs", errors.New("POSTGRES_DSN is required"))
	}
	if object == nil {
		fs, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return fmt.Errorf("init local storage: %w", err)
		}
		object = fs
	}
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: a.Executor})
	if err != nil {
		return fmt.Errorf("init message queue: %w", err)
	}
	a.closers = append(a.closers, func() error {
		queue.Close()
		return nil
	})

	repo := postgres.NewExtractionJobRepository(db)
	a.Jobs = repo
	a.Queue = queue
	a.JobSubmitter = usecase.NewSubmitExtractionJobUseCase(repo, object, queue)
	a.JobReader = usecase.NewGetExtractionJobUseCase(repo)
	a.JobProcessor = usecase.NewProcessExtractionJobUseCase(repo, object, a.Extractor, cfg.UploadMaxBytes)
	return nil
}

// newOCR returns nil when Document AI is not configured; images and scanned
// PDFs then fail with a configuration error.
func (a *App) newOCR(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.OCRBackend, error) {
	docCfg := documentai.Config{
		ProjectID:       cfg.DocAIProjectID,
		Location:        cfg.DocAILocation,
		ProcessorID:     cfg.DocAIProcessorID,
		CredentialsFile: cfg.DocAICredentialsFile,
		Timeout:         cfg.OCRTimeout,
	}
	if !docCfg.Enabled() {
		logger.Warn("ocr_not_configured")
		return nil, nil
	}
	client, err := documentai.New(ctx, docCfg, a.Executor)
	if err != nil {
		return nil, fmt.Errorf("init document ai: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	return client, nil
}

// newLanguageModel returns nil when the provider has no credentials so the
// rest of the service still starts; extraction then reports a configuration error.
func (a *App) newLanguageModel(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.LanguageModel, error) {
	switch cfg.LLMProvider {
	case "gemini":
		client, err := gemini.New(ctx, cfg.GeminiAPIKey, a.Executor)
		if domain.IsKind(err, domain.ErrConfiguration) {
			logger.Warn("llm_not_configured", "provider", cfg.LLMProvider, "error", err)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return client, nil
	case "openai":
		client, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, a.Executor)
		if err != nil {
			logger.Warn("llm_not_configured", "provider", cfg.LLMProvider, "error", err)
			return nil, nil
		}
		return client, nil
	case "ollama":
		return ollama.New(cfg.OllamaURL, cfg.LLMTimeout, a.Executor), nil
	default:
		return nil, domain.WrapError(domain.ErrConfiguration, "llm", fmt.Errorf("unknown provider %q", cfg.LLMProvider))
	}
}

func newProfileStore(cfg config.Config, db *sql.DB) (ports.ProfileStore, error) {
	switch cfg.ProfileStore {
	case "yaml":
		store, err := yamlfile.Load(cfg.ProfileFile)
		if err != nil {
			return nil, fmt.Errorf("load profiles: %w", err)
		}
		return store, nil
	case "postgres":
		return profilepg.NewStore(db), nil
	default:
		return nil, nil
	}
}

func newAuthenticator(cfg config.Config) (ports.Authenticator, error) {
	switch cfg.AuthMode {
	case "static":
		auth, err := static.New(cfg.AuthStaticToken, cfg.AuthStaticUserID)
		if err != nil {
			return nil, fmt.Errorf("init static auth: %w", err)
		}
		return auth, nil
	case "jwt":
		auth, err := jwtauth.New(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
		if err != nil {
			return nil, fmt.Errorf("init jwt auth: %w", err)
		}
		return auth, nil
	default:
		return static.Anonymous{}, nil
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        cfg.ResilienceRetryMaxAttempts,
		RetryInitialBackoff:     cfg.ResilienceRetryInitialBackoff,
		RetryMaxBackoff:         cfg.ResilienceRetryMaxBackoff,
		RetryMultiplier:         cfg.ResilienceRetryMultiplier,
		BreakerEnabled:          cfg.ResilienceBreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.ResilienceBreakerMinRequests, 0)),
		BreakerFailureRatio:     cfg.ResilienceBreakerFailureRatio,
		BreakerOpenTimeout:      cfg.ResilienceBreakerOpenTimeout,
		BreakerHalfOpenMaxCalls: uint32(max(cfg.ResilienceBreakerHalfOpenMaxCalls, 0)),
	}
}

func minioConfig(cfg config.Config) minio.Config {
	return minio.Config{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("bootstrap_close_failed", "error", err)
		}
	}
	a.closers = nil
}
