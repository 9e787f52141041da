package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/freelance-docs/internal/adapters/mcp"
	"github.com/kirillkom/freelance-docs/internal/bootstrap"
	"github.com/kirillkom/freelance-docs/internal/config"
	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/observability/logging"
)

const (
	serviceName = "freelance-docs-mcp"
	version     = "0.1.0"
)

func main() {
	cfg := config.Load()
	logger := logging.NewStderrJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("config_invalid", "error", err)
		os.Exit(1)
	}
	// Jobs need the worker; the tools only use the synchronous flows.
	cfg.AsyncJobsEnabled = false

	app, err := bootstrap.New(context.Background(), cfg, logger, nil)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	identity := domain.Identity{UserID: cfg.AuthStaticUserID, Anonymous: cfg.AuthStaticUserID == ""}
	srv := mcpadapter.NewServer(app.Documents, app.Extractor, identity, logger).MCPServer(version)

	logger.Info("mcp_serving_stdio")
	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		app.Close()
		os.Exit(1)
	}
}
