package documentai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	docai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/resilience"
)

const defaultLocation = "eu"

type Config struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsFile string
	Timeout         time.Duration
}

// Enabled reports whether enough is configured to attempt OCR at all.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.ProjectID) != "" && strings.TrimSpace(c.ProcessorID) != ""
}

func (c Config) location() string {
	if loc := strings.TrimSpace(c.Location); loc != "" {
		return loc
	}
	return defaultLocation
}

func (c Config) processorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.location(), c.ProcessorID)
}

type processFunc func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error)

// Client sends raw documents to a Document AI OCR processor.
type Client struct {
	cfg      Config
	process  processFunc
	close    func() error
	executor *resilience.Executor
}

func New(ctx context.Context, cfg Config, executor *resilience.Executor) (*Client, error) {
	if !cfg.Enabled() {
		return nil, domain.WrapError(domain.ErrConfiguration, "documentai", errors.New("project id and processor id are required"))
	}
	opts := []option.ClientOption{
		option.WithEndpoint(cfg.location() + "-documentai.googleapis.com:443"),
	}
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, domain.WrapError(domain.ErrConfiguration, "documentai credentials", err)
		}
		opts = append(opts, option.WithCredentialsFile(path))
	}

	client, err := docai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "documentai client", err)
	}
	return newClient(cfg, func(ctx context.Context, req *documentaipb.ProcessRequest) (*documentaipb.ProcessResponse, error) {
		return client.ProcessDocument(ctx, req)
	}, client.Close, executor), nil
}

func newClient(cfg Config, process processFunc, closeFn func() error, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return &Client{cfg: cfg, process: process, close: closeFn, executor: executor}
}

func (c *Client) Recognize(ctx context.Context, req ports.OCRRequest) (string, error) {
	if len(req.Data) == 0 {
		return "", domain.WrapError(domain.ErrInvalidInput, "documentai process", errors.New("empty document"))
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	request := &documentaipb.ProcessRequest{
		Name: c.cfg.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  req.Data,
				MimeType: req.MimeType,
			},
		},
	}

	var text string
	err := c.executor.Execute(ctx, "documentai.process", func(callCtx context.Context) error {
		resp, err := c.process(callCtx, request)
		if err != nil {
			return err
		}
		text = resp.GetDocument().GetText()
		return nil
	}, classifyDocumentAIError)
	if err != nil {
		return "", toDomainError(err)
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) Close() error {
	return c.close()
}
