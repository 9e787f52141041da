package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/resilience"
	"github.com/kirillkom/freelance-docs/internal/infrastructure/storage"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.Endpoint) == "":
		return errors.New("minio endpoint is required")
	case c.AccessKey == "" || c.SecretKey == "":
		return errors.New("minio credentials are required")
	case strings.TrimSpace(c.Bucket) == "":
		return errors.New("minio bucket is required")
	}
	return nil
}

// Storage is an S3-compatible object store for uploaded sources and logos.
type Storage struct {
	client   *minio.Client
	bucket   string
	executor *resilience.Executor
}

func New(ctx context.Context, cfg Config, executor *resilience.Executor) (*Storage, error) {
	if err := cfg.validate(); err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "minio", err)
	}
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "create minio client", err)
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	s := &Storage{client: cli, bucket: cfg.Bucket, executor: executor}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return s, nil
}

func (s *Storage) Save(ctx context.Context, key string, data io.Reader) error {
	clean, err := storage.CleanRef(key)
	if err != nil {
		return err
	}
	// Not retried: the upload consumes the reader once.
	_, err = s.client.PutObject(ctx, s.bucket, clean, data, -1, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("put object: %w", toDomainError("put object", err))
	}
	return nil
}

func (s *Storage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	clean, err := storage.CleanRef(key)
	if err != nil {
		return nil, err
	}
	var obj *minio.Object
	err = s.executor.Execute(ctx, "minio.get_object", func(callCtx context.Context) error {
		o, err := s.client.GetObject(callCtx, s.bucket, clean, minio.GetObjectOptions{})
		if err != nil {
			return err
		}
		if _, err := o.Stat(); err != nil {
			o.Close()
			return err
		}
		obj = o
		return nil
	}, classifyMinioError)
	if err != nil {
		return nil, toDomainError("get object", err)
	}
	return obj, nil
}

func (s *Storage) OpenLogo(ctx context.Context, ref string) (*domain.Logo, error) {
	rc, err := s.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var declared string
	if obj, ok := rc.(*minio.Object); ok {
		if st, err := obj.Stat(); err == nil {
			declared = st.ContentType
		}
	}
	data, err := io.ReadAll(io.LimitReader(rc, storage.MaxLogoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read logo: %w", err)
	}
	return storage.NewLogo(ref, data, declared)
}

func classifyMinioError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket":
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case resp.StatusCode == http.StatusForbidden || resp.Code == "AccessDenied":
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func toDomainError(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "AccessDenied" || resp.Code == "NoSuchBucket" || resp.StatusCode == http.StatusForbidden:
		return domain.WrapError(domain.ErrConfiguration, operation, err)
	case resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound:
		return domain.WrapError(domain.ErrNotFound, operation, err)
	}
	return domain.WrapError(domain.ErrUpstreamUnavailable, operation, err)
}
