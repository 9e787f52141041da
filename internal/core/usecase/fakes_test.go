package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
	"github.com/kirillkom/freelance-docs/internal/core/ports"
)

type modelReply struct {
	text string
	err  error
	// block waits for ctx cancellation instead of replying.
	block bool
}

type modelFake struct {
	mu       sync.Mutex
	replies  map[string]modelReply
	calls    []string
	requests []ports.GenerateRequest
}

func (f *modelFake) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Model)
	f.requests = append(f.requests, req)
	reply := f.replies[req.Model]
	f.mu.Unlock()

	if reply.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply.text, reply.err
}

type pdfReaderFake struct {
	text  string
	err   error
	calls int
}

func (f *pdfReaderFake) ReadText(context.Context, []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

type ocrFake struct {
	text    string
	err     error
	calls   int
	gotMime string
}

func (f *ocrFake) Recognize(_ context.Context, req ports.OCRRequest) (string, error) {
	f.calls++
	f.gotMime = req.MimeType
	return f.text, f.err
}

type observerFake struct {
	mu          sync.Mutex
	attempts    []string
	sources     []string
	extractions int
	renders     int
	lastErr     error
}

func (f *observerFake) ObserveModelAttempt(model, outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, model+":"+outcome)
}

func (f *observerFake) ObserveTextSource(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, source)
}

func (f *observerFake) ObserveExtraction(_ domain.DocumentKind, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractions++
	f.lastErr = err
}

func (f *observerFake) ObserveRender(_ domain.DocumentKind, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders++
	f.lastErr = err
}
