package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrConfiguration         = errors.New("configuration error")
	ErrInsufficientText      = errors.New("insufficient extractable text")
	ErrUpstreamUnavailable   = errors.New("upstream unavailable")
	ErrUpstreamTimeout       = errors.New("upstream timeout")
	ErrUpstreamShape         = errors.New("upstream response shape violation")
	ErrRenderingPrecondition = errors.New("rendering precondition violated")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrNotFound              = errors.New("not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Failure reasons reported to callers next to the error kind.
const (
	ReasonImageWithoutOCR     = "image_ocr_unavailable"
	ReasonScannedPDFNoOCR     = "scanned_pdf_ocr_unavailable"
	ReasonUnsupportedFormat   = "unsupported_format"
	ReasonNoExtractableText   = "no_extractable_text"
	ReasonOCRConfiguration    = "ocr_configuration"
	ReasonOCRFailed           = "ocr_failed"
	ReasonModelsUnavailable   = "ai_unavailable"
	ReasonModelNotConfigured  = "ai_not_configured"
	ReasonNonDataResponse     = "ai_non_data_response"
	ReasonSchemaMismatch      = "ai_schema_mismatch"
	ReasonUpstreamTimeout     = "upstream_timeout"
	ReasonPageCapacityReached = "page_capacity_exceeded"
)

// Failure is a classified pipeline error with a user-facing message and an
// optional bounded diagnostic snippet.
type Failure struct {
	Kind    error
	Reason  string
	Message string
	Snippet string
	Err     error
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil failure>"
	}
	var b strings.Builder
	if f.Kind != nil {
		b.WriteString(f.Kind.Error())
	} else {
		b.WriteString("failure")
	}
	if f.Reason != "" {
		b.WriteString(" (")
		b.WriteString(f.Reason)
		b.WriteString(")")
	}
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() []error {
	out := make([]error, 0, 2)
	if f.Kind != nil {
		out = append(out, f.Kind)
	}
	if f.Err != nil {
		out = append(out, f.Err)
	}
	return out
}

// NewFailure builds a Failure; cause may be nil.
func NewFailure(kind error, reason, message string, cause error) *Failure {
	return &Failure{Kind: kind, Reason: reason, Message: message, Err: cause}
}

// AsFailure returns the outermost Failure in the chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// FieldViolation names one offending field path and the violated constraint.
type FieldViolation struct {
	Path       string `json:"path"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

// ValidationError lists every violation found for one document.
type ValidationError struct {
	Kind       DocumentKind
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		path := v.Path
		if path == "" {
			path = "(root)"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", path, v.Message))
	}
	return fmt.Sprintf("%s validation failed: %s", e.Kind, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// AsValidationError returns the ValidationError in the chain, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// ErrorClass tells callers whether to fix input, retry later or call an operator.
type ErrorClass string

const (
	ClassClient        ErrorClass = "client"
	ClassUpstream      ErrorClass = "upstream"
	ClassConfiguration ErrorClass = "configuration"
	ClassInternal      ErrorClass = "internal"
)

func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrConfiguration):
		return ClassConfiguration
	case IsKind(err, ErrUpstreamShape),
		IsKind(err, ErrUpstreamUnavailable),
		IsKind(err, ErrUpstreamTimeout):
		return ClassUpstream
	case IsKind(err, ErrInvalidInput),
		IsKind(err, ErrInsufficientText),
		IsKind(err, ErrUnauthorized),
		IsKind(err, ErrNotFound):
		return ClassClient
	default:
		return ClassInternal
	}
}

// ErrorKindName is the stable identifier serialized as errorKind.
func ErrorKindName(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrConfiguration):
		return "ConfigurationError"
	case IsKind(err, ErrUpstreamShape):
		return "UpstreamShapeError"
	case IsKind(err, ErrUpstreamTimeout):
		return "UpstreamTimeoutError"
	case IsKind(err, ErrUpstreamUnavailable):
		return "UpstreamUnavailableError"
	case IsKind(err, ErrInsufficientText):
		return "ExtractionInsufficientTextError"
	case IsKind(err, ErrInvalidInput):
		return "InputValidationError"
	case IsKind(err, ErrRenderingPrecondition):
		return "RenderingPreconditionError"
	case IsKind(err, ErrUnauthorized):
		return "UnauthorizedError"
	case IsKind(err, ErrNotFound):
		return "NotFoundError"
	default:
		return "InternalError"
	}
}
