package storage

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

// MaxLogoBytes bounds what a logo store will read into memory.
const MaxLogoBytes = 2 << 20

var logoTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

// NewLogo checks that data looks like an image the renderer can place.
// declaredType is only a hint; the sniffed type wins.
func NewLogo(ref string, data []byte, declaredType string) (*domain.Logo, error) {
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "open logo", fmt.Errorf("logo %q is empty", ref))
	}
	if len(data) > MaxLogoBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open logo", fmt.Errorf("logo %q exceeds %d bytes", ref, MaxLogoBytes))
	}
	contentType := http.DetectContentType(data)
	if !logoTypes[contentType] {
		declared := strings.ToLower(strings.TrimSpace(declaredType))
		return nil, domain.WrapError(domain.ErrInvalidInput, "open logo",
			fmt.Errorf("logo %q is %s (declared %q), want png, jpeg or gif", ref, contentType, declared))
	}
	return &domain.Logo{Data: data, ContentType: contentType}, nil
}

// CleanRef rejects empty references and references that climb out of the store root.
func CleanRef(ref string) (string, error) {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, "\\", "/"))
	ref = strings.TrimLeft(ref, "/")
	if ref == "" {
		return "", domain.WrapError(domain.ErrNotFound, "open logo", errors.New("empty logo reference"))
	}
	for _, part := range strings.Split(ref, "/") {
		if part == ".." {
			return "", domain.WrapError(domain.ErrInvalidInput, "open logo", fmt.Errorf("logo reference %q escapes the store", ref))
		}
	}
	return ref, nil
}
