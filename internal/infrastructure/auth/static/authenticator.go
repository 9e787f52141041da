package static

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

// Authenticator accepts one shared bearer token and maps it to a fixed user.
type Authenticator struct {
	token  string
	userID string
}

func New(token, userID string) (*Authenticator, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "static auth", errors.New("token is required"))
	}
	if strings.TrimSpace(userID) == "" {
		userID = "default"
	}
	return &Authenticator{token: token, userID: userID}, nil
}

func (a *Authenticator) Authenticate(_ context.Context, bearer string) (domain.Identity, error) {
	if bearer == "" || subtle.ConstantTimeCompare([]byte(bearer), []byte(a.token)) != 1 {
		return domain.Identity{}, domain.WrapError(domain.ErrUnauthorized, "static auth", errors.New("invalid token"))
	}
	return domain.Identity{UserID: a.userID}, nil
}

// Anonymous lets every request through without a profile.
type Anonymous struct{}

func (Anonymous) Authenticate(context.Context, string) (domain.Identity, error) {
	return domain.Identity{Anonymous: true}, nil
}
