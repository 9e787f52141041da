package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

// Claims is the token payload; the subject is the user id profiles are keyed by.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 tokens signed with a shared secret.
type Authenticator struct {
	secret []byte
	issuer string
}

func New(secret, issuer string) (*Authenticator, error) {
	if len(strings.TrimSpace(secret)) < 16 {
		return nil, domain.WrapError(domain.ErrConfiguration, "jwt auth", errors.New("secret must be at least 16 characters"))
	}
	return &Authenticator{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}, nil
}

func (a *Authenticator) Authenticate(_ context.Context, bearer string) (domain.Identity, error) {
	if bearer == "" {
		return domain.Identity{}, domain.WrapError(domain.ErrUnauthorized, "jwt auth", errors.New("missing token"))
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(bearer, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return domain.Identity{}, domain.WrapError(domain.ErrUnauthorized, "jwt auth", err)
	}

	subject, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return domain.Identity{}, domain.WrapError(domain.ErrUnauthorized, "jwt auth", fmt.Errorf("token has no subject"))
	}
	return domain.Identity{UserID: subject, Email: claims.Email}, nil
}
