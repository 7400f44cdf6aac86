// Package auth verifies bearer tokens and enforces role access on routes.
package auth

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "ats-backend/internal/common/errors"
)

// Claims is the subset of token claims the service acts on. Role is
// optional; tokens issued before role claims were added carry only the
// email, and the role is then resolved from the users table.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller attached to request contexts.
type Identity struct {
	Email string
	Role  string
}

type contextKey struct{}

// IdentityFromContext returns the caller attached by Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// TokenVerifier validates HMAC-signed bearer tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates a raw token string.
func (v *TokenVerifier) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid or expired token")
	}
	if !token.Valid || strings.TrimSpace(claims.Email) == "" {
		return nil, apperrors.NewUnauthorizedError("token is missing a subject email")
	}

	claims.Email = strings.ToLower(strings.TrimSpace(claims.Email))
	return claims, nil
}
