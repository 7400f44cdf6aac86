package auth

import (
	"context"
	"net/http"
	"strings"

	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/common/logger"
)

// RoleLookup resolves a role for tokens that do not carry one. An empty
// role with a nil error means the account is unknown.
type RoleLookup interface {
	FindRole(ctx context.Context, email string) (string, error)
}

// Middleware authenticates requests and gates them by role.
type Middleware struct {
	verifier *TokenVerifier
	roles    RoleLookup
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewMiddleware(verifier *TokenVerifier, roles RoleLookup, errHandler *apperrors.ErrorHandler, log logger.Logger) *Middleware {
	return &Middleware{
		verifier: verifier,
		roles:    roles,
		errors:   errHandler,
		logger:   log,
	}
}

// Authenticate rejects requests without a valid bearer token and attaches
// the caller identity to the request context. When the token has no role
// claim the role is looked up from the users table; lookup failures leave
// the role empty rather than failing the request, so role enforcement
// happens at RequireRole.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			m.errors.Write(w, r, apperrors.NewUnauthorizedError("missing bearer token"))
			return
		}

		claims, err := m.verifier.Verify(raw)
		if err != nil {
			m.errors.Write(w, r, err)
			return
		}

		role := claims.Role
		if role == "" && m.roles != nil {
			role, err = m.roles.FindRole(r.Context(), claims.Email)
			if err != nil {
				m.logger.Warn("Role lookup failed, continuing without role", map[string]interface{}{
					"email": claims.Email,
					"error": err.Error(),
				})
				role = ""
			}
		}

		ctx := withIdentity(r.Context(), Identity{
			Email: claims.Email,
			Role:  strings.ToLower(role),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only callers holding one of the given roles. Roles are
// compared case-insensitively. A caller with no resolvable role gets 401,
// a caller with the wrong role gets 403.
func (m *Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(r)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				m.errors.Write(w, r, apperrors.NewUnauthorizedError("missing bearer token"))
				return
			}
			if id.Role == "" {
				m.errors.Write(w, r, apperrors.NewUnauthorizedError("no role associated with this account"))
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				m.errors.Write(w, r, apperrors.NewForbiddenError("role "+id.Role+" may not access this resource"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
