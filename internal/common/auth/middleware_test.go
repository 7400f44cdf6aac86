package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ats-backend/internal/common/errors"
	"ats-backend/internal/common/logger"
)

const testSecret = "test-secret"

type stubRoleLookup struct {
	roles map[string]string
	err   error
}

func (s *stubRoleLookup) FindRole(_ context.Context, email string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.roles[email], nil
}

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newMiddleware(lookup RoleLookup) *Middleware {
	log := logger.NewNoOpLogger()
	return NewMiddleware(
		NewTokenVerifier(testSecret, ""),
		lookup,
		apperrors.NewErrorHandler(log),
		log,
	)
}

// ==========================
// Authenticate
// ==========================

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name           string
		authorization  string
		lookup         RoleLookup
		expectedStatus int
		expectedEmail  string
		expectedRole   string
	}{
		{
			name:           "valid token with role claim",
			authorization:  "Bearer %tok%",
			lookup:         nil,
			expectedStatus: http.StatusOK,
			expectedEmail:  "lead@example.com",
			expectedRole:   "lead",
		},
		{
			name:           "missing header",
			authorization:  "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "malformed header",
			authorization:  "Token abc",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "garbage token",
			authorization:  "Bearer not.a.jwt",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/requirements", nil)
			if tt.authorization != "" {
				header := tt.authorization
				if header == "Bearer %tok%" {
					header = "Bearer " + signToken(t, Claims{Email: "Lead@Example.com", Role: "Lead"})
				}
				req.Header.Set("Authorization", header)
			}

			rec := httptest.NewRecorder()
			newMiddleware(tt.lookup).Authenticate(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.expectedEmail, got.Email)
				assert.Equal(t, tt.expectedRole, got.Role)
			}
		})
	}
}

func TestAuthenticateRoleFallback(t *testing.T) {
	lookup := &stubRoleLookup{roles: map[string]string{"legacy@example.com": "recruiter"}}

	var got Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/candidates", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, Claims{Email: "legacy@example.com"}))

	rec := httptest.NewRecorder()
	newMiddleware(lookup).Authenticate(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "recruiter", got.Role)
}

// ==========================
// RequireRole
// ==========================

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name           string
		identity       *Identity
		allowed        []string
		expectedStatus int
	}{
		{"allowed role", &Identity{Email: "a@b.c", Role: "lead"}, []string{"lead", "admin"}, http.StatusOK},
		{"case insensitive", &Identity{Email: "a@b.c", Role: "lead"}, []string{"Lead"}, http.StatusOK},
		{"wrong role", &Identity{Email: "a@b.c", Role: "recruiter"}, []string{"sales"}, http.StatusForbidden},
		{"no role resolved", &Identity{Email: "a@b.c"}, []string{"sales"}, http.StatusUnauthorized},
		{"unauthenticated", nil, []string{"sales"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			if tt.identity != nil {
				req = req.WithContext(withIdentity(req.Context(), *tt.identity))
			}

			rec := httptest.NewRecorder()
			newMiddleware(nil).RequireRole(tt.allowed...)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}
