package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator struct {
	identity Identity
	err      error
}

func (s *stubValidator) ValidateToken(token string) (Identity, error) {
	if s.err != nil {
		return Identity{}, s.err
	}
	return s.identity, nil
}

func protected(t *testing.T, validator TokenValidator) (http.Handler, *Identity) {
	t.Helper()
	var seen Identity
	handler := Auth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentity(r)
		require.True(t, ok)
		seen = identity
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &seen
}

func TestAuthPassesValidToken(t *testing.T) {
	validator := &stubValidator{identity: Identity{Subject: "user@example.com", Staff: true}}
	handler, seen := protected(t, validator)

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user@example.com", seen.Subject)
	assert.True(t, seen.Staff)
}

func TestAuthAcceptsLowercaseScheme(t *testing.T) {
	handler, _ := protected(t, &stubValidator{identity: Identity{Subject: "user@example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Authorization", "bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	handler, _ := protected(t, &stubValidator{})

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	handler, _ := protected(t, &stubValidator{})

	for _, header := range []string{"good-token", "Basic dXNlcjpwYXNz", "Bearer a b"} {
		req := httptest.NewRequest(http.MethodGet, "/runs", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler, _ := protected(t, &stubValidator{err: errors.New("expired")})

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestGetIdentityWithoutAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	_, ok := GetIdentity(req)
	assert.False(t, ok)
}
