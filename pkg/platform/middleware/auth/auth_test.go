package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signingKey = "test-signing-key"

func signToken(t *testing.T, key, subject, role string, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

// protectedEcho records the principal the middleware resolved.
func protectedEcho(captured *Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			http.Error(w, "no principal", http.StatusInternalServerError)
			return
		}
		*captured = p
		w.WriteHeader(http.StatusOK)
	})
}

func newProtected(captured *Principal) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return RequireAuth(NewVerifier(signingKey), logger)(protectedEcho(captured))
}

func TestRequireAuthValidToken(t *testing.T) {
	subject := "6f1f8a1e-9a10-4f2e-bb1a-6a2a3c4d5e6f"
	var captured Principal
	handler := newProtected(&captured)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, signingKey, subject, "patient", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, subject, captured.ActorID.String())
	assert.Equal(t, "patient", captured.Role)
}

func TestRequireAuthMissingHeader(t *testing.T) {
	var captured Principal
	handler := newProtected(&captured)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthWrongKey(t *testing.T) {
	var captured Principal
	handler := newProtected(&captured)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-key", "6f1f8a1e-9a10-4f2e-bb1a-6a2a3c4d5e6f", "patient", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthExpiredToken(t *testing.T) {
	var captured Principal
	handler := newProtected(&captured)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, signingKey, "6f1f8a1e-9a10-4f2e-bb1a-6a2a3c4d5e6f", "patient", time.Now().Add(-time.Hour)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// Justification: the subject claim must be an actor UUID; a token signed with
// the right key but carrying a garbage subject is still rejected.
func TestRequireAuthMalformedSubject(t *testing.T) {
	var captured Principal
	handler := newProtected(&captured)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, signingKey, "not-a-uuid", "patient", time.Now().Add(time.Hour)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
