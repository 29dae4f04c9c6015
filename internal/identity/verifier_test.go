package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwmia/gateway/internal/errors"
	"github.com/cwmia/gateway/internal/logging"
	"github.com/cwmia/gateway/internal/supabase"
)

var testLogger = logging.New("identity-test", "error", "json")

func newTestVerifier(t *testing.T, jwtSecret string, handler http.HandlerFunc) (*Verifier, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	sb, err := supabase.New(supabase.Config{URL: srv.URL, APIKey: "anon-key"})
	require.NoError(t, err)
	return NewVerifier(sb, jwtSecret, testLogger), &calls
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	v, calls := newTestVerifier(t, "", func(w http.ResponseWriter, r *http.Request) {})

	_, err := v.Verify(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnauthorized, errors.GetServiceError(err).Code)
	assert.Zero(t, *calls, "empty tokens never hit the auth API")
}

func TestVerifyLocalJWT(t *testing.T) {
	v, calls := newTestVerifier(t, "jwt-secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	token := signToken(t, "jwt-secret", jwt.MapClaims{
		"sub":   "user-1",
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.ID)
	assert.Equal(t, "user@example.com", id.Email)
	assert.Zero(t, *calls, "a locally verified token skips the network round trip")
}

func TestVerifyExpiredLocalFallsBackToAuthAPI(t *testing.T) {
	v, calls := newTestVerifier(t, "jwt-secret", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
	})

	token := signToken(t, "jwt-secret", jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnauthorized, errors.GetServiceError(err).Code)
	assert.Equal(t, 1, *calls)
}

func TestVerifyWrongSignatureRejected(t *testing.T) {
	v, _ := newTestVerifier(t, "jwt-secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	token := signToken(t, "other-secret", jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnauthorized, errors.GetServiceError(err).Code)
}

func TestVerifyViaAuthAPI(t *testing.T) {
	v, _ := newTestVerifier(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer opaque-token", r.Header.Get("Authorization"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-2","email":"other@example.com","role":"authenticated"}`))
	})

	id, err := v.Verify(context.Background(), "opaque-token")
	require.NoError(t, err)
	assert.Equal(t, "user-2", id.ID)
	assert.Equal(t, "other@example.com", id.Email)
}

func TestVerifyAuthAPIRejection(t *testing.T) {
	v, _ := newTestVerifier(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid token"}`))
	})

	_, err := v.Verify(context.Background(), "bad-token")
	require.Error(t, err)
	se := errors.GetServiceError(err)
	assert.Equal(t, errors.CodeUnauthorized, se.Code)
	assert.Equal(t, "invalid or expired token", se.Message)
}

func TestParseBearer(t *testing.T) {
	assert.Equal(t, "abc", ParseBearer("Bearer abc"))
	assert.Equal(t, "abc", ParseBearer("bearer abc"))
	assert.Equal(t, "", ParseBearer(""))
	assert.Equal(t, "", ParseBearer("abc"))
	assert.Equal(t, "", ParseBearer("Basic abc"))
}
