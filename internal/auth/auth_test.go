package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"example.com/booking/internal/domain"
)

var testConfig = Config{Secret: "test-secret", Issuer: "booking-test", TTL: time.Minute}

func TestIssueAndParseRoundTrip(t *testing.T) {
	signer := NewSigner(testConfig)
	token, err := signer.Issue(42, domain.RoleConsumer)
	require.NoError(t, err)

	claims, err := Parse(token, testConfig)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.True(t, claims.HasRole(domain.RoleConsumer))
	require.False(t, claims.HasRole(domain.RoleProvider))
	require.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestParseRejectsBadTokens(t *testing.T) {
	_, err := Parse("  ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)

	other := NewSigner(Config{Secret: "other", Issuer: testConfig.Issuer})
	token, err := other.Issue(1, domain.RoleProvider)
	require.NoError(t, err)
	_, err = Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewSigner(Config{Secret: testConfig.Secret, Issuer: "elsewhere"})
	token, err = wrongIssuer.Issue(1, domain.RoleProvider)
	require.NoError(t, err)
	_, err = Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := NewSigner(testConfig)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err = expired.Issue(1, domain.RoleProvider)
	require.NoError(t, err)
	_, err = Parse(token, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	unknownRole := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "role": "admin", "iss": testConfig.Issuer, "exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := unknownRole.SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)
	_, err = Parse(signed, testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewareAndRoles(t *testing.T) {
	mw := NewMiddleware(testConfig, func(r *http.Request) bool { return r.URL.Path == "/healthz" })
	handler := mw.Wrap(RequireRole(domain.RoleProvider, func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, int64(7), claims.UserID)
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/activities", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	consumerToken, err := NewSigner(testConfig).Issue(7, domain.RoleConsumer)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
	req.Header.Set("Authorization", "Bearer "+consumerToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.JSONEq(t, `{"type":"forbidden","detail":"this operation requires the provider role"}`, rec.Body.String())

	providerToken, err := NewSigner(testConfig).Issue(7, domain.RoleProvider)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
	req.Header.Set("Authorization", "bearer "+providerToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddlewareSkipper(t *testing.T) {
	mw := NewMiddleware(testConfig, func(r *http.Request) bool { return r.URL.Path == "/healthz" })
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestBcryptHasher(t *testing.T) {
	hasher := BcryptHasher{Cost: 4}
	hash, err := hasher.Hash("secret1")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", hash)
	require.NoError(t, hasher.Compare(hash, "secret1"))
	require.Error(t, hasher.Compare(hash, "secret2"))
}
