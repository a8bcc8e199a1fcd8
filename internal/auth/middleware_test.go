package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Secret: "test-secret", Issuer: "mergington.identity"}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testConfig.Secret))
	require.NoError(t, err)
	return token
}

func validClaims(scopes ...string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":    "office@mergington.edu",
		"iss":    testConfig.Issuer,
		"exp":    time.Now().Add(time.Hour).Unix(),
		"scopes": scopes,
	}
}

func guarded(t *testing.T) (http.Handler, *bool) {
	t.Helper()
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims, ok := FromContext(r.Context())
		if ok {
			require.Equal(t, "office@mergington.edu", claims.Subject)
		}
		w.WriteHeader(http.StatusOK)
	})
	return NewMiddleware(testConfig).Wrap(next), &called
}

func TestMiddlewareSkipsReads(t *testing.T) {
	handler, called := guarded(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/activities", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, *called)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	handler, called := guarded(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/activities/Chess%20Club/signup?email=a@mergington.edu", nil))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.False(t, *called)
}

func TestMiddlewareRequiresScope(t *testing.T) {
	handler, called := guarded(t)

	req := httptest.NewRequest(http.MethodDelete, "/activities/Chess%20Club/unregister?email=a@mergington.edu", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims("roster:read")))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	require.False(t, *called)
}

func TestMiddlewareAcceptsScopedToken(t *testing.T) {
	handler, called := guarded(t)

	req := httptest.NewRequest(http.MethodPost, "/activities/Chess%20Club/signup?email=a@mergington.edu", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(ScopeRosterWrite)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, *called)
}

func TestParseRejectsWrongIssuerAndExpiry(t *testing.T) {
	wrongIssuer := validClaims(ScopeRosterWrite)
	wrongIssuer["iss"] = "someone.else"
	_, err := Parse(signToken(t, wrongIssuer), testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := validClaims(ScopeRosterWrite)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	_, err = Parse(signToken(t, expired), testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = Parse("  ", testConfig)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestParseAcceptsSpaceDelimitedScope(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":   "office@mergington.edu",
		"iss":   testConfig.Issuer,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": "roster:read  roster:write",
	}
	parsed, err := Parse(signToken(t, claims), testConfig)
	require.NoError(t, err)
	require.Len(t, parsed.Scopes, 2)
	require.True(t, parsed.HasScope(ScopeRosterWrite))

	var nilClaims *Claims
	require.False(t, nilClaims.HasScope(ScopeRosterWrite))
}

func TestParseRequiresSubject(t *testing.T) {
	claims := validClaims(ScopeRosterWrite)
	delete(claims, "sub")
	_, err := Parse(signToken(t, claims), testConfig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestActorFromContext(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, Actor(ctx))

	ctx = WithClaims(ctx, &Claims{Subject: "office@mergington.edu"})
	require.Equal(t, "office@mergington.edu", Actor(ctx))
}
