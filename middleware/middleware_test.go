package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	regAuth "github.com/MrEthical07/regAuth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeValidator struct {
	token string
	err   error
}

func (f fakeValidator) Validate(_ context.Context, token string) (*regAuth.AuthResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if token != f.token {
		return nil, regAuth.ErrTokenMalformed
	}
	return &regAuth.AuthResult{UserID: "u1", Username: "alice"}, nil
}

type fakeLimiter struct {
	calls    map[string]int
	limit    int
	lastSeen string
}

func (f *fakeLimiter) Allow(_ context.Context, scope, identity string) error {
	f.lastSeen = identity
	key := scope + ":" + identity
	f.calls[key]++
	if f.calls[key] > f.limit {
		return &regAuth.RateLimitError{Scope: scope, RetryAfter: time.Minute}
	}
	return nil
}

func recordingErrors(got *error) ErrorHandler {
	return func(w http.ResponseWriter, _ *http.Request, err error) {
		*got = err
		w.WriteHeader(http.StatusTeapot)
	}
}

func TestGuardAcceptsBearerToken(t *testing.T) {
	var seen *regAuth.AuthResult
	var seenToken string
	h := Guard(fakeValidator{token: "good"}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AuthResultFromContext(r.Context())
		seenToken, _ = BearerTokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/mfa-status", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UserID)
	assert.Equal(t, "good", seenToken)
}

func TestGuardRejections(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		validator fakeValidator
		want      error
	}{
		{name: "missing header", header: "", validator: fakeValidator{token: "good"}, want: regAuth.ErrTokenMalformed},
		{name: "basic scheme", header: "Basic abc", validator: fakeValidator{token: "good"}, want: regAuth.ErrTokenMalformed},
		{name: "empty bearer", header: "Bearer   ", validator: fakeValidator{token: "good"}, want: regAuth.ErrTokenMalformed},
		{name: "revoked", header: "Bearer good", validator: fakeValidator{err: regAuth.ErrTokenRevoked}, want: regAuth.ErrTokenRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got error
			called := false
			h := Guard(tt.validator, recordingErrors(&got))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusTeapot, rec.Code)
			assert.True(t, errors.Is(got, tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestGuardDefaultErrorIs401(t *testing.T) {
	h := Guard(fakeValidator{token: "good"}, nil)(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerTokenCaseInsensitiveScheme(t *testing.T) {
	token, ok := BearerToken("bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)
}

func TestClientInfoAndRateLimitKeyOnAddress(t *testing.T) {
	limiter := &fakeLimiter{calls: map[string]int{}, limit: 2}
	var rejected error
	h := ClientInfo(RateLimit(limiter, regAuth.ScopeAuth, recordingErrors(&rejected))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "curl/8.0", r.UserAgent())
			assert.Equal(t, "203.0.113.7", regAuth.ClientIPFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		}),
	))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		req.Header.Set("User-Agent", "curl/8.0")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.7:5000"))
	assert.Equal(t, http.StatusOK, send("203.0.113.7:5001"))
	assert.Equal(t, http.StatusTeapot, send("203.0.113.7:5002"))
	assert.Equal(t, "203.0.113.7", limiter.lastSeen)

	var rl *regAuth.RateLimitError
	require.True(t, errors.As(rejected, &rl))
	assert.Equal(t, regAuth.ScopeAuth, rl.Scope)
}

func TestClientIPWithoutPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.2"
	assert.Equal(t, "198.51.100.2", ClientIP(req))

	req.RemoteAddr = ""
	assert.Equal(t, "unknown", ClientIP(req))
}
