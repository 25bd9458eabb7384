package middleware

import (
	"context"
	"net/http"
	"strings"

	regAuth "github.com/MrEthical07/regAuth"
)

// Validator is the part of [regAuth.Engine] the guard needs.
type Validator interface {
	Validate(ctx context.Context, token string) (*regAuth.AuthResult, error)
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type authResultContextKey struct{}
type bearerTokenContextKey struct{}

func AuthResultFromContext(ctx context.Context) (*regAuth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*regAuth.AuthResult)
	return res, ok
}

// BearerTokenFromContext returns the raw access token accepted by [Guard].
func BearerTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(bearerTokenContextKey{}).(string)
	return token, ok
}

// Guard rejects requests without a valid access token. A missing or non-Bearer header
// is reported as [regAuth.ErrTokenMalformed].
func Guard(v Validator, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = plainError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				onError(w, r, regAuth.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				onError(w, r, regAuth.ErrTokenMalformed)
				return
			}

			res, err := v.Validate(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			ctx = context.WithValue(ctx, bearerTokenContextKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func plainError(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
