package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	regAuth "github.com/MrEthical07/regAuth"
)

// Limiter is the part of [regAuth.Engine] the rate-limit adapter needs.
type Limiter interface {
	Allow(ctx context.Context, scope, identity string) error
}

// ClientInfo records the caller address and User-Agent on the request context. Mount it
// after chi's RealIP so proxied addresses are honoured.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := regAuth.WithClientIP(r.Context(), ClientIP(r))
		ctx = regAuth.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the request's remote host without the port.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}

// RateLimit charges every request against scope, keyed by the client address.
func RateLimit(l Limiter, scope string, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := regAuth.ClientIPFromContext(r.Context())
			if identity == "" {
				identity = ClientIP(r)
			}
			if err := l.Allow(r.Context(), scope, identity); err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
