package regAuth

import "context"

type clientKey struct{}

// client describes the caller of one request. Audit events copy it and the auth-scope
// rate limiter keys on its address.
type client struct {
	ip        string
	userAgent string
}

func clientFrom(ctx context.Context) client {
	if ctx == nil {
		return client{}
	}
	c, _ := ctx.Value(clientKey{}).(client)
	return c
}

// WithClientIP attaches the caller's address to ctx, keeping any User-Agent already set.
func WithClientIP(ctx context.Context, ip string) context.Context {
	c := clientFrom(ctx)
	c.ip = ip
	return context.WithValue(ctx, clientKey{}, c)
}

// WithUserAgent attaches the User-Agent header to ctx, keeping any address already set.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	c := clientFrom(ctx)
	c.userAgent = userAgent
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientIPFromContext returns the address attached by [WithClientIP], or "".
func ClientIPFromContext(ctx context.Context) string {
	return clientFrom(ctx).ip
}

func userAgentFromContext(ctx context.Context) string {
	return clientFrom(ctx).userAgent
}
