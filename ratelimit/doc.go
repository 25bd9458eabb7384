// Package ratelimit provides fixed-window request budgets keyed by client identity.
//
// # Window semantics
//
// Each policy owns a key space "<policy>:<identity>". The first hit creates the
// window and sets its expiry; later hits only increment. Once the window elapses the
// next hit starts a fresh one. Two independent policies are used by the service:
//   - global: all traffic
//   - auth:   login, registration and OTP endpoints
//
// # What this package must NOT do
//
//   - Decrement counters based on request outcomes.
//   - Know about HTTP. Callers translate [ErrRateLimited] into a response.
package ratelimit
