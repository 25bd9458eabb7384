// Package regAuth is the authentication core of a class-registration backend: password
// policy and hashing, signed access/refresh tokens, token revocation, a one-time-code
// second factor with lockout, and fixed-window rate limiting.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// regAuth is the public surface. It exposes [Engine], [Builder], [Config], the
// [UserDirectory] and [Notifier] collaborator interfaces and value types. Flow
// orchestration, audit dispatch and metrics live under internal/. The mutable tables
// (one-time codes, revoked tokens, rate counters) live in the otp, revocation and
// ratelimit packages with in-memory and Redis implementations.
//
// # What this package must NOT do
//
//   - Translate errors to HTTP statuses. That belongs to httpapi.
//   - Log or audit passwords, codes or raw tokens.
//   - Import any sub-package that re-imports regAuth (no import cycles).
//
// # Check order
//
// Validate verifies signature and expiry before consulting the revocation table, so an
// expired token reports [ErrTokenExpired] even after logout.
package regAuth
