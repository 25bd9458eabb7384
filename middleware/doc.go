// Package middleware exposes net/http adapters around a regAuth.Engine.
//
// # Adapters
//
//   - [ClientInfo]: records the caller address and User-Agent on the request context so
//     audit events and rate limits see them.
//   - [RateLimit]: charges one request against a rate-limit scope keyed by client address.
//   - [Guard]: requires a valid access token in the Authorization header and injects the
//     [regAuth.AuthResult] into the request context.
//
// Rejections are written by an [ErrorHandler] so the HTTP layer keeps one error format.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access stores (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from the Engine.
package middleware
