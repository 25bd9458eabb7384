// Package revocation implements the logout denylist consulted on every protected
// request.
//
// # Architecture boundaries
//
// Stores hold SHA-256 digests of revoked tokens with a lifetime bounded by the token's
// expiry. Token parsing and the decision to revoke belong to the Engine.
//
// # What this package must NOT do
//
//   - Store or log raw tokens.
//   - Verify token signatures or expiry.
package revocation
