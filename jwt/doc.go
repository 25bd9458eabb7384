// Package jwt mints and verifies signed access and refresh tokens with an explicit
// algorithm allow-list, issuer and audience checks, and an injectable clock.
package jwt
