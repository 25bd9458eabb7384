package jwt

import "errors"

var (
	// ErrExpired reports a token past its exp claim.
	ErrExpired = errors.New("token expired")
	// ErrNotYetValid reports a token before its nbf claim or with an iat too far ahead.
	ErrNotYetValid = errors.New("token not yet valid")
	// ErrSignatureInvalid reports a bad signature, a disallowed algorithm or an unknown key id.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrMalformed reports undecodable input or claims that fail issuer, audience or shape checks.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidPayload reports a subject that cannot be minted.
	ErrInvalidPayload = errors.New("invalid token payload")
)
