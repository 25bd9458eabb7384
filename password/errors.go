package password

import "errors"

var (
	// ErrHashing reports a failure of the underlying hashing primitive.
	ErrHashing = errors.New("password hashing failed")
	// ErrPasswordTooLong reports input longer than the algorithm can hash without truncation.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
)
