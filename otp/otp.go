package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	// CodeDigits is the length of every generated code.
	CodeDigits = 6
	// DefaultTTL is the lifetime of an issued code.
	DefaultTTL = 10 * time.Minute
	// DefaultMaxAttempts is the number of consecutive failures that locks a record.
	DefaultMaxAttempts = 3
	// DefaultLockDuration is how long a locked record rejects verification.
	DefaultLockDuration = 30 * time.Minute
)

// Reason explains a verification outcome.
type Reason string

const (
	ReasonOK       Reason = "ok"
	ReasonExpired  Reason = "expired"
	ReasonMismatch Reason = "mismatch"
)

// Result is the outcome of [Verify].
type Result struct {
	Valid  bool
	Reason Reason
}

// Issued is a freshly generated code with its validity window.
type Issued struct {
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Generate returns a uniformly random decimal code of [CodeDigits] digits drawn from
// crypto/rand. Leading zeros are preserved.
func Generate() (string, error) {
	var b strings.Builder
	b.Grow(CodeDigits)

	max := big.NewInt(10)
	for i := 0; i < CodeDigits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("otp: generate: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	return b.String(), nil
}

// IssueWithExpiry generates a code valid for [DefaultTTL] from now.
func IssueWithExpiry(now time.Time) (Issued, error) {
	return Issue(now, DefaultTTL)
}

// Issue generates a code valid for ttl from now.
func Issue(now time.Time, ttl time.Duration) (Issued, error) {
	code, err := Generate()
	if err != nil {
		return Issued{}, err
	}
	return Issued{
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Verify compares provided against stored. Expiry is evaluated first, so an expired
// matching code reports [ReasonExpired]. The comparison runs in constant time.
func Verify(provided, stored string, expiresAt, now time.Time) Result {
	if now.After(expiresAt) {
		return Result{Reason: ReasonExpired}
	}
	if len(provided) != len(stored) || subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) != 1 {
		return Result{Reason: ReasonMismatch}
	}
	return Result{Valid: true, Reason: ReasonOK}
}

// WellFormed reports whether code has the shape of a generated code.
func WellFormed(code string) bool {
	if len(code) != CodeDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
