package password

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// AlgorithmBcrypt selects bcrypt for new hashes.
	AlgorithmBcrypt = "bcrypt"
	// AlgorithmArgon2id selects Argon2id for new hashes.
	AlgorithmArgon2id = "argon2id"

	// BcryptMaxPasswordBytes is the input size bcrypt hashes without truncation.
	BcryptMaxPasswordBytes = 72
	// DefaultMaxPasswordBytes bounds Argon2id input.
	DefaultMaxPasswordBytes = 1024
)

// HasherConfig selects the algorithm used for new hashes and its parameters.
type HasherConfig struct {
	Algorithm  string
	BcryptCost int
	Argon2     Argon2Config
}

// DefaultArgon2Config returns the Argon2id parameters used when the algorithm is switched
// without explicit tuning.
func DefaultArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher produces hashes with the configured algorithm and verifies hashes of any
// supported algorithm by dispatching on the encoded tag.
type Hasher struct {
	algorithm string
	bcrypt    *Bcrypt
	argon2    *Argon2
	maxBytes  int
}

// NewHasher validates cfg and returns a Hasher.
//
// NewHasher may return an error when the algorithm is unknown or its parameters are invalid.
func NewHasher(cfg HasherConfig) (*Hasher, error) {
	algorithm := strings.ToLower(strings.TrimSpace(cfg.Algorithm))
	if algorithm == "" {
		algorithm = AlgorithmBcrypt
	}

	switch algorithm {
	case AlgorithmBcrypt:
		cost := cfg.BcryptCost
		if cost == 0 {
			cost = DefaultBcryptCost
		}
		b, err := NewBcrypt(cost)
		if err != nil {
			return nil, err
		}
		return &Hasher{algorithm: algorithm, bcrypt: b, maxBytes: BcryptMaxPasswordBytes}, nil
	case AlgorithmArgon2id:
		a, err := NewArgon2(cfg.Argon2)
		if err != nil {
			return nil, err
		}
		return &Hasher{algorithm: algorithm, argon2: a, maxBytes: DefaultMaxPasswordBytes}, nil
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", cfg.Algorithm)
	}
}

// Algorithm returns the algorithm used for new hashes.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// MaxPasswordBytes returns the largest input [Hasher.Hash] accepts.
func (h *Hasher) MaxPasswordBytes() int {
	return h.maxBytes
}

// Hash describes the hash operation and its observable behavior.
//
// Hash returns [ErrPasswordTooLong] for oversized input and an error wrapping [ErrHashing]
// when the primitive fails. Weak input is never rejected here.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) > h.maxBytes {
		return "", ErrPasswordTooLong
	}
	if h.argon2 != nil {
		return h.argon2.Hash(password)
	}
	return h.bcrypt.Hash(password)
}

// Verify reports whether password matches encodedHash. Malformed or unknown hashes
// return false.
func (h *Hasher) Verify(password, encodedHash string) bool {
	var (
		ok  bool
		err error
	)
	switch {
	case isBcryptHash(encodedHash):
		ok, err = verifyBcrypt(password, encodedHash)
	case isArgon2Hash(encodedHash):
		ok, err = verifyArgon2(password, encodedHash)
	default:
		return false
	}
	return err == nil && ok
}

// NeedsUpgrade reports whether encodedHash should be replaced by a fresh hash: it was
// produced by another algorithm or with weaker parameters.
func (h *Hasher) NeedsUpgrade(encodedHash string) (bool, error) {
	switch {
	case isBcryptHash(encodedHash):
		if h.bcrypt == nil {
			return true, nil
		}
		return h.bcrypt.NeedsUpgrade(encodedHash)
	case isArgon2Hash(encodedHash):
		if h.argon2 == nil {
			return true, nil
		}
		return h.argon2.NeedsUpgrade(encodedHash)
	default:
		return false, errors.New("unrecognized hash format")
	}
}
