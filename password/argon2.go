package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

var errMalformedArgon2 = errors.New("password: malformed argon2id hash")

// Argon2Config holds the Argon2id cost parameters. Memory is in KiB.
type Argon2Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// argon2Floor holds the weakest parameters accepted for new and stored hashes.
var argon2Floor = Argon2Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}

func (c Argon2Config) validate() error {
	switch {
	case c.Memory < argon2Floor.Memory:
		return fmt.Errorf("password: argon2 memory must be >= %d KiB", argon2Floor.Memory)
	case c.Time < argon2Floor.Time:
		return errors.New("password: argon2 time must be >= 1")
	case c.Parallelism < argon2Floor.Parallelism:
		return errors.New("password: argon2 parallelism must be >= 1")
	case c.SaltLength < argon2Floor.SaltLength:
		return fmt.Errorf("password: argon2 salt length must be >= %d", argon2Floor.SaltLength)
	case c.KeyLength < argon2Floor.KeyLength:
		return fmt.Errorf("password: argon2 key length must be >= %d", argon2Floor.KeyLength)
	}
	return nil
}

// Argon2 hashes with Argon2id and stores the result as a PHC string:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
//
// It is the optional alternative to bcrypt; stored hashes of either kind verify
// regardless of which one is configured.
type Argon2 struct {
	config Argon2Config
}

// NewArgon2 returns an Argon2id hasher, or an error when a parameter is below its floor.
func NewArgon2(cfg Argon2Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a salted key for password. It fails only when the random source does,
// with an error wrapping [ErrHashing].
func (a *Argon2) Hash(password string) (string, error) {
	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}

	h := phcHash{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        salt,
	}
	h.key = h.derive(password, a.config.KeyLength)
	return h.String(), nil
}

// Verify recomputes the key with the parameters stored in encodedHash.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	return verifyArgon2(password, encodedHash)
}

// NeedsUpgrade reports whether encodedHash was produced with weaker parameters than the
// configured ones.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := parseArgon2(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := h.memory < a.config.Memory ||
		h.time < a.config.Time ||
		h.parallelism < a.config.Parallelism ||
		uint32(len(h.key)) != a.config.KeyLength
	return weaker, nil
}

func isArgon2Hash(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, argon2Prefix)
}

func verifyArgon2(password, encodedHash string) (bool, error) {
	h, err := parseArgon2(encodedHash)
	if err != nil {
		return false, err
	}
	computed := h.derive(password, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(computed, h.key) == 1, nil
}

type phcHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h phcHash) derive(password string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.parallelism, keyLen)
}

func (h phcHash) String() string {
	b64 := base64.StdEncoding
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version, h.memory, h.time, h.parallelism,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

// parseArgon2 decodes a PHC string and rejects versions other than 19 and parameters
// below the floors.
func parseArgon2(encoded string) (phcHash, error) {
	if !isArgon2Hash(encoded) {
		return phcHash{}, errMalformedArgon2
	}
	fields := strings.Split(strings.TrimPrefix(encoded, argon2Prefix), "$")
	if len(fields) != 4 {
		return phcHash{}, errMalformedArgon2
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil {
		return phcHash{}, errMalformedArgon2
	}
	if version != argon2.Version {
		return phcHash{}, fmt.Errorf("password: unsupported argon2 version %d", version)
	}

	var (
		h           phcHash
		parallelism uint32
	)
	if n, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &h.memory, &h.time, &parallelism); err != nil || n != 3 {
		return phcHash{}, errMalformedArgon2
	}
	if fmt.Sprintf("m=%d,t=%d,p=%d", h.memory, h.time, parallelism) != fields[1] {
		return phcHash{}, errMalformedArgon2
	}
	if h.memory < argon2Floor.Memory || h.time < argon2Floor.Time || parallelism < 1 || parallelism > 255 {
		return phcHash{}, errMalformedArgon2
	}
	h.parallelism = uint8(parallelism)

	var err error
	if h.salt, err = base64.StdEncoding.DecodeString(fields[2]); err != nil || uint32(len(h.salt)) < argon2Floor.SaltLength {
		return phcHash{}, errMalformedArgon2
	}
	if h.key, err = base64.StdEncoding.DecodeString(fields[3]); err != nil || len(h.key) == 0 {
		return phcHash{}, errMalformedArgon2
	}
	return h, nil
}
