package password

import (
	"errors"
	"strings"
	"testing"
)

func newTestBcryptHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(HasherConfig{Algorithm: AlgorithmBcrypt, BcryptCost: 4})
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	return h
}

func TestHasherBcryptRoundTrip(t *testing.T) {
	h := newTestBcryptHasher(t)

	hash, err := h.Hash("Abcdef1!ghij")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$04$") {
		t.Fatalf("unexpected bcrypt prefix: %s", hash)
	}
	if strings.Contains(hash, "Abcdef1!ghij") {
		t.Fatal("hash must not contain the plaintext")
	}
	if !h.Verify("Abcdef1!ghij", hash) {
		t.Fatal("expected verification to succeed")
	}
	if h.Verify("Abcdef1!ghik", hash) {
		t.Fatal("expected verification of a different password to fail")
	}
}

func TestHasherSaltsEveryHash(t *testing.T) {
	h := newTestBcryptHasher(t)

	a, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct hashes for the same input")
	}
}

func TestHasherVerifyMalformedReturnsFalse(t *testing.T) {
	h := newTestBcryptHasher(t)

	for _, encoded := range []string{"", "plain", "$2a$", "$argon2id$v=19$broken", "$unknown$x"} {
		if h.Verify("anything", encoded) {
			t.Fatalf("expected false for malformed hash %q", encoded)
		}
	}
}

func TestHasherVerifiesAcrossAlgorithms(t *testing.T) {
	argon, err := NewHasher(HasherConfig{Algorithm: AlgorithmArgon2id, Argon2: testArgon2Config()})
	if err != nil {
		t.Fatalf("NewHasher(argon2id) error: %v", err)
	}
	bc := newTestBcryptHasher(t)

	argonHash, err := argon.Hash("cross-algorithm")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !bc.Verify("cross-algorithm", argonHash) {
		t.Fatal("bcrypt-configured hasher should verify argon2id hashes")
	}

	up, err := bc.NeedsUpgrade(argonHash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if !up {
		t.Fatal("expected hash from another algorithm to need upgrade")
	}
}

func TestHasherBcryptCostUpgrade(t *testing.T) {
	low := newTestBcryptHasher(t)
	high, err := NewHasher(HasherConfig{Algorithm: AlgorithmBcrypt, BcryptCost: 5})
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	hash, err := low.Hash("cost-upgrade")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	up, err := high.NeedsUpgrade(hash)
	if err != nil || !up {
		t.Fatalf("expected upgrade to higher cost: up=%v err=%v", up, err)
	}
	up, err = low.NeedsUpgrade(hash)
	if err != nil || up {
		t.Fatalf("expected no upgrade at same cost: up=%v err=%v", up, err)
	}
}

func TestHasherBcryptLengthBound(t *testing.T) {
	h := newTestBcryptHasher(t)
	if h.MaxPasswordBytes() != BcryptMaxPasswordBytes {
		t.Fatalf("expected max %d, got %d", BcryptMaxPasswordBytes, h.MaxPasswordBytes())
	}

	if _, err := h.Hash(strings.Repeat("x", BcryptMaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("x", BcryptMaxPasswordBytes)); err != nil {
		t.Fatalf("expected %d bytes to hash: %v", BcryptMaxPasswordBytes, err)
	}
}

func TestNewHasherRejectsBadConfig(t *testing.T) {
	if _, err := NewHasher(HasherConfig{Algorithm: "md5"}); err == nil {
		t.Fatal("expected unknown algorithm to be rejected")
	}
	if _, err := NewHasher(HasherConfig{Algorithm: AlgorithmBcrypt, BcryptCost: 40}); err == nil {
		t.Fatal("expected out-of-range cost to be rejected")
	}
}

func TestNewHasherDefaultsToBcrypt14(t *testing.T) {
	h, err := NewHasher(HasherConfig{})
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	if h.Algorithm() != AlgorithmBcrypt || h.bcrypt.cost != DefaultBcryptCost {
		t.Fatalf("unexpected defaults: algorithm=%s", h.Algorithm())
	}
}
