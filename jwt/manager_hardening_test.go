package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func edConfig(priv ed25519.PrivateKey, pub ed25519.PublicKey) Config {
	return Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	}
}

func signedWith(t *testing.T, method gjwt.SigningMethod, key interface{}, claims Claims, kid string) string {
	t.Helper()
	tok := gjwt.NewWithClaims(method, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token := signedWith(t, gjwt.SigningMethodHS256, []byte("secret-secret-secret-secret-secret"), claims, "")

	if _, err := m.Verify(token); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for wrong algorithm, got %v", err)
	}
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	m := newHSManager(t, time.Now)
	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u1",
		Issuer:    testIssuer,
		Audience:  gjwt.ClaimStrings{testAudience},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token := signedWith(t, gjwt.SigningMethodNone, gjwt.UnsafeAllowNoneSignatureType, claims, "")

	if _, err := m.Verify(token); err == nil {
		t.Fatal("expected unsigned token to be rejected")
	}
}

func TestVerifyIssuerAudienceAndLeeway(t *testing.T) {
	pub, priv := newEdKeys(t)
	cfg := edConfig(priv, pub)
	cfg.Issuer = "class-registration-app"
	cfg.Audience = "class-registration-users"
	cfg.Leeway = 30 * time.Second
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	access, err := m.Mint(SubjectClaims{UserID: "u", Username: "jo"}, KindAccess)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := m.Verify(access); err != nil {
		t.Fatalf("expected valid token to verify: %v", err)
	}

	base := func(iss, aud string, exp time.Duration) Claims {
		return Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
			Subject:   "u",
			Issuer:    iss,
			Audience:  gjwt.ClaimStrings{aud},
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(exp)),
			IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}
	}

	badIssuer := signedWith(t, gjwt.SigningMethodEdDSA, priv, base("other", cfg.Audience, time.Minute), "")
	if _, err := m.Verify(badIssuer); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong issuer to be malformed, got %v", err)
	}

	badAudience := signedWith(t, gjwt.SigningMethodEdDSA, priv, base(cfg.Issuer, "other-api", time.Minute), "")
	if _, err := m.Verify(badAudience); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected wrong audience to be malformed, got %v", err)
	}

	within := signedWith(t, gjwt.SigningMethodEdDSA, priv, base(cfg.Issuer, cfg.Audience, -15*time.Second), "")
	if _, err := m.Verify(within); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := signedWith(t, gjwt.SigningMethodEdDSA, priv, base(cfg.Issuer, cfg.Audience, -2*time.Minute), "")
	if _, err := m.Verify(expired); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestVerifyUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	cfg := edConfig(priv1, pub1)
	cfg.KeyID = "k1"
	cfg.VerifyKeys = map[string][]byte{"k1": pub1}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	unknown := signedWith(t, gjwt.SigningMethodEdDSA, priv1, claims, "k2")
	if _, err := m.Verify(unknown); !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected unknown kid failure, got %v", err)
	}

	good := signedWith(t, gjwt.SigningMethodEdDSA, priv1, claims, "k1")
	if _, err := m.Verify(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k2": pub2}})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m2.Verify(good); err == nil {
		t.Fatal("expected verify failure with mismatched key set")
	}
}

func TestVerifyRejectsFutureIssuedAt(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(edConfig(priv, pub))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u1",
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(time.Hour)),
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
	}}
	token := signedWith(t, gjwt.SigningMethodEdDSA, priv, claims, "")
	if _, err := m.Verify(token); !errors.Is(err, ErrNotYetValid) {
		t.Fatalf("expected ErrNotYetValid for future iat, got %v", err)
	}
}

func TestVerifyRequiresKindAndSubject(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(edConfig(priv, pub))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	noKind := Claims{RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	if _, err := m.Verify(signedWith(t, gjwt.SigningMethodEdDSA, priv, noKind, "")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected missing typ to be malformed, got %v", err)
	}

	noSubject := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	if _, err := m.Verify(signedWith(t, gjwt.SigningMethodEdDSA, priv, noSubject, "")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected missing sub to be malformed, got %v", err)
	}

	noExpiry := Claims{Kind: KindAccess, RegisteredClaims: gjwt.RegisteredClaims{Subject: "u1"}}
	if _, err := m.Verify(signedWith(t, gjwt.SigningMethodEdDSA, priv, noExpiry, "")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected missing exp to be malformed, got %v", err)
	}
}
