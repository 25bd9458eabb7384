package regAuth

import (
	"testing"
	"time"

	"github.com/MrEthical07/regAuth/password"
)

func prodConfig() Config {
	cfg := testConfig()
	cfg.Security.ProductionMode = true
	cfg.Password.BcryptCost = 12
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		prod    bool
		wantErr bool
	}{
		{name: "defaults with secret", mutate: func(*Config) {}},
		{name: "leeway within bound", mutate: func(c *Config) { c.JWT.Leeway = 45 * time.Second }},
		{name: "leeway too large", mutate: func(c *Config) { c.JWT.Leeway = 3 * time.Minute }, wantErr: true},
		{name: "negative leeway", mutate: func(c *Config) { c.JWT.Leeway = -time.Second }, wantErr: true},
		{name: "unsupported signing method", mutate: func(c *Config) { c.JWT.SigningMethod = "rs256" }, wantErr: true},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.PrivateKey = nil }, wantErr: true},
		{name: "short secret", mutate: func(c *Config) { c.JWT.PrivateKey = []byte("too-short") }, wantErr: true},
		{name: "ed25519 without public key", mutate: func(c *Config) { c.JWT.SigningMethod = "ed25519" }, wantErr: true},
		{name: "access not shorter than refresh", mutate: func(c *Config) {
			c.JWT.AccessTTL = time.Hour
			c.JWT.RefreshTTL = time.Hour
		}, wantErr: true},
		{name: "zero access ttl", mutate: func(c *Config) { c.JWT.AccessTTL = 0 }, wantErr: true},
		{name: "bcrypt cost below floor", mutate: func(c *Config) { c.Password.BcryptCost = 3 }, wantErr: true},
		{name: "bcrypt cost above ceiling", mutate: func(c *Config) { c.Password.BcryptCost = 21 }, wantErr: true},
		{name: "unknown password algorithm", mutate: func(c *Config) { c.Password.Algorithm = "md5" }, wantErr: true},
		{name: "argon2 defaults", mutate: func(c *Config) { c.Password.Algorithm = password.AlgorithmArgon2id }},
		{name: "argon2 memory too small", mutate: func(c *Config) {
			c.Password.Algorithm = password.AlgorithmArgon2id
			c.Password.Argon2.Memory = 1024
		}, wantErr: true},
		{name: "argon2 short salt", mutate: func(c *Config) {
			c.Password.Algorithm = password.AlgorithmArgon2id
			c.Password.Argon2.SaltLength = 8
		}, wantErr: true},
		{name: "otp ttl zero", mutate: func(c *Config) { c.OTP.TTL = 0 }, wantErr: true},
		{name: "otp attempts zero", mutate: func(c *Config) { c.OTP.MaxAttempts = 0 }, wantErr: true},
		{name: "otp lock zero", mutate: func(c *Config) { c.OTP.LockDuration = 0 }, wantErr: true},
		{name: "rate limit zero window", mutate: func(c *Config) { c.RateLimit.AuthWindow = 0 }, wantErr: true},
		{name: "rate limit disabled in dev", mutate: func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.AuthLimit = 0
		}},
		{name: "negative prune interval", mutate: func(c *Config) { c.Revocation.PruneInterval = -time.Second }, wantErr: true},
		{name: "audit without buffer", mutate: func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, wantErr: true},
		{name: "latency without metrics", mutate: func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.EnableLatencyHistograms = true
		}, wantErr: true},

		{name: "production defaults", prod: true, mutate: func(*Config) {}},
		{name: "production access ttl too short", prod: true, mutate: func(c *Config) { c.JWT.AccessTTL = 5 * time.Minute }, wantErr: true},
		{name: "production refresh ttl too long", prod: true, mutate: func(c *Config) { c.JWT.RefreshTTL = 90 * 24 * time.Hour }, wantErr: true},
		{name: "production missing issuer", prod: true, mutate: func(c *Config) { c.JWT.Issuer = " " }, wantErr: true},
		{name: "production missing audience", prod: true, mutate: func(c *Config) { c.JWT.Audience = "" }, wantErr: true},
		{name: "production bcrypt cost too low", prod: true, mutate: func(c *Config) { c.Password.BcryptCost = 8 }, wantErr: true},
		{name: "production rate limit disabled", prod: true, mutate: func(c *Config) { c.RateLimit.Enabled = false }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.prod {
				cfg = prodConfig()
			}
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestDefaultConfigMatchesDocumentedPolicy(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.JWT.AccessTTL != 30*time.Minute || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token lifetimes %s / %s", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.OTP.TTL != 10*time.Minute || cfg.OTP.MaxAttempts != 3 || cfg.OTP.LockDuration != 30*time.Minute {
		t.Fatalf("unexpected otp policy %+v", cfg.OTP)
	}
	if cfg.RateLimit.GlobalLimit != 100 || cfg.RateLimit.AuthLimit != 5 ||
		cfg.RateLimit.GlobalWindow != 15*time.Minute || cfg.RateLimit.AuthWindow != 15*time.Minute {
		t.Fatalf("unexpected rate limits %+v", cfg.RateLimit)
	}
	if !cfg.MFA.DefaultEnabled {
		t.Fatal("expected MFA on by default")
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected defaults without a signing secret to fail validation")
	}
}
