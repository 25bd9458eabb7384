package regAuth

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/regAuth/password"
)

// Config defines a public type used by regAuth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT        JWTConfig
	Password   PasswordConfig
	OTP        OTPConfig
	MFA        MFAConfig
	RateLimit  RateLimitConfig
	Revocation RevocationConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
	Security   SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines token lifetimes, signing material and the registered claims every
// token carries.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm and its cost parameters.
type PasswordConfig struct {
	Algorithm      string // "bcrypt" (default) or "argon2id"
	BcryptCost     int
	Argon2         password.Argon2Config
	UpgradeOnLogin bool
}

/*
====================================
OTP / MFA CONFIG
====================================
*/

// OTPConfig controls code lifetime and lockout.
type OTPConfig struct {
	TTL          time.Duration
	MaxAttempts  int
	LockDuration time.Duration
	RedisPrefix  string
}

// MFAConfig controls the second-factor preference of new accounts.
type MFAConfig struct {
	DefaultEnabled bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig holds the two fixed-window policies. Global applies to every request,
// Auth to login, registration and code verification/resend.
type RateLimitConfig struct {
	Enabled      bool
	GlobalLimit  int
	GlobalWindow time.Duration
	AuthLimit    int
	AuthWindow   time.Duration
	RedisPrefix  string
}

// RevocationConfig controls the revocation table.
type RevocationConfig struct {
	RedisPrefix   string
	PruneInterval time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig carries deployment-wide switches.
type SecurityConfig struct {
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the development defaults. Signing material must still be set.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     30 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "class-registration-app",
			Audience:      "class-registration-users",
		},
		Password: PasswordConfig{
			Algorithm:      password.AlgorithmBcrypt,
			BcryptCost:     password.DefaultBcryptCost,
			Argon2:         password.DefaultArgon2Config(),
			UpgradeOnLogin: true,
		},
		OTP: OTPConfig{
			TTL:          10 * time.Minute,
			MaxAttempts:  3,
			LockDuration: 30 * time.Minute,
			RedisPrefix:  "otp",
		},
		MFA: MFAConfig{
			DefaultEnabled: true,
		},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			GlobalLimit:  100,
			GlobalWindow: 15 * time.Minute,
			AuthLimit:    5,
			AuthWindow:   15 * time.Minute,
			RedisPrefix:  "rl",
		},
		Revocation: RevocationConfig{
			RedisPrefix:   "revoked",
			PruneInterval: 10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	prod := c.Security.ProductionMode

	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}
	if prod {
		if c.JWT.AccessTTL < 15*time.Minute || c.JWT.AccessTTL > 30*time.Minute {
			return errors.New("JWT AccessTTL must be between 15m and 30m in production")
		}
		if c.JWT.RefreshTTL < 7*24*time.Hour || c.JWT.RefreshTTL > 30*24*time.Hour {
			return errors.New("JWT RefreshTTL must be between 7d and 30d in production")
		}
		if strings.TrimSpace(c.JWT.Issuer) == "" || strings.TrimSpace(c.JWT.Audience) == "" {
			return errors.New("JWT Issuer and Audience must be set in production")
		}
	}

	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires PrivateKey")
		}
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 PrivateKey must be at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	switch c.Password.Algorithm {
	case password.AlgorithmBcrypt:
		minCost := 4
		if prod {
			minCost = 10
		}
		if c.Password.BcryptCost < minCost || c.Password.BcryptCost > 20 {
			if prod {
				return errors.New("Password BcryptCost must be between 10 and 20 in production")
			}
			return errors.New("Password BcryptCost must be between 4 and 20")
		}
	case password.AlgorithmArgon2id:
		if c.Password.Argon2.Memory < 8*1024 {
			return errors.New("Password Argon2 Memory must be >= 8192 KB")
		}
		if c.Password.Argon2.Time < 1 {
			return errors.New("Password Argon2 Time must be >= 1")
		}
		if c.Password.Argon2.Parallelism < 1 {
			return errors.New("Password Argon2 Parallelism must be >= 1")
		}
		if c.Password.Argon2.SaltLength < 16 {
			return errors.New("Password Argon2 SaltLength must be >= 16")
		}
		if c.Password.Argon2.KeyLength < 16 {
			return errors.New("Password Argon2 KeyLength must be >= 16")
		}
	default:
		return errors.New("Password Algorithm must be 'bcrypt' or 'argon2id'")
	}

	// OTP
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.MaxAttempts < 1 {
		return errors.New("OTP MaxAttempts must be >= 1")
	}
	if c.OTP.LockDuration <= 0 {
		return errors.New("OTP LockDuration must be > 0")
	}

	// Rate limits
	if c.RateLimit.Enabled {
		if c.RateLimit.GlobalLimit <= 0 || c.RateLimit.GlobalWindow <= 0 {
			return errors.New("RateLimit GlobalLimit and GlobalWindow must be > 0")
		}
		if c.RateLimit.AuthLimit <= 0 || c.RateLimit.AuthWindow <= 0 {
			return errors.New("RateLimit AuthLimit and AuthWindow must be > 0")
		}
	} else if prod {
		return errors.New("RateLimit must be enabled in production")
	}

	if c.Revocation.PruneInterval < 0 {
		return errors.New("Revocation PruneInterval must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
