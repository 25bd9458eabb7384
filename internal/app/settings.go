package app

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	regAuth "github.com/MrEthical07/regAuth"
	"github.com/joho/godotenv"
)

// Settings is the process configuration of the regauth server. Values come from an
// optional TOML file and are overridden by environment variables.
type Settings struct {
	Env            string   `toml:"app_env"`
	Port           string   `toml:"port"`
	FrontendURL    string   `toml:"frontend_url"`
	AllowedOrigins []string `toml:"allowed_origins"`
	TrustProxy     bool     `toml:"trust_proxy"`

	JWTSecret           string `toml:"jwt_secret"`
	JWTExpiresIn        string `toml:"jwt_expires_in"`
	JWTRefreshExpiresIn string `toml:"jwt_refresh_expires_in"`
	JWTIssuer           string `toml:"jwt_issuer"`
	JWTAudience         string `toml:"jwt_audience"`

	BcryptSaltRounds     int `toml:"bcrypt_salt_rounds"`
	RateLimitWindowMS    int `toml:"rate_limit_window_ms"`
	RateLimitMaxRequests int `toml:"rate_limit_max_requests"`
	AuthRateLimitMax     int `toml:"auth_rate_limit_max"`

	RedisURL    string `toml:"redis_url"`
	DatabaseURL string `toml:"database_url"`
	SentryDSN   string `toml:"sentry_dsn"`

	MFADefaultEnabled bool `toml:"mfa_default_enabled"`
	OTPDebugExpose    bool `toml:"otp_debug_expose"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// DefaultSettings returns the development defaults. JWTSecret is left empty.
func DefaultSettings() Settings {
	return Settings{
		Env:                  "development",
		Port:                 "5000",
		FrontendURL:          "http://localhost:3000",
		JWTExpiresIn:         "30m",
		JWTRefreshExpiresIn:  "7d",
		JWTIssuer:            "class-registration-app",
		JWTAudience:          "class-registration-users",
		BcryptSaltRounds:     12,
		RateLimitWindowMS:    900000,
		RateLimitMaxRequests: 100,
		AuthRateLimitMax:     5,
		MFADefaultEnabled:    true,
		LogLevel:             "info",
		LogFormat:            "text",
	}
}

// LoadSettings loads .env (when present), then the TOML file at path (when not empty),
// then applies environment overrides.
func LoadSettings(path string) (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("load .env: %w", err)
	}

	s := DefaultSettings()
	if path != "" {
		if _, err := toml.DecodeFile(path, &s); err != nil {
			return Settings{}, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := s.applyEnv(os.LookupEnv); err != nil {
		return Settings{}, err
	}
	return s, nil
}

type envOverride struct {
	name  string
	apply func(s *Settings, value string) error
}

var envOverrides = []envOverride{
	{"APP_ENV", func(s *Settings, v string) error { s.Env = v; return nil }},
	{"PORT", func(s *Settings, v string) error { s.Port = v; return nil }},
	{"FRONTEND_URL", func(s *Settings, v string) error { s.FrontendURL = v; return nil }},
	{"ALLOWED_ORIGINS", func(s *Settings, v string) error { s.AllowedOrigins = splitList(v); return nil }},
	{"TRUST_PROXY", boolSetting(func(s *Settings) *bool { return &s.TrustProxy })},
	{"JWT_SECRET", func(s *Settings, v string) error { s.JWTSecret = v; return nil }},
	{"JWT_EXPIRES_IN", func(s *Settings, v string) error { s.JWTExpiresIn = v; return nil }},
	{"JWT_REFRESH_EXPIRES_IN", func(s *Settings, v string) error { s.JWTRefreshExpiresIn = v; return nil }},
	{"JWT_ISSUER", func(s *Settings, v string) error { s.JWTIssuer = v; return nil }},
	{"JWT_AUDIENCE", func(s *Settings, v string) error { s.JWTAudience = v; return nil }},
	{"BCRYPT_SALT_ROUNDS", intSetting(func(s *Settings) *int { return &s.BcryptSaltRounds })},
	{"RATE_LIMIT_WINDOW_MS", intSetting(func(s *Settings) *int { return &s.RateLimitWindowMS })},
	{"RATE_LIMIT_MAX_REQUESTS", intSetting(func(s *Settings) *int { return &s.RateLimitMaxRequests })},
	{"AUTH_RATE_LIMIT_MAX", intSetting(func(s *Settings) *int { return &s.AuthRateLimitMax })},
	{"REDIS_URL", func(s *Settings, v string) error { s.RedisURL = v; return nil }},
	{"DATABASE_URL", func(s *Settings, v string) error { s.DatabaseURL = v; return nil }},
	{"SENTRY_DSN", func(s *Settings, v string) error { s.SentryDSN = v; return nil }},
	{"MFA_DEFAULT_ENABLED", boolSetting(func(s *Settings) *bool { return &s.MFADefaultEnabled })},
	{"OTP_DEBUG_EXPOSE", boolSetting(func(s *Settings) *bool { return &s.OTPDebugExpose })},
	{"LOG_LEVEL", func(s *Settings, v string) error { s.LogLevel = v; return nil }},
	{"LOG_FORMAT", func(s *Settings, v string) error { s.LogFormat = v; return nil }},
}

// EnvNames lists every environment variable LoadSettings reads, in a stable order.
func EnvNames() []string {
	names := make([]string, 0, len(envOverrides))
	for _, o := range envOverrides {
		names = append(names, o.name)
	}
	return names
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) error {
	for _, o := range envOverrides {
		value, ok := lookup(o.name)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if err := o.apply(s, value); err != nil {
			return fmt.Errorf("%s: %w", o.name, err)
		}
	}
	return nil
}

func intSetting(field func(*Settings) *int) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid integer %q", v)
		}
		*field(s) = n
		return nil
	}
}

func boolSetting(field func(*Settings) *bool) func(*Settings, string) error {
	return func(s *Settings, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid boolean %q", v)
		}
		*field(s) = b
		return nil
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Production reports whether APP_ENV selects production mode.
func (s Settings) Production() bool {
	return strings.EqualFold(s.Env, "production")
}

// Origins returns AllowedOrigins, or FrontendURL when none are configured.
func (s Settings) Origins() []string {
	if len(s.AllowedOrigins) > 0 {
		return s.AllowedOrigins
	}
	if s.FrontendURL != "" {
		return []string{s.FrontendURL}
	}
	return nil
}

// Validate rejects combinations the server must not start with.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.JWTSecret) == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if strings.TrimSpace(s.Port) == "" {
		return errors.New("PORT must be set")
	}
	if s.Production() && s.OTPDebugExpose {
		return errors.New("OTP_DEBUG_EXPOSE must be false in production")
	}
	if s.Production() && s.RedisURL == "" {
		return errors.New("REDIS_URL must be set in production")
	}
	return nil
}

// EngineConfig maps the settings onto a [regAuth.Config].
func (s Settings) EngineConfig() (regAuth.Config, error) {
	cfg := regAuth.DefaultConfig()

	secret, err := hex.DecodeString(strings.TrimSpace(s.JWTSecret))
	if err != nil {
		return regAuth.Config{}, fmt.Errorf("JWT_SECRET must be hex encoded: %w", err)
	}
	cfg.JWT.PrivateKey = secret

	if cfg.JWT.AccessTTL, err = ParseDuration(s.JWTExpiresIn); err != nil {
		return regAuth.Config{}, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	if cfg.JWT.RefreshTTL, err = ParseDuration(s.JWTRefreshExpiresIn); err != nil {
		return regAuth.Config{}, fmt.Errorf("JWT_REFRESH_EXPIRES_IN: %w", err)
	}
	cfg.JWT.Issuer = s.JWTIssuer
	cfg.JWT.Audience = s.JWTAudience

	cfg.Password.BcryptCost = s.BcryptSaltRounds

	window := time.Duration(s.RateLimitWindowMS) * time.Millisecond
	cfg.RateLimit.GlobalWindow = window
	cfg.RateLimit.AuthWindow = window
	cfg.RateLimit.GlobalLimit = s.RateLimitMaxRequests
	cfg.RateLimit.AuthLimit = s.AuthRateLimitMax

	cfg.MFA.DefaultEnabled = s.MFADefaultEnabled
	cfg.Metrics.Enabled = true
	cfg.Security.ProductionMode = s.Production()

	if err := cfg.Validate(); err != nil {
		return regAuth.Config{}, err
	}
	return cfg, nil
}

// ParseDuration accepts Go durations ("30m", "1h30m"), a day suffix ("7d") and bare
// integers, which are read as milliseconds.
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errors.New("empty duration")
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(n) * time.Millisecond, nil
	}
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.ParseFloat(days, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		return time.Duration(n * float64(24*time.Hour)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}
