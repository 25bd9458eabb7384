package app

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrEnvFileExists is returned by [WriteEnvFile] when the target exists and force is off.
var ErrEnvFileExists = errors.New("env file already exists")

// NewSecret returns a fresh 256-bit signing secret, hex encoded.
func NewSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// EnvFileValues renders the default settings with a fresh secret as .env entries.
func EnvFileValues() (map[string]string, error) {
	secret, err := NewSecret()
	if err != nil {
		return nil, err
	}

	d := DefaultSettings()
	return map[string]string{
		"APP_ENV":                 d.Env,
		"PORT":                    d.Port,
		"FRONTEND_URL":            d.FrontendURL,
		"ALLOWED_ORIGINS":         d.FrontendURL,
		"JWT_SECRET":              secret,
		"JWT_EXPIRES_IN":          d.JWTExpiresIn,
		"JWT_REFRESH_EXPIRES_IN":  d.JWTRefreshExpiresIn,
		"JWT_ISSUER":              d.JWTIssuer,
		"JWT_AUDIENCE":            d.JWTAudience,
		"BCRYPT_SALT_ROUNDS":      strconv.Itoa(d.BcryptSaltRounds),
		"RATE_LIMIT_WINDOW_MS":    strconv.Itoa(d.RateLimitWindowMS),
		"RATE_LIMIT_MAX_REQUESTS": strconv.Itoa(d.RateLimitMaxRequests),
		"AUTH_RATE_LIMIT_MAX":     strconv.Itoa(d.AuthRateLimitMax),
		"MFA_DEFAULT_ENABLED":     strconv.FormatBool(d.MFADefaultEnabled),
		"OTP_DEBUG_EXPOSE":        "false",
		"LOG_LEVEL":               d.LogLevel,
		"LOG_FORMAT":              d.LogFormat,
	}, nil
}

// WriteEnvFile writes EnvFileValues to path. An existing file is only replaced when force
// is set.
func WriteEnvFile(path string, force bool) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("env file path must be set")
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrEnvFileExists, path)
		}
	}

	values, err := EnvFileValues()
	if err != nil {
		return err
	}
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Chmod(path, 0o600)
}
