package regAuth

import (
	"fmt"
	"time"

	"github.com/MrEthical07/regAuth/password"
)

// LintWarning is a configuration that is valid but weaker than recommended.
type LintWarning struct {
	Code    string
	Message string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that pass [Config.Validate] but deserve a second look before
// deployment. It never fails.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if c.JWT.Leeway > 30*time.Second {
		add("leeway_large", "JWT leeway %s exceeds 30s", c.JWT.Leeway)
	}
	if c.JWT.AccessTTL > 30*time.Minute {
		add("access_ttl_long", "access tokens live %s", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL > 30*24*time.Hour {
		add("refresh_ttl_long", "refresh tokens live %s", c.JWT.RefreshTTL)
	}
	if c.JWT.Issuer == "" || c.JWT.Audience == "" {
		add("claims_unscoped", "tokens are minted without issuer or audience")
	}
	if c.Password.Algorithm == password.AlgorithmBcrypt && c.Password.BcryptCost < 12 {
		add("bcrypt_cost_low", "bcrypt cost %d is below 12", c.Password.BcryptCost)
	}
	if !c.RateLimit.Enabled {
		add("rate_limits_disabled", "authentication endpoints are not rate limited")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", "authentication outcomes are not audited")
	}
	if !c.MFA.DefaultEnabled {
		add("mfa_default_off", "new accounts start without a second factor")
	}
	if c.OTP.MaxAttempts > 5 {
		add("otp_attempts_high", "%d code attempts allowed before lockout", c.OTP.MaxAttempts)
	}
	if !c.Security.ProductionMode {
		add("not_production", "production checks are disabled")
	}

	return ws
}
