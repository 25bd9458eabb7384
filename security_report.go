package regAuth

import "github.com/MrEthical07/regAuth/internal/security"

// SecurityReport summarises signing, hashing, lockout, rate limits and store backends of a
// built engine.
type SecurityReport = security.Report

// PasswordConfigReport is the hashing part of a [SecurityReport].
type PasswordConfigReport = security.PasswordReport

// RatePolicyReport is one rate-limit policy of a [SecurityReport].
type RatePolicyReport = security.RatePolicy

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	algorithm := cfg.Password.Algorithm
	if e.hasher != nil {
		algorithm = e.hasher.Algorithm()
	}

	return security.BuildReport(security.ReportInput{
		ProductionMode:   cfg.Security.ProductionMode,
		SigningAlgorithm: cfg.JWT.SigningMethod,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		Issuer:           cfg.JWT.Issuer,
		Audience:         cfg.JWT.Audience,
		Password: security.PasswordReport{
			Algorithm:   algorithm,
			BcryptCost:  cfg.Password.BcryptCost,
			Memory:      cfg.Password.Argon2.Memory,
			Time:        cfg.Password.Argon2.Time,
			Parallelism: cfg.Password.Argon2.Parallelism,
		},
		OTPTTL:            cfg.OTP.TTL,
		OTPMaxAttempts:    cfg.OTP.MaxAttempts,
		OTPLockDuration:   cfg.OTP.LockDuration,
		MFADefaultEnabled: cfg.MFA.DefaultEnabled,
		RateLimitEnabled:  cfg.RateLimit.Enabled,
		GlobalRateLimit: security.RatePolicy{
			Limit:  cfg.RateLimit.GlobalLimit,
			Window: cfg.RateLimit.GlobalWindow,
		},
		AuthRateLimit: security.RatePolicy{
			Limit:  cfg.RateLimit.AuthLimit,
			Window: cfg.RateLimit.AuthWindow,
		},
		OTPBackend:           e.backends.OTP,
		RevocationBackend:    e.backends.Revocation,
		RateLimitBackend:     e.backends.RateLimit,
		AuditEnabled:         e.audit != nil,
		DiagnosticsInstalled: e.diagnostics != nil,
	})
}
