package security

import "time"

type PasswordReport struct {
	Algorithm   string
	BcryptCost  int
	Memory      uint32
	Time        uint32
	Parallelism uint8
}

type RatePolicy struct {
	Limit  int
	Window time.Duration
}

type Report struct {
	ProductionMode       bool
	SigningAlgorithm     string
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	ClaimsScoped         bool
	Password             PasswordReport
	OTPTTL               time.Duration
	OTPMaxAttempts       int
	OTPLockDuration      time.Duration
	MFADefaultEnabled    bool
	RateLimitingActive   bool
	GlobalRateLimit      RatePolicy
	AuthRateLimit        RatePolicy
	OTPBackend           string
	RevocationBackend    string
	RateLimitBackend     string
	SharedStores         bool
	AuditEnabled         bool
	DiagnosticsInstalled bool
}

type ReportInput struct {
	ProductionMode       bool
	SigningAlgorithm     string
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	Issuer               string
	Audience             string
	Password             PasswordReport
	OTPTTL               time.Duration
	OTPMaxAttempts       int
	OTPLockDuration      time.Duration
	MFADefaultEnabled    bool
	RateLimitEnabled     bool
	GlobalRateLimit      RatePolicy
	AuthRateLimit        RatePolicy
	OTPBackend           string
	RevocationBackend    string
	RateLimitBackend     string
	AuditEnabled         bool
	DiagnosticsInstalled bool
}

// BuildReport summarises the effective security posture. Stores count as shared only
// when none of them is process-local.
func BuildReport(input ReportInput) Report {
	shared := input.OTPBackend != "memory" &&
		input.RevocationBackend != "memory" &&
		(!input.RateLimitEnabled || input.RateLimitBackend != "memory")

	report := Report{
		ProductionMode:       input.ProductionMode,
		SigningAlgorithm:     input.SigningAlgorithm,
		AccessTTL:            input.AccessTTL,
		RefreshTTL:           input.RefreshTTL,
		ClaimsScoped:         input.Issuer != "" && input.Audience != "",
		Password:             input.Password,
		OTPTTL:               input.OTPTTL,
		OTPMaxAttempts:       input.OTPMaxAttempts,
		OTPLockDuration:      input.OTPLockDuration,
		MFADefaultEnabled:    input.MFADefaultEnabled,
		RateLimitingActive:   input.RateLimitEnabled,
		OTPBackend:           input.OTPBackend,
		RevocationBackend:    input.RevocationBackend,
		RateLimitBackend:     input.RateLimitBackend,
		SharedStores:         shared,
		AuditEnabled:         input.AuditEnabled,
		DiagnosticsInstalled: input.DiagnosticsInstalled,
	}
	if input.RateLimitEnabled {
		report.GlobalRateLimit = input.GlobalRateLimit
		report.AuthRateLimit = input.AuthRateLimit
	}
	if report.Password.Algorithm == "argon2id" {
		report.Password.BcryptCost = 0
	} else {
		report.Password.Memory, report.Password.Time, report.Password.Parallelism = 0, 0, 0
	}
	return report
}
