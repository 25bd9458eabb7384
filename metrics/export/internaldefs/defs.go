package internaldefs

import (
	regAuth "github.com/MrEthical07/regAuth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   regAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   regAuth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: regAuth.MetricLoginSuccess, Name: "regauth_login_success_total", Help: "Successful password checks."},
	{ID: regAuth.MetricLoginFailure, Name: "regauth_login_failure_total", Help: "Failed login attempts."},
	{ID: regAuth.MetricRegisterSuccess, Name: "regauth_register_success_total", Help: "Successful registrations."},
	{ID: regAuth.MetricRegisterFailure, Name: "regauth_register_failure_total", Help: "Registrations rejected by validation or policy."},
	{ID: regAuth.MetricRegisterDuplicate, Name: "regauth_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: regAuth.MetricMFAChallengeIssued, Name: "regauth_mfa_challenge_issued_total", Help: "One-time codes issued."},
	{ID: regAuth.MetricOTPDeliveryFailure, Name: "regauth_otp_delivery_failure_total", Help: "One-time codes that could not be delivered."},
	{ID: regAuth.MetricOTPSuccess, Name: "regauth_otp_success_total", Help: "Successful one-time code verifications."},
	{ID: regAuth.MetricOTPFailure, Name: "regauth_otp_failure_total", Help: "Failed one-time code verifications."},
	{ID: regAuth.MetricOTPLockout, Name: "regauth_otp_lockout_total", Help: "Accounts locked after repeated code failures."},
	{ID: regAuth.MetricOTPResend, Name: "regauth_otp_resend_total", Help: "One-time code resends."},
	{ID: regAuth.MetricMFAEnabled, Name: "regauth_mfa_enabled_total", Help: "MFA enable operations."},
	{ID: regAuth.MetricMFADisabled, Name: "regauth_mfa_disabled_total", Help: "MFA disable operations."},
	{ID: regAuth.MetricLogout, Name: "regauth_logout_total", Help: "Logout operations."},
	{ID: regAuth.MetricRefreshSuccess, Name: "regauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: regAuth.MetricRefreshFailure, Name: "regauth_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: regAuth.MetricValidateFailure, Name: "regauth_validate_failure_total", Help: "Rejected access tokens."},
	{ID: regAuth.MetricRevokedTokenRejected, Name: "regauth_revoked_token_rejected_total", Help: "Access tokens rejected because they were revoked."},
	{ID: regAuth.MetricRateLimitHit, Name: "regauth_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: regAuth.MetricPasswordUpgraded, Name: "regauth_password_upgraded_total", Help: "Password hashes upgraded on login."},
}

// HistogramDefs is an exported constant or variable used by the authentication engine.
var HistogramDefs = []HistogramDef{
	{ID: regAuth.MetricValidateLatency, Name: "regauth_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the authentication engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the authentication engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-slot array, zero-filling missing slots.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the running totals exporters expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// BackendInfoName is the info metric that labels each mutable table with its store.
const BackendInfoName = "regauth_store_backend_info"

// BackendLabel pairs a table with the store implementation serving it.
type BackendLabel struct {
	Table   string
	Backend string
}

// BackendLabels lists the non-empty entries of b in a fixed table order.
func BackendLabels(b regAuth.StoreBackends) []BackendLabel {
	all := []BackendLabel{
		{Table: "otp", Backend: b.OTP},
		{Table: "revocation", Backend: b.Revocation},
		{Table: "rate_limit", Backend: b.RateLimit},
	}
	out := all[:0]
	for _, l := range all {
		if l.Backend != "" {
			out = append(out, l)
		}
	}
	return out
}
