package regAuth

import internalmetrics "github.com/MrEthical07/regAuth/internal/metrics"

// MetricID identifies an engine counter.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess is an exported constant or variable used by the authentication engine.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the authentication engine.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricRegisterSuccess is an exported constant or variable used by the authentication engine.
	MetricRegisterSuccess = internalmetrics.MetricRegisterSuccess
	// MetricRegisterFailure is an exported constant or variable used by the authentication engine.
	MetricRegisterFailure = internalmetrics.MetricRegisterFailure
	// MetricRegisterDuplicate is an exported constant or variable used by the authentication engine.
	MetricRegisterDuplicate = internalmetrics.MetricRegisterDuplicate
	// MetricMFAChallengeIssued is an exported constant or variable used by the authentication engine.
	MetricMFAChallengeIssued = internalmetrics.MetricMFAChallengeIssued
	// MetricOTPDeliveryFailure is an exported constant or variable used by the authentication engine.
	MetricOTPDeliveryFailure = internalmetrics.MetricOTPDeliveryFailure
	// MetricOTPSuccess is an exported constant or variable used by the authentication engine.
	MetricOTPSuccess = internalmetrics.MetricOTPSuccess
	// MetricOTPFailure is an exported constant or variable used by the authentication engine.
	MetricOTPFailure = internalmetrics.MetricOTPFailure
	// MetricOTPLockout is an exported constant or variable used by the authentication engine.
	MetricOTPLockout = internalmetrics.MetricOTPLockout
	// MetricOTPResend is an exported constant or variable used by the authentication engine.
	MetricOTPResend = internalmetrics.MetricOTPResend
	// MetricMFAEnabled is an exported constant or variable used by the authentication engine.
	MetricMFAEnabled = internalmetrics.MetricMFAEnabled
	// MetricMFADisabled is an exported constant or variable used by the authentication engine.
	MetricMFADisabled = internalmetrics.MetricMFADisabled
	// MetricLogout is an exported constant or variable used by the authentication engine.
	MetricLogout = internalmetrics.MetricLogout
	// MetricRefreshSuccess is an exported constant or variable used by the authentication engine.
	MetricRefreshSuccess = internalmetrics.MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the authentication engine.
	MetricRefreshFailure = internalmetrics.MetricRefreshFailure
	// MetricValidateFailure is an exported constant or variable used by the authentication engine.
	MetricValidateFailure = internalmetrics.MetricValidateFailure
	// MetricRevokedTokenRejected is an exported constant or variable used by the authentication engine.
	MetricRevokedTokenRejected = internalmetrics.MetricRevokedTokenRejected
	// MetricRateLimitHit is an exported constant or variable used by the authentication engine.
	MetricRateLimitHit = internalmetrics.MetricRateLimitHit
	// MetricPasswordUpgraded is an exported constant or variable used by the authentication engine.
	MetricPasswordUpgraded = internalmetrics.MetricPasswordUpgraded
	// MetricValidateLatency is an exported constant or variable used by the authentication engine.
	MetricValidateLatency = internalmetrics.MetricValidateLatency
)

// Metrics holds atomic counters and the optional validate latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance configured by cfg. When Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
