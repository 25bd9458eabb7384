package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	regAuth "github.com/MrEthical07/regAuth"
	"github.com/getsentry/sentry-go"
)

// Error codes written in the "error" field of failure bodies.
const (
	CodeInvalidInput       = "invalid_input"
	CodeWeakPassword       = "weak_password"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnauthorized       = "unauthorized"
	CodeTokenExpired       = "token_expired"
	CodeTokenMalformed     = "token_malformed"
	CodeTokenRevoked       = "token_revoked"
	CodeTokenWrongKind     = "token_wrong_kind"
	CodeOTPInvalid         = "otp_invalid"
	CodeOTPExpired         = "otp_expired"
	CodeOTPNotPending      = "otp_not_pending"
	CodeAccountExists      = "account_exists"
	CodeMFALocked          = "mfa_locked"
	CodeRateLimited        = "rate_limited"
	CodeInternal           = "internal_error"
	CodeUnavailable        = "unavailable"
)

type errorBody struct {
	Error             string                  `json:"error"`
	Message           string                  `json:"message"`
	RetryAfterSeconds int                     `json:"retryAfterSeconds,omitempty"`
	AttemptsRemaining *int                    `json:"attemptsRemaining,omitempty"`
	Details           *regAuth.StrengthReport `json:"details,omitempty"`
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: wrapped sentinels are matched first to last.
var errorTable = []errorMapping{
	{regAuth.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput, "invalid request"},
	{regAuth.ErrPasswordPolicy, http.StatusBadRequest, CodeWeakPassword, "password does not meet the requirements"},
	{regAuth.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials, "invalid credentials"},
	{regAuth.ErrUserNotFound, http.StatusUnauthorized, CodeUnauthorized, "unauthorized"},
	{regAuth.ErrTokenExpired, http.StatusUnauthorized, CodeTokenExpired, "token expired"},
	{regAuth.ErrTokenMalformed, http.StatusUnauthorized, CodeTokenMalformed, "invalid token"},
	{regAuth.ErrTokenRevoked, http.StatusUnauthorized, CodeTokenRevoked, "token revoked"},
	{regAuth.ErrTokenKind, http.StatusUnauthorized, CodeTokenWrongKind, "token not accepted here"},
	{regAuth.ErrOTPInvalid, http.StatusUnauthorized, CodeOTPInvalid, "invalid verification code"},
	{regAuth.ErrOTPExpired, http.StatusUnauthorized, CodeOTPExpired, "verification code expired"},
	{regAuth.ErrOTPNotPending, http.StatusUnauthorized, CodeOTPNotPending, "no verification code pending"},
	{regAuth.ErrAccountExists, http.StatusConflict, CodeAccountExists, "account already exists"},
	{regAuth.ErrMFALocked, http.StatusTooManyRequests, CodeMFALocked, "too many failed attempts, try again later"},
	{regAuth.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited, "too many requests, try again later"},
	{regAuth.ErrHashingFailure, http.StatusInternalServerError, CodeInternal, "internal server error"},
	{regAuth.ErrBackendUnavailable, http.StatusServiceUnavailable, CodeUnavailable, "service unavailable"},
	{regAuth.ErrEngineNotReady, http.StatusServiceUnavailable, CodeUnavailable, "service unavailable"},
}

// StatusFor returns the HTTP status and error code err is answered with.
func StatusFor(err error) (int, string) {
	m, ok := lookup(err)
	if !ok {
		return http.StatusInternalServerError, CodeInternal
	}
	return m.status, m.code
}

func lookup(err error) (errorMapping, bool) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m, true
		}
	}
	return errorMapping{}, false
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	m, ok := lookup(err)
	if !ok {
		m = errorMapping{status: http.StatusInternalServerError, code: CodeInternal, message: "internal server error"}
	}

	body := errorBody{Error: m.code, Message: m.message}

	if d, ok := regAuth.RetryAfter(err); ok {
		secs := regAuth.RetryAfterSeconds(d)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		body.RetryAfterSeconds = secs
	}

	var otpErr *regAuth.OTPError
	if errors.As(err, &otpErr) {
		remaining := otpErr.AttemptsRemaining
		body.AttemptsRemaining = &remaining
	}

	var policyErr *regAuth.PolicyError
	if errors.As(err, &policyErr) {
		report := policyErr.Report
		body.Details = &report
	}

	if m.status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.status,
			"error", err,
		)
		if !ok {
			hub := sentry.GetHubFromContext(r.Context())
			if hub == nil {
				hub = sentry.CurrentHub()
			}
			hub.CaptureException(err)
		}
	}

	writeJSON(w, m.status, body)
}
