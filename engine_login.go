package regAuth

import (
	"context"
	"strings"
	"unicode/utf8"

	internalflows "github.com/MrEthical07/regAuth/internal/flows"
)

// Login describes the login operation and its observable behavior.
//
// Login returns [ErrInvalidCredentials] for an unknown account and for a wrong password
// alike. When the account has MFA enabled the result carries MFARequired and a code has
// been issued; otherwise it carries tokens.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	result, err := e.flows.Login(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	if !result.MFARequired {
		return &LoginResult{
			Tokens: toTokenPair(*result.Tokens),
			UserID: result.Account.ID,
		}, nil
	}

	return &LoginResult{
		MFARequired:   true,
		UserID:        result.Challenge.UserID,
		MaskedEmail:   MaskEmail(result.Challenge.Email),
		CodeDelivered: result.Challenge.Delivered,
		DebugCode:     result.Challenge.DebugCode,
	}, nil
}

// VerifyOTP describes the verifyotp operation and its observable behavior.
//
// VerifyOTP returns a [*LockedError] while the pending code is locked, whatever code is
// presented. Other failures are [ErrOTPNotPending] or an [*OTPError] with the attempts left.
// VerifyOTP does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) VerifyOTP(ctx context.Context, userID, code string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	userID = strings.TrimSpace(userID)
	code = strings.TrimSpace(code)
	if userID == "" || code == "" {
		return nil, ErrInvalidInput
	}

	result, err := e.flows.VerifyOTP(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	return toTokenPair(result.Tokens), nil
}

// ResendOTP replaces the pending code of userID with a fresh one and redispatches it.
// It returns [ErrOTPNotPending] when no login is awaiting a code and a [*LockedError]
// while locked.
func (e *Engine) ResendOTP(ctx context.Context, userID string) (*ResendResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}

	challenge, err := e.flows.ResendOTP(ctx, userID)
	if err != nil {
		return nil, err
	}
	return resendResult(challenge), nil
}

func resendResult(c internalflows.Challenge) *ResendResult {
	return &ResendResult{
		UserID:        c.UserID,
		MaskedEmail:   MaskEmail(c.Email),
		CodeDelivered: c.Delivered,
		ExpiresAt:     c.ExpiresAt,
		DebugCode:     c.DebugCode,
	}
}

// MaskEmail keeps the first two characters of the local part: jo***@example.com.
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]

	keep := 2
	if n := utf8.RuneCountInString(local); n <= keep {
		keep = n - 1
	}
	runes := []rune(local)
	if keep < 1 {
		return "***" + domain
	}
	return string(runes[:keep]) + "***" + domain
}
