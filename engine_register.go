package regAuth

import (
	"context"

	internalflows "github.com/MrEthical07/regAuth/internal/flows"
	"github.com/MrEthical07/regAuth/password"
)

// RegisterResult is returned by [Engine.Register].
type RegisterResult struct {
	UserID     string
	Username   string
	Email      string
	MFAEnabled bool
	Tokens     TokenPair
}

// Register describes the register operation and its observable behavior.
//
// Register may return [ErrInvalidInput], a [*PolicyError] (unwrapping to [ErrPasswordPolicy])
// carrying the full checklist, [ErrAccountExists], [ErrHashingFailure] or [ErrBackendUnavailable].
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	result, err := e.flows.Register(ctx, internalflows.RegisterRequest{
		Username: req.Username,
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResult{
		UserID:     result.Account.ID,
		Username:   result.Account.Username,
		Email:      result.Account.Email,
		MFAEnabled: result.Account.MFAEnabled,
		Tokens:     *toTokenPair(result.Tokens),
	}, nil
}

// CheckPasswordStrength returns the full strength checklist without hashing anything.
func (e *Engine) CheckPasswordStrength(pw string) StrengthReport {
	return password.ValidateStrength(pw)
}
