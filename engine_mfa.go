package regAuth

import "context"

// MFAStatus returns the second-factor preference of userID.
func (e *Engine) MFAStatus(ctx context.Context, userID string) (MFAStatus, error) {
	if !e.ready() {
		return MFAStatus{}, ErrEngineNotReady
	}
	enabled, err := e.flows.MFAStatus(ctx, userID)
	if err != nil {
		return MFAStatus{}, err
	}
	return MFAStatus{UserID: userID, Enabled: enabled}, nil
}

// EnableMFA turns the second factor on for userID.
func (e *Engine) EnableMFA(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.EnableMFA(ctx, userID)
}

// DisableMFA describes the disablemfa operation and its observable behavior.
//
// DisableMFA re-verifies the account password and returns [ErrInvalidCredentials] when it
// does not match. The preference is unchanged on any error.
// DisableMFA does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DisableMFA(ctx context.Context, userID, password string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.DisableMFA(ctx, userID, password)
}
