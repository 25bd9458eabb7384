package flows

import (
	"context"
	"errors"
	"fmt"
)

type MFAMetrics struct {
	MFAEnabled  int
	MFADisabled int
}

type MFAEvents struct {
	MFAEnabled     string
	MFADisabled    string
	DisableFailure string
}

type MFAErrors struct {
	EngineNotReady     error
	InvalidInput       error
	InvalidCredentials error
	UserNotFound       error
	BackendUnavailable error
}

// MFADeps captures MFA preference dependencies.
type MFADeps struct {
	GetPreference  func(context.Context, string) (bool, error)
	SetPreference  func(context.Context, string, bool) error
	FindByID       func(context.Context, string) (Account, error)
	VerifyPassword func(string, string) bool
	// DummyHash keeps a disable attempt for a vanished account as slow as a real one.
	DummyHash string

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics MFAMetrics
	Events  MFAEvents
	Errors  MFAErrors
}

func normalizeMFADeps(deps *MFADeps) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
}

func (d MFADeps) directoryErr(err error) error {
	if errors.Is(err, d.Errors.UserNotFound) {
		return d.Errors.UserNotFound
	}
	return fmt.Errorf("%w: %v", d.Errors.BackendUnavailable, err)
}

// RunMFAStatus returns the stored preference of userID.
func RunMFAStatus(ctx context.Context, userID string, deps MFADeps) (bool, error) {
	if deps.GetPreference == nil {
		return false, deps.Errors.EngineNotReady
	}
	if userID == "" {
		return false, deps.Errors.InvalidInput
	}
	enabled, err := deps.GetPreference(ctx, userID)
	if err != nil {
		return false, deps.directoryErr(err)
	}
	return enabled, nil
}

// RunEnableMFA turns the second factor on. A bearer of a valid access token needs no
// further proof to strengthen their own account.
func RunEnableMFA(ctx context.Context, userID string, deps MFADeps) error {
	normalizeMFADeps(&deps)
	if deps.SetPreference == nil {
		return deps.Errors.EngineNotReady
	}
	if userID == "" {
		return deps.Errors.InvalidInput
	}
	if err := deps.SetPreference(ctx, userID, true); err != nil {
		return deps.directoryErr(err)
	}
	deps.MetricInc(deps.Metrics.MFAEnabled)
	deps.EmitAudit(ctx, deps.Events.MFAEnabled, true, userID, "", nil, nil)
	return nil
}

// RunDisableMFA turns the second factor off after re-verifying the account password.
func RunDisableMFA(ctx context.Context, userID, password string, deps MFADeps) error {
	normalizeMFADeps(&deps)
	if deps.SetPreference == nil || deps.FindByID == nil || deps.VerifyPassword == nil {
		return deps.Errors.EngineNotReady
	}
	if userID == "" || password == "" {
		deps.EmitAudit(ctx, deps.Events.DisableFailure, false, userID, "", deps.Errors.InvalidInput, nil)
		return deps.Errors.InvalidInput
	}

	account, err := deps.FindByID(ctx, userID)
	if err != nil {
		mapped := deps.directoryErr(err)
		if errors.Is(mapped, deps.Errors.UserNotFound) && deps.DummyHash != "" {
			_ = deps.VerifyPassword(password, deps.DummyHash)
		}
		deps.EmitAudit(ctx, deps.Events.DisableFailure, false, userID, "", mapped, nil)
		return mapped
	}

	if !deps.VerifyPassword(password, account.PasswordHash) {
		deps.EmitAudit(ctx, deps.Events.DisableFailure, false, account.ID, account.Username, deps.Errors.InvalidCredentials, nil)
		return deps.Errors.InvalidCredentials
	}

	if err := deps.SetPreference(ctx, account.ID, false); err != nil {
		mapped := deps.directoryErr(err)
		deps.EmitAudit(ctx, deps.Events.DisableFailure, false, account.ID, account.Username, mapped, nil)
		return mapped
	}

	deps.MetricInc(deps.Metrics.MFADisabled)
	deps.EmitAudit(ctx, deps.Events.MFADisabled, true, account.ID, account.Username, nil, nil)
	return nil
}
