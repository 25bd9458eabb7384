package flows

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// LoginResult is the flow-local login response shape. Either Tokens is set or
// MFARequired is true and Challenge describes the issued code.
type LoginResult struct {
	Account     Account
	Tokens      *Tokens
	MFARequired bool
	Challenge   Challenge
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	PasswordUpgraded int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	MFARequired      string
	PasswordUpgraded string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidInput       error
	InvalidCredentials error
	UserNotFound       error
	BackendUnavailable error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	PasswordUpgradeOnLogin bool
	// DummyHash is verified against when the account does not exist so both failure
	// paths spend the same hashing time.
	DummyHash string

	FindByIdentifier     func(context.Context, string) (Account, error)
	UpdatePasswordHash   func(context.Context, string, string) error
	VerifyPassword       func(string, string) bool
	PasswordNeedsUpgrade func(string) (bool, error)
	HashPassword         func(string) (string, error)
	IssueTokens          func(context.Context, Account) (Tokens, error)
	StartChallenge       func(context.Context, Account) (Challenge, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin verifies the password and either issues tokens or starts an OTP challenge.
// Unknown accounts and wrong passwords return the same error; the audit event carries
// the real cause.
func RunLogin(ctx context.Context, identifier, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.FindByIdentifier == nil ||
		deps.VerifyPassword == nil ||
		deps.IssueTokens == nil ||
		deps.StartChallenge == nil {
		return nil, deps.Errors.EngineNotReady
	}

	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", identifier, deps.Errors.InvalidInput, func() map[string]string {
			return map[string]string{
				"reason": "empty_input",
			}
		})
		return nil, deps.Errors.InvalidInput
	}

	account, err := deps.FindByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, deps.Errors.UserNotFound) {
			deps.MetricInc(deps.Metrics.LoginFailure)
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", identifier, deps.Errors.BackendUnavailable, func() map[string]string {
				return map[string]string{
					"reason": "directory_unavailable",
				}
			})
			return nil, deps.Errors.BackendUnavailable
		}
		if deps.DummyHash != "" {
			_ = deps.VerifyPassword(password, deps.DummyHash)
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", identifier, deps.Errors.UserNotFound, nil)
		return nil, deps.Errors.InvalidCredentials
	}

	if !deps.VerifyPassword(password, account.PasswordHash) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, account.ID, identifier, deps.Errors.InvalidCredentials, nil)
		return nil, deps.Errors.InvalidCredentials
	}

	if deps.PasswordUpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if needsUpgrade, err := deps.PasswordNeedsUpgrade(account.PasswordHash); err == nil && needsUpgrade {
			if upgradedHash, err := deps.HashPassword(password); err == nil {
				if err := deps.UpdatePasswordHash(ctx, account.ID, upgradedHash); err != nil {
					deps.Warn("regAuth: password hash upgrade update failed", "user_id", account.ID)
				} else {
					account.PasswordHash = upgradedHash
					deps.MetricInc(deps.Metrics.PasswordUpgraded)
					deps.EmitAudit(ctx, deps.Events.PasswordUpgraded, true, account.ID, identifier, nil, nil)
				}
			} else {
				deps.Warn("regAuth: password hash upgrade generation failed", "user_id", account.ID)
			}
		}
	}
	password = ""

	if !account.MFAEnabled {
		tokens, err := deps.IssueTokens(ctx, account)
		if err != nil {
			deps.MetricInc(deps.Metrics.LoginFailure)
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, account.ID, identifier, err, func() map[string]string {
				return map[string]string{
					"reason": "token_issue_failed",
				}
			})
			return nil, err
		}
		deps.MetricInc(deps.Metrics.LoginSuccess)
		deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, account.ID, identifier, nil, func() map[string]string {
			return map[string]string{
				"mfa": "disabled",
			}
		})
		return &LoginResult{Account: account, Tokens: &tokens}, nil
	}

	challenge, err := deps.StartChallenge(ctx, account)
	if err != nil {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, account.ID, identifier, err, func() map[string]string {
			return map[string]string{
				"reason": "challenge_failed",
			}
		})
		return nil, err
	}

	deps.EmitAudit(ctx, deps.Events.MFARequired, true, account.ID, identifier, nil, func() map[string]string {
		return map[string]string{
			"delivered": strconv.FormatBool(challenge.Delivered),
		}
	})

	return &LoginResult{
		Account:     account,
		MFARequired: true,
		Challenge:   challenge,
	}, nil
}
