package regAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/regAuth/internal/audit"
	internalflows "github.com/MrEthical07/regAuth/internal/flows"
	"github.com/MrEthical07/regAuth/jwt"
	"github.com/MrEthical07/regAuth/otp"
	"github.com/MrEthical07/regAuth/password"
	"github.com/MrEthical07/regAuth/ratelimit"
	"github.com/MrEthical07/regAuth/revocation"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
	backendCustom = "custom"
)

// StoreBackends names the implementation behind each mutable table.
type StoreBackends struct {
	OTP        string
	Revocation string
	RateLimit  string
}

// Engine defines a public type used by regAuth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config      Config
	jwtManager  *jwt.Manager
	hasher      *password.Hasher
	dummyHash   string
	directory   UserDirectory
	notifier    Notifier
	diagnostics Diagnostics

	otpStore      otp.Store
	revocations   revocation.Store
	rateStore     ratelimit.Store
	globalLimiter *ratelimit.Limiter
	authLimiter   *ratelimit.Limiter
	backends      StoreBackends

	flows   internalflows.Service
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  *slog.Logger
	clock   func() time.Time

	stopJanitor context.CancelFunc
	janitorDone chan struct{}
}

// Close describes the close operation and its observable behavior.
//
// Close stops the store janitor and flushes pending audit events. Stores and clients
// passed to the builder stay open; their owner closes them.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.stopJanitor != nil {
		e.stopJanitor()
		<-e.janitorDone
		e.stopJanitor = nil
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Backends reports which store implementation serves each table.
func (e *Engine) Backends() StoreBackends {
	if e == nil {
		return StoreBackends{}
	}
	return e.backends
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricIncInt(id int) {
	e.metricInc(MetricID(id))
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

func (e *Engine) warn(msg string, args ...any) {
	e.logger.Warn(msg, args...)
}

func (e *Engine) ready() bool {
	return e != nil && e.jwtManager != nil && e.flows.Initialized()
}

// issueTokens mints an access/refresh pair for account.
func (e *Engine) issueTokens(_ context.Context, account internalflows.Account) (internalflows.Tokens, error) {
	subject := jwt.SubjectClaims{
		UserID:   account.ID,
		Username: account.Username,
		Email:    account.Email,
	}
	now := e.now()

	access, err := e.jwtManager.Mint(subject, jwt.KindAccess)
	if err != nil {
		return internalflows.Tokens{}, mintError(err)
	}
	refresh, err := e.jwtManager.Mint(subject, jwt.KindRefresh)
	if err != nil {
		return internalflows.Tokens{}, mintError(err)
	}

	return internalflows.Tokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  now.Add(e.jwtManager.TTL(jwt.KindAccess)),
		RefreshExpiresAt: now.Add(e.jwtManager.TTL(jwt.KindRefresh)),
	}, nil
}

func mintError(err error) error {
	if errors.Is(err, jwt.ErrInvalidPayload) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return fmt.Errorf("mint token: %w", err)
}

func toTokenPair(t internalflows.Tokens) *TokenPair {
	return &TokenPair{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshExpiresAt: t.RefreshExpiresAt,
	}
}

func toFlowAccount(a Account) internalflows.Account {
	return internalflows.Account{
		ID:           a.ID,
		Username:     a.Username,
		FullName:     a.FullName,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		MFAEnabled:   a.MFAEnabled,
	}
}

// mapVerifyError collapses token verification failures into the two externally visible
// causes.
func mapVerifyError(err error) error {
	if errors.Is(err, jwt.ErrExpired) {
		return ErrTokenExpired
	}
	return ErrTokenMalformed
}

// verifyCause names the real verification failure for audit metadata, which
// mapVerifyError hides from the caller.
func verifyCause(err error) string {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return "expired"
	case errors.Is(err, jwt.ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, jwt.ErrSignatureInvalid):
		return "signature_invalid"
	default:
		return "malformed"
	}
}

func (e *Engine) findByID(ctx context.Context, userID string) (internalflows.Account, error) {
	account, err := e.directory.FindByID(ctx, userID)
	if err != nil {
		return internalflows.Account{}, err
	}
	return toFlowAccount(account), nil
}

func (e *Engine) findByIdentifier(ctx context.Context, identifier string) (internalflows.Account, error) {
	account, err := e.directory.FindByIdentifier(ctx, identifier)
	if err != nil {
		return internalflows.Account{}, err
	}
	return toFlowAccount(account), nil
}

func (e *Engine) createAccount(ctx context.Context, in internalflows.NewAccountInput) (internalflows.Account, error) {
	account, err := e.directory.Create(ctx, NewAccount{
		Username:     in.Username,
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		MFAEnabled:   in.MFAEnabled,
	})
	if err != nil {
		return internalflows.Account{}, err
	}
	return toFlowAccount(account), nil
}

func otpRejection(reason otp.Reason, attemptsRemaining int) error {
	base := ErrOTPInvalid
	if reason == otp.ReasonExpired {
		base = ErrOTPExpired
	}
	return &OTPError{Err: base, AttemptsRemaining: attemptsRemaining}
}

func lockedError(remaining time.Duration) error {
	return &LockedError{RetryAfter: remaining}
}

// buildFlows wires every flow once. The returned service is immutable.
func (e *Engine) buildFlows() internalflows.Service {
	var diagnose func(context.Context, string, string) bool
	if e.diagnostics != nil {
		diagnose = e.diagnostics.OTPIssued
	}

	otpDeps := internalflows.OTPDeps{
		TTL:          e.config.OTP.TTL,
		MaxAttempts:  e.config.OTP.MaxAttempts,
		LockDuration: e.config.OTP.LockDuration,
		Store:        e.otpStore,
		Now:          e.now,
		FindByID:     e.findByID,
		SendCode:     e.notifier.SendCode,
		Diagnose:     diagnose,
		IssueTokens:  e.issueTokens,
		MetricInc:    e.metricIncInt,
		EmitAudit:    e.emitAudit,
		Warn:         e.warn,
		Metrics: internalflows.OTPMetrics{
			ChallengeIssued: int(MetricMFAChallengeIssued),
			DeliveryFailure: int(MetricOTPDeliveryFailure),
			OTPSuccess:      int(MetricOTPSuccess),
			OTPFailure:      int(MetricOTPFailure),
			OTPLockout:      int(MetricOTPLockout),
			OTPResend:       int(MetricOTPResend),
		},
		Events: internalflows.OTPEvents{
			DeliveryFailed: auditEventOTPDeliveryFailed,
			OTPSuccess:     auditEventOTPSuccess,
			OTPFailure:     auditEventOTPFailure,
			OTPLocked:      auditEventOTPLocked,
			OTPResend:      auditEventOTPResend,
		},
		Errors: internalflows.OTPErrors{
			EngineNotReady:     ErrEngineNotReady,
			NotPending:         ErrOTPNotPending,
			UserNotFound:       ErrUserNotFound,
			BackendUnavailable: ErrBackendUnavailable,
			Locked:             lockedError,
			Rejected:           otpRejection,
		},
	}

	return internalflows.New(internalflows.Deps{
		Register: internalflows.RegisterDeps{
			DefaultMFAEnabled: e.config.MFA.DefaultEnabled,
			PolicyError: func(report password.StrengthReport) error {
				return &PolicyError{Report: report}
			},
			HashPassword:   e.hasher.Hash,
			PasswordTooBig: password.ErrPasswordTooLong,
			CreateAccount:  e.createAccount,
			IsDuplicate: func(err error) bool {
				return errors.Is(err, ErrAccountExists)
			},
			IssueTokens: e.issueTokens,
			MetricInc:   e.metricIncInt,
			EmitAudit:   e.emitAudit,
			Metrics: internalflows.RegisterMetrics{
				RegisterSuccess:   int(MetricRegisterSuccess),
				RegisterFailure:   int(MetricRegisterFailure),
				RegisterDuplicate: int(MetricRegisterDuplicate),
			},
			Events: internalflows.RegisterEvents{
				RegisterSuccess:   auditEventRegisterSuccess,
				RegisterFailure:   auditEventRegisterFailure,
				RegisterDuplicate: auditEventRegisterDuplicate,
			},
			Errors: internalflows.RegisterErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidInput:       ErrInvalidInput,
				AccountExists:      ErrAccountExists,
				HashingFailure:     ErrHashingFailure,
				BackendUnavailable: ErrBackendUnavailable,
			},
		},
		Login: internalflows.LoginDeps{
			PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
			DummyHash:              e.dummyHash,
			FindByIdentifier:       e.findByIdentifier,
			UpdatePasswordHash:     e.directory.UpdatePasswordHash,
			VerifyPassword:         e.hasher.Verify,
			PasswordNeedsUpgrade:   e.hasher.NeedsUpgrade,
			HashPassword:           e.hasher.Hash,
			IssueTokens:            e.issueTokens,
			StartChallenge: func(ctx context.Context, account internalflows.Account) (internalflows.Challenge, error) {
				return internalflows.RunIssueChallenge(ctx, account, otpDeps)
			},
			MetricInc: e.metricIncInt,
			EmitAudit: e.emitAudit,
			Warn:      e.warn,
			Metrics: internalflows.LoginMetrics{
				LoginSuccess:     int(MetricLoginSuccess),
				LoginFailure:     int(MetricLoginFailure),
				PasswordUpgraded: int(MetricPasswordUpgraded),
			},
			Events: internalflows.LoginEvents{
				LoginSuccess:     auditEventLoginSuccess,
				LoginFailure:     auditEventLoginFailure,
				MFARequired:      auditEventMFARequired,
				PasswordUpgraded: auditEventPasswordUpgraded,
			},
			Errors: internalflows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidInput:       ErrInvalidInput,
				InvalidCredentials: ErrInvalidCredentials,
				UserNotFound:       ErrUserNotFound,
				BackendUnavailable: ErrBackendUnavailable,
			},
		},
		OTP: otpDeps,
		MFA: internalflows.MFADeps{
			GetPreference:  e.directory.GetMFAPreference,
			SetPreference:  e.directory.SetMFAPreference,
			FindByID:       e.findByID,
			VerifyPassword: e.hasher.Verify,
			DummyHash:      e.dummyHash,
			MetricInc:      e.metricIncInt,
			EmitAudit:      e.emitAudit,
			Metrics: internalflows.MFAMetrics{
				MFAEnabled:  int(MetricMFAEnabled),
				MFADisabled: int(MetricMFADisabled),
			},
			Events: internalflows.MFAEvents{
				MFAEnabled:     auditEventMFAEnabled,
				MFADisabled:    auditEventMFADisabled,
				DisableFailure: auditEventMFADisableFailure,
			},
			Errors: internalflows.MFAErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidInput:       ErrInvalidInput,
				InvalidCredentials: ErrInvalidCredentials,
				UserNotFound:       ErrUserNotFound,
				BackendUnavailable: ErrBackendUnavailable,
			},
		},
		Validate: internalflows.ValidateDeps{
			Verify:      e.jwtManager.Verify,
			Revocations: e.revocations,
		},
		Logout: internalflows.LogoutDeps{
			Verify:      e.jwtManager.Verify,
			Revocations: e.revocations,
		},
		Refresh: internalflows.RefreshDeps{
			Verify:       e.jwtManager.Verify,
			Revocations:  e.revocations,
			FindByID:     e.findByID,
			UserNotFound: ErrUserNotFound,
			IssueTokens:  e.issueTokens,
		},
	})
}
