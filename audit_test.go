package regAuth

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := noMFAConfig()
	cfg.Audit.Enabled = false

	sink := &countingSink{}
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	env.register(t, "alice")
	_, _ = env.engine.Login(context.Background(), "alice", "wrong-password")
	env.engine.Close()

	if got := sink.count.Load(); got != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", got)
	}
}

func TestAuditEnabledSinkReceivesEventWithFields(t *testing.T) {
	cfg := noMFAConfig()
	cfg.Audit.Enabled = true

	sink := &captureSink{}
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	reg := env.register(t, "alice")

	ctx := WithUserAgent(WithClientIP(context.Background(), "198.51.100.33"), "curl/8.0")
	if _, err := env.engine.Login(ctx, "alice", strongPassword); err != nil {
		t.Fatalf("login: %v", err)
	}
	env.engine.Close()

	events := sink.byType(auditEventLoginSuccess)
	if len(events) != 1 {
		t.Fatalf("expected one login_success event, got %d", len(events))
	}
	ev := events[0]
	if ev.UserID != reg.UserID || ev.Identifier != "alice" || !ev.Success {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.IP != "198.51.100.33" || ev.UserAgent != "curl/8.0" {
		t.Fatalf("expected request attributes, got ip=%q ua=%q", ev.IP, ev.UserAgent)
	}
	if !ev.Timestamp.Equal(env.clock.Now().UTC()) {
		t.Fatalf("expected engine clock timestamp, got %s", ev.Timestamp)
	}
	if len(sink.byType(auditEventRegisterSuccess)) != 1 {
		t.Fatal("expected register_success event")
	}
}

func TestAuditRecordsLockoutReason(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true

	sink := &captureSink{}
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	env.register(t, "bob")

	res, err := env.engine.Login(context.Background(), "bob", strongPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	code := env.notifier.last("bob@example.com")
	for i := 0; i < 3; i++ {
		_, _ = env.engine.VerifyOTP(context.Background(), res.UserID, wrongCode(code))
	}
	env.engine.Close()

	if got := len(sink.byType(auditEventOTPFailure)); got != 2 {
		t.Fatalf("expected 2 otp_failure events, got %d", got)
	}
	locked := sink.byType(auditEventOTPLocked)
	if len(locked) != 1 || locked[0].Error != string(auditErrMFALocked) {
		t.Fatalf("expected one otp_locked event with mfa_locked, got %+v", locked)
	}
	if len(sink.byType(auditEventMFARequired)) != 1 {
		t.Fatal("expected mfa_required event")
	}
}

func TestAuditTokenRejectedRecordsVerifyCause(t *testing.T) {
	cfg := noMFAConfig()
	cfg.Audit.Enabled = true

	sink := &captureSink{}
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	reg := env.register(t, "dora")

	otherCfg := noMFAConfig()
	otherCfg.JWT.PrivateKey = []byte("fedcba9876543210fedcba9876543210")
	foreign := newTestEnv(t, otherCfg).register(t, "dora")

	ctx := context.Background()
	if _, err := env.engine.Validate(ctx, foreign.Tokens.AccessToken); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for a foreign signature, got %v", err)
	}
	if _, err := env.engine.Validate(ctx, "not-a-token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for garbage, got %v", err)
	}
	env.clock.Advance(-time.Hour)
	if _, err := env.engine.Validate(ctx, reg.Tokens.AccessToken); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed for a future token, got %v", err)
	}
	env.engine.Close()

	rejected := sink.byType(auditEventTokenRejected)
	if len(rejected) != 3 {
		t.Fatalf("expected 3 token_rejected events, got %d", len(rejected))
	}
	for i, want := range []string{"signature_invalid", "malformed", "not_yet_valid"} {
		if got := rejected[i].Metadata["reason"]; got != want {
			t.Fatalf("event %d: expected reason %q, got %q", i, want, got)
		}
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true

	var buf strings.Builder
	jsonSink := NewJSONWriterSink(&buf)
	env := newTestEnv(t, cfg, func(b *Builder) { b.WithAuditSink(jsonSink) })
	env.register(t, "carl")
	ctx := context.Background()

	res, err := env.engine.Login(ctx, "carl", strongPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	code := env.notifier.last("carl@example.com")
	tokens, err := env.engine.VerifyOTP(ctx, res.UserID, code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := env.engine.Refresh(ctx, tokens.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := env.engine.Logout(ctx, tokens.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	env.engine.Close()

	out := buf.String()
	if !strings.Contains(out, auditEventLogout) {
		t.Fatal("expected logout event in audit output")
	}
	for _, needle := range []string{strongPassword, code, tokens.AccessToken, tokens.RefreshToken} {
		if strings.Contains(out, needle) {
			t.Fatalf("secret %q leaked into audit output", needle)
		}
	}
}

func TestAuditErrorCodeMapping(t *testing.T) {
	cases := map[error]AuditErrorCode{
		nil:                                 "",
		ErrUserNotFound:                     auditErrUserNotFound,
		ErrInvalidCredentials:               auditErrPasswordMismatch,
		&LockedError{}:                      auditErrMFALocked,
		&OTPError{Err: ErrOTPExpired}:       auditErrOTPExpired,
		&OTPError{Err: ErrOTPInvalid}:       auditErrOTPMismatch,
		&RateLimitError{Scope: ScopeGlobal}: auditErrRateLimited,
		&PolicyError{}:                      auditErrPasswordPolicy,
		ErrTokenKind:                        auditErrTokenKind,
	}
	for err, want := range cases {
		if got := auditErrorCode(err); got != want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", err, got, want)
		}
	}
}
