package regAuth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func withMetrics(b *Builder) { b.WithMetricsEnabled(true) }

func TestMetricsDisabledEngineCountsNothing(t *testing.T) {
	env := newTestEnv(t, noMFAConfig())
	env.register(t, "alice")

	snap := env.engine.MetricsSnapshot()
	if got := snap.Counters[MetricRegisterSuccess]; got != 0 {
		t.Fatalf("expected no counts with metrics disabled, got %d", got)
	}
}

func TestMetricsCountAccountAndTokenOutcomes(t *testing.T) {
	env := newTestEnv(t, noMFAConfig(), withMetrics)
	ctx := context.Background()

	reg := env.register(t, "alice")
	if _, err := env.engine.Register(ctx, RegisterRequest{
		Username: "alice", FullName: "Alice", Email: "other@example.com", Password: strongPassword,
	}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}

	_, _ = env.engine.Login(ctx, "alice", "Wrong-Password-1")
	if _, err := env.engine.Login(ctx, "alice", strongPassword); err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := env.engine.Logout(ctx, reg.Tokens.AccessToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, _ = env.engine.Validate(ctx, reg.Tokens.AccessToken)

	if _, err := env.engine.Refresh(ctx, reg.Tokens.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	_, _ = env.engine.Refresh(ctx, reg.Tokens.RefreshToken)

	want := map[MetricID]uint64{
		MetricRegisterSuccess:      1,
		MetricRegisterDuplicate:    1,
		MetricLoginFailure:         1,
		MetricLoginSuccess:         1,
		MetricLogout:               1,
		MetricValidateFailure:      1,
		MetricRevokedTokenRejected: 1,
		MetricRefreshSuccess:       1,
		MetricRefreshFailure:       1,
	}
	snap := env.engine.MetricsSnapshot()
	for id, n := range want {
		if got := snap.Counters[id]; got != n {
			t.Fatalf("metric %d: expected %d, got %d", id, n, got)
		}
	}
}

func TestMetricsCountOTPLifecycle(t *testing.T) {
	env := newTestEnv(t, testConfig(), withMetrics)
	ctx := context.Background()
	env.register(t, "bob")

	res, err := env.engine.Login(ctx, "bob", strongPassword)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := env.engine.ResendOTP(ctx, res.UserID); err != nil {
		t.Fatalf("resend: %v", err)
	}
	bad := wrongCode(env.notifier.last("bob@example.com"))
	for i := 0; i < 3; i++ {
		_, _ = env.engine.VerifyOTP(ctx, res.UserID, bad)
	}

	snap := env.engine.MetricsSnapshot()
	checks := []struct {
		id   MetricID
		want uint64
	}{
		{MetricMFAChallengeIssued, 2},
		{MetricOTPResend, 1},
		{MetricOTPFailure, 2},
		{MetricOTPLockout, 1},
		{MetricOTPSuccess, 0},
	}
	for _, c := range checks {
		if got := snap.Counters[c.id]; got != c.want {
			t.Fatalf("metric %d: expected %d, got %d", c.id, c.want, got)
		}
	}
}

func TestMetricsConcurrentValidateFailuresCounted(t *testing.T) {
	env := newTestEnv(t, noMFAConfig(), withMetrics)
	ctx := context.Background()

	const goroutines = 16
	const perG = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				_, _ = env.engine.Validate(ctx, "not-a-token")
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := env.engine.MetricsSnapshot().Counters[MetricValidateFailure]; got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsValidateLatencyHistogram(t *testing.T) {
	env := newTestEnv(t, noMFAConfig(), withMetrics, func(b *Builder) { b.WithLatencyHistograms(true) })
	ctx := context.Background()
	reg := env.register(t, "carol")

	for i := 0; i < 3; i++ {
		if _, err := env.engine.Validate(ctx, reg.Tokens.AccessToken); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	buckets := env.engine.MetricsSnapshot().Histograms[MetricValidateLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	var total uint64
	for _, v := range buckets {
		total += v
	}
	if total != 3 {
		t.Fatalf("expected 3 observations, got %d", total)
	}
}

func TestMetricsHistogramBucketBoundaries(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	for _, d := range []time.Duration{
		5 * time.Millisecond,
		10 * time.Millisecond,
		25 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		2 * time.Second,
	} {
		m.Observe(MetricValidateLatency, d)
	}

	for i, v := range m.Snapshot().Histograms[MetricValidateLatency] {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}
