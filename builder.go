package regAuth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/regAuth/internal/audit"
	"github.com/MrEthical07/regAuth/jwt"
	"github.com/MrEthical07/regAuth/otp"
	"github.com/MrEthical07/regAuth/password"
	"github.com/MrEthical07/regAuth/ratelimit"
	"github.com/MrEthical07/regAuth/revocation"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by regAuth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory   UserDirectory
	notifier    Notifier
	diagnostics Diagnostics
	auditSink   AuditSink
	logger      *slog.Logger
	clock       func() time.Time

	otpStore        otp.Store
	revocationStore revocation.Store
	rateStore       ratelimit.Store

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis switches every store not set explicitly to its Redis implementation.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserDirectory sets the required account store.
func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.directory = dir
	return b
}

// WithNotifier sets the required one-time code delivery channel.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithDiagnostics installs a code observer. Build rejects it in production mode.
func (b *Builder) WithDiagnostics(d Diagnostics) *Builder {
	b.diagnostics = d
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for tokens, codes, lockouts and rate windows.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithOTPStore(store otp.Store) *Builder {
	b.otpStore = store
	return b
}

func (b *Builder) WithRevocationStore(store revocation.Store) *Builder {
	b.revocationStore = store
	return b
}

func (b *Builder) WithRateLimitStore(store ratelimit.Store) *Builder {
	b.rateStore = store
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// A missing or short signing secret is one of those errors and must stop the process.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.directory == nil {
		return nil, errors.New("user directory required")
	}
	if b.notifier == nil {
		return nil, errors.New("notifier required")
	}
	if b.diagnostics != nil && cfg.Security.ProductionMode {
		return nil, errors.New("diagnostics are not allowed in production mode")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	engine := &Engine{
		config:      cfg,
		directory:   b.directory,
		notifier:    b.notifier,
		diagnostics: b.diagnostics,
		logger:      logger,
		clock:       clock,
		metrics:     NewMetrics(cfg.Metrics),
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewHasher(password.HasherConfig{
		Algorithm:  cfg.Password.Algorithm,
		BcryptCost: cfg.Password.BcryptCost,
		Argon2:     cfg.Password.Argon2,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = hasher

	dummyHash, err := newDummyHash(hasher)
	if err != nil {
		return nil, err
	}
	engine.dummyHash = dummyHash

	// -------- TOKEN MANAGER --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		RequireIAT:    true,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
		Now:           clock,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	// -------- STORES --------
	engine.otpStore, engine.backends.OTP = b.buildOTPStore(cfg)
	engine.revocations, engine.backends.Revocation = b.buildRevocationStore(cfg, clock)
	engine.rateStore, engine.backends.RateLimit = b.buildRateStore(cfg)

	if cfg.RateLimit.Enabled {
		engine.globalLimiter, err = ratelimit.New(engine.rateStore, ratelimit.Policy{
			Name:   ScopeGlobal,
			Limit:  cfg.RateLimit.GlobalLimit,
			Window: cfg.RateLimit.GlobalWindow,
		}, clock)
		if err != nil {
			return nil, err
		}
		engine.authLimiter, err = ratelimit.New(engine.rateStore, ratelimit.Policy{
			Name:   ScopeAuth,
			Limit:  cfg.RateLimit.AuthLimit,
			Window: cfg.RateLimit.AuthWindow,
		}, clock)
		if err != nil {
			return nil, err
		}
	}

	// -------- AUDIT --------
	sink := b.auditSink
	if sink == nil {
		sink = NewSlogSink(logger)
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Now:        engine.now,
		OnDrop: func(ev AuditEvent) {
			logger.Debug("regAuth: audit event dropped", "event_type", ev.EventType, "user_id", ev.UserID)
		},
	}, sink)

	engine.flows = engine.buildFlows()
	engine.startJanitor()

	b.built = true

	return engine, nil
}

func (b *Builder) buildOTPStore(cfg Config) (otp.Store, string) {
	switch {
	case b.otpStore != nil:
		return b.otpStore, backendCustom
	case b.redis != nil:
		return otp.NewRedisStore(b.redis, cfg.OTP.RedisPrefix, cfg.OTP.LockDuration), backendRedis
	default:
		return otp.NewMemoryStore(), backendMemory
	}
}

func (b *Builder) buildRevocationStore(cfg Config, clock func() time.Time) (revocation.Store, string) {
	switch {
	case b.revocationStore != nil:
		return b.revocationStore, backendCustom
	case b.redis != nil:
		return revocation.NewRedisStore(b.redis, cfg.Revocation.RedisPrefix, clock), backendRedis
	default:
		return revocation.NewMemoryStore(), backendMemory
	}
}

func (b *Builder) buildRateStore(cfg Config) (ratelimit.Store, string) {
	switch {
	case b.rateStore != nil:
		return b.rateStore, backendCustom
	case b.redis != nil:
		return ratelimit.NewRedisStore(b.redis, cfg.RateLimit.RedisPrefix), backendRedis
	default:
		return ratelimit.NewMemoryStore(), backendMemory
	}
}

// newDummyHash hashes a random secret nobody knows, so logins for unknown accounts pay
// the same verification cost as real ones.
func newDummyHash(h *password.Hasher) (string, error) {
	var raw [24]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("dummy hash: %w", err)
	}
	hash, err := h.Hash(hex.EncodeToString(raw[:]))
	if err != nil {
		return "", fmt.Errorf("dummy hash: %w", err)
	}
	return hash, nil
}

// startJanitor prunes expired entries of in-memory stores. Redis expires keys itself.
func (e *Engine) startJanitor() {
	interval := e.config.Revocation.PruneInterval
	memRevocations, revOK := e.revocations.(*revocation.MemoryStore)
	memRates, rateOK := e.rateStore.(*ratelimit.MemoryStore)
	if interval <= 0 || (!revOK && !rateOK) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.stopJanitor = cancel
	e.janitorDone = make(chan struct{})

	go func() {
		defer close(e.janitorDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := e.now()
				if revOK {
					memRevocations.Prune(now)
				}
				if rateOK {
					memRates.Prune(now)
				}
			}
		}
	}()
}
