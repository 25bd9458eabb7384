package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	regAuth "github.com/MrEthical07/regAuth"
	"github.com/MrEthical07/regAuth/directory"
	"github.com/MrEthical07/regAuth/httpapi"
	"github.com/MrEthical07/regAuth/metrics/export/prometheus"
	"github.com/MrEthical07/regAuth/notify"
	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	connectTimeout  = 5 * time.Second
)

// App is a wired regauth server: engine, stores, router and HTTP server.
type App struct {
	Settings Settings
	Logger   *slog.Logger
	Engine   *regAuth.Engine
	Handler  http.Handler

	server *http.Server
	redis  *redis.Client
	pool   *pgxpool.Pool
	sentry bool
}

// New connects the configured backends and builds the engine. The caller owns Close.
func New(ctx context.Context, s Settings, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	cfg, err := s.EngineConfig()
	if err != nil {
		return nil, err
	}

	a := &App{Settings: s, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if s.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              s.SentryDSN,
			Environment:      s.Env,
			AttachStacktrace: true,
		}); err != nil {
			logger.Error("init sentry failed", "error", err)
		} else {
			a.sentry = true
		}
	}

	health := map[string]httpapi.HealthCheck{}
	builder := regAuth.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithAuditSink(regAuth.NewSlogSink(logger.With("component", "audit")))

	if s.RedisURL != "" {
		opts, err := redis.ParseURL(s.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err = a.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		builder.WithRedis(a.redis)
		health["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	} else {
		logger.Warn("REDIS_URL not set; revocation, OTP and rate-limit state is process local")
	}

	var users regAuth.UserDirectory
	if s.DatabaseURL != "" {
		a.pool, err = pgxpool.New(ctx, s.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := directory.Migrate(ctx, a.pool); err != nil {
			return nil, err
		}
		pg := directory.NewPostgres(a.pool)
		users = pg
		health["postgres"] = pg.Ping
	} else {
		logger.Warn("DATABASE_URL not set; accounts are kept in memory")
		users = directory.NewMemory(nil)
	}
	builder.WithUserDirectory(users)

	exposeCodes := s.OTPDebugExpose && !s.Production()
	builder.WithNotifier(notify.NewLogNotifier(logger.With("component", "notify"), exposeCodes))
	if exposeCodes {
		builder.WithDiagnostics(regAuth.EchoDiagnostics{Logger: logger})
	}

	a.Engine, err = builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}

	a.Handler = httpapi.NewRouter(httpapi.Options{
		Engine:         a.Engine,
		Logger:         logger,
		AllowedOrigins: s.Origins(),
		TrustProxy:     s.TrustProxy,
		Metrics:        prometheus.NewPrometheusExporter(a.Engine).Handler(),
		Health:         health,
	})
	a.server = &http.Server{
		Addr:              net.JoinHostPort("", s.Port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	backends := a.Engine.Backends()
	logger.Info("regauth ready",
		"env", s.Env,
		"otp_store", backends.OTP,
		"revocation_store", backends.Revocation,
		"rate_limit_store", backends.RateLimit,
	)

	ok = true
	return a, nil
}

// Run serves HTTP until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.Logger.Info("shutting down")
		return a.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases the engine and every backend connection. It is safe to call once after
// a failed New.
func (a *App) Close() {
	if a.Engine != nil {
		a.Engine.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.sentry {
		sentry.Flush(2 * time.Second)
	}
}
