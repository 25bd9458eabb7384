package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	regAuth "github.com/MrEthical07/regAuth"
	"github.com/MrEthical07/regAuth/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Engine is the subset of [regAuth.Engine] the router calls.
type Engine interface {
	middleware.Validator
	middleware.Limiter

	Register(ctx context.Context, req regAuth.RegisterRequest) (*regAuth.RegisterResult, error)
	Login(ctx context.Context, identifier, password string) (*regAuth.LoginResult, error)
	VerifyOTP(ctx context.Context, userID, code string) (*regAuth.TokenPair, error)
	ResendOTP(ctx context.Context, userID string) (*regAuth.ResendResult, error)
	LogoutWithRefresh(ctx context.Context, accessToken, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*regAuth.TokenPair, error)
	MFAStatus(ctx context.Context, userID string) (regAuth.MFAStatus, error)
	EnableMFA(ctx context.Context, userID string) error
	DisableMFA(ctx context.Context, userID, password string) error
	CheckPasswordStrength(password string) regAuth.StrengthReport
}

// HealthCheck reports the state of one dependency for /healthz.
type HealthCheck func(ctx context.Context) error

// Options configures [NewRouter]. Engine is required.
type Options struct {
	Engine Engine
	Logger *slog.Logger

	// AllowedOrigins lists the origins answered with CORS headers. "*" allows any.
	AllowedOrigins []string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	Metrics http.Handler
	Health  map[string]HealthCheck
}

type server struct {
	engine Engine
	logger *slog.Logger
	health map[string]HealthCheck
}

// NewRouter builds the HTTP surface for opts.Engine.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{engine: opts.Engine, logger: logger, health: opts.Health}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.ClientInfo)
	r.Use(requestLogger(logger))
	r.Use(recoverer(s))
	r.Use(cors(opts.AllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed", Message: "method not allowed"})
	})

	r.Get("/healthz", s.handleHealth)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.engine, regAuth.ScopeGlobal, s.fail))

		r.Post("/password-strength", s.handlePasswordStrength)
		r.Post("/logout", s.handleLogout)
		r.Post("/refresh-token", s.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.engine, regAuth.ScopeAuth, s.fail))
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/verify-otp", s.handleVerifyOTP)
			r.Post("/resend-otp", s.handleResendOTP)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(s.engine, s.fail))
			r.Get("/mfa-status", s.handleMFAStatus)
			r.Post("/enable-mfa", s.handleEnableMFA)
			r.Post("/disable-mfa", s.handleDisableMFA)
		})
	})

	return r
}
