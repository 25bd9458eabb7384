package flows

import (
	"context"

	"github.com/MrEthical07/regAuth/jwt"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.Verify != nil && s.deps.Validate.Revocations != nil
}

func (s Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	return RunRegister(ctx, req, s.deps.Register)
}

func (s Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	return RunLogin(ctx, identifier, password, s.deps.Login)
}

func (s Service) IssueChallenge(ctx context.Context, account Account) (Challenge, error) {
	return RunIssueChallenge(ctx, account, s.deps.OTP)
}

func (s Service) VerifyOTP(ctx context.Context, userID, code string) (*OTPVerifyResult, error) {
	return RunVerifyOTP(ctx, userID, code, s.deps.OTP)
}

func (s Service) ResendOTP(ctx context.Context, userID string) (Challenge, error) {
	return RunResendOTP(ctx, userID, s.deps.OTP)
}

func (s Service) MFAStatus(ctx context.Context, userID string) (bool, error) {
	return RunMFAStatus(ctx, userID, s.deps.MFA)
}

func (s Service) EnableMFA(ctx context.Context, userID string) error {
	return RunEnableMFA(ctx, userID, s.deps.MFA)
}

func (s Service) DisableMFA(ctx context.Context, userID, password string) error {
	return RunDisableMFA(ctx, userID, password, s.deps.MFA)
}

func (s Service) Validate(ctx context.Context, tokenStr string, kind jwt.Kind) ValidateResult {
	return RunValidate(ctx, tokenStr, kind, s.deps.Validate)
}

func (s Service) Logout(ctx context.Context, accessToken, refreshToken string) LogoutResult {
	return RunLogout(ctx, accessToken, refreshToken, s.deps.Logout)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) RefreshResult {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}
