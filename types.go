package regAuth

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/regAuth/internal/audit"
	"github.com/MrEthical07/regAuth/password"
)

// Account is the user record owned by the [UserDirectory].
type Account struct {
	ID           string
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	MFAEnabled   bool
	CreatedAt    time.Time
}

// DisplayName returns the full name, falling back to the username.
func (a Account) DisplayName() string {
	if a.FullName != "" {
		return a.FullName
	}
	return a.Username
}

// NewAccount is the input to [UserDirectory.Create]. The password is already hashed.
type NewAccount struct {
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	MFAEnabled   bool
}

// UserDirectory is the account store the engine authenticates against.
//
// FindByIdentifier accepts a username or an email address. Lookups of unknown accounts
// return [ErrUserNotFound]; Create returns [ErrAccountExists] when the username or email
// is taken. Implementations must be safe for concurrent use.
type UserDirectory interface {
	FindByIdentifier(ctx context.Context, identifier string) (Account, error)
	FindByID(ctx context.Context, userID string) (Account, error)
	Create(ctx context.Context, input NewAccount) (Account, error)
	GetMFAPreference(ctx context.Context, userID string) (bool, error)
	SetMFAPreference(ctx context.Context, userID string, enabled bool) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// Notifier delivers one-time codes out of band. SendCode reports whether the code was
// handed to the delivery channel; an error never rolls back the pending code.
type Notifier interface {
	SendCode(ctx context.Context, email, code, displayName string) (bool, error)
}

// Diagnostics observes issued one-time codes outside the notification channel. When
// OTPIssued returns true the code is echoed back in the login/resend result. Builders
// in production mode refuse any Diagnostics.
type Diagnostics interface {
	OTPIssued(ctx context.Context, userID, code string) (echo bool)
}

// EchoDiagnostics logs issued codes at debug level and echoes them to the caller. It is
// meant for local development only.
type EchoDiagnostics struct {
	Logger *slog.Logger
}

func (d EchoDiagnostics) OTPIssued(ctx context.Context, userID, code string) bool {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(ctx, "otp issued", slog.String("user_id", userID), slog.String("code", code))
	return true
}

// RegisterRequest is the input of [Engine.Register].
type RegisterRequest struct {
	Username string
	FullName string
	Email    string
	Password string
}

// TokenPair is an access token with its refresh token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// LoginResult is returned by [Engine.Login]. Exactly one of Tokens or MFARequired is set.
//
//	Tokens      - password accepted and MFA is off for the account
//	MFARequired - a code was issued; call [Engine.VerifyOTP] with UserID
type LoginResult struct {
	Tokens        *TokenPair
	MFARequired   bool
	UserID        string
	MaskedEmail   string
	CodeDelivered bool
	DebugCode     string
}

// ResendResult is returned by [Engine.ResendOTP].
type ResendResult struct {
	UserID        string
	MaskedEmail   string
	CodeDelivered bool
	ExpiresAt     time.Time
	DebugCode     string
}

// AuthResult describes a validated access token.
type AuthResult struct {
	UserID    string
	Username  string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// MFAStatus is the second-factor preference of an account.
type MFAStatus struct {
	UserID  string
	Enabled bool
}

// StrengthReport is the password checklist returned by [Engine.CheckPasswordStrength].
type StrengthReport = password.StrengthReport

// AuditEvent is the structured event emitted for every authentication outcome.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per event.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink writes audit events through a *slog.Logger.
type SlogSink = internalaudit.SlogSink

// MultiSink fans events out to several sinks.
type MultiSink = internalaudit.MultiSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
