package flows

import (
	"context"
	"time"
)

// Account is the flow-local view of a directory account.
type Account struct {
	ID           string
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	MFAEnabled   bool
}

// DisplayName returns the name used in notifications.
func (a Account) DisplayName() string {
	if a.FullName != "" {
		return a.FullName
	}
	return a.Username
}

// Tokens is a freshly minted access/refresh pair.
type Tokens struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// AuditFunc emits one audit event: type, success, user id, identifier, cause, metadata.
type AuditFunc func(context.Context, string, bool, string, string, error, func() map[string]string)

func noopAudit(context.Context, string, bool, string, string, error, func() map[string]string) {}

func noopMetric(int) {}

func noopWarn(string, ...any) {}
