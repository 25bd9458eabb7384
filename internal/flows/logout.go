package flows

import (
	"context"

	"github.com/MrEthical07/regAuth/jwt"
	"github.com/MrEthical07/regAuth/revocation"
)

// LogoutFailureKind classifies logout failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureVerify
	LogoutFailureKindMismatch
	LogoutFailureBackend
)

// LogoutResult reports which tokens were revoked.
type LogoutResult struct {
	Failure        LogoutFailureKind
	Err            error
	Claims         *jwt.Claims
	RefreshRevoked bool
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Verify      func(string) (*jwt.Claims, error)
	Revocations revocation.Store
}

// RunLogout revokes accessToken until its own expiry. The denylist is not consulted
// first, so logging out twice succeeds. refreshToken is optional; it is revoked only
// when it verifies as a refresh token of the same subject and is otherwise ignored.
func RunLogout(ctx context.Context, accessToken, refreshToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.Verify(accessToken)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureVerify, Err: err}
	}
	if claims.Kind != jwt.KindAccess {
		return LogoutResult{Failure: LogoutFailureKindMismatch, Claims: claims}
	}

	if err := deps.Revocations.Revoke(ctx, accessToken, claims.ExpiresAtTime()); err != nil {
		return LogoutResult{Failure: LogoutFailureBackend, Err: err, Claims: claims}
	}

	result := LogoutResult{Claims: claims}
	if refreshToken == "" {
		return result
	}

	refreshClaims, err := deps.Verify(refreshToken)
	if err != nil || refreshClaims.Kind != jwt.KindRefresh || refreshClaims.Subject != claims.Subject {
		return result
	}
	if err := deps.Revocations.Revoke(ctx, refreshToken, refreshClaims.ExpiresAtTime()); err != nil {
		return LogoutResult{Failure: LogoutFailureBackend, Err: err, Claims: claims}
	}
	result.RefreshRevoked = true
	return result
}
