package flows

import (
	"context"

	"github.com/MrEthical07/regAuth/jwt"
	"github.com/MrEthical07/regAuth/revocation"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureVerify
	ValidateFailureKindMismatch
	ValidateFailureRevoked
	ValidateFailureBackend
)

// ValidateResult returns either verified claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// ValidateDeps captures token validation dependencies.
type ValidateDeps struct {
	Verify      func(string) (*jwt.Claims, error)
	Revocations revocation.Store
}

// RunValidate verifies signature and expiry first, then the token kind, then the
// denylist. A denylist error fails closed.
func RunValidate(ctx context.Context, tokenStr string, kind jwt.Kind, deps ValidateDeps) ValidateResult {
	claims, err := deps.Verify(tokenStr)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureVerify, Err: err}
	}
	if claims.Kind != kind {
		return ValidateResult{Failure: ValidateFailureKindMismatch, Claims: claims}
	}

	revoked, err := deps.Revocations.IsRevoked(ctx, tokenStr)
	if err != nil {
		return ValidateResult{Failure: ValidateFailureBackend, Err: err, Claims: claims}
	}
	if revoked {
		return ValidateResult{Failure: ValidateFailureRevoked, Claims: claims}
	}

	return ValidateResult{Claims: claims}
}
