package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/regAuth/jwt"
	"github.com/MrEthical07/regAuth/revocation"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureVerify
	RefreshFailureKindMismatch
	RefreshFailureReuse
	RefreshFailureAccountGone
	RefreshFailureBackend
	RefreshFailureIssue
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	UserID  string
	Account Account
	Tokens  Tokens
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Verify       func(string) (*jwt.Claims, error)
	Revocations  revocation.Store
	FindByID     func(context.Context, string) (Account, error)
	UserNotFound error
	IssueTokens  func(context.Context, Account) (Tokens, error)
}

// RunRefresh rotates a refresh token. The presented token is consumed atomically, so of
// two concurrent refreshes with the same token exactly one receives a new pair.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.Verify(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureVerify, Err: err}
	}
	userID := claims.Subject
	if claims.Kind != jwt.KindRefresh {
		return RefreshResult{Failure: RefreshFailureKindMismatch, UserID: userID}
	}

	revoked, err := deps.Revocations.IsRevoked(ctx, refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureBackend, Err: err, UserID: userID}
	}
	if revoked {
		return RefreshResult{Failure: RefreshFailureReuse, UserID: userID}
	}

	account, err := deps.FindByID(ctx, userID)
	if err != nil {
		if deps.UserNotFound != nil && errors.Is(err, deps.UserNotFound) {
			return RefreshResult{Failure: RefreshFailureAccountGone, Err: err, UserID: userID}
		}
		return RefreshResult{Failure: RefreshFailureBackend, Err: err, UserID: userID}
	}

	won, err := deps.Revocations.Consume(ctx, refreshToken, claims.ExpiresAtTime())
	if err != nil {
		return RefreshResult{Failure: RefreshFailureBackend, Err: err, UserID: userID}
	}
	if !won {
		return RefreshResult{Failure: RefreshFailureReuse, UserID: userID}
	}

	tokens, err := deps.IssueTokens(ctx, account)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, UserID: userID}
	}

	return RefreshResult{UserID: userID, Account: account, Tokens: tokens}
}
