package otp

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for a user.
	ErrNotFound = errors.New("otp record not found")
	// ErrBackend wraps failures of a shared store.
	ErrBackend = errors.New("otp store backend unavailable")
	// ErrLocked is returned by Replace when the current record is still locked.
	ErrLocked = errors.New("otp record locked")
)

// Record is the per-user pending second-factor state. At most one record exists per
// user; Put supersedes any previous one.
type Record struct {
	UserID    string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	Attempts  int
	Locked    bool
	LockedAt  time.Time
}

// NewRecord builds an unlocked record for a freshly issued code.
func NewRecord(userID string, issued Issued) Record {
	return Record{
		UserID:    userID,
		Code:      issued.Code,
		CreatedAt: issued.CreatedAt,
		ExpiresAt: issued.ExpiresAt,
	}
}

// LockedUntil returns the instant the lock lifts. It is zero for unlocked records.
func (r Record) LockedUntil(lockDuration time.Duration) time.Time {
	if !r.Locked {
		return time.Time{}
	}
	return r.LockedAt.Add(lockDuration)
}

// IsLocked reports whether the record rejects verification at now.
func (r Record) IsLocked(now time.Time, lockDuration time.Duration) bool {
	return r.Locked && now.Before(r.LockedAt.Add(lockDuration))
}

// LockRemaining returns the time left on the lock, or zero.
func (r Record) LockRemaining(now time.Time, lockDuration time.Duration) time.Duration {
	if !r.IsLocked(now, lockDuration) {
		return 0
	}
	return r.LockedAt.Add(lockDuration).Sub(now)
}

// LockExpired reports whether a lock was set and has since lifted.
func (r Record) LockExpired(now time.Time, lockDuration time.Duration) bool {
	return r.Locked && !now.Before(r.LockedAt.Add(lockDuration))
}

// Unlocked returns a copy with the lock and attempt counter reset.
func (r Record) Unlocked() Record {
	r.Locked = false
	r.LockedAt = time.Time{}
	r.Attempts = 0
	return r
}

func (r Record) withFailure(maxAttempts int, now time.Time) Record {
	r.Attempts++
	if r.Attempts >= maxAttempts && !r.Locked {
		r.Locked = true
		r.LockedAt = now
	}
	return r
}

// Attempt is the outcome of one verification against a stored record.
type Attempt struct {
	// Record is the state after the attempt. For an accepted code it is the record that
	// was consumed.
	Record Record
	Result Result
	// Refused is set when the record was locked and the code was not evaluated.
	Refused bool
}

// Accepted reports whether the code matched and the record was consumed.
func (a Attempt) Accepted() bool {
	return !a.Refused && a.Result.Valid
}

// evaluate decides one attempt. consume reports that the record must be deleted;
// otherwise a non-refused attempt must be written back.
func evaluate(record Record, code string, now time.Time, maxAttempts int, lockDuration time.Duration) (attempt Attempt, consume bool) {
	if record.IsLocked(now, lockDuration) {
		return Attempt{Record: record, Refused: true}, false
	}
	if record.LockExpired(now, lockDuration) {
		record = record.Unlocked()
	}

	result := Verify(code, record.Code, record.ExpiresAt, now)
	if result.Valid {
		return Attempt{Record: record, Result: result}, true
	}
	return Attempt{Record: record.withFailure(maxAttempts, now), Result: result}, false
}

// Store is the OTP record table. Implementations must be safe for concurrent use and
// give read-after-write visibility across callers. Attempt and Replace must apply
// atomically even if ctx is cancelled after the call starts.
type Store interface {
	Put(ctx context.Context, record Record) error
	Get(ctx context.Context, userID string) (Record, error)
	Delete(ctx context.Context, userID string) error
	// Replace stores record unless the user's current record is locked at
	// record.CreatedAt, in which case it returns the current record and ErrLocked.
	Replace(ctx context.Context, record Record, lockDuration time.Duration) (Record, error)
	// Attempt verifies code against the user's record in one step: a locked record
	// refuses, an expired lock resets the counter, a match deletes the record and a
	// miss increments the counter, locking it at maxAttempts.
	Attempt(ctx context.Context, userID, code string, now time.Time, maxAttempts int, lockDuration time.Duration) (Attempt, error)
	Clear(ctx context.Context) error
}
