package otp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client, "otp", DefaultLockDuration), mr
}

func storeImplementations(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func issuedAt(t *testing.T, now time.Time) Issued {
	t.Helper()
	issued, err := IssueWithExpiry(now)
	if err != nil {
		t.Fatalf("IssueWithExpiry error: %v", err)
	}
	return issued
}

// miss records one failed attempt with a code that can never match.
func miss(ctx context.Context, store Store, userID string, at time.Time) (Attempt, error) {
	return store.Attempt(ctx, userID, "x", at, DefaultMaxAttempts, DefaultLockDuration)
}

func TestStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond)

	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get(ctx, "u1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			rec := NewRecord("u1", issuedAt(t, now))
			if err := store.Put(ctx, rec); err != nil {
				t.Fatalf("Put error: %v", err)
			}

			got, err := store.Get(ctx, "u1")
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if got.Code != rec.Code || !got.ExpiresAt.Equal(rec.ExpiresAt) || got.Attempts != 0 || got.Locked {
				t.Fatalf("unexpected record: %+v", got)
			}

			if err := store.Delete(ctx, "u1"); err != nil {
				t.Fatalf("Delete error: %v", err)
			}
			if _, err := store.Get(ctx, "u1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStorePutSupersedes(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			first := NewRecord("u1", issuedAt(t, now))
			if err := store.Put(ctx, first); err != nil {
				t.Fatalf("Put error: %v", err)
			}
			if _, err := miss(ctx, store, "u1", now); err != nil {
				t.Fatalf("Attempt error: %v", err)
			}

			second := NewRecord("u1", Issued{Code: "000001", CreatedAt: now, ExpiresAt: now.Add(DefaultTTL)})
			if err := store.Put(ctx, second); err != nil {
				t.Fatalf("Put error: %v", err)
			}

			got, err := store.Get(ctx, "u1")
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if got.Code != "000001" || got.Attempts != 0 {
				t.Fatalf("expected superseding record with reset counter, got %+v", got)
			}
		})
	}
}

func TestStoreAttemptLocksAtMax(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := miss(ctx, store, "missing", now); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			if err := store.Put(ctx, NewRecord("u1", issuedAt(t, now))); err != nil {
				t.Fatalf("Put error: %v", err)
			}

			for i := 1; i <= DefaultMaxAttempts; i++ {
				at := now.Add(time.Duration(i) * time.Second)
				attempt, err := miss(ctx, store, "u1", at)
				if err != nil {
					t.Fatalf("Attempt error: %v", err)
				}
				rec := attempt.Record
				if attempt.Refused || attempt.Result.Reason != ReasonMismatch {
					t.Fatalf("attempt %d: unexpected outcome %+v", i, attempt)
				}
				if rec.Attempts != i {
					t.Fatalf("expected %d attempts, got %d", i, rec.Attempts)
				}
				wantLocked := i == DefaultMaxAttempts
				if rec.Locked != wantLocked {
					t.Fatalf("attempt %d: locked=%v", i, rec.Locked)
				}
				if wantLocked && !rec.LockedAt.Equal(at) {
					t.Fatalf("expected lockedAt %v, got %v", at, rec.LockedAt)
				}
			}

			got, err := store.Get(ctx, "u1")
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if !got.IsLocked(now.Add(time.Minute), DefaultLockDuration) {
				t.Fatalf("expected stored record to be locked: %+v", got)
			}

			refused, err := store.Attempt(ctx, "u1", got.Code, now.Add(time.Minute), DefaultMaxAttempts, DefaultLockDuration)
			if err != nil {
				t.Fatalf("Attempt error: %v", err)
			}
			if !refused.Refused || refused.Accepted() || refused.Record.Attempts != DefaultMaxAttempts {
				t.Fatalf("expected the correct code to be refused while locked, got %+v", refused)
			}
		})
	}
}

func TestStoreAttemptConsumesCode(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			rec := NewRecord("u1", issuedAt(t, now))
			if err := store.Put(ctx, rec); err != nil {
				t.Fatalf("Put error: %v", err)
			}

			attempt, err := store.Attempt(ctx, "u1", rec.Code, now, DefaultMaxAttempts, DefaultLockDuration)
			if err != nil {
				t.Fatalf("Attempt error: %v", err)
			}
			if !attempt.Accepted() {
				t.Fatalf("expected code to be accepted, got %+v", attempt)
			}
			if _, err := store.Get(ctx, "u1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected record consumed, got %v", err)
			}
			if _, err := store.Attempt(ctx, "u1", rec.Code, now, DefaultMaxAttempts, DefaultLockDuration); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected second use to find nothing, got %v", err)
			}
		})
	}
}

func TestStoreAttemptResetsExpiredLock(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			rec := NewRecord("u1", Issued{Code: "424242", CreatedAt: now, ExpiresAt: now.Add(time.Hour)})
			if err := store.Put(ctx, rec); err != nil {
				t.Fatalf("Put error: %v", err)
			}
			for i := 0; i < DefaultMaxAttempts; i++ {
				if _, err := miss(ctx, store, "u1", now); err != nil {
					t.Fatalf("Attempt error: %v", err)
				}
			}

			after := now.Add(DefaultLockDuration)
			attempt, err := miss(ctx, store, "u1", after)
			if err != nil {
				t.Fatalf("Attempt error: %v", err)
			}
			if attempt.Refused || attempt.Record.Locked || attempt.Record.Attempts != 1 {
				t.Fatalf("expected a fresh counter after the lock lifted, got %+v", attempt)
			}

			ok, err := store.Attempt(ctx, "u1", "424242", after, DefaultMaxAttempts, DefaultLockDuration)
			if err != nil || !ok.Accepted() {
				t.Fatalf("expected code accepted after lock, got %+v err=%v", ok, err)
			}
		})
	}
}

func TestStoreReplaceRefusesWhileLocked(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			fresh := NewRecord("u1", issuedAt(t, now))
			if _, err := store.Replace(ctx, fresh, DefaultLockDuration); err != nil {
				t.Fatalf("Replace on empty store: %v", err)
			}
			for i := 0; i < DefaultMaxAttempts; i++ {
				if _, err := miss(ctx, store, "u1", now); err != nil {
					t.Fatalf("Attempt error: %v", err)
				}
			}

			during := now.Add(time.Minute)
			blocked := NewRecord("u1", Issued{Code: "111111", CreatedAt: during, ExpiresAt: during.Add(DefaultTTL)})
			current, err := store.Replace(ctx, blocked, DefaultLockDuration)
			if !errors.Is(err, ErrLocked) {
				t.Fatalf("expected ErrLocked, got %v", err)
			}
			if got := current.LockRemaining(during, DefaultLockDuration); got != DefaultLockDuration-time.Minute {
				t.Fatalf("expected %v remaining, got %v", DefaultLockDuration-time.Minute, got)
			}
			if got, _ := store.Get(ctx, "u1"); got.Code == "111111" {
				t.Fatal("locked record was overwritten")
			}

			after := now.Add(DefaultLockDuration)
			next := NewRecord("u1", Issued{Code: "222222", CreatedAt: after, ExpiresAt: after.Add(DefaultTTL)})
			if _, err := store.Replace(ctx, next, DefaultLockDuration); err != nil {
				t.Fatalf("Replace after lock: %v", err)
			}
			got, err := store.Get(ctx, "u1")
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if got.Code != "222222" || got.Locked || got.Attempts != 0 {
				t.Fatalf("expected superseding record, got %+v", got)
			}
		})
	}
}

func TestStoreConcurrentAttemptsSpendCodeOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	const callers = 8

	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			rec := NewRecord("u1", issuedAt(t, now))
			if err := store.Put(ctx, rec); err != nil {
				t.Fatalf("Put error: %v", err)
			}

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				accepted int
			)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					attempt, err := store.Attempt(ctx, "u1", rec.Code, now, DefaultMaxAttempts, DefaultLockDuration)
					if err == nil && attempt.Accepted() {
						mu.Lock()
						accepted++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			if accepted != 1 {
				t.Fatalf("expected exactly one acceptance, got %d", accepted)
			}
		})
	}
}

func TestStoreConcurrentFailuresAcrossUsers(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	const users = 8

	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			for u := 0; u < users; u++ {
				if err := store.Put(ctx, NewRecord(fmt.Sprintf("user-%d", u), issuedAt(t, now))); err != nil {
					t.Fatalf("Put error: %v", err)
				}
			}

			var wg sync.WaitGroup
			errs := make(chan error, users*DefaultMaxAttempts)
			for u := 0; u < users; u++ {
				for i := 0; i < DefaultMaxAttempts; i++ {
					wg.Add(1)
					go func(userID string) {
						defer wg.Done()
						if _, err := miss(ctx, store, userID, now); err != nil {
							errs <- err
						}
					}(fmt.Sprintf("user-%d", u))
				}
			}
			wg.Wait()
			close(errs)

			// Redis may give up after bounded contention retries; the counter must
			// still never skip or double count.
			failed := 0
			for err := range errs {
				if !errors.Is(err, ErrBackend) {
					t.Fatalf("unexpected error: %v", err)
				}
				failed++
			}

			for u := 0; u < users; u++ {
				rec, err := store.Get(ctx, fmt.Sprintf("user-%d", u))
				if err != nil {
					t.Fatalf("Get error: %v", err)
				}
				if failed == 0 && (!rec.Locked || rec.Attempts != DefaultMaxAttempts) {
					t.Fatalf("user-%d: expected locked at %d attempts, got %+v", u, DefaultMaxAttempts, rec)
				}
				if rec.Attempts > DefaultMaxAttempts {
					t.Fatalf("user-%d: counter overshoot %d", u, rec.Attempts)
				}
			}
		})
	}
}

func TestMemoryStoreConcurrentLockout(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := NewMemoryStore()
	const users = 32

	for u := 0; u < users; u++ {
		if err := store.Put(ctx, NewRecord(fmt.Sprintf("user-%d", u), issuedAt(t, now))); err != nil {
			t.Fatalf("Put error: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < DefaultMaxAttempts; i++ {
		for u := 0; u < users; u++ {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				_, _ = miss(ctx, store, userID, now)
			}(fmt.Sprintf("user-%d", u))
		}
	}
	wg.Wait()

	for u := 0; u < users; u++ {
		rec, err := store.Get(ctx, fmt.Sprintf("user-%d", u))
		if err != nil {
			t.Fatalf("Get error: %v", err)
		}
		if !rec.Locked || rec.Attempts != DefaultMaxAttempts {
			t.Fatalf("user-%d not locked after %d failures: %+v", u, DefaultMaxAttempts, rec)
		}
	}
}

func TestStoreClear(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"a", "b", "c"} {
				if err := store.Put(ctx, NewRecord(id, issuedAt(t, now))); err != nil {
					t.Fatalf("Put error: %v", err)
				}
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear error: %v", err)
			}
			for _, id := range []string{"a", "b", "c"} {
				if _, err := store.Get(ctx, id); !errors.Is(err, ErrNotFound) {
					t.Fatalf("expected %s cleared, got %v", id, err)
				}
			}
		})
	}
}

func TestRedisStoreKeepsLockedRecordPastCodeExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	now := time.Now()

	if err := store.Put(ctx, NewRecord("u1", issuedAt(t, now))); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	for i := 0; i < DefaultMaxAttempts; i++ {
		if _, err := miss(ctx, store, "u1", now); err != nil {
			t.Fatalf("Attempt error: %v", err)
		}
	}

	mr.FastForward(DefaultTTL + time.Minute)
	rec, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("expected locked record to survive code expiry: %v", err)
	}
	if !rec.Locked {
		t.Fatalf("expected locked record, got %+v", rec)
	}

	mr.FastForward(DefaultLockDuration + DefaultTTL)
	if _, err := store.Get(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record to expire, got %v", err)
	}
}

func TestRedisStoreBackendFailure(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Get(context.Background(), "u1")
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
}

func TestRedisStoreRejectsUnknownVersion(t *testing.T) {
	store, mr := newRedisStore(t)
	if err := mr.Set("otp:u1", "\x09garbage"); err != nil {
		t.Fatalf("miniredis set: %v", err)
	}
	if _, err := store.Get(context.Background(), "u1"); !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend for corrupt record, got %v", err)
	}
}
