package directory

import (
	"context"
	"errors"
	"os"
	"testing"

	regAuth "github.com/MrEthical07/regAuth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newTestPostgres connects to REGAUTH_TEST_DATABASE_URL, migrates and truncates users.
func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()

	dsn := os.Getenv("REGAUTH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("REGAUTH_TEST_DATABASE_URL not set; skipping Postgres test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE users"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return NewPostgres(pool)
}

func TestPostgresCreateAndLookup(t *testing.T) {
	dir := newTestPostgres(t)
	ctx := context.Background()

	created, err := dir.Create(ctx, newAccount("Erin"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := uuid.Parse(created.ID); err != nil {
		t.Fatalf("expected uuid id, got %q", created.ID)
	}

	got, err := dir.FindByIdentifier(ctx, "ERIN@example.com")
	if err != nil || got.ID != created.ID {
		t.Fatalf("lookup by email: %+v err=%v", got, err)
	}
	got, err = dir.FindByIdentifier(ctx, "erin")
	if err != nil || got.ID != created.ID {
		t.Fatalf("lookup by username: %+v err=%v", got, err)
	}

	if _, err := dir.FindByID(ctx, "not-a-uuid"); !errors.Is(err, regAuth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for malformed id, got %v", err)
	}
	if _, err := dir.FindByID(ctx, uuid.NewString()); !errors.Is(err, regAuth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown id, got %v", err)
	}
}

func TestPostgresDuplicate(t *testing.T) {
	dir := newTestPostgres(t)
	ctx := context.Background()

	if _, err := dir.Create(ctx, newAccount("frank")); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := newAccount("FRANK")
	dup.Email = "other@example.com"
	if _, err := dir.Create(ctx, dup); !errors.Is(err, regAuth.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestPostgresUpdates(t *testing.T) {
	dir := newTestPostgres(t)
	ctx := context.Background()

	a, err := dir.Create(ctx, newAccount("grace"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := dir.SetMFAPreference(ctx, a.ID, false); err != nil {
		t.Fatalf("set mfa: %v", err)
	}
	enabled, err := dir.GetMFAPreference(ctx, a.ID)
	if err != nil || enabled {
		t.Fatalf("expected MFA off, got %v err=%v", enabled, err)
	}
	if err := dir.UpdatePasswordHash(ctx, a.ID, "$2a$12$rehash"); err != nil {
		t.Fatalf("update hash: %v", err)
	}
	if err := dir.UpdatePasswordHash(ctx, uuid.NewString(), "x"); !errors.Is(err, regAuth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := dir.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
