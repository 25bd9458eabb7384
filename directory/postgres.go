package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	regAuth "github.com/MrEthical07/regAuth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const accountColumns = `id::text, username, full_name, email, password_hash, mfa_enabled, created_at`

// Postgres is a [regAuth.UserDirectory] backed by the users table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool. Run [Migrate] first.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) FindByIdentifier(ctx context.Context, identifier string) (regAuth.Account, error) {
	key := strings.TrimSpace(identifier)
	row := p.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM users
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)
		LIMIT 1`, key)
	return scanAccount(row)
}

func (p *Postgres) FindByID(ctx context.Context, userID string) (regAuth.Account, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return regAuth.Account{}, regAuth.ErrUserNotFound
	}
	row := p.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, id)
	return scanAccount(row)
}

func (p *Postgres) Create(ctx context.Context, in regAuth.NewAccount) (regAuth.Account, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, full_name, email, password_hash, mfa_enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+accountColumns,
		uuid.New(), in.Username, in.FullName, in.Email, in.PasswordHash, in.MFAEnabled,
	)

	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return regAuth.Account{}, regAuth.ErrAccountExists
		}
		return regAuth.Account{}, err
	}
	return account, nil
}

func (p *Postgres) GetMFAPreference(ctx context.Context, userID string) (bool, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return false, regAuth.ErrUserNotFound
	}

	var enabled bool
	err = p.pool.QueryRow(ctx, `SELECT mfa_enabled FROM users WHERE id = $1`, id).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, regAuth.ErrUserNotFound
	}
	if err != nil {
		return false, unavailable(err)
	}
	return enabled, nil
}

func (p *Postgres) SetMFAPreference(ctx context.Context, userID string, enabled bool) error {
	return p.exec(ctx, userID, `UPDATE users SET mfa_enabled = $2, updated_at = NOW() WHERE id = $1`, enabled)
}

func (p *Postgres) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return p.exec(ctx, userID, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, hash)
}

// Ping checks connectivity for health probes.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

func (p *Postgres) exec(ctx context.Context, userID, query string, arg any) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return regAuth.ErrUserNotFound
	}

	tag, err := p.pool.Exec(ctx, query, id, arg)
	if err != nil {
		return unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return regAuth.ErrUserNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (regAuth.Account, error) {
	var a regAuth.Account
	err := row.Scan(&a.ID, &a.Username, &a.FullName, &a.Email, &a.PasswordHash, &a.MFAEnabled, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return regAuth.Account{}, regAuth.ErrUserNotFound
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return regAuth.Account{}, err
		}
		return regAuth.Account{}, unavailable(err)
	}
	return a, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", regAuth.ErrBackendUnavailable, err)
}

var _ regAuth.UserDirectory = (*Postgres)(nil)
