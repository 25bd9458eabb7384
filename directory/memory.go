package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	regAuth "github.com/MrEthical07/regAuth"
	"github.com/google/uuid"
)

// Memory is an in-process [regAuth.UserDirectory]. The zero value is not usable; call
// [NewMemory].
type Memory struct {
	mu         sync.RWMutex
	byID       map[string]regAuth.Account
	byUsername map[string]string
	byEmail    map[string]string
	now        func() time.Time
}

// NewMemory returns an empty directory. now stamps CreatedAt and defaults to time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		byID:       make(map[string]regAuth.Account),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		now:        now,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (m *Memory) FindByIdentifier(_ context.Context, identifier string) (regAuth.Account, error) {
	key := normalize(identifier)

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUsername[key]
	if !ok {
		id, ok = m.byEmail[key]
	}
	if !ok {
		return regAuth.Account{}, regAuth.ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *Memory) FindByID(_ context.Context, userID string) (regAuth.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.byID[userID]
	if !ok {
		return regAuth.Account{}, regAuth.ErrUserNotFound
	}
	return account, nil
}

// Create inserts a new account with a random UUID. Username and email are checked for
// collisions under one lock.
func (m *Memory) Create(_ context.Context, in regAuth.NewAccount) (regAuth.Account, error) {
	username := normalize(in.Username)
	email := normalize(in.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byUsername[username]; taken {
		return regAuth.Account{}, regAuth.ErrAccountExists
	}
	if _, taken := m.byEmail[email]; taken {
		return regAuth.Account{}, regAuth.ErrAccountExists
	}

	account := regAuth.Account{
		ID:           uuid.NewString(),
		Username:     in.Username,
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		MFAEnabled:   in.MFAEnabled,
		CreatedAt:    m.now().UTC(),
	}
	m.byID[account.ID] = account
	m.byUsername[username] = account.ID
	m.byEmail[email] = account.ID

	return account, nil
}

func (m *Memory) GetMFAPreference(ctx context.Context, userID string) (bool, error) {
	account, err := m.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return account.MFAEnabled, nil
}

func (m *Memory) SetMFAPreference(_ context.Context, userID string, enabled bool) error {
	return m.update(userID, func(a *regAuth.Account) { a.MFAEnabled = enabled })
}

func (m *Memory) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	return m.update(userID, func(a *regAuth.Account) { a.PasswordHash = hash })
}

// Len reports the number of stored accounts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

func (m *Memory) update(userID string, fn func(*regAuth.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.byID[userID]
	if !ok {
		return regAuth.ErrUserNotFound
	}
	fn(&account)
	m.byID[userID] = account
	return nil
}

var _ regAuth.UserDirectory = (*Memory)(nil)
