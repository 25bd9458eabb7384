package regAuth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = cloneBytes(testSecret)
	cfg.Password.BcryptCost = 4
	cfg.Revocation.PruneInterval = 0
	cfg.Audit.Enabled = false
	return cfg
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type memDirectory struct {
	mu       sync.Mutex
	accounts map[string]Account
	seq      int
	failAll  error
}

func newMemDirectory() *memDirectory {
	return &memDirectory{accounts: map[string]Account{}}
}

func (d *memDirectory) FindByIdentifier(_ context.Context, identifier string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll != nil {
		return Account{}, d.failAll
	}
	for _, a := range d.accounts {
		if strings.EqualFold(a.Username, identifier) || strings.EqualFold(a.Email, identifier) {
			return a, nil
		}
	}
	return Account{}, ErrUserNotFound
}

func (d *memDirectory) FindByID(_ context.Context, userID string) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll != nil {
		return Account{}, d.failAll
	}
	a, ok := d.accounts[userID]
	if !ok {
		return Account{}, ErrUserNotFound
	}
	return a, nil
}

func (d *memDirectory) Create(_ context.Context, in NewAccount) (Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.accounts {
		if strings.EqualFold(a.Username, in.Username) || strings.EqualFold(a.Email, in.Email) {
			return Account{}, ErrAccountExists
		}
	}
	d.seq++
	a := Account{
		ID:           "u" + strconv.Itoa(d.seq),
		Username:     in.Username,
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		MFAEnabled:   in.MFAEnabled,
	}
	d.accounts[a.ID] = a
	return a, nil
}

func (d *memDirectory) GetMFAPreference(ctx context.Context, userID string) (bool, error) {
	a, err := d.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return a.MFAEnabled, nil
}

func (d *memDirectory) SetMFAPreference(_ context.Context, userID string, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[userID]
	if !ok {
		return ErrUserNotFound
	}
	a.MFAEnabled = enabled
	d.accounts[userID] = a
	return nil
}

func (d *memDirectory) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[userID]
	if !ok {
		return ErrUserNotFound
	}
	a.PasswordHash = hash
	d.accounts[userID] = a
	return nil
}

type captureNotifier struct {
	mu    sync.Mutex
	codes map[string][]string
	fail  bool
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{codes: map[string][]string{}}
}

func (n *captureNotifier) SendCode(_ context.Context, email, code, _ string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return false, errors.New("smtp unavailable")
	}
	n.codes[email] = append(n.codes[email], code)
	return true, nil
}

func (n *captureNotifier) last(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	codes := n.codes[email]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

type captureSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *captureSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *captureSink) byType(eventType string) []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditEvent
	for _, ev := range s.events {
		if ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	engine    *Engine
	directory *memDirectory
	notifier  *captureNotifier
	clock     *testClock
}

func newTestEnv(t testing.TB, cfg Config, configure ...func(*Builder)) *testEnv {
	t.Helper()

	env := &testEnv{
		directory: newMemDirectory(),
		notifier:  newCaptureNotifier(),
		clock:     newTestClock(),
	}
	b := New().
		WithConfig(cfg).
		WithUserDirectory(env.directory).
		WithNotifier(env.notifier).
		WithClock(env.clock.Now)
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

const strongPassword = "Correct-Horse-9battery"

func (env *testEnv) register(t testing.TB, username string) *RegisterResult {
	t.Helper()
	res, err := env.engine.Register(context.Background(), RegisterRequest{
		Username: username,
		FullName: "Test " + username,
		Email:    username + "@example.com",
		Password: strongPassword,
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return res
}
