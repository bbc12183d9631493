package lockout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/contexts/identity-access/userstore-service/ports"
)

const (
	ExecutionOrder = 10

	defaultMaxTracked = 10000
)

type Config struct {
	MaxFailedAttempts int
	LockDuration      time.Duration
	Disabled          bool
	// MaxTracked bounds how many usernames carry failure state. The entry
	// with the oldest failure is evicted first.
	MaxTracked int
	// Order overrides ExecutionOrder when positive.
	Order int
}

type attempts struct {
	failed      int
	lastFailure time.Time
	lockedUntil time.Time
}

// Listener locks accounts after consecutive authentication failures. State
// is kept per process.
type Listener struct {
	ports.NopUserListener
	ports.NopAuthenticationListener

	cfg    Config
	clock  ports.Clock
	logger *slog.Logger

	mu        sync.Mutex
	state     map[string]attempts
	lastSweep time.Time
}

func New(cfg Config, clock ports.Clock, logger *slog.Logger) *Listener {
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = 5
	}
	if cfg.LockDuration <= 0 {
		cfg.LockDuration = 15 * time.Minute
	}
	if cfg.MaxTracked <= 0 {
		cfg.MaxTracked = defaultMaxTracked
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{cfg: cfg, clock: clock, logger: logger, state: make(map[string]attempts)}
}

func (l *Listener) ExecutionOrder() int {
	if l.cfg.Order > 0 {
		return l.cfg.Order
	}
	return ExecutionOrder
}

func (l *Listener) Enabled() bool { return !l.cfg.Disabled }

func (l *Listener) PreAuthenticate(_ context.Context, username string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.state[username]
	if !ok || entry.lockedUntil.IsZero() {
		return nil
	}
	if l.now().Before(entry.lockedUntil) {
		return fmt.Errorf("%w: until %s", domainerrors.ErrAccountLocked, entry.lockedUntil.Format(time.RFC3339))
	}
	delete(l.state, username)
	return nil
}

func (l *Listener) PostAuthenticate(_ context.Context, username string, authenticated bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if authenticated {
		delete(l.state, username)
		return nil
	}
	now := l.now()
	l.sweep(now)
	entry, tracked := l.state[username]
	if tracked && l.lapsed(entry, now) {
		entry = attempts{}
	}
	if !tracked && len(l.state) >= l.cfg.MaxTracked {
		l.evictOldest()
	}

	entry.failed++
	entry.lastFailure = now
	if entry.failed >= l.cfg.MaxFailedAttempts {
		entry.lockedUntil = now.Add(l.cfg.LockDuration)
		l.logger.Warn("userstore account locked",
			"event", "userstore_account_locked",
			"module", "identity-access/userstore-service",
			"layer", "adapter",
			"subject", username,
			"failed_attempts", entry.failed,
			"locked_until", entry.lockedUntil,
		)
	}
	l.state[username] = entry
	return nil
}

// Tracked reports how many usernames currently carry failure state.
func (l *Listener) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.state)
}

// sweep drops lapsed entries, at most once per LockDuration.
func (l *Listener) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.cfg.LockDuration {
		return
	}
	l.lastSweep = now
	for username, entry := range l.state {
		if l.lapsed(entry, now) {
			delete(l.state, username)
		}
	}
}

// lapsed is true once a lock has expired, or when an unlocked entry's last
// failure is older than LockDuration.
func (l *Listener) lapsed(entry attempts, now time.Time) bool {
	if !entry.lockedUntil.IsZero() {
		return !now.Before(entry.lockedUntil)
	}
	return now.Sub(entry.lastFailure) >= l.cfg.LockDuration
}

func (l *Listener) evictOldest() {
	var (
		oldest string
		at     time.Time
		found  bool
	)
	for username, entry := range l.state {
		if !found || entry.lastFailure.Before(at) {
			oldest, at, found = username, entry.lastFailure, true
		}
	}
	if found {
		delete(l.state, oldest)
	}
}

func (l *Listener) PostDeleteUser(_ context.Context, username string) error {
	l.Unlock(username)
	return nil
}

// Unlock clears the failure count and any lock held for username.
func (l *Listener) Unlock(username string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.state, username)
}

// Locked reports whether username is currently locked.
func (l *Listener) Locked(username string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.state[username]
	return ok && !entry.lockedUntil.IsZero() && l.now().Before(entry.lockedUntil)
}

func (l *Listener) now() time.Time {
	if l.clock == nil {
		return time.Now().UTC()
	}
	return l.clock.Now()
}
