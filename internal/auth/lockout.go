package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// LockState is the lockout machine state for one identifier.
type LockState int

const (
	LockStateNormal LockState = iota
	LockStateWarning
	LockStateLocked
	LockStateHardLocked
)

func (s LockState) String() string {
	switch s {
	case LockStateWarning:
		return "warning"
	case LockStateLocked:
		return "locked"
	case LockStateHardLocked:
		return "hard_locked"
	default:
		return "normal"
	}
}

// Blocked reports whether the state rejects login attempts outright.
func (s LockState) Blocked() bool {
	return s == LockStateLocked || s == LockStateHardLocked
}

// CounterStore is the injected key/value backend for login-attempt
// accounting. Incr must be atomic at the store: two concurrent failures for
// one key must never both observe the pre-increment count. ttl zero on
// SetLock means the lock never expires on its own.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, keys ...string) error
	SetLock(ctx context.Context, key string, ttl time.Duration) error
	Locked(ctx context.Context, key string) (bool, error)
}

const (
	defaultFailureWindow = 15 * time.Minute
	defaultSoftLockFor   = 15 * time.Minute
	softLockThreshold    = 5
	hardLockThreshold    = 10

	failKeyPrefix = "login:fail:"
	softKeyPrefix = "login:lock:"
	hardKeyPrefix = "login:hard:"
)

// Lockout guards the login entry point. Failures move an identifier from
// Normal through Warning (1 to 4) into Locked (5+, time-boxed) and
// HardLocked (10+, released only by Unlock).
// Counters are independent per identifier and slide with the failure
// window; a successful login resets them.
type Lockout struct {
	counters CounterStore
	window   time.Duration
	lockFor  time.Duration
}

// LockoutOption configures Lockout.
type LockoutOption func(*Lockout)

// WithFailureWindow sets the sliding window failures are counted in.
func WithFailureWindow(d time.Duration) LockoutOption {
	return func(l *Lockout) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithSoftLockDuration sets how long a soft lock holds.
func WithSoftLockDuration(d time.Duration) LockoutOption {
	return func(l *Lockout) {
		if d > 0 {
			l.lockFor = d
		}
	}
}

func NewLockout(counters CounterStore, opts ...LockoutOption) *Lockout {
	l := &Lockout{
		counters: counters,
		window:   defaultFailureWindow,
		lockFor:  defaultSoftLockFor,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func normalizeIdentifier(id string) string {
	return strings.TrimSpace(strings.ToLower(id))
}

// Check returns the most severe state across the identifiers (typically the
// email and the client IP). A blocked state means the attempt must be
// rejected before credentials are even inspected.
func (l *Lockout) Check(ctx context.Context, identifiers ...string) (LockState, error) {
	worst := LockStateNormal
	for _, id := range identifiers {
		id = normalizeIdentifier(id)
		if id == "" {
			continue
		}
		state, err := l.state(ctx, id)
		if err != nil {
			return LockStateNormal, err
		}
		if state > worst {
			worst = state
		}
	}
	return worst, nil
}

// RecordFailure counts one failed attempt against each identifier and
// returns the resulting most severe state, installing soft or hard locks as
// thresholds are crossed.
func (l *Lockout) RecordFailure(ctx context.Context, identifiers ...string) (LockState, error) {
	worst := LockStateNormal
	for _, id := range identifiers {
		id = normalizeIdentifier(id)
		if id == "" {
			continue
		}
		n, err := l.counters.Incr(ctx, failKeyPrefix+id, l.window)
		if err != nil {
			return LockStateNormal, err
		}
		state := stateForCount(n)
		switch state {
		case LockStateHardLocked:
			if err := l.counters.SetLock(ctx, hardKeyPrefix+id, 0); err != nil {
				return LockStateNormal, err
			}
		case LockStateLocked:
			if err := l.counters.SetLock(ctx, softKeyPrefix+id, l.lockFor); err != nil {
				return LockStateNormal, err
			}
		}
		if state > worst {
			worst = state
		}
	}
	return worst, nil
}

// RecordSuccess resets counters and soft locks for the identifiers. Hard
// locks survive; they require an explicit Unlock.
func (l *Lockout) RecordSuccess(ctx context.Context, identifiers ...string) error {
	for _, id := range identifiers {
		id = normalizeIdentifier(id)
		if id == "" {
			continue
		}
		if err := l.counters.Reset(ctx, failKeyPrefix+id, softKeyPrefix+id); err != nil {
			return err
		}
	}
	return nil
}

// Unlock is the out-of-band release for a hard lock. It clears every key
// for the identifier and returns the machine to Normal.
func (l *Lockout) Unlock(ctx context.Context, identifier string) error {
	id := normalizeIdentifier(identifier)
	return l.counters.Reset(ctx, failKeyPrefix+id, softKeyPrefix+id, hardKeyPrefix+id)
}

func (l *Lockout) state(ctx context.Context, id string) (LockState, error) {
	hard, err := l.counters.Locked(ctx, hardKeyPrefix+id)
	if err != nil {
		return LockStateNormal, err
	}
	if hard {
		return LockStateHardLocked, nil
	}
	soft, err := l.counters.Locked(ctx, softKeyPrefix+id)
	if err != nil {
		return LockStateNormal, err
	}
	if soft {
		return LockStateLocked, nil
	}
	n, err := l.counters.Get(ctx, failKeyPrefix+id)
	if err != nil {
		return LockStateNormal, err
	}
	if n > 0 {
		return LockStateWarning, nil
	}
	return LockStateNormal, nil
}

func stateForCount(n int64) LockState {
	switch {
	case n >= hardLockThreshold:
		return LockStateHardLocked
	case n >= softLockThreshold:
		return LockStateLocked
	case n >= 1:
		return LockStateWarning
	default:
		return LockStateNormal
	}
}

// MemoryCounters is a mutex-guarded CounterStore. Production deployments
// use the Redis implementation in internal/store/redis; tests and DSN-less
// runs use this one.
type MemoryCounters struct {
	mu      sync.Mutex
	counts  map[string]memoryCount
	locks   map[string]time.Time // zero time = no expiry
	nowFunc func() time.Time
}

type memoryCount struct {
	n         int64
	expiresAt time.Time
}

var _ CounterStore = (*MemoryCounters)(nil)

func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{
		counts:  make(map[string]memoryCount),
		locks:   make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

// SetClock overrides the time source. Test use.
func (m *MemoryCounters) SetClock(fn func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fn != nil {
		m.nowFunc = fn
	}
}

func (m *MemoryCounters) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()
	c := m.counts[key]
	if !c.expiresAt.IsZero() && now.After(c.expiresAt) {
		c = memoryCount{}
	}
	c.n++
	// The window slides with every increment, like EXPIRE after INCR on
	// the Redis implementation. A counter only dies after a quiet period.
	if ttl > 0 {
		c.expiresAt = now.Add(ttl)
	}
	m.counts[key] = c
	return c.n, nil
}

func (m *MemoryCounters) Get(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.counts[key]
	if !ok {
		return 0, nil
	}
	if !c.expiresAt.IsZero() && m.nowFunc().After(c.expiresAt) {
		delete(m.counts, key)
		return 0, nil
	}
	return c.n, nil
}

func (m *MemoryCounters) Reset(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.counts, key)
		delete(m.locks, key)
	}
	return nil
}

func (m *MemoryCounters) SetLock(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl > 0 {
		m.locks[key] = m.nowFunc().Add(ttl)
	} else {
		m.locks[key] = time.Time{}
	}
	return nil
}

func (m *MemoryCounters) Locked(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.locks[key]
	if !ok {
		return false, nil
	}
	if until.IsZero() {
		return true, nil
	}
	if m.nowFunc().After(until) {
		delete(m.locks, key)
		return false, nil
	}
	return true, nil
}
