package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"

	"praxis.software/internal/auth"
)

func setupCounters(t *testing.T) (*Counters, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCounters(client, "test"), mr
}

func TestIncrCountsAndExpires(t *testing.T) {
	c, mr := setupCounters(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.Incr(ctx, "fail:bob@example.com", 15*time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if got != want {
			t.Fatalf("Incr = %d, want %d", got, want)
		}
	}

	if n, err := c.Get(ctx, "fail:bob@example.com"); err != nil || n != 3 {
		t.Fatalf("Get = %d, %v", n, err)
	}

	// The failure window slides: the key vanishes once it elapses.
	mr.FastForward(16 * time.Minute)
	if n, err := c.Get(ctx, "fail:bob@example.com"); err != nil || n != 0 {
		t.Fatalf("Get after expiry = %d, %v", n, err)
	}
}

func TestResetClearsSeveralKeys(t *testing.T) {
	c, _ := setupCounters(t)
	ctx := context.Background()

	c.Incr(ctx, "fail:a", time.Minute)
	c.Incr(ctx, "fail:b", time.Minute)
	if err := c.Reset(ctx, "fail:a", "fail:b"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n, _ := c.Get(ctx, "fail:a"); n != 0 {
		t.Fatalf("fail:a survived reset: %d", n)
	}
	if n, _ := c.Get(ctx, "fail:b"); n != 0 {
		t.Fatalf("fail:b survived reset: %d", n)
	}
	if err := c.Reset(ctx); err != nil {
		t.Fatalf("Reset with no keys: %v", err)
	}
}

func TestSoftLockExpiresHardLockDoesNot(t *testing.T) {
	c, mr := setupCounters(t)
	ctx := context.Background()

	if err := c.SetLock(ctx, "lock:bob", 15*time.Minute); err != nil {
		t.Fatalf("SetLock: %v", err)
	}
	if err := c.SetLock(ctx, "hard:bob", 0); err != nil {
		t.Fatalf("SetLock hard: %v", err)
	}

	if locked, _ := c.Locked(ctx, "lock:bob"); !locked {
		t.Fatal("expected soft lock to hold")
	}

	mr.FastForward(16 * time.Minute)

	if locked, _ := c.Locked(ctx, "lock:bob"); locked {
		t.Fatal("soft lock should have expired")
	}
	if locked, _ := c.Locked(ctx, "hard:bob"); !locked {
		t.Fatal("hard lock must persist until explicit reset")
	}

	if err := c.Reset(ctx, "hard:bob"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if locked, _ := c.Locked(ctx, "hard:bob"); locked {
		t.Fatal("hard lock should be gone after reset")
	}
}

// The lockout state machine behaves the same over Redis as over the
// in-memory counters.
func TestLockoutOverRedis(t *testing.T) {
	c, mr := setupCounters(t)
	ctx := context.Background()

	lo := auth.NewLockout(c)

	for i := 0; i < 4; i++ {
		if _, err := lo.RecordFailure(ctx, "eve@example.com"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if st, err := lo.Check(ctx, "eve@example.com"); err != nil || st != auth.LockStateWarning {
		t.Fatalf("after 4 failures state = %v, %v", st, err)
	}

	if st, err := lo.RecordFailure(ctx, "eve@example.com"); err != nil || st != auth.LockStateLocked {
		t.Fatalf("5th failure state = %v, %v", st, err)
	}

	mr.FastForward(16 * time.Minute)
	if st, err := lo.Check(ctx, "eve@example.com"); err != nil || st.Blocked() {
		t.Fatalf("soft lock should have lapsed, state = %v, %v", st, err)
	}
}
