package lockout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func TestListenerLocksAfterMaxFailures(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	listener := New(Config{MaxFailedAttempts: 3, LockDuration: time.Minute}, clock, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := listener.PreAuthenticate(ctx, "alice"); err != nil {
			t.Fatalf("attempt %d vetoed early: %v", i, err)
		}
		_ = listener.PostAuthenticate(ctx, "alice", false)
	}
	if err := listener.PreAuthenticate(ctx, "alice"); !errors.Is(err, domainerrors.ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	if err := listener.PreAuthenticate(ctx, "alice"); err != nil {
		t.Fatalf("expected lock to expire, got %v", err)
	}
	if listener.Locked("alice") {
		t.Fatalf("expected alice unlocked")
	}
}

func TestListenerSuccessResetsFailures(t *testing.T) {
	clock := &fixedClock{now: time.Now().UTC()}
	listener := New(Config{MaxFailedAttempts: 2}, clock, nil)
	ctx := context.Background()

	_ = listener.PostAuthenticate(ctx, "bob", false)
	_ = listener.PostAuthenticate(ctx, "bob", true)
	_ = listener.PostAuthenticate(ctx, "bob", false)
	if listener.Locked("bob") {
		t.Fatalf("expected success to reset the failure count")
	}
}

func TestListenerDeleteClearsLock(t *testing.T) {
	listener := New(Config{MaxFailedAttempts: 1}, &fixedClock{now: time.Now().UTC()}, nil)
	ctx := context.Background()

	_ = listener.PostAuthenticate(ctx, "carol", false)
	if !listener.Locked("carol") {
		t.Fatalf("expected carol locked")
	}
	_ = listener.PostDeleteUser(ctx, "carol")
	if listener.Locked("carol") {
		t.Fatalf("expected lock cleared on delete")
	}
}

func TestListenerPrunesLapsedFailures(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	listener := New(Config{MaxFailedAttempts: 5, LockDuration: time.Minute}, clock, nil)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_ = listener.PostAuthenticate(ctx, fmt.Sprintf("ghost-%d", i), false)
	}
	if got := listener.Tracked(); got != 1000 {
		t.Fatalf("expected 1000 tracked usernames, got %d", got)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	_ = listener.PostAuthenticate(ctx, "ghost-next", false)
	if got := listener.Tracked(); got != 1 {
		t.Fatalf("expected lapsed failures pruned, got %d tracked", got)
	}
}

func TestListenerBoundsTrackedUsernames(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	listener := New(Config{MaxFailedAttempts: 3, LockDuration: time.Hour, MaxTracked: 100}, clock, nil)
	ctx := context.Background()

	_ = listener.PostAuthenticate(ctx, "alice", false)
	_ = listener.PostAuthenticate(ctx, "alice", false)
	for i := 0; i < 10000; i++ {
		clock.now = clock.now.Add(time.Millisecond)
		_ = listener.PostAuthenticate(ctx, fmt.Sprintf("ghost-%d", i), false)
	}
	if got := listener.Tracked(); got > 100 {
		t.Fatalf("expected at most 100 tracked usernames, got %d", got)
	}

	// alice's failures were the oldest and have been evicted.
	_ = listener.PostAuthenticate(ctx, "alice", false)
	if listener.Locked("alice") {
		t.Fatalf("expected evicted failures not to count")
	}
}

func TestListenerFailuresExpireAfterLockDuration(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)}
	listener := New(Config{MaxFailedAttempts: 3, LockDuration: time.Minute}, clock, nil)
	ctx := context.Background()

	_ = listener.PostAuthenticate(ctx, "dave", false)
	_ = listener.PostAuthenticate(ctx, "dave", false)
	clock.now = clock.now.Add(30 * time.Second)
	_ = listener.PostAuthenticate(ctx, "dave", false)
	if !listener.Locked("dave") {
		t.Fatalf("expected dave locked after three failures within a minute")
	}

	listener.Unlock("dave")
	_ = listener.PostAuthenticate(ctx, "dave", false)
	_ = listener.PostAuthenticate(ctx, "dave", false)
	clock.now = clock.now.Add(2 * time.Minute)
	_ = listener.PostAuthenticate(ctx, "dave", false)
	if listener.Locked("dave") {
		t.Fatalf("expected stale failures to be forgotten")
	}
}
