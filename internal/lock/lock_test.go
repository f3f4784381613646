package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func TestMemoryLockerSerializes(t *testing.T) {
	l := NewMemoryLocker()
	rel, err := l.Acquire(context.Background(), "progress:biz:tm:2026-03-02", 0)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "progress:biz:tm:2026-03-02", 0); err == nil {
		t.Fatalf("second acquire should block until ctx expires")
	}

	rel()
	rel() // idempotent

	rel2, err := l.Acquire(context.Background(), "progress:biz:tm:2026-03-02", 0)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	rel2()
}

func TestMemoryLockerIndependentKeys(t *testing.T) {
	l := NewMemoryLocker()
	relA, err := l.Acquire(context.Background(), "a", 0)
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer relA()
	relB, err := l.Acquire(context.Background(), "b", 0)
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	relB()
}

func TestMemoryLockerHandoff(t *testing.T) {
	l := NewMemoryLocker()
	rel, err := l.Acquire(context.Background(), "k", 0)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	got := make(chan error, 1)
	go func() {
		rel2, err := l.Acquire(context.Background(), "k", 0)
		if err == nil {
			rel2()
		}
		got <- err
	}()

	time.Sleep(20 * time.Millisecond)
	rel()

	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("waiter acquire: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter never got the lock")
	}
}

func TestRedisLockerAcquireRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	l := NewRedisLockerClient(rdb)

	rel, err := l.Acquire(context.Background(), "progress:biz:tm:2026-03-02", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !mr.Exists("lock:progress:biz:tm:2026-03-02") {
		t.Fatalf("lock key missing in redis")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "progress:biz:tm:2026-03-02", time.Minute); err == nil {
		t.Fatalf("second acquire should time out while held")
	}

	rel()
	if mr.Exists("lock:progress:biz:tm:2026-03-02") {
		t.Fatalf("lock key not released")
	}

	rel2, err := l.Acquire(context.Background(), "progress:biz:tm:2026-03-02", time.Minute)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	rel2()
}

func TestRedisLockerReleaseIgnoresForeignHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	l := NewRedisLockerClient(rdb)

	rel, err := l.Acquire(context.Background(), "k", time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// Simulate expiry plus takeover by another replica.
	mr.Set("lock:k", "other-token")
	rel()
	if v, _ := mr.Get("lock:k"); v != "other-token" {
		t.Fatalf("release removed a lock it no longer held: %q", v)
	}
}
