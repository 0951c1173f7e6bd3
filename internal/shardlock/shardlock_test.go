package shardlock

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func TestAcquireIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := Acquire(dir, 3)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if filepath.Base(first.Path()) != "rank_3.lock" {
		t.Fatalf("unexpected lock path %s", first.Path())
	}

	if _, err := Acquire(dir, 3); !errors.Is(err, ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
	other, err := Acquire(dir, 4)
	if err != nil {
		t.Fatalf("other shard should lock independently: %v", err)
	}
	_ = other.Release()

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := Acquire(dir, 3)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	_ = again.Release()
}

func TestHeld(t *testing.T) {
	dir := t.TempDir()
	if held, err := Held(dir, 0); err != nil || held {
		t.Fatalf("Held on fresh dir = %v, %v", held, err)
	}
	lock, err := Acquire(dir, 0)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if held, err := Held(dir, 0); err != nil || !held {
		t.Fatalf("Held while locked = %v, %v", held, err)
	}
	_ = lock.Release()
	if held, err := Held(dir, 0); err != nil || held {
		t.Fatalf("Held after release = %v, %v", held, err)
	}
}

func TestAcquireWaitsOutLivenessCheck(t *testing.T) {
	dir := t.TempDir()
	first, err := Acquire(dir, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	// A status scan holds a shared lock for a moment while the attempt starts.
	check := flock.New(Path(dir, 1))
	ok, err := check.TryRLock()
	if err != nil || !ok {
		t.Fatalf("shared lock = %v, %v", ok, err)
	}
	released := make(chan struct{})
	go func() {
		time.Sleep(acquireRetryDelay / 2)
		_ = check.Unlock()
		close(released)
	}()

	lock, err := Acquire(dir, 1)
	<-released
	if err != nil {
		t.Fatalf("attempt should start once the check lets go: %v", err)
	}
	_ = lock.Release()
}
