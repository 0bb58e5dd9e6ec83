package reference

import (
	"context"
	"testing"
	"time"
)

func TestRunPeriodicRefreshReloadsUntilCancelled(t *testing.T) {
	src := &fakeSource{payload: jsonPayload(fixtureJSON)}
	store := newTestStore(src)
	if err := store.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("EnsureLoaded() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunPeriodicRefresh(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for src.callCount() < 3 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("expected periodic refreshes, got %d fetches", src.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("refresher did not stop after cancellation")
	}

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Generation < 3 {
		t.Fatalf("expected generation to advance with refreshes, got %d", stats.Generation)
	}
}

func TestRunPeriodicRefreshDisabled(t *testing.T) {
	src := &fakeSource{payload: jsonPayload(fixtureJSON)}
	store := newTestStore(src)

	done := make(chan struct{})
	go func() {
		store.RunPeriodicRefresh(context.Background(), 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected immediate return for disabled refresher")
	}
	if src.callCount() != 0 {
		t.Fatalf("expected no fetches, got %d", src.callCount())
	}
}
