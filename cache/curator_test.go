package cache

import (
	"sync"
	"testing"
	"time"

	"resolvent/event"
	"resolvent/wire"
)

func TestSweepMarksStaleAndPublishesRefreshDue(t *testing.T) {
	now := time.Now()
	pub := event.NewPublisher()
	c := New(pub, WithClock(func() time.Time { return now }))

	owner := wire.Labels{"host", "local"}
	// 100s TTL, 5s remaining: 5% remaining, below the 1/8 stale threshold.
	c.Store(aRecord(owner, 100, 1, false, now.Add(-95*time.Second)))

	var mu sync.Mutex
	var gotOwner wire.Labels
	sub := pub.Subscribe(func(evt any) {
		if due, ok := evt.(event.RefreshDueEvent); ok {
			mu.Lock()
			gotOwner = due.Owner
			mu.Unlock()
		}
	})
	defer sub.Close()

	c.sweep()

	mu.Lock()
	defer mu.Unlock()
	if !gotOwner.Equal(owner) {
		t.Errorf("RefreshDueEvent owner = %v, want %v", gotOwner, owner)
	}

	matches := c.Search(owner, wire.TypeA)
	if len(matches) != 1 || !matches[0].Stale {
		t.Errorf("record after sweep = %+v, want Stale=true", matches)
	}
}

func TestSweepPublishesBucketExpiredWhenOnlyExpirationOccurs(t *testing.T) {
	now := time.Now()
	pub := event.NewPublisher()
	c := New(pub, WithClock(func() time.Time { return now }))

	owner := wire.Labels{"gone", "local"}
	c.Store(aRecord(owner, 1, 1, false, now))
	now = now.Add(2 * time.Second)

	var mu sync.Mutex
	sawExpired := false
	sub := pub.Subscribe(func(evt any) {
		if _, ok := evt.(event.BucketExpiredEvent); ok {
			mu.Lock()
			sawExpired = true
			mu.Unlock()
		}
	})
	defer sub.Close()

	c.sweep()

	mu.Lock()
	defer mu.Unlock()
	if !sawExpired {
		t.Error("expected BucketExpiredEvent when a bucket only loses records to expiry")
	}
}

func TestStartStopCuratorIdempotent(t *testing.T) {
	pub := event.NewPublisher()
	c := New(pub)

	c.StartCurator()
	c.StartCurator() // must not spawn a second goroutine or panic
	c.StopCurator()
	c.StopCurator() // must not panic on double-stop
}
