package cache

import (
	"time"

	"resolvent/event"
	"resolvent/wire"
)

// StartCurator launches the background sweep described in spec.md §4.4:
// every 4 seconds, for each bucket, evict expired records, mark
// not-yet-stale records under 1/8 remaining lifetime as stale and emit a
// refresh-due event, and if a bucket only lost records to expiry, emit a
// bucket-expired event. StartCurator is idempotent; calling it twice on
// the same Cache has no additional effect.
//
// The 4-second ticker mirrors the teacher's Server.serve() loop
// (captivating/dns/server.go), which selects between a stop channel and
// work on every iteration; here the "work" is a full bucket sweep instead
// of a socket read.
func (c *Cache) StartCurator() {
	if c.curating {
		return
	}
	c.curating = true
	go c.curatorLoop()
}

// StopCurator halts the curator goroutine. Safe to call multiple times.
func (c *Cache) StopCurator() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Cache) curatorLoop() {
	ticker := time.NewTicker(curatorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	c.mu.RLock()
	buckets := make([]*bucket, 0, len(c.buckets))
	for _, b := range c.buckets {
		buckets = append(buckets, b)
	}
	c.mu.RUnlock()

	now := c.now()
	for _, b := range buckets {
		c.sweepBucket(b, now)
	}
}

func (c *Cache) sweepBucket(b *bucket, now time.Time) {
	b.mu.Lock()
	owner := b.owner
	kept := b.records[:0]
	expiredAny := false
	staleTypes := make(map[wire.RRType]struct{})

	for _, r := range b.records {
		if !r.Fresh(now) {
			expiredAny = true
			continue
		}
		if !r.Stale && r.RemainingFraction(now) < staleFraction {
			r.Stale = true
			staleTypes[r.Type] = struct{}{}
		}
		kept = append(kept, r)
	}
	b.records = kept
	b.mu.Unlock()

	if len(staleTypes) > 0 {
		types := make([]wire.RRType, 0, len(staleTypes))
		for t := range staleTypes {
			types = append(types, t)
		}
		c.events.Publish(event.RefreshDueEvent{Owner: owner, Types: types})
		return
	}
	if expiredAny {
		c.events.Publish(event.BucketExpiredEvent{Owner: owner})
	}
}
