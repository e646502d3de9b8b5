package cache

import (
	"testing"
	"time"

	"resolvent/event"
	"resolvent/wire"
)

func newTestCache(now *time.Time) *Cache {
	pub := event.NewPublisher()
	return New(pub, WithClock(func() time.Time { return *now }))
}

func aRecord(owner wire.Labels, ttl uint32, addr byte, cacheFlush bool, created time.Time) wire.Record {
	return wire.Record{
		Header: wire.Header{
			Owner:      owner,
			Type:       wire.TypeA,
			Class:      wire.ClassIN,
			CacheFlush: cacheFlush,
			TTL:        ttl,
			Created:    created,
			Expiry:     created.Add(time.Duration(ttl) * time.Second),
		},
		Data: wire.AData{Addr: [4]byte{192, 168, 0, addr}},
	}
}

func TestStoreNewDataAndUpdate(t *testing.T) {
	now := time.Now()
	c := newTestCache(&now)
	owner := wire.Labels{"host", "local"}

	rec := aRecord(owner, 120, 1, false, now)
	if result := c.Store(rec); result != NewData {
		t.Fatalf("first Store() = %v, want NewData", result)
	}

	same := rec
	same.TTL = 60
	same.Expiry = now.Add(60 * time.Second)
	if result := c.Store(same); result != Updated {
		t.Fatalf("re-Store() of equal payload = %v, want Updated", result)
	}
}

func TestStoreFiltersOPTAndOpaque(t *testing.T) {
	now := time.Now()
	c := newTestCache(&now)
	owner := wire.Labels{"host", "local"}

	opt := wire.Record{Header: wire.Header{Owner: owner, Type: wire.TypeOPT, Created: now, Expiry: now.Add(time.Minute)}, Data: wire.OpaqueData{Type: wire.TypeOPT}}
	if result := c.Store(opt); result != NoUpdate {
		t.Errorf("Store(OPT) = %v, want NoUpdate", result)
	}

	opaque := wire.Record{Header: wire.Header{Owner: owner, Type: 9999, Created: now, Expiry: now.Add(time.Minute)}, Data: wire.OpaqueData{Type: 9999, Raw: []byte("x")}}
	if result := c.Store(opaque); result != NoUpdate {
		t.Errorf("Store(opaque) = %v, want NoUpdate", result)
	}
}

func TestSearchPrunesExpired(t *testing.T) {
	now := time.Now()
	c := newTestCache(&now)
	owner := wire.Labels{"host", "local"}

	c.Store(aRecord(owner, 1, 1, false, now))
	now = now.Add(2 * time.Second)

	matches := c.Search(owner, wire.TypeA)
	if len(matches) != 0 {
		t.Errorf("Search() after expiry = %d records, want 0", len(matches))
	}
}

func TestCacheFlushCoalescesOutsideGraceWindow(t *testing.T) {
	now := time.Now()
	c := newTestCache(&now)
	owner := wire.Labels{"host", "local"}

	c.Store(aRecord(owner, 120, 1, false, now))
	now = now.Add(3 * time.Second) // past the 2-second grace window

	flush := aRecord(owner, 120, 2, true, now)
	c.Store(flush)

	matches := c.Search(owner, wire.TypeA)
	if len(matches) != 1 {
		t.Fatalf("Search() after cache-flush = %d records, want 1", len(matches))
	}
	data := matches[0].Data.(wire.AData)
	if data.Addr[3] != 2 {
		t.Errorf("surviving record = %+v, want the flushing record", matches[0])
	}
}

func TestCacheFlushPreservesRecentBurst(t *testing.T) {
	now := time.Now()
	c := newTestCache(&now)
	owner := wire.Labels{"host", "local"}

	c.Store(aRecord(owner, 120, 1, false, now))
	now = now.Add(500 * time.Millisecond) // inside the 2-second grace window

	c.Store(aRecord(owner, 120, 2, true, now))

	matches := c.Search(owner, wire.TypeA)
	if len(matches) != 2 {
		t.Fatalf("Search() inside grace window = %d records, want 2 (both survive)", len(matches))
	}
}

func TestKnownAnswersThreshold(t *testing.T) {
	now := time.Now()
	c := newTestCache(&now)
	owner := wire.Labels{"host", "local"}

	// TTL 100s, 90s remaining => 90% remaining, above the 50% threshold.
	c.Store(aRecord(owner, 100, 1, false, now.Add(-10*time.Second)))
	known := c.KnownAnswers(owner, []wire.RRType{wire.TypeA})
	if len(known) != 1 {
		t.Fatalf("KnownAnswers() = %d, want 1 record above 50%% remaining", len(known))
	}

	// TTL 100s, 40s remaining => 40% remaining, below threshold.
	owner2 := wire.Labels{"other", "local"}
	c.Store(aRecord(owner2, 100, 1, false, now.Add(-60*time.Second)))
	known2 := c.KnownAnswers(owner2, []wire.RRType{wire.TypeA})
	if len(known2) != 0 {
		t.Fatalf("KnownAnswers() = %d, want 0 records below 50%% remaining", len(known2))
	}
}

func TestFlushRemovesAllRecordsRegardlessOfFreshness(t *testing.T) {
	now := time.Now()
	c := newTestCache(&now)
	owner := wire.Labels{"host", "local"}

	c.Store(aRecord(owner, 120, 1, false, now))
	c.Flush(owner)

	if matches := c.Search(owner, wire.TypeA); len(matches) != 0 {
		t.Errorf("Search() after Flush() = %d records, want 0", len(matches))
	}
}
