// Package cache implements the passive, TTL-keyed resource-record store
// described in spec.md §4.4: a concurrent map from owner name to a set of
// records, with mDNS cache-flush coalescing, stale-marking, and a curator
// goroutine that proactively signals records approaching expiry.
//
// The sharding-by-owner-bucket design is grounded on the teacher's
// portal.Auth type (captivating/portal/auth.go), which guards a
// map[string]struct{ expiry time.Time } with a single sync.RWMutex and
// treats "not yet past expiry" as the freshness test. Cache generalizes
// that single-map pattern to one lock per owner bucket so unrelated names
// never contend, and adds a curator loop shaped like the teacher's
// Server.serve() select-against-stopChan loop (captivating/dns/server.go).
package cache

import (
	"sync"
	"time"

	"resolvent/event"
	"resolvent/wire"
)

// UpdateResult reports what Store did with an incoming record.
type UpdateResult int

const (
	// NoUpdate means the record was filtered (OPT, or any other type
	// this cache refuses to store) and nothing changed.
	NoUpdate UpdateResult = iota
	// Updated means an equal record already existed and was replaced,
	// typically a TTL refresh of the same data.
	Updated
	// NewData means the set did not previously contain this record.
	NewData
)

// cacheFlushGrace is the "recent" window mDNS cache-flush must not evict
// (RFC 6762 §10.2): records of the same (owner, type) inserted within the
// last two seconds survive a cache-flush burst.
const cacheFlushGrace = 2 * time.Second

// curatorInterval is how often the curator sweeps every bucket.
const curatorInterval = 4 * time.Second

// staleFraction is the remaining-lifetime threshold below which a fresh
// record is marked stale and a refresh-due event is emitted.
const staleFraction = 1.0 / 8.0

// knownAnswerFraction is the remaining-lifetime threshold above which a
// record is eligible to be attached as a known answer.
const knownAnswerFraction = 0.5

type bucket struct {
	mu      sync.Mutex
	owner   wire.Labels // original-case owner, for synthesizing responses
	records []wire.Record
}

// Cache is a concurrent, owner-sharded store of resource records.
type Cache struct {
	mu       sync.RWMutex
	buckets  map[string]*bucket
	events   *event.Publisher
	now      func() time.Time
	stopOnce sync.Once
	stopChan chan struct{}
	curating bool
}

// Option configures a Cache at construction.
type Option func(*Cache)

// WithClock overrides the cache's notion of "now", for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache publishing curator events on pub.
func New(pub *event.Publisher, opts ...Option) *Cache {
	c := &Cache{
		buckets:  make(map[string]*bucket),
		events:   pub,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) bucketFor(owner wire.Labels) *bucket {
	key := owner.LowerKey()

	c.mu.RLock()
	b, ok := c.buckets[key]
	c.mu.RUnlock()
	if ok {
		return b
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok = c.buckets[key]; ok {
		return b
	}
	b = &bucket{owner: owner}
	c.buckets[key] = b
	return b
}

// storable reports whether a record type is ever kept in the passive
// cache. OPT and opaque records are excluded per spec.md §4.4. NSEC is
// excluded too, per DESIGN.md's parity decision (no validator, so no value
// in caching it): this codec has no dedicated NSEC parser, so NSEC arrives
// as OpaqueData and the opaque check drops it.
func storable(r wire.Record) bool {
	if r.Type == wire.TypeOPT {
		return false
	}
	if _, opaque := r.Data.(wire.OpaqueData); opaque {
		return false
	}
	return true
}

// Store inserts r, applying mDNS cache-flush coalescing if r.CacheFlush is
// set, and reports whether this was new data, a refresh of existing data,
// or a no-op because the type is filtered.
func (c *Cache) Store(r wire.Record) UpdateResult {
	if !storable(r) {
		return NoUpdate
	}

	b := c.bucketFor(r.Owner)
	now := c.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if r.CacheFlush {
		kept := b.records[:0]
		for _, existing := range b.records {
			if existing.Type == r.Type && existing.Owner.Equal(r.Owner) && now.Sub(existing.Created) > cacheFlushGrace {
				continue // purged: same (owner,type), outside the grace window
			}
			kept = append(kept, existing)
		}
		b.records = kept
	}

	for i, existing := range b.records {
		if existing.Equal(r) {
			b.records[i] = r
			return Updated
		}
	}
	b.records = append(b.records, r)
	return NewData
}

// Search returns every fresh record in owner's bucket whose type matches
// qtype, or every fresh record if qtype is wire.TypeANY. Expired records
// are pruned as a side effect.
func (c *Cache) Search(owner wire.Labels, qtype wire.RRType) []wire.Record {
	c.mu.RLock()
	b, ok := c.buckets[owner.LowerKey()]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := c.now()
	kept := b.records[:0]
	var matches []wire.Record
	for _, r := range b.records {
		if !r.Fresh(now) {
			continue
		}
		kept = append(kept, r)
		if qtype == wire.TypeANY || r.Type == qtype {
			matches = append(matches, r)
		}
	}
	b.records = kept
	return matches
}

// KnownAnswers returns records for owner whose type is in types and whose
// remaining lifetime exceeds 50% of their original TTL, for attaching to
// outgoing mDNS queries as known answers (spec.md §4.4).
func (c *Cache) KnownAnswers(owner wire.Labels, types []wire.RRType) []wire.Record {
	c.mu.RLock()
	b, ok := c.buckets[owner.LowerKey()]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := c.now()
	var out []wire.Record
	for _, r := range b.records {
		if !r.Fresh(now) || !typeIn(r.Type, types) {
			continue
		}
		if r.RemainingFraction(now) > knownAnswerFraction {
			out = append(out, r)
		}
	}
	return out
}

func typeIn(t wire.RRType, types []wire.RRType) bool {
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// Flush removes every record for owner regardless of freshness.
func (c *Cache) Flush(owner wire.Labels) {
	c.mu.Lock()
	delete(c.buckets, owner.LowerKey())
	c.mu.Unlock()
}
