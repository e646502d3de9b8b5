// Package dedup implements the short-window duplicate-message suppressor
// from spec.md §4.5: on a busy mDNS segment the same response often
// arrives from more than one interface, and re-processing it wastes cache
// writes and can retrigger refresh queries.
//
// Grounded on the teacher's netfilter.Manager (captivating/netfilter/iptables.go),
// which appends to a []Rule under a sync.Mutex and prunes it wholesale on
// cleanup; Suppressor generalizes that "append under lock" shape to a
// fixed-size ring so memory never grows with traffic volume.
package dedup

import (
	"hash/fnv"
	"net"
	"sync"
	"time"

	"resolvent/wire"
)

// capacity is the maximum number of recently-seen (message, sender)
// pairs remembered at once.
const capacity = 100

// ttl is how long an entry is remembered before it is eligible for
// eviction regardless of ring pressure.
const ttl = 5 * time.Second

type entry struct {
	fingerprint uint64
	sender      string
	receivedAt  time.Time
}

// Suppressor is a bounded, age-evicted FIFO of message fingerprints.
type Suppressor struct {
	mu      sync.Mutex
	entries []entry
	now     func() time.Time
}

// New returns an empty Suppressor.
func New() *Suppressor {
	return &Suppressor{now: time.Now}
}

// Cached reports whether an equivalent (msg, sender) pair was seen within
// the last 5 seconds, recording it as seen either way. The transaction id
// is excluded from the fingerprint since mDNS always sends id 0 on the
// wire (spec.md §4.5).
func (s *Suppressor) Cached(msg wire.Message, sender net.Addr) bool {
	fp := fingerprint(msg)
	addr := sender.String()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked(now)

	for _, e := range s.entries {
		if e.fingerprint == fp && e.sender == addr {
			return true
		}
	}

	if len(s.entries) >= capacity {
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, entry{fingerprint: fp, sender: addr, receivedAt: now})
	return false
}

func (s *Suppressor) evictLocked(now time.Time) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if now.Sub(e.receivedAt) < ttl {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

// fingerprint hashes the questions, answers, and additionals of msg with
// the transaction id and authority section excluded, matching spec.md
// §4.5's definition. It reuses wire.EmitMessage on a zeroed-id, sectionless
// copy rather than hand-rolling a second serializer.
func fingerprint(msg wire.Message) uint64 {
	stripped := wire.Message{
		ID:          0,
		Flags:       msg.Flags,
		Questions:   msg.Questions,
		Answers:     msg.Answers,
		Additionals: msg.Additionals,
	}
	buf, err := wire.EmitMessage(stripped)
	h := fnv.New64a()
	if err == nil {
		h.Write(buf)
	} else {
		// A record too malformed to re-emit (e.g. one this codec only
		// parses as opaque with no owner) still needs a stable
		// fingerprint; fall back to hashing the pieces we can format.
		for _, q := range stripped.Questions {
			h.Write([]byte(q.Owner.String()))
		}
	}
	return h.Sum64()
}
