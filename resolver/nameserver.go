package resolver

import (
	"net"
	"sync"

	"resolvent/hints"
)

// nameserverSet holds the resolver's current upstream list behind a mutex
// so ResolveQuery calls in flight during a discovery refresh never observe
// a half-updated slice. Every call takes a private snapshot before
// iterating, matching the teacher's own copy-then-range discipline for
// mutable shared state (portal.Auth snapshots its session map under
// RLock before ranging over it in Cleanup).
type nameserverSet struct {
	mu      sync.RWMutex
	entries []hints.Nameserver
	suffix  string
}

func newNameserverSet(initial []hints.Nameserver) *nameserverSet {
	return &nameserverSet{entries: append([]hints.Nameserver(nil), initial...)}
}

func (s *nameserverSet) snapshot() []hints.Nameserver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]hints.Nameserver, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *nameserverSet) set(entries []hints.Nameserver, suffix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]hints.Nameserver(nil), entries...)
	s.suffix = suffix
}

func (s *nameserverSet) searchSuffix() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suffix
}

func nameserverFromAddr(ip net.IP) hints.Nameserver {
	return hints.Nameserver{Addr: ip, DoH: hints.DoHUnknown}
}
