package mdns

import (
	"resolvent/event"
	"resolvent/wire"
)

// handleEvent is the client's single event.Handler, subscribed once in
// Start. It only acts on RefreshDueEvent — the C4→C7 wiring from spec.md
// §9's "cyclic event wiring... break the cycle by message passing" — and
// ignores everything else the shared publisher carries.
//
// Publisher.Publish runs every handler synchronously on the publishing
// goroutine, which for RefreshDueEvent is the cache curator's own sweep
// loop (cache/curator.go). refreshService can block for several seconds
// per query type while it waits out mDNS's listen-response window, so
// handling it inline here would stall the curator's ticker and delay the
// sweep of every other bucket in the cache, not just this one. Detaching
// onto its own goroutine keeps the curator's per-tick cadence independent
// of how long a re-query takes.
func (c *Client) handleEvent(evt any) {
	due, ok := evt.(event.RefreshDueEvent)
	if !ok {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.refreshService(due.Owner, due.Types)
	}()
}

// refreshService implements spec.md §4.7's cache-driven refresh: when a
// SRV or TXT record nearing expiry is reported, derive
// (instance, service, domain) from the owner labels and re-query SRV, A,
// AAAA, and TXT so live service records stay fresh without caller
// involvement.
func (c *Client) refreshService(owner wire.Labels, types []wire.RRType) {
	if !containsAny(types, wire.TypeSRV, wire.TypeTXT) {
		return
	}
	instance, service, domain, ok := splitInstanceName(owner)
	if !ok {
		return
	}
	c.ResolveServiceInstance(instance, service, domain)
}

func containsAny(types []wire.RRType, want ...wire.RRType) bool {
	for _, t := range types {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}

// splitInstanceName splits an "instance._service._proto.domain..." owner
// into its three DNS-SD components. It requires at least an instance
// label, a service label, a protocol label, and one domain label.
func splitInstanceName(owner wire.Labels) (instance, service, domain string, ok bool) {
	if len(owner) < 4 {
		return "", "", "", false
	}
	instance = owner[0]
	service = wire.Labels{owner[1], owner[2]}.String()
	domain = wire.Labels(owner[3:]).String()
	return instance, service, domain, true
}
