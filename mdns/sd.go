package mdns

import (
	"fmt"
	"net"
	"sync"
	"time"

	"resolvent/event"
	"resolvent/wire"
)

// SendQuery serializes q as a query message, attaching known answers with
// remaining lifetime above 50% for suppression (spec.md §4.4, §4.7), and
// sends it out every sender socket. UnicastResponse is masked off when
// this platform's unicast-response bit cannot be honored.
func (c *Client) SendQuery(q wire.Question) error {
	if !c.unicastSupported {
		q.UnicastResponse = false
	}
	known := c.cache.KnownAnswers(q.Owner, []wire.RRType{q.Type})
	msg := wire.Message{
		Questions: []wire.Question{q},
		Answers:   known,
	}
	return c.sendMessage(msg)
}

// ResolveQuery installs a short-lived answer listener, issues q, waits
// three seconds for responses, then detaches (spec.md §4.7's DNS-SD
// helper description). It returns every answer record observed for q's
// owner and type during the window, from the network or already fresh in
// the cache.
func (c *Client) ResolveQuery(q wire.Question) []wire.Record {
	var mu sync.Mutex
	var collected []wire.Record

	sub := c.events.Subscribe(func(evt any) {
		ans, ok := evt.(event.AnswerEvent)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		for _, rec := range append(append([]wire.Record(nil), ans.Added...), ans.Updated...) {
			if rec.Type == q.Type && rec.Owner.Equal(q.Owner) {
				collected = append(collected, rec)
			}
		}
	})
	defer sub.Close()

	if err := c.SendQuery(q); err != nil {
		return c.cache.Search(q.Owner, q.Type)
	}
	time.Sleep(listenResponseWindow)

	mu.Lock()
	defer mu.Unlock()
	if len(collected) == 0 {
		return c.cache.Search(q.Owner, q.Type)
	}
	return collected
}

// ResolveInverseQuery is ResolveQuery specialized to a PTR query against
// ip's reverse-mapped owner.
func (c *Client) ResolveInverseQuery(ip net.IP) []wire.Record {
	owner := wire.NameFromIP(ip)
	if owner == nil {
		return nil
	}
	return c.ResolveQuery(wire.Question{Owner: owner, Type: wire.TypePTR, Class: wire.ClassIN})
}

// ResolveHost runs A and AAAA queries for name and returns the address
// records observed.
func (c *Client) ResolveHost(name string) ([]wire.Record, error) {
	owner, err := wire.ParseName(name)
	if err != nil {
		return nil, fmt.Errorf("mdns: %q: %w", name, err)
	}
	var out []wire.Record
	out = append(out, c.ResolveQuery(wire.Question{Owner: owner, Type: wire.TypeA, Class: wire.ClassIN})...)
	out = append(out, c.ResolveQuery(wire.Question{Owner: owner, Type: wire.TypeAAAA, Class: wire.ClassIN})...)
	return out, nil
}

// ResolveIP runs a PTR query against ip's reverse-mapped owner.
func (c *Client) ResolveIP(ip net.IP) []wire.Record {
	return c.ResolveInverseQuery(ip)
}

// dnsSDServices is the well-known meta-query name used to enumerate
// service types present in a domain (RFC 6763 §9).
const dnsSDServices = "_services._dns-sd._udp"

// QueryServices issues a PTR query for the service-enumeration meta-name
// under domain. When unicast is true the query's unicast-response bit is
// requested (spec.md §4.7's QueryServices(domain, unicast?)). If the cache
// already holds PTR known answers for that name, they are returned and no
// query is sent.
func (c *Client) QueryServices(domain string, unicast bool) []wire.Record {
	owner, err := wire.ParseName(dnsSDServices + "." + domain)
	if err != nil {
		return nil
	}
	q := wire.Question{Owner: owner, Type: wire.TypePTR, Class: wire.ClassIN, UnicastResponse: unicast}
	if known := c.cache.KnownAnswers(owner, []wire.RRType{wire.TypePTR}); len(known) > 0 {
		return known
	}
	return c.ResolveQuery(q)
}

// QueryService issues one PTR query for "_service._proto.domain".
func (c *Client) QueryService(service, domain string) []wire.Record {
	owner, err := wire.ParseName(serviceDomainName(service, domain))
	if err != nil {
		return nil
	}
	return c.ResolveQuery(wire.Question{Owner: owner, Type: wire.TypePTR, Class: wire.ClassIN})
}

// QueryServiceInstance issues one query per requested type for the
// fully-qualified "instance._service._proto.domain" name. If cached
// known answers already satisfy every requested type, a synthetic
// response is returned without sending anything on the wire.
func (c *Client) QueryServiceInstance(instance, service, domain string, types ...wire.RRType) []wire.Record {
	fqdn := instance + "." + serviceDomainName(service, domain)
	owner, err := wire.ParseName(fqdn)
	if err != nil {
		return nil
	}

	if satisfied, ok := c.satisfiedFromCache(owner, types); ok {
		return satisfied
	}

	var out []wire.Record
	for _, t := range types {
		out = append(out, c.ResolveQuery(wire.Question{Owner: owner, Type: t, Class: wire.ClassIN})...)
	}
	return out
}

func (c *Client) satisfiedFromCache(owner wire.Labels, types []wire.RRType) ([]wire.Record, bool) {
	known := c.cache.KnownAnswers(owner, types)
	if len(known) == 0 {
		return nil, false
	}
	seen := make(map[wire.RRType]bool)
	for _, rec := range known {
		seen[rec.Type] = true
	}
	for _, t := range types {
		if !seen[t] {
			return nil, false
		}
	}
	return known, true
}

// ResolveServiceInstance is QueryServiceInstance specialized to the SRV,
// TXT, A, and AAAA records needed to fully connect to an instance.
func (c *Client) ResolveServiceInstance(instance, service, domain string) []wire.Record {
	return c.QueryServiceInstance(instance, service, domain,
		wire.TypeSRV, wire.TypeTXT, wire.TypeA, wire.TypeAAAA)
}

func serviceDomainName(service, domain string) string {
	return service + "." + domain
}
