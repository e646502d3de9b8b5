// Package resolver implements the iterative unicast DNS resolver (spec.md
// §4.6): cache-backed, CNAME-chasing, NS-delegating, with a private-namespace
// leak guard and a choice of UDP or DNS-over-HTTPS transport.
package resolver

import (
	"context"
	"fmt"
	"net"

	"resolvent/cache"
	"resolvent/event"
	"resolvent/hints"
	"resolvent/wire"
)

// Mode selects which transport(s) a Resolver may use.
type Mode int

const (
	// InsecureOnly sends every query over plain UDP.
	InsecureOnly Mode = iota
	// SecureOnly sends every query over DNS-over-HTTPS and fails outright
	// if that is not possible (no error surfaces; the call returns
	// nothing, per spec.md §6's "never thrown").
	SecureOnly
	// SecureWithFallback tries DoH first and falls back to UDP on an
	// HTTPS or timeout error, unless the nameserver's DoH flag is
	// explicitly hints.DoHNo, in which case DoH is skipped entirely.
	SecureWithFallback
)

// maxDepth bounds CNAME-chase and delegation recursion (spec.md §4.6
// step 1).
const maxDepth = 10

// Option configures a Resolver at construction.
type Option func(*Resolver)

// WithCache attaches a shared passive cache instead of the private one
// New creates by default. Useful when a resolver and an mDNS client
// should observe each other's answers.
func WithCache(c *cache.Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithEvents attaches a shared event publisher.
func WithEvents(pub *event.Publisher) Option {
	return func(r *Resolver) { r.events = pub }
}

// Resolver is a stateful iterative DNS client. It is safe for concurrent
// use: nameserver list and cache are independently synchronized.
type Resolver struct {
	nameservers *nameserverSet
	mode        Mode
	cache       *cache.Cache
	events      *event.Publisher
}

// New builds a Resolver. If nameservers is empty, the resolver discovers
// its upstream list from the host's operational network configuration
// (spec.md §4.6's "nameserver discovery").
func New(nameservers []hints.Nameserver, mode Mode, opts ...Option) *Resolver {
	r := &Resolver{mode: mode}
	for _, opt := range opts {
		opt(r)
	}
	if r.events == nil {
		r.events = event.NewPublisher()
	}
	if r.cache == nil {
		r.cache = cache.New(r.events)
	}

	if len(nameservers) == 0 {
		discovered, suffix := discoverNameservers()
		if len(discovered) == 0 {
			discovered = hints.Cloudflare()
		}
		r.nameservers = newNameserverSet(discovered)
		r.nameservers.set(discovered, suffix)
	} else {
		r.nameservers = newNameserverSet(nameservers)
	}
	return r
}

// Nameservers returns a snapshot of the resolver's current upstream list.
func (r *Resolver) Nameservers() []hints.Nameserver {
	return r.nameservers.snapshot()
}

// SetNameservers replaces the resolver's upstream list explicitly,
// overriding whatever discovery originally produced.
func (r *Resolver) SetNameservers(nameservers []hints.Nameserver) {
	r.nameservers.set(nameservers, r.nameservers.searchSuffix())
}

// Refresh re-runs nameserver discovery, for callers wired to an OS
// network-change notification (spec.md §4.6's last sentence).
func (r *Resolver) Refresh() {
	discovered, suffix := discoverNameservers()
	if len(discovered) == 0 {
		return
	}
	r.nameservers.set(discovered, suffix)
}

// ResolveHost runs an A query and an AAAA query for name and concatenates
// the resulting addresses.
func (r *Resolver) ResolveHost(ctx context.Context, name string) ([]net.IP, error) {
	v4, err := r.ResolveHostV4(ctx, name)
	if err != nil {
		return nil, err
	}
	v6, err := r.ResolveHostV6(ctx, name)
	if err != nil {
		return nil, err
	}
	return append(v4, v6...), nil
}

// ResolveHostV4 runs an A query for name.
func (r *Resolver) ResolveHostV4(ctx context.Context, name string) ([]net.IP, error) {
	return r.resolveHostType(ctx, name, wire.TypeA)
}

// ResolveHostV6 runs an AAAA query for name.
func (r *Resolver) ResolveHostV6(ctx context.Context, name string) ([]net.IP, error) {
	return r.resolveHostType(ctx, name, wire.TypeAAAA)
}

func (r *Resolver) resolveHostType(ctx context.Context, name string, qtype wire.RRType) ([]net.IP, error) {
	owner, err := wire.ParseName(name)
	if err != nil {
		return nil, fmt.Errorf("resolver: %q: %w", name, err)
	}
	msg, err := r.ResolveQuery(ctx, wire.Question{Owner: owner, Type: qtype, Class: wire.ClassIN})
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}

	var out []net.IP
	for _, rec := range msg.Answers {
		switch d := rec.Data.(type) {
		case wire.AData:
			out = append(out, d.IP())
		case wire.AAAAData:
			out = append(out, d.IP())
		}
	}
	return out, nil
}

// ResolveIP resolves ip's reverse-mapped PTR name.
func (r *Resolver) ResolveIP(ctx context.Context, ip net.IP) (string, error) {
	rec, err := r.ResolveIPRecord(ctx, ip)
	if err != nil || rec == nil {
		return "", err
	}
	ptr, ok := rec.Data.(wire.PTRData)
	if !ok {
		return "", nil
	}
	return ptr.Name.String(), nil
}

// ResolveIPRecord resolves ip's reverse-mapped PTR record, for callers
// that need TTL or the raw owner alongside the name.
func (r *Resolver) ResolveIPRecord(ctx context.Context, ip net.IP) (*wire.Record, error) {
	owner := wire.NameFromIP(ip)
	if owner == nil {
		return nil, fmt.Errorf("resolver: not a valid IP: %v", ip)
	}
	msg, err := r.ResolveQuery(ctx, wire.Question{Owner: owner, Type: wire.TypePTR, Class: wire.ClassIN})
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, nil
	}
	for _, rec := range msg.Answers {
		if rec.Type == wire.TypePTR {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

// ResolveQuery is the resolution primitive: it runs the full iterative
// algorithm from spec.md §4.6 and returns the first successful response,
// or nil if every nameserver was exhausted without one. Only depth-guard
// exhaustion surfaces as an error; running out of nameservers is "no
// result", never an error (spec.md §6, §7).
func (r *Resolver) ResolveQuery(ctx context.Context, q wire.Question) (*wire.Message, error) {
	return r.resolveIterative(ctx, q, r.nameservers.snapshot(), 0)
}

func (r *Resolver) resolveIterative(ctx context.Context, q wire.Question, servers []hints.Nameserver, depth int) (*wire.Message, error) {
	if depth > maxDepth {
		return nil, &DepthExceededError{Limit: maxDepth}
	}

	if cached := r.synthesizeFromCache(q); cached != nil {
		return cached, nil
	}

	for _, ns := range servers {
		if !allowedNameserver(q, ns) {
			continue
		}

		reply, err := r.attempt(ctx, ns, q)
		if err != nil {
			r.publishError(err)
			continue
		}

		nameError, retry := classifyRCode(reply)
		if nameError {
			return &reply, nil
		}
		if retry {
			continue
		}

		r.storeSections(reply)

		if positive, ok := positiveAnswer(reply, q); ok {
			return positive, nil
		}

		if target, ok := cnameTarget(reply, q); ok {
			next := q
			next.Owner = target
			return r.resolveIterative(ctx, next, servers, depth+1)
		}

		if delegated, ok := r.delegate(ctx, reply, ns, depth); ok {
			return r.resolveIterative(ctx, q, delegated, depth+1)
		}
	}

	return nil, nil
}

// attempt sends q to ns using whichever transport(s) r.mode allows.
func (r *Resolver) attempt(ctx context.Context, ns hints.Nameserver, q wire.Question) (wire.Message, error) {
	query := buildQuery(newTransactionID(), q)

	switch r.mode {
	case InsecureOnly:
		return sendUDP(ctx, ns, query)

	case SecureOnly:
		if ns.DoH == hints.DoHNo {
			return wire.Message{}, &TransportFailureError{Nameserver: ns.Addr.String(), Err: fmt.Errorf("DoH not supported")}
		}
		return sendDoH(ctx, ns.Addr, query)

	case SecureWithFallback:
		if ns.DoH == hints.DoHNo {
			return sendUDP(ctx, ns, query)
		}
		reply, err := sendDoH(ctx, ns.Addr, query)
		if err == nil {
			return reply, nil
		}
		switch err.(type) {
		case *TransportFailureError, *TimeoutError:
			return sendUDP(ctx, ns, query)
		default:
			return wire.Message{}, err
		}

	default:
		return sendUDP(ctx, ns, query)
	}
}

func (r *Resolver) publishError(err error) {
	if r.events == nil {
		return
	}
	r.events.Publish(event.ErrorEvent{Err: err})
}

// synthesizeFromCache probes the cache for (owner, type) and, on a hit,
// builds a response message without touching the network (spec.md §4.6
// step 2).
func (r *Resolver) synthesizeFromCache(q wire.Question) *wire.Message {
	records := r.cache.Search(q.Owner, q.Type)
	if len(records) == 0 {
		return nil
	}
	return &wire.Message{
		Flags:     wire.Flags{Response: true, RCode: wire.RCodeNoError},
		Questions: []wire.Question{q},
		Answers:   records,
	}
}

func (r *Resolver) storeSections(msg wire.Message) {
	for _, sections := range [][]wire.Record{msg.Answers, msg.Authorities, msg.Additionals} {
		for _, rec := range sections {
			r.cache.Store(rec)
		}
	}
}

// positiveAnswer implements spec.md §4.6's "positive termination": any
// answer matching the question type, or any additional matching the
// owner and type.
func positiveAnswer(msg wire.Message, q wire.Question) (*wire.Message, bool) {
	for _, rec := range msg.Answers {
		if rec.Type == q.Type {
			m := msg
			return &m, true
		}
	}
	for _, rec := range msg.Additionals {
		if rec.Type == q.Type && rec.Owner.Equal(q.Owner) {
			m := msg
			return &m, true
		}
	}
	return nil, false
}

// cnameTarget reports the CNAME target to chase, if msg's answers contain
// one for q's owner.
func cnameTarget(msg wire.Message, q wire.Question) (wire.Labels, bool) {
	for _, rec := range msg.Answers {
		if rec.Type != wire.TypeCNAME || !rec.Owner.Equal(q.Owner) {
			continue
		}
		if cname, ok := rec.Data.(wire.CNAMEData); ok {
			return cname.Name, true
		}
	}
	return nil, false
}

// delegate implements spec.md §4.6's delegation step: when RA is clear,
// answers are empty, and authorities are non-empty, resolve the NS names
// found there into a new nameserver list.
func (r *Resolver) delegate(ctx context.Context, msg wire.Message, current hints.Nameserver, depth int) ([]hints.Nameserver, bool) {
	if msg.Flags.RecursionAvailable || len(msg.Answers) != 0 || len(msg.Authorities) == 0 {
		return nil, false
	}

	var nsNames []wire.Labels
	for _, rec := range msg.Authorities {
		if ns, ok := rec.Data.(wire.NSData); ok {
			nsNames = append(nsNames, ns.Name)
		}
	}
	if len(nsNames) == 0 {
		return nil, false
	}

	wantV4 := current.Addr.To4() != nil
	var next []hints.Nameserver

	for _, name := range nsNames {
		if glue := glueAddresses(msg.Additionals, name, wantV4); len(glue) > 0 {
			next = append(next, glue...)
			continue
		}
		if cached := r.cache.Search(name, addrTypeFor(wantV4)); len(cached) > 0 {
			next = append(next, addressesFromRecords(cached)...)
			continue
		}
		if addrs, err := r.resolveHostType(ctx, name.String(), addrTypeFor(wantV4)); err == nil {
			for _, ip := range addrs {
				next = append(next, nameserverFromAddr(ip))
			}
		}
	}

	if len(next) == 0 {
		return nil, false
	}
	return next, true
}

func addrTypeFor(wantV4 bool) wire.RRType {
	if wantV4 {
		return wire.TypeA
	}
	return wire.TypeAAAA
}

func glueAddresses(additionals []wire.Record, name wire.Labels, wantV4 bool) []hints.Nameserver {
	var out []hints.Nameserver
	for _, rec := range additionals {
		if !rec.Owner.Equal(name) {
			continue
		}
		switch d := rec.Data.(type) {
		case wire.AData:
			if wantV4 {
				out = append(out, nameserverFromAddr(d.IP()))
			}
		case wire.AAAAData:
			if !wantV4 {
				out = append(out, nameserverFromAddr(d.IP()))
			}
		}
	}
	return out
}

func addressesFromRecords(records []wire.Record) []hints.Nameserver {
	var out []hints.Nameserver
	for _, rec := range records {
		switch d := rec.Data.(type) {
		case wire.AData:
			out = append(out, nameserverFromAddr(d.IP()))
		case wire.AAAAData:
			out = append(out, nameserverFromAddr(d.IP()))
		}
	}
	return out
}
