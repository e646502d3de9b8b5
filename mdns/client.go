// Package mdns implements the multicast DNS client from spec.md §4.7: dual
// IPv4/IPv6 listeners on port 5353, per-interface senders, cache-backed
// known-answer suppression, and the DNS-SD query helpers built on top.
package mdns

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"resolvent/cache"
	"resolvent/dedup"
	"resolvent/event"
	"resolvent/netutil"
)

// interSendPause staggers sends across sockets to reduce burst collisions
// on a busy segment (spec.md §4.7).
const interSendPause = 5 * time.Millisecond

// listenResponseWindow is how long ResolveQuery/ResolveInverseQuery wait
// for answers after issuing a query (spec.md §4.7's DNS-SD helpers).
const listenResponseWindow = 3 * time.Second

// Option configures a Client at construction.
type Option func(*Client)

// WithCache attaches a shared passive cache, so a resolver and an mDNS
// client observe each other's answers.
func WithCache(c *cache.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithEvents attaches a shared event publisher.
func WithEvents(pub *event.Publisher) Option {
	return func(cl *Client) { cl.events = pub }
}

// Client is a multicast DNS listener/sender. The zero value is not
// usable; use New. Start/Stop/Dispose follow the teacher's
// sync.Once-guarded shutdown idiom (dns.Server.stopOnce).
type Client struct {
	cache  *cache.Cache
	events *event.Publisher
	dedup  *dedup.Suppressor

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup

	conn4   *net.UDPConn
	conn6   *net.UDPConn
	pconn4  *ipv4.PacketConn
	pconn6  *ipv6.PacketConn
	senders []*senderSocket

	unicastSupported bool

	refreshSub *event.Subscription
}

// New builds a Client. Call Start to bind sockets and begin listening.
func New(opts ...Option) *Client {
	c := &Client{
		dedup:            dedup.New(),
		stopChan:         make(chan struct{}),
		unicastSupported: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.events == nil {
		c.events = event.NewPublisher()
	}
	if c.cache == nil {
		c.cache = cache.New(c.events)
	}
	return c
}

// Start binds the IPv4 and IPv6 listeners, joins the mDNS multicast
// groups on every eligible interface, opens per-interface sender
// sockets, subscribes to cache refresh events, and begins the receive
// loops.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}

	conn4, err := listenReusable("udp4", fmt.Sprintf("0.0.0.0:%d", mdnsPort))
	if err != nil {
		if holder, ok := netutil.FindPortHolder(mdnsPort); ok {
			log.Printf("mdns: bind 0.0.0.0:%d failed, port already held by %s (pid %d): %v",
				mdnsPort, holder.ProcessName, holder.PID, err)
		}
		return fmt.Errorf("mdns: bind v4 listener: %w", err)
	}

	conn6, err := listenReusable("udp6", fmt.Sprintf("[::]:%d", mdnsPort))
	if err != nil {
		conn4.Close()
		if holder, ok := netutil.FindPortHolder(mdnsPort); ok {
			log.Printf("mdns: bind [::]:%d failed, port already held by %s (pid %d): %v",
				mdnsPort, holder.ProcessName, holder.PID, err)
		}
		return fmt.Errorf("mdns: bind v6 listener: %w", err)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		conn4.Close()
		conn6.Close()
		return fmt.Errorf("mdns: enumerating interfaces: %w", err)
	}
	eligible := netutil.EligibleMulticastInterfaces(ifaces)

	pconn4, _ := joinV4Groups(conn4, eligible)
	pconn6, _ := joinV6Groups(conn6, eligible)

	c.conn4 = conn4
	c.conn6 = conn6
	c.pconn4 = pconn4
	c.pconn6 = pconn6
	c.senders = openSenderSockets(eligible)
	c.started = true

	c.refreshSub = c.events.Subscribe(c.handleEvent)
	c.cache.StartCurator()

	c.wg.Add(2)
	go c.receiveLoop(c.conn4)
	go c.receiveLoop(c.conn6)

	log.Printf("mdns: listening on %d interface(s), %d sender socket(s)", len(eligible), len(c.senders))
	return nil
}

// Stop closes every socket and stops the receive loops, but leaves the
// cache and its contents intact.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
		c.cache.StopCurator()

		c.mu.Lock()
		if c.refreshSub != nil {
			c.refreshSub.Close()
		}
		if c.conn4 != nil {
			c.conn4.Close()
		}
		if c.conn6 != nil {
			c.conn6.Close()
		}
		for _, s := range c.senders {
			s.close()
		}
		c.mu.Unlock()

		c.wg.Wait()
		log.Printf("mdns: stopped")
	})
}

// Dispose stops the client and releases the cache, for callers that will
// not reuse this Client.
func (c *Client) Dispose() {
	c.Stop()
	c.mu.Lock()
	c.cache = nil
	c.mu.Unlock()
}

// UnicastSupported reports whether this platform can reliably honor the
// mDNS unicast-response bit; when false, SendQuery masks it off (spec.md
// §4.7).
func (c *Client) UnicastSupported() bool {
	return c.unicastSupported
}
