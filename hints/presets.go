package hints

import "net"

// DoHSupport is a tri-state flag for whether a nameserver is known to
// speak DNS-over-HTTPS.
type DoHSupport int

const (
	DoHUnknown DoHSupport = iota
	DoHYes
	DoHNo
)

// Nameserver is a preset or discovered upstream resolver.
type Nameserver struct {
	Addr   net.IP
	Port   int // 0 means the standard port 53; tests override this to reach an ephemeral fake server
	DoH    DoHSupport
	Suffix string // DNS search suffix, if any
}

// EffectivePort returns Port, or 53 if it was left at its zero value.
func (n Nameserver) EffectivePort() int {
	if n.Port == 0 {
		return 53
	}
	return n.Port
}

// Cloudflare returns the Cloudflare public resolver preset (1.1.1.1,
// 1.0.0.1), DoH-capable.
func Cloudflare() []Nameserver {
	return []Nameserver{
		{Addr: net.ParseIP("1.1.1.1"), DoH: DoHYes},
		{Addr: net.ParseIP("1.0.0.1"), DoH: DoHYes},
	}
}

// Google returns the Google public resolver preset (8.8.8.8, 8.8.4.4),
// DoH-capable.
func Google() []Nameserver {
	return []Nameserver{
		{Addr: net.ParseIP("8.8.8.8"), DoH: DoHYes},
		{Addr: net.ParseIP("8.8.4.4"), DoH: DoHYes},
	}
}

// rootServers is the canonical IANA root server IPv4 literal set (2024
// assignments), embedded so resolvers can seed iterative resolution
// without a network round trip or a bundled hints file.
var rootServers = []string{
	"198.41.0.4", "199.9.14.201", "192.33.4.12", "199.7.91.13",
	"192.203.230.10", "192.5.5.241", "192.112.36.4", "198.97.190.53",
	"192.36.148.17", "192.58.128.30", "193.0.14.129", "199.7.83.42",
	"202.12.27.33",
}

// RootHints returns the built-in root server preset, DoH support unknown.
func RootHints() []Nameserver {
	out := make([]Nameserver, 0, len(rootServers))
	for _, addr := range rootServers {
		out = append(out, Nameserver{Addr: net.ParseIP(addr), DoH: DoHUnknown})
	}
	return out
}
