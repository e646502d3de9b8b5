package resolver

import (
	"net"
	"os"
	"sort"
	"strings"

	"resolvent/hints"
	"resolvent/netutil"
)

// discoverNameservers reads the host's operational resolver configuration
// from /etc/resolv.conf, the portable place every platform this module
// targets deposits it once DHCP or a network manager has run, then reorders
// the result per spec.md §4.6: nameservers reachable through a
// gateway-bearing interface sort before ones that aren't.
//
// Grounded on the teacher's own preference for reading OS-maintained state
// files directly rather than shelling out to a tool that only reformats
// them (utils.findProcessesFromProcNet reads /proc/net/tcp instead of
// parsing `netstat` output; wireless.GetMainInterface is the one place the
// teacher shells out, which netutil.DefaultRouteInterface replaces here
// with a direct /proc/net/route read).
func discoverNameservers() ([]hints.Nameserver, string) {
	out, suffix := parseResolvConf("/etc/resolv.conf")
	if len(out) == 0 {
		return nil, ""
	}

	if ifaces, err := net.Interfaces(); err == nil {
		preferGatewayReachable(out, ifaces)
	}

	return out, suffix
}

func parseResolvConf(path string) ([]hints.Nameserver, string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ""
	}

	var out []hints.Nameserver
	var suffix string
	seen := make(map[string]struct{})

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "nameserver":
			addr := fields[1]
			if _, dup := seen[addr]; dup {
				continue
			}
			ip := net.ParseIP(addr)
			if ip == nil {
				continue
			}
			seen[addr] = struct{}{}
			out = append(out, hints.Nameserver{Addr: ip, DoH: hints.DoHUnknown})
		case "search", "domain":
			if suffix == "" {
				suffix = fields[1]
			}
		}
	}

	for i := range out {
		out[i].Suffix = suffix
	}
	return out, suffix
}

// preferGatewayReachable stable-sorts ns in place so an address that falls
// within a subnet owned by a gateway-bearing interface sorts before one
// that doesn't, per spec.md §4.6's "first those with a default gateway,
// then all others"; loopback and down interfaces take no part in the
// ranking. /etc/resolv.conf is the only source of nameserver addresses
// this codec has on Linux — there is no per-adapter DNS server list the way
// Windows' interface enumeration exposes one — so this reuses the
// platform's interface enumeration (netutil.GatewayInterfaceNames, which in
// turn consults netutil.DefaultRouteInterface) to rank the addresses
// already found rather than to discover new ones.
func preferGatewayReachable(ns []hints.Nameserver, ifaces []net.Interface) {
	order := netutil.GatewayInterfaceNames(ifaces)
	if len(order) == 0 {
		return
	}

	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	byName := make(map[string]net.Interface, len(ifaces))
	for _, iface := range ifaces {
		byName[iface.Name] = iface
	}

	priority := func(addr net.IP) int {
		best := len(order)
		for _, name := range order {
			iface, ok := byName[name]
			if !ok {
				continue
			}
			addrs, err := iface.Addrs()
			if err != nil {
				continue
			}
			for _, a := range addrs {
				ipnet, ok := a.(*net.IPNet)
				if ok && ipnet.Contains(addr) && rank[name] < best {
					best = rank[name]
				}
			}
		}
		return best
	}

	sort.SliceStable(ns, func(i, j int) bool {
		return priority(ns[i].Addr) < priority(ns[j].Addr)
	})
}
