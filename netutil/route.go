package netutil

import (
	"bufio"
	"net"
	"os"
	"strconv"
	"strings"
)

// DefaultRouteInterface returns the name of the interface carrying the
// IPv4 default route, per spec.md §4.6's "first those [interfaces] with a
// default gateway."
//
// Grounded on the teacher's wireless.GetMainInterface
// (captivating/wireless/interface.go), which shells out to
// `ip route show default` and takes the token after "dev". This
// generalizes that to reading /proc/net/route directly: same
// "the OS already knows this, don't reimplement routing" idea, without an
// exec.Command dependency for what is otherwise a plain file read, in the
// same spirit as the teacher's own utils.findProcessesFromProcNet reading
// /proc/net/tcp directly rather than shelling out to netstat.
func DefaultRouteInterface() (string, bool) {
	f, err := os.Open("/proc/net/route")
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Scan() // header line
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 8 {
			continue
		}
		iface, destHex, flagsHex := fields[0], fields[1], fields[3]
		dest, err := strconv.ParseUint(destHex, 16, 32)
		if err != nil {
			continue
		}
		flags, err := strconv.ParseUint(flagsHex, 16, 16)
		if err != nil {
			continue
		}
		const rtfUp = 0x1
		const rtfGateway = 0x2
		if dest == 0 && flags&(rtfUp|rtfGateway) == (rtfUp|rtfGateway) {
			return iface, true
		}
	}
	return "", false
}

// GatewayInterfaceNames orders net.Interfaces() so that interfaces
// carrying a default gateway sort first, per spec.md §4.6. Loopback
// interfaces and interfaces that are not up are skipped entirely; no other
// filtering is applied.
func GatewayInterfaceNames(ifaces []net.Interface) []string {
	gateway, hasGateway := DefaultRouteInterface()

	var withGateway, rest []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if hasGateway && iface.Name == gateway {
			withGateway = append(withGateway, iface.Name)
		} else {
			rest = append(rest, iface.Name)
		}
	}
	return append(withGateway, rest...)
}

// EligibleMulticastInterfaces filters ifaces to those spec.md §4.7 says
// the multicast client should join on: up, multicast-capable, and not a
// loopback or point-to-point (tunnel) interface. net.Interface carries no
// receive-only flag, so receive-only interfaces are not filtered out.
func EligibleMulticastInterfaces(ifaces []net.Interface) []net.Interface {
	var out []net.Interface
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if iface.Flags&net.FlagPointToPoint != 0 {
			continue // treat point-to-point/tunnel interfaces as ineligible
		}
		out = append(out, iface)
	}
	return out
}

// LinkLocalAddresses returns iface's IPv4 addresses (of any scope) and its
// link-local unicast IPv6 addresses, the set the multicast client binds
// sender sockets to.
func LinkLocalAddresses(iface net.Interface) (v4, v6 []net.IP) {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, nil
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP
		if ip4 := ip.To4(); ip4 != nil {
			v4 = append(v4, ip4)
		} else if ip.To16() != nil && ip.IsLinkLocalUnicast() {
			v6 = append(v6, ip)
		}
	}
	return v4, v6
}

// belongsToNetwork is a small helper used by the private-leak guard to
// test containment without repeating net.ParseCIDR error handling at
// every call site.
func belongsToNetwork(ip net.IP, cidr string) bool {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return false
	}
	return network.Contains(ip)
}

// IsPrivate reports whether ip is within a private, loopback, link-local,
// or unique-local range, used by the resolver's leak guard (spec.md
// §4.6). This predates Go's own net.IP.IsPrivate on older toolchains and
// additionally treats loopback and link-local as private for the guard's
// purposes, which net.IP.IsPrivate does not.
func IsPrivate(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return true
	}
	if ip4 := ip.To4(); ip4 != nil {
		for _, cidr := range []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
			if belongsToNetwork(ip4, cidr) {
				return true
			}
		}
		return false
	}
	// IPv6 unique-local (fc00::/7) and site-local (deprecated, fec0::/10).
	if len(ip) == net.IPv6len {
		first := ip[0]
		if first&0xFE == 0xFC {
			return true
		}
		if first == 0xFE && ip[1]&0xC0 == 0xC0 {
			return true
		}
	}
	return false
}

// ScopeID reads a v6 interface's zone as an integer for use in multicast
// group joins that need a numeric scope.
func ScopeID(iface net.Interface) uint32 {
	return uint32(iface.Index)
}
