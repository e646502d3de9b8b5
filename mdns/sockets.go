package mdns

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"

	"resolvent/netutil"
)

// mdnsPort is the well-known mDNS port (RFC 6762 §3).
const mdnsPort = 5353

var (
	groupV4 = net.IPv4(224, 0, 0, 251)
	groupV6 = net.ParseIP("ff02::fb")
)

// listenReusable opens a UDP listener on address with SO_REUSEADDR and
// SO_REUSEPORT set before bind, so this process can coexist with a
// system mDNS responder (avahi, mDNSResponder) already holding :5353.
//
// Grounded on the domain-stack entry for golang.org/x/sys/unix: the
// teacher's dns.Server binds :53 exclusively (a captive portal owns the
// whole box), so there's no teacher method to adapt here — this mirrors
// the pack's own reuse-before-bind idiom for shared multicast ports.
func listenReusable(network, address string) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			err := c.Control(func(fd uintptr) {
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
					ctrlErr = err
					return
				}
				if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
					ctrlErr = err
					return
				}
			})
			if err != nil {
				return err
			}
			return ctrlErr
		},
	}

	conn, err := lc.ListenPacket(context.Background(), network, address)
	if err != nil {
		return nil, err
	}
	return conn.(*net.UDPConn), nil
}

// joinV4Groups joins conn to the v4 mDNS group on every interface capable
// of IPv4 multicast, disabling loopback per spec.md §4.7.
func joinV4Groups(conn *net.UDPConn, ifaces []net.Interface) (*ipv4.PacketConn, []net.Interface) {
	pconn := ipv4.NewPacketConn(conn)
	_ = pconn.SetMulticastLoopback(false)

	var joined []net.Interface
	for _, iface := range ifaces {
		v4, _ := netutil.LinkLocalAddresses(iface)
		if len(v4) == 0 {
			continue
		}
		if err := pconn.JoinGroup(&iface, &net.UDPAddr{IP: groupV4}); err != nil {
			continue
		}
		joined = append(joined, iface)
	}
	return pconn, joined
}

// joinV6Groups is joinV4Groups' IPv6 counterpart, using the interface's
// scope id for the link-local multicast group.
func joinV6Groups(conn *net.UDPConn, ifaces []net.Interface) (*ipv6.PacketConn, []net.Interface) {
	pconn := ipv6.NewPacketConn(conn)
	_ = pconn.SetMulticastLoopback(false)

	var joined []net.Interface
	for _, iface := range ifaces {
		_, v6 := netutil.LinkLocalAddresses(iface)
		if len(v6) == 0 {
			continue
		}
		addr := &net.UDPAddr{IP: groupV6, Zone: iface.Name}
		if err := pconn.JoinGroup(&iface, addr); err != nil {
			continue
		}
		joined = append(joined, iface)
	}
	return pconn, joined
}

// senderSocket is one interface-bound UDP socket used only to transmit,
// per spec.md §4.7's "a sender socket is bound to that address and
// port 5353" for each address netutil.LinkLocalAddresses returns on each
// eligible interface.
type senderSocket struct {
	conn  *net.UDPConn
	group *net.UDPAddr
	v4    bool
}

func openSenderSockets(ifaces []net.Interface) []*senderSocket {
	var out []*senderSocket
	for _, iface := range ifaces {
		v4, v6 := netutil.LinkLocalAddresses(iface)
		for _, addr := range v4 {
			conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: addr, Port: mdnsPort})
			if err != nil {
				continue
			}
			out = append(out, &senderSocket{conn: conn, group: &net.UDPAddr{IP: groupV4, Port: mdnsPort}, v4: true})
		}
		for _, addr := range v6 {
			conn, err := net.ListenUDP("udp6", &net.UDPAddr{IP: addr, Port: mdnsPort, Zone: iface.Name})
			if err != nil {
				continue
			}
			out = append(out, &senderSocket{
				conn:  conn,
				group: &net.UDPAddr{IP: groupV6, Port: mdnsPort, Zone: iface.Name},
			})
		}
	}
	return out
}

func (s *senderSocket) close() {
	s.conn.Close()
}
