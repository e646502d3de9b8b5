package resolver

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net"
	"time"

	"resolvent/bufpool"
	"resolvent/hints"
	"resolvent/wire"
)

// udpTimeout bounds a single UDP round trip per spec.md §4.6.
const udpTimeout = 3 * time.Second

// sendUDP opens one socket for this attempt, sends q to ns, and waits up
// to udpTimeout for a reply. One socket per call matches spec.md §4.6's
// "open one UDP socket for this call", scoped down from the teacher's
// single long-lived *net.UDPConn in dns.Server.Start (that server binds
// once for its whole lifetime because it's answering, not asking).
func sendUDP(ctx context.Context, ns hints.Nameserver, q wire.Message) (wire.Message, error) {
	addr := &net.UDPAddr{IP: ns.Addr, Port: ns.EffectivePort()}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return wire.Message{}, &TransportFailureError{Nameserver: addr.String(), Err: err}
	}
	defer conn.Close()

	deadline := time.Now().Add(udpTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		log.Printf("resolver: failed to set UDP deadline for %s: %v", addr, err)
	}

	sendBuf := bufpool.Get512()
	defer bufpool.Put512(sendBuf)
	payload, err := wire.EmitMessageInto(sendBuf, q)
	if err != nil {
		return wire.Message{}, fmt.Errorf("resolver: encoding query for %s: %w", addr, err)
	}
	if _, err := conn.Write(payload); err != nil {
		return wire.Message{}, &TransportFailureError{Nameserver: addr.String(), Err: err}
	}

	recvBuf := bufpool.Get512()
	defer bufpool.Put512(recvBuf)
	n, err := conn.Read(recvBuf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return wire.Message{}, &TimeoutError{Nameserver: addr.String()}
		}
		return wire.Message{}, &TransportFailureError{Nameserver: addr.String(), Err: err}
	}

	reply, err := wire.ParseMessage(recvBuf[:n], time.Now())
	if err != nil {
		return wire.Message{}, &TransportFailureError{Nameserver: addr.String(), Err: err}
	}
	return reply, nil
}

// newTransactionID picks a random 16-bit id for a unicast query. mDNS
// queries use id 0 instead (spec.md §4.7); this helper is unicast-only.
func newTransactionID() uint16 {
	return uint16(rand.Intn(1 << 16))
}

func buildQuery(id uint16, q wire.Question) wire.Message {
	return wire.Message{
		ID: id,
		Flags: wire.Flags{
			RecursionDesired: true,
		},
		Questions: []wire.Question{q},
	}
}

// classifyRCode reports whether reply's RCODE should end the attempt (a
// definitive name-error answer surfaced to the caller), keep trying the
// next nameserver, or is a success worth inspecting further.
func classifyRCode(reply wire.Message) (nameError, retry bool) {
	switch reply.Flags.RCode {
	case wire.RCodeNoError:
		return false, false
	case wire.RCodeNXDomain:
		return true, false
	default:
		return false, true
	}
}
