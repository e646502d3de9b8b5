package dedup

import (
	"net"
	"testing"
	"time"

	"resolvent/wire"
)

func testMessage(owner wire.Labels) wire.Message {
	return wire.Message{
		ID:        0,
		Flags:     wire.Flags{Response: true},
		Questions: []wire.Question{{Owner: owner, Type: wire.TypeA, Class: wire.ClassIN}},
		Answers: []wire.Record{
			{
				Header: wire.Header{Owner: owner, Type: wire.TypeA, Class: wire.ClassIN, TTL: 120},
				Data:   wire.AData{Addr: [4]byte{10, 0, 0, 1}},
			},
		},
	}
}

func TestCachedSuppressesRepeatFromSameSender(t *testing.T) {
	s := New()
	owner := wire.Labels{"host", "local"}
	sender := &net.UDPAddr{IP: net.ParseIP("192.168.1.5"), Port: 5353}

	if s.Cached(testMessage(owner), sender) {
		t.Fatal("first sighting reported as cached")
	}
	if !s.Cached(testMessage(owner), sender) {
		t.Fatal("identical (message, sender) pair not suppressed on second sighting")
	}
}

func TestCachedDistinguishesSender(t *testing.T) {
	s := New()
	owner := wire.Labels{"host", "local"}
	a := &net.UDPAddr{IP: net.ParseIP("192.168.1.5"), Port: 5353}
	b := &net.UDPAddr{IP: net.ParseIP("192.168.1.6"), Port: 5353}

	if s.Cached(testMessage(owner), a) {
		t.Fatal("first sighting from a reported as cached")
	}
	if s.Cached(testMessage(owner), b) {
		t.Fatal("same message from a different sender incorrectly suppressed")
	}
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	fakeNow := time.Now()
	s := New()
	s.now = func() time.Time { return fakeNow }

	owner := wire.Labels{"host", "local"}
	sender := &net.UDPAddr{IP: net.ParseIP("192.168.1.5"), Port: 5353}

	s.Cached(testMessage(owner), sender)
	fakeNow = fakeNow.Add(6 * time.Second)

	if s.Cached(testMessage(owner), sender) {
		t.Fatal("entry should have expired after the 5-second TTL")
	}
}
