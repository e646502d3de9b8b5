package mdns

import (
	"net"
	"time"

	"resolvent/bufpool"
	"resolvent/cache"
	"resolvent/event"
	"resolvent/wire"
)

// receiveBufferV4 and receiveBufferV6 size the read buffer for multicast
// (spec.md §4.3): larger than the 512-byte unicast default since mDNS
// responses often carry many records.
const (
	receiveBufferV4 = 8972
	receiveBufferV6 = 8952
)

// receiveLoop is the per-listener receive task from spec.md §4.7: it
// validates the source port, parses the datagram, and either stores a
// response or surfaces a query event. Parser errors are swallowed;
// socket errors emit an error event.
func (c *Client) receiveLoop(conn *net.UDPConn) {
	defer c.wg.Done()

	bufSize := receiveBufferV4
	if conn == c.conn6 {
		bufSize = receiveBufferV6
	}
	full := bufpool.Get8972()
	defer bufpool.Put8972(full)
	buf := full[:bufSize]

	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-c.stopChan:
				return
			default:
				c.events.Publish(event.ErrorEvent{Err: err, Remote: addr})
				return
			}
		}

		if addr.Port != mdnsPort {
			continue
		}

		msg, err := wire.ParseMessage(buf[:n], time.Now())
		if err != nil {
			continue
		}

		if c.dedup.Cached(msg, addr) {
			continue
		}

		c.handleMessage(msg, addr)
	}
}

func (c *Client) handleMessage(msg wire.Message, addr net.Addr) {
	if msg.Flags.Response {
		if msg.Flags.RCode != wire.RCodeNoError {
			return
		}
		if len(msg.Answers) == 0 && len(msg.Additionals) == 0 {
			return
		}
		added, updated := c.storeSections(msg)
		if len(added) == 0 && len(updated) == 0 {
			return
		}
		m := msg
		c.events.Publish(event.AnswerEvent{Message: &m, Remote: addr, Added: added, Updated: updated})
		return
	}

	if len(msg.Questions) > 0 {
		m := msg
		c.events.Publish(event.QueryEvent{Remote: addr, Message: &m})
	}
}

func (c *Client) storeSections(msg wire.Message) (added, updated []wire.Record) {
	for _, section := range [][]wire.Record{msg.Answers, msg.Additionals} {
		for _, rec := range section {
			switch c.cache.Store(rec) {
			case cache.NewData:
				added = append(added, rec)
			case cache.Updated:
				updated = append(updated, rec)
			}
		}
	}
	return added, updated
}

// sendMessage serializes msg with a zero transaction id and RD/RA clear
// (spec.md §4.7) and writes it out every sender socket, each addressed to
// its own address family's group, with interSendPause between sends.
func (c *Client) sendMessage(msg wire.Message) error {
	msg.ID = 0
	msg.Flags.RecursionDesired = false
	msg.Flags.RecursionAvailable = false

	scratch := bufpool.Get4096()
	defer bufpool.Put4096(scratch)
	payload, err := wire.EmitMessageInto(scratch, msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	senders := append([]*senderSocket(nil), c.senders...)
	c.mu.Unlock()

	for i, s := range senders {
		if i > 0 {
			time.Sleep(interSendPause)
		}
		if _, err := s.conn.WriteToUDP(payload, s.group); err != nil {
			c.events.Publish(event.ErrorEvent{Err: err})
		}
	}
	return nil
}
