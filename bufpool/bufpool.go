// Package bufpool holds the fixed-size byte buffers reused across DNS
// wire reads and writes instead of allocated fresh on every call: 512
// bytes for a unicast UDP query and its response, 4096 for an outgoing
// multicast datagram, and 8972 for a multicast response (spec.md §4.3,
// §4.7).
package bufpool

import "sync"

var (
	pool512  = sync.Pool{New: func() any { return make([]byte, 512) }}
	pool4096 = sync.Pool{New: func() any { return make([]byte, 4096) }}
	pool8972 = sync.Pool{New: func() any { return make([]byte, 8972) }}
)

// Get512 returns a full-length 512-byte buffer from the pool.
func Get512() []byte { return pool512.Get().([]byte) }

// Put512 returns b to the pool. b must have come from Get512.
func Put512(b []byte) {
	if cap(b) != 512 {
		return
	}
	pool512.Put(b[:512])
}

// Get4096 returns a full-length 4096-byte buffer from the pool.
func Get4096() []byte { return pool4096.Get().([]byte) }

// Put4096 returns b to the pool. b must have come from Get4096.
func Put4096(b []byte) {
	if cap(b) != 4096 {
		return
	}
	pool4096.Put(b[:4096])
}

// Get8972 returns a full-length 8972-byte buffer from the pool.
func Get8972() []byte { return pool8972.Get().([]byte) }

// Put8972 returns b to the pool. b must have come from Get8972.
func Put8972(b []byte) {
	if cap(b) != 8972 {
		return
	}
	pool8972.Put(b[:8972])
}
