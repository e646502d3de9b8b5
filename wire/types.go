// Package wire implements the DNS wire format: label compression, typed
// resource records, and the 12-byte message header plus its four sections.
// It parses and emits RFC 1035 messages, extended with the mDNS cache-flush
// and unicast-response bits from RFC 6762 and the SVCB/HTTPS record shape.
package wire

import (
	"fmt"
	"net"
	"time"
)

// RRType is a DNS resource record type.
type RRType uint16

// Record types this codec names. All of them except MX, OPT, and ANY are
// parsed natively; those three, and any type not listed, round-trip as
// OpaqueData.
const (
	TypeA     RRType = 1
	TypeNS    RRType = 2
	TypeCNAME RRType = 5
	TypeSOA   RRType = 6
	TypePTR   RRType = 12
	TypeMX    RRType = 15
	TypeTXT   RRType = 16
	TypeAAAA  RRType = 28
	TypeSRV   RRType = 33
	TypeOPT   RRType = 41
	TypeDNAME RRType = 39
	TypeSVCB  RRType = 64
	TypeHTTPS RRType = 65
	TypeANY   RRType = 255
)

func (t RRType) String() string {
	switch t {
	case TypeA:
		return "A"
	case TypeNS:
		return "NS"
	case TypeCNAME:
		return "CNAME"
	case TypeSOA:
		return "SOA"
	case TypePTR:
		return "PTR"
	case TypeMX:
		return "MX"
	case TypeTXT:
		return "TXT"
	case TypeAAAA:
		return "AAAA"
	case TypeSRV:
		return "SRV"
	case TypeOPT:
		return "OPT"
	case TypeDNAME:
		return "DNAME"
	case TypeSVCB:
		return "SVCB"
	case TypeHTTPS:
		return "HTTPS"
	case TypeANY:
		return "ANY"
	default:
		return fmt.Sprintf("TYPE%d", uint16(t))
	}
}

// Class is the DNS class field. In mDNS responses the top bit is
// repurposed as the cache-flush bit and is stripped before storing here.
type Class uint16

const (
	ClassIN  Class = 1
	ClassANY Class = 255

	// classCacheFlushBit is the top bit of the class field on mDNS
	// responses (RFC 6762 §10.2) and, on mDNS questions, the
	// unicast-response bit (RFC 6762 §5.4).
	classCacheFlushBit Class = 0x8000
)

// Labels is an ordered sequence of DNS labels, root-first is not implied:
// ["www", "example", "com"] is www.example.com. The root name is the empty
// slice. Comparison is case-insensitive; labels are stored exactly as
// decoded, no case normalization.
type Labels []string

// Equal compares two label sequences case-insensitively.
func (l Labels) Equal(other Labels) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if !equalFoldASCII(l[i], other[i]) {
			return false
		}
	}
	return true
}

// String renders labels dot-joined, matching zone-file presentation.
func (l Labels) String() string {
	if len(l) == 0 {
		return "."
	}
	out := ""
	for i, label := range l {
		if i > 0 {
			out += "."
		}
		out += label
	}
	return out
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func lowerASCII(s string) string {
	out := []byte(s)
	for i, c := range out {
		if 'A' <= c && c <= 'Z' {
			out[i] = c + 'a' - 'A'
		}
	}
	return string(out)
}

// LowerKey returns a cache-bucket key for owner name: lowercased and dot
// joined, used only as a map key, never round-tripped back to labels.
func (l Labels) LowerKey() string {
	return lowerASCII(l.String())
}

// Header is the common prefix of every resource record: owner, type,
// class, TTL, and the bookkeeping fields the passive cache needs.
type Header struct {
	Owner       Labels
	Type        RRType
	Class       Class
	CacheFlush  bool // mDNS cache-flush bit, metadata only, excluded from Equal
	TTL         uint32
	Expiry      time.Time // absolute instant, fixed at parse time
	Created     time.Time
	Stale       bool
}

// RData is the typed payload of a resource record. The type set is closed:
// implementations live in this package only, dispatch is by type switch,
// never by reflection.
type RData interface {
	rrType() RRType
	equalData(other RData) bool
}

// Record is a complete resource record: header plus typed payload.
type Record struct {
	Header
	Data RData
}

// Equal implements spec equality: (type, owner case-insensitive, payload).
// TTL, cache-flush, expiry, and staleness are metadata and excluded.
func (r Record) Equal(other Record) bool {
	if r.Type != other.Type {
		return false
	}
	if !r.Owner.Equal(other.Owner) {
		return false
	}
	if r.Data == nil || other.Data == nil {
		return r.Data == other.Data
	}
	return r.Data.equalData(other.Data)
}

// Fresh reports whether the record has not yet passed its expiry instant.
func (r Record) Fresh(now time.Time) bool {
	return now.Before(r.Expiry) || now.Equal(r.Expiry)
}

// RemainingFraction returns (expiry-now)/(expiry-created), used by the
// curator and by known-answer suppression. It returns 0 once now reaches
// Expiry, and also when Expiry is not after Created (for example a record
// built in memory with both left at their zero value).
func (r Record) RemainingFraction(now time.Time) float64 {
	total := r.Expiry.Sub(r.Created)
	if total <= 0 {
		return 0
	}
	remaining := r.Expiry.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return float64(remaining) / float64(total)
}

// AData is an IPv4 address record.
type AData struct{ Addr [4]byte }

func (AData) rrType() RRType { return TypeA }
func (d AData) equalData(o RData) bool {
	other, ok := o.(AData)
	return ok && d.Addr == other.Addr
}

// IP returns the address as a net.IP.
func (d AData) IP() net.IP { return net.IP(d.Addr[:]) }

// AAAAData is an IPv6 address record.
type AAAAData struct{ Addr [16]byte }

func (AAAAData) rrType() RRType { return TypeAAAA }
func (d AAAAData) equalData(o RData) bool {
	other, ok := o.(AAAAData)
	return ok && d.Addr == other.Addr
}

// IP returns the address as a net.IP.
func (d AAAAData) IP() net.IP { return net.IP(d.Addr[:]) }

// NSData points to an authoritative name server.
type NSData struct{ Name Labels }

func (NSData) rrType() RRType { return TypeNS }
func (d NSData) equalData(o RData) bool {
	other, ok := o.(NSData)
	return ok && d.Name.Equal(other.Name)
}

// CNAMEData is a canonical-name alias.
type CNAMEData struct{ Name Labels }

func (CNAMEData) rrType() RRType { return TypeCNAME }
func (d CNAMEData) equalData(o RData) bool {
	other, ok := o.(CNAMEData)
	return ok && d.Name.Equal(other.Name)
}

// DNAMEData redirects an entire subtree to another name (RFC 6672).
type DNAMEData struct{ Name Labels }

func (DNAMEData) rrType() RRType { return TypeDNAME }
func (d DNAMEData) equalData(o RData) bool {
	other, ok := o.(DNAMEData)
	return ok && d.Name.Equal(other.Name)
}

// PTRData maps an address (in-addr.arpa/ip6.arpa owner) to a name.
type PTRData struct{ Name Labels }

func (PTRData) rrType() RRType { return TypePTR }
func (d PTRData) equalData(o RData) bool {
	other, ok := o.(PTRData)
	return ok && d.Name.Equal(other.Name)
}

// SOAData is the start-of-authority record.
type SOAData struct {
	MName   Labels
	RName   Labels
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

func (SOAData) rrType() RRType { return TypeSOA }
func (d SOAData) equalData(o RData) bool {
	other, ok := o.(SOAData)
	return ok && d.MName.Equal(other.MName) && d.RName.Equal(other.RName) &&
		d.Serial == other.Serial && d.Refresh == other.Refresh &&
		d.Retry == other.Retry && d.Expire == other.Expire && d.Minimum == other.Minimum
}

// TXTData is an ordered list of length-prefixed character strings.
type TXTData struct{ Strings [][]byte }

func (TXTData) rrType() RRType { return TypeTXT }
func (d TXTData) equalData(o RData) bool {
	other, ok := o.(TXTData)
	if !ok || len(d.Strings) != len(other.Strings) {
		return false
	}
	for i := range d.Strings {
		if string(d.Strings[i]) != string(other.Strings[i]) {
			return false
		}
	}
	return true
}

// SRVData locates a service instance (RFC 2782).
type SRVData struct {
	Priority uint16
	Weight   uint16
	Port     uint16
	Target   Labels
}

func (SRVData) rrType() RRType { return TypeSRV }
func (d SRVData) equalData(o RData) bool {
	other, ok := o.(SRVData)
	return ok && d.Priority == other.Priority && d.Weight == other.Weight &&
		d.Port == other.Port && d.Target.Equal(other.Target)
}

// SVCBKey is a well-known SVCB/HTTPS parameter key (RFC 9460 §14.3).
type SVCBKey uint16

const (
	SVCBKeyMandatory     SVCBKey = 0
	SVCBKeyALPN          SVCBKey = 1
	SVCBKeyNoDefaultALPN SVCBKey = 2
	SVCBKeyPort          SVCBKey = 3
	SVCBKeyIPv4Hint      SVCBKey = 4
	SVCBKeyECH           SVCBKey = 5
	SVCBKeyIPv6Hint      SVCBKey = 6
	SVCBKeyDoHPath       SVCBKey = 7
	SVCBKeyOHTTP         SVCBKey = 8
	SVCBKeyOpaque255     SVCBKey = 255
)

// SVCBParam is one (key, value) pair from an SVCB/HTTPS record, in the
// order they appeared on the wire.
type SVCBParam struct {
	Key   SVCBKey
	Value []byte
}

// SVCBData is the shared payload of SVCB and HTTPS records (RFC 9460);
// the two are distinguished only by RRType.
type SVCBData struct {
	Type     RRType // TypeSVCB or TypeHTTPS
	Priority uint16
	Target   Labels
	Params   []SVCBParam
}

func (d SVCBData) rrType() RRType { return d.Type }
func (d SVCBData) equalData(o RData) bool {
	other, ok := o.(SVCBData)
	if !ok || d.Type != other.Type || d.Priority != other.Priority || !d.Target.Equal(other.Target) {
		return false
	}
	if len(d.Params) != len(other.Params) {
		return false
	}
	for i := range d.Params {
		if d.Params[i].Key != other.Params[i].Key || string(d.Params[i].Value) != string(other.Params[i].Value) {
			return false
		}
	}
	return true
}

// OpaqueData carries the raw RDATA of any record type this codec does not
// parse natively.
type OpaqueData struct {
	Type RRType
	Raw  []byte
}

func (d OpaqueData) rrType() RRType { return d.Type }
func (d OpaqueData) equalData(o RData) bool {
	other, ok := o.(OpaqueData)
	return ok && d.Type == other.Type && string(d.Raw) == string(other.Raw)
}
