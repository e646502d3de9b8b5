package wire

import (
	"encoding/binary"
	"time"
)

// Opcode is the DNS message opcode (header flags byte 1, bits 3-6).
type Opcode uint8

const (
	OpcodeQuery  Opcode = 0
	OpcodeIQuery Opcode = 1
	OpcodeStatus Opcode = 2
	OpcodeNotify Opcode = 4
	OpcodeUpdate Opcode = 5
	OpcodeDSO    Opcode = 6
)

// RCode is the DNS response code (header flags byte 2, bits 0-3).
type RCode uint8

const (
	RCodeNoError   RCode = 0
	RCodeFormErr   RCode = 1
	RCodeServFail  RCode = 2
	RCodeNXDomain  RCode = 3
	RCodeNotImp    RCode = 4
	RCodeRefused   RCode = 5
	RCodeYXDomain  RCode = 6
	RCodeYXRRSet   RCode = 7
	RCodeNXRRSet   RCode = 8
	RCodeNotAuth   RCode = 9
	RCodeNotZone   RCode = 10
	RCodeDSOTypeNI RCode = 11
)

// Flags carries the boolean and enum fields packed into the header's two
// flag bytes.
type Flags struct {
	Response           bool
	Opcode             Opcode
	Authoritative      bool
	Truncated          bool
	RecursionDesired   bool
	RecursionAvailable bool
	AuthenticData      bool
	CheckingDisabled   bool
	RCode              RCode
}

// Question is one entry in a message's question section. UnicastResponse
// reuses the top bit of Class and is only meaningful in mDNS.
type Question struct {
	Owner           Labels
	Type            RRType
	Class           Class
	UnicastResponse bool
}

// Message is a full DNS message: header plus the four ordered sections.
type Message struct {
	ID          uint16
	Flags       Flags
	Questions   []Question
	Answers     []Record
	Authorities []Record
	Additionals []Record
}

const headerSize = 12

// ParseMessage decodes buf as a complete DNS message. now fixes the
// absolute expiry of every record it contains. A set Truncated bit is
// reported as TruncatedError; per spec.md §4.3 this codec discards
// truncated responses rather than retrying over TCP.
func ParseMessage(buf []byte, now time.Time) (Message, error) {
	if len(buf) < headerSize {
		return Message{}, &MalformedWireFormatError{Reason: "message shorter than header", Offset: 0}
	}

	var m Message
	m.ID = binary.BigEndian.Uint16(buf[0:])
	flagBits := binary.BigEndian.Uint16(buf[2:])
	m.Flags = decodeFlags(flagBits)

	qdCount := binary.BigEndian.Uint16(buf[4:])
	anCount := binary.BigEndian.Uint16(buf[6:])
	nsCount := binary.BigEndian.Uint16(buf[8:])
	arCount := binary.BigEndian.Uint16(buf[10:])

	if m.Flags.Truncated {
		return Message{}, TruncatedError{}
	}

	offset := headerSize
	var err error

	m.Questions, offset, err = parseQuestions(buf, offset, int(qdCount))
	if err != nil {
		return Message{}, err
	}
	m.Answers, offset, err = parseRecords(buf, offset, int(anCount), now)
	if err != nil {
		return Message{}, err
	}
	m.Authorities, offset, err = parseRecords(buf, offset, int(nsCount), now)
	if err != nil {
		return Message{}, err
	}
	m.Additionals, _, err = parseRecords(buf, offset, int(arCount), now)
	if err != nil {
		return Message{}, err
	}

	return m, nil
}

func decodeFlags(bits uint16) Flags {
	return Flags{
		Response:           bits&0x8000 != 0,
		Opcode:             Opcode((bits >> 11) & 0x0F),
		Authoritative:      bits&0x0400 != 0,
		Truncated:          bits&0x0200 != 0,
		RecursionDesired:   bits&0x0100 != 0,
		RecursionAvailable: bits&0x0080 != 0,
		AuthenticData:      bits&0x0020 != 0,
		CheckingDisabled:   bits&0x0010 != 0,
		RCode:              RCode(bits & 0x000F),
	}
}

func encodeFlags(f Flags) uint16 {
	var bits uint16
	if f.Response {
		bits |= 0x8000
	}
	bits |= uint16(f.Opcode&0x0F) << 11
	if f.Authoritative {
		bits |= 0x0400
	}
	if f.Truncated {
		bits |= 0x0200
	}
	if f.RecursionDesired {
		bits |= 0x0100
	}
	if f.RecursionAvailable {
		bits |= 0x0080
	}
	if f.AuthenticData {
		bits |= 0x0020
	}
	if f.CheckingDisabled {
		bits |= 0x0010
	}
	bits |= uint16(f.RCode & 0x0F)
	return bits
}

func parseQuestions(buf []byte, offset, count int) ([]Question, int, error) {
	if count == 0 {
		return nil, offset, nil
	}
	questions := make([]Question, 0, count)
	for i := 0; i < count; i++ {
		owner, next, err := DecodeName(buf, offset)
		if err != nil {
			return nil, 0, err
		}
		offset = next
		if offset+4 > len(buf) {
			return nil, 0, &MalformedWireFormatError{Reason: "question truncated", Offset: offset}
		}
		qType := RRType(binary.BigEndian.Uint16(buf[offset:]))
		rawClass := binary.BigEndian.Uint16(buf[offset+2:])
		offset += 4
		questions = append(questions, Question{
			Owner:           owner,
			Type:            qType,
			Class:           Class(rawClass &^ uint16(classCacheFlushBit)),
			UnicastResponse: rawClass&uint16(classCacheFlushBit) != 0,
		})
	}
	return questions, offset, nil
}

func parseRecords(buf []byte, offset, count int, now time.Time) ([]Record, int, error) {
	if count == 0 {
		return nil, offset, nil
	}
	records := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		rec, next, err := ParseRecord(buf, offset, now)
		if err != nil {
			return nil, 0, err
		}
		offset = next
		records = append(records, rec)
	}
	return records, offset, nil
}

// EmitMessage serializes m into a freshly allocated buffer, growing it if
// necessary, and returns the encoded bytes.
func EmitMessage(m Message) ([]byte, error) {
	return EmitMessageInto(make([]byte, 0, 512), m)
}

// EmitMessageInto serializes m the same way EmitMessage does, but starts
// from the caller-supplied scratch buffer (its length is ignored; only its
// capacity is reused) instead of allocating one. It only grows beyond that
// capacity if m doesn't fit, so callers drawing scratch from a pool sized
// for the common case get zero allocations on the common path.
func EmitMessageInto(scratch []byte, m Message) ([]byte, error) {
	buf := growFor(scratch[:0], headerSize)
	binary.BigEndian.PutUint16(buf[0:], m.ID)
	binary.BigEndian.PutUint16(buf[2:], encodeFlags(m.Flags))
	binary.BigEndian.PutUint16(buf[4:], uint16(len(m.Questions)))
	binary.BigEndian.PutUint16(buf[6:], uint16(len(m.Answers)))
	binary.BigEndian.PutUint16(buf[8:], uint16(len(m.Authorities)))
	binary.BigEndian.PutUint16(buf[10:], uint16(len(m.Additionals)))

	for _, q := range m.Questions {
		var err error
		buf, err = appendQuestion(buf, q)
		if err != nil {
			return nil, err
		}
	}
	for _, sections := range [][]Record{m.Answers, m.Authorities, m.Additionals} {
		for _, r := range sections {
			var err error
			buf, err = appendRecord(buf, r)
			if err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

func appendQuestion(buf []byte, q Question) ([]byte, error) {
	buf = growFor(buf, EncodedLen(q.Owner)+4)
	offset := len(buf) - (EncodedLen(q.Owner) + 4)
	offset, err := EncodeName(q.Owner, buf, offset)
	if err != nil {
		return nil, err
	}
	classWord := uint16(q.Class)
	if q.UnicastResponse {
		classWord |= uint16(classCacheFlushBit)
	}
	binary.BigEndian.PutUint16(buf[offset:], uint16(q.Type))
	binary.BigEndian.PutUint16(buf[offset+2:], classWord)
	return buf, nil
}

func appendRecord(buf []byte, r Record) ([]byte, error) {
	// Records have a variable-length RDATA whose size isn't known ahead
	// of encoding, so grow generously and shrink back to the real end.
	start := len(buf)
	buf = growFor(buf, EncodedLen(r.Owner)+10+rdataUpperBound(r.Data))
	end, err := EmitRecord(r, buf, start)
	if err != nil {
		return nil, err
	}
	return buf[:end], nil
}

// rdataUpperBound estimates a safe upper bound on encoded RDATA size so
// appendRecord can grow the buffer once instead of retrying.
func rdataUpperBound(data RData) int {
	switch d := data.(type) {
	case TXTData:
		n := 0
		for _, s := range d.Strings {
			n += 1 + len(s)
		}
		return n
	case NSData:
		return EncodedLen(d.Name)
	case CNAMEData:
		return EncodedLen(d.Name)
	case DNAMEData:
		return EncodedLen(d.Name)
	case PTRData:
		return EncodedLen(d.Name)
	case SOAData:
		return EncodedLen(d.MName) + EncodedLen(d.RName) + 20
	case SRVData:
		return 6 + EncodedLen(d.Target)
	case SVCBData:
		n := 2 + EncodedLen(d.Target)
		for _, p := range d.Params {
			n += 4 + len(p.Value)
		}
		return n
	case OpaqueData:
		return len(d.Raw)
	default:
		return 64
	}
}

func growFor(buf []byte, extra int) []byte {
	need := len(buf) + extra
	if cap(buf) >= need {
		return buf[:need]
	}
	grown := make([]byte, need)
	copy(grown, buf)
	return grown
}
