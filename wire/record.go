package wire

import (
	"encoding/binary"
	"time"
)

// ParseRecord reads one resource record starting at offset: owner name,
// type, class (with the mDNS cache-flush bit split out), TTL, RDLENGTH,
// then RDATA dispatched by type. now is the parse instant used to fix the
// record's absolute expiry. Returns the record and the offset just past
// its RDATA.
func ParseRecord(buf []byte, offset int, now time.Time) (Record, int, error) {
	owner, offset, err := DecodeName(buf, offset)
	if err != nil {
		return Record{}, 0, err
	}
	if offset+10 > len(buf) {
		return Record{}, 0, &MalformedWireFormatError{Reason: "record header truncated", Offset: offset}
	}

	rrType := RRType(binary.BigEndian.Uint16(buf[offset:]))
	rawClass := binary.BigEndian.Uint16(buf[offset+2:])
	ttl := binary.BigEndian.Uint32(buf[offset+4:])
	rdlen := int(binary.BigEndian.Uint16(buf[offset+8:]))
	offset += 10

	if offset+rdlen > len(buf) {
		return Record{}, 0, &MalformedWireFormatError{Reason: "RDLENGTH exceeds message", Offset: offset}
	}
	rdata := buf[offset : offset+rdlen]
	rdataEnd := offset + rdlen

	class := Class(rawClass &^ uint16(classCacheFlushBit))
	cacheFlush := rawClass&uint16(classCacheFlushBit) != 0

	data, err := parseRData(rrType, buf, offset, rdata)
	if err != nil {
		return Record{}, 0, err
	}

	header := Header{
		Owner:      owner,
		Type:       rrType,
		Class:      class,
		CacheFlush: cacheFlush,
		TTL:        ttl,
		Created:    now,
		Expiry:     now.Add(time.Duration(ttl) * time.Second),
	}
	return Record{Header: header, Data: data}, rdataEnd, nil
}

// parseRData dispatches on type. buf/full is the whole message (names
// inside RDATA may point backward into it); rdata is the exact RDLENGTH
// slice for types whose payload is not itself a name.
func parseRData(rrType RRType, full []byte, rdataOffset int, rdata []byte) (RData, error) {
	switch rrType {
	case TypeA:
		if len(rdata) != 4 {
			return nil, &MalformedWireFormatError{Reason: "A record RDATA must be 4 bytes", Offset: rdataOffset}
		}
		var d AData
		copy(d.Addr[:], rdata)
		return d, nil

	case TypeAAAA:
		if len(rdata) != 16 {
			return nil, &MalformedWireFormatError{Reason: "AAAA record RDATA must be 16 bytes", Offset: rdataOffset}
		}
		var d AAAAData
		copy(d.Addr[:], rdata)
		return d, nil

	case TypeNS:
		name, _, err := decodeNameStrict(full, rdataOffset, len(rdata))
		if err != nil {
			return nil, err
		}
		return NSData{Name: name}, nil

	case TypeCNAME:
		name, _, err := decodeNameStrict(full, rdataOffset, len(rdata))
		if err != nil {
			return nil, err
		}
		return CNAMEData{Name: name}, nil

	case TypeDNAME:
		name, _, err := decodeNameStrict(full, rdataOffset, len(rdata))
		if err != nil {
			return nil, err
		}
		return DNAMEData{Name: name}, nil

	case TypePTR:
		name, _, err := decodeNameStrict(full, rdataOffset, len(rdata))
		if err != nil {
			return nil, err
		}
		return PTRData{Name: name}, nil

	case TypeSOA:
		return parseSOA(full, rdataOffset, rdata)

	case TypeTXT:
		return parseTXT(rdata)

	case TypeSRV:
		return parseSRV(full, rdataOffset, rdata)

	case TypeSVCB, TypeHTTPS:
		return parseSVCB(rrType, rdata)

	case TypeOPT:
		// EDNS0 pseudo-record: carried through as opaque, never stored
		// (spec.md §4.4), but must parse without error since virtually
		// every real response attaches one.
		return OpaqueData{Type: rrType, Raw: append([]byte(nil), rdata...)}, nil

	default:
		return OpaqueData{Type: rrType, Raw: append([]byte(nil), rdata...)}, nil
	}
}

// decodeNameStrict decodes a name embedded in RDATA and verifies it
// consumed exactly rdlen bytes of the record's own payload (compression
// pointers may still jump elsewhere in the message; only the *forward*
// consumption within this record's RDATA span is checked).
func decodeNameStrict(full []byte, offset, rdlen int) (Labels, int, error) {
	name, next, err := DecodeName(full, offset)
	if err != nil {
		return nil, 0, err
	}
	if consumed := next - offset; consumed != rdlen {
		return nil, 0, &MalformedWireFormatError{Reason: "name in RDATA under/over-consumed RDLENGTH", Offset: offset}
	}
	return name, next, nil
}

func parseSOA(full []byte, offset int, rdata []byte) (RData, error) {
	start := offset
	mname, offset, err := DecodeName(full, offset)
	if err != nil {
		return nil, err
	}
	rname, offset, err := DecodeName(full, offset)
	if err != nil {
		return nil, err
	}
	if offset+20 > start+len(rdata) {
		return nil, &MalformedWireFormatError{Reason: "SOA RDATA truncated", Offset: offset}
	}
	return SOAData{
		MName:   mname,
		RName:   rname,
		Serial:  binary.BigEndian.Uint32(full[offset:]),
		Refresh: binary.BigEndian.Uint32(full[offset+4:]),
		Retry:   binary.BigEndian.Uint32(full[offset+8:]),
		Expire:  binary.BigEndian.Uint32(full[offset+12:]),
		Minimum: binary.BigEndian.Uint32(full[offset+16:]),
	}, nil
}

func parseTXT(rdata []byte) (RData, error) {
	var strs [][]byte
	offset := 0
	for offset < len(rdata) {
		n := int(rdata[offset])
		offset++
		if offset+n > len(rdata) {
			return nil, &MalformedWireFormatError{Reason: "TXT character-string exceeds RDLENGTH"}
		}
		strs = append(strs, append([]byte(nil), rdata[offset:offset+n]...))
		offset += n
	}
	return TXTData{Strings: strs}, nil
}

func parseSRV(full []byte, offset int, rdata []byte) (RData, error) {
	if len(rdata) < 6 {
		return nil, &MalformedWireFormatError{Reason: "SRV RDATA truncated", Offset: offset}
	}
	priority := binary.BigEndian.Uint16(rdata)
	weight := binary.BigEndian.Uint16(rdata[2:])
	port := binary.BigEndian.Uint16(rdata[4:])
	target, next, err := DecodeName(full, offset+6)
	if err != nil {
		return nil, err
	}
	if next-offset != len(rdata) {
		return nil, &MalformedWireFormatError{Reason: "SRV target under/over-consumed RDLENGTH", Offset: offset}
	}
	return SRVData{Priority: priority, Weight: weight, Port: port, Target: target}, nil
}

func parseSVCB(rrType RRType, rdata []byte) (RData, error) {
	if len(rdata) < 2 {
		return nil, &MalformedWireFormatError{Reason: "SVCB/HTTPS RDATA truncated"}
	}
	priority := binary.BigEndian.Uint16(rdata)
	// SVCB/HTTPS TargetName is never compressed (RFC 9460 §2), so it is
	// safe to decode directly out of the RDATA slice rather than the
	// full message.
	target, offset, err := DecodeName(rdata, 2)
	if err != nil {
		return nil, err
	}

	var params []SVCBParam
	for offset < len(rdata) {
		if offset+4 > len(rdata) {
			return nil, &MalformedWireFormatError{Reason: "SVCB parameter header truncated"}
		}
		key := SVCBKey(binary.BigEndian.Uint16(rdata[offset:]))
		vlen := int(binary.BigEndian.Uint16(rdata[offset+2:]))
		offset += 4
		if offset+vlen > len(rdata) {
			return nil, &MalformedWireFormatError{Reason: "SVCB parameter value exceeds RDLENGTH"}
		}
		params = append(params, SVCBParam{Key: key, Value: append([]byte(nil), rdata[offset:offset+vlen]...)})
		offset += vlen
	}

	return SVCBData{Type: rrType, Priority: priority, Target: target, Params: params}, nil
}

// EmitRecord writes header, RDLENGTH (backfilled), and RDATA at offset.
// Names inside RDATA are written uncompressed, per spec.md §4.2.
func EmitRecord(r Record, buf []byte, offset int) (int, error) {
	offset, err := EncodeName(r.Owner, buf, offset)
	if err != nil {
		return 0, err
	}
	if offset+10 > len(buf) {
		return 0, &MalformedWireFormatError{Reason: "buffer too small for record header", Offset: offset}
	}
	classWord := uint16(r.Class)
	if r.CacheFlush {
		classWord |= uint16(classCacheFlushBit)
	}
	binary.BigEndian.PutUint16(buf[offset:], uint16(r.Type))
	binary.BigEndian.PutUint16(buf[offset+2:], classWord)
	binary.BigEndian.PutUint32(buf[offset+4:], r.TTL)
	rdlenOffset := offset + 8
	offset += 10

	rdataStart := offset
	offset, err = emitRData(r.Data, buf, offset)
	if err != nil {
		return 0, err
	}
	binary.BigEndian.PutUint16(buf[rdlenOffset:], uint16(offset-rdataStart))
	return offset, nil
}

func emitRData(data RData, buf []byte, offset int) (int, error) {
	switch d := data.(type) {
	case AData:
		if offset+4 > len(buf) {
			return 0, &MalformedWireFormatError{Reason: "buffer too small for A RDATA"}
		}
		copy(buf[offset:], d.Addr[:])
		return offset + 4, nil

	case AAAAData:
		if offset+16 > len(buf) {
			return 0, &MalformedWireFormatError{Reason: "buffer too small for AAAA RDATA"}
		}
		copy(buf[offset:], d.Addr[:])
		return offset + 16, nil

	case NSData:
		return EncodeName(d.Name, buf, offset)
	case CNAMEData:
		return EncodeName(d.Name, buf, offset)
	case DNAMEData:
		return EncodeName(d.Name, buf, offset)
	case PTRData:
		return EncodeName(d.Name, buf, offset)

	case SOAData:
		offset, err := EncodeName(d.MName, buf, offset)
		if err != nil {
			return 0, err
		}
		offset, err = EncodeName(d.RName, buf, offset)
		if err != nil {
			return 0, err
		}
		if offset+20 > len(buf) {
			return 0, &MalformedWireFormatError{Reason: "buffer too small for SOA RDATA"}
		}
		binary.BigEndian.PutUint32(buf[offset:], d.Serial)
		binary.BigEndian.PutUint32(buf[offset+4:], d.Refresh)
		binary.BigEndian.PutUint32(buf[offset+8:], d.Retry)
		binary.BigEndian.PutUint32(buf[offset+12:], d.Expire)
		binary.BigEndian.PutUint32(buf[offset+16:], d.Minimum)
		return offset + 20, nil

	case TXTData:
		for _, s := range d.Strings {
			if len(s) > 255 {
				return 0, &MalformedWireFormatError{Reason: "TXT character-string longer than 255 bytes"}
			}
			if offset+1+len(s) > len(buf) {
				return 0, &MalformedWireFormatError{Reason: "buffer too small for TXT RDATA"}
			}
			buf[offset] = byte(len(s))
			offset++
			copy(buf[offset:], s)
			offset += len(s)
		}
		return offset, nil

	case SRVData:
		if offset+6 > len(buf) {
			return 0, &MalformedWireFormatError{Reason: "buffer too small for SRV RDATA"}
		}
		binary.BigEndian.PutUint16(buf[offset:], d.Priority)
		binary.BigEndian.PutUint16(buf[offset+2:], d.Weight)
		binary.BigEndian.PutUint16(buf[offset+4:], d.Port)
		return EncodeName(d.Target, buf, offset+6)

	case SVCBData:
		if offset+2 > len(buf) {
			return 0, &MalformedWireFormatError{Reason: "buffer too small for SVCB RDATA"}
		}
		binary.BigEndian.PutUint16(buf[offset:], d.Priority)
		offset += 2
		offset, err := EncodeName(d.Target, buf, offset)
		if err != nil {
			return 0, err
		}
		for _, p := range d.Params {
			if offset+4+len(p.Value) > len(buf) {
				return 0, &MalformedWireFormatError{Reason: "buffer too small for SVCB parameter"}
			}
			binary.BigEndian.PutUint16(buf[offset:], uint16(p.Key))
			binary.BigEndian.PutUint16(buf[offset+2:], uint16(len(p.Value)))
			offset += 4
			copy(buf[offset:], p.Value)
			offset += len(p.Value)
		}
		return offset, nil

	case OpaqueData:
		if offset+len(d.Raw) > len(buf) {
			return 0, &MalformedWireFormatError{Reason: "buffer too small for opaque RDATA"}
		}
		copy(buf[offset:], d.Raw)
		return offset + len(d.Raw), nil

	default:
		return 0, &MalformedWireFormatError{Reason: "unknown RDATA implementation"}
	}
}
