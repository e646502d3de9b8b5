// Package hints parses root-hints-style zone-file fragments and exposes
// the canned nameserver lists from spec.md §4.8: IANA root hints and the
// Cloudflare/Google DoH-capable presets.
//
// The line-oriented, whitespace-split parsing style is grounded on the
// teacher's own canned-list helpers (captivating/dns/domains.go's
// GetCaptivePortalDomains/GetHttpsOnlyDomains, plain package-level
// functions returning data, no config-file abstraction layer) and on
// wireless/wpa.go's tolerance for blank and comment lines when reading a
// config fragment line by line.
package hints

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"resolvent/wire"
)

// Entry is one parsed line of a hints file: an owner name, TTL, type, and
// typed RDATA built the same way the record codec would build it.
type Entry struct {
	Owner wire.Labels
	TTL   uint32
	Type  wire.RRType
	Data  wire.RData
}

// Parse reads a hints file: each non-comment, non-empty line is
// "owner ttl type rdata" (whitespace-delimited, at most four columns).
// A, AAAA, PTR, CNAME, DNAME, and NS are parsed to typed RData; any other
// type becomes OpaqueData carrying the raw column text as bytes.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("hints: line %d: expected 4 columns, got %d", lineNo, len(fields))
		}

		owner, err := wire.ParseName(fields[0])
		if err != nil {
			return nil, fmt.Errorf("hints: line %d: %w", lineNo, err)
		}
		ttl64, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("hints: line %d: bad TTL %q: %w", lineNo, fields[1], err)
		}
		rrType, err := parseType(fields[2])
		if err != nil {
			return nil, fmt.Errorf("hints: line %d: %w", lineNo, err)
		}

		data, err := parseRData(rrType, fields[3])
		if err != nil {
			return nil, fmt.Errorf("hints: line %d: %w", lineNo, err)
		}

		entries = append(entries, Entry{Owner: owner, TTL: uint32(ttl64), Type: rrType, Data: data})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// parseType accepts the mnemonics this package parses to typed RData, the
// other record mnemonics wire.RRType names (SOA, MX, TXT, SRV, SVCB,
// HTTPS), and the generic "TYPEnnn" spelling (RFC 3597 §5) for anything
// else; parseRData carries all but the first group through as OpaqueData.
// Any other text is an error. Unlike a bare numeric
// fallback, this never returns the zero RRType for unrecognized text —
// zero is not a reserved "unknown" sentinel in this codec's type space,
// so silently mapping unrecognized mnemonics to it would collide with a
// genuine (if malformed) "TYPE0" entry.
func parseType(s string) (wire.RRType, error) {
	switch strings.ToUpper(s) {
	case "A":
		return wire.TypeA, nil
	case "AAAA":
		return wire.TypeAAAA, nil
	case "PTR":
		return wire.TypePTR, nil
	case "CNAME":
		return wire.TypeCNAME, nil
	case "DNAME":
		return wire.TypeDNAME, nil
	case "NS":
		return wire.TypeNS, nil
	default:
		for _, t := range []wire.RRType{wire.TypeSOA, wire.TypeMX, wire.TypeTXT, wire.TypeSRV, wire.TypeSVCB, wire.TypeHTTPS} {
			if strings.EqualFold(s, t.String()) {
				return t, nil
			}
		}
		if n, ok := parseGenericType(s); ok {
			return n, nil
		}
		return 0, fmt.Errorf("hints: unrecognized record type %q", s)
	}
}

func parseGenericType(s string) (wire.RRType, bool) {
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "TYPE") {
		return 0, false
	}
	n, err := strconv.ParseUint(upper[len("TYPE"):], 10, 16)
	if err != nil {
		return 0, false
	}
	return wire.RRType(n), true
}

func parseRData(rrType wire.RRType, text string) (wire.RData, error) {
	switch rrType {
	case wire.TypeA:
		ip := net.ParseIP(text).To4()
		if ip == nil {
			return nil, fmt.Errorf("hints: invalid IPv4 address %q", text)
		}
		var d wire.AData
		copy(d.Addr[:], ip)
		return d, nil

	case wire.TypeAAAA:
		ip := net.ParseIP(text).To16()
		if ip == nil {
			return nil, fmt.Errorf("hints: invalid IPv6 address %q", text)
		}
		var d wire.AAAAData
		copy(d.Addr[:], ip)
		return d, nil

	case wire.TypePTR:
		name, err := wire.ParseName(text)
		if err != nil {
			return nil, err
		}
		return wire.PTRData{Name: name}, nil

	case wire.TypeCNAME:
		name, err := wire.ParseName(text)
		if err != nil {
			return nil, err
		}
		return wire.CNAMEData{Name: name}, nil

	case wire.TypeDNAME:
		name, err := wire.ParseName(text)
		if err != nil {
			return nil, err
		}
		return wire.DNAMEData{Name: name}, nil

	case wire.TypeNS:
		name, err := wire.ParseName(text)
		if err != nil {
			return nil, err
		}
		return wire.NSData{Name: name}, nil

	default:
		return wire.OpaqueData{Type: rrType, Raw: []byte(text)}, nil
	}
}
