package wire

import (
	"net"
	"reflect"
	"testing"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Labels
	}{
		{name: "simple domain", input: "www.example.com", expected: Labels{"www", "example", "com"}},
		{name: "root", input: ".", expected: Labels{}},
		{name: "empty string", input: "", expected: Labels{}},
		{name: "single label", input: "printer", expected: Labels{"printer"}},
		{name: "trailing dot", input: "example.com.", expected: Labels{"example", "com"}},
		{name: "hex escape", input: `a\2ec.example`, expected: Labels{"a.c", "example"}},
		{name: "literal escape", input: `a\.b.example`, expected: Labels{"a.b", "example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseName(tt.input)
			if err != nil {
				t.Fatalf("ParseName(%q) error = %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseName(%q) = %#v, want %#v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEncodeDecodeNameRoundTrip(t *testing.T) {
	labels := Labels{"www", "example", "com"}
	buf := make([]byte, 64)
	end, err := EncodeName(labels, buf, 0)
	if err != nil {
		t.Fatalf("EncodeName error = %v", err)
	}

	decoded, next, err := DecodeName(buf, 0)
	if err != nil {
		t.Fatalf("DecodeName error = %v", err)
	}
	if next != end {
		t.Errorf("DecodeName consumed %d bytes, EncodeName wrote %d", next, end)
	}
	if !decoded.Equal(labels) {
		t.Errorf("DecodeName = %#v, want %#v", decoded, labels)
	}
}

func TestDecodeNameCompressionPointer(t *testing.T) {
	// "example.com" at offset 0, then a second name "www" pointing back at
	// offset 0's "example.com".
	buf := make([]byte, 64)
	end, err := EncodeName(Labels{"example", "com"}, buf, 0)
	if err != nil {
		t.Fatalf("EncodeName error = %v", err)
	}

	nameStart := end
	buf[nameStart] = 3
	copy(buf[nameStart+1:], "www")
	pointerOffset := nameStart + 4
	buf[pointerOffset] = 0xC0
	buf[pointerOffset+1] = 0x00

	decoded, next, err := DecodeName(buf, nameStart)
	if err != nil {
		t.Fatalf("DecodeName with pointer error = %v", err)
	}
	if next != pointerOffset+2 {
		t.Errorf("DecodeName returned offset %d, want %d", next, pointerOffset+2)
	}
	want := Labels{"www", "example", "com"}
	if !decoded.Equal(want) {
		t.Errorf("DecodeName = %#v, want %#v", decoded, want)
	}
}

func TestDecodeNameRejectsPointerCycle(t *testing.T) {
	buf := []byte{0xC0, 0x00} // points at itself
	_, _, err := DecodeName(buf, 0)
	if err == nil {
		t.Fatal("expected error for self-referential compression pointer, got nil")
	}
}

func TestDecodeNameRejectsForwardPointer(t *testing.T) {
	buf := []byte{0xC0, 0x02, 0x00}
	_, _, err := DecodeName(buf, 0)
	if err == nil {
		t.Fatal("expected error for forward compression pointer, got nil")
	}
}

func TestNameFromIP(t *testing.T) {
	v4 := NameFromIP(net.ParseIP("192.0.2.1"))
	want4 := Labels{"1", "2", "0", "192", "in-addr", "arpa"}
	if !v4.Equal(want4) {
		t.Errorf("NameFromIP(v4) = %#v, want %#v", v4, want4)
	}

	v6 := NameFromIP(net.ParseIP("2001:db8::1"))
	if len(v6) != 34 {
		t.Errorf("NameFromIP(v6) has %d labels, want 34", len(v6))
	}
	if v6[len(v6)-2] != "ip6" || v6[len(v6)-1] != "arpa" {
		t.Errorf("NameFromIP(v6) suffix = %v, want ip6.arpa", v6[len(v6)-2:])
	}
}
