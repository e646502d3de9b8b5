package hints

import (
	"strings"
	"testing"

	"resolvent/wire"
)

func TestParseHintsFile(t *testing.T) {
	input := strings.NewReader(`
; root hints fragment
. 3600000 NS a.root-servers.net.
a.root-servers.net. 3600000 A 198.41.0.4
# comment line
host.local. 120 AAAA ::1
`)

	entries, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Parse() = %d entries, want 3", len(entries))
	}

	if entries[0].Type != wire.TypeNS {
		t.Errorf("entries[0].Type = %v, want NS", entries[0].Type)
	}
	if entries[1].Type != wire.TypeA {
		t.Errorf("entries[1].Type = %v, want A", entries[1].Type)
	}
	aaaa, ok := entries[2].Data.(wire.AAAAData)
	if !ok {
		t.Fatalf("entries[2].Data type = %T, want AAAAData", entries[2].Data)
	}
	if aaaa.IP().String() != "::1" {
		t.Errorf("entries[2] address = %v, want ::1", aaaa.IP())
	}
}

func TestParseRejectsUnrecognizedType(t *testing.T) {
	input := strings.NewReader("host.local. 120 BOGUS x\n")
	if _, err := Parse(input); err == nil {
		t.Fatal("expected error for unrecognized record type, got nil")
	}
}

func TestParseAcceptsGenericTypeSyntax(t *testing.T) {
	input := strings.NewReader("host.local. 120 TYPE9999 abc\n")
	entries, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if entries[0].Type != wire.RRType(9999) {
		t.Errorf("Type = %v, want TYPE9999", entries[0].Type)
	}
}

func TestParseRejectsShortLine(t *testing.T) {
	input := strings.NewReader("host.local. 120 A\n")
	if _, err := Parse(input); err == nil {
		t.Fatal("expected error for line with fewer than 4 columns, got nil")
	}
}

func TestPresets(t *testing.T) {
	if len(Cloudflare()) != 2 {
		t.Errorf("Cloudflare() = %d entries, want 2", len(Cloudflare()))
	}
	for _, ns := range Cloudflare() {
		if ns.DoH != DoHYes {
			t.Errorf("Cloudflare preset %v has DoH = %v, want DoHYes", ns.Addr, ns.DoH)
		}
	}
	if len(RootHints()) != 13 {
		t.Errorf("RootHints() = %d entries, want 13", len(RootHints()))
	}
}
