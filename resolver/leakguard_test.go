package resolver

import (
	"net"
	"testing"

	"resolvent/hints"
	"resolvent/wire"
)

func TestIsPrivateQuestion(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		private bool
	}{
		{"terminal local label", "printer.local", true},
		{"case-insensitive local", "printer.LOCAL", true},
		{"single label", "printer", true},
		{"public fqdn", "example.com", false},
	}

	for _, tt := range tests {
		owner, err := wire.ParseName(tt.owner)
		if err != nil {
			t.Fatalf("ParseName(%q) error = %v", tt.owner, err)
		}
		q := wire.Question{Owner: owner, Type: wire.TypeA}
		if got := isPrivateQuestion(q); got != tt.private {
			t.Errorf("isPrivateQuestion(%s) = %v, want %v", tt.name, got, tt.private)
		}
	}
}

func TestAllowedNameserverBlocksPublicResolverForPrivateQuestion(t *testing.T) {
	owner, _ := wire.ParseName("printer.local")
	q := wire.Question{Owner: owner, Type: wire.TypeA}

	public := hints.Nameserver{Addr: net.ParseIP("8.8.8.8")}
	if allowedNameserver(q, public) {
		t.Error("public nameserver should be blocked for a private question")
	}

	private := hints.Nameserver{Addr: net.ParseIP("192.168.1.1")}
	if !allowedNameserver(q, private) {
		t.Error("private nameserver should be allowed for a private question")
	}
}

func TestAllowedNameserverAllowsAnyForPublicQuestion(t *testing.T) {
	owner, _ := wire.ParseName("example.com")
	q := wire.Question{Owner: owner, Type: wire.TypeA}

	public := hints.Nameserver{Addr: net.ParseIP("8.8.8.8")}
	if !allowedNameserver(q, public) {
		t.Error("public nameserver should be allowed for a public question")
	}
}
