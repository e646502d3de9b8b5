package resolver

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"resolvent/hints"
)

func TestParseResolvConfCollectsNameserversAndSuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resolv.conf")
	body := "nameserver 192.168.1.1\nnameserver 8.8.8.8\nnameserver 192.168.1.1\nsearch home.arpa\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, suffix := parseResolvConf(path)
	if suffix != "home.arpa" {
		t.Errorf("suffix = %q, want home.arpa", suffix)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2 (duplicate dropped)", len(got))
	}
	if !got[0].Addr.Equal(net.ParseIP("192.168.1.1")) || !got[1].Addr.Equal(net.ParseIP("8.8.8.8")) {
		t.Errorf("got = %+v, want 192.168.1.1 then 8.8.8.8", got)
	}
	for _, ns := range got {
		if ns.Suffix != "home.arpa" {
			t.Errorf("Nameserver.Suffix = %q, want home.arpa", ns.Suffix)
		}
	}
}

func TestParseResolvConfMissingFileReturnsEmpty(t *testing.T) {
	got, suffix := parseResolvConf(filepath.Join(t.TempDir(), "does-not-exist"))
	if got != nil || suffix != "" {
		t.Errorf("parseResolvConf(missing) = %v, %q, want nil, \"\"", got, suffix)
	}
}

func TestPreferGatewayReachableLeavesUnmatchedOrderStable(t *testing.T) {
	ns := []hints.Nameserver{
		{Addr: net.ParseIP("8.8.8.8")},
		{Addr: net.ParseIP("192.168.1.1")},
	}
	ifaces := []net.Interface{
		{Index: 1, Name: "eth0", Flags: net.FlagUp},
	}

	// Neither 8.8.8.8 nor 192.168.1.1 belongs to any subnet this
	// synthetic interface actually owns, so priority() can't place one
	// ahead of the other; sort.SliceStable must leave the input order
	// exactly as given.
	preferGatewayReachable(ns, ifaces)
	if len(ns) != 2 || !ns[0].Addr.Equal(net.ParseIP("8.8.8.8")) || !ns[1].Addr.Equal(net.ParseIP("192.168.1.1")) {
		t.Fatalf("preferGatewayReachable reordered with no matching subnet: %+v", ns)
	}
}

func TestPreferGatewayReachableEmptyOrderIsNoop(t *testing.T) {
	ns := []hints.Nameserver{{Addr: net.ParseIP("8.8.8.8")}}
	preferGatewayReachable(ns, nil)
	if !ns[0].Addr.Equal(net.ParseIP("8.8.8.8")) {
		t.Errorf("preferGatewayReachable mutated ns with no interfaces: %+v", ns)
	}
}
