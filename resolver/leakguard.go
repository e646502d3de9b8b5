package resolver

import (
	"resolvent/hints"
	"resolvent/netutil"
	"resolvent/wire"
)

// isPrivateQuestion reports whether q is a private-namespace query per
// spec.md §4.6: its owner's terminal label is "local", or the owner is a
// single label (a bare hostname with no dots, which almost never resolves
// on the public Internet and is conventionally a LAN name).
func isPrivateQuestion(q wire.Question) bool {
	if len(q.Owner) == 0 {
		return false
	}
	if len(q.Owner) == 1 {
		return true
	}
	last := q.Owner[len(q.Owner)-1]
	return equalFoldLocal(last)
}

func equalFoldLocal(label string) bool {
	if len(label) != len("local") {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != "local"[i] {
			return false
		}
	}
	return true
}

// allowedNameserver applies the private-leak guard: for a private
// question, only nameservers whose own address is itself private may be
// contacted (spec.md §4.6). Public questions may go to any nameserver.
func allowedNameserver(q wire.Question, ns hints.Nameserver) bool {
	if !isPrivateQuestion(q) {
		return true
	}
	return netutil.IsPrivate(ns.Addr)
}
