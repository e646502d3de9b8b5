// Package netutil collects small, OS-facing networking helpers shared by
// the resolver and multicast client: default-route discovery, per-interface
// address enumeration, and a port-conflict diagnostic.
//
// portcheck.go is adapted from the teacher's utils/portcheck.go
// (captivating/utils/portcheck.go), which the teacher's main() used to ask
// the operator whether to kill whatever already held port 53/80/443
// before the captive portal's own servers bound them. This library never
// prompts anyone, but the same "who's on this port" lookup is useful as a
// diagnostic: mDNS listeners bind :5353 with SO_REUSEADDR/SO_REUSEPORT and
// normally coexist with system resolvers like avahi or mDNSResponder, but
// when a bind still fails outright it helps to say who's actually there.
package netutil

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PortHolder identifies the process bound to a port, when it can be
// determined from /proc.
type PortHolder struct {
	ProcessName string
	PID         int
}

// FindPortHolder scans /proc/net/{tcp,udp,tcp6,udp6} for a listener on
// port and, if found, resolves the owning process via /proc/<pid>/fd.
// It returns ok=false, not an error, when nothing is listening or the
// platform has no /proc (this is a best-effort diagnostic, never load
// bearing for correctness).
func FindPortHolder(port int) (holder PortHolder, ok bool) {
	for _, protocol := range []string{"tcp", "udp", "tcp6", "udp6"} {
		inode, found := findInodeForPort(protocol, port)
		if !found {
			continue
		}
		pid, name, found := findProcessByInode(inode)
		if !found {
			continue
		}
		return PortHolder{ProcessName: name, PID: pid}, true
	}
	return PortHolder{}, false
}

func findInodeForPort(protocol string, port int) (inode string, ok bool) {
	data, err := os.ReadFile("/proc/net/" + protocol)
	if err != nil {
		return "", false
	}

	lines := strings.Split(string(data), "\n")
	for _, line := range lines[1:] { // first line is a header
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 10 {
			continue
		}

		parts := strings.Split(fields[1], ":") // "0100007F:1234"
		if len(parts) != 2 {
			continue
		}
		portNum, err := strconv.ParseInt(parts[1], 16, 32)
		if err != nil || int(portNum) != port {
			continue
		}
		return fields[9], true
	}
	return "", false
}

func findProcessByInode(inode string) (pid int, name string, ok bool) {
	procDirs, err := os.ReadDir("/proc")
	if err != nil {
		return 0, "", false
	}

	needle := "socket:[" + inode + "]"
	for _, dir := range procDirs {
		p, err := strconv.Atoi(dir.Name())
		if err != nil {
			continue
		}

		fdPath := filepath.Join("/proc", dir.Name(), "fd")
		fds, err := os.ReadDir(fdPath)
		if err != nil {
			continue
		}

		for _, fd := range fds {
			link, err := os.Readlink(filepath.Join(fdPath, fd.Name()))
			if err != nil || link != needle {
				continue
			}

			cmdline, err := os.ReadFile(filepath.Join("/proc", dir.Name(), "cmdline"))
			if err != nil {
				return p, "unknown", true
			}
			parts := strings.SplitN(string(cmdline), "\x00", 2)
			procName := filepath.Base(parts[0])
			if procName == "" || procName == "." {
				procName = "unknown"
			}
			return p, procName, true
		}
	}
	return 0, "", false
}
