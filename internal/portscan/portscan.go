// Package portscan finds loopback TCP ports a given process is
// listening on by running the platform's socket-listing tools and
// parsing their output.
package portscan

import (
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// strategy is one socket-listing tool attempt. Strategies are tried in
// the order returned by strategies(); one that errors or yields no
// qualifying rows falls through to the next.
type strategy struct {
	name  string
	cmd   string
	args  []string
	parse func(output string, pid int32) []int
}

// LoopbackPorts returns the deduplicated set of ports bound to
// 127.0.0.1 in LISTEN state and owned by pid, sorted ascending so the
// probe order is deterministic. Returns nil when no tool finds any.
func LoopbackPorts(pid int32) []int {
	for _, s := range strategies() {
		out, err := exec.Command(s.cmd, s.args...).Output()
		if err != nil && len(out) == 0 {
			// lsof exits non-zero when nothing matches; treat any
			// outputless failure as "tool unavailable" and fall through
			log.Debug().Str("tool", s.name).Err(err).Msg("socket listing failed")
			continue
		}
		if ports := s.parse(string(out), pid); len(ports) > 0 {
			log.Debug().Str("tool", s.name).Ints("ports", ports).Msg("found loopback ports")
			return ports
		}
	}
	return nil
}

// splitLoopbackPort extracts the port from a local-address field when it
// is bound to 127.0.0.1. Handles "127.0.0.1:4242" and the BSD netstat
// form "127.0.0.1.4242". Wildcard and external bindings return ok=false.
func splitLoopbackPort(addr string) (int, bool) {
	var portStr string
	switch {
	case strings.HasPrefix(addr, "127.0.0.1:"):
		portStr = addr[len("127.0.0.1:"):]
	case strings.HasPrefix(addr, "127.0.0.1."):
		portStr = addr[len("127.0.0.1."):]
	default:
		return 0, false
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return 0, false
	}
	return port, true
}

func sortedPorts(set map[int]bool) []int {
	if len(set) == 0 {
		return nil
	}
	ports := make([]int, 0, len(set))
	for p := range set {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports
}

// parseLsof parses `lsof -nP -iTCP -sTCP:LISTEN` output:
//
//	COMMAND  PID USER  FD  TYPE DEVICE SIZE/OFF NODE NAME
//	server  4242 user  22u IPv4 0x1        0t0  TCP 127.0.0.1:42100 (LISTEN)
func parseLsof(output string, pid int32) []int {
	pidStr := strconv.Itoa(int(pid))
	set := make(map[int]bool)

	for i, line := range strings.Split(output, "\n") {
		if i == 0 {
			continue // header
		}
		fields := strings.Fields(line)
		if len(fields) < 10 || fields[1] != pidStr {
			continue
		}
		if fields[len(fields)-1] != "(LISTEN)" {
			continue
		}
		if port, ok := splitLoopbackPort(fields[len(fields)-2]); ok {
			set[port] = true
		}
	}

	return sortedPorts(set)
}

// parseSS parses `ss -ltnp` output:
//
//	State  Recv-Q Send-Q Local Address:Port Peer Address:Port Process
//	LISTEN 0      4096   127.0.0.1:42100    0.0.0.0:*         users:(("server",pid=4242,fd=7))
func parseSS(output string, pid int32) []int {
	owner := "pid=" + strconv.Itoa(int(pid)) + ","
	set := make(map[int]bool)

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 6 || fields[0] != "LISTEN" {
			continue
		}
		if !strings.Contains(fields[5], owner) {
			continue
		}
		if port, ok := splitLoopbackPort(fields[3]); ok {
			set[port] = true
		}
	}

	return sortedPorts(set)
}

// parseNetstat parses netstat output in its three PID-bearing dialects:
//
//	windows -ano:  TCP  127.0.0.1:42100  0.0.0.0:0  LISTENING  4242
//	linux -tlnp:   tcp  0 0 127.0.0.1:42100 0.0.0.0:* LISTEN 4242/server
//	darwin -anv:   tcp4 0 0 127.0.0.1.42100 *.* LISTEN 131072 131072 4242 0 ...
func parseNetstat(output string, pid int32) []int {
	pidStr := strconv.Itoa(int(pid))
	set := make(map[int]bool)

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 || !strings.HasPrefix(strings.ToLower(fields[0]), "tcp") {
			continue
		}

		var local string
		switch {
		case len(fields) == 5 && fields[3] == "LISTENING" && fields[4] == pidStr:
			local = fields[1]
		case len(fields) == 7 && fields[5] == "LISTEN" && strings.HasPrefix(fields[6], pidStr+"/"):
			local = fields[3]
		case len(fields) >= 9 && fields[5] == "LISTEN" && fields[8] == pidStr:
			local = fields[3]
		default:
			continue
		}

		if port, ok := splitLoopbackPort(local); ok {
			set[port] = true
		}
	}

	return sortedPorts(set)
}
