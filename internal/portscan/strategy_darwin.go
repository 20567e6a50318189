//go:build darwin

package portscan

func strategies() []strategy {
	return []strategy{
		{name: "lsof", cmd: "lsof", args: []string{"-nP", "-iTCP", "-sTCP:LISTEN"}, parse: parseLsof},
		{name: "netstat", cmd: "netstat", args: []string{"-anv", "-p", "tcp"}, parse: parseNetstat},
	}
}
