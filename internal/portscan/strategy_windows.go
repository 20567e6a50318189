//go:build windows

package portscan

func strategies() []strategy {
	return []strategy{
		{name: "netstat", cmd: "netstat", args: []string{"-ano"}, parse: parseNetstat},
	}
}
