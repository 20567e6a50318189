//go:build linux

package portscan

// ss is the most commonly available tool on modern distributions;
// netstat and lsof cover older or minimal installs.
func strategies() []strategy {
	return []strategy{
		{name: "ss", cmd: "ss", args: []string{"-ltnp"}, parse: parseSS},
		{name: "netstat", cmd: "netstat", args: []string{"-tlnp"}, parse: parseNetstat},
		{name: "lsof", cmd: "lsof", args: []string{"-nP", "-iTCP", "-sTCP:LISTEN"}, parse: parseLsof},
	}
}
