package discover

import (
	"github.com/shirou/gopsutil/v4/process"
)

// SystemLister enumerates processes via gopsutil.
type SystemLister struct{}

// Processes returns all visible processes. Entries whose name and
// command line are both unreadable (exited or permission-restricted
// processes) are skipped.
func (SystemLister) Processes() ([]ProcessInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, _ := p.Name()
		cmdline, _ := p.Cmdline()
		if name == "" && cmdline == "" {
			continue
		}
		out = append(out, ProcessInfo{PID: p.Pid, Name: name, Cmdline: cmdline})
	}

	return out, nil
}
