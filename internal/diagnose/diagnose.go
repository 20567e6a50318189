// Package diagnose runs the discovery pipeline: locate the language
// server process, scan its loopback ports, probe for the status
// endpoint. Each stage's output feeds the next; there is no retry
// across a run.
package diagnose

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"surfstat/internal/config"
	"surfstat/internal/discover"
	"surfstat/internal/portscan"
	"surfstat/internal/statusapi"
)

// ErrNoPorts means the process was found but is not listening on any
// loopback port.
var ErrNoPorts = errors.New("no loopback listening ports found")

// Result carries the pipeline outcome.
type Result struct {
	Handle   discover.Handle
	Ports    []int
	Response *statusapi.UserStatusResponse
}

// Run executes the pipeline once. overridePort skips port discovery
// when positive.
func Run(ctx context.Context, cfg *config.Config, overridePort int) (*Result, error) {
	handle, err := discover.Find(discover.SystemLister{}, cfg.ProcessName)
	if err != nil {
		return nil, err
	}
	log.Debug().Int32("pid", handle.PID).Msg("language server located")

	var ports []int
	if overridePort > 0 {
		ports = []int{overridePort}
	} else {
		ports = portscan.LoopbackPorts(handle.PID)
		if len(ports) == 0 {
			return nil, fmt.Errorf("%w for pid %d", ErrNoPorts, handle.PID)
		}
	}

	client := statusapi.NewClient(cfg)
	resp, err := client.Probe(ctx, ports, handle.CSRFToken)
	if err != nil {
		return nil, err
	}

	return &Result{Handle: handle, Ports: ports, Response: resp}, nil
}
