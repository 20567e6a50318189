// Package discover locates the running language server process and the
// csrf token embedded in its command line.
package discover

import (
	"errors"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNotFound means no matching process with a usable token is running.
// This is a normal outcome, not a failure of the listing itself.
var ErrNotFound = errors.New("process not found")

// ProcessInfo is one entry from a process listing.
type ProcessInfo struct {
	PID     int32
	Name    string
	Cmdline string
}

// Lister enumerates OS processes. The production implementation is
// SystemLister; tests substitute a fake.
type Lister interface {
	Processes() ([]ProcessInfo, error)
}

// Handle identifies the located backend process.
type Handle struct {
	PID       int32
	CSRFToken string
}

// Accepts --csrf_token=VALUE, --csrf_token VALUE, and single- or
// double-quoted values.
var csrfTokenRe = regexp.MustCompile(`--csrf_token[=\s]+(?:"([^"]+)"|'([^']+)'|([^\s"']+))`)

// ExtractToken pulls the csrf token out of a full command line. Returns
// "" when the flag is absent or empty.
func ExtractToken(cmdline string) string {
	m := csrfTokenRe.FindStringSubmatch(cmdline)
	if m == nil {
		return ""
	}
	for _, group := range m[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}

// Find returns the first process whose name or command line contains
// target (case-insensitive) and whose command line yields a non-empty
// csrf token. A failed or empty listing degrades to ErrNotFound.
func Find(lister Lister, target string) (Handle, error) {
	procs, err := lister.Processes()
	if err != nil {
		log.Debug().Err(err).Msg("process listing failed")
		return Handle{}, ErrNotFound
	}

	needle := strings.ToLower(target)
	for _, p := range procs {
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Cmdline), needle) {
			continue
		}
		if token := ExtractToken(p.Cmdline); token != "" {
			log.Debug().Int32("pid", p.PID).Str("name", p.Name).Msg("found language server process")
			return Handle{PID: p.PID, CSRFToken: token}, nil
		}
	}

	return Handle{}, ErrNotFound
}
