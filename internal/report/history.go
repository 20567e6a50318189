package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"
)

const (
	compactThreshold = 100 // Terminal width below which compact mode kicks in
	defaultWidth     = 120
)

// HistoryRow is one recorded snapshot, ready for display.
type HistoryRow struct {
	TakenAt          time.Time
	Email            string
	MonthlyCredits   float64
	AvailableCredits float64
	UsedPercent      int
}

// HistoryOptions controls history table display behavior
type HistoryOptions struct {
	ForceCompact bool
}

func shouldUseCompact(opts HistoryOptions) bool {
	if opts.ForceCompact {
		return true
	}
	return getTerminalWidth() < compactThreshold
}

// RenderHistory prints recorded snapshots as a table, newest first. In
// compact mode the email column is dropped.
func RenderHistory(w io.Writer, rows []HistoryRow, opts HistoryOptions) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No snapshots recorded. Run 'surfstat watch' to start collecting.")
		return
	}

	compact := shouldUseCompact(opts)

	fmt.Fprintln(w)
	if compact {
		fmt.Fprintf(w, "%-16s  %12s  %12s  %6s\n", "Time", "Available", "Monthly", "Used")
		fmt.Fprintln(w, strings.Repeat("─", 16+2+12+2+12+2+6))
		for _, r := range rows {
			fmt.Fprintf(w, "%-16s  %12s  %12s  %5d%%\n",
				r.TakenAt.Local().Format("2006-01-02 15:04"),
				FormatNumber(int64(math.Round(r.AvailableCredits))),
				FormatNumber(int64(math.Round(r.MonthlyCredits))),
				r.UsedPercent)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "(Compact mode - expand terminal for full view)")
		return
	}

	emailWidth := len("Email")
	for _, r := range rows {
		if len(r.Email) > emailWidth {
			emailWidth = len(r.Email)
		}
	}

	fmt.Fprintf(w, "%-16s  %-*s  %12s  %12s  %6s\n", "Time", emailWidth, "Email", "Available", "Monthly", "Used")
	fmt.Fprintln(w, strings.Repeat("─", 16+2+emailWidth+2+12+2+12+2+6))
	for _, r := range rows {
		fmt.Fprintf(w, "%-16s  %-*s  %12s  %12s  %5d%%\n",
			r.TakenAt.Local().Format("2006-01-02 15:04"),
			emailWidth, r.Email,
			FormatNumber(int64(math.Round(r.AvailableCredits))),
			FormatNumber(int64(math.Round(r.MonthlyCredits))),
			r.UsedPercent)
	}
	fmt.Fprintln(w)
}
