package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/kardianos/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"surfstat/internal/config"
	"surfstat/internal/diagnose"
	"surfstat/internal/discover"
	"surfstat/internal/history"
	"surfstat/internal/report"
	"surfstat/internal/statusapi"
)

const version = "0.1.0"

func main() {
	// Detect subcommand first
	command := "status"
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "status", "watch", "history", "config":
			command = args[0]
			args = args[1:]
		case "version", "--version", "-v":
			fmt.Printf("surfstat version %s\n", version)
			return
		}
	}

	switch command {
	case "watch":
		runWatch(args)
	case "history":
		runHistory(args)
	case "config":
		runConfig(args)
	default:
		runStatus(args)
	}
}

func setupLogging(verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("surfstat", flag.ExitOnError)

	var (
		jsonOut bool
		port    int
		timeout time.Duration
		verbose bool
	)

	fs.BoolVar(&jsonOut, "json", false, "Output the raw status as JSON")
	fs.IntVar(&port, "port", 0, "Probe this port directly instead of discovering")
	fs.DurationVar(&timeout, "timeout", 0, "Per-port probe timeout (e.g., 5s)")
	fs.BoolVar(&verbose, "verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `surfstat - Windsurf usage status

Usage: surfstat [command] [options]

Commands:
  status    Query the language server and print the usage report (default)
  watch     Poll periodically and record snapshots
  history   Show recorded snapshots
  config    Configure surfstat
  version   Show version

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  surfstat                   Print current usage
  surfstat --json
  surfstat --port 42100      Skip discovery and probe one port
  surfstat watch install     Record a snapshot every 10 minutes
  surfstat history --limit 50
`)
	}

	fs.Parse(args)
	setupLogging(verbose)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if timeout > 0 {
		cfg.ProbeTimeout = timeout.String()
	}

	result, err := diagnose.Run(context.Background(), cfg, port)
	if err != nil {
		if errors.Is(err, discover.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Error: no running %s process found (is the editor open?)\n", cfg.ProcessName)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	if jsonOut {
		report.RenderJSON(os.Stdout, result.Response)
	} else {
		report.Render(os.Stdout, result.Response)
	}
}

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)

	var (
		limit   int
		jsonOut bool
		compact bool
	)

	fs.IntVar(&limit, "limit", 20, "Maximum number of snapshots to show")
	fs.BoolVar(&jsonOut, "json", false, "Output as JSON")
	fs.BoolVar(&compact, "compact", false, "Force compact table output")
	fs.BoolVar(&compact, "c", false, "Force compact table output")

	fs.Parse(args)
	setupLogging(false)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	dbPath, err := cfg.HistoryDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store, err := history.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	snaps, err := store.Recent(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
		os.Exit(1)
	}

	if jsonOut {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(snaps)
		return
	}

	rows := make([]report.HistoryRow, len(snaps))
	for i, s := range snaps {
		rows[i] = report.HistoryRow{
			TakenAt:          s.TakenAt,
			Email:            s.Email,
			MonthlyCredits:   s.MonthlyCredits,
			AvailableCredits: s.AvailableCredits,
			UsedPercent:      s.UsedPercent,
		}
	}
	report.RenderHistory(os.Stdout, rows, report.HistoryOptions{ForceCompact: compact})
}

func runConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)

	var (
		processName   string
		probeTimeout  string
		watchInterval string
		historyPath   string
		show          bool
	)

	fs.StringVar(&processName, "process-name", "", "Process name substring to search for")
	fs.StringVar(&probeTimeout, "probe-timeout", "", "Per-port probe timeout (e.g., 5s)")
	fs.StringVar(&watchInterval, "watch-interval", "", "Watch mode polling interval (e.g., 10m)")
	fs.StringVar(&historyPath, "history-path", "", "Snapshot database path")
	fs.BoolVar(&show, "show", false, "Show current configuration")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: surfstat config [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  surfstat config --process-name windsurf --probe-timeout 5s
  surfstat config --show
`)
	}

	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if show {
		fmt.Printf("Process name: %s\n", cfg.ProcessName)
		fmt.Printf("API path: %s\n", cfg.APIPath)
		fmt.Printf("Probe timeout: %s\n", cfg.Timeout())
		fmt.Printf("Watch interval: %s\n", cfg.Interval())
		if dbPath, err := cfg.HistoryDBPath(); err == nil {
			fmt.Printf("History path: %s\n", dbPath)
		}
		return
	}

	if processName == "" && probeTimeout == "" && watchInterval == "" && historyPath == "" {
		fs.Usage()
		return
	}

	if processName != "" {
		cfg.ProcessName = processName
	}
	if probeTimeout != "" {
		if _, err := time.ParseDuration(probeTimeout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid probe timeout: %s\n", probeTimeout)
			os.Exit(1)
		}
		cfg.ProbeTimeout = probeTimeout
	}
	if watchInterval != "" {
		if _, err := time.ParseDuration(watchInterval); err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid watch interval: %s\n", watchInterval)
			os.Exit(1)
		}
		cfg.WatchInterval = watchInterval
	}
	if historyPath != "" {
		cfg.HistoryPath = historyPath
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration saved.")
}

// watchService implements service.Interface for background polling
type watchService struct {
	interval time.Duration
	stop     chan struct{}
	logger   service.Logger
}

func (s *watchService) Start(svc service.Service) error {
	s.stop = make(chan struct{})
	go s.run()
	return nil
}

func (s *watchService) Stop(svc service.Service) error {
	close(s.stop)
	return nil
}

func (s *watchService) run() {
	cfg, err := config.Load()
	if err != nil {
		s.errorf("Error loading config: %v", err)
		return
	}

	dbPath, err := cfg.HistoryDBPath()
	if err != nil {
		s.errorf("Error resolving history path: %v", err)
		return
	}

	store, err := history.Open(dbPath)
	if err != nil {
		s.errorf("Error opening history: %v", err)
		return
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-s.stop
		cancel()
	}()

	// Burst of one lets the first poll run immediately; subsequent
	// iterations are paced at the configured interval.
	limiter := rate.NewLimiter(rate.Every(s.interval), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		s.poll(ctx, cfg, store)
	}
}

func (s *watchService) poll(ctx context.Context, cfg *config.Config, store *history.Store) {
	result, err := diagnose.Run(ctx, cfg, 0)
	if err != nil {
		s.errorf("Poll failed: %v", err)
		return
	}

	snap, ok := snapshotFrom(result.Response, time.Now())
	if !ok {
		s.errorf("Poll succeeded but returned no user status")
		return
	}

	if err := store.Insert(snap); err != nil {
		s.errorf("Error recording snapshot: %v", err)
		return
	}

	s.infof("Recorded snapshot (%d%% used)", snap.UsedPercent)
}

func (s *watchService) errorf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Errorf(format, args...)
		return
	}
	log.Error().Msgf(format, args...)
}

func (s *watchService) infof(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Infof(format, args...)
		return
	}
	log.Info().Msgf(format, args...)
}

// snapshotFrom converts a status response into a history snapshot.
func snapshotFrom(resp *statusapi.UserStatusResponse, takenAt time.Time) (history.Snapshot, bool) {
	if resp == nil || resp.UserStatus == nil {
		return history.Snapshot{}, false
	}
	us := resp.UserStatus

	snap := history.Snapshot{TakenAt: takenAt, Email: us.Email}
	if monthly, available, ok := report.Credits(us); ok {
		snap.MonthlyCredits = monthly
		snap.AvailableCredits = available
		snap.UsedPercent = report.UsedPercent(monthly, available)
	}
	if models := report.FilterModels(us.ModelConfigs()); len(models) > 0 {
		if data, err := json.Marshal(models); err == nil {
			snap.ModelsJSON = string(data)
		}
	}

	return snap, true
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)

	var (
		interval time.Duration
		verbose  bool
	)

	fs.DurationVar(&interval, "interval", 0, "Polling interval (e.g., 10m, 1h)")
	fs.BoolVar(&verbose, "verbose", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: surfstat watch [command] [options]

Commands:
  (none)      Poll in the foreground until interrupted
  install     Install as a background service
  start       Start the background service
  stop        Stop the background service
  uninstall   Remove the background service
  status      Show service status

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  surfstat watch                   Poll in the foreground
  surfstat watch install           Install service (polls every 10 minutes)
  surfstat watch install --interval 30m
  surfstat watch stop
`)
	}

	// Check for service commands before parsing flags
	var svcCommand string
	if len(args) > 0 {
		switch args[0] {
		case "install", "start", "stop", "uninstall", "status", "run":
			svcCommand = args[0]
			args = args[1:]
		}
	}

	fs.Parse(args)
	setupLogging(verbose)

	if interval <= 0 {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		interval = cfg.Interval()
	}

	svcConfig := &service.Config{
		Name:        "surfstat-watch",
		DisplayName: "surfstat Watch Service",
		Description: "Periodically records Windsurf usage snapshots",
		Arguments:   []string{"watch", "run", fmt.Sprintf("--interval=%s", interval)},
	}

	svc := &watchService{interval: interval}
	s, err := service.New(svc, svcConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating service: %v\n", err)
		os.Exit(1)
	}

	switch svcCommand {
	case "install":
		if err := s.Install(); err != nil {
			fmt.Fprintf(os.Stderr, "Error installing service: %v\n", err)
			os.Exit(1)
		}
		if err := s.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Service installed but failed to start: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service installed and started.")
		fmt.Printf("Polling interval: %s\n", interval)

	case "start":
		if err := s.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service started.")

	case "stop":
		if err := s.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error stopping service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service stopped.")

	case "uninstall":
		s.Stop() // ignore error
		if err := s.Uninstall(); err != nil {
			fmt.Fprintf(os.Stderr, "Error uninstalling service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service uninstalled.")

	case "status":
		status, err := s.Status()
		if err != nil {
			fmt.Printf("Service status: not installed or error (%v)\n", err)
			return
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service status: running")
		case service.StatusStopped:
			fmt.Println("Service status: stopped")
		default:
			fmt.Println("Service status: unknown")
		}

	case "run":
		// Running under the service manager
		logger, err := s.Logger(nil)
		if err == nil {
			svc.logger = logger
		}
		if err := s.Run(); err != nil {
			svc.errorf("Service run failed: %v", err)
		}

	default:
		// Foreground mode: same loop, stopped by Ctrl-C
		svc.stop = make(chan struct{})
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		go func() {
			<-interrupt
			close(svc.stop)
		}()
		fmt.Printf("Polling every %s. Press Ctrl-C to stop.\n", interval)
		svc.run()
	}
}
