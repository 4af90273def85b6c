package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"beaconscan/internal/beacon"
	"beaconscan/internal/bluetooth"
	"beaconscan/internal/config"
	"beaconscan/internal/db"
	"beaconscan/internal/gps"
	"beaconscan/internal/ids"
	"beaconscan/internal/logging"
	"beaconscan/internal/recorder"
	"beaconscan/internal/status"
	"beaconscan/internal/util"
)

type flags struct {
	configPath     string
	replayPath     string
	adapter        string
	window         time.Duration
	restartBlueZ   bool
	database       string
	cooldown       time.Duration
	types          string
	json           bool
	dataDir        string
	customDataDir  string
	statusInterval time.Duration
	logLevel       string
	logFile        string
	gpsMode        string
	gpsdAddr       string
	gpsDevice      string
	gpsBaud        int
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain runs the command and returns the process exit code, so deferred
// cleanup (log file, database) completes before the process exits.
func realMain(args []string) int {
	def := config.Default()
	var f flags
	fs := flag.NewFlagSet("beaconscan", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "YAML config file; flags override its values")
	fs.StringVar(&f.replayPath, "replay", "", "Replay advertisements from a JSON lines file instead of scanning")
	fs.StringVar(&f.adapter, "adapter", def.Adapter, "Bluetooth adapter to scan with (e.g. hci0). If empty, interactive selection is used.")
	fs.DurationVar(&f.window, "window", def.ScanWindow, "Length of each scan window")
	fs.BoolVar(&f.restartBlueZ, "restart-bluetooth", def.RestartBluetooth, "Preflight: restart bluetooth service if the adapter is missing (requires root + systemctl)")
	fs.StringVar(&f.database, "db", def.Database, "SQLite database path for sightings; empty disables persistence")
	fs.DurationVar(&f.cooldown, "cooldown", def.Cooldown, "Minimum time between stored sightings of the same beacon")
	fs.StringVar(&f.types, "types", "", "Comma-separated beacon types to report (e.g. iBeacon,eddystoneUid); empty reports all")
	fs.BoolVar(&f.json, "json", def.JSON, "Print one JSON object per beacon on stdout")
	fs.StringVar(&f.dataDir, "data-dir", def.DataDir, "Data directory root (expects default/ and custom/ subfolders)")
	fs.StringVar(&f.customDataDir, "custom-data-dir", "", "Optional custom data directory path (overrides <data-dir>/custom)")
	fs.DurationVar(&f.statusInterval, "status-interval", def.StatusInterval, "Console status interval; 0 disables")
	fs.StringVar(&f.logLevel, "log-level", def.Log.Level, "Log level: debug|info|warn|error")
	fs.StringVar(&f.logFile, "log-file", def.Log.File, "Log file path; '-' logs to stderr, empty disables")
	fs.StringVar(&f.gpsMode, "gps-mode", def.GPS.Mode, "GPS mode: auto|gpsd|serial|off")
	fs.StringVar(&f.gpsdAddr, "gpsd-addr", def.GPS.GPSDAddr, "gpsd TCP address")
	fs.StringVar(&f.gpsDevice, "gps-device", "", "GPS serial device path (e.g., /dev/ttyUSB0)")
	fs.IntVar(&f.gpsBaud, "gps-baud", def.GPS.SerialBaud, "GPS serial baud rate")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		return 2
	}
	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	applyFlags(&cfg, f, set)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		return 2
	}

	if cfg.JSON {
		util.SetConsoleOutput(os.Stderr)
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		return 1
	}
	defer logCloser.Close()

	if !cfg.JSON {
		printLogo()
	}

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	if err := run(ctx, cfg, f, logger); err != nil {
		if ctx.Err() != nil {
			util.Line("[EXIT]", util.ColorGray, "stopping")
			return 0
		}
		logger.Error().Err(err).Msg("fatal")
		util.Linef("[ERROR]", util.ColorYellow, "%v", err)
		return 1
	}
	return 0
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cfg *config.Config, f flags, set map[string]bool) {
	if set["adapter"] {
		cfg.Adapter = strings.TrimSpace(f.adapter)
	}
	if set["window"] {
		cfg.ScanWindow = f.window
	}
	if set["restart-bluetooth"] {
		cfg.RestartBluetooth = f.restartBlueZ
	}
	if set["db"] {
		cfg.Database = strings.TrimSpace(f.database)
	}
	if set["cooldown"] {
		cfg.Cooldown = f.cooldown
	}
	if set["types"] {
		cfg.Types = splitCSV(f.types)
	}
	if set["json"] {
		cfg.JSON = f.json
	}
	if set["data-dir"] {
		cfg.DataDir = strings.TrimSpace(f.dataDir)
	}
	if set["status-interval"] {
		cfg.StatusInterval = f.statusInterval
	}
	if set["log-level"] {
		cfg.Log.Level = f.logLevel
	}
	if set["log-file"] {
		cfg.Log.File = strings.TrimSpace(f.logFile)
	}
	if set["gps-mode"] {
		cfg.GPS.Mode = strings.ToLower(strings.TrimSpace(f.gpsMode))
	}
	if set["gpsd-addr"] {
		cfg.GPS.GPSDAddr = strings.TrimSpace(f.gpsdAddr)
	}
	if set["gps-device"] {
		cfg.GPS.SerialDev = strings.TrimSpace(f.gpsDevice)
	}
	if set["gps-baud"] {
		cfg.GPS.SerialBaud = f.gpsBaud
	}
}

func run(ctx context.Context, cfg config.Config, f flags, logger zerolog.Logger) error {
	types, err := cfg.BeaconTypes()
	if err != nil {
		return err
	}

	resolver, err := ids.Load(ids.LoadConfig{DataDir: cfg.DataDir, CustomDir: strings.TrimSpace(f.customDataDir)})
	if err != nil {
		return fmt.Errorf("failed to load data files: %w", err)
	}

	var store *db.Store
	if cfg.Database != "" {
		store, err = db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
	}

	gpsState := gps.NewState(5*time.Minute, logger)
	if cfg.GPS.Mode == gps.ModeSerial && cfg.GPS.SerialDev == "" {
		cfg.GPS.SerialDev = chooseSerialPort()
	}
	if cfg.GPS.Mode != gps.ModeOff && cfg.GPS.Mode != "" {
		if err := gpsState.Start(ctx, cfg.GPS); err != nil {
			// Scanning still works without positions.
			util.Linef("[WARN]", util.ColorYellow, "GPS not started: %v", err)
			logger.Warn().Err(err).Msg("gps start")
		} else {
			util.Line("[GPS]", util.ColorGray, "GPS reader started")
		}
	}

	replay := strings.TrimSpace(f.replayPath)
	adapter := cfg.Adapter
	if replay == "" {
		adapter, err = chooseAdapter(ctx, adapter, cfg.RestartBluetooth)
		if err != nil {
			return err
		}
	}

	var sessionID *int64
	if store != nil {
		source := "live"
		if replay != "" {
			source = "replay"
		}
		var gpsStart *string
		if fix, ok := gpsState.Position(); ok {
			s := fix.String()
			gpsStart = &s
		}
		id, err := store.CreateSession(ctx, util.NowTimestamp(), adapter, source, gpsStart)
		if err != nil {
			return fmt.Errorf("failed to create scan session: %w", err)
		}
		sessionID = &id
		util.Linef("[SESSION]", util.ColorGray, "id=%d adapter=%s source=%s", id, adapter, source)
	}

	var jsonOut io.Writer
	if cfg.JSON {
		jsonOut = os.Stdout
	}
	rec := recorder.New(store, gpsState, resolver, logger, recorder.Options{
		Types:     types,
		Cooldown:  cfg.Cooldown,
		JSON:      jsonOut,
		SessionID: sessionID,
	})

	if replay != "" {
		n, err := replayFile(ctx, replay, func(a *beacon.Advertisement) { rec.Handle(ctx, a) })
		logger.Info().Str("file", replay).Int("advertisements", n).Msg("replay finished")
		return err
	}

	if cfg.StatusInterval > 0 {
		go status.Run(ctx, cfg.StatusInterval, status.Provider{GPS: gpsState, Store: store, Seen: rec})
	}

	scanner, err := bluetooth.NewScanner(adapter, cfg.ScanWindow, logger)
	if err != nil {
		return fmt.Errorf("failed to enable adapter %s: %w", adapter, err)
	}
	util.Linef("[SCAN]", util.ColorGray, "scanning on %s", adapter)
	logger.Info().Str("adapter", adapter).Dur("window", cfg.ScanWindow).Msg("scan started")
	return scanner.Run(ctx, func(a *beacon.Advertisement) { rec.Handle(ctx, a) })
}

// chooseAdapter resolves the adapter to scan with, prompting when none is
// configured, and runs the BlueZ preflight on it.
func chooseAdapter(ctx context.Context, adapter string, restart bool) (string, error) {
	adapters, err := bluetooth.ListAdapters(ctx)
	if err != nil {
		util.Linef("[WARN]", util.ColorYellow, "failed to list Bluetooth adapters: %v", err)
	}
	if adapter == "" {
		adapter, err = selectAdapter(adapters, util.PromptString)
		if err != nil {
			return "", err
		}
	}
	if err := bluetooth.Preflight(ctx, adapter, bluetooth.PreflightOptions{RestartBluetoothService: restart}); err != nil {
		return "", err
	}
	return adapter, nil
}

func selectAdapter(adapters []bluetooth.AdapterInfo, prompt func(string) (string, error)) (string, error) {
	if len(adapters) == 0 {
		return "", fmt.Errorf("no Bluetooth adapters found")
	}
	if len(adapters) == 1 {
		return adapters[0].ID, nil
	}

	fmt.Fprintln(os.Stderr, "Available Bluetooth adapters:")
	for i, a := range adapters {
		fmt.Fprintf(os.Stderr, "%d: %s (%s %s)\n", i, a.ID, a.Address, a.Name)
	}
	s, err := prompt("Select the adapter to use [0]: ")
	if err != nil {
		return "", fmt.Errorf("invalid selection: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return adapters[0].ID, nil
	}
	var idx int
	if _, err := fmt.Sscanf(s, "%d", &idx); err != nil {
		// Accept an adapter id as well as an index.
		for _, a := range adapters {
			if a.ID == s {
				return a.ID, nil
			}
		}
		return "", fmt.Errorf("invalid adapter: %s", s)
	}
	if idx < 0 || idx >= len(adapters) {
		return "", fmt.Errorf("adapter index out of range: %d", idx)
	}
	return adapters[idx].ID, nil
}

// chooseSerialPort asks which serial port the GPS receiver is on. It returns
// "" when nothing was chosen.
func chooseSerialPort() string {
	ports, _ := gps.ListSerialPorts()
	if len(ports) == 0 {
		p, _ := util.PromptString("Enter GPS serial device path (e.g., /dev/ttyUSB0): ")
		return strings.TrimSpace(p)
	}
	fmt.Fprintln(os.Stderr, "Available serial ports:")
	for i, p := range ports {
		fmt.Fprintf(os.Stderr, "%d: %s\n", i, p)
	}
	s, err := util.PromptString("Select the serial port to use [0]: ")
	if err != nil {
		return ""
	}
	var idx int
	if s = strings.TrimSpace(s); s != "" {
		if _, err := fmt.Sscanf(s, "%d", &idx); err != nil {
			return s
		}
	}
	if idx < 0 || idx >= len(ports) {
		return ""
	}
	return ports[idx]
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		select {
		case <-ch:
		default:
		}
	}()
	return ctx, cancel
}

func printLogo() {
	logo := `
    __
   / /_  ___  ____ __________  ____  ______________ _____
  / __ \/ _ \/ __ '/ ___/ __ \/ __ \/ ___/ ___/ __ '/ __ \
 / /_/ /  __/ /_/ / /__/ /_/ / / / (__  ) /__/ /_/ / / / /
/_.___/\___/\__,_/\___/\____/_/ /_/____/\___/\__,_/_/ /_/
`
	fmt.Println(logo)
	fmt.Println("beaconscan - BLE beacon scanner")
}
