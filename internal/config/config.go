// Package config loads the scanner configuration from YAML. Command-line flags
// are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"beaconscan/internal/beacon"
	"beaconscan/internal/gps"
	"beaconscan/internal/logging"
)

type Config struct {
	Adapter          string        `yaml:"adapter"`
	ScanWindow       time.Duration `yaml:"scan_window"`
	RestartBluetooth bool          `yaml:"restart_bluetooth"`

	// Database is the SQLite path; empty disables persistence.
	Database string `yaml:"database"`
	// Cooldown throttles stored sightings per address and beacon type.
	Cooldown time.Duration `yaml:"cooldown"`

	// Types restricts output to these beacon types; empty means all.
	Types []string `yaml:"types"`
	JSON  bool     `yaml:"json"`

	DataDir        string        `yaml:"data_dir"`
	StatusInterval time.Duration `yaml:"status_interval"`

	Log logging.Config `yaml:"log"`
	GPS gps.Config     `yaml:"gps"`
}

func Default() Config {
	return Config{
		ScanWindow:       3 * time.Second,
		RestartBluetooth: true,
		Cooldown:         30 * time.Second,
		DataDir:          "./data",
		StatusInterval:   30 * time.Second,
		Log:              logging.Config{Level: "info", File: "app.log"},
		GPS:              gps.Config{Mode: gps.ModeOff, GPSDAddr: "127.0.0.1:2947", SerialBaud: 9600},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, err := c.BeaconTypes(); err != nil {
		return err
	}
	if c.ScanWindow < 0 || c.Cooldown < 0 || c.StatusInterval < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	switch c.GPS.Mode {
	case gps.ModeOff, gps.ModeAuto, gps.ModeGPSD, gps.ModeSerial, "":
	default:
		return fmt.Errorf("invalid gps mode %q (expected off|auto|gpsd|serial)", c.GPS.Mode)
	}
	return nil
}

// BeaconTypes returns Types as a set. A nil map means no filtering.
func (c Config) BeaconTypes() (map[beacon.Type]bool, error) {
	if len(c.Types) == 0 {
		return nil, nil
	}
	out := make(map[beacon.Type]bool, len(c.Types))
	for _, s := range c.Types {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		t, ok := beacon.ParseType(s)
		if !ok {
			return nil, fmt.Errorf("unknown beacon type %q", s)
		}
		out[t] = true
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
