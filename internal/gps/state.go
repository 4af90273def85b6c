// Package gps tracks the scanner position from gpsd or an NMEA serial
// receiver so sightings can be geotagged.
package gps

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	ModeOff    = "off"
	ModeAuto   = "auto"
	ModeGPSD   = "gpsd"
	ModeSerial = "serial"
)

type Config struct {
	// Mode: off|auto|gpsd|serial
	Mode string `yaml:"mode"`
	// GPSDAddr: host:port, e.g. 127.0.0.1:2947
	GPSDAddr string `yaml:"gpsd_addr"`
	// SerialDev: e.g. /dev/ttyUSB0. Auto-detected when empty.
	SerialDev  string `yaml:"serial_device"`
	SerialBaud int    `yaml:"serial_baud"`
}

// Fix is a position snapshot. Cached is set when the fix is older than the
// freshness timeout.
type Fix struct {
	Lat    float64
	Lon    float64
	Cached bool
}

func (f Fix) String() string {
	if f.Cached {
		return fmt.Sprintf("(%f, %f)", f.Lat, f.Lon)
	}
	return fmt.Sprintf("%f, %f", f.Lat, f.Lon)
}

type State struct {
	mu sync.RWMutex

	lat, lon   float64
	lastFix    time.Time
	lastPacket time.Time
	source     string

	timeout time.Duration
	log     zerolog.Logger
}

// NewState returns a State whose fixes are fresh for timeout.
func NewState(timeout time.Duration, log zerolog.Logger) *State {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &State{timeout: timeout, log: log}
}

// Position returns the last known fix. ok is false until a fix arrives. A nil
// State never has a position.
func (s *State) Position() (fix Fix, ok bool) {
	if s == nil {
		return Fix{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastFix.IsZero() {
		return Fix{}, false
	}
	return Fix{Lat: s.lat, Lon: s.lon, Cached: time.Since(s.lastFix) > s.timeout}, true
}

// LastPacket returns how long ago the reader last received any line, fix or
// not. ok is false until the first line arrives.
func (s *State) LastPacket() (age time.Duration, ok bool) {
	if s == nil {
		return 0, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastPacket.IsZero() {
		return 0, false
	}
	return time.Since(s.lastPacket), true
}

// Source returns the active reader kind: "gpsd", "serial", or "".
func (s *State) Source() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Start launches the reader selected by cfg. Readers reconnect until ctx is
// cancelled.
func (s *State) Start(ctx context.Context, cfg Config) error {
	cfg = normalizeConfig(cfg)
	switch cfg.Mode {
	case ModeOff:
		return nil
	case ModeGPSD:
		go s.runLoop(ctx, ModeGPSD, func(ctx context.Context) error { return s.readGPSD(ctx, cfg.GPSDAddr) })
	case ModeSerial:
		if cfg.SerialDev == "" {
			return errors.New("gps serial mode requires a device path")
		}
		go s.runLoop(ctx, ModeSerial, func(ctx context.Context) error { return s.readSerial(ctx, cfg.SerialDev, cfg.SerialBaud) })
	case ModeAuto:
		if canConnectGPSD(cfg.GPSDAddr, 800*time.Millisecond) {
			return s.Start(ctx, Config{Mode: ModeGPSD, GPSDAddr: cfg.GPSDAddr})
		}
		dev := cfg.SerialDev
		if dev == "" {
			dev = GuessSerialDevice()
		}
		if dev == "" {
			return fmt.Errorf("gps auto mode: gpsd not reachable at %s and no serial device detected", cfg.GPSDAddr)
		}
		return s.Start(ctx, Config{Mode: ModeSerial, SerialDev: dev, SerialBaud: cfg.SerialBaud})
	default:
		return fmt.Errorf("invalid gps mode: %q", cfg.Mode)
	}
	return nil
}

func normalizeConfig(cfg Config) Config {
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	if cfg.Mode == "" {
		cfg.Mode = ModeOff
	}
	cfg.GPSDAddr = strings.TrimSpace(cfg.GPSDAddr)
	if cfg.GPSDAddr == "" {
		cfg.GPSDAddr = "127.0.0.1:2947"
	}
	cfg.SerialDev = strings.TrimSpace(cfg.SerialDev)
	if cfg.SerialBaud <= 0 {
		cfg.SerialBaud = 9600
	}
	return cfg
}

func canConnectGPSD(addr string, timeout time.Duration) bool {
	c, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

func (s *State) runLoop(ctx context.Context, kind string, read func(context.Context) error) {
	for {
		s.setSource(kind)
		err := read(ctx)
		s.setSource("")
		if ctx.Err() != nil {
			return
		}
		s.log.Warn().Err(err).Str("source", kind).Msg("gps reader disconnected")
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (s *State) setSource(kind string) {
	s.mu.Lock()
	s.source = kind
	s.mu.Unlock()
}

func (s *State) updateFix(lat, lon float64) {
	s.mu.Lock()
	s.lat, s.lon = lat, lon
	s.lastFix = time.Now()
	s.mu.Unlock()
}

func (s *State) updatePacket() {
	s.mu.Lock()
	s.lastPacket = time.Now()
	s.mu.Unlock()
}
