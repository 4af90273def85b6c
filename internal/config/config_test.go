package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beaconscan/internal/beacon"
	"beaconscan/internal/gps"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beaconscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 3*time.Second, cfg.ScanWindow)
	assert.Equal(t, gps.ModeOff, cfg.GPS.Mode)

	types, err := cfg.BeaconTypes()
	require.NoError(t, err)
	assert.Nil(t, types)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
adapter: hci1
scan_window: 5s
database: /tmp/beacons.db
cooldown: 1m
types: [iBeacon, eddystoneTlm]
json: true
log:
  level: debug
  file: "-"
gps:
  mode: serial
  serial_device: /dev/ttyACM0
  serial_baud: 4800
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hci1", cfg.Adapter)
	assert.Equal(t, 5*time.Second, cfg.ScanWindow)
	assert.Equal(t, "/tmp/beacons.db", cfg.Database)
	assert.Equal(t, time.Minute, cfg.Cooldown)
	assert.True(t, cfg.JSON)
	assert.True(t, cfg.RestartBluetooth, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "-", cfg.Log.File)
	assert.Equal(t, gps.ModeSerial, cfg.GPS.Mode)
	assert.Equal(t, "/dev/ttyACM0", cfg.GPS.SerialDev)
	assert.Equal(t, 4800, cfg.GPS.SerialBaud)
	assert.Equal(t, "127.0.0.1:2947", cfg.GPS.GPSDAddr)

	types, err := cfg.BeaconTypes()
	require.NoError(t, err)
	assert.Equal(t, map[beacon.Type]bool{beacon.TypeIBeacon: true, beacon.TypeEddystoneTLM: true}, types)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeFile(t, "types: [minewSensors]\n"))
	assert.ErrorContains(t, err, "minewSensors")

	_, err = Load(writeFile(t, "gps:\n  mode: bluetooth\n"))
	assert.ErrorContains(t, err, "gps mode")

	_, err = Load(writeFile(t, "adapter: [\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
