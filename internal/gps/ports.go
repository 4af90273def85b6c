package gps

import (
	"os"
	"path/filepath"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// ListSerialPorts returns serial device paths, preferring detailed USB
// enumeration.
func ListSerialPorts() ([]string, error) {
	detailed, err := enumerator.GetDetailedPortsList()
	if err == nil && len(detailed) > 0 {
		out := make([]string, 0, len(detailed))
		for _, p := range detailed {
			out = append(out, p.Name)
		}
		return out, nil
	}
	return serial.GetPortsList()
}

// GuessSerialDevice returns a likely GPS receiver path or "".
func GuessSerialDevice() string {
	if matches, _ := filepath.Glob("/dev/serial/by-id/*"); len(matches) > 0 {
		return matches[0]
	}
	if ports, _ := ListSerialPorts(); len(ports) > 0 {
		return ports[0]
	}
	for _, c := range []string{"/dev/ttyACM0", "/dev/ttyUSB0", "/dev/ttyAMA0"} {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
