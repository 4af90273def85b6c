package gps

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"go.bug.st/serial"
)

func (s *State) readGPSD(ctx context.Context, addr string) error {
	conn, err := (&net.Dialer{Timeout: 2 * time.Second}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	go closeOnDone(ctx, conn)

	if _, err := conn.Write([]byte("?WATCH={\"enable\":true,\"json\":true}\n")); err != nil {
		return err
	}
	return s.consume(ctx, conn, s.applyGPSD)
}

func (s *State) readSerial(ctx context.Context, dev string, baud int) error {
	port, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return err
	}
	defer port.Close()
	go closeOnDone(ctx, port)

	return s.consume(ctx, port, s.applyNMEA)
}

func closeOnDone(ctx context.Context, c io.Closer) {
	<-ctx.Done()
	_ = c.Close()
}

func (s *State) consume(ctx context.Context, r io.Reader, apply func(string) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		s.updatePacket()
		apply(line)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return errors.New("gps stream closed")
}

type gpsdTPV struct {
	Class string       `json:"class"`
	Mode  *json.Number `json:"mode"`
	Lat   *float64     `json:"lat"`
	Lon   *float64     `json:"lon"`
}

// applyGPSD records a fix from a gpsd TPV report with mode >= 2.
func (s *State) applyGPSD(line string) bool {
	var tpv gpsdTPV
	if err := json.Unmarshal([]byte(line), &tpv); err != nil {
		return false
	}
	if tpv.Class != "TPV" || tpv.Mode == nil || tpv.Lat == nil || tpv.Lon == nil {
		return false
	}
	if mode, err := tpv.Mode.Int64(); err != nil || mode < 2 {
		return false
	}
	s.updateFix(*tpv.Lat, *tpv.Lon)
	return true
}

// applyNMEA records a fix from a valid RMC, GGA, GLL or GNS sentence.
func (s *State) applyNMEA(line string) bool {
	if !strings.HasPrefix(line, "$") {
		return false
	}
	sent, err := nmea.Parse(line)
	if err != nil {
		return false
	}
	switch v := sent.(type) {
	case nmea.RMC:
		if strings.EqualFold(v.Validity, "A") {
			s.updateFix(v.Latitude, v.Longitude)
			return true
		}
	case nmea.GGA:
		if v.FixQuality != "0" && (v.Latitude != 0 || v.Longitude != 0) {
			s.updateFix(v.Latitude, v.Longitude)
			return true
		}
	case nmea.GLL:
		if strings.EqualFold(v.Validity, "A") {
			s.updateFix(v.Latitude, v.Longitude)
			return true
		}
	case nmea.GNS:
		if v.Latitude != 0 || v.Longitude != 0 {
			s.updateFix(v.Latitude, v.Longitude)
			return true
		}
	}
	return false
}
