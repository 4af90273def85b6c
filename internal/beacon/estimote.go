package beacon

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// Vector is a three-axis reading.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// EstimoteTelemetry is an Estimote Telemetry frame. Fields of the subframe that
// was not received stay nil.
type EstimoteTelemetry struct {
	ID              string `json:"id"`
	ProtocolVersion int    `json:"protocolVersion"`
	Subframe        string `json:"subframe"` // "A" or "B"

	// Subframe A.
	Acceleration                *Vector `json:"acceleration,omitempty"` // g
	Moving                      *bool   `json:"moving,omitempty"`
	CurrentMotionStateDuration  *uint64 `json:"currentMotionStateDuration,omitempty"`  // seconds
	PreviousMotionStateDuration *uint64 `json:"previousMotionStateDuration,omitempty"` // seconds
	GPIO                        []bool  `json:"gpio,omitempty"`

	// Subframe B.
	MagneticField  *Vector  `json:"magneticField,omitempty"`  // normalized -1..1
	AmbientLight   *float64 `json:"ambientLight,omitempty"`   // lux
	Uptime         *uint64  `json:"uptime,omitempty"`         // seconds
	Temperature    *float64 `json:"temperature,omitempty"`    // degrees C
	BatteryVoltage *int     `json:"batteryVoltage,omitempty"` // mV
	BatteryLevel   *int     `json:"batteryLevel,omitempty"`   // percent
}

// EstimoteNearable is an Estimote Nearable (sticker) frame carried in
// manufacturer data.
type EstimoteNearable struct {
	ID                          string  `json:"id"`
	Temperature                 float64 `json:"temperature"` // degrees C
	Moving                      bool    `json:"moving"`
	Acceleration                Vector  `json:"acceleration"` // mg
	CurrentMotionStateDuration  uint64  `json:"currentMotionStateDuration"`
	PreviousMotionStateDuration uint64  `json:"previousMotionStateDuration"`
	TxPower                     *int    `json:"txPower,omitempty"`
}

func (*EstimoteTelemetry) BeaconType() Type { return TypeEstimoteTelemetry }
func (*EstimoteNearable) BeaconType() Type  { return TypeEstimoteNearable }

const (
	estimoteTelemetryFrame = 0x02
	estimoteNearableFrame  = 0x01

	estimoteTelemetryMin = 10
	estimoteSubframeALen = 16
	estimoteSubframeBLen = 19
	estimoteNearableLen  = 22

	batteryVoltageUnknown = 0x3fff
)

var nearablePower = []int{-30, -20, -16, -12, -8, -4, 0, 4}

func decodeEstimoteTelemetry(a *Advertisement) (Payload, error) {
	sd, ok := a.serviceData(estimoteTelemetryServiceUUID)
	if !ok || len(sd.Data) == 0 {
		return nil, ErrNoPayload
	}
	d := sd.Data
	if d[0]&0x0f != estimoteTelemetryFrame {
		return nil, fmt.Errorf("estimote telemetry: frame type 0x%x: %w", d[0]&0x0f, ErrMalformed)
	}
	if len(d) < estimoteTelemetryMin {
		return nil, fmt.Errorf("estimote telemetry: %d bytes: %w", len(d), ErrMalformed)
	}
	t := &EstimoteTelemetry{
		ID:              strings.ToUpper(hex.EncodeToString(d[1:9])),
		ProtocolVersion: int(d[0] >> 4),
	}
	switch d[9] & 0x03 {
	case 0:
		if len(d) < estimoteSubframeALen {
			return nil, fmt.Errorf("estimote telemetry A: %d bytes: %w", len(d), ErrMalformed)
		}
		t.Subframe = "A"
		t.Acceleration = &Vector{
			X: float64(int8(d[10])) * 2 / 127,
			Y: float64(int8(d[11])) * 2 / 127,
			Z: float64(int8(d[12])) * 2 / 127,
		}
		prev := motionDuration(d[13])
		cur := motionDuration(d[14])
		moving := d[15]&0x03 == 0x01
		t.PreviousMotionStateDuration = &prev
		t.CurrentMotionStateDuration = &cur
		t.Moving = &moving
		t.GPIO = []bool{d[15]&0x10 != 0, d[15]&0x20 != 0, d[15]&0x40 != 0, d[15]&0x80 != 0}
	case 1:
		if len(d) < estimoteSubframeBLen {
			return nil, fmt.Errorf("estimote telemetry B: %d bytes: %w", len(d), ErrMalformed)
		}
		t.Subframe = "B"
		t.MagneticField = &Vector{
			X: float64(int8(d[10])) / 128,
			Y: float64(int8(d[11])) / 128,
			Z: float64(int8(d[12])) / 128,
		}
		lux := math.Pow(2, float64(d[13]>>4)) * float64(d[13]&0x0f) * 0.72
		t.AmbientLight = &lux

		up := uint64(binary.LittleEndian.Uint16(d[14:16]) & 0x0fff)
		switch (d[15] >> 4) & 0x03 {
		case 1:
			up *= 60
		case 2:
			up *= 3600
		case 3:
			up *= 86400
		}
		t.Uptime = &up

		raw := int(d[17]&0x03)<<10 | int(d[16])<<2 | int(d[15]>>6)
		if raw > 2047 {
			raw -= 4096
		}
		temp := float64(raw) / 16
		t.Temperature = &temp

		mv := int(d[18])<<6 | int(d[17]>>2)
		if mv != batteryVoltageUnknown {
			t.BatteryVoltage = &mv
		}
		if len(d) > 19 && d[19] != 0xff {
			lvl := int(d[19])
			t.BatteryLevel = &lvl
		}
	default:
		return nil, fmt.Errorf("estimote telemetry: subframe %d: %w", d[9]&0x03, ErrMalformed)
	}
	return t, nil
}

func decodeEstimoteNearable(a *Advertisement) (Payload, error) {
	m := a.ManufacturerData
	if len(m) == 0 {
		return nil, ErrNoPayload
	}
	if len(m) < estimoteNearableLen {
		return nil, fmt.Errorf("estimote nearable: %d bytes: %w", len(m), ErrMalformed)
	}
	if m[2] != estimoteNearableFrame {
		return nil, fmt.Errorf("estimote nearable: frame 0x%02x: %w", m[2], ErrMalformed)
	}
	raw := int(m[14]&0x0f)<<8 | int(m[13])
	if raw > 2047 {
		raw -= 4096
	}
	n := &EstimoteNearable{
		ID:          strings.ToUpper(hex.EncodeToString(m[3:11])),
		Temperature: float64(raw) / 16,
		Moving:      m[15]&0x40 != 0,
		Acceleration: Vector{
			X: float64(int8(m[16])) * 15.625,
			Y: float64(int8(m[17])) * 15.625,
			Z: float64(int8(m[18])) * 15.625,
		},
		CurrentMotionStateDuration:  motionDuration(m[19]),
		PreviousMotionStateDuration: motionDuration(m[20]),
	}
	if idx := int(m[21] & 0x0f); idx < len(nearablePower) {
		p := nearablePower[idx]
		n.TxPower = &p
	}
	return n, nil
}

// motionDuration decodes a motion-state duration byte into seconds: the top
// two bits select the unit, the low six bits hold the value. In the days unit
// values of 32 and above count weeks.
func motionDuration(b byte) uint64 {
	v := uint64(b & 0x3f)
	switch b >> 6 {
	case 1:
		return v * 60
	case 2:
		return v * 3600
	case 3:
		if v < 32 {
			return v * 86400
		}
		return (v - 32) * 7 * 86400
	}
	return v
}
