package beacon

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// MinewSensor is a Minew sensor frame (service data UUID ffe1). Which reading
// fields are set depends on Product.
type MinewSensor struct {
	FrameType    int      `json:"frameType"`
	Product      string   `json:"product"`
	Battery      int      `json:"battery"` // percent
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	Light        *bool    `json:"light,omitempty"`
	Acceleration *Vector  `json:"acceleration,omitempty"`
	Name         string   `json:"name,omitempty"`
	MACAddress   string   `json:"macAddress"`
}

func (*MinewSensor) BeaconType() Type { return TypeMinewSensor }

const minewSensorFrame = 0xa1

const (
	MinewProductTemperatureHumidity = "temperatureHumidity"
	MinewProductLight               = "light"
	MinewProductAccelerometer       = "accelerometer"
	MinewProductInfo                = "info"
)

func decodeMinewSensor(a *Advertisement) (Payload, error) {
	sd, ok := a.serviceData(minewServiceUUID)
	if !ok || len(sd.Data) == 0 {
		return nil, ErrNoPayload
	}
	d := sd.Data
	if len(d) < 3 {
		return nil, fmt.Errorf("minew: %d bytes: %w", len(d), ErrMalformed)
	}
	if d[0] != minewSensorFrame {
		return nil, fmt.Errorf("minew: frame 0x%02x: %w", d[0], ErrMalformed)
	}
	s := &MinewSensor{FrameType: int(d[0]), Battery: int(d[2])}

	need := func(n int) error {
		if len(d) < n {
			return fmt.Errorf("minew %s: %d bytes, want %d: %w", s.Product, len(d), n, ErrMalformed)
		}
		return nil
	}

	switch d[1] {
	case 0x01:
		s.Product = MinewProductTemperatureHumidity
		if err := need(13); err != nil {
			return nil, err
		}
		temp := fixed88(d[3:5])
		hum := float64(binary.BigEndian.Uint16(d[5:7])) / 256
		s.Temperature = &temp
		s.Humidity = &hum
		s.MACAddress = reversedMAC(d[7:13])
	case 0x02:
		s.Product = MinewProductLight
		if err := need(10); err != nil {
			return nil, err
		}
		light := d[3] == 0x01
		s.Light = &light
		s.MACAddress = reversedMAC(d[4:10])
	case 0x03:
		s.Product = MinewProductAccelerometer
		if err := need(15); err != nil {
			return nil, err
		}
		s.Acceleration = &Vector{X: fixed88(d[3:5]), Y: fixed88(d[5:7]), Z: fixed88(d[7:9])}
		s.MACAddress = reversedMAC(d[9:15])
	case 0x08:
		s.Product = MinewProductInfo
		if err := need(9); err != nil {
			return nil, err
		}
		s.MACAddress = reversedMAC(d[3:9])
		s.Name = strings.TrimRight(string(d[9:]), "\x00")
	default:
		return nil, fmt.Errorf("minew: product 0x%02x: %w", d[1], ErrMalformed)
	}
	return s, nil
}

// fixed88 reads a signed big-endian 8.8 fixed point value.
func fixed88(b []byte) float64 {
	return float64(int16(binary.BigEndian.Uint16(b))) / 256
}

// reversedMAC formats a little-endian 6-byte address as AA:BB:CC:DD:EE:FF.
func reversedMAC(b []byte) string {
	parts := make([]string, 0, len(b))
	for i := len(b) - 1; i >= 0; i-- {
		parts = append(parts, fmt.Sprintf("%02X", b[i]))
	}
	return strings.Join(parts, ":")
}
