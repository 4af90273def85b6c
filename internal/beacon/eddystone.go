package beacon

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// EddystoneUID is an Eddystone-UID frame.
type EddystoneUID struct {
	TxPower   int    `json:"txPower"`
	Namespace string `json:"namespace"`
	Instance  string `json:"instance"`
}

// EddystoneURL is an Eddystone-URL frame with the URL fully expanded.
type EddystoneURL struct {
	TxPower int    `json:"txPower"`
	URL     string `json:"url"`
}

// EddystoneTLM is an unencrypted Eddystone-TLM frame.
type EddystoneTLM struct {
	Version        int     `json:"version"`
	BatteryVoltage int     `json:"batteryVoltage"` // mV, 0 when unsupported
	Temperature    float64 `json:"temperature"`    // degrees C
	AdvCnt         uint32  `json:"advCnt"`
	SecCnt         uint32  `json:"secCnt"` // 0.1 s resolution
}

// EddystoneEID is an Eddystone-EID frame.
type EddystoneEID struct {
	TxPower int    `json:"txPower"`
	EID     string `json:"eid"`
}

func (*EddystoneUID) BeaconType() Type { return TypeEddystoneUID }
func (*EddystoneURL) BeaconType() Type { return TypeEddystoneURL }
func (*EddystoneTLM) BeaconType() Type { return TypeEddystoneTLM }
func (*EddystoneEID) BeaconType() Type { return TypeEddystoneEID }

const (
	eddystoneUIDLen = 18
	eddystoneURLMin = 3
	eddystoneTLMLen = 14
	eddystoneEIDLen = 10
)

var urlSchemes = []string{"http://www.", "https://www.", "http://", "https://"}

var urlExpansions = []string{
	".com/", ".org/", ".edu/", ".net/", ".info/", ".biz/", ".gov/",
	".com", ".org", ".edu", ".net", ".info", ".biz", ".gov",
}

func eddystoneFrame(a *Advertisement, want int) ([]byte, error) {
	sd, ok := a.serviceData(eddystoneServiceUUID)
	if !ok || len(sd.Data) == 0 {
		return nil, ErrNoPayload
	}
	if len(sd.Data) < want {
		return nil, fmt.Errorf("eddystone: %d bytes, want %d: %w", len(sd.Data), want, ErrMalformed)
	}
	return sd.Data, nil
}

func decodeEddystoneUID(a *Advertisement) (Payload, error) {
	d, err := eddystoneFrame(a, eddystoneUIDLen)
	if err != nil {
		return nil, err
	}
	return &EddystoneUID{
		TxPower:   int(int8(d[1])),
		Namespace: strings.ToUpper(hex.EncodeToString(d[2:12])),
		Instance:  strings.ToUpper(hex.EncodeToString(d[12:18])),
	}, nil
}

func decodeEddystoneURL(a *Advertisement) (Payload, error) {
	d, err := eddystoneFrame(a, eddystoneURLMin)
	if err != nil {
		return nil, err
	}
	scheme := int(d[2])
	if scheme >= len(urlSchemes) {
		return nil, fmt.Errorf("eddystone url: scheme 0x%02x: %w", scheme, ErrMalformed)
	}
	var b strings.Builder
	b.WriteString(urlSchemes[scheme])
	for _, c := range d[3:] {
		switch {
		case int(c) < len(urlExpansions):
			b.WriteString(urlExpansions[c])
		case c > 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			return nil, fmt.Errorf("eddystone url: byte 0x%02x: %w", c, ErrMalformed)
		}
	}
	return &EddystoneURL{TxPower: int(int8(d[1])), URL: b.String()}, nil
}

func decodeEddystoneTLM(a *Advertisement) (Payload, error) {
	d, err := eddystoneFrame(a, eddystoneTLMLen)
	if err != nil {
		return nil, err
	}
	// Version 1 is the encrypted TLM variant.
	if d[1] != 0 {
		return nil, fmt.Errorf("eddystone tlm: version %d: %w", d[1], ErrMalformed)
	}
	return &EddystoneTLM{
		Version:        int(d[1]),
		BatteryVoltage: int(binary.BigEndian.Uint16(d[2:4])),
		Temperature:    float64(int16(binary.BigEndian.Uint16(d[4:6]))) / 256,
		AdvCnt:         binary.BigEndian.Uint32(d[6:10]),
		SecCnt:         binary.BigEndian.Uint32(d[10:14]),
	}, nil
}

func decodeEddystoneEID(a *Advertisement) (Payload, error) {
	d, err := eddystoneFrame(a, eddystoneEIDLen)
	if err != nil {
		return nil, err
	}
	return &EddystoneEID{
		TxPower: int(int8(d[1])),
		EID:     strings.ToUpper(hex.EncodeToString(d[2:10])),
	}, nil
}
