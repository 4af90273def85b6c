package beacon

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// IBeacon is an Apple iBeacon frame.
type IBeacon struct {
	UUID    string `json:"uuid"`
	Major   uint16 `json:"major"`
	Minor   uint16 `json:"minor"`
	TxPower int    `json:"txPower"`
}

func (*IBeacon) BeaconType() Type { return TypeIBeacon }

// Layout after the 4-byte prefix 4C 00 02 15:
// proximity UUID (16) | major (2, BE) | minor (2, BE) | measured power (1, int8).
const iBeaconLen = 25

func decodeIBeacon(a *Advertisement) (Payload, error) {
	m := a.ManufacturerData
	if len(m) == 0 {
		return nil, ErrNoPayload
	}
	if len(m) < iBeaconLen {
		return nil, fmt.Errorf("ibeacon: %d bytes, want %d: %w", len(m), iBeaconLen, ErrMalformed)
	}
	id, err := uuid.FromBytes(m[4:20])
	if err != nil {
		return nil, fmt.Errorf("ibeacon: uuid: %w", ErrMalformed)
	}
	return &IBeacon{
		UUID:    strings.ToUpper(id.String()),
		Major:   binary.BigEndian.Uint16(m[20:22]),
		Minor:   binary.BigEndian.Uint16(m[22:24]),
		TxPower: int(int8(m[24])),
	}, nil
}
