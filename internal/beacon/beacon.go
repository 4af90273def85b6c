// Package beacon classifies BLE advertisements into known beacon formats and
// decodes them into a normalized Result.
package beacon

import "errors"

// Type identifies a beacon wire format. The empty Type means unrecognized.
type Type string

const (
	TypeUnknown           Type = ""
	TypeIBeacon           Type = "iBeacon"
	TypeEddystoneUID      Type = "eddystoneUid"
	TypeEddystoneURL      Type = "eddystoneUrl"
	TypeEddystoneTLM      Type = "eddystoneTlm"
	TypeEddystoneEID      Type = "eddystoneEid"
	TypeEstimoteTelemetry Type = "estimoteTelemetry"
	TypeEstimoteNearable  Type = "estimoteNearable"
	TypeMinewSensor       Type = "minewSensor"
)

// Types lists every recognized tag in classification priority order.
var Types = []Type{
	TypeEddystoneUID,
	TypeEddystoneURL,
	TypeEddystoneTLM,
	TypeEddystoneEID,
	TypeMinewSensor,
	TypeIBeacon,
	TypeEstimoteTelemetry,
	TypeEstimoteNearable,
}

// ParseType returns the Type for s, or false when s is not a known tag.
func ParseType(s string) (Type, bool) {
	for _, t := range Types {
		if string(t) == s {
			return t, true
		}
	}
	return TypeUnknown, false
}

const (
	eddystoneServiceUUID         = "feaa"
	minewServiceUUID             = "ffe1"
	estimoteTelemetryServiceUUID = "fe9a"

	iBeaconPrefix     uint32 = 0x4c000215
	estimoteCompanyID uint16 = 0x015d
)

var (
	// ErrMalformed is wrapped by decoders when the bytes behind a matched
	// signature cannot be decoded.
	ErrMalformed = errors.New("malformed beacon payload")
	// ErrNoPayload is returned when the advertisement lacks the section a
	// decoder reads from.
	ErrNoPayload = errors.New("beacon payload not present")
)

// ServiceData is one service-data section keyed by a short lower-case UUID
// (e.g. "feaa").
type ServiceData struct {
	UUID string
	Data []byte
}

// Advertisement is the input to Parse. It is never mutated.
//
// ManufacturerData carries the full section including the little-endian
// company identifier in its first two bytes.
type Advertisement struct {
	ID           string
	Address      string
	LocalName    string
	TxPowerLevel *int
	RSSI         int

	ManufacturerData []byte
	ServiceData      []ServiceData
}

// serviceData returns the first entry whose UUID equals uuid.
func (a *Advertisement) serviceData(uuid string) (ServiceData, bool) {
	if a == nil {
		return ServiceData{}, false
	}
	for _, sd := range a.ServiceData {
		if sd.UUID == uuid {
			return sd, true
		}
	}
	return ServiceData{}, false
}

// Payload is a decoded, format-specific record. BeaconType reports the tag the
// payload belongs to.
type Payload interface {
	BeaconType() Type
}
