package beacon

import "encoding/binary"

// rule is one step of classification. It reports the matched Type, or
// TypeUnknown to let the next rule run.
type rule func(a *Advertisement) Type

// rules run in priority order: service-data qualified formats before raw
// manufacturer-id sniffing.
var rules = []rule{
	classifyEddystone,
	classifyMinew,
	classifyIBeacon,
	classifyEstimoteTelemetry,
	classifyEstimoteNearable,
}

// Classify returns the beacon format of a, or TypeUnknown. It never reads past
// the end of any buffer.
func Classify(a *Advertisement) Type {
	if a == nil {
		return TypeUnknown
	}
	for _, r := range rules {
		if t := r(a); t != TypeUnknown {
			return t
		}
	}
	return TypeUnknown
}

func classifyEddystone(a *Advertisement) Type {
	sd, ok := a.serviceData(eddystoneServiceUUID)
	if !ok || len(sd.Data) < 1 {
		return TypeUnknown
	}
	switch sd.Data[0] >> 4 {
	case 0x0:
		return TypeEddystoneUID
	case 0x1:
		return TypeEddystoneURL
	case 0x2:
		return TypeEddystoneTLM
	case 0x3:
		return TypeEddystoneEID
	}
	return TypeUnknown
}

func classifyMinew(a *Advertisement) Type {
	if _, ok := a.serviceData(minewServiceUUID); ok {
		return TypeMinewSensor
	}
	return TypeUnknown
}

func classifyIBeacon(a *Advertisement) Type {
	m := a.ManufacturerData
	if len(m) >= 4 && binary.BigEndian.Uint32(m) == iBeaconPrefix {
		return TypeIBeacon
	}
	return TypeUnknown
}

func classifyEstimoteTelemetry(a *Advertisement) Type {
	sd, ok := a.serviceData(estimoteTelemetryServiceUUID)
	if ok && len(sd.Data) >= 1 {
		return TypeEstimoteTelemetry
	}
	return TypeUnknown
}

func classifyEstimoteNearable(a *Advertisement) Type {
	m := a.ManufacturerData
	if len(m) >= 2 && binary.LittleEndian.Uint16(m) == estimoteCompanyID {
		return TypeEstimoteNearable
	}
	return TypeUnknown
}
