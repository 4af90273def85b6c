package beacon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func iBeaconManufacturerData() []byte {
	return []byte{
		0x4c, 0x00, 0x02, 0x15,
		0xe2, 0xc5, 0x6d, 0xb5, 0xdf, 0xfb, 0x48, 0xd2,
		0xb0, 0x60, 0xd0, 0xf5, 0xa7, 0x10, 0x96, 0xe0,
		0x00, 0x01,
		0x00, 0x02,
		0xc5,
	}
}

func svc(uuid string, data ...byte) ServiceData {
	return ServiceData{UUID: uuid, Data: data}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		adv  *Advertisement
		want Type
	}{
		{"nil advertisement", nil, TypeUnknown},
		{"empty advertisement", &Advertisement{}, TypeUnknown},
		{"eddystone uid", &Advertisement{ServiceData: []ServiceData{svc("feaa", 0x00)}}, TypeEddystoneUID},
		{"eddystone url", &Advertisement{ServiceData: []ServiceData{svc("feaa", 0x10)}}, TypeEddystoneURL},
		{"eddystone tlm", &Advertisement{ServiceData: []ServiceData{svc("feaa", 0x20)}}, TypeEddystoneTLM},
		{"eddystone eid", &Advertisement{ServiceData: []ServiceData{svc("feaa", 0x30)}}, TypeEddystoneEID},
		{"eddystone low nibble ignored", &Advertisement{ServiceData: []ServiceData{svc("feaa", 0x0f)}}, TypeEddystoneUID},
		{"eddystone unknown frame", &Advertisement{ServiceData: []ServiceData{svc("feaa", 0x40)}}, TypeUnknown},
		{"eddystone empty data", &Advertisement{ServiceData: []ServiceData{svc("feaa")}}, TypeUnknown},
		{
			"eddystone unknown frame falls through to ibeacon",
			&Advertisement{ManufacturerData: iBeaconManufacturerData(), ServiceData: []ServiceData{svc("feaa", 0x50)}},
			TypeIBeacon,
		},
		{
			"eddystone beats ibeacon",
			&Advertisement{ManufacturerData: iBeaconManufacturerData(), ServiceData: []ServiceData{svc("feaa", 0x00)}},
			TypeEddystoneUID,
		},
		{"minew without data", &Advertisement{ServiceData: []ServiceData{svc("ffe1")}}, TypeMinewSensor},
		{
			"minew beats ibeacon",
			&Advertisement{ManufacturerData: iBeaconManufacturerData(), ServiceData: []ServiceData{svc("ffe1", 0xa1)}},
			TypeMinewSensor,
		},
		{
			"eddystone beats minew",
			&Advertisement{ServiceData: []ServiceData{svc("ffe1", 0xa1), svc("feaa", 0x20)}},
			TypeEddystoneTLM,
		},
		{"ibeacon", &Advertisement{ManufacturerData: iBeaconManufacturerData()}, TypeIBeacon},
		{"ibeacon prefix only", &Advertisement{ManufacturerData: []byte{0x4c, 0x00, 0x02, 0x15}}, TypeIBeacon},
		{"apple non-beacon", &Advertisement{ManufacturerData: []byte{0x4c, 0x00, 0x10, 0x05}}, TypeUnknown},
		{"three byte manufacturer data", &Advertisement{ManufacturerData: []byte{0x4c, 0x00, 0x02}}, TypeUnknown},
		{
			"ibeacon beats estimote telemetry",
			&Advertisement{ManufacturerData: iBeaconManufacturerData(), ServiceData: []ServiceData{svc("fe9a", 0x22)}},
			TypeIBeacon,
		},
		{"estimote telemetry", &Advertisement{ServiceData: []ServiceData{svc("fe9a", 0x22)}}, TypeEstimoteTelemetry},
		{"estimote telemetry empty", &Advertisement{ServiceData: []ServiceData{svc("fe9a")}}, TypeUnknown},
		{
			"estimote telemetry beats nearable",
			&Advertisement{ManufacturerData: []byte{0x5d, 0x01}, ServiceData: []ServiceData{svc("fe9a", 0x22)}},
			TypeEstimoteTelemetry,
		},
		{"estimote nearable", &Advertisement{ManufacturerData: []byte{0x5d, 0x01, 0x01}}, TypeEstimoteNearable},
		{"short nearable company id", &Advertisement{ManufacturerData: []byte{0x5d}}, TypeUnknown},
		{"wrong byte order", &Advertisement{ManufacturerData: []byte{0x01, 0x5d}}, TypeUnknown},
		{"uuid match is exact", &Advertisement{ServiceData: []ServiceData{svc("FEAA", 0x00)}}, TypeUnknown},
		{
			"first matching service data entry wins",
			&Advertisement{ServiceData: []ServiceData{svc("feaa", 0x40), svc("feaa", 0x00)}},
			TypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.adv))
		})
	}
}

func TestClassify_ServiceDataOverridesManufacturerData(t *testing.T) {
	manufacturer := [][]byte{
		nil,
		{0x5d, 0x01},
		iBeaconManufacturerData(),
		{0xff, 0xff, 0xff, 0xff, 0xff},
	}
	for _, m := range manufacturer {
		a := &Advertisement{
			ManufacturerData: m,
			ServiceData:      []ServiceData{svc("feaa", 0x00, 0x01, 0x02)},
		}
		assert.Equal(t, TypeEddystoneUID, Classify(a), "manufacturer data % x", m)
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range Types {
		got, ok := ParseType(string(typ))
		assert.True(t, ok)
		assert.Equal(t, typ, got)
	}

	_, ok := ParseType("minewSensors")
	assert.False(t, ok)
	_, ok = ParseType("")
	assert.False(t, ok)
}
