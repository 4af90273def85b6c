package bluetooth

import (
	"encoding/binary"
	"strings"

	tg "tinygo.org/x/bluetooth"

	"beaconscan/internal/beacon"
)

const bluetoothBaseSuffix = "-0000-1000-8000-00805f9b34fb"

// newAdvertisement converts the fields of one tinygo scan result into the
// parser's input record.
//
// tinygo splits manufacturer data by company; the parser expects the raw
// section with the little-endian company id in front, so one element (see
// pickManufacturerData) is re-assembled that way.
//
// The tx power comes from the raw AD structures when the stack provides them.
// BlueZ does not, so txPowerHint (the device's cached TxPower property) is used
// instead.
func newAdvertisement(
	address string, rssi int, localName string, mfg []tg.ManufacturerDataElement, svcData []tg.ServiceDataElement,
	advBytes []byte, txPowerHint *int,
) *beacon.Advertisement {
	a := &beacon.Advertisement{
		ID:        deviceID(address),
		Address:   strings.ToLower(strings.TrimSpace(address)),
		LocalName: strings.TrimSpace(localName),
		RSSI:      rssi,
	}

	if e, ok := pickManufacturerData(mfg); ok {
		m := make([]byte, 2, 2+len(e.Data))
		binary.LittleEndian.PutUint16(m, e.CompanyID)
		a.ManufacturerData = append(m, e.Data...)
	}

	for _, s := range svcData {
		a.ServiceData = append(a.ServiceData, beacon.ServiceData{
			UUID: shortUUID(s.UUID.String()),
			Data: append([]byte(nil), s.Data...),
		})
	}

	if advBytes != nil {
		a.TxPowerLevel = txPowerFromAD(advBytes)
	}
	if a.TxPowerLevel == nil && txPowerHint != nil {
		v := *txPowerHint
		a.TxPowerLevel = &v
	}
	return a
}

// Company ids whose manufacturer sections carry beacon frames.
var beaconCompanyIDs = []uint16{0x004c, 0x015d}

// pickManufacturerData chooses the section handed to the parser. BlueZ reports
// sections in map order, so the choice must not depend on position: a beacon
// vendor's section wins, otherwise the lowest company id.
func pickManufacturerData(mfg []tg.ManufacturerDataElement) (tg.ManufacturerDataElement, bool) {
	if len(mfg) == 0 {
		return tg.ManufacturerDataElement{}, false
	}
	for _, id := range beaconCompanyIDs {
		for _, e := range mfg {
			if e.CompanyID == id {
				return e, true
			}
		}
	}
	best := mfg[0]
	for _, e := range mfg[1:] {
		if e.CompanyID < best.CompanyID {
			best = e
		}
	}
	return best, true
}

// deviceID derives a stable id from the address: lower-case hex without
// separators.
func deviceID(address string) string {
	return strings.ToLower(strings.NewReplacer(":", "", "-", "").Replace(strings.TrimSpace(address)))
}

// shortUUID reduces a 128-bit UUID built on the Bluetooth base UUID to its
// 4-digit lower-case form. Other UUIDs are returned lower-cased.
func shortUUID(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	if len(u) == 36 && strings.HasPrefix(u, "0000") && strings.HasSuffix(u, bluetoothBaseSuffix) {
		return u[4:8]
	}
	return u
}

// txPowerFromAD walks the raw AD structures and returns the Tx Power Level
// (type 0x0A) when present.
func txPowerFromAD(adv []byte) *int {
	for i := 0; i < len(adv); {
		l := int(adv[i])
		if l == 0 {
			break
		}
		if i+1+l > len(adv) {
			break
		}
		adType := adv[i+1]
		data := adv[i+2 : i+1+l]
		if adType == 0x0A && len(data) >= 1 {
			v := int(int8(data[0]))
			return &v
		}
		i += 1 + l
	}
	return nil
}
