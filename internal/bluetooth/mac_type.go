package bluetooth

import (
	"strconv"
	"strings"
)

// addressKind names the BLE address type. Random addresses are split by the
// two most significant bits of the address:
//
//	00 non-resolvable private
//	01 resolvable private
//	10 reserved
//	11 static random
//
// Beacons normally advertise from public or static random addresses; phones
// emulating beacons rotate resolvable private ones.
func addressKind(random bool, address string) string {
	if !random {
		return "public"
	}
	address = strings.TrimSpace(address)
	if len(address) < 2 {
		return "random"
	}
	hi, err := strconv.ParseUint(address[:2], 16, 8)
	if err != nil {
		return "random"
	}
	switch hi >> 6 {
	case 0:
		return "non_resolvable_private"
	case 1:
		return "resolvable_private"
	case 2:
		return "reserved"
	default:
		return "static_random"
	}
}
