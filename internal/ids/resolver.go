package ids

import (
	"strings"

	"beaconscan/internal/beacon"
)

// Resolver names what the scanner sees:
//
// - Vendor names are resolved by MAC OUI (from oui.csv).
// - Known beacons are labelled from beacons.yaml.
//
// A nil Resolver resolves nothing.
type Resolver struct {
	vendors map[string]string
	labels  []Label
}

func (r *Resolver) VendorForMAC(mac string) string {
	if r == nil || len(r.vendors) == 0 {
		return ""
	}
	oui := macToOUI(mac)
	if oui == "" {
		return ""
	}
	return r.vendors[oui]
}

// LabelFor returns the name of the first label matching res, or "".
func (r *Resolver) LabelFor(res *beacon.Result) string {
	if r == nil || res == nil {
		return ""
	}
	for _, l := range r.labels {
		if l.matches(res) {
			return l.Name
		}
	}
	return ""
}

func macToOUI(mac string) string {
	mac = strings.TrimSpace(mac)
	if mac == "" {
		return ""
	}
	// Expected formats: AA:BB:CC:DD:EE:FF or AA-BB-CC-DD-EE-FF
	parts := strings.FieldsFunc(mac, func(r rune) bool {
		return r == ':' || r == '-'
	})
	if len(parts) < 3 {
		return ""
	}
	oui := strings.ToUpper(parts[0] + parts[1] + parts[2])
	if len(oui) != 6 {
		return ""
	}
	return oui
}
