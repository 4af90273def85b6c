package beacon

import "encoding/json"

// Result is the normalized record for one recognized advertisement. Payload
// always reports the same BeaconType as Type.
type Result struct {
	ID           string
	Address      string
	LocalName    *string
	TxPowerLevel *int
	RSSI         int

	Type    Type
	Payload Payload
}

// Parse classifies a, decodes it and assembles the Result. It returns nil when
// the advertisement is not a recognized beacon or could not be decoded.
func Parse(a *Advertisement) *Result {
	t := Classify(a)
	if t == TypeUnknown {
		return nil
	}
	return assemble(a, t, dispatch(t, a))
}

func assemble(a *Advertisement, t Type, p Payload) *Result {
	if p == nil {
		return nil
	}
	r := &Result{
		ID:      a.ID,
		Address: a.Address,
		RSSI:    a.RSSI,
		Type:    t,
		Payload: p,
	}
	if a.LocalName != "" {
		name := a.LocalName
		r.LocalName = &name
	}
	if a.TxPowerLevel != nil && *a.TxPowerLevel != 0 {
		tx := *a.TxPowerLevel
		r.TxPowerLevel = &tx
	}

	// Minew sensors carry their address in the service data instead of the
	// advertisement envelope.
	if t == TypeMinewSensor && r.Address == "" {
		if m, ok := p.(*MinewSensor); ok {
			r.Address = m.MACAddress
		}
	}
	return r
}

// MarshalJSON encodes the envelope with the payload stored under a key equal
// to the beacon type, e.g. {"beaconType":"iBeacon","iBeacon":{...}}.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":           r.ID,
		"address":      r.Address,
		"localName":    r.LocalName,
		"txPowerLevel": r.TxPowerLevel,
		"rssi":         r.RSSI,
		"beaconType":   r.Type,
	}
	if r.Type != TypeUnknown && r.Payload != nil {
		out[string(r.Type)] = r.Payload
	}
	return json.Marshal(out)
}
