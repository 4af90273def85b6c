package beacon

import "fmt"

// Decoder turns a classified advertisement into its Payload. Decoders must not
// panic on short or corrupt input; they return an error instead.
type Decoder func(a *Advertisement) (Payload, error)

var decoders = map[Type]Decoder{
	TypeIBeacon:           decodeIBeacon,
	TypeEddystoneUID:      decodeEddystoneUID,
	TypeEddystoneURL:      decodeEddystoneURL,
	TypeEddystoneTLM:      decodeEddystoneTLM,
	TypeEddystoneEID:      decodeEddystoneEID,
	TypeEstimoteTelemetry: decodeEstimoteTelemetry,
	TypeEstimoteNearable:  decodeEstimoteNearable,
	TypeMinewSensor:       decodeMinewSensor,
}

// Decode runs the decoder registered for t. It is the error-reporting form of
// the dispatch step used by Parse.
func Decode(t Type, a *Advertisement) (Payload, error) {
	if t == TypeUnknown {
		return nil, fmt.Errorf("decode: %w", ErrNoPayload)
	}
	dec, ok := decoders[t]
	if !ok {
		return nil, fmt.Errorf("decode: no decoder for %q", t)
	}
	p, err := dec(a)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	if p == nil {
		return nil, fmt.Errorf("decode %s: %w", t, ErrNoPayload)
	}
	if p.BeaconType() != t {
		return nil, fmt.Errorf("decode %s: decoder produced %q payload", t, p.BeaconType())
	}
	return p, nil
}

// dispatch returns the decoded payload, or nil when t is unknown or decoding
// failed.
func dispatch(t Type, a *Advertisement) Payload {
	p, err := Decode(t, a)
	if err != nil {
		return nil
	}
	return p
}
