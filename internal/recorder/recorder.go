// Package recorder turns scanned advertisements into console output, JSON
// lines and stored sightings.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"beaconscan/internal/beacon"
	"beaconscan/internal/db"
	"beaconscan/internal/gps"
	"beaconscan/internal/ids"
	"beaconscan/internal/util"
)

type Options struct {
	// Types restricts handling to these beacon types; nil accepts all.
	Types map[beacon.Type]bool
	// Cooldown is the minimum time between stored sightings of the same
	// address and beacon type.
	Cooldown time.Duration
	// JSON, when set, receives one Result JSON object per line instead of
	// console lines.
	JSON      io.Writer
	SessionID *int64
}

// Recorder is safe for concurrent use. Store, GPS and Resolver are optional.
type Recorder struct {
	store    *db.Store
	gps      *gps.State
	resolver *ids.Resolver
	log      zerolog.Logger
	opts     Options

	mu         sync.Mutex
	lastStored map[string]time.Time
	counts     map[beacon.Type]int
	now        func() time.Time
}

func New(store *db.Store, gpsState *gps.State, resolver *ids.Resolver, log zerolog.Logger, opts Options) *Recorder {
	return &Recorder{
		store:      store,
		gps:        gpsState,
		resolver:   resolver,
		log:        log,
		opts:       opts,
		lastStored: map[string]time.Time{},
		counts:     map[beacon.Type]int{},
		now:        time.Now,
	}
}

// Handle parses a and records the result. It returns nil when a is not a
// recognized beacon or is filtered out.
func (r *Recorder) Handle(ctx context.Context, a *beacon.Advertisement) *beacon.Result {
	res := beacon.Parse(a)
	if res == nil {
		r.logRejected(a)
		return nil
	}
	if r.opts.Types != nil && !r.opts.Types[res.Type] {
		return nil
	}

	label := r.resolver.LabelFor(res)
	vendor := r.resolver.VendorForMAC(res.Address)

	r.mu.Lock()
	r.counts[res.Type]++
	r.mu.Unlock()

	if err := r.emit(res, label); err != nil {
		r.log.Error().Err(err).Msg("write result")
	}
	r.persist(ctx, res, label, vendor)
	return res
}

// Counts returns the number of handled results per beacon type.
func (r *Recorder) Counts() map[beacon.Type]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[beacon.Type]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

func (r *Recorder) logRejected(a *beacon.Advertisement) {
	if r.log.GetLevel() > zerolog.DebugLevel {
		return
	}
	t := beacon.Classify(a)
	if t == beacon.TypeUnknown {
		return
	}
	_, err := beacon.Decode(t, a)
	r.log.Debug().Err(err).
		Str("address", a.Address).
		Str("beacon_type", string(t)).
		Str("manufacturer_data", util.BytesToHex(a.ManufacturerData)).
		Msg("undecodable beacon")
}

func (r *Recorder) emit(res *beacon.Result, label string) error {
	if r.opts.JSON != nil {
		b, err := json.Marshal(res)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(r.opts.JSON, "%s\n", b)
		return err
	}

	name := util.DisplayName(derefString(res.LocalName), res.Address)
	if label != "" {
		name = label + " <" + name + ">"
	}
	util.Linef("["+string(res.Type)+"]", util.ColorGreen, "%s RSSI: %d %s", name, res.RSSI, Summary(res.Payload))
	return nil
}

func (r *Recorder) persist(ctx context.Context, res *beacon.Result, label, vendor string) {
	if r.store == nil || res.Address == "" {
		return
	}
	key := strings.ToUpper(res.Address) + "|" + string(res.Type)
	now := r.now()

	r.mu.Lock()
	last, seen := r.lastStored[key]
	if seen && now.Sub(last) < r.opts.Cooldown {
		r.mu.Unlock()
		return
	}
	r.lastStored[key] = now
	r.mu.Unlock()

	payload, err := json.Marshal(res.Payload)
	if err != nil {
		r.log.Error().Err(err).Msg("encode payload")
		return
	}
	p := db.SightingParams{
		SessionID:  r.opts.SessionID,
		Address:    res.Address,
		BeaconType: string(res.Type),
		Timestamp:  now.Format("2006-01-02 15:04:05"),
		RSSI:       res.RSSI,
		TxPower:    res.TxPowerLevel,
		LocalName:  res.LocalName,
		Label:      optional(label),
		Vendor:     optional(vendor),
		Payload:    string(payload),
	}
	if fix, ok := r.gps.Position(); ok {
		lat, lon := fix.Lat, fix.Lon
		p.Lat, p.Lon, p.GPSCached = &lat, &lon, fix.Cached
	}
	if _, err := r.store.RecordSighting(ctx, p); err != nil {
		r.log.Error().Err(err).Str("address", res.Address).Msg("db save error")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
