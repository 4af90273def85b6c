package status

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"beaconscan/internal/beacon"
	"beaconscan/internal/db"
	"beaconscan/internal/gps"
	"beaconscan/internal/util"
)

// Counter reports beacons seen since startup, per type.
type Counter interface {
	Counts() map[beacon.Type]int
}

type Provider struct {
	GPS   *gps.State
	Store *db.Store
	Seen  Counter
}

// Run prints periodic structured status lines to the console.
func Run(ctx context.Context, interval time.Duration, p Provider) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			printOnce(ctx, p)
		}
	}
}

func printOnce(ctx context.Context, p Provider) {
	// GPS
	fix, hasFix := p.GPS.Position()
	age, hasData := p.GPS.LastPacket()
	util.Linef("[GPS DATA]", util.ColorCyan, "%s", gpsLine(fix, hasFix, p.GPS.Source(), age, hasData))

	if p.Seen != nil {
		counts := map[string]int{}
		for t, n := range p.Seen.Counts() {
			counts[string(t)] = n
		}
		util.Linef("[SEEN]", util.ColorGray, "%s", formatCounts(counts))
	}

	// DB stats
	if p.Store != nil {
		st, err := p.Store.GetStatistics(ctx)
		if err == nil {
			util.Linef("[DB STATS]", util.ColorGray, "Beacons: %d, Sightings: %d, %s", st.Beacons, st.Sightings, formatCounts(st.ByType))
		}
	}
}

// gpsStaleAfter is how long the receiver may stay silent before the status
// line says so.
const gpsStaleAfter = 10 * time.Second

func gpsLine(fix gps.Fix, hasFix bool, source string, age time.Duration, hasData bool) string {
	var line string
	switch {
	case hasFix:
		line = fix.String()
	case hasData:
		line = "waiting for fix"
	default:
		line = "offline"
	}
	if source != "" {
		line += " via " + source
	}
	if hasData && age >= gpsStaleAfter {
		line += fmt.Sprintf(" (no data for %s)", age.Truncate(time.Second))
	}
	return line
}

// formatCounts renders counts in beacon priority order, then any unknown keys
// alphabetically.
func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	var parts []string
	done := map[string]bool{}
	for _, t := range beacon.Types {
		if n, ok := counts[string(t)]; ok {
			parts = append(parts, fmt.Sprintf("%s: %d", t, n))
			done[string(t)] = true
		}
	}
	var rest []string
	for k := range counts {
		if !done[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		parts = append(parts, fmt.Sprintf("%s: %d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}
