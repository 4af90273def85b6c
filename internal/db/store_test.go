package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "beacons.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestRecordSighting(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	sessionID, err := s.CreateSession(ctx, "2026-10-19 10:00:00", "hci0", "live", nil)
	require.NoError(t, err)
	assert.Greater(t, sessionID, int64(0))

	lat, lon := 48.1, 11.5
	id1, err := s.RecordSighting(ctx, SightingParams{
		SessionID:  &sessionID,
		Address:    "c4:7c:8d:60:11:22",
		BeaconType: "iBeacon",
		Timestamp:  "2026-10-19 10:00:01",
		RSSI:       -70,
		LocalName:  strPtr("kontakt"),
		Payload:    `{"major":1}`,
		Lat:        &lat,
		Lon:        &lon,
	})
	require.NoError(t, err)

	id2, err := s.RecordSighting(ctx, SightingParams{
		SessionID:  &sessionID,
		Address:    "C4:7C:8D:60:11:22",
		BeaconType: "iBeacon",
		Timestamp:  "2026-10-19 10:00:31",
		RSSI:       -65,
		Label:      strPtr("front door"),
		Payload:    `{"major":2}`,
	})
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "same address and type map to one beacon")

	b, err := s.GetBeacon(ctx, "c4:7c:8d:60:11:22", "iBeacon")
	require.NoError(t, err)
	assert.Equal(t, "C4:7C:8D:60:11:22", b.Address)
	assert.Equal(t, 2, b.SightingCount)
	assert.Equal(t, -65, b.LastRSSI)
	assert.Equal(t, `{"major":2}`, b.LastPayload)
	assert.Equal(t, "2026-10-19 10:00:01", b.FirstSeen)
	assert.Equal(t, "2026-10-19 10:00:31", b.LastSeen)
	assert.Equal(t, "kontakt", b.LocalName.String, "name kept when a later sighting has none")
	assert.Equal(t, "front door", b.Label.String)
	assert.False(t, b.Vendor.Valid)

	_, err = s.RecordSighting(ctx, SightingParams{
		Address:    "c4:7c:8d:60:11:22",
		BeaconType: "eddystoneTlm",
		Timestamp:  "2026-10-19 10:00:32",
		Payload:    `{}`,
	})
	require.NoError(t, err)

	st, err := s.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Beacons)
	assert.Equal(t, 3, st.Sightings)
	assert.Equal(t, map[string]int{"iBeacon": 1, "eddystoneTlm": 1}, st.ByType)
}

func TestRecordSighting_RequiresKey(t *testing.T) {
	s := openTestStore(t)
	_, err := s.RecordSighting(context.Background(), SightingParams{BeaconType: "iBeacon"})
	assert.Error(t, err)
	_, err = s.RecordSighting(context.Background(), SightingParams{Address: "aa:bb:cc:dd:ee:ff"})
	assert.Error(t, err)
}

func TestGetBeacon_Missing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetBeacon(context.Background(), "aa:bb:cc:dd:ee:ff", "iBeacon")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestGetStatistics_Empty(t *testing.T) {
	s := openTestStore(t)
	st, err := s.GetStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Statistics{ByType: map[string]int{}}, st)
}
