package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

type Store struct {
	mu sync.Mutex
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Foreign keys are disabled by default in SQLite; enable per-connection.
	_, _ = db.Exec(`PRAGMA foreign_keys = ON;`)
	// SQLite is effectively single-writer; one connection avoids SQLITE_BUSY
	// when the scanner and the status ticker run concurrently.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.Initialize(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS scan_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at TEXT,
	adapter TEXT,
	source TEXT,
	gps_start TEXT
);
`)
	if err != nil {
		return err
	}

	// Latest state per beacon; a device broadcasting several formats has one
	// row per format.
	_, err = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS beacons (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	address TEXT NOT NULL COLLATE NOCASE,
	beacon_type TEXT NOT NULL,
	local_name TEXT,
	label TEXT,
	vendor TEXT,
	first_seen TEXT,
	last_seen TEXT,
	last_rssi INTEGER,
	last_payload TEXT,
	sighting_count INTEGER DEFAULT 0,
	UNIQUE(address, beacon_type)
);
`)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS sightings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER,
	beacon_id INTEGER,
	address TEXT,
	beacon_type TEXT,
	timestamp TEXT,
	rssi INTEGER,
	tx_power INTEGER,
	payload TEXT,
	lat REAL,
	lon REAL,
	gps_cached INTEGER,
	FOREIGN KEY(session_id) REFERENCES scan_sessions(id),
	FOREIGN KEY(beacon_id) REFERENCES beacons(id) ON DELETE CASCADE
);
`)
	if err != nil {
		return err
	}
	_ = execIgnore(s.db, ctx, `CREATE INDEX IF NOT EXISTS idx_sightings_beacon_id ON sightings(beacon_id)`)
	_ = execIgnore(s.db, ctx, `CREATE INDEX IF NOT EXISTS idx_sightings_type_time ON sightings(beacon_type, timestamp)`)
	return nil
}

func execIgnore(db *sql.DB, ctx context.Context, q string) error {
	_, err := db.ExecContext(ctx, q)
	return err
}

func normalizeAddress(addr string) string {
	return strings.ToUpper(strings.TrimSpace(addr))
}

func optString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func optInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func optFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// CreateSession records the start of a scan and returns its id.
func (s *Store) CreateSession(ctx context.Context, startedAt, adapter, source string, gpsStart *string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_sessions (started_at, adapter, source, gps_start) VALUES (?, ?, ?, ?)`,
		startedAt, adapter, source, optString(gpsStart))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type SightingParams struct {
	SessionID  *int64
	Address    string
	BeaconType string
	Timestamp  string
	RSSI       int
	TxPower    *int
	LocalName  *string
	Label      *string
	Vendor     *string
	// Payload is the decoded payload as JSON.
	Payload string

	Lat, Lon  *float64
	GPSCached bool
}

// RecordSighting upserts the beacon row and appends a sighting. It returns the
// beacon id.
func (s *Store) RecordSighting(ctx context.Context, p SightingParams) (int64, error) {
	addr := normalizeAddress(p.Address)
	if addr == "" || p.BeaconType == "" {
		return 0, fmt.Errorf("record sighting: address and beacon type are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO beacons (address, beacon_type, local_name, label, vendor, first_seen, last_seen, last_rssi, last_payload, sighting_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
ON CONFLICT(address, beacon_type) DO UPDATE SET
	local_name = COALESCE(excluded.local_name, beacons.local_name),
	label = COALESCE(excluded.label, beacons.label),
	vendor = COALESCE(excluded.vendor, beacons.vendor),
	last_seen = excluded.last_seen,
	last_rssi = excluded.last_rssi,
	last_payload = excluded.last_payload,
	sighting_count = beacons.sighting_count + 1
`, addr, p.BeaconType, optString(p.LocalName), optString(p.Label), optString(p.Vendor),
		p.Timestamp, p.Timestamp, p.RSSI, p.Payload)
	if err != nil {
		return 0, fmt.Errorf("upsert beacon: %w", err)
	}

	var beaconID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM beacons WHERE address = ? AND beacon_type = ?`, addr, p.BeaconType).Scan(&beaconID)
	if err != nil {
		return 0, fmt.Errorf("lookup beacon: %w", err)
	}

	var sessionID any
	if p.SessionID != nil {
		sessionID = *p.SessionID
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO sightings (session_id, beacon_id, address, beacon_type, timestamp, rssi, tx_power, payload, lat, lon, gps_cached)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, sessionID, beaconID, addr, p.BeaconType, p.Timestamp, p.RSSI, optInt(p.TxPower), p.Payload,
		optFloat(p.Lat), optFloat(p.Lon), boolToInt(p.GPSCached))
	if err != nil {
		return 0, fmt.Errorf("insert sighting: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return beaconID, nil
}

type Beacon struct {
	ID            int64
	Address       string
	BeaconType    string
	LocalName     sql.NullString
	Label         sql.NullString
	Vendor        sql.NullString
	FirstSeen     string
	LastSeen      string
	LastRSSI      int
	LastPayload   string
	SightingCount int
}

// GetBeacon returns the stored beacon, or sql.ErrNoRows.
func (s *Store) GetBeacon(ctx context.Context, address, beaconType string) (Beacon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b Beacon
	err := s.db.QueryRowContext(ctx, `
SELECT id, address, beacon_type, local_name, label, vendor, first_seen, last_seen, last_rssi, last_payload, sighting_count
FROM beacons WHERE address = ? AND beacon_type = ?`, normalizeAddress(address), beaconType).
		Scan(&b.ID, &b.Address, &b.BeaconType, &b.LocalName, &b.Label, &b.Vendor,
			&b.FirstSeen, &b.LastSeen, &b.LastRSSI, &b.LastPayload, &b.SightingCount)
	return b, err
}

type Statistics struct {
	Beacons   int
	Sightings int
	ByType    map[string]int
}

// GetStatistics counts stored beacons, overall and per beacon type.
func (s *Store) GetStatistics(ctx context.Context) (Statistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Statistics{ByType: map[string]int{}}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM beacons`).Scan(&st.Beacons); err != nil {
		return st, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings`).Scan(&st.Sightings); err != nil {
		return st, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT beacon_type, COUNT(*) FROM beacons GROUP BY beacon_type`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return st, err
		}
		st.ByType[typ] = n
	}
	return st, rows.Err()
}
