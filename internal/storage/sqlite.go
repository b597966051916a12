// Package storage provides optional SQLite persistence for monitoring
// history. The monitor records one row per device per tick when the user
// passes a database path; nothing here is required for normal operation.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/axefleet/axectl/internal/api"
)

// DB wraps the SQLite stats history database
type DB struct {
	db *sql.DB
}

// Open creates or opens the stats history database at path
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &DB{db: db}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *DB) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS device_stats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_ip TEXT NOT NULL,
			hostname TEXT,
			device_type TEXT,
			hashrate REAL,
			temperature REAL,
			power REAL,
			fan_speed_pct INTEGER,
			shares_accepted INTEGER,
			shares_rejected INTEGER,
			uptime_seconds INTEGER,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_device_stats_ip ON device_stats(device_ip)`,
		`CREATE INDEX IF NOT EXISTS idx_device_stats_timestamp ON device_stats(timestamp)`,
	}

	for _, stmt := range tables {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts one stats reading. Implements monitor.StatsRecorder.
func (s *DB) Record(device *api.Device, stats *api.DeviceStats) error {
	_, err := s.db.Exec(
		`INSERT INTO device_stats (
			device_ip, hostname, device_type, hashrate, temperature, power,
			fan_speed_pct, shares_accepted, shares_rejected, uptime_seconds, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.IP, device.Hostname, string(device.Type),
		stats.Hashrate, stats.Temperature, stats.Power,
		stats.FanSpeedPct, stats.SharesAccepted, stats.SharesRejected,
		stats.UptimeSeconds, stats.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record stats: %w", err)
	}
	return nil
}

// Reading is one stored stats row
type Reading struct {
	DeviceIP    string
	Hostname    string
	DeviceType  string
	Hashrate    float64
	Temperature float64
	Power       float64
	Timestamp   time.Time
}

// History returns the most recent readings for an address, newest first
func (s *DB) History(deviceIP string, limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT device_ip, hostname, device_type, hashrate, temperature, power, timestamp
		 FROM device_stats WHERE device_ip = ?
		 ORDER BY timestamp DESC LIMIT ?`,
		deviceIP, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Reading
	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.DeviceIP, &r.Hostname, &r.DeviceType,
			&r.Hashrate, &r.Temperature, &r.Power, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database
func (s *DB) Close() error {
	return s.db.Close()
}
