// Package sqlite implements ports.EventStore on SQLite through
// github.com/mattn/go-sqlite3, plus a Notifier that records scan status
// transitions in the same database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"reconbus/internal/core/domain"
	"reconbus/internal/core/ports"
	"reconbus/internal/platform/errors"
	"reconbus/internal/platform/logx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tbl_scan_instance (
		guid        VARCHAR NOT NULL PRIMARY KEY,
		name        VARCHAR NOT NULL,
		seed_target VARCHAR NOT NULL,
		seed_type   VARCHAR NOT NULL DEFAULT '',
		created     INT DEFAULT 0,
		started     INT DEFAULT 0,
		ended       INT DEFAULT 0,
		status      VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tbl_scan_results (
		scan_instance_id  VARCHAR NOT NULL REFERENCES tbl_scan_instance(guid),
		hash              VARCHAR NOT NULL,
		type              VARCHAR NOT NULL,
		generated         INT NOT NULL,
		confidence        INT NOT NULL DEFAULT 100,
		visibility        INT NOT NULL DEFAULT 100,
		risk              INT NOT NULL DEFAULT 0,
		module            VARCHAR NOT NULL,
		data              VARCHAR,
		false_positive    INT NOT NULL DEFAULT 0,
		source_event_hash VARCHAR DEFAULT 'ROOT'
	)`,
	`CREATE TABLE IF NOT EXISTS tbl_scan_log (
		scan_instance_id VARCHAR NOT NULL REFERENCES tbl_scan_instance(guid),
		generated        INT NOT NULL,
		component        VARCHAR,
		type             VARCHAR NOT NULL,
		message          VARCHAR
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_results_id ON tbl_scan_results (scan_instance_id)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_results_type ON tbl_scan_results (scan_instance_id, type)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_results_hash ON tbl_scan_results (scan_instance_id, hash)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_results_srchash ON tbl_scan_results (scan_instance_id, source_event_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_logs ON tbl_scan_log (scan_instance_id)`,
}

// LogEntry is a row of tbl_scan_log.
type LogEntry struct {
	ScanID    string
	Generated time.Time
	Component string
	Type      string
	Message   string
}

// Store is a SQLite-backed event store. A single connection serialises
// writers; Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	path   string
	logger logx.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" is accepted for tests.
func Open(path string, logger logx.Logger) (*Store, error) {
	if logger == nil {
		logger = logx.NewDiscard()
	}
	if path == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "sqlite path is empty")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrapf(err, "failed to create database directory %s", dir)
			}
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to apply schema")
		}
	}

	s := &Store{db: db, path: path, logger: logger.With("component", "sqlite")}
	s.logger.Debug("database opened", "path", path)
	return s, nil
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// SaveScan creates the scan row, or refreshes its descriptive columns when
// it exists. Status and timestamps of an existing row are kept.
func (s *Store) SaveScan(ctx context.Context, scan ports.ScanRecord) error {
	if scan.ID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "scan id is empty")
	}
	if scan.Status == "" {
		scan.Status = domain.StatusCreated
	}
	if scan.Created.IsZero() {
		scan.Created = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tbl_scan_instance (guid, name, seed_target, seed_type, created, started, ended, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			name = excluded.name,
			seed_target = excluded.seed_target,
			seed_type = excluded.seed_type`,
		scan.ID, scan.Name, scan.TargetValue, string(scan.TargetType),
		millis(scan.Created), millis(scan.Started), millis(scan.Ended), string(scan.Status),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to save scan %s", scan.ID)
	}
	return nil
}

// UpdateScanStatus sets the status and the matching timestamp, creating a
// placeholder row when the scan is unknown.
func (s *Store) UpdateScanStatus(ctx context.Context, scanID string, status domain.ScanStatus, at time.Time) error {
	var started, ended int64
	switch status {
	case domain.StatusStarted:
		started = millis(at)
	case domain.StatusFinished, domain.StatusAborted, domain.StatusErrorFailed:
		ended = millis(at)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tbl_scan_instance (guid, name, seed_target, created, started, ended, status)
		VALUES (?, '', '', ?, ?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			status = excluded.status,
			started = CASE WHEN excluded.started > 0 THEN excluded.started ELSE started END,
			ended = CASE WHEN excluded.ended > 0 THEN excluded.ended ELSE ended END`,
		scanID, millis(at), started, ended, string(status),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update status of scan %s", scanID)
	}
	return nil
}

// StoreEvent inserts one result row.
func (s *Store) StoreEvent(ctx context.Context, ev ports.StoredEvent) error {
	source := ev.SourceHash
	if source == "" {
		source = "ROOT"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tbl_scan_results
			(scan_instance_id, hash, type, generated, confidence, visibility, risk, module, data, source_event_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ScanID, ev.Hash, string(ev.Type), millis(ev.Created), ev.Confidence, ev.Visibility,
		int(ev.Risk), ev.Module, ev.Data, source,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to store %s event", ev.Type)
	}
	return nil
}

// ScanEvents returns the results of a scan in insertion order.
func (s *Store) ScanEvents(ctx context.Context, scanID string) ([]ports.StoredEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, type, generated, confidence, visibility, risk, module, data, source_event_hash
		FROM tbl_scan_results WHERE scan_instance_id = ? ORDER BY rowid`, scanID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query events of scan %s", scanID)
	}
	defer rows.Close()

	var out []ports.StoredEvent
	for rows.Next() {
		var (
			ev        ports.StoredEvent
			eventType string
			generated int64
			risk      int
			data      sql.NullString
		)
		if err := rows.Scan(&ev.Hash, &eventType, &generated, &ev.Confidence, &ev.Visibility,
			&risk, &ev.Module, &data, &ev.SourceHash); err != nil {
			return nil, errors.Wrap(err, "failed to scan result row")
		}
		ev.ScanID = scanID
		ev.Type = domain.EventType(eventType)
		ev.Created = fromMillis(generated)
		ev.Risk = domain.Risk(risk)
		ev.Data = data.String
		out = append(out, ev)
	}
	return out, rows.Err()
}

// CountEvents returns the number of stored results per event type.
func (s *Store) CountEvents(ctx context.Context, scanID string) (map[domain.EventType]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, COUNT(*) FROM tbl_scan_results WHERE scan_instance_id = ? GROUP BY type`, scanID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to count events of scan %s", scanID)
	}
	defer rows.Close()

	out := make(map[domain.EventType]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan count row")
		}
		out[domain.EventType(t)] = n
	}
	return out, rows.Err()
}

// GetScan returns the scan row or domain.ErrScanNotFound.
func (s *Store) GetScan(ctx context.Context, scanID string) (*ports.ScanRecord, error) {
	var (
		rec                     ports.ScanRecord
		targetType, status      string
		created, started, ended int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT guid, name, seed_target, seed_type, created, started, ended, status
		FROM tbl_scan_instance WHERE guid = ?`, scanID,
	).Scan(&rec.ID, &rec.Name, &rec.TargetValue, &targetType, &created, &started, &ended, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrScanNotFound, scanID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load scan %s", scanID)
	}
	rec.TargetType = domain.EventType(targetType)
	rec.Status = domain.ScanStatus(status)
	rec.Created = fromMillis(created)
	rec.Started = fromMillis(started)
	rec.Ended = fromMillis(ended)
	return &rec, nil
}

// AppendLog writes a row to tbl_scan_log.
func (s *Store) AppendLog(ctx context.Context, entry LogEntry) error {
	if entry.Generated.IsZero() {
		entry.Generated = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tbl_scan_log (scan_instance_id, generated, component, type, message)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ScanID, millis(entry.Generated), entry.Component, entry.Type, entry.Message,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to append log for scan %s", entry.ScanID)
	}
	return nil
}

// ScanLog returns the log rows of a scan in insertion order.
func (s *Store) ScanLog(ctx context.Context, scanID string) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT generated, component, type, message FROM tbl_scan_log
		WHERE scan_instance_id = ? ORDER BY rowid`, scanID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query log of scan %s", scanID)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var (
			e                  LogEntry
			generated          int64
			component, message sql.NullString
		)
		if err := rows.Scan(&generated, &component, &e.Type, &message); err != nil {
			return nil, errors.Wrap(err, "failed to scan log row")
		}
		e.ScanID = scanID
		e.Generated = fromMillis(generated)
		e.Component = component.String
		e.Message = message.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database. Further calls return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
