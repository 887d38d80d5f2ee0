package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" opens a
// private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and serialises
	// writers on the SD card.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		span TEXT NOT NULL,
		ts INTEGER NOT NULL,
		power REAL NOT NULL,
		energy REAL NOT NULL,
		voltage REAL NOT NULL,
		battery REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_samples_window_ts ON samples(span, ts);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, w Window, sm Sample) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO samples (span, ts, power, energy, voltage, battery) VALUES (?, ?, ?, ?, ?, ?)`,
		string(w), sm.Time.UnixMilli(), sm.Power, sm.Energy, sm.Voltage, sm.Battery,
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, w Window, since time.Time) ([]Sample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, power, energy, voltage, battery FROM samples
		 WHERE span = ? AND ts >= ? ORDER BY ts ASC, id ASC`,
		string(w), since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var (
			ts int64
			sm Sample
		)
		if err := rows.Scan(&ts, &sm.Power, &sm.Energy, &sm.Voltage, &sm.Battery); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sm.Time = time.UnixMilli(ts)
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

func (s *SQLiteStore) Prune(ctx context.Context, w Window, before time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM samples WHERE span = ? AND ts < ?`,
		string(w), before.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("prune samples: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
