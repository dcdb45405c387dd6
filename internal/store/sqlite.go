package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/flightscan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	origin      TEXT NOT NULL,
	destination TEXT NOT NULL,
	depart_date TEXT NOT NULL,
	flights     INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0,
	result      TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint);
CREATE INDEX IF NOT EXISTS idx_runs_route ON runs(origin, destination);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun records rs as a new run.
func (s *SQLiteStore) SaveRun(ctx context.Context, rs *model.ResultSet) (*Run, error) {
	if rs == nil {
		return nil, eris.New("sqlite: save nil result")
	}
	resultJSON, err := json.Marshal(rs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal result")
	}

	run := newRun(uuid.New().String(), rs, time.Now().UTC())
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, fingerprint, origin, destination, depart_date, flights, warnings, result, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Fingerprint, run.Origin, run.Destination, run.DepartDate,
		run.Flights, run.Warnings, string(resultJSON), run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

// GetRun returns the run and its full result set.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, fingerprint, origin, destination, depart_date, flights, warnings, created_at, result
		 FROM runs WHERE id = ?`,
		runID,
	)

	var r Run
	var resultJSON string
	err := row.Scan(&r.ID, &r.Fingerprint, &r.Origin, &r.Destination, &r.DepartDate,
		&r.Flights, &r.Warnings, &r.CreatedAt, &resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}

	r.Result = &model.ResultSet{}
	if err := json.Unmarshal([]byte(resultJSON), r.Result); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal result")
	}
	return &r, nil
}

// ListRuns returns matching runs newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, fingerprint, origin, destination, depart_date, flights, warnings, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Origin != "" {
		query += ` AND origin = ?`
		args = append(args, strings.ToUpper(filter.Origin))
	}
	if filter.Destination != "" {
		query += ` AND destination = ?`
		args = append(args, strings.ToUpper(filter.Destination))
	}
	if filter.Fingerprint != "" {
		query += ` AND fingerprint = ?`
		args = append(args, filter.Fingerprint)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Fingerprint, &r.Origin, &r.Destination, &r.DepartDate,
			&r.Flights, &r.Warnings, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// DeleteRunsBefore removes runs created before the given time.
func (s *SQLiteStore) DeleteRunsBefore(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete runs")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
