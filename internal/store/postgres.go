package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/flightscan/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock pools satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	fingerprint TEXT NOT NULL,
	origin      TEXT NOT NULL,
	destination TEXT NOT NULL,
	depart_date DATE NOT NULL,
	flights     INTEGER NOT NULL DEFAULT 0,
	warnings    INTEGER NOT NULL DEFAULT 0,
	result      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint);
CREATE INDEX IF NOT EXISTS idx_runs_route ON runs(origin, destination);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveRun records rs as a new run.
func (s *PostgresStore) SaveRun(ctx context.Context, rs *model.ResultSet) (*Run, error) {
	if rs == nil {
		return nil, eris.New("postgres: save nil result")
	}
	resultJSON, err := json.Marshal(rs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal result")
	}

	run := newRun(uuid.New().String(), rs, time.Now().UTC())
	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, fingerprint, origin, destination, depart_date, flights, warnings, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.Fingerprint, run.Origin, run.Destination, run.DepartDate,
		run.Flights, run.Warnings, resultJSON, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

// GetRun returns the run and its full result set.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	var resultJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, fingerprint, origin, destination, to_char(depart_date, 'YYYY-MM-DD'), flights, warnings, created_at, result
		 FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Fingerprint, &r.Origin, &r.Destination, &r.DepartDate,
		&r.Flights, &r.Warnings, &r.CreatedAt, &resultJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	r.Result = &model.ResultSet{}
	if err := json.Unmarshal(resultJSON, r.Result); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal result")
	}
	return &r, nil
}

// ListRuns returns matching runs newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, fingerprint, origin, destination, to_char(depart_date, 'YYYY-MM-DD'), flights, warnings, created_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Origin != "" {
		query += fmt.Sprintf(` AND origin = $%d`, argIdx)
		args = append(args, strings.ToUpper(filter.Origin))
		argIdx++
	}
	if filter.Destination != "" {
		query += fmt.Sprintf(` AND destination = $%d`, argIdx)
		args = append(args, strings.ToUpper(filter.Destination))
		argIdx++
	}
	if filter.Fingerprint != "" {
		query += fmt.Sprintf(` AND fingerprint = $%d`, argIdx)
		args = append(args, filter.Fingerprint)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Fingerprint, &r.Origin, &r.Destination, &r.DepartDate,
			&r.Flights, &r.Warnings, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// DeleteRunsBefore removes runs created before the given time.
func (s *PostgresStore) DeleteRunsBefore(ctx context.Context, before time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM runs WHERE created_at < $1`, before.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete runs")
	}
	return int(tag.RowsAffected()), nil
}
