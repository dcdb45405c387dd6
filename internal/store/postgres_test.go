package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	rs := testResultSet(t, "JFK", "LHR")

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), rs.Fingerprint, "JFK", "LHR", "2024-06-01", 1, 1, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.SaveRun(context.Background(), rs)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	_, err := s.SaveRun(context.Background(), testResultSet(t, "JFK", "LHR"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: insert run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	rs := testResultSet(t, "JFK", "LHR")
	resultJSON, err := json.Marshal(rs)
	require.NoError(t, err)
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := mock.NewRows([]string{"id", "fingerprint", "origin", "destination", "depart_date", "flights", "warnings", "created_at", "result"}).
		AddRow("run-1", rs.Fingerprint, "JFK", "LHR", "2024-06-01", 1, 1, created, resultJSON)
	mock.ExpectQuery(`SELECT id, fingerprint.* FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(rows)

	got, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	require.NotNil(t, got.Result)
	assert.Len(t, got.Result.Flights, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, fingerprint.* FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := mock.NewRows([]string{"id", "fingerprint", "origin", "destination", "depart_date", "flights", "warnings", "created_at"}).
		AddRow("run-2", "fp", "JFK", "LHR", "2024-06-01", 3, 0, created).
		AddRow("run-1", "fp", "JFK", "LHR", "2024-06-01", 2, 1, created.Add(-time.Hour))
	mock.ExpectQuery(`AND origin = \$1 AND destination = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("JFK", "LHR", 10, 5).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{Origin: "jfk", Destination: "lhr", Limit: 10, Offset: 5})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, 3, runs[0].Flights)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteRunsBefore(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM runs WHERE created_at < \$1`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := s.DeleteRunsBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
