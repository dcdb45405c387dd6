package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_SaveAndGetRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rs := testResultSet(t, "JFK", "LHR")
	run, err := st.SaveRun(ctx, rs)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 1, run.Flights)
	assert.Equal(t, 1, run.Warnings)
	assert.Equal(t, "2024-06-01", run.DepartDate)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, rs.Fingerprint, got.Fingerprint)
	require.NotNil(t, got.Result)
	require.Len(t, got.Result.Flights, 1)
	f := got.Result.Flights[0]
	assert.Equal(t, "BA112", f.FlightNumber)
	assert.Equal(t, "612.4", f.Price.Amount.String())
	assert.True(t, f.DepartTime.Equal(rs.Flights[0].DepartTime))
	assert.Equal(t, rs.Query.Fingerprint(), got.Result.Query.Fingerprint())
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestSQLite_SaveRun_Nil(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.SaveRun(context.Background(), nil)
	assert.Error(t, err)
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveRun(ctx, testResultSet(t, "JFK", "LHR"))
	require.NoError(t, err)
	_, err = st.SaveRun(ctx, testResultSet(t, "SYD", "MEL"))
	require.NoError(t, err)
	last, err := st.SaveRun(ctx, testResultSet(t, "JFK", "CDG"))
	require.NoError(t, err)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, last.ID, all[0].ID)
	assert.Nil(t, all[0].Result)

	jfk, err := st.ListRuns(ctx, RunFilter{Origin: "jfk"})
	require.NoError(t, err)
	assert.Len(t, jfk, 2)

	route, err := st.ListRuns(ctx, RunFilter{Origin: "JFK", Destination: "LHR"})
	require.NoError(t, err)
	require.Len(t, route, 1)
	assert.Equal(t, "LHR", route[0].Destination)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestSQLite_DeleteRunsBefore(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveRun(ctx, testResultSet(t, "JFK", "LHR"))
	require.NoError(t, err)

	n, err := st.DeleteRunsBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = st.DeleteRunsBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestOpen_SQLite(t *testing.T) {
	st, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
}
