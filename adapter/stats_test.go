package adapter

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatsExecQuerier(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	core, logs := observer.New(zap.WarnLevel)
	s := NewStatsExecQuerier(db, WithSlowThreshold(time.Hour), WithSlowQueryLog(zap.New(core)))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO Tag(`name`) VALUES (?)")).
		WithArgs("go").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM Tag")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("go"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM Tag")).
		WillReturnError(errors.New("locked"))

	_, err = s.ExecContext(ctx, "INSERT INTO Tag(`name`) VALUES (?)", "go")
	require.NoError(t, err)
	rows, err := s.QueryContext(ctx, "SELECT * FROM Tag")
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	_, err = s.ExecContext(ctx, "DELETE FROM Tag")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	stats := s.Stats()
	assert.Equal(t, 1, stats.Queries)
	assert.Equal(t, 2, stats.Execs)
	assert.Equal(t, 1, stats.Errors)
	assert.Zero(t, stats.Slow)
	assert.NotEmpty(t, stats.Slowest)
	assert.Zero(t, logs.Len())
	assert.Contains(t, stats.String(), "queries=1 execs=2")
	assert.Contains(t, stats.String(), "slowest=")
}

func TestStatsExecQuerier_Slow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	core, logs := observer.New(zap.WarnLevel)
	s := NewStatsExecQuerier(db, WithSlowThreshold(-1), WithSlowQueryLog(zap.New(core)))

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = s.ExecContext(context.Background(), "CREATE TABLE Tag(`name` TEXT)")
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, 1, stats.Slow)
	assert.Equal(t, "CREATE TABLE Tag(`name` TEXT)", stats.Slowest)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "slow statement", entry.Message)
	assert.Equal(t, "CREATE TABLE Tag(`name` TEXT)", entry.ContextMap()["query"])
}

func TestStats_String(t *testing.T) {
	assert.Equal(t, "queries=0 execs=0 duration=0s slow=0 errors=0", Stats{}.String())
	s := Stats{Execs: 2, Duration: 3 * time.Millisecond, Slowest: "CREATE TABLE t", SlowestTime: 2 * time.Millisecond}
	assert.Equal(t, "queries=0 execs=2 duration=3ms slow=0 errors=0 slowest=2ms", s.String())
}
