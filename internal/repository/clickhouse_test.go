package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BubbleScope/internal/domain/models"
	domrepo "BubbleScope/internal/domain/repository"
	pkgch "BubbleScope/pkg/clickhouse"
	applogger "BubbleScope/pkg/logger"
)

func newMockClient(t *testing.T) (*pkgch.Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return pkgch.NewFromDB(db), mock
}

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func TestPriceSourceDaily(t *testing.T) {
	ch, mock := newMockClient(t)
	src := NewCHPriceSource(ch, "daily_prices")
	src.SetLogger(applogger.Nop())

	mock.ExpectQuery(`SELECT date, close\s+FROM daily_prices`).
		WithArgs("SPX", day(1), day(3)).
		WillReturnRows(sqlmock.NewRows([]string{"date", "close"}).
			AddRow(day(1), 100.0).
			AddRow(day(2), 101.5).
			AddRow(day(3), 99.0))

	s, err := src.GetSeries(context.Background(), "SPX", day(1), day(3), domrepo.TF1d)
	require.NoError(t, err)
	assert.Equal(t, "SPX", s.Symbol)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, 101.5, s.Points[1].Price)
	assert.Equal(t, day(3), s.Points[2].Time)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceSourceWeeklyAggregates(t *testing.T) {
	ch, mock := newMockClient(t)
	src := NewCHPriceSource(ch, "daily_prices")

	mock.ExpectQuery(`argMax\(close, date\).*GROUP BY toStartOfWeek\(date\)`).
		WithArgs("SPX", time.Time{}, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"day", "last_close"}).AddRow(day(5), 10.0))

	s, err := src.GetSeries(context.Background(), "SPX", time.Time{}, time.Time{}, domrepo.TF1w)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceSourceErrors(t *testing.T) {
	ch, mock := newMockClient(t)
	src := NewCHPriceSource(ch, "daily_prices")

	_, err := src.GetSeries(context.Background(), "SPX", day(1), day(2), domrepo.Timeframe("1h"))
	assert.Error(t, err)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))
	_, err = src.GetSeries(context.Background(), "SPX", day(1), day(2), domrepo.TF1d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get series")
}

func TestSelectionStoreRoundTrip(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHSelectionStore(ch, "lppl_selections", "daily_prices")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS lppl_selections").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS daily_prices").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, store.Init(context.Background()))

	sel := &models.StoredSelection{
		RunID:      "run-1",
		Symbol:     "SPX",
		Strategy:   models.StrategyConservative,
		Params:     models.ParameterVector{Tc: 1.1, Beta: 0.33, Omega: 7, A: 5, B: -0.5, C: 0.05},
		RSquared:   0.97,
		Quality:    models.QualityHigh,
		Confidence: 0.9,
		IsUsable:   true,
		Critical:   day(20),
		WindowEnd:  day(10),
		CreatedAt:  day(10),
	}
	mock.ExpectExec("INSERT INTO lppl_selections").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.Store(context.Background(), sel))

	cols := []string{"run_id", "symbol", "strategy", "tc", "beta", "omega", "phi", "a", "b", "c",
		"r_squared", "rmse", "quality", "confidence", "is_usable", "critical_date", "window_end", "created_at"}
	mock.ExpectQuery(`FROM lppl_selections\s+WHERE symbol = \?`).
		WithArgs("SPX", 5).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"run-1", "SPX", "conservative", 1.1, 0.33, 7.0, 0.0, 5.0, -0.5, 0.05,
			0.97, 0.0, "high_quality", 0.9, true, day(20), day(10), day(10),
		))

	got, err := store.Latest(context.Background(), "SPX", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, sel, got[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectionStoreLatestDefaultsLimit(t *testing.T) {
	ch, mock := newMockClient(t)
	store := NewCHSelectionStore(ch, "lppl_selections", "")

	mock.ExpectQuery("FROM lppl_selections").WithArgs("SPX", 10).WillReturnError(errors.New("timeout"))
	_, err := store.Latest(context.Background(), "SPX", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latest selections")
	assert.NoError(t, mock.ExpectationsWereMet())
}
