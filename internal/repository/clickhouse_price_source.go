package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BubbleScope/internal/domain/models"
	domrepo "BubbleScope/internal/domain/repository"
	pkgch "BubbleScope/pkg/clickhouse"
	applogger "BubbleScope/pkg/logger"
)

var _ domrepo.PriceSource = (*CHPriceSource)(nil)

// CHPriceSource reads close prices from a ClickHouse table with
// (date, symbol, close) columns.
type CHPriceSource struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHPriceSource(ch *pkgch.Client, table string) *CHPriceSource {
	return &CHPriceSource{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHPriceSource) SetLogger(l *applogger.Logger) { s.l = l }

// GetSeries returns closes in [from, to]. A zero bound is open. Weekly
// series keep the last close of each week.
func (s *CHPriceSource) GetSeries(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) (models.PriceSeries, error) {
	start := time.Now()
	out := models.PriceSeries{Symbol: symbol}
	q, err := s.seriesQuery(tf)
	if err != nil {
		return out, err
	}
	if to.IsZero() {
		to = time.Date(2999, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	rows, err := s.db.QueryContext(ctx, q, symbol, from, to)
	if err != nil {
		s.logError("clickhouse get_series query error", symbol, tf, err)
		return out, fmt.Errorf("get series: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Time, &p.Price); err != nil {
			s.logError("clickhouse get_series scan error", symbol, tf, err)
			return out, fmt.Errorf("scan price: %w", err)
		}
		out.Points = append(out.Points, p)
	}
	if err := rows.Err(); err != nil {
		s.logError("clickhouse get_series rows error", symbol, tf, err)
		return out, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse get_series ok",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(out.Points)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHPriceSource) seriesQuery(tf domrepo.Timeframe) (string, error) {
	switch tf {
	case domrepo.TF1d, "":
		return fmt.Sprintf(`
        SELECT date, close
        FROM %s
        WHERE symbol = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `, s.table), nil
	case domrepo.TF1w:
		return fmt.Sprintf(`
        SELECT max(date) AS day, argMax(close, date) AS last_close
        FROM %s
        WHERE symbol = ? AND date >= ? AND date <= ?
        GROUP BY toStartOfWeek(date)
        ORDER BY day ASC
    `, s.table), nil
	default:
		return "", fmt.Errorf("unsupported timeframe %q", tf)
	}
}

func (s *CHPriceSource) logError(msg, symbol string, tf domrepo.Timeframe, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.String("tf", string(tf)),
		applogger.Error(err),
	)
}

// PriceSchema returns the DDL of the price table.
func PriceSchema(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    date   Date,
    symbol LowCardinality(String),
    close  Float64
) ENGINE = ReplacingMergeTree
ORDER BY (symbol, date)`, table)
}
