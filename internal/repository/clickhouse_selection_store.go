package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"BubbleScope/internal/domain/models"
	domrepo "BubbleScope/internal/domain/repository"
	pkgch "BubbleScope/pkg/clickhouse"
	applogger "BubbleScope/pkg/logger"
)

var _ domrepo.SelectionStore = (*CHSelectionStore)(nil)

// CHSelectionStore persists primary selections in ClickHouse.
type CHSelectionStore struct {
	ch         *pkgch.Client
	db         *sqlx.DB
	table      string
	priceTable string
	l          *applogger.Logger
}

// selectionRow is the column layout of the selections table.
type selectionRow struct {
	RunID      string    `db:"run_id"`
	Symbol     string    `db:"symbol"`
	Strategy   string    `db:"strategy"`
	Tc         float64   `db:"tc"`
	Beta       float64   `db:"beta"`
	Omega      float64   `db:"omega"`
	Phi        float64   `db:"phi"`
	A          float64   `db:"a"`
	B          float64   `db:"b"`
	C          float64   `db:"c"`
	RSquared   float64   `db:"r_squared"`
	RMSE       float64   `db:"rmse"`
	Quality    string    `db:"quality"`
	Confidence float64   `db:"confidence"`
	IsUsable   bool      `db:"is_usable"`
	Critical   time.Time `db:"critical_date"`
	WindowEnd  time.Time `db:"window_end"`
	CreatedAt  time.Time `db:"created_at"`
}

// NewCHSelectionStore stores rows in table. priceTable is created by Init
// alongside it so a fresh database is usable by the price source.
func NewCHSelectionStore(ch *pkgch.Client, table, priceTable string) *CHSelectionStore {
	return &CHSelectionStore{
		ch:         ch,
		db:         sqlx.NewDb(ch.DB(), "clickhouse"),
		table:      table,
		priceTable: priceTable,
	}
}

// SetLogger injects a structured logger.
func (s *CHSelectionStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHSelectionStore) Init(ctx context.Context) error {
	stmts := []string{SelectionSchema(s.table)}
	if s.priceTable != "" {
		stmts = append(stmts, PriceSchema(s.priceTable))
	}
	return s.ch.InitSchema(ctx, stmts)
}

func (s *CHSelectionStore) Store(ctx context.Context, sel *models.StoredSelection) error {
	if sel == nil {
		return nil
	}
	start := time.Now()
	r := toRow(sel)
	q := fmt.Sprintf(`
        INSERT INTO %s (run_id, symbol, strategy, tc, beta, omega, phi, a, b, c,
            r_squared, rmse, quality, confidence, is_usable, critical_date, window_end, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, s.table)
	_, err := s.db.ExecContext(ctx, q,
		r.RunID, r.Symbol, r.Strategy, r.Tc, r.Beta, r.Omega, r.Phi, r.A, r.B, r.C,
		r.RSquared, r.RMSE, r.Quality, r.Confidence, r.IsUsable, r.Critical, r.WindowEnd, r.CreatedAt,
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_selection error",
				applogger.String("table", s.table),
				applogger.String("symbol", sel.Symbol),
				applogger.String("run_id", sel.RunID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store selection: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse store_selection ok",
			applogger.String("symbol", sel.Symbol),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// Latest returns up to limit selections for symbol, newest first.
func (s *CHSelectionStore) Latest(ctx context.Context, symbol string, limit int) ([]*models.StoredSelection, error) {
	if limit <= 0 {
		limit = 10
	}
	q := fmt.Sprintf(`
        SELECT run_id, symbol, strategy, tc, beta, omega, phi, a, b, c,
            r_squared, rmse, quality, confidence, is_usable, critical_date, window_end, created_at
        FROM %s
        WHERE symbol = ?
        ORDER BY created_at DESC
        LIMIT ?
    `, s.table)

	var rows []selectionRow
	if err := s.db.SelectContext(ctx, &rows, q, symbol, limit); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse latest_selections error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Int("limit", limit),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("latest selections: %w", err)
	}
	out := make([]*models.StoredSelection, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}

func (s *CHSelectionStore) Health(ctx context.Context) error { return s.ch.Health(ctx) }

// Close releases the shared pool.
func (s *CHSelectionStore) Close() error { return s.ch.Close() }

func toRow(s *models.StoredSelection) selectionRow {
	return selectionRow{
		RunID:      s.RunID,
		Symbol:     s.Symbol,
		Strategy:   string(s.Strategy),
		Tc:         s.Params.Tc,
		Beta:       s.Params.Beta,
		Omega:      s.Params.Omega,
		Phi:        s.Params.Phi,
		A:          s.Params.A,
		B:          s.Params.B,
		C:          s.Params.C,
		RSquared:   s.RSquared,
		RMSE:       s.RMSE,
		Quality:    string(s.Quality),
		Confidence: s.Confidence,
		IsUsable:   s.IsUsable,
		Critical:   s.Critical,
		WindowEnd:  s.WindowEnd,
		CreatedAt:  s.CreatedAt,
	}
}

func (r selectionRow) toModel() *models.StoredSelection {
	return &models.StoredSelection{
		RunID:    r.RunID,
		Symbol:   r.Symbol,
		Strategy: models.Strategy(r.Strategy),
		Params: models.ParameterVector{
			Tc: r.Tc, Beta: r.Beta, Omega: r.Omega, Phi: r.Phi,
			A: r.A, B: r.B, C: r.C,
		},
		RSquared:   r.RSquared,
		RMSE:       r.RMSE,
		Quality:    models.QualityTier(r.Quality),
		Confidence: r.Confidence,
		IsUsable:   r.IsUsable,
		Critical:   r.Critical,
		WindowEnd:  r.WindowEnd,
		CreatedAt:  r.CreatedAt,
	}
}

// SelectionSchema returns the DDL of the selections table.
func SelectionSchema(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    run_id        String,
    symbol        LowCardinality(String),
    strategy      LowCardinality(String),
    tc            Float64,
    beta          Float64,
    omega         Float64,
    phi           Float64,
    a             Float64,
    b             Float64,
    c             Float64,
    r_squared     Float64,
    rmse          Float64,
    quality       LowCardinality(String),
    confidence    Float64,
    is_usable     Bool,
    critical_date DateTime,
    window_end    DateTime,
    created_at    DateTime
) ENGINE = MergeTree
ORDER BY (symbol, created_at)`, table)
}
