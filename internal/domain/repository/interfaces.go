package repository

import (
	"context"
	"time"

	"BubbleScope/internal/domain/models"
)

// PriceSource provides read-only close-price history.
type PriceSource interface {
	GetSeries(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) (models.PriceSeries, error)
}

// SelectionStore persists primary selections.
type SelectionStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, s *models.StoredSelection) error
	Latest(ctx context.Context, symbol string, limit int) ([]*models.StoredSelection, error)
	Health(ctx context.Context) error
	Close() error
}

// ResultPublisher emits fit reports to downstream consumers.
type ResultPublisher interface {
	Publish(ctx context.Context, r *models.FitReport) error
	Close() error
}

// ResultCache memoizes fit reports for identical requests. Get returns a
// nil report on a miss. Lock guards a key while its fit is in flight.
type ResultCache interface {
	Get(ctx context.Context, key string) (*models.FitReport, error)
	Set(ctx context.Context, key string, r *models.FitReport) error
	Lock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Metrics interface {
	RecordFit(strategy string, converged, usable int, seconds float64)
	RecordEscalation(from, to string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
