package usecase

import (
	"context"
	"errors"
	"fmt"

	"BubbleScope/internal/domain/models"
	domrepo "BubbleScope/internal/domain/repository"
	"BubbleScope/internal/services/paramspace"
)

// ErrNoStore is returned by LatestResult when persistence is disabled.
var ErrNoStore = errors.New("selection store not configured")

// ResultsUseCase answers read-only questions about past fits.
type ResultsUseCase struct {
	history *paramspace.FittingHistory
	store   domrepo.SelectionStore
}

// NewResultsUseCase reads from history and, when non-nil, store.
func NewResultsUseCase(history *paramspace.FittingHistory, store domrepo.SelectionStore) *ResultsUseCase {
	return &ResultsUseCase{history: history, store: store}
}

// HistoryStats summarizes the attempts recorded by this process.
func (uc *ResultsUseCase) HistoryStats(f models.HistoryFilter) models.HistoryStats {
	if uc.history == nil {
		return models.HistoryStats{}
	}
	return uc.history.Stats(f)
}

// LatestResult returns the newest stored selections for symbol.
func (uc *ResultsUseCase) LatestResult(ctx context.Context, symbol string, limit int) ([]*models.StoredSelection, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if uc.store == nil {
		return nil, ErrNoStore
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 500 {
		limit = 500
	}
	out, err := uc.store.Latest(ctx, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("latest result: %w", err)
	}
	return out, nil
}
