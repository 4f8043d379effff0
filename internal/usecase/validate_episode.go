package usecase

import (
	"context"
	"fmt"

	"BubbleScope/internal/domain/models"
	domrepo "BubbleScope/internal/domain/repository"
	domsvc "BubbleScope/internal/domain/service"
	"BubbleScope/internal/services/validation"
	"BubbleScope/pkg/logger"
)

// ValidateEpisodeUseCase replays a documented bubble through the pipeline.
type ValidateEpisodeUseCase struct {
	prices    domrepo.PriceSource
	validator domsvc.EpisodeValidator
	log       *logger.Logger
}

func NewValidateEpisodeUseCase(prices domrepo.PriceSource, v domsvc.EpisodeValidator, l *logger.Logger) *ValidateEpisodeUseCase {
	if l == nil {
		l = logger.Nop()
	}
	return &ValidateEpisodeUseCase{prices: prices, validator: v, log: l}
}

type ValidateEpisodeParams struct {
	EpisodeID  string
	Fit        bool
	CrossCheck bool
	CutoffDays int
	Strategy   models.Strategy
	// Series, when set, replaces the price store lookup.
	Series *models.PriceSeries
}

// Validate returns an error only when the episode is unknown or its data
// cannot be loaded. Everything else is reported in the report.
func (uc *ValidateEpisodeUseCase) Validate(ctx context.Context, p ValidateEpisodeParams) (*models.ValidationReport, error) {
	ep, err := validation.Episode(p.EpisodeID)
	if err != nil {
		return nil, err
	}

	var series models.PriceSeries
	switch {
	case p.Series != nil:
		series = *p.Series
	case uc.prices == nil:
		return nil, ErrNoPriceSource
	default:
		series, err = uc.prices.GetSeries(ctx, ep.Symbol, ep.Start, ep.End, domrepo.TF1d)
		if err != nil {
			uc.log.Error("load episode series failed",
				logger.String("episode", ep.ID),
				logger.String("symbol", ep.Symbol),
				logger.Error(err),
			)
			return nil, fmt.Errorf("load episode %s: %w", ep.ID, err)
		}
	}

	return uc.validator.Validate(ctx, ep, series, models.ValidationOptions{
		Fit:        p.Fit,
		CrossCheck: p.CrossCheck,
		CutoffDays: p.CutoffDays,
		Strategy:   p.Strategy,
	}), nil
}

// Episodes lists the documented episodes by crash date.
func (uc *ValidateEpisodeUseCase) Episodes() []models.Episode { return validation.Episodes() }
