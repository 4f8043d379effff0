package service

import (
	"context"
	"time"

	"BubbleScope/internal/domain/models"
)

// Fitter runs a single bounded nonlinear least-squares fit. Failures are
// reported on the returned candidate, never as an error.
type Fitter interface {
	Fit(data *models.NormalizedSeries, seed models.ParameterVector, bounds models.Bounds, deadline time.Time) models.FittingCandidate
}

// QualityEvaluator maps a candidate to a quality verdict.
type QualityEvaluator interface {
	Evaluate(c models.FittingCandidate, in models.AssessmentInput) models.QualityAssessment
}

// Selector fits a batch of seeds and ranks the candidates.
type Selector interface {
	Run(ctx context.Context, plan models.FitPlan, data *models.NormalizedSeries, seeds []models.ParameterVector) *models.SelectionResult
}

// EpisodeValidator replays a historical episode through the pipeline.
type EpisodeValidator interface {
	Validate(ctx context.Context, ep models.Episode, series models.PriceSeries, opts models.ValidationOptions) *models.ValidationReport
}
