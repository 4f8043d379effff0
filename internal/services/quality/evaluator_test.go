package quality

import (
	"testing"

	"BubbleScope/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

var coreRange = models.SearchRange{
	Tier:  models.TierCore,
	Tc:    models.Interval{Min: 1.01, Max: 1.3},
	Beta:  models.Interval{Min: 0.25, Max: 0.5},
	Omega: models.Interval{Min: 5, Max: 9},
}

func candidate(r2 float64, p models.ParameterVector) models.FittingCandidate {
	return models.FittingCandidate{Params: p, RSquared: r2, Converged: true}
}

func ideal() models.ParameterVector {
	return models.ParameterVector{Tc: 1.04, Beta: 0.33, Omega: 7, Phi: 1, A: 5, B: -0.5, C: 0.05}
}

func TestHardReject(t *testing.T) {
	e := NewEvaluator(Thresholds{})
	in := models.AssessmentInput{Samples: 400, Range: coreRange}

	tests := []struct {
		name   string
		mutate func(*models.FittingCandidate)
	}{
		{"not converged", func(c *models.FittingCandidate) { c.Converged = false; c.FailureReason = models.FailTimeout }},
		{"tc at one", func(c *models.FittingCandidate) { c.Params.Tc = 1 }},
		{"beta too high", func(c *models.FittingCandidate) { c.Params.Beta = 0.9 }},
		{"omega too low", func(c *models.FittingCandidate) { c.Params.Omega = 1 }},
		{"phi out", func(c *models.FittingCandidate) { c.Params.Phi = 100 }},
		{"C out", func(c *models.FittingCandidate) { c.Params.C = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidate(0.99, ideal())
			tt.mutate(&c)
			qa := e.Evaluate(c, in)
			assert.Equal(t, models.QualityPoor, qa.Quality)
			assert.Zero(t, qa.Confidence)
			assert.False(t, qa.IsUsable)
			assert.Len(t, qa.Issues, 1)
		})
	}
}

func TestConfidence(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())

	// 60 + 20 (tc) + 10 (beta) + 10 (omega) + 0 (samples)
	assert.InDelta(t, 1.0, e.Confidence(candidate(0.6, ideal()), 100), 1e-12)

	p := ideal()
	p.Tc, p.Beta, p.Omega = 1.3, 0.4, 9
	// 50 + 5 + 5 + 0 + 5
	assert.InDelta(t, 0.65, e.Confidence(candidate(0.5, p), 200), 1e-12)

	p.Tc, p.Beta = 1.8, 0.6
	assert.InDelta(t, 0.40, e.Confidence(candidate(0.3, p), 400), 1e-12)
}

func TestConfidenceMonotonicInRSquared(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	p := ideal()
	p.Tc = 1.45
	p.Omega = 10
	prev := -1.0
	for r2 := 0.0; r2 <= 1.0; r2 += 0.05 {
		conf := e.Confidence(candidate(r2, p), 250)
		assert.GreaterOrEqual(t, conf, prev)
		assert.LessOrEqual(t, conf, 1.0)
		prev = conf
	}
}

func TestTiers(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	in := models.AssessmentInput{Samples: 400, Range: coreRange, MinConfidence: 0.7}

	high := e.Evaluate(candidate(0.95, ideal()), in)
	assert.Equal(t, models.QualityHigh, high.Quality)
	assert.True(t, high.IsUsable)
	assert.Empty(t, high.Issues)

	mid := e.Evaluate(candidate(0.7, ideal()), in)
	assert.Equal(t, models.QualityAcceptable, mid.Quality)
	assert.True(t, mid.IsUsable)

	low := e.Evaluate(candidate(0.4, ideal()), in)
	assert.Equal(t, models.QualityPoor, low.Quality)
	assert.False(t, low.IsUsable)
	assert.Contains(t, low.Issues, "low r_squared 0.400")
}

func TestBoundarySticking(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	in := models.AssessmentInput{Samples: 400, Range: coreRange}

	p := ideal()
	p.Omega = 9
	qa := e.Evaluate(candidate(0.95, p), in)
	assert.Equal(t, models.QualityAcceptable, qa.Quality)
	assert.Contains(t, qa.Issues, "omega 9.0000 stuck at search bound")
	assert.Contains(t, qa.Issues, "omega 9.00 outside optimal band [6, 8]")

	// Without a range the check is skipped.
	qa = e.Evaluate(candidate(0.95, p), models.AssessmentInput{Samples: 400})
	assert.Equal(t, models.QualityHigh, qa.Quality)
}

func TestUsableNeedsConfidenceAboveMinimum(t *testing.T) {
	e := NewEvaluator(DefaultThresholds())
	p := ideal()
	p.Tc, p.Beta, p.Omega = 1.8, 0.6, 12

	qa := e.Evaluate(candidate(0.65, p), models.AssessmentInput{Samples: 50, Range: coreRange, MinConfidence: 0.7})
	assert.Equal(t, models.QualityAcceptable, qa.Quality)
	assert.InDelta(t, 0.65, qa.Confidence, 1e-12)
	assert.False(t, qa.IsUsable)
}
