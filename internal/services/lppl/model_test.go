package lppl

import (
	"math"
	"testing"

	"BubbleScope/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleParams() models.ParameterVector {
	return models.ParameterVector{Tc: 1.2, Beta: 0.33, Omega: 6.5, Phi: 0.4, A: 5, B: -0.8, C: 0.05}
}

func TestPowerLaw(t *testing.T) {
	assert.InDelta(t, 1+2*math.Pow(0.5, 0.5), PowerLaw(0.5, 1.0, 0.5, 1, 2), 1e-12)
	assert.Equal(t, 0.0, PowerLaw(1.0, 1.0, 0.5, 1, 2))
	assert.Equal(t, 0.0, PowerLaw(1.5, 1.0, 0.5, 1, 2))
}

func TestLogPeriodicMatchesFormula(t *testing.T) {
	p := sampleParams()
	dt := p.Tc - 0.3
	want := p.A + p.B*math.Pow(dt, p.Beta) + p.C*math.Pow(dt, p.Beta)*math.Cos(p.Omega*math.Log(dt)+p.Phi)
	assert.InDelta(t, want, LogPeriodic(0.3, p), 1e-12)
}

func TestLogPeriodicDomainMask(t *testing.T) {
	p := sampleParams()
	ts := []float64{0, 0.5, 1.0, 1.19, 1.2, 1.3, 2.5}
	vals, err := LogPeriodicSeries(ts, p)
	require.NoError(t, err)
	require.Len(t, vals, len(ts))
	for i, v := range vals {
		assert.False(t, math.IsNaN(v), "index %d", i)
		assert.False(t, math.IsInf(v, 0), "index %d", i)
		if ts[i] >= p.Tc {
			assert.Equal(t, 0.0, v, "index %d", i)
		}
	}
	assert.NotEqual(t, 0.0, vals[0])
}

func TestSeriesDegenerate(t *testing.T) {
	p := sampleParams()
	p.Tc = 0.5
	_, err := LogPeriodicSeries([]float64{0.6, 0.7, 1.0}, p)
	assert.ErrorIs(t, err, models.ErrDegenerateModel)

	_, err = PowerLawSeries([]float64{0.6, 0.7}, 0.5, 0.3, 1, 1)
	assert.ErrorIs(t, err, models.ErrDegenerateModel)

	vals, err := PowerLawSeries([]float64{0.1, 0.6}, 0.5, 0.3, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, vals[1])
}

func TestInDomain(t *testing.T) {
	assert.Equal(t, 2, InDomain([]float64{0, 0.5, 1, 1.5}, 1))
}
