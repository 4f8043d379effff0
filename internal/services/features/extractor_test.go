package features

import (
	"math"
	"testing"
	"time"

	"BubbleScope/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(prices ...float64) models.PriceSeries {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	s := models.PriceSeries{Symbol: "TEST"}
	for i, p := range prices {
		s.Points = append(s.Points, models.PricePoint{Time: start.AddDate(0, 0, i), Price: p})
	}
	return s
}

func TestComputeLogReturns(t *testing.T) {
	r := ComputeLogReturns(series(100, 110, 121).Points)
	require.Len(t, r, 2)
	assert.InDelta(t, math.Log(1.1), r[0], 1e-12)
	assert.InDelta(t, math.Log(1.1), r[1], 1e-12)
	assert.Nil(t, ComputeLogReturns(series(1).Points))
}

func TestRealizedVolatilityConstantReturns(t *testing.T) {
	r := ComputeLogReturns(series(100, 110, 121, 133.1).Points)
	assert.InDelta(t, 0, RealizedVolatility(r, 0, 252), 1e-9)
	assert.Equal(t, 0.0, RealizedVolatility(r[:1], 0, 252))
}

func TestCharacterize(t *testing.T) {
	m := Characterize(series(100, 100, 150, 120), "1d", "")
	assert.Equal(t, 4, m.Samples)
	assert.Equal(t, models.BubbleUnknown, m.BubbleType)
	assert.InDelta(t, 0.5, m.BubbleMagnitude, 1e-12)
	assert.InDelta(t, 2.0/3.0, m.DataQuality, 1e-12)
	assert.Greater(t, m.Volatility, 0.0)
}
