// Package optimizer fits the LPPL model to one normalized series from one
// initial guess.
package optimizer

import (
	"fmt"
	"math"

	"BubbleScope/internal/domain/models"
)

// MinSamples is the shortest series the engine agrees to fit.
const MinSamples = 100

// Normalize validates a price series and maps it to t in [0,1] and log prices.
func Normalize(series models.PriceSeries) (*models.NormalizedSeries, error) {
	n := series.Len()
	if n < MinSamples {
		return nil, models.NewDataError(fmt.Sprintf("series has %d samples, need at least %d", n, MinSamples))
	}
	pts := series.Points
	for i, p := range pts {
		if !(p.Price > 0) || math.IsInf(p.Price, 0) {
			return nil, &models.DataError{Reason: fmt.Sprintf("non-positive or invalid price %v", p.Price), Index: i}
		}
		if i > 0 && !p.Time.After(pts[i-1].Time) {
			return nil, &models.DataError{Reason: "timestamps are not strictly increasing", Index: i}
		}
	}

	start, end := series.Span()
	span := end.Sub(start).Seconds()
	out := &models.NormalizedSeries{
		T:        make([]float64, n),
		LogPrice: make([]float64, n),
		Start:    start,
		End:      end,
	}
	for i, p := range pts {
		out.T[i] = p.Time.Sub(start).Seconds() / span
		out.LogPrice[i] = math.Log(p.Price)
	}
	out.T[n-1] = 1
	return out, nil
}
