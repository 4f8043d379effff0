package features

import (
	"math"

	"BubbleScope/internal/domain/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ComputeLogReturns computes log returns r_t = ln(P_t / P_{t-1}).
// It returns a slice of length len(points)-1, or nil if insufficient data.
func ComputeLogReturns(points []models.PricePoint) []float64 {
	if len(points) < 2 {
		return nil
	}
	out := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Price
		cur := points[i].Price
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes annualized realized volatility over the last
// window returns. A window <= 0 uses every return.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 0 || window > len(logReturns) {
		window = len(logReturns)
	}
	if window < 2 {
		return 0
	}
	sd := stat.StdDev(logReturns[len(logReturns)-window:], nil)
	return sd * math.Sqrt(barsPerYear)
}

// BarsPerYearForTF returns the approximate number of bars per year for a timeframe.
func BarsPerYearForTF(tf string) float64 {
	switch tf {
	case "1w":
		return 52
	default:
		return 252
	}
}

// BubbleMagnitude is the fractional increase from the first price to the peak.
func BubbleMagnitude(points []models.PricePoint) float64 {
	if len(points) == 0 || points[0].Price <= 0 {
		return 0
	}
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	return floats.Max(prices)/prices[0] - 1
}

// DataQuality scores a series in [0,1]: the share of returns that are not
// stale (exactly zero).
func DataQuality(logReturns []float64) float64 {
	if len(logReturns) == 0 {
		return 0
	}
	stale := 0
	for _, r := range logReturns {
		if r == 0 {
			stale++
		}
	}
	return 1 - float64(stale)/float64(len(logReturns))
}

// Characterize derives MarketCharacteristics from a price series.
func Characterize(series models.PriceSeries, tf string, bubble models.BubbleType) models.MarketCharacteristics {
	if bubble == "" {
		bubble = models.BubbleUnknown
	}
	rets := ComputeLogReturns(series.Points)
	return models.MarketCharacteristics{
		Samples:         series.Len(),
		Volatility:      RealizedVolatility(rets, 0, BarsPerYearForTF(tf)),
		BubbleMagnitude: BubbleMagnitude(series.Points),
		BubbleType:      bubble,
		DataQuality:     DataQuality(rets),
	}
}
