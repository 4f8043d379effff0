package validation

import (
	"math"
	"time"

	"BubbleScope/internal/domain/models"
)

// Split separates the series at the crash date. The crash day belongs to
// the post-event segment.
func Split(series models.PriceSeries, crash time.Time) (pre, post models.PriceSeries) {
	return series.Slice(time.Time{}, crash), series.Slice(crash, time.Time{})
}

// Stats computes bubble-formation statistics without any fitting.
// Gains are relative to the first pre-event close; the decline runs from
// the pre-event peak to the lowest post-event close.
func Stats(pre, post models.PriceSeries) models.BubbleStats {
	st := models.BubbleStats{Samples: pre.Len(), PostSamples: post.Len()}
	if pre.Len() == 0 {
		return st
	}
	first := pre.Points[0].Price
	last := pre.Points[pre.Len()-1].Price
	peak := pre.Points[0]
	for _, p := range pre.Points {
		if p.Price > peak.Price {
			peak = p
		}
	}
	st.TotalGain = (last/first - 1) * 100
	st.PeakGain = (peak.Price/first - 1) * 100
	st.PeakDate = peak.Time

	if post.Len() > 0 {
		low := math.Inf(1)
		for _, p := range post.Points {
			low = math.Min(low, p.Price)
		}
		st.MaxDecline = math.Max(0, (peak.Price-low)/peak.Price*100)
	}
	return st
}

// Feasibility scores how plausible an LPPL reproduction is on 100 points.
func Feasibility(st models.BubbleStats) models.Feasibility {
	checks := []models.FeasibilityCheck{
		{Name: "bubble_magnitude", Max: 30, Value: st.TotalGain, Points: tiered(st.TotalGain, 50, 30, 30, 20)},
		{Name: "sample_count", Max: 25, Value: float64(st.Samples), Points: tiered(float64(st.Samples), 500, 25, 200, 15)},
		{Name: "accelerating_growth", Max: 25, Value: st.PeakGain},
		{Name: "realized_decline", Max: 20, Value: st.MaxDecline, Points: tiered(st.MaxDecline, 20, 20, 10, 10)},
	}
	if st.TotalGain > 0 && st.PeakGain >= 0.8*st.TotalGain {
		checks[2].Points = 25
	} else {
		checks[2].Points = 10
	}

	f := models.Feasibility{Checks: checks}
	for _, c := range checks {
		f.Score += c.Points
	}
	switch {
	case f.Score >= 80:
		f.Band = "excellent"
	case f.Score >= 60:
		f.Band = "good"
	case f.Score >= 40:
		f.Band = "caution"
	default:
		f.Band = "poor"
	}
	return f
}

// tiered awards hiPts above hi, loPts above lo, otherwise nothing.
func tiered(v, hi float64, hiPts int, lo float64, loPts int) int {
	switch {
	case v > hi:
		return hiPts
	case v > lo:
		return loPts
	}
	return 0
}

// CrossCheck compares computed statistics with the documented ones.
// Gains and decline tolerate a fixed number of percentage points; the
// sample count tolerates 10%.
func CrossCheck(actual models.BubbleStats, expected *models.BubbleStats) []models.CrossCheckItem {
	if expected == nil {
		return nil
	}
	item := func(name string, exp, act, tol float64) models.CrossCheckItem {
		return models.CrossCheckItem{Name: name, Expected: exp, Actual: act, Tolerance: tol, Passed: math.Abs(act-exp) <= tol}
	}
	return []models.CrossCheckItem{
		item("total_gain", expected.TotalGain, actual.TotalGain, 10),
		item("peak_gain", expected.PeakGain, actual.PeakGain, 10),
		item("max_decline", expected.MaxDecline, actual.MaxDecline, 5),
		item("samples", float64(expected.Samples), float64(actual.Samples), 0.1*float64(expected.Samples)),
	}
}

// ReproductionQuality grades the share of parameters within tolerance.
func ReproductionQuality(ratio float64) string {
	switch {
	case ratio >= 0.8:
		return "excellent"
	case ratio >= 0.6:
		return "good"
	}
	return "poor"
}
