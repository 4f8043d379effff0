package models

import "time"

// PricePoint is one observation of a price series.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price" validate:"gt=0"`
}

// PriceSeries is an ordered close-price history. The core only reads it.
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// Len returns the number of samples.
func (s PriceSeries) Len() int { return len(s.Points) }

// Span returns the first and last timestamps.
func (s PriceSeries) Span() (time.Time, time.Time) {
	if len(s.Points) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.Points[0].Time, s.Points[len(s.Points)-1].Time
}

// Slice returns the points with from <= Time < to. A zero bound is open.
func (s PriceSeries) Slice(from, to time.Time) PriceSeries {
	out := PriceSeries{Symbol: s.Symbol}
	for _, p := range s.Points {
		if !from.IsZero() && p.Time.Before(from) {
			continue
		}
		if !to.IsZero() && !p.Time.Before(to) {
			continue
		}
		out.Points = append(out.Points, p)
	}
	return out
}

// ParameterVector holds the seven LPPL parameters.
// Tc is expressed in normalized time where the observed window spans [0,1].
type ParameterVector struct {
	Tc    float64 `json:"tc"`
	Beta  float64 `json:"beta"`
	Omega float64 `json:"omega"`
	Phi   float64 `json:"phi"`
	A     float64 `json:"a"`
	B     float64 `json:"b"`
	C     float64 `json:"c"`
}

// ParameterCheck is the verdict for a single parameter.
type ParameterCheck struct {
	Value   float64 `json:"value"`
	Valid   bool    `json:"valid"`
	Optimal bool    `json:"optimal"`
}

// ParameterVerdict is the structured result of a theoretical compliance check.
type ParameterVerdict struct {
	Tc              ParameterCheck `json:"tc"`
	Beta            ParameterCheck `json:"beta"`
	Omega           ParameterCheck `json:"omega"`
	Phi             ParameterCheck `json:"phi"`
	AllValid        bool           `json:"all_valid"`
	ComplianceScore float64        `json:"compliance_score"` // 0-100
	Recommendations []string       `json:"recommendations,omitempty"`
}

// Bounds is a box constraint on all seven parameters.
type Bounds struct {
	Lower ParameterVector `json:"lower"`
	Upper ParameterVector `json:"upper"`
}

// NormalizedSeries is a price series mapped to t in [0,1] and log prices.
type NormalizedSeries struct {
	T        []float64
	LogPrice []float64
	Start    time.Time
	End      time.Time
}

// Len returns the number of samples.
func (n *NormalizedSeries) Len() int { return len(n.T) }

// CriticalDate converts a normalized critical time into wall-clock time.
func (n *NormalizedSeries) CriticalDate(tc float64) time.Time {
	span := n.End.Sub(n.Start)
	return n.Start.Add(time.Duration(tc * float64(span)))
}
