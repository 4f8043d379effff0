package models

import "time"

type Strategy string

const (
	StrategyConservative Strategy = "conservative"
	StrategyExtensive    Strategy = "extensive"
	StrategyEmergency    Strategy = "emergency"
)

type RangeTier string

const (
	TierCore     RangeTier = "core"
	TierExtended RangeTier = "extended"
	TierMaximum  RangeTier = "maximum"
)

type SamplingMethod string

const (
	SamplingGrid       SamplingMethod = "grid"
	SamplingHybrid     SamplingMethod = "hybrid"
	SamplingRandomWide SamplingMethod = "random_wide"
)

type BubbleType string

const (
	BubbleTech            BubbleType = "tech"
	BubbleFinancialCrisis BubbleType = "financial_crisis"
	BubbleCommodity       BubbleType = "commodity"
	BubbleUnknown         BubbleType = "unknown"
)

// EscalationReason categorizes why a strategy run was not accepted.
type EscalationReason string

const (
	ReasonNoConvergence EscalationReason = "no_convergence"
	ReasonPoorQuality   EscalationReason = "poor_quality"
)

// StrategySpec is one row of the strategy table.
type StrategySpec struct {
	Name       Strategy       `json:"name"`
	Tier       RangeTier      `json:"tier"`
	Sampling   SamplingMethod `json:"sampling"`
	Trials     int            `json:"trials"`
	TimeBudget time.Duration  `json:"time_budget"`
	MinQuality float64        `json:"min_quality"`
}

// PerFitTimeout spreads the time budget across trials.
func (s StrategySpec) PerFitTimeout() time.Duration {
	if s.Trials <= 0 {
		return s.TimeBudget
	}
	return s.TimeBudget / time.Duration(s.Trials)
}

// Interval is a closed [Min, Max] range with a preferred center.
type Interval struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Center float64 `json:"center"`
}

// Contains reports whether v lies in the interval.
func (i Interval) Contains(v float64) bool { return v >= i.Min && v <= i.Max }

// Width returns Max - Min.
func (i Interval) Width() float64 { return i.Max - i.Min }

// SearchRange maps the tunable parameters of a tier to intervals.
type SearchRange struct {
	Tier  RangeTier `json:"tier"`
	Tc    Interval  `json:"tc"`
	Beta  Interval  `json:"beta"`
	Omega Interval  `json:"omega"`
}

// Contains reports whether r is nested in s.
func (s SearchRange) Contains(r SearchRange) bool {
	in := func(outer, inner Interval) bool { return inner.Min >= outer.Min && inner.Max <= outer.Max }
	return in(s.Tc, r.Tc) && in(s.Beta, r.Beta) && in(s.Omega, r.Omega)
}

// MarketCharacteristics is caller-supplied metadata used to shape the search space.
type MarketCharacteristics struct {
	Samples         int        `json:"samples"`
	Volatility      float64    `json:"volatility"`
	BubbleMagnitude float64    `json:"bubble_magnitude"`
	BubbleType      BubbleType `json:"bubble_type"`
	DataQuality     float64    `json:"data_quality"`
}

// FitPlan is a concrete search space for one strategy run.
type FitPlan struct {
	Strategy StrategySpec          `json:"strategy"`
	Range    SearchRange           `json:"range"`
	Bounds   Bounds                `json:"bounds"`
	Market   MarketCharacteristics `json:"market"`
}
