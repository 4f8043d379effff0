// Package paramspace turns a fitting strategy and coarse market
// characteristics into a bounded search space and a batch of initial guesses.
package paramspace

import (
	"fmt"
	"math"

	"BubbleScope/internal/domain/models"
	"BubbleScope/internal/services/lppl"
)

// Center values shared by every tier.
const (
	tcCenter    = 1.15
	betaCenter  = 0.33
	omegaCenter = 6.36
)

// linearBound boxes A and B, which have no theoretical target.
const linearBound = 1e3

var tiers = map[models.RangeTier]models.SearchRange{
	models.TierCore: {
		Tier:  models.TierCore,
		Tc:    models.Interval{Min: 1.01, Max: 1.3, Center: tcCenter},
		Beta:  models.Interval{Min: 0.25, Max: 0.50, Center: betaCenter},
		Omega: models.Interval{Min: 5.0, Max: 9.0, Center: omegaCenter},
	},
	models.TierExtended: {
		Tier:  models.TierExtended,
		Tc:    models.Interval{Min: 1.001, Max: 1.5, Center: tcCenter},
		Beta:  models.Interval{Min: lppl.Limits.Beta.Min, Max: lppl.Limits.Beta.Max, Center: betaCenter},
		Omega: models.Interval{Min: 3.0, Max: 15.0, Center: omegaCenter},
	},
	models.TierMaximum: {
		Tier:  models.TierMaximum,
		Tc:    models.Interval{Min: 1.001, Max: lppl.Limits.Tc.Max, Center: tcCenter},
		Beta:  models.Interval{Min: lppl.Limits.Beta.Min, Max: lppl.Limits.Beta.Max, Center: betaCenter},
		Omega: models.Interval{Min: lppl.Limits.Omega.Min, Max: lppl.Limits.Omega.Max, Center: omegaCenter},
	},
}

type adjustment struct {
	beta     models.Interval
	omega    models.Interval
	tcFactor float64
}

var bubbleAdjustments = map[models.BubbleType]adjustment{
	models.BubbleTech: {
		beta:     models.Interval{Min: 0.30, Max: 0.40, Center: 0.35},
		omega:    models.Interval{Min: 6.0, Max: 8.0, Center: 7.0},
		tcFactor: 1.1,
	},
	models.BubbleFinancialCrisis: {
		beta:     models.Interval{Min: 0.20, Max: 0.60, Center: 0.33},
		omega:    models.Interval{Min: 4.0, Max: 10.0, Center: 6.5},
		tcFactor: 1.0,
	},
	models.BubbleCommodity: {
		beta:     models.Interval{Min: 0.25, Max: 0.45, Center: 0.33},
		omega:    models.Interval{Min: 5.0, Max: 7.0, Center: 6.0},
		tcFactor: 1.15,
	},
	models.BubbleUnknown: {
		beta:     models.Interval{Min: 0.10, Max: 0.70, Center: 0.33},
		omega:    models.Interval{Min: 3.0, Max: 12.0, Center: 6.36},
		tcFactor: 1.2,
	},
}

// Range returns the base search range of a tier.
func Range(tier models.RangeTier) (models.SearchRange, error) {
	r, ok := tiers[tier]
	if !ok {
		return models.SearchRange{}, fmt.Errorf("unknown range tier %q", tier)
	}
	return r, nil
}

// PeriodFactor widens tc for longer windows: min(1.5, 1 + samples/1000).
func PeriodFactor(samples int) float64 {
	return math.Min(1.5, 1+float64(samples)/1000)
}

// Adjusted narrows beta/omega for the bubble type and widens the tc ceiling
// for the bubble type and sample count. Every bound stays inside the hard
// limits of the lppl package.
func Adjusted(tier models.RangeTier, m models.MarketCharacteristics) (models.SearchRange, error) {
	r, err := Range(tier)
	if err != nil {
		return r, err
	}
	adj, ok := bubbleAdjustments[m.BubbleType]
	if !ok {
		adj = bubbleAdjustments[models.BubbleUnknown]
	}
	r.Beta = narrow(r.Beta, adj.beta)
	r.Omega = narrow(r.Omega, adj.omega)
	r.Tc.Max = math.Min(r.Tc.Max*adj.tcFactor*PeriodFactor(m.Samples), lppl.Limits.Tc.Max)
	return r, nil
}

func narrow(base, by models.Interval) models.Interval {
	lo := math.Max(base.Min, by.Min)
	hi := math.Min(base.Max, by.Max)
	if lo >= hi {
		return base
	}
	return models.Interval{Min: lo, Max: hi, Center: math.Min(math.Max(by.Center, lo), hi)}
}

// Bounds builds the 7-parameter box for a search range.
func Bounds(r models.SearchRange) models.Bounds {
	return models.Bounds{
		Lower: models.ParameterVector{
			Tc: r.Tc.Min, Beta: r.Beta.Min, Omega: r.Omega.Min,
			Phi: lppl.Limits.Phi.Min, A: -linearBound, B: -linearBound, C: lppl.Limits.C.Min,
		},
		Upper: models.ParameterVector{
			Tc: r.Tc.Max, Beta: r.Beta.Max, Omega: r.Omega.Max,
			Phi: lppl.Limits.Phi.Max, A: linearBound, B: linearBound, C: lppl.Limits.C.Max,
		},
	}
}
