package paramspace

import (
	"fmt"
	"time"

	"BubbleScope/internal/domain/models"
)

var strategyTable = []models.StrategySpec{
	{Name: models.StrategyConservative, Tier: models.TierCore, Sampling: models.SamplingGrid, Trials: 100, TimeBudget: 30 * time.Second, MinQuality: 0.7},
	{Name: models.StrategyExtensive, Tier: models.TierExtended, Sampling: models.SamplingHybrid, Trials: 500, TimeBudget: 120 * time.Second, MinQuality: 0.6},
	{Name: models.StrategyEmergency, Tier: models.TierMaximum, Sampling: models.SamplingRandomWide, Trials: 1000, TimeBudget: 300 * time.Second, MinQuality: 0.3},
}

// escalation maps a strategy to the next one when a run is rejected.
var escalation = map[models.Strategy]models.Strategy{
	models.StrategyConservative: models.StrategyExtensive,
	models.StrategyExtensive:    models.StrategyEmergency,
}

// Strategies returns the strategy table in escalation order.
func Strategies() []models.StrategySpec {
	out := make([]models.StrategySpec, len(strategyTable))
	copy(out, strategyTable)
	return out
}

// Lookup returns the table row for a strategy name.
func Lookup(name string) (models.StrategySpec, error) {
	for _, s := range strategyTable {
		if string(s.Name) == name {
			return s, nil
		}
	}
	return models.StrategySpec{}, fmt.Errorf("%w: %q", models.ErrUnknownStrategy, name)
}

// Plan resolves the search space for a strategy. A nil market falls back to
// the unknown bubble type and the unadjusted tier ranges.
func Plan(strategy string, market *models.MarketCharacteristics) (models.FitPlan, error) {
	spec, err := Lookup(strategy)
	if err != nil {
		return models.FitPlan{}, err
	}
	var r models.SearchRange
	m := models.MarketCharacteristics{BubbleType: models.BubbleUnknown}
	if market == nil {
		r, err = Range(spec.Tier)
	} else {
		m = *market
		if m.BubbleType == "" {
			m.BubbleType = models.BubbleUnknown
		}
		r, err = Adjusted(spec.Tier, m)
	}
	if err != nil {
		return models.FitPlan{}, err
	}
	return models.FitPlan{Strategy: spec, Range: r, Bounds: Bounds(r), Market: m}, nil
}

// Escalate returns the strategy to try after current was rejected for reason.
// A run without any convergent candidate jumps straight to emergency.
func Escalate(current models.Strategy, reason models.EscalationReason) (models.Strategy, error) {
	if current == models.StrategyEmergency {
		return "", models.ErrTerminalStrategy
	}
	if _, ok := escalation[current]; !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnknownStrategy, current)
	}
	if reason == models.ReasonNoConvergence {
		return models.StrategyEmergency, nil
	}
	return escalation[current], nil
}

// Diagnose decides whether a run is accepted and, if not, why.
func Diagnose(res *models.SelectionResult) (models.EscalationReason, bool) {
	if res == nil || res.Stats.Converged == 0 {
		return models.ReasonNoConvergence, false
	}
	if res.Stats.Usable == 0 {
		return models.ReasonPoorQuality, false
	}
	return "", true
}
