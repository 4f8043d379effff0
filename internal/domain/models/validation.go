package models

import "time"

// Episode is a documented historical bubble used as a regression oracle.
type Episode struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Symbol     string       `json:"symbol"`
	Start      time.Time    `json:"start"`
	End        time.Time    `json:"end"`
	CrashDate  time.Time    `json:"crash_date"`
	Beta       float64      `json:"beta"`
	Omega      float64      `json:"omega"`
	BetaTol    float64      `json:"beta_tolerance"`
	OmegaTol   float64      `json:"omega_tolerance"`
	CutoffDays int          `json:"cutoff_days"`
	Reference  string       `json:"reference"`
	Expected   *BubbleStats `json:"expected,omitempty"`
	BubbleType BubbleType   `json:"bubble_type"`
}

// ValidationStage tracks progress through a validation run.
type ValidationStage string

const (
	StageDataLoaded       ValidationStage = "data_loaded"
	StageBubbleAnalyzed   ValidationStage = "bubble_analyzed"
	StagePredictionScored ValidationStage = "prediction_scored"
	StageCrossChecked     ValidationStage = "cross_checked"
	StageCompleted        ValidationStage = "completed"
)

// BubbleStats are descriptive statistics computed without any fitting.
// Gains and decline are percentages.
type BubbleStats struct {
	TotalGain   float64   `json:"total_gain"`
	PeakGain    float64   `json:"peak_gain"`
	PeakDate    time.Time `json:"peak_date"`
	MaxDecline  float64   `json:"max_decline"`
	Samples     int       `json:"samples"`
	PostSamples int       `json:"post_samples"`
}

// FeasibilityCheck is one rule of the feasibility score.
type FeasibilityCheck struct {
	Name   string  `json:"name"`
	Points int     `json:"points"`
	Max    int     `json:"max"`
	Value  float64 `json:"value"`
}

// Feasibility is the rule-based 100 point score.
type Feasibility struct {
	Score  int                `json:"score"`
	Band   string             `json:"band"`
	Checks []FeasibilityCheck `json:"checks"`
}

// Reproduction compares recovered parameters with published values.
type Reproduction struct {
	Attempted   bool              `json:"attempted"`
	Cutoff      time.Time         `json:"cutoff"`
	Selected    *FittingCandidate `json:"selected,omitempty"`
	BetaWithin  bool              `json:"beta_within"`
	OmegaWithin bool              `json:"omega_within"`
	MatchRatio  float64           `json:"match_ratio"`
	Quality     string            `json:"quality"`
	Error       string            `json:"error,omitempty"`
}

// CrossCheckItem compares one statistic with its documented value.
type CrossCheckItem struct {
	Name      string  `json:"name"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Tolerance float64 `json:"tolerance"`
	Passed    bool    `json:"passed"`
}

// ValidationReport is the full outcome of a validation run. Failures are
// recorded in Errors rather than returned.
type ValidationReport struct {
	EpisodeID    string           `json:"episode_id"`
	Stage        ValidationStage  `json:"stage"`
	Stats        BubbleStats      `json:"stats"`
	Feasibility  Feasibility      `json:"feasibility"`
	Reproduction *Reproduction    `json:"reproduction,omitempty"`
	CrossCheck   []CrossCheckItem `json:"cross_check,omitempty"`
	Passed       bool             `json:"passed"`
	Errors       []string         `json:"errors,omitempty"`
}

// ValidationOptions selects the optional stages of a validation run.
type ValidationOptions struct {
	Fit        bool
	CrossCheck bool
	CutoffDays int
	Strategy   Strategy
}
