package models

import "time"

// FitReport is the plain structured output handed to persistence and
// alerting collaborators.
type FitReport struct {
	RunID          string                         `json:"run_id"`
	Symbol         string                         `json:"symbol"`
	Strategy       Strategy                       `json:"strategy"`
	Path           []Strategy                     `json:"path"`
	Reasons        []EscalationReason             `json:"reasons,omitempty"`
	Samples        int                            `json:"samples"`
	Start          time.Time                      `json:"start"`
	End            time.Time                      `json:"end"`
	Market         MarketCharacteristics          `json:"market"`
	Primary        *FittingCandidate              `json:"primary,omitempty"`
	CriticalDate   *time.Time                     `json:"critical_date,omitempty"`
	DaysToCritical float64                        `json:"days_to_critical,omitempty"`
	Winners        map[Criterion]FittingCandidate `json:"winners,omitempty"`
	Stats          SelectionStats                 `json:"stats"`
	Candidates     []FittingCandidate             `json:"candidates,omitempty"`
	Cancelled      bool                           `json:"cancelled"`
	Cached         bool                           `json:"cached"`
	CreatedAt      time.Time                      `json:"created_at"`
}

// Usable reports whether the report carries a usable primary selection.
func (r *FitReport) Usable() bool {
	return r != nil && r.Primary != nil && r.Primary.Quality.IsUsable
}

// StoredSelection is one persisted primary selection row.
type StoredSelection struct {
	RunID      string          `json:"run_id"`
	Symbol     string          `json:"symbol"`
	Strategy   Strategy        `json:"strategy"`
	Params     ParameterVector `json:"params"`
	RSquared   float64         `json:"r_squared"`
	RMSE       float64         `json:"rmse"`
	Quality    QualityTier     `json:"quality"`
	Confidence float64         `json:"confidence"`
	IsUsable   bool            `json:"is_usable"`
	Critical   time.Time       `json:"critical_date"`
	WindowEnd  time.Time       `json:"window_end"`
	CreatedAt  time.Time       `json:"created_at"`
}
