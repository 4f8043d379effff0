package models

// Requests for the HTTP endpoints. Defined in domain for reuse by the CLI.

type FitRequest struct {
	Symbol       string                 `json:"symbol" validate:"required_without=Points"`
	From         string                 `json:"from"`
	To           string                 `json:"to"`
	Timeframe    string                 `json:"timeframe" validate:"omitempty,oneof=1d 1w"`
	Points       []PricePoint           `json:"points" validate:"omitempty,dive"`
	Strategy     string                 `json:"strategy" validate:"omitempty,oneof=conservative extensive emergency"`
	BubbleType   string                 `json:"bubble_type" validate:"omitempty,oneof=tech financial_crisis commodity unknown"`
	Market       *MarketCharacteristics `json:"market,omitempty"`
	Trials       int                    `json:"trials" validate:"gte=0,lte=5000"`
	AutoEscalate bool                   `json:"auto_escalate"`
	NoCache      bool                   `json:"no_cache"`
	Candidates   bool                   `json:"include_candidates"`
}

type ValidateRequest struct {
	Episode    string `param:"episode" json:"episode" validate:"required"`
	Fit        *bool  `query:"fit" json:"fit" default:"true"`
	CrossCheck *bool  `query:"cross_check" json:"cross_check" default:"true"`
	CutoffDays int    `query:"cutoff_days" json:"cutoff_days" validate:"omitempty,gte=30,lte=100"`
	Strategy   string `query:"strategy" json:"strategy" validate:"omitempty,oneof=conservative extensive emergency"`
}

type HistoryStatsRequest struct {
	BubbleType string `query:"bubble_type" json:"bubble_type" validate:"omitempty,oneof=tech financial_crisis commodity unknown"`
	Strategy   string `query:"strategy" json:"strategy" validate:"omitempty,oneof=conservative extensive emergency"`
}

type LatestResultRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=500"`
}
