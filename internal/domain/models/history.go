package models

import "time"

// HistoryRecord is one fitting attempt kept by a FittingHistory.
type HistoryRecord struct {
	At              time.Time     `json:"at"`
	Strategy        Strategy      `json:"strategy"`
	BubbleType      BubbleType    `json:"bubble_type"`
	Success         bool          `json:"success"`
	Quality         float64       `json:"quality"` // r_squared of the primary selection
	ConvergenceTime time.Duration `json:"convergence_time"`
}

// HistoryFilter narrows statistics. Empty fields match everything.
type HistoryFilter struct {
	BubbleType BubbleType
	Strategy   Strategy
}

// HistoryStats summarizes recorded attempts.
type HistoryStats struct {
	SuccessRate        float64       `json:"success_rate"`
	AvgQuality         float64       `json:"avg_quality"`
	TotalAttempts      int           `json:"total_attempts"`
	AvgConvergenceTime time.Duration `json:"avg_convergence_time"`
}
