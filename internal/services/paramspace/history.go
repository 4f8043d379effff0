package paramspace

import (
	"sync"
	"time"

	"BubbleScope/internal/domain/models"
)

// DefaultHistoryLimit caps the number of retained records.
const DefaultHistoryLimit = 1000

// FittingHistory accumulates fitting attempts for success-rate reporting.
// It is owned by the caller; nothing in this package keeps one globally.
type FittingHistory struct {
	mu      sync.RWMutex
	records []models.HistoryRecord
	limit   int
}

// NewFittingHistory creates an empty history keeping at most limit records.
func NewFittingHistory(limit int) *FittingHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &FittingHistory{limit: limit}
}

// Record appends an attempt, dropping the oldest records beyond the limit.
func (h *FittingHistory) Record(r models.HistoryRecord) {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	if over := len(h.records) - h.limit; over > 0 {
		h.records = append(h.records[:0:0], h.records[over:]...)
	}
}

// Len returns the number of retained records.
func (h *FittingHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Stats summarizes the records matching f. Averages are over successful
// attempts only.
func (h *FittingHistory) Stats(f models.HistoryFilter) models.HistoryStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var (
		total, ok int
		quality   float64
		conv      time.Duration
	)
	for _, r := range h.records {
		if f.BubbleType != "" && r.BubbleType != f.BubbleType {
			continue
		}
		if f.Strategy != "" && r.Strategy != f.Strategy {
			continue
		}
		total++
		if r.Success {
			ok++
			quality += r.Quality
			conv += r.ConvergenceTime
		}
	}
	st := models.HistoryStats{TotalAttempts: total}
	if total == 0 {
		return st
	}
	st.SuccessRate = float64(ok) / float64(total)
	if ok > 0 {
		st.AvgQuality = quality / float64(ok)
		st.AvgConvergenceTime = conv / time.Duration(ok)
	}
	return st
}
