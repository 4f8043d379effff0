package models

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateModel means tc excludes every observation time.
	ErrDegenerateModel  = errors.New("lppl: model undefined on the whole time domain")
	ErrUnknownStrategy  = errors.New("unknown fitting strategy")
	ErrEpisodeNotFound  = errors.New("historical episode not found")
	ErrTerminalStrategy = errors.New("no escalation target after emergency")
)

// DataError reports an input series the engine refuses to fit.
type DataError struct {
	Reason string
	Index  int
}

func (e *DataError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("data error: %s (at sample %d)", e.Reason, e.Index)
	}
	return "data error: " + e.Reason
}

// NewDataError creates a DataError not tied to a sample.
func NewDataError(reason string) *DataError {
	return &DataError{Reason: reason, Index: -1}
}

// IsDataError reports whether err wraps a *DataError.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}

// Failure reasons recorded on non-convergent candidates.
const (
	FailIterationCap = "iteration cap reached"
	FailTimeout      = "per-fit timeout"
	FailOutOfBounds  = "parameters outside hard bounds"
	FailDegenerate   = "degenerate model"
	FailZeroVariance = "zero variance target"
	FailNumerical    = "numerical failure"
	FailNotStarted   = "cancelled before start"
)
