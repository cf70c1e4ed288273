package engine

import (
	"errors"
	"fmt"
)

// relocationQuota bounds the repair passes of updateGroups.
//
// Each pass that relocates at least one group consumes one step. Forward
// references only arise from merges, so well-formed input settles within a
// few passes; a mutually forward subset would otherwise relocate forever.
type relocationQuota struct {
	maxPasses int
	current   int
}

// newRelocationQuota creates a quota with the given pass limit.
func newRelocationQuota(maxPasses int) *relocationQuota {
	return &relocationQuota{maxPasses: maxPasses}
}

// Check consumes one pass and reports the overrun, if any.
func (q *relocationQuota) Check() error {
	q.current++
	if q.current > q.maxPasses {
		return &PassesExceededError{Passes: q.current, Limit: q.maxPasses}
	}
	return nil
}

// Current returns the number of passes consumed.
func (q *relocationQuota) Current() int {
	return q.current
}

// PassesExceededError is reported when relocation does not settle within
// the pass budget. updateGroups recovers from it with the fallback pass; it
// only reaches callers wrapped in an anomaly log line.
type PassesExceededError struct {
	Passes int
	Limit  int
}

// Error implements the error interface.
func (e *PassesExceededError) Error() string {
	return fmt.Sprintf("group relocation did not settle: %d passes > %d limit", e.Passes, e.Limit)
}

// IsPassesExceededError returns true if the error is a PassesExceededError.
// Uses errors.As to handle wrapped errors.
func IsPassesExceededError(err error) bool {
	var pe *PassesExceededError
	return errors.As(err, &pe)
}
