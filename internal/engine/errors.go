package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeCapacity indicates the arena is full.
	ErrCodeCapacity ErrorCode = "CAPACITY_EXCEEDED"

	// ErrCodeMalformed indicates unparsable or out-of-range input.
	ErrCodeMalformed ErrorCode = "MALFORMED_INPUT"

	// ErrCodeInconsistent indicates a broken internal invariant. It signals
	// an engine defect, not bad input.
	ErrCodeInconsistent ErrorCode = "INTERNAL_INCONSISTENCY"
)

// CapacityError is returned when a node cannot be allocated because the
// arena reached its configured size.
type CapacityError struct {
	// Limit is the configured arena capacity.
	Limit int
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s: arena full (%d nodes)", ErrCodeCapacity, e.Limit)
}

// Code returns the error category.
func (e *CapacityError) Code() ErrorCode { return ErrCodeCapacity }

// MalformedError reports input the engine refuses to build from.
type MalformedError struct {
	// Pos is the byte offset in the source text, or -1 when not applicable.
	Pos int

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *MalformedError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s: %s (offset %d)", ErrCodeMalformed, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", ErrCodeMalformed, e.Message)
}

// Unwrap returns the underlying cause.
func (e *MalformedError) Unwrap() error { return e.Err }

// Code returns the error category.
func (e *MalformedError) Code() ErrorCode { return ErrCodeMalformed }

// InconsistencyError reports an internal invariant violation found in the
// arena.
type InconsistencyError struct {
	// Group is the group header involved, 0 when unknown.
	Group uint32

	// Node is the offending node, 0 when unknown.
	Node uint32

	// Message is a human-readable description.
	Message string

	// Details contains additional context.
	Details map[string]string
}

// Error implements the error interface.
func (e *InconsistencyError) Error() string {
	switch {
	case e.Group != 0 && e.Node != 0:
		return fmt.Sprintf("%s: %s (group=%d, node=%d)", ErrCodeInconsistent, e.Message, e.Group, e.Node)
	case e.Group != 0:
		return fmt.Sprintf("%s: %s (group=%d)", ErrCodeInconsistent, e.Message, e.Group)
	}
	return fmt.Sprintf("%s: %s", ErrCodeInconsistent, e.Message)
}

// Code returns the error category.
func (e *InconsistencyError) Code() ErrorCode { return ErrCodeInconsistent }

// NewCapacityError creates a CapacityError for the given limit.
func NewCapacityError(limit int) *CapacityError {
	return &CapacityError{Limit: limit}
}

// NewMalformedError creates a MalformedError at a source offset.
func NewMalformedError(pos int, format string, args ...any) *MalformedError {
	return &MalformedError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// NewInconsistencyError creates an InconsistencyError for a group/node.
func NewInconsistencyError(gid, nid uint32, format string, args ...any) *InconsistencyError {
	return &InconsistencyError{Group: gid, Node: nid, Message: fmt.Sprintf(format, args...)}
}

// IsCapacityError returns true if the error is an arena overflow.
// Uses errors.As to handle wrapped errors.
func IsCapacityError(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}

// IsMalformedError returns true if the error reports malformed input.
// Uses errors.As to handle wrapped errors.
func IsMalformedError(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}

// IsInconsistencyError returns true if the error reports a broken invariant.
// Uses errors.As to handle wrapped errors.
func IsInconsistencyError(err error) bool {
	var ie *InconsistencyError
	return errors.As(err, &ie)
}

// CodeOf returns the category of an engine error, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	var coded interface{ Code() ErrorCode }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
