package rediset

import (
	"errors"
	"fmt"
)

// ErrUsage matches every *UsageError via errors.Is.
var ErrUsage = errors.New("rediset: usage error")

// UsageError reports a call the node tree cannot serve, such as mutating a
// derived node or building an operation without operands. Not retryable.
type UsageError struct {
	Op     string
	Reason string
}

func (e *UsageError) Error() string {
	if e.Op == "" {
		return "rediset: " + e.Reason
	}
	return fmt.Sprintf("rediset: %s: %s", e.Op, e.Reason)
}

func (e *UsageError) Is(target error) bool { return target == ErrUsage }

func usageErr(op, reason string) *UsageError {
	return &UsageError{Op: op, Reason: reason}
}
