package state

import (
	"fmt"
)

// StateCorruptError represents a beacon state that violates one of its structural
// invariants, such as an out of range index or mismatched list lengths. A transition
// returning this error must be aborted and its state discarded.
type StateCorruptError struct {
	message string
}

// NewStateCorruptError creates a new error instance.
func NewStateCorruptError(format string, args ...interface{}) *StateCorruptError {
	return &StateCorruptError{
		message: fmt.Sprintf(format, args...),
	}
}

// Error returns the underlying error message.
func (e *StateCorruptError) Error() string {
	return "state corrupt: " + e.message
}
