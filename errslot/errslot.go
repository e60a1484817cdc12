// Package errslot implements the scheduler's single first-seen
// exception slot and the error taxonomy of spec.md S7.
package errslot

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// OperatorFailureError records that an operator's RunAsync returned
// false. It carries no underlying Go error -- the operator reported
// failure through its own return value, not a panic.
type OperatorFailureError struct {
	OpType string
}

func (e *OperatorFailureError) Error() string {
	return fmt.Sprintf("Failed to execute an op: %s", opTypeOrUnknown(e.OpType))
}

// OperatorExceptionError wraps a panic recovered from an operator's
// execution.
type OperatorExceptionError struct {
	OpType string
	Cause  error
}

func (e *OperatorExceptionError) Error() string {
	msg := e.Cause.Error()
	if e.OpType != "" {
		msg += ", op " + e.OpType
	}
	return msg
}

// Unwrap allows errors.Is/As to see through to Cause.
func (e *OperatorExceptionError) Unwrap() error { return e.Cause }

// ParentFailedError marks a chain that never ran because one of its
// ancestors failed.
type ParentFailedError struct {
	ChainID int
}

func (e *ParentFailedError) Error() string {
	return fmt.Sprintf("chain %d: parent failed", e.ChainID)
}

func opTypeOrUnknown(t string) string {
	if t == "" {
		return "unknown"
	}
	return t
}

// Slot holds at most one captured error: the first writer wins. It is
// the Go analog of Caffe2's exception_mutex_/caught_exception_ pair.
type Slot struct {
	mu  sync.Mutex
	err error
}

// Store records err if and only if the slot is currently empty. Safe for
// concurrent use by multiple chains racing to report the first failure.
func (s *Slot) Store(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Load returns the captured error, or nil if none was stored.
func (s *Slot) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Clear empties the slot, called at the start of every run.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

// NewStructuralError builds the fatal, non-recoverable error raised for
// the programmer-error conditions of S7 (negative parent count, invalid
// device id, unknown device type). It is never stored in a Slot: the
// scheduler panics with it on a negative parent count, and
// netdef.Validate returns it for an out-of-range device id.
func NewStructuralError(format string, args ...any) error {
	return errors.Errorf("asyncnet: structural invariant violated: "+format, args...)
}
