// Package tracing provides the scheduler's observability hook: a narrow
// interface callers implement to receive per-chain and per-operator
// events, with a no-op default so tracing is opt-in. Shaped after
// gomlx's graph/nanlogger hook-with-no-op-default pattern.
package tracing

import "github.com/google/uuid"

// Hook receives scheduler lifecycle events for a single RunAsync call.
// Implementations must be safe for concurrent use: chains run on
// multiple worker goroutines and call back into the same Hook.
type Hook interface {
	// OnChainStart fires when chainID is dispatched to a worker.
	OnChainStart(runID uuid.UUID, chainID int)
	// OnChainEnd fires when chainID finishes, successfully or not. err is
	// nil on success.
	OnChainEnd(runID uuid.UUID, chainID int, err error)
	// OnOpRun fires immediately before an individual operator within a
	// chain is launched.
	OnOpRun(runID uuid.UUID, chainID, opIdx int, opType string)
}

// NoopHook discards every event. It is the default Hook used when a
// caller doesn't supply one.
type NoopHook struct{}

// OnChainStart implements Hook.
func (NoopHook) OnChainStart(uuid.UUID, int) {}

// OnChainEnd implements Hook.
func (NoopHook) OnChainEnd(uuid.UUID, int, error) {}

// OnOpRun implements Hook.
func (NoopHook) OnOpRun(uuid.UUID, int, int, string) {}

// NewRunID returns a fresh identifier for one RunAsync call, used to
// correlate every Hook callback belonging to the same run.
func NewRunID() uuid.UUID {
	return uuid.New()
}
