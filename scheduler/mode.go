package scheduler

import (
	"github.com/itso310/asyncnet/event"
	"github.com/itso310/asyncnet/stats"
	"github.com/itso310/asyncnet/tracing"
)

// Mode names one of the execution-mode presets of spec.md S4.6. The
// zero value Mode("") behaves like ModeSimple.
type Mode string

const (
	ModeSimple   Mode = "simple"
	ModeDag      Mode = "dag"
	ModeProfDag  Mode = "prof_dag"
	ModeAsyncDag Mode = "async_dag"
)

// Options configures a Net at construction time. It replaces the global,
// process-wide flag set S6 describes -- a library meant to be imported
// and driven concurrently by more than one caller can't reach for a
// package-level mutable flag registry the way the original does.
type Options struct {
	Mode Mode

	// NumWorkers sizes the device pools this Net creates, except CPU-family
	// pools when Globals.CPUPoolSize is set. Zero means "pick a reasonable
	// default" (scheduler.New uses GOMAXPROCS).
	NumWorkers int

	// EnableProfiling overrides the mode preset's ReportStats value when
	// non-nil, matching the net definition's own enable_profiling knob
	// always winning over the type preset.
	EnableProfiling *bool

	// Globals carries the S6 global knobs (StreamsPerGPU, CPUPoolSize, and
	// the mode switches used by ModeSimple). The Mode preset is applied on
	// top of it, so the dag presets override the knobs they set, such as
	// StreamsPerGPU. The zero value is replaced with stats.DefaultGlobals().
	Globals stats.Flags

	// Recorder is stored on the Net; defaults to a no-op recorder. The
	// scheduler makes no OnTransition calls on it.
	Recorder event.Recorder

	// Hook receives per-chain and per-operator trace callbacks. Defaults
	// to tracing.NoopHook.
	Hook tracing.Hook
}
