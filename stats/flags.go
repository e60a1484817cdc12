// Package stats implements the execution-mode preset table (spec.md
// S4.6) and the per-operator profiling counters used when ReportStats is
// enabled.
package stats

// Flags is the full set of global and per-net knobs S6 lists, plus the
// derived mode switches of S4.6. A Flags value is immutable once
// produced by FlagsForType -- the scheduler reads it, never mutates it.
type Flags struct {
	StreamsPerGPU       int
	FinishChain         bool
	AlwaysScheduleChild bool
	MaxGPUs             int
	MaxNUMANodes        int
	CPUPoolSize         int
	CheckStreamStatus   bool
	UseSinglePool       bool
	UsePerNetPools      bool
	InferenceMode       bool
	Blocking            bool
	ReportStats         bool
}

// DefaultGlobals returns the S6 default values for the global flags,
// before any net-type preset or per-net override is applied.
func DefaultGlobals() Flags {
	return Flags{
		StreamsPerGPU: 1,
		MaxGPUs:       16,
		MaxNUMANodes:  8,
	}
}

const (
	typeDag      = "dag"
	typeProfDag  = "prof_dag"
	typeAsyncDag = "async_dag"
)

// FlagsForType derives the execution-mode profile for netType from
// globals, implementing the preset table of S4.6. enableProfiling, if
// non-nil, overrides ReportStats regardless of what the preset or
// globals say -- the net definition's enable_profiling argument always
// wins, per S4.6.
func FlagsForType(netType string, globals Flags, enableProfiling *bool) Flags {
	f := globals
	switch netType {
	case typeDag, typeProfDag:
		f.StreamsPerGPU = 1
		f.FinishChain = true
		f.AlwaysScheduleChild = true
		f.CheckStreamStatus = false
		f.UseSinglePool = true
		f.UsePerNetPools = true
		f.Blocking = true
		f.ReportStats = netType == typeProfDag
	case typeAsyncDag:
		f.StreamsPerGPU = 1
		f.FinishChain = false
		f.AlwaysScheduleChild = true
		f.CheckStreamStatus = false
		f.UseSinglePool = true
		f.UsePerNetPools = true
		f.Blocking = true
		f.ReportStats = false
	default:
		// "simple" or any unrecognized type: every knob is the global
		// value, Blocking and ReportStats default false.
		f.Blocking = false
		f.ReportStats = false
	}

	if enableProfiling != nil {
		f.ReportStats = *enableProfiling
	}
	return f
}
