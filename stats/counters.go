package stats

import "sync"

// OperatorStats holds one operator's accumulated timing across a net's
// repeated runs, gathered only when Flags.ReportStats is set (prof_dag
// mode in spec.md S4.6).
type OperatorStats struct {
	Type     string
	Runs     int64
	TotalNS  int64
	FailedNS int64
}

// Counters is the profiling sink the scheduler reports into when
// ReportStats is enabled. Index i corresponds to the i-th operator of
// the net, matching Caffe2's per-op stat vector in prof_dag mode.
type Counters struct {
	mu   sync.Mutex
	byOp []OperatorStats
}

// NewCounters returns a Counters sized for len(opTypes) operators, with
// each operator's type recorded for reporting.
func NewCounters(opTypes []string) *Counters {
	byOp := make([]OperatorStats, len(opTypes))
	for i, t := range opTypes {
		byOp[i].Type = t
	}
	return &Counters{byOp: byOp}
}

// Record adds one observation of durationNS for operator opIdx.
func (c *Counters) Record(opIdx int, durationNS int64, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if opIdx < 0 || opIdx >= len(c.byOp) {
		return
	}
	s := &c.byOp[opIdx]
	s.Runs++
	s.TotalNS += durationNS
	if failed {
		s.FailedNS += durationNS
	}
}

// Snapshot returns a copy of the per-operator stats gathered so far.
func (c *Counters) Snapshot() []OperatorStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]OperatorStats, len(c.byOp))
	copy(out, c.byOp)
	return out
}
