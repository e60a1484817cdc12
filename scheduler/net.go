// Package scheduler implements the asynchronous DAG execution engine:
// the Net type drives a chain DAG to completion across one or more
// device-bound worker pools, honoring the cross-device schedulability
// policy of the event package. Grounded line-for-line on Caffe2's
// AsyncNetBase (net_async_base.cc) for control flow.
package scheduler

import (
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/itso310/asyncnet/chain"
	"github.com/itso310/asyncnet/errslot"
	"github.com/itso310/asyncnet/event"
	"github.com/itso310/asyncnet/operator"
	"github.com/itso310/asyncnet/poolregistry"
	"github.com/itso310/asyncnet/stats"
	"github.com/itso310/asyncnet/stream"
	"github.com/itso310/asyncnet/tracing"
)

// Net is the scheduler core: a chain DAG bound to a set of runtime
// operator nodes, ready to be driven by repeated RunAsync calls. A Net
// is not safe for concurrent RunAsync calls -- like AsyncNetBase, one
// run must finish (or at least finish launching) before the next
// begins.
type Net struct {
	defs       []operator.Def
	nodes      []*operator.Node
	chains     []chain.Chain
	chainNodes []chain.Node

	flags    stats.Flags
	registry *poolregistry.Registry
	poolSize int

	errSlot  errslot.Slot
	recorder event.Recorder
	hook     tracing.Hook
	counters *stats.Counters

	mu        sync.Mutex
	selectors map[poolregistry.WorkerPool][]*stream.Selector

	wg    sync.WaitGroup
	runID uuid.UUID
}

// New builds a Net from defs/nodes (index-aligned, as produced by
// operator.Build) and the already-planned chain DAG. Callers that don't
// need Validate's extra checks or device-bound dispatch from scratch
// should generally go through netdef.New instead, which also calls
// chain.Plan for them.
func New(defs []operator.Def, nodes []*operator.Node, chains []chain.Chain, chainNodes []chain.Node, opts Options) (*Net, error) {
	if len(defs) != len(nodes) {
		return nil, errors.Errorf("scheduler.New: len(defs)=%d != len(nodes)=%d", len(defs), len(nodes))
	}
	if err := chain.Validate(chains, chainNodes); err != nil {
		return nil, errors.WithMessage(err, "scheduler.New")
	}

	globals := opts.Globals
	if globals == (stats.Flags{}) {
		globals = stats.DefaultGlobals()
	}
	flags := stats.FlagsForType(string(opts.Mode), globals, opts.EnableProfiling)

	poolSize := opts.NumWorkers
	if poolSize <= 0 {
		poolSize = runtime.GOMAXPROCS(0)
	}

	recorder := opts.Recorder
	if recorder == nil {
		recorder = event.NoopRecorder{}
	}
	hook := opts.Hook
	if hook == nil {
		hook = tracing.NoopHook{}
	}

	var counters *stats.Counters
	if flags.ReportStats {
		opTypes := make([]string, len(defs))
		for i, d := range defs {
			opTypes[i] = d.Type
		}
		counters = stats.NewCounters(opTypes)
	}

	n := &Net{
		defs:       defs,
		nodes:      nodes,
		chains:     chains,
		chainNodes: chainNodes,
		flags:      flags,
		registry:   poolregistry.New(flags.UsePerNetPools),
		poolSize:   poolSize,
		recorder:   recorder,
		hook:       hook,
		counters:   counters,
		selectors:  map[poolregistry.WorkerPool][]*stream.Selector{},
	}
	return n, nil
}

// Stats returns per-operator profiling counters, or nil if the net was
// not constructed with profiling enabled.
func (n *Net) Stats() []stats.OperatorStats {
	if n.counters == nil {
		return nil
	}
	return n.counters.Snapshot()
}

// HandleRunError returns the first error captured by the most recent
// RunAsync call, or nil if it succeeded.
func (n *Net) HandleRunError() error {
	return n.errSlot.Load()
}

// Shutdown releases any per-net worker pools this Net's registry
// created. Safe to call once, after the Net is no longer needed.
func (n *Net) Shutdown() error {
	return n.registry.Shutdown()
}

// reset clears every piece of per-run state ahead of a RunAsync call:
// the error slot, every operator's event, and every chain's parent
// counter and scheduled flag.
func (n *Net) reset() {
	n.errSlot.Clear()
	for _, node := range n.nodes {
		node.Op.ResetEvent()
		node.ResetScheduled()
	}
	for ci, cn := range n.chainNodes {
		head := n.nodes[n.chains[ci].Head()]
		head.SetParentCount(len(cn.Parents))
	}
	n.wg = sync.WaitGroup{}
	n.wg.Add(len(n.chains))
}

func (n *Net) chainEvent(chainID int) *event.Event {
	return n.nodes[n.chains[chainID].Tail()].Op.Event()
}

func (n *Net) chainHeadOp(chainID int) operator.Operator {
	return n.nodes[n.chains[chainID].Head()].Op
}

func (n *Net) markChainDone() {
	n.wg.Done()
}

func (n *Net) selectorFor(pool poolregistry.WorkerPool, workerID int) *stream.Selector {
	n.mu.Lock()
	defer n.mu.Unlock()
	selectors, ok := n.selectors[pool]
	if !ok {
		selectors = make([]*stream.Selector, pool.Size())
		n.selectors[pool] = selectors
	}
	if workerID < 0 || workerID >= len(selectors) {
		klog.Warningf("scheduler: worker id %d out of range for pool size %d", workerID, len(selectors))
		return stream.NewSelector()
	}
	if selectors[workerID] == nil {
		selectors[workerID] = stream.NewSelector()
	}
	return selectors[workerID]
}
