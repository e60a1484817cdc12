// Package operator defines the Operator contract the scheduler drives,
// the per-operator runtime node (parent count, scheduled-once flag), and
// a builder that turns declarative Defs into a runtime operator DAG.
package operator

import (
	"sync/atomic"

	"github.com/itso310/asyncnet/device"
	"github.com/itso310/asyncnet/event"
)

// Operator is the contract every unit of work in a net must satisfy. It
// is deliberately narrow: kernel launch mechanics, data movement and
// device memory are all external to this package -- an Operator is
// opaque beyond the handful of methods the scheduler needs to drive it.
type Operator interface {
	// RunAsync launches the operator's work on the given stream and
	// returns whether the launch succeeded. It may return before the
	// work has actually completed on the device.
	RunAsync(streamID int) bool
	// Event returns this operator's completion signal.
	Event() *event.Event
	// DeviceOption returns the device this operator is bound to.
	DeviceOption() device.Option
	// SupportsAsyncScheduling reports whether a child chain headed by
	// this operator may be scheduled while a SCHEDULED (not yet
	// terminal) parent on the same device family is still in flight.
	SupportsAsyncScheduling() bool
	// IsStreamFree reports whether streamID is currently free to accept
	// more work from this operator's device.
	IsStreamFree(streamID int) bool
	// WaitEvents blocks streamID on every event in events reaching a
	// terminal status before this operator's own work may proceed. It is
	// the async-wait this operator issues for its parents' completion
	// signals before RunAsync is called.
	WaitEvents(events []*event.Event, streamID int)
	// ResetEvent returns this operator's event to Initialized, ready for
	// a new run.
	ResetEvent()
	// Finish blocks until this operator's device-side work, if any, has
	// completed.
	Finish()
	// Type identifies the operator's kind for error messages and
	// tracing; it need not be unique.
	Type() string
}

// Node wraps an Operator with the runtime bookkeeping the scheduler needs
// that cannot live on the Operator itself, because it is shared state
// across an entire run rather than a property of the operator's
// implementation.
type Node struct {
	Op Operator

	// runtimeParentCount is the number of not-yet-satisfied parent
	// chains for the chain headed by this operator. Set by the scheduler's
	// reset via SetParentCount and decremented by the scheduler.
	runtimeParentCount atomic.Int32
	// scheduled is set exactly once per run, the first time the chain
	// headed by this operator is dispatched.
	scheduled atomic.Bool
}

// NewNode wraps op in a fresh Node.
func NewNode(op Operator) *Node {
	return &Node{Op: op}
}

// SetParentCount resets the runtime parent counter to count. Called once per
// run by the scheduler's reset, never concurrently with a run.
func (n *Node) SetParentCount(count int) {
	n.runtimeParentCount.Store(int32(count))
}

// DecrementParentCount atomically decrements the parent counter and
// returns the new value. Callers must treat a negative result as a
// structural invariant violation.
func (n *Node) DecrementParentCount() int32 {
	return n.runtimeParentCount.Add(-1)
}

// ParentCount returns the current parent counter value.
func (n *Node) ParentCount() int32 {
	return n.runtimeParentCount.Load()
}

// TestAndSetScheduled atomically marks this node's chain as scheduled and
// reports whether this call was the one that did it -- i.e. it returns
// true exactly once per run.
func (n *Node) TestAndSetScheduled() bool {
	return !n.scheduled.Swap(true)
}

// ResetScheduled clears the scheduled flag, called by the scheduler's
// reset between runs.
func (n *Node) ResetScheduled() {
	n.scheduled.Store(false)
}
