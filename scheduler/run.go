package scheduler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/exceptions"

	"github.com/itso310/asyncnet/device"
	"github.com/itso310/asyncnet/errslot"
	"github.com/itso310/asyncnet/event"
	"github.com/itso310/asyncnet/tracing"
)

// RunAsync drives every chain with no unmet parents to completion,
// returning once the run has either fully finished (Blocking presets:
// dag, prof_dag, async_dag) or been launched (non-blocking). The
// returned bool reports success only in the blocking case; callers
// using a non-blocking mode must poll HandleRunError after the pools
// have drained.
func (n *Net) RunAsync(ctx context.Context) bool {
	n.reset()
	n.runID = tracing.NewRunID()

	klog.V(2).Infof("asyncnet: run %s starting, %d chains", n.runID, len(n.chains))

	for ci, cn := range n.chainNodes {
		if len(cn.Parents) == 0 {
			n.dispatch(ci)
		}
	}

	if !n.flags.Blocking {
		return n.errSlot.Load() == nil
	}

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		klog.Warningf("asyncnet: run %s context cancelled before completion", n.runID)
		return false
	}
	return n.finalizeEvents()
}

// dispatch marks chainID's head as scheduled (at most once per run) and
// submits it to its device's pool.
func (n *Net) dispatch(chainID int) {
	headNode := n.nodes[n.chains[chainID].Head()]
	if !headNode.TestAndSetScheduled() {
		return
	}
	headOp := headNode.Op
	poolSize := n.poolSize
	if n.flags.CPUPoolSize > 0 && device.IsCPUFamily(headOp.DeviceOption().Type) {
		poolSize = n.flags.CPUPoolSize
	}
	pool, err := n.registry.Get(headOp.DeviceOption(), poolSize, n.flags.UseSinglePool)
	if err != nil {
		n.errSlot.Store(errors.WithMessagef(err, "dispatching chain %d", chainID))
		n.chainEvent(chainID).SetFinished(err.Error())
		n.markChainDone()
		n.poisonDescendants(chainID)
		return
	}
	pool.Submit(func(workerID int) {
		sel := n.selectorFor(pool, workerID)
		streamID := sel.ForOperator(headOp, n.flags.StreamsPerGPU, n.flags.CheckStreamStatus)
		n.run(chainID, streamID)
	})
}

// tryScheduleChild is called at most once per (parent, child) edge per
// run; a failed parent poisons its children instead of calling it. It
// decrements the child's parent counter and dispatches it once
// every parent has notified.
func (n *Net) tryScheduleChild(childID int) {
	headNode := n.nodes[n.chains[childID].Head()]
	remaining := headNode.DecrementParentCount()
	switch {
	case remaining > 0:
		return
	case remaining == 0:
		n.dispatch(childID)
	default:
		panic(errslot.NewStructuralError("chain %d: parent count went negative", childID))
	}
}

// run executes chainID's operators in order on streamID, then notifies
// children. Runs on a worker goroutine.
func (n *Net) run(chainID, streamID int) {
	defer n.markChainDone()

	c := n.chains[chainID]
	chainEv := n.chainEvent(chainID)

	if !n.flags.FinishChain {
		n.waitForParents(chainID, streamID)
	}

	chainEv.MarkScheduled()
	n.hook.OnChainStart(n.runID, chainID)

	var runErr error
	for _, opIdx := range c.Ops {
		if err := n.runOneOp(chainID, opIdx, streamID); err != nil {
			runErr = err
			n.errSlot.Store(err)
			break
		}
	}
	ok := runErr == nil

	children := n.chainNodes[chainID].Children
	notified := make([]bool, len(children))

	// Early overlap: while the chain is merely Scheduled, some children
	// may already be eligible (same async-capable device family, or the
	// AlwaysScheduleChild preset skipping the check entirely).
	if ok && !n.flags.FinishChain {
		for i, childID := range children {
			if n.flags.AlwaysScheduleChild || n.canScheduleChild(chainID, childID, event.Scheduled) {
				n.tryScheduleChild(childID)
				notified[i] = true
			}
		}
	}

	if ok {
		if n.flags.FinishChain {
			n.nodes[c.Tail()].Op.Finish()
		}
		chainEv.SetFinished()
	} else {
		chainEv.SetFinished(runErr.Error())
	}
	n.hook.OnChainEnd(n.runID, chainID, runErr)

	if ok {
		for i, childID := range children {
			if !notified[i] {
				n.tryScheduleChild(childID)
			}
		}
	} else {
		n.poisonDescendants(chainID)
	}
}

// waitForParents issues the async wait S4.5 step 1 prepends to every
// chain unless FinishChain is set: the head operator waits on every
// parent chain's tail event on its own stream before running, so an
// async-capable device can enqueue the wait itself instead of blocking
// the dispatching goroutine until the parent's kernel has physically
// finished.
func (n *Net) waitForParents(chainID, streamID int) {
	parents := n.chainNodes[chainID].Parents
	if len(parents) == 0 {
		return
	}
	events := make([]*event.Event, len(parents))
	for i, parentID := range parents {
		events[i] = n.chainEvent(parentID)
	}
	n.nodes[n.chains[chainID].Head()].Op.WaitEvents(events, streamID)
}

func (n *Net) canScheduleChild(parentID, childID int, parentStatus event.Status) bool {
	parentType := n.chainHeadOp(parentID).DeviceOption().Type
	childHead := n.chainHeadOp(childID)
	return event.CanSchedule(parentType, parentStatus, childHead.DeviceOption().Type, childHead.SupportsAsyncScheduling())
}

// runOneOp launches a single operator, recovering any panic into an
// OperatorExceptionError the way Caffe2 captures a C++ exception thrown
// out of an op's RunAsync.
func (n *Net) runOneOp(chainID, opIdx, streamID int) (err error) {
	op := n.nodes[opIdx].Op
	n.hook.OnOpRun(n.runID, chainID, opIdx, n.defs[opIdx].Type)
	start := time.Now()

	if exc := exceptions.Try(func() {
		if !op.RunAsync(streamID) {
			err = &errslot.OperatorFailureError{OpType: n.defs[opIdx].Type}
		}
	}); exc != nil {
		cause, ok := exc.(error)
		if !ok {
			cause = errors.Errorf("%v", exc)
		}
		err = &errslot.OperatorExceptionError{OpType: n.defs[opIdx].Type, Cause: cause}
	}

	// Profiling needs a wall-clock duration for the device-side work, not
	// just the (possibly async) launch, so block for completion here on
	// non-CPU devices before the end timestamp is taken.
	if err == nil && n.counters != nil && !device.IsCPUFamily(op.DeviceOption().Type) {
		op.Finish()
	}

	if n.counters != nil {
		n.counters.Record(opIdx, time.Since(start).Nanoseconds(), err != nil)
	}
	return err
}

// poisonDescendants force-fails every not-yet-scheduled descendant of
// chainID with a ParentFailedError, without running them. A descendant
// already scheduled (dispatched via early overlap before the failure
// was known) is left alone to resolve on its own.
func (n *Net) poisonDescendants(chainID int) {
	queue := append([]int{}, n.chainNodes[chainID].Children...)
	for len(queue) > 0 {
		childID := queue[0]
		queue = queue[1:]

		headNode := n.nodes[n.chains[childID].Head()]
		if !headNode.TestAndSetScheduled() {
			continue
		}
		failure := &errslot.ParentFailedError{ChainID: childID}
		n.chainEvent(childID).SetFinished(failure.Error())
		n.errSlot.Store(failure)
		n.hook.OnChainEnd(n.runID, childID, failure)
		n.markChainDone()

		queue = append(queue, n.chainNodes[childID].Children...)
	}
}

// finalizeEvents forces any chain event that has not reached a terminal
// status to Success, then reports overall success. RunAsync calls it only
// after every chain has marked itself done, and it is not reached when
// RunAsync's context is cancelled.
func (n *Net) finalizeEvents() bool {
	for ci := range n.chains {
		ev := n.chainEvent(ci)
		if !ev.Query().Terminal() {
			ev.Finish()
		}
	}
	return n.errSlot.Load() == nil
}
