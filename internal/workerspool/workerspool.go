// Package workerspool implements a fixed-size pool of persistent worker
// goroutines, adapted from the teacher's ephemeral-goroutine-per-task
// worker pool (gomlx's internal/workerspool) into a persistent-worker
// model: each worker owns a goroutine for the pool's lifetime, which is
// what lets the scheduler's stream selector keep per-worker state (S4.4)
// across tasks -- something an ephemeral pool cannot offer, since there
// is no "worker" to keep state on between two different goroutines.
package workerspool

import (
	"sync"

	"k8s.io/klog/v2"
)

// Pool runs submitted tasks on a fixed number of persistent worker
// goroutines, each identified by a stable index in [0, Size()). A task
// function receives that index, so callers can keep worker-local state
// (like a stream-id counter) in a slice indexed by worker id.
type Pool struct {
	size  int
	tasks chan func(workerID int)

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// New starts a Pool with size persistent worker goroutines. A size below
// 1 is treated as 1.
func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		size:  size,
		tasks: make(chan func(workerID int), size*4),
		done:  make(chan struct{}),
	}
	p.wg.Add(size)
	for id := 0; id < size; id++ {
		go p.worker(id)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task(id)
		}
	}
}

// Size returns the number of persistent workers in the pool.
func (p *Pool) Size() int {
	return p.size
}

// Submit enqueues task to run on whichever worker becomes free next. It
// blocks if every worker is busy and the internal queue is full.
func (p *Pool) Submit(task func(workerID int)) {
	select {
	case p.tasks <- task:
	case <-p.done:
		klog.Warningf("workerspool: Submit called on a closed pool, dropping task")
	}
}

// Close stops accepting new work and waits for running tasks to return.
// Tasks still queued when Close is called may be dropped without running.
// Safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}
