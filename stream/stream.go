// Package stream implements per-worker accelerator stream selection
// (spec.md S4.4). In the original, this state is thread-local to the
// worker OS thread; since a Go worker goroutine is not an OS thread
// (and a goroutine pool may not pin goroutines to threads 1:1), the
// state is instead owned by the persistent worker goroutine that calls
// Next -- one Selector per worker, held for the worker's lifetime, the
// same shape used by the retrieved burstgridgo executor's per-worker
// loop.
package stream

import (
	"github.com/itso310/asyncnet/device"
	"github.com/itso310/asyncnet/operator"
)

// Selector round-robins accelerator stream ids for a single worker. It
// is not safe for concurrent use -- each worker owns its own Selector.
type Selector struct {
	// counters[deviceID] is the next stream id to hand out for that
	// device, grown on demand.
	counters []int
}

// NewSelector returns a Selector with no devices seen yet.
func NewSelector() *Selector {
	return &Selector{}
}

func (s *Selector) grow(deviceID int) {
	for len(s.counters) <= deviceID {
		s.counters = append(s.counters, 0)
	}
}

// Next returns the next stream id for deviceID, round-robining mod
// streamsPerGPU.
func (s *Selector) Next(deviceID, streamsPerGPU int) int {
	if streamsPerGPU <= 0 {
		streamsPerGPU = 1
	}
	s.grow(deviceID)
	streamID := s.counters[deviceID] % streamsPerGPU
	s.counters[deviceID]++
	return streamID
}

// NextFree behaves like Next, but when checkStatus is set it advances
// the counter until isFree(candidate) reports true, capping the search
// at streamsPerGPU attempts to avoid livelock if no stream is ever free
// (spec.md S4.4/S9's open question) -- in that case it simply returns
// whatever candidate the search landed on.
func (s *Selector) NextFree(deviceID, streamsPerGPU int, checkStatus bool, isFree func(streamID int) bool) int {
	streamID := s.Next(deviceID, streamsPerGPU)
	if !checkStatus {
		return streamID
	}
	for attempt := 1; attempt < streamsPerGPU && !isFree(streamID); attempt++ {
		streamID = s.Next(deviceID, streamsPerGPU)
	}
	return streamID
}

// ForOperator is a convenience wrapper over NextFree that asks op
// directly whether a candidate stream is free, matching the
// isStreamFree(task_id, stream_id) call in the original. For CPU tasks,
// stream_id is always 0 -- only accelerator families get round-robined
// stream ids.
func (s *Selector) ForOperator(op operator.Operator, streamsPerGPU int, checkStatus bool) int {
	if !device.IsAccelerator(op.DeviceOption().Type) {
		return 0
	}
	deviceID := op.DeviceOption().DeviceID
	if deviceID < 0 {
		deviceID = 0
	}
	return s.NextFree(deviceID, streamsPerGPU, checkStatus, op.IsStreamFree)
}
