// Package event implements the cross-device completion signal chains use
// to synchronize with each other, and the schedulability policy table
// that decides when a child chain may begin relative to its parents'
// event status.
package event

import (
	"sync"

	"github.com/itso310/asyncnet/device"
)

// Status is the lifecycle stage of an Event.
type Status int32

const (
	// Initialized is the status of an Event that has not been touched
	// since the last reset.
	Initialized Status = iota
	// Scheduled means the owning chain's work has been handed to the
	// device (e.g. an accelerator kernel launch returned) but has not
	// been observed to complete yet.
	Scheduled
	// Success is a terminal status: the chain ran to completion.
	Success
	// Failed is a terminal status: the chain (or one of its ancestors)
	// did not complete successfully.
	Failed
)

func (s Status) String() string {
	switch s {
	case Initialized:
		return "INITIALIZED"
	case Scheduled:
		return "SCHEDULED"
	case Success:
		return "SUCCESS"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s is a final status (Success or Failed).
func (s Status) Terminal() bool {
	return s == Success || s == Failed
}

// Event is a device-aware completion signal with the four-state lifecycle
// of Status. It is safe for concurrent use.
type Event struct {
	deviceType device.Type

	mu      sync.Mutex
	status  Status
	message string
	done    chan struct{} // closed exactly once, when status becomes terminal
}

// New returns an Event in the Initialized state, bound to deviceType for
// the purposes of the CanSchedule policy table.
func New(deviceType device.Type) *Event {
	return &Event{
		deviceType: deviceType,
		done:       make(chan struct{}),
	}
}

// GetType returns the device-type tag this event belongs to.
func (e *Event) GetType() device.Type {
	return e.deviceType
}

// Query returns the current status without blocking.
func (e *Event) Query() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Message returns the message attached by SetFinished, if any.
func (e *Event) Message() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.message
}

// MarkScheduled transitions Initialized -> Scheduled. It is a no-op if the
// event is already Scheduled or terminal (scheduling never regresses a
// terminal event).
func (e *Event) MarkScheduled() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == Initialized {
		e.status = Scheduled
	}
}

// transitionToTerminal moves the event to a terminal status exactly once;
// later calls are no-ops. Returns true if this call performed the
// transition.
func (e *Event) transitionToTerminal(status Status, message string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status.Terminal() {
		return false
	}
	e.status = status
	e.message = message
	close(e.done)
	return true
}

// SetFinished forces a terminal transition. With no arguments the event
// becomes Success; with a message it becomes Failed carrying that
// message. Calling it on an already-terminal event is a safe no-op; an
// Initialized or Scheduled event is moved to the terminal status.
func (e *Event) SetFinished(message ...string) {
	if len(message) > 0 {
		e.transitionToTerminal(Failed, message[0])
		return
	}
	e.transitionToTerminal(Success, "")
}

// Finish blocks until the event reaches a terminal status. If the event
// is still Initialized or Scheduled when called, Finish forces it to
// Success -- there being no real device here to asynchronously complete
// it, finishing a chain *is* reaching the end of this function for any
// caller that still holds it at a non-terminal status.
func (e *Event) Finish() {
	e.transitionToTerminal(Success, "")
	<-e.done
}

// WaitEvents calls Finish on every event in events, so each of them is
// terminal when it returns. Because Finish forces a non-terminal event to
// Success, this does not wait for another goroutine to finish an event;
// streamID is not used by the in-tree Event.
func WaitEvents(events []*Event, streamID int) {
	for _, e := range events {
		e.Finish()
	}
}
