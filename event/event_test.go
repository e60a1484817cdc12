package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itso310/asyncnet/device"
)

func TestEventLifecycle(t *testing.T) {
	e := New(device.CPU)
	assert.Equal(t, Initialized, e.Query())

	e.MarkScheduled()
	assert.Equal(t, Scheduled, e.Query())

	e.SetFinished("boom")
	assert.Equal(t, Failed, e.Query())
	assert.Equal(t, "boom", e.Message())

	// Re-finishing a terminal event is a no-op.
	e.SetFinished()
	assert.Equal(t, Failed, e.Query(), "terminal event should not regress")
}

func TestFinishBlocksUntilTerminal(t *testing.T) {
	e := New(device.CPU)
	done := make(chan struct{})
	go func() {
		e.Finish()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Finish did not return")
	}
	assert.Equal(t, Success, e.Query())
}

func TestWaitEvents(t *testing.T) {
	a := New(device.CPU)
	b := New(device.CPU)
	a.SetFinished()
	b.SetFinished("err")
	WaitEvents([]*Event{a, b}, 0)
	require.Equal(t, Success, a.Query())
	require.Equal(t, Failed, b.Query())
}

func TestCanSchedule(t *testing.T) {
	cases := []struct {
		name               string
		parentType         device.Type
		parentStatus       Status
		childType          device.Type
		childSupportsAsync bool
		want               bool
	}{
		{"success always allows", device.CPU, Success, device.CUDA, false, true},
		{"failed always blocks", device.CUDA, Failed, device.CUDA, true, false},
		{"initialized blocks", device.CPU, Initialized, device.CPU, true, false},
		{"scheduled same gpu family async-capable", device.CUDA, Scheduled, device.CUDA, true, true},
		{"scheduled child doesn't support async", device.CUDA, Scheduled, device.CUDA, false, false},
		{"scheduled cpu never async-capable", device.CPU, Scheduled, device.CPU, true, false},
		{"scheduled cross family blocks", device.CUDA, Scheduled, device.CPU, true, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := CanSchedule(c.parentType, c.parentStatus, c.childType, c.childSupportsAsync)
			assert.Equal(t, c.want, got)
		})
	}
}
