package netdef

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itso310/asyncnet/device"
	"github.com/itso310/asyncnet/event"
	"github.com/itso310/asyncnet/operator"
	"github.com/itso310/asyncnet/scheduler"
	"github.com/itso310/asyncnet/stats"
)

type stubOp struct {
	typ string
	opt device.Option
	ev  *event.Event
}

func (o *stubOp) RunAsync(streamID int) bool     { return true }
func (o *stubOp) Event() *event.Event            { return o.ev }
func (o *stubOp) DeviceOption() device.Option    { return o.opt }
func (o *stubOp) SupportsAsyncScheduling() bool   { return false }
func (o *stubOp) IsStreamFree(streamID int) bool  { return true }
func (o *stubOp) WaitEvents(events []*event.Event, streamID int) { event.WaitEvents(events, streamID) }
func (o *stubOp) ResetEvent()                     { o.ev = event.New(o.opt.Type) }
func (o *stubOp) Finish()                         {}
func (o *stubOp) Type() string                    { return o.typ }

type stubFactory struct{}

func (stubFactory) New(def operator.Def) (operator.Operator, error) {
	return &stubOp{typ: def.Type, opt: def.Device, ev: event.New(def.Device.Type)}, nil
}

func linearTripleDef() Definition {
	cpu := device.Option{Type: device.CPU, DeviceID: -1}
	return Definition{
		Name: "inference-triple",
		Mode: scheduler.ModeDag,
		Ops: []operator.Def{
			{Name: "load", Type: "Load", Device: cpu, Outputs: []string{"x"}},
			{Name: "transform", Type: "Transform", Device: cpu, Inputs: []string{"x"}, Outputs: []string{"y"}},
			{Name: "store", Type: "Store", Device: cpu, Inputs: []string{"y"}},
		},
	}
}

func TestValidateCatchesDanglingInput(t *testing.T) {
	def := linearTripleDef()
	def.Ops[1].Inputs = []string{"missing"}
	assert.Error(t, Validate(def))
}

func TestValidateCatchesDuplicateOutput(t *testing.T) {
	def := linearTripleDef()
	def.Ops[2].Outputs = []string{"x"}
	assert.Error(t, Validate(def))
}

func TestNewBuildsRunnableNet(t *testing.T) {
	net, err := New(linearTripleDef(), stubFactory{})
	require.NoError(t, err)
	assert.True(t, net.RunAsync(context.Background()), "err = %v", net.HandleRunError())
}

func TestNewRejectsInvalidDefinition(t *testing.T) {
	def := linearTripleDef()
	def.Name = ""
	_, err := New(def, stubFactory{})
	assert.Error(t, err)
}

func TestValidateRejectsAcceleratorDeviceIDOutOfRange(t *testing.T) {
	def := linearTripleDef()
	def.Ops[0].Device = device.Option{Type: device.CUDA, DeviceID: 999}
	err := Validate(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "structural invariant violated", "out-of-range accelerator id is a StructuralError, not an ordinary validation error")
}

func TestValidateRejectsCPUNUMANodeOutOfRange(t *testing.T) {
	def := linearTripleDef()
	def.Globals = stats.Flags{MaxGPUs: 16, MaxNUMANodes: 2}
	def.Ops[0].Device = device.Option{Type: device.CPU, DeviceID: 5}
	err := Validate(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "structural invariant violated")
}

func TestValidateAcceptsUnpinnedCPU(t *testing.T) {
	def := linearTripleDef()
	def.Globals = stats.Flags{MaxGPUs: 16, MaxNUMANodes: 2}
	assert.NoError(t, Validate(def), "DeviceID -1 (unpinned) should never trip the NUMA bound")
}

func TestNewUsesGlobalsInferenceModeAsAlternateSwitch(t *testing.T) {
	def := linearTripleDef()
	def.Globals = stats.Flags{MaxGPUs: 16, MaxNUMANodes: 8, InferenceMode: true}

	net, err := New(def, stubFactory{})
	require.NoError(t, err)
	assert.True(t, net.RunAsync(context.Background()), "err = %v", net.HandleRunError())
}
