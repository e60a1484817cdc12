package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itso310/asyncnet/device"
	"github.com/itso310/asyncnet/event"
	"github.com/itso310/asyncnet/operator"
)

type fakeOp struct {
	typ        string
	ev         *event.Event
	opt        device.Option
	resetCalls int
}

func (f *fakeOp) RunAsync(streamID int) bool    { return true }
func (f *fakeOp) Event() *event.Event           { return f.ev }
func (f *fakeOp) DeviceOption() device.Option   { return f.opt }
func (f *fakeOp) SupportsAsyncScheduling() bool  { return false }
func (f *fakeOp) IsStreamFree(streamID int) bool { return true }
func (f *fakeOp) WaitEvents(events []*event.Event, streamID int) { event.WaitEvents(events, streamID) }
func (f *fakeOp) ResetEvent()                    { f.resetCalls++ }
func (f *fakeOp) Finish()                        {}
func (f *fakeOp) Type() string                   { return f.typ }

func cpuNode(name string) *operator.Node {
	return operator.NewNode(cpuOp(name))
}

func cpuOp(name string) *fakeOp {
	opt := device.Option{Type: device.CPU, DeviceID: -1}
	return &fakeOp{typ: name, opt: opt, ev: event.New(opt.Type)}
}

func TestPlanDiamond(t *testing.T) {
	// A -> {B, C} -> D, all CPU.
	defs := []operator.Def{
		{Name: "A", Outputs: []string{"a"}},
		{Name: "B", Inputs: []string{"a"}, Outputs: []string{"b"}},
		{Name: "C", Inputs: []string{"a"}, Outputs: []string{"c"}},
		{Name: "D", Inputs: []string{"b", "c"}},
	}
	nodes := []*operator.Node{cpuNode("A"), cpuNode("B"), cpuNode("C"), cpuNode("D")}

	chains, chainNodes, err := Plan(defs, nodes, false, false)
	require.NoError(t, err)
	require.Len(t, chains, 4)
	require.NoError(t, Validate(chains, chainNodes))

	chainOf := func(op int) int {
		for i, c := range chains {
			for _, o := range c.Ops {
				if o == op {
					return i
				}
			}
		}
		t.Fatalf("op %d not found in any chain", op)
		return -1
	}
	aChain, bChain, cChain, dChain := chainOf(0), chainOf(1), chainOf(2), chainOf(3)

	assert.Empty(t, chainNodes[aChain].Parents, "A's chain should be a root")
	assert.Contains(t, chainNodes[aChain].Children, bChain)
	assert.Contains(t, chainNodes[aChain].Children, cChain)
	assert.Contains(t, chainNodes[dChain].Parents, bChain)
	assert.Contains(t, chainNodes[dChain].Parents, cChain)
	assert.Empty(t, chainNodes[dChain].Children, "D's chain should be a leaf")
}

func TestPlanLinearChain(t *testing.T) {
	defs := []operator.Def{
		{Name: "A", Outputs: []string{"a"}},
		{Name: "B", Inputs: []string{"a"}, Outputs: []string{"b"}},
		{Name: "C", Inputs: []string{"b"}},
	}
	nodes := []*operator.Node{cpuNode("A"), cpuNode("B"), cpuNode("C")}

	chains, chainNodes, err := Plan(defs, nodes, false, false)
	require.NoError(t, err)
	require.Len(t, chains, 1, "no fan-out/fan-in anywhere")
	assert.Len(t, chains[0].Ops, 3)
	assert.Empty(t, chainNodes[0].Parents)
	assert.Empty(t, chainNodes[0].Children)
}

func TestPlanInferenceMode(t *testing.T) {
	defs := []operator.Def{
		{Name: "A", Outputs: []string{"a"}},
		{Name: "B", Inputs: []string{"a"}, Outputs: []string{"b"}},
		{Name: "C", Inputs: []string{"b"}},
	}
	nodes := []*operator.Node{cpuNode("A"), cpuNode("B"), cpuNode("C")}

	chains, _, err := Plan(defs, nodes, true, false)
	require.NoError(t, err)
	require.Len(t, chains, 1, "inference mode should produce exactly one chain")
	assert.Equal(t, []int{0, 1, 2}, chains[0].Ops)
}

func TestPlanReportStatsKeepsInnerChainEvents(t *testing.T) {
	defs := []operator.Def{
		{Name: "A", Outputs: []string{"a"}},
		{Name: "B", Inputs: []string{"a"}, Outputs: []string{"b"}},
		{Name: "C", Inputs: []string{"b"}},
	}
	b := cpuOp("B")
	nodes := []*operator.Node{operator.NewNode(cpuOp("A")), operator.NewNode(b), operator.NewNode(cpuOp("C"))}

	chains, _, err := Plan(defs, nodes, false, true)
	require.NoError(t, err)
	require.Len(t, chains, 1, "B still extends the chain, it just keeps its event")
	assert.Zero(t, b.resetCalls, "reportStats=true must not reset the inner op's event")
}

func TestPlanWithoutReportStatsResetsInnerChainEvents(t *testing.T) {
	defs := []operator.Def{
		{Name: "A", Outputs: []string{"a"}},
		{Name: "B", Inputs: []string{"a"}, Outputs: []string{"b"}},
		{Name: "C", Inputs: []string{"b"}},
	}
	b := cpuOp("B")
	nodes := []*operator.Node{operator.NewNode(cpuOp("A")), operator.NewNode(b), operator.NewNode(cpuOp("C"))}

	chains, _, err := Plan(defs, nodes, false, false)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, 1, b.resetCalls, "without profiling, inner ops' events are disabled")
}

func TestPlanSingleOperator(t *testing.T) {
	defs := []operator.Def{{Name: "A"}}
	nodes := []*operator.Node{cpuNode("A")}
	chains, chainNodes, err := Plan(defs, nodes, false, false)
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Empty(t, chainNodes[0].Parents)
}

func TestPlanAllIndependent(t *testing.T) {
	defs := []operator.Def{{Name: "A"}, {Name: "B"}, {Name: "C"}}
	nodes := []*operator.Node{cpuNode("A"), cpuNode("B"), cpuNode("C")}
	chains, chainNodes, err := Plan(defs, nodes, false, false)
	require.NoError(t, err)
	require.Len(t, chains, 3)
	for i := range chainNodes {
		assert.Empty(t, chainNodes[i].Parents, "chain %d should be a root", i)
	}
}
