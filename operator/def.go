package operator

import (
	"github.com/pkg/errors"

	"github.com/itso310/asyncnet/device"
)

// Def is the declarative, net-definition-level description of an
// operator: what a caller writes down before anything runtime exists.
// Dependencies are expressed by name through Inputs/Outputs rather than
// by index, so a net definition can be authored without knowing the
// eventual operator ordering.
type Def struct {
	Name   string
	Type   string
	Device device.Option
	// Inputs names outputs (from any operator, including this one's own
	// earlier outputs is not allowed) this operator consumes.
	Inputs []string
	// Outputs names the values this operator produces. An operator with
	// no outputs is a terminal sink.
	Outputs []string
}

// Factory constructs a runtime Operator from a Def. Supplied by the
// caller -- this package only wires the result into the operator DAG,
// it never knows how to actually execute any particular operator type.
type Factory interface {
	New(def Def) (Operator, error)
}

// Build constructs one Node per Def, in order, using factory. It does
// not compute dependencies between nodes -- that is chain.Plan's job,
// operating over the Defs' Inputs/Outputs -- Build only instantiates
// runtime Operators.
func Build(defs []Def, factory Factory) ([]*Node, error) {
	nodes := make([]*Node, len(defs))
	for i, def := range defs {
		op, err := factory.New(def)
		if err != nil {
			return nil, errors.WithMessagef(err, "building operator %q (%s)", def.Name, def.Type)
		}
		nodes[i] = NewNode(op)
	}
	return nodes, nil
}
