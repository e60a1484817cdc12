// Package netdef is the declarative configuration layer: a Definition
// describes a net the way a caller writes it down (name, execution
// mode, operator list with device options and named data dependencies),
// and New turns a validated Definition into a runnable scheduler.Net.
package netdef

import (
	"github.com/pkg/errors"

	"github.com/itso310/asyncnet/chain"
	"github.com/itso310/asyncnet/device"
	"github.com/itso310/asyncnet/errslot"
	"github.com/itso310/asyncnet/operator"
	"github.com/itso310/asyncnet/scheduler"
	"github.com/itso310/asyncnet/stats"
)

// Definition is the net-definition-level description spec.md S6
// describes informally: a name, an execution-mode type, an optional
// worker count and profiling override, and the operator list.
type Definition struct {
	Name            string
	Mode            scheduler.Mode
	NumWorkers      int
	EnableProfiling *bool
	// Inference forces the single-chain inference-mode plan regardless of
	// Globals.InferenceMode; either one selects it.
	Inference bool
	// Globals carries the S6 global knobs (MaxGPUs, MaxNUMANodes,
	// CPUPoolSize, InferenceMode, StreamsPerGPU) this net is validated and
	// built against. The zero value is replaced with stats.DefaultGlobals().
	Globals stats.Flags
	Ops     []operator.Def
}

// resolvedGlobals returns def.Globals, defaulted the same way New does,
// so Validate enforces the bounds the net will actually run with.
func resolvedGlobals(def Definition) stats.Flags {
	if def.Globals == (stats.Flags{}) {
		return stats.DefaultGlobals()
	}
	return def.Globals
}

// Validate runs the structural checks a net definition should pass
// before it is handed to the chain planner: duplicate operator names,
// dangling input references, unregistered device types, and device ids
// outside the MaxGPUs/MaxNUMANodes bounds of the resolved globals are all
// caught here
// with enough context to locate the offending operator, rather than
// surfacing as an opaque error once BuildOpGraph runs.
func Validate(def Definition) error {
	if def.Name == "" {
		return errors.New("netdef.Validate: net definition has no name")
	}
	if len(def.Ops) == 0 {
		return errors.Errorf("netdef.Validate: net %q has no operators", def.Name)
	}

	globals := resolvedGlobals(def)

	seenNames := make(map[string]bool, len(def.Ops))
	produced := make(map[string]string, len(def.Ops))
	for i, op := range def.Ops {
		if op.Name == "" {
			return errors.Errorf("netdef.Validate: net %q: operator at index %d has no name", def.Name, i)
		}
		if seenNames[op.Name] {
			return errors.Errorf("netdef.Validate: net %q: duplicate operator name %q", def.Name, op.Name)
		}
		seenNames[op.Name] = true

		if op.Device.DeviceID < -1 {
			return errors.Errorf("netdef.Validate: net %q: operator %q has invalid device id %d", def.Name, op.Name, op.Device.DeviceID)
		}
		switch {
		case device.IsAccelerator(op.Device.Type):
			if op.Device.DeviceID < 0 || op.Device.DeviceID >= globals.MaxGPUs {
				return errslot.NewStructuralError(
					"netdef.Validate: net %q: operator %q: device id %d out of range [0, %d) for accelerator %q",
					def.Name, op.Name, op.Device.DeviceID, globals.MaxGPUs, op.Device.Type)
			}
		case device.IsCPUFamily(op.Device.Type):
			if op.Device.DeviceID >= globals.MaxNUMANodes {
				return errslot.NewStructuralError(
					"netdef.Validate: net %q: operator %q: NUMA node %d out of range [0, %d)",
					def.Name, op.Name, op.Device.DeviceID, globals.MaxNUMANodes)
			}
		default:
			return errors.Errorf("netdef.Validate: net %q: operator %q uses unregistered device type %q", def.Name, op.Name, op.Device.Type)
		}

		for _, out := range op.Outputs {
			if owner, exists := produced[out]; exists {
				return errors.Errorf("netdef.Validate: net %q: output %q produced by both %q and %q", def.Name, out, owner, op.Name)
			}
			produced[out] = op.Name
		}
	}

	for _, op := range def.Ops {
		for _, in := range op.Inputs {
			if _, ok := produced[in]; !ok {
				return errors.Errorf("netdef.Validate: net %q: operator %q: input %q is not produced by any operator in this net", def.Name, op.Name, in)
			}
		}
	}

	return nil
}

// New validates def, builds the runtime operator DAG via factory,
// partitions it into chains, and constructs a ready-to-run
// scheduler.Net.
func New(def Definition, factory operator.Factory) (*scheduler.Net, error) {
	if err := Validate(def); err != nil {
		return nil, err
	}

	nodes, err := operator.Build(def.Ops, factory)
	if err != nil {
		return nil, errors.WithMessagef(err, "netdef.New: net %q", def.Name)
	}

	globals := resolvedGlobals(def)
	resolved := stats.FlagsForType(string(def.Mode), globals, def.EnableProfiling)
	inference := def.Inference || resolved.InferenceMode

	chains, chainNodes, err := chain.Plan(def.Ops, nodes, inference, resolved.ReportStats)
	if err != nil {
		return nil, errors.WithMessagef(err, "netdef.New: net %q", def.Name)
	}

	net, err := scheduler.New(def.Ops, nodes, chains, chainNodes, scheduler.Options{
		Mode:            def.Mode,
		NumWorkers:      def.NumWorkers,
		EnableProfiling: def.EnableProfiling,
		Globals:         globals,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "netdef.New: net %q", def.Name)
	}
	return net, nil
}
