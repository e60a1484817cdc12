// Package device describes the device identity a chain of operators is
// bound to: a family (CPU, one of its ISA variants, or an accelerator) and
// an optional device id (NUMA node for CPU, GPU ordinal for accelerators).
package device

import "sync"

// Type is a comparable tag identifying a device family or ISA variant.
// New families are registered with RegisterCPUVariant/RegisterAccelerator
// rather than hardcoded, so the pool registry and the CanSchedule policy
// table stay closed over a small set of predicates instead of a switch
// statement that needs editing for every new backend.
type Type string

// Built-in device types. Additional accelerator families can be
// registered at init time by other packages.
const (
	CPU       Type = "cpu"
	CPUMKLDNN Type = "cpu.mkldnn"
	CPUIdeep  Type = "cpu.ideep"
	CUDA      Type = "cuda"
)

var (
	registryMu sync.RWMutex
	// family maps an ISA variant to the CPU family it belongs to.
	family = map[Type]Type{
		CPU:       CPU,
		CPUMKLDNN: CPU,
		CPUIdeep:  CPU,
	}
	// accelerators is the set of device types treated as accelerator
	// families: multiple independent command streams, async-capable.
	accelerators = map[Type]bool{
		CUDA: true,
	}
)

// RegisterCPUVariant declares t as an ISA variant of the CPU family, so
// pool selection and scheduling treat it like plain CPU.
func RegisterCPUVariant(t Type) {
	registryMu.Lock()
	defer registryMu.Unlock()
	family[t] = CPU
}

// RegisterAccelerator declares t as a new accelerator family: it gets its
// own pool bucket keyed by device id, and is considered async-capable by
// the default CanSchedule policy.
func RegisterAccelerator(t Type) {
	registryMu.Lock()
	defer registryMu.Unlock()
	accelerators[t] = true
}

// Family returns the CPU family a type belongs to, or t itself if it is
// not a registered CPU variant (e.g. it is an accelerator).
func Family(t Type) Type {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if f, ok := family[t]; ok {
		return f
	}
	return t
}

// IsCPUFamily reports whether t is CPU or one of its registered ISA
// variants.
func IsCPUFamily(t Type) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := family[t]
	return ok
}

// IsAccelerator reports whether t is a registered accelerator family.
func IsAccelerator(t Type) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return accelerators[t]
}

// Option pins an operator (and transitively the chain it heads or
// belongs to) to a device family and, optionally, a specific device id.
// DeviceID of -1 means unpinned (CPU, no NUMA preference).
type Option struct {
	Type     Type
	DeviceID int
}

// Unpinned reports whether this option has no specific device id.
func (o Option) Unpinned() bool {
	return o.DeviceID < 0
}
