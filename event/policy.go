package event

import "github.com/itso310/asyncnet/device"

// CanSchedule is the single authoritative source for the cross-device
// schedulability rule. Both the pairwise check (scheduler.canSchedule for
// one parent/child pair) and the batch check (over a snapshot of parent
// statuses) must consult this function -- never re-derive the rule
// themselves.
//
// Rules, in order:
//   - A SUCCESS parent never blocks scheduling.
//   - A FAILED parent always blocks scheduling (failed parents poison
//     children; the caller is responsible for propagating the failure,
//     this function only reports that the child cannot proceed).
//   - A SCHEDULED parent permits early start only when parent and child
//     belong to the same async-capable device family and the child
//     declares it supports async scheduling -- this lets dependent
//     accelerator work be enqueued onto the same device/stream before the
//     parent's kernel has actually completed, relying on the device's own
//     ordering guarantees.
//   - An INITIALIZED parent never permits scheduling (it hasn't even
//     started).
func CanSchedule(parentType device.Type, parentStatus Status, childType device.Type, childSupportsAsync bool) bool {
	switch parentStatus {
	case Success:
		return true
	case Failed:
		return false
	case Scheduled:
		if !childSupportsAsync {
			return false
		}
		return device.IsAccelerator(parentType) &&
			device.IsAccelerator(childType) &&
			device.Family(parentType) == device.Family(childType)
	case Initialized:
		return false
	default:
		return false
	}
}
