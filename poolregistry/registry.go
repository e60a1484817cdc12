// Package poolregistry maps (device type, device id, pool size) to a
// shared worker-pool handle, creating pools lazily under a single mutex
// the way spec.md S4.3 describes Caffe2's ThreadPoolRegistry.
package poolregistry

import (
	"sync"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/itso310/asyncnet/device"
	"github.com/itso310/asyncnet/internal/workerspool"
)

// WorkerPool is the minimal capability the scheduler needs from a pool.
// workerspool.Pool satisfies it; callers may register their own
// FactoryFunc returning a different implementation (e.g. one that also
// owns an accelerator stream context).
type WorkerPool interface {
	Submit(task func(workerID int))
	Size() int
}

// FactoryFunc constructs a WorkerPool for a given device id and pool
// size. perNet indicates the pool is scoped to a single net rather than
// shared process-wide, mirroring Caffe2's ThreadPoolRegistry signature.
type FactoryFunc func(deviceID, poolSize int, perNet bool) (WorkerPool, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[device.Type]FactoryFunc{
		device.CPU: func(deviceID, poolSize int, perNet bool) (WorkerPool, error) {
			return workerspool.New(poolSize), nil
		},
	}
)

// Register installs factory as the pool constructor for deviceType,
// analogous to Caffe2's C10_REGISTER_CREATOR(ThreadPoolRegistry, ...). A
// caller with a real accelerator backend registers one here instead of
// modifying this package.
func Register(deviceType device.Type, factory FactoryFunc) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[deviceType] = factory
}

// ErrUnsupportedDevice is returned by Get when no factory has been
// registered for the requested device family.
var ErrUnsupportedDevice = errors.New("poolregistry: unsupported device type")

type poolKey struct {
	deviceID int
	poolSize int
}

// Registry is the two-level (device type -> (device id, pool size) -> pool) cache of
// S4.3, guarded by a single mutex for the create-or-fetch critical
// section. The zero value is not usable; use New.
type Registry struct {
	usePerNetPools bool

	mu    sync.Mutex
	pools map[device.Type]map[poolKey]WorkerPool
}

// New returns an empty Registry. usePerNetPools is forwarded to pool
// factories so an accelerator backend can decide whether to create a
// dedicated pool for this net or reuse a process-wide one.
func New(usePerNetPools bool) *Registry {
	return &Registry{
		usePerNetPools: usePerNetPools,
		pools:          map[device.Type]map[poolKey]WorkerPool{},
	}
}

// Get returns the shared pool for opt, creating it on demand.
//
// If useSinglePool is set, every call with the same poolSize returns the
// same CPU pool with device id -1, regardless of opt -- matching S4.3's
// "use_single_pool" global flag. Otherwise, CPU-family device types are
// bucketed by NUMA node id (opt.DeviceID, or -1 if unpinned) and
// accelerator types by device id; device ids out of range are rejected
// with a structural error by netdef.Validate, while this function only
// enforces ErrUnsupportedDevice for unknown families.
func (r *Registry) Get(opt device.Option, poolSize int, useSinglePool bool) (WorkerPool, error) {
	deviceType := opt.Type
	deviceID := opt.DeviceID
	if useSinglePool {
		deviceType = device.CPU
		deviceID = -1
	} else if device.IsCPUFamily(opt.Type) {
		deviceType = device.CPU
	}

	factoriesMu.RLock()
	factory, ok := factories[deviceType]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedDevice, "device type %q", opt.Type)
	}

	key := poolKey{deviceID: deviceID, poolSize: poolSize}

	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.pools[deviceType]
	if !ok {
		bucket = map[poolKey]WorkerPool{}
		r.pools[deviceType] = bucket
	}
	pool, ok := bucket[key]
	if !ok {
		klog.V(2).Infof("poolregistry: creating pool for device=%s id=%d size=%d perNet=%v", deviceType, deviceID, poolSize, r.usePerNetPools)
		var err error
		pool, err = factory(deviceID, poolSize, r.usePerNetPools)
		if err != nil {
			return nil, errors.WithMessagef(err, "creating pool for device %q id %d", deviceType, deviceID)
		}
		bucket[key] = pool
	}
	return pool, nil
}
