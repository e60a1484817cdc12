package poolregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itso310/asyncnet/device"
)

func TestGetCachesIdenticalKeys(t *testing.T) {
	r := New(false)
	opt := device.Option{Type: device.CPU, DeviceID: -1}
	p1, err := r.Get(opt, 4, false)
	require.NoError(t, err)
	p2, err := r.Get(opt, 4, false)
	require.NoError(t, err)
	assert.Same(t, p1, p2, "identical keys should return the same pool instance")
}

func TestGetDifferentPoolSizesAreDistinct(t *testing.T) {
	r := New(false)
	opt := device.Option{Type: device.CPU, DeviceID: -1}
	p1, err := r.Get(opt, 2, false)
	require.NoError(t, err)
	p2, err := r.Get(opt, 4, false)
	require.NoError(t, err)
	assert.NotSame(t, p1, p2)
}

func TestGetUnsupportedDevice(t *testing.T) {
	r := New(false)
	opt := device.Option{Type: device.CUDA, DeviceID: 0}
	_, err := r.Get(opt, 4, false)
	assert.ErrorIs(t, err, ErrUnsupportedDevice)
}

func TestGetSinglePoolIgnoresDeviceID(t *testing.T) {
	r := New(false)
	opt1 := device.Option{Type: device.CPU, DeviceID: 0}
	opt2 := device.Option{Type: device.CPU, DeviceID: 3}
	p1, err := r.Get(opt1, 4, true)
	require.NoError(t, err)
	p2, err := r.Get(opt2, 4, true)
	require.NoError(t, err)
	assert.Same(t, p1, p2, "use_single_pool should ignore device id differences")
}

func TestNumaBucketing(t *testing.T) {
	r := New(false)
	p0, err := r.Get(device.Option{Type: device.CPU, DeviceID: 0}, 4, false)
	require.NoError(t, err)
	p1, err := r.Get(device.Option{Type: device.CPU, DeviceID: 1}, 4, false)
	require.NoError(t, err)
	assert.NotSame(t, p0, p1, "different NUMA node ids should map to different pools")
}
