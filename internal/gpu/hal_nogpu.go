//go:build nogpu

package gpu

import (
	"github.com/gogpu/gpucontext"
)

// OpenHAL reports ErrNoDevices in builds without GPU support.
func OpenHAL() (Driver, error) {
	return nil, ErrNoDevices
}

// FromProvider reports ErrNoDevices in builds without GPU support.
func FromProvider(gpucontext.DeviceProvider) (Driver, error) {
	return nil, ErrNoDevices
}
