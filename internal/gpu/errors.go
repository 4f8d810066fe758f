package gpu

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNoDevices is returned when the instance exposes no physical device.
	ErrNoDevices = errors.New("gpu: no physical devices")

	// ErrNoGraphicsQueue is returned when no device has a graphics queue.
	ErrNoGraphicsQueue = errors.New("gpu: no device has a graphics queue")

	// ErrFormatUnsupported is returned when a surface does not support the
	// RGBA16F swapchain format.
	ErrFormatUnsupported = errors.New("gpu: surface does not support rgba16float")

	// ErrDeviceReleased is returned when a released Device is used.
	ErrDeviceReleased = errors.New("gpu: device released")

	// ErrSurfaceDestroyed is returned when a destroyed Surface is used.
	ErrSurfaceDestroyed = errors.New("gpu: surface destroyed")

	// ErrSwapchainOutOfDate is wrapped by drivers when the swapchain no
	// longer matches the window. The next frame recreates it.
	ErrSwapchainOutOfDate = errors.New("gpu: swapchain out of date")
)

// Op names the driver operation that failed.
type Op uint8

const (
	OpCreateInstance Op = iota + 1
	OpEnumerateDevices
	OpCreateDevice
	OpCreateSurface
	OpSurfaceFormats
	OpWaitIdle
	OpCreateSwapchain
	OpSwapchainImages
	OpCreateCommandPool
	OpAllocateCommandBuffer
	OpCreateFence
	OpFenceStatus
	OpAcquireImage
	OpBeginCommandBuffer
	OpEndCommandBuffer
	OpCreateImageView
	OpSubmit
	OpCreateSemaphore
	OpPresent
	OpCompileShader
	OpCreatePipeline
	OpCreateBuffer
	OpBufferAddress
)

var opNames = [...]string{
	OpCreateInstance:        "create an instance",
	OpEnumerateDevices:      "enumerate physical devices",
	OpCreateDevice:          "create a device",
	OpCreateSurface:         "create a surface",
	OpSurfaceFormats:        "retrieve surface formats",
	OpWaitIdle:              "wait for the device to become idle",
	OpCreateSwapchain:       "create a swapchain",
	OpSwapchainImages:       "retrieve swapchain images",
	OpCreateCommandPool:     "create a command pool",
	OpAllocateCommandBuffer: "allocate a command buffer",
	OpCreateFence:           "create a fence",
	OpFenceStatus:           "retrieve the fence status",
	OpAcquireImage:          "acquire a swapchain image",
	OpBeginCommandBuffer:    "begin a command buffer",
	OpEndCommandBuffer:      "end a command buffer",
	OpCreateImageView:       "create an image view",
	OpSubmit:                "submit a command buffer",
	OpCreateSemaphore:       "create a semaphore",
	OpPresent:               "present an image",
	OpCompileShader:         "compile a shader",
	OpCreatePipeline:        "create a pipeline",
	OpCreateBuffer:          "create a buffer",
	OpBufferAddress:         "retrieve a buffer address",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", op)
}

// Fatal reports whether a failure of op leaves no usable device or surface.
func (op Op) Fatal() bool {
	switch op {
	case OpCreateInstance, OpEnumerateDevices, OpCreateDevice, OpCreateSurface,
		OpSurfaceFormats, OpCreateCommandPool, OpCompileShader, OpCreatePipeline:
		return true
	}
	return false
}

// Error is a failed driver operation.
type Error struct {
	Op  Op
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gpu: could not %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether the failure happened while constructing a device
// or surface.
func (e *Error) Fatal() bool {
	return e.Op.Fatal()
}

func opError(op Op, err error) error {
	return &Error{Op: op, Err: err}
}

// IsFatal reports whether err is an initialization failure. Per-frame
// failures leave the surface consistent and the next frame may retry.
func IsFatal(err error) bool {
	if errors.Is(err, ErrNoDevices) || errors.Is(err, ErrNoGraphicsQueue) ||
		errors.Is(err, ErrFormatUnsupported) {
		return true
	}
	var e *Error
	return errors.As(err, &e) && e.Fatal()
}
