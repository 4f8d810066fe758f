package gpu_test

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/mahkoh/wayland-color-test/internal/gpu"
	"github.com/mahkoh/wayland-color-test/internal/gpu/gputest"
)

func checkMisuse(t *testing.T, drv *gputest.Driver) {
	t.Helper()
	for _, err := range drv.Misuse() {
		t.Errorf("driver misuse: %v", err)
	}
}

// TestNewDevicePicksGraphicsQueue verifies that the first queue family
// with graphics support is opened.
func TestNewDevicePicksGraphicsQueue(t *testing.T) {
	drv := gputest.New()
	dev, err := gpu.NewDevice(drv)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	if got := dev.Adapter().Name; got != "Fake Adapter" {
		t.Errorf("Adapter().Name = %q, want %q", got, "Fake Adapter")
	}
	if got := drv.Live(gputest.KindPipeline); got != 1 {
		t.Errorf("live pipelines = %d, want 1", got)
	}
	if got := drv.Live(gputest.KindShader); got != 2 {
		t.Errorf("live shader modules = %d, want 2", got)
	}
	dev.Close()
	dev.Close()
	if !drv.Destroyed() {
		t.Error("Close() should destroy the driver")
	}
	if got := drv.LiveTotal(); got != 0 {
		t.Errorf("live objects after Close() = %d, want 0", got)
	}
	checkMisuse(t, drv)
}

// TestNewDeviceErrors verifies device selection failures and that the
// driver is destroyed on every failure.
func TestNewDeviceErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*gputest.Driver)
		wantErr error
		wantOp  gpu.Op
	}{
		{
			name:    "no devices",
			setup:   func(d *gputest.Driver) { d.AdapterList = nil },
			wantErr: gpu.ErrNoDevices,
		},
		{
			name: "no graphics queue",
			setup: func(d *gputest.Driver) {
				d.AdapterList = []gpu.AdapterInfo{
					{Name: "compute", QueueFamilies: []gpu.QueueFamily{{Graphics: false}}},
					{Name: "empty"},
				}
			},
			wantErr: gpu.ErrNoGraphicsQueue,
		},
		{
			name:   "enumerate",
			setup:  func(d *gputest.Driver) { d.Fail("Adapters", nil) },
			wantOp: gpu.OpEnumerateDevices,
		},
		{
			name:   "open device",
			setup:  func(d *gputest.Driver) { d.Fail("OpenDevice", nil) },
			wantOp: gpu.OpCreateDevice,
		},
		{
			name:   "command pool",
			setup:  func(d *gputest.Driver) { d.Fail("CreateCommandPool", nil) },
			wantOp: gpu.OpCreateCommandPool,
		},
		{
			name:   "shader",
			setup:  func(d *gputest.Driver) { d.Fail("CompileShader", nil) },
			wantOp: gpu.OpCompileShader,
		},
		{
			name:   "pipeline",
			setup:  func(d *gputest.Driver) { d.Fail("CreatePipeline", nil) },
			wantOp: gpu.OpCreatePipeline,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := gputest.New()
			tt.setup(drv)
			dev, err := gpu.NewDevice(drv)
			if err == nil {
				dev.Close()
				t.Fatal("NewDevice() should fail")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("NewDevice() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantOp != 0 {
				var e *gpu.Error
				if !errors.As(err, &e) || e.Op != tt.wantOp {
					t.Errorf("NewDevice() error = %v, want op %v", err, tt.wantOp)
				}
				if !errors.Is(err, gputest.ErrInjected) {
					t.Errorf("NewDevice() error = %v, should wrap the driver error", err)
				}
			}
			if !gpu.IsFatal(err) {
				t.Errorf("IsFatal(%v) = false, want true", err)
			}
			if !drv.Destroyed() {
				t.Error("failed NewDevice() should destroy the driver")
			}
			if got := drv.LiveTotal(); got != 0 {
				t.Errorf("live objects = %d, want 0", got)
			}
			checkMisuse(t, drv)
		})
	}
}

// TestCreateSurfaceFormat verifies that surfaces without RGBA16F are
// rejected and leave nothing behind.
func TestCreateSurfaceFormat(t *testing.T) {
	drv := gputest.New()
	drv.Formats = []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm}
	dev, err := gpu.NewDevice(drv)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	defer dev.Close()

	if _, err := dev.CreateSurface(gpu.SurfaceTarget{}); !errors.Is(err, gpu.ErrFormatUnsupported) {
		t.Errorf("CreateSurface() error = %v, want %v", err, gpu.ErrFormatUnsupported)
	}
	if got := drv.Live(gputest.KindSurface); got != 0 {
		t.Errorf("live surfaces = %d, want 0", got)
	}
}

// TestCreateSurfaceErrors verifies the wrapped surface creation errors.
func TestCreateSurfaceErrors(t *testing.T) {
	for method, op := range map[string]gpu.Op{
		"CreateSurface":  gpu.OpCreateSurface,
		"SurfaceFormats": gpu.OpSurfaceFormats,
	} {
		t.Run(method, func(t *testing.T) {
			drv := gputest.New()
			dev, err := gpu.NewDevice(drv)
			if err != nil {
				t.Fatalf("NewDevice() error = %v", err)
			}
			drv.Fail(method, nil)
			_, err = dev.CreateSurface(gpu.SurfaceTarget{})
			var e *gpu.Error
			if !errors.As(err, &e) || e.Op != op {
				t.Errorf("CreateSurface() error = %v, want op %v", err, op)
			}
			dev.Close()
			if got := drv.LiveTotal(); got != 0 {
				t.Errorf("live objects = %d, want 0", got)
			}
			checkMisuse(t, drv)
		})
	}
}

// TestDeviceOutlivesClose verifies that a surface keeps its device alive
// after the owner closed it.
func TestDeviceOutlivesClose(t *testing.T) {
	drv := gputest.New()
	dev, err := gpu.NewDevice(drv)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	s, err := dev.CreateSurface(gpu.SurfaceTarget{Window: 1})
	if err != nil {
		t.Fatalf("CreateSurface() error = %v", err)
	}
	dev.Close()
	if drv.Destroyed() {
		t.Fatal("device destroyed while a surface is alive")
	}
	if _, err := dev.CreateSurface(gpu.SurfaceTarget{}); !errors.Is(err, gpu.ErrDeviceReleased) {
		t.Errorf("CreateSurface() after Close() error = %v, want %v", err, gpu.ErrDeviceReleased)
	}
	s.Destroy()
	if !drv.Destroyed() {
		t.Error("destroying the last surface should destroy the device")
	}
	if got := drv.LiveTotal(); got != 0 {
		t.Errorf("live objects = %d, want 0", got)
	}
	checkMisuse(t, drv)
}

// TestErrorMessage verifies the error text.
func TestErrorMessage(t *testing.T) {
	err := &gpu.Error{Op: gpu.OpCreateSwapchain, Err: errors.New("boom")}
	if got, want := err.Error(), "gpu: could not create a swapchain: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if gpu.IsFatal(err) {
		t.Error("swapchain creation failures should not be fatal")
	}
}
