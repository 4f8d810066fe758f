package testpane_test

import (
	"testing"

	"github.com/mahkoh/wayland-color-test/internal/gpu"
	"github.com/mahkoh/wayland-color-test/internal/gpu/gputest"
	"github.com/mahkoh/wayland-color-test/scene"
	"github.com/mahkoh/wayland-color-test/testpane"
)

// TestBlendFrameOnDevice renders a 200x100 blend scene through two
// surfaces of one device and checks what reached the driver.
func TestBlendFrameOnDevice(t *testing.T) {
	drv := gputest.New()
	dev, err := gpu.NewDevice(drv)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	main, err := dev.CreateSurface(gpu.SurfaceTarget{Window: 1})
	if err != nil {
		t.Fatalf("CreateSurface(main) error = %v", err)
	}
	blend, err := dev.CreateSurface(gpu.SurfaceTarget{Window: 2})
	if err != nil {
		t.Fatalf("CreateSurface(blend) error = %v", err)
	}
	dev.Close()

	p := testpane.New(main, blend, testpane.WithScene(scene.DefaultBlend()))
	p.Configure(200, 100)
	if err := p.Frame(); err != nil {
		t.Fatalf("Frame() error = %v", err)
	}

	frames := drv.Frames()
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	left, right := frames[0], frames[1]
	if left.Width != 100 || left.Height != 100 || len(left.Draws) != 1 {
		t.Errorf("blend frame = %dx%d with %d draws, want 100x100 with 1", left.Width, left.Height, len(left.Draws))
	}
	if right.Width != 200 || right.Height != 100 || len(right.Draws) != 3 {
		t.Errorf("main frame = %dx%d with %d draws, want 200x100 with 3", right.Width, right.Height, len(right.Draws))
	}
	if a := left.Draws[0].Colors[0][3]; a != float32(scene.DefaultAlpha) {
		t.Errorf("blend alpha = %v, want %v", a, scene.DefaultAlpha)
	}

	main.Destroy()
	blend.Destroy()
	if got := drv.LiveTotal(); got != 0 {
		t.Errorf("live objects = %d, want 0", got)
	}
	for _, err := range drv.Misuse() {
		t.Errorf("driver misuse: %v", err)
	}
}
