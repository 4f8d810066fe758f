package gpu_test

import (
	"errors"
	"testing"

	"github.com/mahkoh/wayland-color-test/cmm"
	"github.com/mahkoh/wayland-color-test/internal/gpu"
	"github.com/mahkoh/wayland-color-test/internal/gpu/gputest"
	"github.com/mahkoh/wayland-color-test/scene"
)

func newSurface(t *testing.T, opts ...gpu.Option) (*gputest.Driver, *gpu.Device, *gpu.Surface) {
	t.Helper()
	drv := gputest.New()
	dev, err := gpu.NewDevice(drv, opts...)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	s, err := dev.CreateSurface(gpu.SurfaceTarget{Display: 1, Window: 2})
	if err != nil {
		t.Fatalf("CreateSurface() error = %v", err)
	}
	dev.Close()
	return drv, dev, s
}

var white = scene.Color{Lumen: scene.ReferenceWhite, Lightness: 1}

func srgb() (cmm.Matrix[cmm.Local, cmm.LMS], cmm.TransferFunction) {
	return cmm.NoDescription{}.Resolve()
}

// TestRenderFill verifies that a fill produces one draw with the expected
// parameter block.
func TestRenderFill(t *testing.T) {
	drv, _, s := newSurface(t)
	defer s.Destroy()

	m, tf := srgb()
	if err := s.Render(800, 600, scene.DrawFill{Color: white.Opaque()}, m, tf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	f, ok := drv.LastFrame()
	if !ok {
		t.Fatal("no frame submitted")
	}
	if f.Width != 800 || f.Height != 600 {
		t.Errorf("frame size = %dx%d, want 800x600", f.Width, f.Height)
	}
	if len(f.Draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(f.Draws))
	}
	if f.Vertices[0] != 4 {
		t.Errorf("vertex count = %d, want 4", f.Vertices[0])
	}
	p := f.Draws[0]
	if p.X1 != -1 || p.Y1 != -1 || p.X2 != 1 || p.Y2 != 1 {
		t.Errorf("rect = (%v,%v)-(%v,%v), want full canvas", p.X1, p.Y1, p.X2, p.Y2)
	}
	want := scene.Lab{1, 0, 0, 1}
	for i, c := range p.Colors {
		if c != want {
			t.Errorf("corner %d = %v, want %v", i, c, want)
		}
	}
	if p.EOTF != tf.ShaderCode() {
		t.Errorf("eotf = %d, want %d", p.EOTF, tf.ShaderCode())
	}
	if p.LMSToLocal != m.F32() {
		t.Errorf("matrix = %v, want %v", p.LMSToLocal, m.F32())
	}
	if got := drv.Swapchains()[0]; got.Format != gpu.SwapchainFormat || got.MinImages != 3 {
		t.Errorf("swapchain = %+v, want rgba16float with 3 images", got)
	}
}

// TestRenderPaintOrder verifies that rectangles are drawn in order.
func TestRenderPaintOrder(t *testing.T) {
	drv, _, s := newSurface(t)
	defer s.Destroy()

	d := scene.DrawGrid{
		Background: scene.Color{}.Opaque(),
		Foreground: white.Opaque(),
		Rows:       2,
		Cols:       2,
	}
	m, tf := srgb()
	if err := s.Render(100, 100, d, m, tf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	f, _ := drv.LastFrame()
	rects := d.Rects()
	if len(f.Draws) != len(rects) {
		t.Fatalf("draws = %d, want %d", len(f.Draws), len(rects))
	}
	for i, r := range rects {
		p := f.Draws[i]
		if p.X1 != r.X1 || p.Y1 != r.Y1 || p.X2 != r.X2 || p.Y2 != r.Y2 {
			t.Errorf("draw %d rect = (%v,%v)-(%v,%v), want (%v,%v)-(%v,%v)",
				i, p.X1, p.Y1, p.X2, p.Y2, r.X1, r.Y1, r.X2, r.Y2)
		}
	}
	if f.Pipelines != 1 {
		t.Errorf("pipeline binds = %d, want 1", f.Pipelines)
	}
}

// TestRenderReclaimsCompletedFrames verifies that in-flight resources are
// released in order once their fences signal and that scratch buffers are
// reused.
func TestRenderReclaimsCompletedFrames(t *testing.T) {
	drv, dev, s := newSurface(t)
	defer s.Destroy()

	m, tf := srgb()
	d := scene.DrawLeftRight{Left: white.Opaque(), Right: scene.Color{}.Opaque()}
	for range 3 {
		if err := s.Render(64, 64, d, m, tf); err != nil {
			t.Fatalf("Render() error = %v", err)
		}
	}
	st := s.Stats()
	if st.Submissions != 3 || st.Presentations != 3 {
		t.Errorf("in flight = %d submissions, %d presentations, want 3 and 3", st.Submissions, st.Presentations)
	}
	if got := dev.ScratchBuffers(); got != 3 {
		t.Errorf("scratch buffers = %d, want 3", got)
	}

	drv.Complete()
	if err := s.Render(64, 64, d, m, tf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	st = s.Stats()
	if st.Submissions != 1 || st.Presentations != 1 {
		t.Errorf("in flight = %d submissions, %d presentations, want 1 and 1", st.Submissions, st.Presentations)
	}
	if got := dev.ScratchBuffers(); got != 3 {
		t.Errorf("scratch buffers = %d, want 3 (reused)", got)
	}
	if st.PooledBuffers != 2 {
		t.Errorf("pooled buffers = %d, want 2", st.PooledBuffers)
	}
	// One submission holds the acquire semaphore, one presentation holds
	// the release semaphore.
	if got := drv.Live(gputest.KindSemaphore); got != 2 {
		t.Errorf("live semaphores = %d, want 2", got)
	}
	if got := drv.Live(gputest.KindFence); got != 2 {
		t.Errorf("live fences = %d, want 2", got)
	}
	if got := drv.Live(gputest.KindCommandBuffer); got != 1 {
		t.Errorf("live command buffers = %d, want 1", got)
	}
	checkMisuse(t, drv)
}

// TestRenderRecreatesSwapchain verifies recreation on resize and after a
// suboptimal acquire, chaining the old swapchain.
func TestRenderRecreatesSwapchain(t *testing.T) {
	drv, _, s := newSurface(t)
	defer s.Destroy()

	m, tf := srgb()
	d := scene.DrawFill{Color: white.Opaque()}
	render := func(w, h uint32) {
		t.Helper()
		if err := s.Render(w, h, d, m, tf); err != nil {
			t.Fatalf("Render(%d, %d) error = %v", w, h, err)
		}
	}

	render(100, 100)
	render(100, 100)
	if got := len(drv.Swapchains()); got != 1 {
		t.Fatalf("swapchains = %d, want 1", got)
	}
	render(200, 100)
	scs := drv.Swapchains()
	if len(scs) != 2 {
		t.Fatalf("swapchains = %d, want 2", len(scs))
	}
	if scs[1].Old == 0 || scs[1].Width != 200 {
		t.Errorf("second swapchain = %+v, want 200 wide chained to the first", scs[1])
	}
	if got := drv.Live(gputest.KindSwapchain); got != 1 {
		t.Errorf("live swapchains = %d, want 1", got)
	}
	if got := drv.Live(gputest.KindImageView); got != 3 {
		t.Errorf("live image views = %d, want 3", got)
	}

	drv.SuboptimalAcquire = true
	render(200, 100)
	if !s.Stats().SwapchainStale {
		t.Error("suboptimal acquire should mark the swapchain stale")
	}
	drv.SuboptimalAcquire = false
	render(200, 100)
	if got := len(drv.Swapchains()); got != 3 {
		t.Errorf("swapchains = %d, want 3 after suboptimal acquire", got)
	}
	if s.Stats().SwapchainStale {
		t.Error("recreation should clear the stale flag")
	}
	checkMisuse(t, drv)
}

// TestRenderFailureRollsBack verifies that a failed frame leaves no new
// in-flight entries and leaks nothing, and that the next frame succeeds.
func TestRenderFailureRollsBack(t *testing.T) {
	methods := []string{
		"CreateSemaphore",
		"CreateFence",
		"AcquireNextImage",
		"AllocateCommandBuffer",
		"BeginCommandBuffer",
		"CreateBuffer",
		"BufferAddress",
		"EndCommandBuffer",
		"Submit",
	}
	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			drv, _, s := newSurface(t)
			m, tf := srgb()
			d := scene.DrawFill{Color: white.Opaque()}

			drv.Fail(method, nil)
			err := s.Render(32, 32, d, m, tf)
			if err == nil {
				t.Fatal("Render() should fail")
			}
			if !errors.Is(err, gputest.ErrInjected) {
				t.Errorf("Render() error = %v, should wrap the injected error", err)
			}
			if gpu.IsFatal(err) {
				t.Errorf("IsFatal(%v) = true, want false", err)
			}
			st := s.Stats()
			if st.Submissions != 0 || st.Presentations != 0 {
				t.Errorf("in flight after failure = %d, %d, want 0, 0", st.Submissions, st.Presentations)
			}
			for _, kind := range []string{gputest.KindSemaphore, gputest.KindFence, gputest.KindCommandBuffer} {
				if got := drv.Live(kind); got != 0 {
					t.Errorf("live %s = %d, want 0", kind, got)
				}
			}

			drv.Heal()
			if err := s.Render(32, 32, d, m, tf); err != nil {
				t.Fatalf("Render() after failure error = %v", err)
			}
			s.Destroy()
			if got := drv.LiveTotal(); got != 0 {
				t.Errorf("live objects = %d, want 0", got)
			}
			checkMisuse(t, drv)
		})
	}
}

// TestRenderPresentFenceFailure verifies that a failure to create the
// present fence happens before anything is acquired or submitted.
func TestRenderPresentFenceFailure(t *testing.T) {
	drv, _, s := newSurface(t)
	m, tf := srgb()
	d := scene.DrawFill{Color: white.Opaque()}

	drv.FailNth("CreateFence", 2, nil)
	err := s.Render(32, 32, d, m, tf)
	if !errors.Is(err, gputest.ErrInjected) {
		t.Fatalf("Render() error = %v, should wrap the injected error", err)
	}
	var e *gpu.Error
	if !errors.As(err, &e) || e.Op != gpu.OpCreateFence {
		t.Errorf("Render() error = %v, want op %v", err, gpu.OpCreateFence)
	}
	for _, method := range []string{"AcquireNextImage", "Submit", "Present"} {
		if got := drv.Count(method); got != 0 {
			t.Errorf("Count(%s) = %d, want 0", method, got)
		}
	}
	st := s.Stats()
	if st.Submissions != 0 || st.Presentations != 0 {
		t.Errorf("in flight after failure = %d, %d, want 0, 0", st.Submissions, st.Presentations)
	}
	for _, kind := range []string{gputest.KindSemaphore, gputest.KindFence, gputest.KindCommandBuffer} {
		if got := drv.Live(kind); got != 0 {
			t.Errorf("live %s = %d, want 0", kind, got)
		}
	}

	if err := s.Render(32, 32, d, m, tf); err != nil {
		t.Fatalf("Render() after failure error = %v", err)
	}
	s.Destroy()
	if got := drv.LiveTotal(); got != 0 {
		t.Errorf("live objects = %d, want 0", got)
	}
	checkMisuse(t, drv)
}

// TestRenderPresentFailure verifies that a failed present keeps the
// submission in flight until its fence signals.
func TestRenderPresentFailure(t *testing.T) {
	drv, _, s := newSurface(t)
	m, tf := srgb()
	d := scene.DrawFill{Color: white.Opaque()}

	drv.Fail("Present", nil)
	if err := s.Render(32, 32, d, m, tf); err == nil {
		t.Fatal("Render() should fail")
	}
	st := s.Stats()
	if st.Submissions != 1 || st.Presentations != 0 {
		t.Errorf("in flight = %d submissions, %d presentations, want 1 and 0", st.Submissions, st.Presentations)
	}
	if got := drv.Live(gputest.KindFence); got != 1 {
		t.Errorf("live fences = %d, want 1", got)
	}

	drv.Heal()
	drv.Complete()
	if err := s.Render(32, 32, d, m, tf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	st = s.Stats()
	if st.Submissions != 1 || st.Presentations != 1 {
		t.Errorf("in flight = %d submissions, %d presentations, want 1 and 1", st.Submissions, st.Presentations)
	}
	s.Destroy()
	if got := drv.LiveTotal(); got != 0 {
		t.Errorf("live objects = %d, want 0", got)
	}
	checkMisuse(t, drv)
}

// TestRenderSwapchainFailure verifies that swapchain failures are
// reported and retried on the next frame.
func TestRenderSwapchainFailure(t *testing.T) {
	for method, op := range map[string]gpu.Op{
		"CreateSwapchain": gpu.OpCreateSwapchain,
		"SwapchainImages": gpu.OpSwapchainImages,
		"CreateImageView": gpu.OpCreateImageView,
	} {
		t.Run(method, func(t *testing.T) {
			drv, _, s := newSurface(t)
			defer s.Destroy()
			m, tf := srgb()
			d := scene.DrawFill{Color: white.Opaque()}

			drv.Fail(method, nil)
			err := s.Render(32, 32, d, m, tf)
			var e *gpu.Error
			if !errors.As(err, &e) || e.Op != op {
				t.Fatalf("Render() error = %v, want op %v", err, op)
			}
			if got := drv.Live(gputest.KindSwapchain); got != 0 {
				t.Errorf("live swapchains = %d, want 0", got)
			}
			drv.Heal()
			if err := s.Render(32, 32, d, m, tf); err != nil {
				t.Fatalf("Render() after failure error = %v", err)
			}
			checkMisuse(t, drv)
		})
	}
}

// TestSurfaceDestroy verifies teardown with frames in flight.
func TestSurfaceDestroy(t *testing.T) {
	drv, _, s := newSurface(t)
	m, tf := srgb()
	for range 4 {
		if err := s.Render(16, 16, scene.DrawFill{Color: white.Opaque()}, m, tf); err != nil {
			t.Fatalf("Render() error = %v", err)
		}
	}
	s.Destroy()
	s.Destroy()
	if !drv.Destroyed() {
		t.Error("device should be destroyed with its last surface")
	}
	if got := drv.LiveTotal(); got != 0 {
		t.Errorf("live objects = %d, want 0", got)
	}
	if err := s.Render(16, 16, scene.DrawFill{}, m, tf); !errors.Is(err, gpu.ErrSurfaceDestroyed) {
		t.Errorf("Render() after Destroy() error = %v, want %v", err, gpu.ErrSurfaceDestroyed)
	}
	checkMisuse(t, drv)
}

// TestWithOptions verifies that options reach new swapchains.
func TestWithOptions(t *testing.T) {
	drv, _, s := newSurface(t, gpu.WithSwapchainImages(5), gpu.WithSwapchainImages(1))
	defer s.Destroy()
	m, tf := srgb()
	if err := s.Render(8, 8, scene.DrawFill{}, m, tf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := drv.Swapchains()[0].MinImages; got != 5 {
		t.Errorf("MinImages = %d, want 5", got)
	}
}
