package gpu

import (
	_ "embed"
	"log/slog"
	"slices"
	"sync"

	"github.com/gogpu/gputypes"
)

//go:embed shaders/fill_vert.wgsl
var fillVertexSource string

//go:embed shaders/fill_frag.wgsl
var fillFragmentSource string

// SwapchainFormat is the format of every swapchain image.
const SwapchainFormat = gputypes.TextureFormatRGBA16Float

// Device is a GPU device with the fill pipeline.
//
// A Device is reference counted: it starts with one reference, owned by the
// caller of NewDevice, and every Surface holds another. Close drops the
// caller's reference; the device is torn down once the last surface is
// destroyed.
type Device struct {
	drv  Driver
	opts options

	adapter     AdapterInfo
	queueFamily int

	cmdPool  CommandPool
	vertex   ShaderModule
	fragment ShaderModule
	pipeline Pipeline

	mu      sync.Mutex
	refs    int
	closed  bool
	buffers int // scratch buffers alive across all surfaces
}

// NewDevice opens the first adapter with a graphics queue and creates the
// fill pipeline. NewDevice takes ownership of drv: on failure drv is
// destroyed.
func NewDevice(drv Driver, opts ...Option) (*Device, error) {
	d := &Device{drv: drv, opts: defaultOptions(), refs: 1}
	for _, opt := range opts {
		opt(&d.opts)
	}

	var rb rollback
	defer rb.run()
	rb.add(drv.Destroy)

	adapters, err := drv.Adapters()
	if err != nil {
		return nil, opError(OpEnumerateDevices, err)
	}
	if len(adapters) == 0 {
		return nil, ErrNoDevices
	}
	adapter, family := -1, -1
	for i, a := range adapters {
		family = slices.IndexFunc(a.QueueFamilies, func(q QueueFamily) bool { return q.Graphics })
		if family >= 0 {
			adapter = i
			break
		}
	}
	if adapter < 0 {
		return nil, ErrNoGraphicsQueue
	}
	d.adapter = adapters[adapter]
	d.queueFamily = family

	if err := drv.OpenDevice(adapter, family); err != nil {
		return nil, opError(OpCreateDevice, err)
	}

	if d.cmdPool, err = drv.CreateCommandPool(); err != nil {
		return nil, opError(OpCreateCommandPool, err)
	}
	rb.add(func() { drv.DestroyCommandPool(d.cmdPool) })

	if d.vertex, err = drv.CompileShader(StageVertex, "fill.vert", fillVertexSource); err != nil {
		return nil, opError(OpCompileShader, err)
	}
	rb.add(func() { drv.DestroyShaderModule(d.vertex) })

	if d.fragment, err = drv.CompileShader(StageFragment, "fill.frag", fillFragmentSource); err != nil {
		return nil, opError(OpCompileShader, err)
	}
	rb.add(func() { drv.DestroyShaderModule(d.fragment) })

	d.pipeline, err = drv.CreatePipeline(&PipelineDesc{
		Vertex:     d.vertex,
		Fragment:   d.fragment,
		Format:     SwapchainFormat,
		Blend:      gputypes.BlendStateAlpha(),
		Topology:   gputypes.PrimitiveTopologyTriangleStrip,
		ParamsSize: ParamsSize,
	})
	if err != nil {
		return nil, opError(OpCreatePipeline, err)
	}

	rb.discard()
	d.log().Info("gpu: device ready",
		slog.String("adapter", d.adapter.Name),
		slog.String("type", d.adapter.Type.String()),
		slog.Int("queue_family", family))
	return d, nil
}

func (d *Device) log() *slog.Logger {
	if d.opts.logger != nil {
		return d.opts.logger
	}
	return slogger()
}

// Adapter returns the adapter the device was opened on.
func (d *Device) Adapter() AdapterInfo {
	return d.adapter
}

// Close drops the caller's reference. The device is destroyed once no
// surface references it. Close is safe to call more than once.
func (d *Device) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	d.release()
}

// acquire adds a reference for a new surface.
func (d *Device) acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refs == 0 || d.closed {
		return ErrDeviceReleased
	}
	d.refs++
	return nil
}

// release drops a reference and destroys the device when it was the last.
func (d *Device) release() {
	d.mu.Lock()
	d.refs--
	last := d.refs == 0
	d.mu.Unlock()
	if last {
		d.destroy()
	}
}

// destroy waits for the device to become idle and destroys everything it
// created in reverse order of creation.
func (d *Device) destroy() {
	if err := d.drv.WaitIdle(); err != nil {
		d.log().Warn("gpu: wait idle during device teardown", slog.Any("err", err))
	}
	d.drv.DestroyPipeline(d.pipeline)
	d.drv.DestroyShaderModule(d.fragment)
	d.drv.DestroyShaderModule(d.vertex)
	d.drv.DestroyCommandPool(d.cmdPool)
	d.drv.Destroy()
	d.log().Debug("gpu: device destroyed")
}

// scratchBuffer holds the parameter block of one draw.
type scratchBuffer struct {
	buf     Buffer
	address uint64
}

// newScratchBuffer allocates a parameter block buffer. It is safe to call
// from several surfaces at once.
func (d *Device) newScratchBuffer() (*scratchBuffer, error) {
	buf, err := d.drv.CreateBuffer(ParamsSize)
	if err != nil {
		return nil, opError(OpCreateBuffer, err)
	}
	addr, err := d.drv.BufferAddress(buf)
	if err != nil {
		d.drv.DestroyBuffer(buf)
		return nil, opError(OpBufferAddress, err)
	}
	d.mu.Lock()
	d.buffers++
	d.mu.Unlock()
	return &scratchBuffer{buf: buf, address: addr}, nil
}

func (d *Device) destroyScratchBuffer(b *scratchBuffer) {
	d.drv.DestroyBuffer(b.buf)
	d.mu.Lock()
	d.buffers--
	d.mu.Unlock()
}

// ScratchBuffers returns the number of live scratch buffers across all
// surfaces of d.
func (d *Device) ScratchBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buffers
}

// CreateSurface creates a presentable surface for a native window.
func (d *Device) CreateSurface(target SurfaceTarget) (*Surface, error) {
	if err := d.acquire(); err != nil {
		return nil, err
	}
	var rb rollback
	defer rb.run()
	rb.add(d.release)

	handle, err := d.drv.CreateSurface(target)
	if err != nil {
		return nil, opError(OpCreateSurface, err)
	}
	rb.add(func() { d.drv.DestroySurface(handle) })

	formats, err := d.drv.SurfaceFormats(handle)
	if err != nil {
		return nil, opError(OpSurfaceFormats, err)
	}
	if !slices.Contains(formats, SwapchainFormat) {
		return nil, ErrFormatUnsupported
	}

	rb.discard()
	return &Surface{dev: d, drv: d.drv, handle: handle}, nil
}
