//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan backend
)

var (
	errNoInstance   = errors.New("driver has no instance")
	errUnknown      = errors.New("unknown handle")
	errNotAcquired  = errors.New("swapchain image not acquired")
	errNotRecording = errors.New("command buffer not recording")
)

// HALDriver implements Driver on top of gogpu/wgpu/hal.
//
// Handles are IDs into maps of hal objects. Semaphores are tokens: the hal
// queue orders acquire, submit and present itself. A fence records the
// submission index it waits for.
//
// Thread Safety: HALDriver is safe for concurrent use from multiple
// goroutines. All resource operations are protected by a mutex.
type HALDriver struct {
	mu sync.Mutex

	instance hal.Instance
	adapters []hal.ExposedAdapter
	adapter  hal.Adapter
	device   hal.Device
	queue    hal.Queue
	// borrowed is set when the device belongs to a DeviceProvider.
	borrowed bool

	nextID atomic.Uint64

	layout     hal.BindGroupLayout
	pools      map[CommandPool]struct{}
	commands   map[CommandBuffer]*halCommands
	shaders    map[ShaderModule]hal.ShaderModule
	pipelines  map[Pipeline]*halPipeline
	buffers    map[Buffer]*halBuffer
	surfaces   map[SurfaceHandle]*halSurface
	swapchains map[Swapchain]*halSwapchain
	images     map[Image]*halImage
	views      map[ImageView]halView
	semaphores map[Semaphore]struct{}
	fences     map[Fence]uint64

	lastSubmission uint64
}

type halPipeline struct {
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline
}

type halBuffer struct {
	buffer hal.Buffer
	group  hal.BindGroup
}

type halSurface struct {
	surface hal.Surface
	// current is the swapchain the surface is configured for.
	current Swapchain
}

type halSwapchain struct {
	surface SurfaceHandle
	images  []Image
	next    int
}

type halImage struct {
	texture hal.SurfaceTexture
}

type halView struct {
	image  Image
	format gputypes.TextureFormat
}

type halCommands struct {
	encoder   hal.CommandEncoder
	recording bool
	buffer    hal.CommandBuffer
	pass      hal.RenderPassEncoder
	views     []hal.TextureView
	err       error
}

func (c *halCommands) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func newHALDriver(instance hal.Instance) *HALDriver {
	d := &HALDriver{
		instance:   instance,
		pools:      make(map[CommandPool]struct{}),
		commands:   make(map[CommandBuffer]*halCommands),
		shaders:    make(map[ShaderModule]hal.ShaderModule),
		pipelines:  make(map[Pipeline]*halPipeline),
		buffers:    make(map[Buffer]*halBuffer),
		surfaces:   make(map[SurfaceHandle]*halSurface),
		swapchains: make(map[Swapchain]*halSwapchain),
		images:     make(map[Image]*halImage),
		views:      make(map[ImageView]halView),
		semaphores: make(map[Semaphore]struct{}),
		fences:     make(map[Fence]uint64),
	}
	// Start ID generation at 1 (0 is the null handle)
	d.nextID.Store(1)
	return d
}

// OpenHAL creates a Vulkan instance and returns a driver for it.
func OpenHAL() (Driver, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, opError(OpCreateInstance, hal.ErrBackendNotFound)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{
		Backends: gputypes.BackendsVulkan,
	})
	if err != nil {
		return nil, opError(OpCreateInstance, err)
	}
	return newHALDriver(instance), nil
}

// FromProvider returns a driver that renders with the device of a host
// application. The provider must implement HalDevice() any and HalQueue()
// any returning hal.Device and hal.Queue. Surfaces additionally need
// HalInstance() any returning the hal.Instance.
//
// The device stays owned by the provider: Destroy releases only the
// objects created through the driver.
func FromProvider(p gpucontext.DeviceProvider) (Driver, error) {
	hp, ok := p.(interface {
		HalDevice() any
		HalQueue() any
	})
	if !ok {
		return nil, fmt.Errorf("gpu: provider %T does not expose hal objects", p)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("gpu: provider device is not a hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("gpu: provider queue is not a hal.Queue")
	}

	var instance hal.Instance
	if ip, ok := p.(interface{ HalInstance() any }); ok {
		instance, _ = ip.HalInstance().(hal.Instance)
	}
	d := newHALDriver(instance)
	d.device, d.queue, d.borrowed = device, queue, true
	d.adapter, _ = p.Adapter().(hal.Adapter)

	info := p.AdapterInfo()
	d.adapters = []hal.ExposedAdapter{{
		Adapter: d.adapter,
		Info: gputypes.AdapterInfo{
			Name:       info.Name,
			DeviceType: deviceType(info.Type),
		},
	}}
	return d, nil
}

func deviceType(t gpucontext.AdapterType) gputypes.DeviceType {
	switch t {
	case gpucontext.AdapterTypeDiscrete:
		return gputypes.DeviceTypeDiscreteGPU
	case gpucontext.AdapterTypeIntegrated:
		return gputypes.DeviceTypeIntegratedGPU
	case gpucontext.AdapterTypeSoftware:
		return gputypes.DeviceTypeCPU
	}
	return gputypes.DeviceTypeOther
}

func (d *HALDriver) id() uint64 {
	return d.nextID.Add(1) - 1
}

// Adapters lists the adapters of the instance. Every hal adapter exposes
// one queue that supports graphics.
func (d *HALDriver) Adapters() ([]AdapterInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.adapters == nil {
		if d.instance == nil {
			return nil, errNoInstance
		}
		d.adapters = d.instance.EnumerateAdapters(nil)
	}
	infos := make([]AdapterInfo, len(d.adapters))
	for i, a := range d.adapters {
		infos[i] = AdapterInfo{
			Name:          a.Info.Name,
			Type:          a.Info.DeviceType,
			QueueFamilies: []QueueFamily{{Graphics: true}},
		}
	}
	return infos, nil
}

func (d *HALDriver) OpenDevice(adapter, _ int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.borrowed {
		return nil
	}
	if adapter < 0 || adapter >= len(d.adapters) {
		return fmt.Errorf("adapter %d: %w", adapter, errUnknown)
	}
	a := d.adapters[adapter]
	open, err := a.Adapter.Open(a.Features, gputypes.DefaultLimits())
	if err != nil {
		return err
	}
	d.adapter, d.device, d.queue = a.Adapter, open.Device, open.Queue
	return nil
}

func (d *HALDriver) WaitIdle() error {
	if d.device == nil {
		return nil
	}
	return d.device.WaitIdle()
}

// Destroy releases every object still alive, then the device and the
// instance unless they are borrowed.
func (d *HALDriver) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		for id := range d.commands {
			d.freeCommands(id)
		}
		for id := range d.buffers {
			d.destroyBuffer(id)
		}
		for _, p := range d.pipelines {
			d.device.DestroyRenderPipeline(p.pipeline)
			d.device.DestroyPipelineLayout(p.layout)
		}
		for _, m := range d.shaders {
			d.device.DestroyShaderModule(m)
		}
		if d.layout != nil {
			d.device.DestroyBindGroupLayout(d.layout)
		}
		for id := range d.surfaces {
			d.destroySurface(id)
		}
	}
	clear(d.pipelines)
	clear(d.shaders)
	d.layout = nil
	if !d.borrowed {
		if d.device != nil {
			d.device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device, d.queue, d.instance = nil, nil, nil
}

func (d *HALDriver) CreateCommandPool() (CommandPool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := CommandPool(d.id())
	d.pools[id] = struct{}{}
	return id, nil
}

func (d *HALDriver) DestroyCommandPool(p CommandPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pools, p)
}

func (d *HALDriver) AllocateCommandBuffer(p CommandPool) (CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pools[p]; !ok {
		return 0, fmt.Errorf("command pool %d: %w", p, errUnknown)
	}
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "fill"})
	if err != nil {
		return 0, err
	}
	id := CommandBuffer(d.id())
	d.commands[id] = &halCommands{encoder: enc}
	return id, nil
}

func (d *HALDriver) FreeCommandBuffer(_ CommandPool, cb CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.freeCommands(cb)
}

func (d *HALDriver) freeCommands(cb CommandBuffer) {
	c, ok := d.commands[cb]
	if !ok {
		return
	}
	delete(d.commands, cb)
	if c.recording {
		c.encoder.DiscardEncoding()
	}
	if c.buffer != nil {
		d.device.FreeCommandBuffer(c.buffer)
	}
	for _, v := range c.views {
		d.device.DestroyTextureView(v)
	}
	c.encoder.Destroy()
}

// CompileShader compiles WGSL to SPIR-V with naga. The module keeps the
// WGSL source for backends that consume it directly.
func (d *HALDriver) CompileShader(_ ShaderStage, label, wgsl string) (ShaderModule, error) {
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", label, err)
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: wgsl, SPIRV: words},
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", label, err)
	}
	id := ShaderModule(d.id())
	d.shaders[id] = module
	return id, nil
}

func (d *HALDriver) DestroyShaderModule(m ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if module, ok := d.shaders[m]; ok {
		delete(d.shaders, m)
		d.device.DestroyShaderModule(module)
	}
}

// bindGroupLayout returns the layout of the parameter block: one uniform
// buffer visible to both stages. The caller must hold d.mu.
func (d *HALDriver) bindGroupLayout() (hal.BindGroupLayout, error) {
	if d.layout != nil {
		return d.layout, nil
	}
	layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "fill params",
		Entries: []gputypes.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: gputypes.ShaderStagesVertexFragment,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: ParamsSize,
			},
		}},
	})
	if err != nil {
		return nil, err
	}
	d.layout = layout
	return layout, nil
}

func (d *HALDriver) CreatePipeline(desc *PipelineDesc) (Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	vs, ok := d.shaders[desc.Vertex]
	if !ok {
		return 0, fmt.Errorf("vertex shader %d: %w", desc.Vertex, errUnknown)
	}
	fs, ok := d.shaders[desc.Fragment]
	if !ok {
		return 0, fmt.Errorf("fragment shader %d: %w", desc.Fragment, errUnknown)
	}
	bgl, err := d.bindGroupLayout()
	if err != nil {
		return 0, err
	}
	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "fill",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		return 0, err
	}
	blend := desc.Blend
	pipeline, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "fill",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vs,
			EntryPoint: "vs_main",
		},
		Primitive: gputypes.PrimitiveState{
			Topology: desc.Topology,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &hal.FragmentState{
			Module:     fs,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    desc.Format,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		d.device.DestroyPipelineLayout(layout)
		return 0, err
	}
	id := Pipeline(d.id())
	d.pipelines[id] = &halPipeline{layout: layout, pipeline: pipeline}
	return id, nil
}

func (d *HALDriver) DestroyPipeline(p Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if hp, ok := d.pipelines[p]; ok {
		delete(d.pipelines, p)
		d.device.DestroyRenderPipeline(hp.pipeline)
		d.device.DestroyPipelineLayout(hp.layout)
	}
}

// CreateBuffer creates a uniform buffer together with the bind group that
// exposes it to the fill pipeline.
func (d *HALDriver) CreateBuffer(size uint64) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bgl, err := d.bindGroupLayout()
	if err != nil {
		return 0, err
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "fill params",
		Size:  size,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, err
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "fill params",
		Layout: bgl,
		Entries: []gputypes.BindGroupEntry{{
			Binding: 0,
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Size:   size,
			},
		}},
	})
	if err != nil {
		d.device.DestroyBuffer(buf)
		return 0, err
	}
	id := Buffer(d.id())
	d.buffers[id] = &halBuffer{buffer: buf, group: group}
	return id, nil
}

// BufferAddress returns the buffer ID. The hal layer binds buffers through
// bind groups, so the ID is what CmdPushAddress resolves.
func (d *HALDriver) BufferAddress(b Buffer) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[b]; !ok {
		return 0, fmt.Errorf("buffer %d: %w", b, errUnknown)
	}
	return uint64(b), nil
}

func (d *HALDriver) DestroyBuffer(b Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroyBuffer(b)
}

func (d *HALDriver) destroyBuffer(b Buffer) {
	hb, ok := d.buffers[b]
	if !ok {
		return
	}
	delete(d.buffers, b)
	d.device.DestroyBindGroup(hb.group)
	d.device.DestroyBuffer(hb.buffer)
}

func (d *HALDriver) CreateSurface(t SurfaceTarget) (SurfaceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.instance == nil {
		return 0, errNoInstance
	}
	surface, err := d.instance.CreateSurface(t.Display, t.Window)
	if err != nil {
		return 0, err
	}
	id := SurfaceHandle(d.id())
	d.surfaces[id] = &halSurface{surface: surface}
	return id, nil
}

func (d *HALDriver) SurfaceFormats(s SurfaceHandle) ([]gputypes.TextureFormat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	hs, ok := d.surfaces[s]
	if !ok {
		return nil, fmt.Errorf("surface %d: %w", s, errUnknown)
	}
	if d.adapter == nil {
		return nil, errors.New("no adapter to query surface capabilities")
	}
	caps := d.adapter.SurfaceCapabilities(hs.surface)
	if caps == nil {
		return nil, errors.New("adapter cannot present to surface")
	}
	return caps.Formats, nil
}

func (d *HALDriver) DestroySurface(s SurfaceHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroySurface(s)
}

func (d *HALDriver) destroySurface(s SurfaceHandle) {
	hs, ok := d.surfaces[s]
	if !ok {
		return
	}
	if hs.current != 0 {
		d.destroySwapchain(hs.current)
	}
	delete(d.surfaces, s)
	hs.surface.Destroy()
}

// CreateSwapchain configures the surface. A hal surface owns at most one
// swapchain, so the new configuration replaces desc.Old in place and
// destroying Old afterwards only drops its images.
func (d *HALDriver) CreateSwapchain(desc *SwapchainDesc) (Swapchain, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	hs, ok := d.surfaces[desc.Surface]
	if !ok {
		return 0, fmt.Errorf("surface %d: %w", desc.Surface, errUnknown)
	}
	err := hs.surface.Configure(d.device, &hal.SurfaceConfiguration{
		Width:       desc.Width,
		Height:      desc.Height,
		Format:      desc.Format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: desc.PresentMode,
		AlphaMode:   desc.AlphaMode,
	})
	if err != nil {
		return 0, err
	}
	n := max(desc.MinImages, 2)
	sc := &halSwapchain{surface: desc.Surface, images: make([]Image, n)}
	for i := range sc.images {
		img := Image(d.id())
		d.images[img] = &halImage{}
		sc.images[i] = img
	}
	id := Swapchain(d.id())
	d.swapchains[id] = sc
	hs.current = id
	return id, nil
}

func (d *HALDriver) SwapchainImages(s Swapchain) ([]Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc, ok := d.swapchains[s]
	if !ok {
		return nil, fmt.Errorf("swapchain %d: %w", s, errUnknown)
	}
	return sc.images, nil
}

func (d *HALDriver) DestroySwapchain(s Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destroySwapchain(s)
}

func (d *HALDriver) destroySwapchain(s Swapchain) {
	sc, ok := d.swapchains[s]
	if !ok {
		return
	}
	delete(d.swapchains, s)
	hs := d.surfaces[sc.surface]
	for _, img := range sc.images {
		if hi := d.images[img]; hi != nil && hi.texture != nil && hs != nil {
			hs.surface.DiscardTexture(hi.texture)
		}
		delete(d.images, img)
	}
	if hs != nil && hs.current == s {
		hs.surface.Unconfigure(d.device)
		hs.current = 0
	}
}

// CreateImageView records the view. The hal view is created when the
// image is rendered to, since a surface texture exists only while
// acquired.
func (d *HALDriver) CreateImageView(img Image, format gputypes.TextureFormat) (ImageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.images[img]; !ok {
		return 0, fmt.Errorf("image %d: %w", img, errUnknown)
	}
	id := ImageView(d.id())
	d.views[id] = halView{image: img, format: format}
	return id, nil
}

func (d *HALDriver) DestroyImageView(v ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.views, v)
}

// AcquireNextImage acquires a surface texture and binds it to the next
// image of the swapchain. The hal surface applies its own timeout.
func (d *HALDriver) AcquireNextImage(s Swapchain, _ Semaphore, _ time.Duration) (uint32, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc, ok := d.swapchains[s]
	if !ok {
		return 0, false, fmt.Errorf("swapchain %d: %w", s, errUnknown)
	}
	hs := d.surfaces[sc.surface]
	acquired, err := hs.surface.AcquireTexture(nil)
	if err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
			return 0, false, fmt.Errorf("%w: %w", ErrSwapchainOutOfDate, err)
		}
		return 0, false, err
	}
	idx := sc.next
	sc.next = (sc.next + 1) % len(sc.images)
	hi := d.images[sc.images[idx]]
	if hi.texture != nil {
		hs.surface.DiscardTexture(hi.texture)
	}
	hi.texture = acquired.Texture
	return uint32(idx), acquired.Suboptimal, nil
}

func (d *HALDriver) CreateSemaphore() (Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := Semaphore(d.id())
	d.semaphores[id] = struct{}{}
	return id, nil
}

func (d *HALDriver) DestroySemaphore(s Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.semaphores, s)
}

func (d *HALDriver) CreateFence() (Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := Fence(d.id())
	d.fences[id] = 0
	return id, nil
}

// FenceStatus reports whether the submission recorded in f completed.
// A fence that was never handed to Submit or Present stays unsignaled.
func (d *HALDriver) FenceStatus(f Fence) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx, ok := d.fences[f]
	if !ok {
		return false, fmt.Errorf("fence %d: %w", f, errUnknown)
	}
	if idx == 0 {
		return false, nil
	}
	return d.queue.PollCompleted() >= idx, nil
}

func (d *HALDriver) DestroyFence(f Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.fences, f)
}

func (d *HALDriver) recording(cb CommandBuffer) *halCommands {
	c := d.commands[cb]
	if c == nil {
		return &halCommands{}
	}
	if !c.recording {
		c.fail(errNotRecording)
	}
	return c
}

func (d *HALDriver) BeginCommandBuffer(cb CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.commands[cb]
	if !ok {
		return fmt.Errorf("command buffer %d: %w", cb, errUnknown)
	}
	if err := c.encoder.BeginEncoding("fill"); err != nil {
		return err
	}
	c.recording = true
	return nil
}

func (d *HALDriver) EndCommandBuffer(cb CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.commands[cb]
	if !ok {
		return fmt.Errorf("command buffer %d: %w", cb, errUnknown)
	}
	if c.err != nil {
		return c.err
	}
	buf, err := c.encoder.EndEncoding()
	c.recording = false
	if err != nil {
		return err
	}
	c.buffer = buf
	return nil
}

// CmdUpdateBuffer writes data through the queue. Scratch buffers are only
// reused after the submission reading them completed, so the write cannot
// race the GPU.
func (d *HALDriver) CmdUpdateBuffer(cb CommandBuffer, dst Buffer, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.recording(cb)
	hb, ok := d.buffers[dst]
	if !ok {
		c.fail(fmt.Errorf("buffer %d: %w", dst, errUnknown))
		return
	}
	if err := d.queue.WriteBuffer(hb.buffer, 0, data); err != nil {
		c.fail(err)
	}
}

func bufferUsage(a Access) gputypes.BufferUsage {
	switch a {
	case AccessTransferWrite:
		return gputypes.BufferUsageCopyDst
	case AccessShaderRead:
		return gputypes.BufferUsageUniform
	}
	return gputypes.BufferUsageNone
}

func textureUsage(a Access) gputypes.TextureUsage {
	if a == AccessColorAttachmentWrite {
		return gputypes.TextureUsageRenderAttachment
	}
	return gputypes.TextureUsageNone
}

// CmdPipelineBarrier records buffer and texture transitions. Transitions
// to AccessPresent are left to Queue.Present.
func (d *HALDriver) CmdPipelineBarrier(cb CommandBuffer, b *Barriers) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.recording(cb)
	if c.err != nil {
		return
	}
	if len(b.Buffers) > 0 {
		barriers := make([]hal.BufferBarrier, 0, len(b.Buffers))
		for _, bb := range b.Buffers {
			hb, ok := d.buffers[bb.Buffer]
			if !ok {
				c.fail(fmt.Errorf("buffer %d: %w", bb.Buffer, errUnknown))
				return
			}
			barriers = append(barriers, hal.BufferBarrier{
				Buffer: hb.buffer,
				Usage: hal.BufferUsageTransition{
					OldUsage: bufferUsage(bb.Src),
					NewUsage: bufferUsage(bb.Dst),
				},
			})
		}
		c.encoder.TransitionBuffers(barriers)
	}
	var textures []hal.TextureBarrier
	for _, ib := range b.Images {
		if ib.Dst == AccessPresent {
			continue
		}
		hi, ok := d.images[ib.Image]
		if !ok || hi.texture == nil {
			c.fail(fmt.Errorf("image %d: %w", ib.Image, errNotAcquired))
			return
		}
		textures = append(textures, hal.TextureBarrier{
			Texture: hi.texture,
			Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll},
			Usage: hal.TextureUsageTransition{
				OldUsage: textureUsage(ib.Src),
				NewUsage: textureUsage(ib.Dst),
			},
		})
	}
	if len(textures) > 0 {
		c.encoder.TransitionTextures(textures)
	}
}

func (d *HALDriver) CmdBeginRendering(cb CommandBuffer, info *RenderingInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.recording(cb)
	if c.err != nil {
		return
	}
	v, ok := d.views[info.View]
	if !ok {
		c.fail(fmt.Errorf("image view %d: %w", info.View, errUnknown))
		return
	}
	hi, ok := d.images[v.image]
	if !ok || hi.texture == nil {
		c.fail(fmt.Errorf("image %d: %w", v.image, errNotAcquired))
		return
	}
	view, err := d.device.CreateTextureView(hi.texture, &hal.TextureViewDescriptor{
		Label:     "swapchain",
		Format:    v.format,
		Dimension: gputypes.TextureViewDimension2D,
		Aspect:    gputypes.TextureAspectAll,
	})
	if err != nil {
		c.fail(err)
		return
	}
	c.views = append(c.views, view)
	c.pass = c.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "fill",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: info.Clear,
		}},
	})
	c.pass.SetViewport(0, 0, float32(info.Width), float32(info.Height), 0, 1)
	c.pass.SetScissorRect(0, 0, info.Width, info.Height)
}

func (d *HALDriver) CmdBindPipeline(cb CommandBuffer, p Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.recording(cb)
	if c.err != nil || c.pass == nil {
		return
	}
	hp, ok := d.pipelines[p]
	if !ok {
		c.fail(fmt.Errorf("pipeline %d: %w", p, errUnknown))
		return
	}
	c.pass.SetPipeline(hp.pipeline)
}

func (d *HALDriver) CmdPushAddress(cb CommandBuffer, _ Pipeline, address uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.recording(cb)
	if c.err != nil || c.pass == nil {
		return
	}
	hb, ok := d.buffers[Buffer(address)]
	if !ok {
		c.fail(fmt.Errorf("buffer address %#x: %w", address, errUnknown))
		return
	}
	c.pass.SetBindGroup(0, hb.group, nil)
}

func (d *HALDriver) CmdDraw(cb CommandBuffer, vertexCount, instanceCount uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.recording(cb)
	if c.err != nil || c.pass == nil {
		return
	}
	c.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (d *HALDriver) CmdEndRendering(cb CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.recording(cb)
	if c.pass == nil {
		return
	}
	c.pass.End()
	c.pass = nil
}

func (d *HALDriver) Submit(info *SubmitInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.commands[info.CommandBuffer]
	if !ok || c.buffer == nil {
		return fmt.Errorf("command buffer %d: %w", info.CommandBuffer, errUnknown)
	}
	idx, err := d.queue.Submit([]hal.CommandBuffer{c.buffer})
	if err != nil {
		return err
	}
	d.lastSubmission = idx
	if _, ok := d.fences[info.Fence]; ok {
		d.fences[info.Fence] = idx
	}
	return nil
}

// Present presents the image and detaches its surface texture. The
// present fence completes together with the latest submission.
func (d *HALDriver) Present(info *PresentInfo) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sc, ok := d.swapchains[info.Swapchain]
	if !ok || int(info.Image) >= len(sc.images) {
		return false, fmt.Errorf("swapchain %d: %w", info.Swapchain, errUnknown)
	}
	hi := d.images[sc.images[info.Image]]
	if hi.texture == nil {
		return false, errNotAcquired
	}
	hs := d.surfaces[sc.surface]
	tex := hi.texture
	hi.texture = nil
	if err := d.queue.Present(hs.surface, tex, nil); err != nil {
		if errors.Is(err, hal.ErrSurfaceOutdated) || errors.Is(err, hal.ErrSurfaceLost) {
			return false, fmt.Errorf("%w: %w", ErrSwapchainOutOfDate, err)
		}
		return false, err
	}
	if _, ok := d.fences[info.Fence]; ok {
		d.fences[info.Fence] = d.lastSubmission
	}
	return false, nil
}

var _ Driver = (*HALDriver)(nil)
