// Package gputest provides an in-memory gpu.Driver for tests.
//
// The fake records what is drawn, counts live objects and detects misuse
// such as double destruction or recording outside a command buffer.
// Fences signal only when the test calls Complete or WaitIdle runs.
package gputest

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/mahkoh/wayland-color-test/internal/gpu"
)

// Object kinds counted by Live.
const (
	KindCommandPool   = "command pool"
	KindCommandBuffer = "command buffer"
	KindShader        = "shader module"
	KindPipeline      = "pipeline"
	KindBuffer        = "buffer"
	KindSurface       = "surface"
	KindSwapchain     = "swapchain"
	KindImageView     = "image view"
	KindSemaphore     = "semaphore"
	KindFence         = "fence"
)

// ErrInjected is the default error returned by failing methods.
var ErrInjected = errors.New("gputest: injected failure")

// Frame is one submitted command buffer.
type Frame struct {
	Width, Height uint32
	Image         uint32
	// Draws holds the parameter block of every draw in order.
	Draws []gpu.FillParams
	// Pipelines counts CmdBindPipeline calls.
	Pipelines int
	// Vertices holds the vertex count of every draw.
	Vertices []uint32
}

type recording struct {
	begun, ended bool
	rendering    bool
	pipeline     bool
	address      uint64
	frame        Frame
	err          error
}

type swapchain struct {
	surface gpu.SurfaceHandle
	desc    gpu.SwapchainDesc
	images  []gpu.Image
	next    uint32
}

// Driver is a fake gpu.Driver.
//
// The zero value is not usable; use New.
type Driver struct {
	mu sync.Mutex

	// AdapterList is returned by Adapters.
	AdapterList []gpu.AdapterInfo
	// Formats is returned by SurfaceFormats.
	Formats []gputypes.TextureFormat
	// SuboptimalAcquire and SuboptimalPresent are reported by
	// AcquireNextImage and Present.
	SuboptimalAcquire bool
	SuboptimalPresent bool
	// Images is the number of images of new swapchains. Zero uses the
	// requested minimum.
	Images int

	nextID    uint64
	live      map[string]map[uint64]bool
	fail      map[string]error
	failNth   map[string]*countdown
	misuse    []error
	calls     []string
	pending   []gpu.Fence
	signaled  map[gpu.Fence]bool
	commands  map[gpu.CommandBuffer]*recording
	buffers   map[gpu.Buffer][]byte
	swapchain map[gpu.Swapchain]*swapchain
	frames    []Frame
	opened    bool
	destroyed bool
	swapDescs []gpu.SwapchainDesc
}

// New returns a driver with one adapter that has a graphics queue and
// surfaces that support RGBA16F.
func New() *Driver {
	return &Driver{
		AdapterList: []gpu.AdapterInfo{{
			Name:          "Fake Adapter",
			Type:          gputypes.DeviceTypeCPU,
			QueueFamilies: []gpu.QueueFamily{{Graphics: false}, {Graphics: true}},
		}},
		Formats:   []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA16Float},
		live:      make(map[string]map[uint64]bool),
		fail:      make(map[string]error),
		failNth:   make(map[string]*countdown),
		signaled:  make(map[gpu.Fence]bool),
		commands:  make(map[gpu.CommandBuffer]*recording),
		buffers:   make(map[gpu.Buffer][]byte),
		swapchain: make(map[gpu.Swapchain]*swapchain),
	}
}

// Fail makes the named method fail with err, or ErrInjected if err is
// nil, until it is healed.
func (d *Driver) Fail(method string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	d.fail[method] = err
}

type countdown struct {
	skip int
	err  error
}

// FailNth makes the n-th next call of the named method fail with err, or
// ErrInjected if err is nil. The calls before and after it succeed.
func (d *Driver) FailNth(method string, n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	d.failNth[method] = &countdown{skip: max(n-1, 0), err: err}
}

// Heal removes the injected failures of the named methods, or of every
// method if none is named.
func (d *Driver) Heal(methods ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(methods) == 0 {
		clear(d.fail)
		clear(d.failNth)
		return
	}
	for _, m := range methods {
		delete(d.fail, m)
		delete(d.failNth, m)
	}
}

func (d *Driver) call(method string) error {
	d.calls = append(d.calls, method)
	if c, ok := d.failNth[method]; ok {
		if c.skip == 0 {
			delete(d.failNth, method)
			return c.err
		}
		c.skip--
	}
	return d.fail[method]
}

func (d *Driver) create(kind string) uint64 {
	d.nextID++
	m := d.live[kind]
	if m == nil {
		m = make(map[uint64]bool)
		d.live[kind] = m
	}
	m[d.nextID] = true
	return d.nextID
}

func (d *Driver) destroy(kind string, id uint64) {
	if id == 0 {
		return
	}
	if !d.live[kind][id] {
		d.misuse = append(d.misuse, fmt.Errorf("%s %d destroyed but not alive", kind, id))
		return
	}
	delete(d.live[kind], id)
}

func (d *Driver) alive(kind string, id uint64) bool {
	return d.live[kind][id]
}

// Live returns the number of live objects of a kind.
func (d *Driver) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live[kind])
}

// LiveTotal returns the number of live objects of all kinds.
func (d *Driver) LiveTotal() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int
	for _, m := range d.live {
		n += len(m)
	}
	return n
}

// Misuse returns every API misuse detected so far.
func (d *Driver) Misuse() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.misuse)
}

// Calls returns the names of all methods called so far, in order.
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}

// Count returns how often the named method was called.
func (d *Driver) Count(method string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int
	for _, c := range d.calls {
		if c == method {
			n++
		}
	}
	return n
}

// Frames returns every submitted frame.
func (d *Driver) Frames() []Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.frames)
}

// LastFrame returns the most recently submitted frame.
func (d *Driver) LastFrame() (Frame, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.frames) == 0 {
		return Frame{}, false
	}
	return d.frames[len(d.frames)-1], true
}

// Swapchains returns the descriptors of every created swapchain.
func (d *Driver) Swapchains() []gpu.SwapchainDesc {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.swapDescs)
}

// Destroyed reports whether Destroy was called.
func (d *Driver) Destroyed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed
}

// Complete signals every fence handed to Submit or Present so far.
func (d *Driver) Complete() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.complete()
}

func (d *Driver) complete() {
	for _, f := range d.pending {
		d.signaled[f] = true
	}
	d.pending = d.pending[:0]
}

func (d *Driver) Adapters() ([]gpu.AdapterInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("Adapters"); err != nil {
		return nil, err
	}
	return slices.Clone(d.AdapterList), nil
}

func (d *Driver) OpenDevice(adapter, queueFamily int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("OpenDevice"); err != nil {
		return err
	}
	if adapter < 0 || adapter >= len(d.AdapterList) {
		return fmt.Errorf("gputest: no adapter %d", adapter)
	}
	fams := d.AdapterList[adapter].QueueFamilies
	if queueFamily < 0 || queueFamily >= len(fams) || !fams[queueFamily].Graphics {
		d.misuse = append(d.misuse, fmt.Errorf("queue family %d has no graphics support", queueFamily))
	}
	d.opened = true
	return nil
}

// WaitIdle signals every pending fence.
func (d *Driver) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("WaitIdle"); err != nil {
		return err
	}
	d.complete()
	return nil
}

func (d *Driver) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("Destroy")
	if d.destroyed {
		d.misuse = append(d.misuse, errors.New("driver destroyed twice"))
	}
	d.destroyed = true
}

func (d *Driver) CreateCommandPool() (gpu.CommandPool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreateCommandPool"); err != nil {
		return 0, err
	}
	if !d.opened {
		d.misuse = append(d.misuse, errors.New("command pool created before the device was opened"))
	}
	return gpu.CommandPool(d.create(KindCommandPool)), nil
}

func (d *Driver) DestroyCommandPool(p gpu.CommandPool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyCommandPool")
	if len(d.live[KindCommandBuffer]) > 0 {
		d.misuse = append(d.misuse, errors.New("command pool destroyed with live command buffers"))
	}
	d.destroy(KindCommandPool, uint64(p))
}

func (d *Driver) AllocateCommandBuffer(p gpu.CommandPool) (gpu.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("AllocateCommandBuffer"); err != nil {
		return 0, err
	}
	if !d.alive(KindCommandPool, uint64(p)) {
		return 0, fmt.Errorf("gputest: command pool %d not alive", p)
	}
	cb := gpu.CommandBuffer(d.create(KindCommandBuffer))
	d.commands[cb] = &recording{}
	return cb, nil
}

func (d *Driver) FreeCommandBuffer(_ gpu.CommandPool, cb gpu.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("FreeCommandBuffer")
	d.destroy(KindCommandBuffer, uint64(cb))
	delete(d.commands, cb)
}

func (d *Driver) CompileShader(_ gpu.ShaderStage, label, wgsl string) (gpu.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CompileShader"); err != nil {
		return 0, err
	}
	if wgsl == "" {
		return 0, fmt.Errorf("gputest: empty shader %q", label)
	}
	return gpu.ShaderModule(d.create(KindShader)), nil
}

func (d *Driver) DestroyShaderModule(m gpu.ShaderModule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyShaderModule")
	d.destroy(KindShader, uint64(m))
}

func (d *Driver) CreatePipeline(desc *gpu.PipelineDesc) (gpu.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreatePipeline"); err != nil {
		return 0, err
	}
	if !d.alive(KindShader, uint64(desc.Vertex)) || !d.alive(KindShader, uint64(desc.Fragment)) {
		return 0, errors.New("gputest: pipeline shaders not alive")
	}
	return gpu.Pipeline(d.create(KindPipeline)), nil
}

func (d *Driver) DestroyPipeline(p gpu.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyPipeline")
	d.destroy(KindPipeline, uint64(p))
}

func (d *Driver) CreateBuffer(size uint64) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreateBuffer"); err != nil {
		return 0, err
	}
	b := gpu.Buffer(d.create(KindBuffer))
	d.buffers[b] = make([]byte, size)
	return b, nil
}

// BufferAddress returns a fake address derived from the handle.
func (d *Driver) BufferAddress(b gpu.Buffer) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("BufferAddress"); err != nil {
		return 0, err
	}
	if !d.alive(KindBuffer, uint64(b)) {
		return 0, fmt.Errorf("gputest: buffer %d not alive", b)
	}
	return uint64(b) << 16, nil
}

func (d *Driver) DestroyBuffer(b gpu.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyBuffer")
	d.destroy(KindBuffer, uint64(b))
	delete(d.buffers, b)
}

func (d *Driver) CreateSurface(gpu.SurfaceTarget) (gpu.SurfaceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreateSurface"); err != nil {
		return 0, err
	}
	return gpu.SurfaceHandle(d.create(KindSurface)), nil
}

func (d *Driver) SurfaceFormats(gpu.SurfaceHandle) ([]gputypes.TextureFormat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("SurfaceFormats"); err != nil {
		return nil, err
	}
	return slices.Clone(d.Formats), nil
}

func (d *Driver) DestroySurface(s gpu.SurfaceHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroySurface")
	d.destroy(KindSurface, uint64(s))
}

func (d *Driver) CreateSwapchain(desc *gpu.SwapchainDesc) (gpu.Swapchain, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreateSwapchain"); err != nil {
		return 0, err
	}
	if !d.alive(KindSurface, uint64(desc.Surface)) {
		return 0, fmt.Errorf("gputest: surface %d not alive", desc.Surface)
	}
	if desc.Old != 0 && !d.alive(KindSwapchain, uint64(desc.Old)) {
		d.misuse = append(d.misuse, fmt.Errorf("old swapchain %d not alive", desc.Old))
	}
	n := d.Images
	if n == 0 {
		n = int(desc.MinImages)
	}
	sc := &swapchain{surface: desc.Surface, desc: *desc}
	for range n {
		d.nextID++
		sc.images = append(sc.images, gpu.Image(d.nextID))
	}
	id := gpu.Swapchain(d.create(KindSwapchain))
	d.swapchain[id] = sc
	d.swapDescs = append(d.swapDescs, *desc)
	return id, nil
}

func (d *Driver) SwapchainImages(s gpu.Swapchain) ([]gpu.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("SwapchainImages"); err != nil {
		return nil, err
	}
	sc, ok := d.swapchain[s]
	if !ok {
		return nil, fmt.Errorf("gputest: swapchain %d not alive", s)
	}
	return slices.Clone(sc.images), nil
}

func (d *Driver) DestroySwapchain(s gpu.Swapchain) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroySwapchain")
	d.destroy(KindSwapchain, uint64(s))
	delete(d.swapchain, s)
}

func (d *Driver) CreateImageView(gpu.Image, gputypes.TextureFormat) (gpu.ImageView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreateImageView"); err != nil {
		return 0, err
	}
	return gpu.ImageView(d.create(KindImageView)), nil
}

func (d *Driver) DestroyImageView(v gpu.ImageView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyImageView")
	d.destroy(KindImageView, uint64(v))
}

func (d *Driver) AcquireNextImage(s gpu.Swapchain, signal gpu.Semaphore, _ time.Duration) (uint32, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("AcquireNextImage"); err != nil {
		return 0, false, err
	}
	sc, ok := d.swapchain[s]
	if !ok {
		return 0, false, fmt.Errorf("gputest: swapchain %d not alive", s)
	}
	if !d.alive(KindSemaphore, uint64(signal)) {
		d.misuse = append(d.misuse, fmt.Errorf("acquire signals dead semaphore %d", signal))
	}
	idx := sc.next
	sc.next = (sc.next + 1) % uint32(len(sc.images))
	return idx, d.SuboptimalAcquire, nil
}

func (d *Driver) CreateSemaphore() (gpu.Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreateSemaphore"); err != nil {
		return 0, err
	}
	return gpu.Semaphore(d.create(KindSemaphore)), nil
}

func (d *Driver) DestroySemaphore(s gpu.Semaphore) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroySemaphore")
	d.destroy(KindSemaphore, uint64(s))
}

func (d *Driver) CreateFence() (gpu.Fence, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("CreateFence"); err != nil {
		return 0, err
	}
	return gpu.Fence(d.create(KindFence)), nil
}

func (d *Driver) FenceStatus(f gpu.Fence) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("FenceStatus"); err != nil {
		return false, err
	}
	if !d.alive(KindFence, uint64(f)) {
		return false, fmt.Errorf("gputest: fence %d not alive", f)
	}
	return d.signaled[f], nil
}

func (d *Driver) DestroyFence(f gpu.Fence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("DestroyFence")
	if d.alive(KindFence, uint64(f)) && slices.Contains(d.pending, f) {
		d.misuse = append(d.misuse, fmt.Errorf("fence %d destroyed while pending", f))
	}
	d.destroy(KindFence, uint64(f))
	delete(d.signaled, f)
}

func (d *Driver) rec(cb gpu.CommandBuffer) *recording {
	r := d.commands[cb]
	if r == nil {
		d.misuse = append(d.misuse, fmt.Errorf("command buffer %d not alive", cb))
		return &recording{}
	}
	if !r.begun || r.ended {
		if r.err == nil {
			r.err = fmt.Errorf("gputest: command buffer %d not recording", cb)
		}
	}
	return r
}

func (d *Driver) BeginCommandBuffer(cb gpu.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("BeginCommandBuffer"); err != nil {
		return err
	}
	r := d.commands[cb]
	if r == nil {
		return fmt.Errorf("gputest: command buffer %d not alive", cb)
	}
	r.begun = true
	return nil
}

func (d *Driver) EndCommandBuffer(cb gpu.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("EndCommandBuffer"); err != nil {
		return err
	}
	r := d.rec(cb)
	if r.rendering {
		r.err = errors.New("gputest: command buffer ended inside rendering")
	}
	r.ended = true
	return r.err
}

func (d *Driver) CmdUpdateBuffer(cb gpu.CommandBuffer, dst gpu.Buffer, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("CmdUpdateBuffer")
	r := d.rec(cb)
	buf, ok := d.buffers[dst]
	if !ok {
		r.err = fmt.Errorf("gputest: buffer %d not alive", dst)
		return
	}
	if r.rendering {
		r.err = errors.New("gputest: buffer update inside rendering")
	}
	copy(buf, data)
}

func (d *Driver) CmdPipelineBarrier(cb gpu.CommandBuffer, _ *gpu.Barriers) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("CmdPipelineBarrier")
	d.rec(cb)
}

func (d *Driver) CmdBeginRendering(cb gpu.CommandBuffer, info *gpu.RenderingInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("CmdBeginRendering")
	r := d.rec(cb)
	if !d.alive(KindImageView, uint64(info.View)) {
		r.err = fmt.Errorf("gputest: image view %d not alive", info.View)
	}
	r.rendering = true
	r.frame.Width, r.frame.Height = info.Width, info.Height
}

func (d *Driver) CmdBindPipeline(cb gpu.CommandBuffer, p gpu.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("CmdBindPipeline")
	r := d.rec(cb)
	if !d.alive(KindPipeline, uint64(p)) {
		r.err = fmt.Errorf("gputest: pipeline %d not alive", p)
	}
	r.pipeline = true
	r.frame.Pipelines++
}

func (d *Driver) CmdPushAddress(cb gpu.CommandBuffer, _ gpu.Pipeline, address uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("CmdPushAddress")
	r := d.rec(cb)
	r.address = address
}

// CmdDraw decodes the parameter block at the pushed address.
func (d *Driver) CmdDraw(cb gpu.CommandBuffer, vertexCount, _ uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("CmdDraw")
	r := d.rec(cb)
	if !r.rendering || !r.pipeline {
		r.err = errors.New("gputest: draw outside rendering or without pipeline")
		return
	}
	buf, ok := d.buffers[gpu.Buffer(r.address>>16)]
	if !ok {
		r.err = fmt.Errorf("gputest: draw with dangling address %#x", r.address)
		return
	}
	p, err := gpu.UnmarshalFillParams(buf)
	if err != nil {
		r.err = err
		return
	}
	r.frame.Draws = append(r.frame.Draws, p)
	r.frame.Vertices = append(r.frame.Vertices, vertexCount)
}

func (d *Driver) CmdEndRendering(cb gpu.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.call("CmdEndRendering")
	r := d.rec(cb)
	r.rendering = false
}

func (d *Driver) Submit(info *gpu.SubmitInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("Submit"); err != nil {
		return err
	}
	r := d.commands[info.CommandBuffer]
	if r == nil || !r.ended {
		return fmt.Errorf("gputest: command buffer %d not executable", info.CommandBuffer)
	}
	for _, s := range []gpu.Semaphore{info.Wait, info.Signal} {
		if !d.alive(KindSemaphore, uint64(s)) {
			d.misuse = append(d.misuse, fmt.Errorf("submit uses dead semaphore %d", s))
		}
	}
	if !d.alive(KindFence, uint64(info.Fence)) {
		d.misuse = append(d.misuse, fmt.Errorf("submit signals dead fence %d", info.Fence))
	}
	d.pending = append(d.pending, info.Fence)
	d.frames = append(d.frames, r.frame)
	return nil
}

func (d *Driver) Present(info *gpu.PresentInfo) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("Present"); err != nil {
		return false, err
	}
	if _, ok := d.swapchain[info.Swapchain]; !ok {
		return false, fmt.Errorf("gputest: swapchain %d not alive", info.Swapchain)
	}
	if !d.alive(KindSemaphore, uint64(info.Wait)) {
		d.misuse = append(d.misuse, fmt.Errorf("present waits on dead semaphore %d", info.Wait))
	}
	if len(d.frames) > 0 {
		d.frames[len(d.frames)-1].Image = info.Image
	}
	d.pending = append(d.pending, info.Fence)
	return d.SuboptimalPresent, nil
}

var _ gpu.Driver = (*Driver)(nil)
