package gpu

import (
	"time"

	"github.com/gogpu/gputypes"
)

// Opaque driver handles. The zero value is the null handle.
type (
	CommandPool   uint64
	CommandBuffer uint64
	ShaderModule  uint64
	Pipeline      uint64
	Buffer        uint64
	SurfaceHandle uint64
	Swapchain     uint64
	Image         uint64
	ImageView     uint64
	Semaphore     uint64
	Fence         uint64
)

// ShaderStage selects the stage a shader module is compiled for.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
)

// AdapterInfo describes a physical device.
type AdapterInfo struct {
	Name          string
	Type          gputypes.DeviceType
	QueueFamilies []QueueFamily
}

// QueueFamily describes one queue family of an adapter.
type QueueFamily struct {
	Graphics bool
}

// PipelineDesc describes the fill pipeline.
type PipelineDesc struct {
	Vertex, Fragment ShaderModule
	Format           gputypes.TextureFormat
	Blend            gputypes.BlendState
	Topology         gputypes.PrimitiveTopology
	// ParamsSize is the size of the per-draw parameter block.
	ParamsSize uint64
}

// SurfaceTarget identifies a native window.
type SurfaceTarget struct {
	Display, Window uintptr
}

// SwapchainDesc describes a swapchain.
type SwapchainDesc struct {
	Surface       SurfaceHandle
	Width, Height uint32
	Format        gputypes.TextureFormat
	MinImages     uint32
	PresentMode   gputypes.PresentMode
	AlphaMode     gputypes.CompositeAlphaMode
	// Old is the swapchain being replaced, if any.
	Old Swapchain
}

// Access is a pipeline stage and access combination used in barriers.
type Access uint8

const (
	AccessNone Access = iota
	AccessTransferWrite
	AccessShaderRead
	AccessColorAttachmentWrite
	AccessPresent
)

// BufferBarrier orders a buffer access after an earlier one.
type BufferBarrier struct {
	Buffer   Buffer
	Src, Dst Access
}

// ImageBarrier transitions an image between accesses.
type ImageBarrier struct {
	Image    Image
	Src, Dst Access
}

// Barriers is one pipeline barrier.
type Barriers struct {
	Buffers []BufferBarrier
	Images  []ImageBarrier
}

// RenderingInfo describes a render pass over a single color attachment.
type RenderingInfo struct {
	View          ImageView
	Width, Height uint32
	Clear         gputypes.Color
}

// SubmitInfo describes a queue submission.
type SubmitInfo struct {
	CommandBuffer CommandBuffer
	// Wait is waited on at the color attachment output stage.
	Wait   Semaphore
	Signal Semaphore
	Fence  Fence
}

// PresentInfo describes a present request.
type PresentInfo struct {
	Swapchain Swapchain
	Image     uint32
	Wait      Semaphore
	// Fence signals once the presentation engine no longer uses Wait.
	Fence Fence
}

// Driver is the explicit synchronization GPU API the device and surfaces
// are written against.
//
// Destroy and Free methods ignore null handles. Cmd methods record into a
// command buffer between BeginCommandBuffer and EndCommandBuffer and report
// errors at EndCommandBuffer.
type Driver interface {
	Adapters() ([]AdapterInfo, error)
	OpenDevice(adapter, queueFamily int) error
	WaitIdle() error
	// Destroy destroys the device and the instance.
	Destroy()

	CreateCommandPool() (CommandPool, error)
	DestroyCommandPool(CommandPool)
	AllocateCommandBuffer(CommandPool) (CommandBuffer, error)
	FreeCommandBuffer(CommandPool, CommandBuffer)

	CompileShader(stage ShaderStage, label, wgsl string) (ShaderModule, error)
	DestroyShaderModule(ShaderModule)
	CreatePipeline(desc *PipelineDesc) (Pipeline, error)
	DestroyPipeline(Pipeline)

	CreateBuffer(size uint64) (Buffer, error)
	// BufferAddress returns the address the shader uses to reach the buffer.
	BufferAddress(Buffer) (uint64, error)
	DestroyBuffer(Buffer)

	CreateSurface(SurfaceTarget) (SurfaceHandle, error)
	SurfaceFormats(SurfaceHandle) ([]gputypes.TextureFormat, error)
	DestroySurface(SurfaceHandle)
	CreateSwapchain(desc *SwapchainDesc) (Swapchain, error)
	SwapchainImages(Swapchain) ([]Image, error)
	DestroySwapchain(Swapchain)
	CreateImageView(Image, gputypes.TextureFormat) (ImageView, error)
	DestroyImageView(ImageView)
	AcquireNextImage(sc Swapchain, signal Semaphore, timeout time.Duration) (index uint32, suboptimal bool, err error)

	CreateSemaphore() (Semaphore, error)
	DestroySemaphore(Semaphore)
	CreateFence() (Fence, error)
	// FenceStatus reports whether the fence has signaled without blocking.
	FenceStatus(Fence) (bool, error)
	DestroyFence(Fence)

	BeginCommandBuffer(CommandBuffer) error
	EndCommandBuffer(CommandBuffer) error
	CmdUpdateBuffer(cb CommandBuffer, dst Buffer, data []byte)
	CmdPipelineBarrier(cb CommandBuffer, b *Barriers)
	CmdBeginRendering(cb CommandBuffer, info *RenderingInfo)
	CmdBindPipeline(cb CommandBuffer, p Pipeline)
	// CmdPushAddress passes a buffer address to the draws that follow.
	CmdPushAddress(cb CommandBuffer, p Pipeline, address uint64)
	CmdDraw(cb CommandBuffer, vertexCount, instanceCount uint32)
	CmdEndRendering(cb CommandBuffer)

	Submit(info *SubmitInfo) error
	Present(info *PresentInfo) (suboptimal bool, err error)
}
