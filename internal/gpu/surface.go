package gpu

import (
	"errors"
	"log/slog"

	"github.com/mahkoh/wayland-color-test/cmm"
	"github.com/mahkoh/wayland-color-test/scene"
)

// Surface renders draws into the swapchain of a native window.
//
// A Surface is not safe for concurrent use. It keeps its Device alive
// until Destroy.
type Surface struct {
	dev    *Device
	drv    Driver
	handle SurfaceHandle

	swapchain *swapchain
	// stale is set when acquire or present report a suboptimal swapchain.
	stale bool

	submissions   fifo[*submission]
	presentations fifo[*presentation]
	// buffers are idle scratch buffers.
	buffers []*scratchBuffer

	destroyed bool
}

type swapchain struct {
	handle        Swapchain
	width, height uint32
	images        []Image
	views         []ImageView
}

func (sc *swapchain) destroy(drv Driver) {
	for _, v := range sc.views {
		drv.DestroyImageView(v)
	}
	drv.DestroySwapchain(sc.handle)
}

// ownedSemaphore is a semaphore with exactly one owner.
type ownedSemaphore struct {
	sem Semaphore
}

// take moves the semaphore out of o.
func (o *ownedSemaphore) take() ownedSemaphore {
	s := *o
	o.sem = 0
	return s
}

func (o *ownedSemaphore) destroy(drv Driver) {
	if o.sem != 0 {
		drv.DestroySemaphore(o.sem)
		o.sem = 0
	}
}

// submission is a command buffer in flight together with everything it
// references.
type submission struct {
	cmd     CommandBuffer
	acquire Semaphore
	// release is moved to the presentation once the present was queued.
	release ownedSemaphore
	fence   Fence
	buffers []*scratchBuffer
}

// presentation is a queued present waiting on the release semaphore.
type presentation struct {
	release ownedSemaphore
	fence   Fence
}

// SurfaceStats is a snapshot of the resources a surface holds.
type SurfaceStats struct {
	Width, Height  uint32
	Submissions    int
	Presentations  int
	PooledBuffers  int
	SwapchainStale bool
}

// Stats returns the resources s currently holds.
func (s *Surface) Stats() SurfaceStats {
	st := SurfaceStats{
		Submissions:    s.submissions.len(),
		Presentations:  s.presentations.len(),
		PooledBuffers:  len(s.buffers),
		SwapchainStale: s.stale,
	}
	if s.swapchain != nil {
		st.Width, st.Height = s.swapchain.width, s.swapchain.height
	}
	return st
}

// gc reclaims completed submissions and presentations in order. With force
// set every entry is reclaimed; the caller must have waited for the device
// to become idle.
func (s *Surface) gc(force bool) error {
	var freed int
	for s.submissions.len() > 0 {
		sub := s.submissions.front()
		if !force {
			done, err := s.drv.FenceStatus(sub.fence)
			if err != nil {
				return opError(OpFenceStatus, err)
			}
			if !done {
				break
			}
		}
		s.submissions.pop()
		s.drv.FreeCommandBuffer(s.dev.cmdPool, sub.cmd)
		s.drv.DestroySemaphore(sub.acquire)
		sub.release.destroy(s.drv)
		s.drv.DestroyFence(sub.fence)
		s.buffers = append(s.buffers, sub.buffers...)
		freed++
	}
	for s.presentations.len() > 0 {
		p := s.presentations.front()
		if !force {
			done, err := s.drv.FenceStatus(p.fence)
			if err != nil {
				return opError(OpFenceStatus, err)
			}
			if !done {
				break
			}
		}
		s.presentations.pop()
		p.release.destroy(s.drv)
		s.drv.DestroyFence(p.fence)
		freed++
	}
	if freed > 0 {
		s.dev.log().Debug("gpu: reclaimed frame resources", slog.Int("count", freed))
	}
	return nil
}

// ensureSwapchain recreates the swapchain if the size changed or the
// current one was reported suboptimal.
func (s *Surface) ensureSwapchain(width, height uint32) error {
	old := s.swapchain
	if old != nil && !s.stale && old.width == width && old.height == height {
		return nil
	}
	desc := SwapchainDesc{
		Surface:     s.handle,
		Width:       width,
		Height:      height,
		Format:      SwapchainFormat,
		MinImages:   s.dev.opts.swapchainImages,
		PresentMode: s.dev.opts.presentMode,
		AlphaMode:   s.dev.opts.alphaMode,
	}
	if old != nil {
		if err := s.drv.WaitIdle(); err != nil {
			return opError(OpWaitIdle, err)
		}
		desc.Old = old.handle
	}
	handle, err := s.drv.CreateSwapchain(&desc)
	if err != nil {
		return opError(OpCreateSwapchain, err)
	}
	if old != nil {
		old.destroy(s.drv)
		s.swapchain = nil
	}

	var rb rollback
	defer rb.run()
	rb.add(func() { s.drv.DestroySwapchain(handle) })

	images, err := s.drv.SwapchainImages(handle)
	if err != nil {
		return opError(OpSwapchainImages, err)
	}
	views := make([]ImageView, 0, len(images))
	for _, img := range images {
		v, err := s.drv.CreateImageView(img, SwapchainFormat)
		if err != nil {
			return opError(OpCreateImageView, err)
		}
		rb.add(func() { s.drv.DestroyImageView(v) })
		views = append(views, v)
	}
	rb.discard()

	s.swapchain = &swapchain{
		handle: handle,
		width:  width,
		height: height,
		images: images,
		views:  views,
	}
	s.stale = false
	s.dev.log().Debug("gpu: swapchain created",
		slog.Uint64("width", uint64(width)),
		slog.Uint64("height", uint64(height)),
		slog.Int("images", len(images)))
	return nil
}

func (s *Surface) scratchBuffer() (*scratchBuffer, error) {
	if n := len(s.buffers); n > 0 {
		b := s.buffers[n-1]
		s.buffers[n-1] = nil
		s.buffers = s.buffers[:n-1]
		return b, nil
	}
	return s.dev.newScratchBuffer()
}

// Render draws d into the next swapchain image at the given size and
// presents it. The rectangles of d are drawn in order, each with its own
// parameter block carrying m and tf.
//
// On error nothing new is left in flight except, when only the present
// failed, the submission that already reached the queue.
func (s *Surface) Render(width, height uint32, d scene.Draw, m cmm.Matrix[cmm.Local, cmm.LMS], tf cmm.TransferFunction) error {
	if s.destroyed {
		return ErrSurfaceDestroyed
	}
	if err := s.gc(false); err != nil {
		return err
	}
	if err := s.ensureSwapchain(width, height); err != nil {
		return err
	}
	sc := s.swapchain

	var rb rollback
	defer rb.run()

	acquire, err := s.drv.CreateSemaphore()
	if err != nil {
		return opError(OpCreateSemaphore, err)
	}
	rb.add(func() { s.drv.DestroySemaphore(acquire) })

	release, err := s.drv.CreateSemaphore()
	if err != nil {
		return opError(OpCreateSemaphore, err)
	}
	rb.add(func() { s.drv.DestroySemaphore(release) })

	fence, err := s.drv.CreateFence()
	if err != nil {
		return opError(OpCreateFence, err)
	}
	rb.add(func() { s.drv.DestroyFence(fence) })

	presentFence, err := s.drv.CreateFence()
	if err != nil {
		return opError(OpCreateFence, err)
	}
	rb.add(func() { s.drv.DestroyFence(presentFence) })

	idx, suboptimal, err := s.drv.AcquireNextImage(sc.handle, acquire, s.dev.opts.acquireTimeout)
	if err != nil {
		if errors.Is(err, ErrSwapchainOutOfDate) {
			s.stale = true
		}
		return opError(OpAcquireImage, err)
	}
	if suboptimal {
		s.stale = true
	}
	image, view := sc.images[idx], sc.views[idx]

	cmd, err := s.drv.AllocateCommandBuffer(s.dev.cmdPool)
	if err != nil {
		return opError(OpAllocateCommandBuffer, err)
	}
	rb.add(func() { s.drv.FreeCommandBuffer(s.dev.cmdPool, cmd) })

	if err := s.drv.BeginCommandBuffer(cmd); err != nil {
		return opError(OpBeginCommandBuffer, err)
	}

	rects := d.Rects()
	buffers := make([]*scratchBuffer, 0, len(rects))
	rb.add(func() { s.buffers = append(s.buffers, buffers...) })

	pre := Barriers{
		Buffers: make([]BufferBarrier, 0, len(rects)),
		Images:  []ImageBarrier{{Image: image, Src: AccessNone, Dst: AccessColorAttachmentWrite}},
	}
	for _, r := range rects {
		buf, err := s.scratchBuffer()
		if err != nil {
			return err
		}
		buffers = append(buffers, buf)
		p := NewFillParams(r, m, tf)
		s.drv.CmdUpdateBuffer(cmd, buf.buf, p.Marshal())
		pre.Buffers = append(pre.Buffers, BufferBarrier{
			Buffer: buf.buf,
			Src:    AccessTransferWrite,
			Dst:    AccessShaderRead,
		})
	}
	s.drv.CmdPipelineBarrier(cmd, &pre)

	s.drv.CmdBeginRendering(cmd, &RenderingInfo{View: view, Width: width, Height: height})
	s.drv.CmdBindPipeline(cmd, s.dev.pipeline)
	for _, buf := range buffers {
		s.drv.CmdPushAddress(cmd, s.dev.pipeline, buf.address)
		s.drv.CmdDraw(cmd, 4, 1)
	}
	s.drv.CmdEndRendering(cmd)
	s.drv.CmdPipelineBarrier(cmd, &Barriers{
		Images: []ImageBarrier{{Image: image, Src: AccessColorAttachmentWrite, Dst: AccessPresent}},
	})

	if err := s.drv.EndCommandBuffer(cmd); err != nil {
		return opError(OpEndCommandBuffer, err)
	}
	err = s.drv.Submit(&SubmitInfo{
		CommandBuffer: cmd,
		Wait:          acquire,
		Signal:        release,
		Fence:         fence,
	})
	if err != nil {
		return opError(OpSubmit, err)
	}
	rb.discard()

	sub := &submission{
		cmd:     cmd,
		acquire: acquire,
		release: ownedSemaphore{sem: release},
		fence:   fence,
		buffers: buffers,
	}
	s.submissions.push(sub)

	suboptimal, err = s.drv.Present(&PresentInfo{
		Swapchain: sc.handle,
		Image:     idx,
		Wait:      release,
		Fence:     presentFence,
	})
	if err != nil {
		s.drv.DestroyFence(presentFence)
		if errors.Is(err, ErrSwapchainOutOfDate) {
			s.stale = true
		}
		return opError(OpPresent, err)
	}
	if suboptimal {
		s.stale = true
	}
	s.presentations.push(&presentation{release: sub.release.take(), fence: presentFence})
	return nil
}

// Destroy waits for the device to become idle, releases every resource of
// the surface and drops its device reference. Destroy is safe to call more
// than once.
func (s *Surface) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	if err := s.drv.WaitIdle(); err != nil {
		s.dev.log().Warn("gpu: wait idle during surface teardown", slog.Any("err", err))
	}
	_ = s.gc(true)
	if s.swapchain != nil {
		s.swapchain.destroy(s.drv)
		s.swapchain = nil
	}
	for _, b := range s.buffers {
		s.dev.destroyScratchBuffer(b)
	}
	s.buffers = nil
	s.drv.DestroySurface(s.handle)
	s.dev.release()
}
