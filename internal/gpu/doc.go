// Package gpu renders scene draws onto presentable surfaces.
//
// A Device owns the GPU device, the single fill pipeline and the command
// pool. Each Surface owns a swapchain, a pool of scratch buffers holding one
// draw's parameter block each, and two FIFOs of in-flight work: submissions
// and presentations. Both FIFOs are reclaimed by polling fences oldest
// first; a scratch buffer returns to the pool only after the fence of the
// submission that used it has signaled.
//
// All GPU access goes through the Driver interface. OpenHAL returns the
// production driver built on gogpu/wgpu; package gputest provides an in
// memory driver for tests.
package gpu
