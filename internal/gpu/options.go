package gpu

import (
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"
)

// Option configures a Device during creation.
//
// Example:
//
//	dev, err := gpu.NewDevice(drv,
//		gpu.WithLogger(logger),
//		gpu.WithPresentMode(gputypes.PresentModeFifo))
type Option func(*options)

// options holds the Device configuration shared by its surfaces.
type options struct {
	logger          *slog.Logger
	swapchainImages uint32
	presentMode     gputypes.PresentMode
	alphaMode       gputypes.CompositeAlphaMode
	acquireTimeout  time.Duration
}

// defaultOptions returns the default device options.
func defaultOptions() options {
	return options{
		swapchainImages: 3,
		presentMode:     gputypes.PresentModeMailbox,
		alphaMode:       gputypes.CompositeAlphaModePremultiplied,
		acquireTimeout:  -1, // unbounded
	}
}

// WithLogger sets the logger of the device and its surfaces.
// Without it the package logger set by SetLogger is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithSwapchainImages sets the minimum number of swapchain images.
// Values below 2 are ignored.
func WithSwapchainImages(n uint32) Option {
	return func(o *options) {
		if n >= 2 {
			o.swapchainImages = n
		}
	}
}

// WithPresentMode sets the present mode of new swapchains.
func WithPresentMode(m gputypes.PresentMode) Option {
	return func(o *options) {
		o.presentMode = m
	}
}

// WithAlphaMode sets the composite alpha mode of new swapchains.
func WithAlphaMode(m gputypes.CompositeAlphaMode) Option {
	return func(o *options) {
		o.alphaMode = m
	}
}

// WithAcquireTimeout bounds the wait for a swapchain image. The default
// waits indefinitely, which is fine when the caller renders only after the
// window system signaled that a frame is due.
func WithAcquireTimeout(d time.Duration) Option {
	return func(o *options) {
		o.acquireTimeout = d
	}
}
