// Package testpane drives the surfaces of one test window.
//
// A Pane holds the current scene, canvas size and color description and
// renders them on request. The main surface shows the scene. Blend scenes
// additionally render their translucent half onto a second surface that
// covers the left half of the window.
//
// Example:
//
//	p := testpane.New(mainSurface, blendSurface)
//	p.Configure(1280, 720)
//	p.SetScene(scene.DefaultBlend())
//	p.RequestFrame()
//	if err := p.Frame(); err != nil {
//		log.Print(err)
//	}
package testpane

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mahkoh/wayland-color-test/cmm"
	"github.com/mahkoh/wayland-color-test/scene"
)

// Default canvas size used when the window system leaves the choice to the
// client.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// ErrNoBlendSurface is returned when a blend scene is rendered by a pane
// without a blend surface.
var ErrNoBlendSurface = errors.New("testpane: blend scene needs a blend surface")

// Renderer renders one draw onto a surface. *gpu.Surface implements it.
type Renderer interface {
	Render(width, height uint32, d scene.Draw, m cmm.Matrix[cmm.Local, cmm.LMS], tf cmm.TransferFunction) error
}

// Option configures a Pane.
type Option func(*options)

type options struct {
	logger *slog.Logger
	scene  scene.Scene
}

// WithLogger sets the logger of the pane. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithScene sets the initial scene. The default is scene.DefaultFill.
func WithScene(s scene.Scene) Option {
	return func(o *options) {
		o.scene = s
	}
}

// Pane is the render state of one test window. A Pane is not safe for
// concurrent use.
type Pane struct {
	main, blend Renderer
	logger      *slog.Logger

	scene         scene.Scene
	width, height int

	desc   cmm.Description
	matrix cmm.Matrix[cmm.Local, cmm.LMS]
	tf     cmm.TransferFunction

	pending bool
	dirty   bool
	frames  uint64
}

// New returns a pane that renders onto main and, for blend scenes, blend.
// blend may be nil if blend scenes are never shown. The pane starts with
// the sRGB description and the default canvas size and is dirty.
func New(main, blend Renderer, opts ...Option) *Pane {
	o := options{scene: scene.DefaultFill()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	p := &Pane{
		main:   main,
		blend:  blend,
		logger: o.logger,
		scene:  o.scene,
		width:  DefaultWidth,
		height: DefaultHeight,
		desc:   cmm.NoDescription{},
		dirty:  true,
	}
	p.matrix, p.tf = resolve(p.desc)
	return p
}

// SetDescription sets the color description of the surfaces. Any change
// of the description requests a frame, even if it resolves to the same
// matrix and transfer function, so that the compositor receives a commit
// carrying it. It reports whether the description changed.
func (p *Pane) SetDescription(d cmm.Description) bool {
	if sameDescription(p.desc, d) {
		return false
	}
	p.desc = d
	p.matrix, p.tf = resolve(d)
	p.dirty = true
	p.logger.Debug("testpane: description changed",
		slog.String("transfer", p.tf.String()))
	return true
}

// Description returns the current color description.
func (p *Pane) Description() cmm.Description {
	return p.desc
}

// Matrix returns the matrix and transfer function frames are rendered with.
func (p *Pane) Matrix() (cmm.Matrix[cmm.Local, cmm.LMS], cmm.TransferFunction) {
	return p.matrix, p.tf
}

// SetPending marks the description as not yet accepted by the compositor.
// No frame renders while it is pending. Clearing it requests a frame.
func (p *Pane) SetPending(pending bool) {
	if p.pending && !pending {
		p.dirty = true
	}
	p.pending = pending
}

// SetScene sets the scene and requests a frame.
func (p *Pane) SetScene(s scene.Scene) {
	p.scene = s
	p.dirty = true
}

// Scene returns the current scene.
func (p *Pane) Scene() scene.Scene {
	return p.scene
}

// Configure sets the canvas size. Non-positive dimensions select the
// default size.
func (p *Pane) Configure(width, height int) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if width != p.width || height != p.height {
		p.width, p.height = width, height
		p.dirty = true
	}
}

// Size returns the canvas size.
func (p *Pane) Size() (width, height int) {
	return p.width, p.height
}

// RequestFrame marks the pane dirty.
func (p *Pane) RequestFrame() {
	p.dirty = true
}

// Dirty reports whether the next call to Frame renders.
func (p *Pane) Dirty() bool {
	return p.dirty && !p.pending
}

// Frames returns the number of frames rendered.
func (p *Pane) Frames() uint64 {
	return p.frames
}

// Frame renders the scene if the pane is dirty and the description is not
// pending. Canvases of one pixel or less in either dimension are skipped.
// On error the pane stays dirty so that the next call retries.
func (p *Pane) Frame() error {
	if !p.Dirty() {
		return nil
	}
	if p.width <= 1 || p.height <= 1 {
		p.dirty = false
		return nil
	}
	main, blend := scene.Split(p.scene)
	if main == nil {
		return fmt.Errorf("testpane: unsupported scene %T", p.scene)
	}
	w, h := uint32(p.width), uint32(p.height)
	if blend != nil {
		if p.blend == nil {
			return ErrNoBlendSurface
		}
		if err := p.blend.Render(w/2, h, blend, p.matrix, p.tf); err != nil {
			return fmt.Errorf("testpane: blend surface: %w", err)
		}
	}
	if err := p.main.Render(w, h, main, p.matrix, p.tf); err != nil {
		return fmt.Errorf("testpane: main surface: %w", err)
	}
	p.dirty = false
	p.frames++
	p.logger.Debug("testpane: frame",
		slog.String("scene", scene.Name(p.scene)),
		slog.Int("width", p.width),
		slog.Int("height", p.height))
	return nil
}
