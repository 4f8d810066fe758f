// Package preview renders compiled scenes on the CPU.
//
// The rasterizer evaluates the fill shaders pixel by pixel: corner colors
// are interpolated across the two triangles of every rectangle, decoded from
// the Oklab-style perceptual space to LMS, mapped to the local color space
// and encoded with the transfer function. Rectangles are blended in paint
// order onto a transparent canvas, matching the GPU pipeline's alpha blend.
//
// Thread Safety:
// A Rasterizer may be used from multiple goroutines. Rows of one image are
// rendered in parallel bands.
package preview

import (
	"image"
	"image/color"

	"golang.org/x/image/math/f64"

	"github.com/mahkoh/wayland-color-test/cmm"
	"github.com/mahkoh/wayland-color-test/internal/parallel"
	"github.com/mahkoh/wayland-color-test/scene"
)

// Rasterizer renders rectangles into 16 bit images.
type Rasterizer struct {
	pool *parallel.WorkerPool
}

// New creates a Rasterizer with the given number of workers.
// If workers <= 0, GOMAXPROCS is used.
func New(workers int) *Rasterizer {
	return &Rasterizer{pool: parallel.NewWorkerPool(workers)}
}

// Close stops the workers. Render keeps working after Close but runs on the
// calling goroutine.
func (r *Rasterizer) Close() {
	r.pool.Close()
}

// Render draws rects into a width x height image using the LMS to local
// matrix m and transfer function tf. The returned image is premultiplied.
// Non-positive sizes produce an empty image.
func (r *Rasterizer) Render(width, height int, rects []scene.Rect, m cmm.Matrix[cmm.Local, cmm.LMS], tf cmm.TransferFunction) *image.RGBA64 {
	width, height = max(width, 0), max(height, 0)
	img := image.NewRGBA64(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return img
	}
	r.pool.ForEachBand(height, func(b parallel.Band) {
		row := make([][4]float64, width)
		for y := b.Y0; y < b.Y1; y++ {
			clear(row)
			ny := ndc(y, height)
			for i := range rects {
				rasterizeRow(row, ny, &rects[i], m, tf)
			}
			for x, px := range row {
				img.SetRGBA64(x, y, toRGBA64(px))
			}
		}
	})
	return img
}

// Render draws rects with a temporary Rasterizer.
func Render(width, height int, rects []scene.Rect, m cmm.Matrix[cmm.Local, cmm.LMS], tf cmm.TransferFunction) *image.RGBA64 {
	r := New(0)
	defer r.Close()
	return r.Render(width, height, rects, m, tf)
}

// ndc returns the normalized device coordinate of the center of pixel i
// out of n.
func ndc(i, n int) float64 {
	return (float64(i)+0.5)/float64(n)*2 - 1
}

func rasterizeRow(row [][4]float64, y float64, rc *scene.Rect, m cmm.Matrix[cmm.Local, cmm.LMS], tf cmm.TransferFunction) {
	y1, y2 := float64(rc.Y1), float64(rc.Y2)
	if y < y1 || y >= y2 {
		return
	}
	x1, x2 := float64(rc.X1), float64(rc.X2)
	v := (y - y1) / (y2 - y1)
	width := len(row)
	for x := range row {
		nx := ndc(x, width)
		if nx < x1 || nx >= x2 {
			continue
		}
		u := (nx - x1) / (x2 - x1)
		src := Shade(interpolate(rc.Colors, u, v), m, tf)
		blend(&row[x], src)
	}
}

// interpolate evaluates the corner colors at (u, v), where (0, 0) is the
// top-left corner. The rectangle is split into two triangles along the
// diagonal from the top-left to the bottom-right corner, like the triangle
// strip the vertex shader emits.
func interpolate(c [4]scene.Lab, u, v float64) [4]float64 {
	const tr, tl, br, bl = 0, 1, 2, 3
	var out [4]float64
	for i := range out {
		a, b := float64(c[tl][i]), float64(c[br][i])
		if u >= v {
			out[i] = a + u*(float64(c[tr][i])-a) + v*(b-float64(c[tr][i]))
		} else {
			out[i] = a + v*(float64(c[bl][i])-a) + u*(b-float64(c[bl][i]))
		}
	}
	return out
}

// Shade converts a perceptual color with alpha into the encoded local color
// the fragment shader outputs.
func Shade(lab [4]float64, m cmm.Matrix[cmm.Local, cmm.LMS], tf cmm.TransferFunction) [4]float64 {
	l := lab[0] + 0.3963377774*lab[1] + 0.2158037573*lab[2]
	mm := lab[0] - 0.1055613458*lab[1] - 0.0638541728*lab[2]
	s := lab[0] - 0.0894841775*lab[1] - 1.2914855480*lab[2]
	local := m.Transform(f64.Vec3{l * l * l, mm * mm * mm, s * s * s})
	return [4]float64{tf.Encode(local[0]), tf.Encode(local[1]), tf.Encode(local[2]), lab[3]}
}

// blend applies src over dst with straight source alpha. Color and alpha
// use the blend factors of the GPU pipeline, so dst stays premultiplied
// against the transparent clear color.
func blend(dst *[4]float64, src [4]float64) {
	a := src[3]
	for i := range 3 {
		dst[i] = src[i]*a + dst[i]*(1-a)
	}
	dst[3] = a + dst[3]*(1-a)
}

func toRGBA64(px [4]float64) color.RGBA64 {
	a := clamp(px[3], 0, 1)
	conv := func(v float64) uint16 {
		return uint16(clamp(v, 0, a)*0xffff + 0.5)
	}
	return color.RGBA64{R: conv(px[0]), G: conv(px[1]), B: conv(px[2]), A: conv(a)}
}

func clamp(v, lo, hi float64) float64 {
	if v != v {
		return lo
	}
	return min(max(v, lo), hi)
}

// Surface keeps the last image rendered onto it. It has the Render method
// of a GPU surface, so panes can draw into memory.
type Surface struct {
	r   *Rasterizer
	img *image.RGBA64
}

// NewSurface returns a surface rendering with r.
func (r *Rasterizer) NewSurface() *Surface {
	return &Surface{r: r}
}

// Render replaces the image of s with d drawn at width x height.
func (s *Surface) Render(width, height uint32, d scene.Draw, m cmm.Matrix[cmm.Local, cmm.LMS], tf cmm.TransferFunction) error {
	s.img = s.r.Render(int(width), int(height), d.Rects(), m, tf)
	return nil
}

// Image returns the last rendered image, or nil before the first render.
func (s *Surface) Image() *image.RGBA64 {
	return s.img
}
