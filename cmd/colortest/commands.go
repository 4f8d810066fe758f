package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/draw"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	colortest "github.com/mahkoh/wayland-color-test"
	"github.com/mahkoh/wayland-color-test/cmm"
	"github.com/mahkoh/wayland-color-test/internal/gpu"
	"github.com/mahkoh/wayland-color-test/internal/preview"
	"github.com/mahkoh/wayland-color-test/scene"
	"github.com/mahkoh/wayland-color-test/testpane"
)

// descFlags selects a color description on the command line.
type descFlags struct {
	primaries cmm.NamedPrimaries
	tf        cmm.TransferFunction
	lum       *cmm.Luminance
	scRGB     bool
	none      bool
}

func (d *descFlags) register(fs *flag.FlagSet) {
	fs.TextVar(&d.primaries, "primaries", cmm.PrimariesSRGB, "named primaries")
	fs.TextVar(&d.tf, "tf", cmm.Named(cmm.TransferSRGB), "transfer function, a name or pow:<exponent>")
	fs.Func("lum", "luminance range min:max:white in cd/m²", func(s string) error {
		l, err := parseLuminance(s)
		if err != nil {
			return err
		}
		d.lum = &l
		return nil
	})
	fs.BoolVar(&d.scRGB, "scrgb", false, "use the Windows scRGB description")
	fs.BoolVar(&d.none, "none", false, "use no description")
}

func (d *descFlags) description() (cmm.Description, error) {
	switch {
	case d.scRGB && d.none:
		return nil, errors.New("-scrgb and -none are exclusive")
	case d.scRGB:
		return cmm.ScRGB{}, nil
	case d.none:
		return cmm.NoDescription{}, nil
	}
	p := cmm.Parametric{
		Primaries:        d.primaries.Primaries(),
		TransferFunction: d.tf,
		Luminance:        d.lum,
	}
	if err := p.Primaries.Validate(); err != nil {
		return nil, err
	}
	if d.lum != nil {
		if err := d.lum.Validate(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func parseLuminance(s string) (cmm.Luminance, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return cmm.Luminance{}, fmt.Errorf("luminance %q is not min:max:white", s)
	}
	var v [3]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return cmm.Luminance{}, fmt.Errorf("luminance %q: %w", s, err)
		}
		v[i] = f
	}
	l := cmm.Luminance{Min: v[0], Max: v[1], White: v[2]}
	return l, l.Validate()
}

func lookupScene(name string) (scene.Scene, error) {
	s, ok := scene.Defaults()[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q", name)
	}
	return s, nil
}

func runList(args []string, out io.Writer) error {
	fs, verbose := newFlagSet("list")
	if err := parse(fs, verbose, args); err != nil {
		return err
	}
	title := cases.Title(language.English)

	fmt.Fprintln(out, "Primaries:")
	for _, n := range cmm.AllNamedPrimaries() {
		p := n.Primaries()
		fmt.Fprintf(out, "  %-14s %-14s r=(%.4f, %.4f) g=(%.4f, %.4f) b=(%.4f, %.4f) wp=(%.4f, %.4f)\n",
			n, title.String(n.String()), p.R.X, p.R.Y, p.G.X, p.G.Y, p.B.X, p.B.Y, p.WP.X, p.WP.Y)
	}
	fmt.Fprintln(out, "Transfer functions:")
	for _, n := range cmm.AllNamedTransferFunctions() {
		l := cmm.Named(n).DefaultLuminance()
		fmt.Fprintf(out, "  %-14s %-14s min=%g max=%g white=%g\n", n, title.String(n.String()), l.Min, l.Max, l.White)
	}
	fmt.Fprintln(out, "Scenes:")
	for _, name := range slices.Sorted(maps.Keys(scene.Defaults())) {
		fmt.Fprintf(out, "  %-14s %s\n", name, title.String(name))
	}
	return nil
}

func runMatrix(args []string, out io.Writer) error {
	fs, verbose := newFlagSet("matrix")
	var d descFlags
	d.register(fs)
	if err := parse(fs, verbose, args); err != nil {
		return err
	}
	desc, err := d.description()
	if err != nil {
		return err
	}
	m, tf := desc.Resolve()
	fmt.Fprintf(out, "lms_to_local:\n%v\n", m)
	fmt.Fprintf(out, "transfer function: %v (shader code %d, args %v)\n", tf, tf.ShaderCode(), tf.Args())
	return nil
}

func runScene(args []string, out io.Writer) error {
	fs, verbose := newFlagSet("scene")
	name := fs.String("name", "grid", "scene name")
	if err := parse(fs, verbose, args); err != nil {
		return err
	}
	s, err := lookupScene(*name)
	if err != nil {
		return err
	}
	primary, blend := scene.Split(s)
	printRects(out, "main", primary.Rects())
	if blend != nil {
		printRects(out, "blend", blend.Rects())
	}
	return nil
}

func printRects(out io.Writer, surface string, rects []scene.Rect) {
	fmt.Fprintf(out, "%s: %d rects\n", surface, len(rects))
	for i, r := range rects {
		fmt.Fprintf(out, "  %3d [%.3f %.3f %.3f %.3f]", i, r.X1, r.Y1, r.X2, r.Y2)
		for _, c := range r.Colors {
			fmt.Fprintf(out, " (%.3f %.3f %.3f %.2f)", c[0], c[1], c[2], c[3])
		}
		fmt.Fprintln(out)
	}
}

func runPreview(args []string, out io.Writer) error {
	fs, verbose := newFlagSet("preview")
	var d descFlags
	d.register(fs)
	name := fs.String("name", "grid", "scene name")
	width := fs.Int("w", 800, "width")
	height := fs.Int("h", 600, "height")
	outPath := fs.String("out", "", "output TIFF")
	thumb := fs.Uint("thumb", 0, "thumbnail bounding box size, 0 disables")
	thumbOut := fs.String("thumb-out", "", "output thumbnail TIFF")
	if err := parse(fs, verbose, args); err != nil {
		return err
	}
	if *outPath == "" || *width <= 0 || *height <= 0 {
		return errors.New("missing required arguments")
	}
	if *thumb > 0 && *thumbOut == "" {
		return errors.New("-thumb requires -thumb-out")
	}
	s, err := lookupScene(*name)
	if err != nil {
		return err
	}
	desc, err := d.description()
	if err != nil {
		return err
	}

	img, err := renderScene(s, desc, *width, *height)
	if err != nil {
		return err
	}
	if err := writeTIFF(*outPath, img); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%dx%d)\n", *outPath, *width, *height)
	if *thumb > 0 {
		t := preview.Thumbnail(img, *thumb, *thumb)
		if err := writeTIFF(*thumbOut, t); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s (%dx%d)\n", *thumbOut, t.Bounds().Dx(), t.Bounds().Dy())
	}
	return nil
}

func writeTIFF(path string, img image.Image) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := preview.WriteTIFF(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// renderScene renders s through a pane backed by in-memory surfaces. The
// blend surface covers the left half of the main surface.
func renderScene(s scene.Scene, desc cmm.Description, width, height int) (*image.RGBA64, error) {
	r := preview.New(0)
	defer r.Close()

	primary, blend := r.NewSurface(), r.NewSurface()
	pane := testpane.New(primary, blend, testpane.WithScene(s), testpane.WithLogger(colortest.Logger()))
	pane.SetDescription(desc)
	pane.Configure(width, height)
	if err := pane.Frame(); err != nil {
		return nil, err
	}
	img := primary.Image()
	if img == nil {
		return nil, fmt.Errorf("canvas %dx%d is too small", width, height)
	}
	if b := blend.Image(); b != nil {
		draw.Draw(img, b.Bounds(), b, image.Point{}, draw.Over)
	}
	return img, nil
}

// openDriver opens the driver probe uses.
var openDriver = gpu.OpenHAL

func runProbe(args []string, out io.Writer) error {
	fs, verbose := newFlagSet("probe")
	if err := parse(fs, verbose, args); err != nil {
		return err
	}
	drv, err := openDriver()
	if err != nil {
		return err
	}
	dev, err := gpu.NewDevice(drv)
	if err != nil {
		return err
	}
	defer dev.Close()
	info := dev.Adapter()
	fmt.Fprintf(out, "adapter: %s (%v)\n", info.Name, info.Type)
	fmt.Fprintf(out, "queue families: %d\n", len(info.QueueFamilies))
	fmt.Fprintf(out, "swapchain format: %v\n", gpu.SwapchainFormat)
	return nil
}
