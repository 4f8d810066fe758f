package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/mahkoh/wayland-color-test/cmm"
	"github.com/mahkoh/wayland-color-test/scene"
)

func floatAt(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

// TestFillParamsLayout verifies that Marshal matches the WGSL uniform layout.
func TestFillParamsLayout(t *testing.T) {
	m := cmm.NewMatrix[cmm.Local, cmm.LMS]([3][4]float64{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{9, 10, 11, 12},
	})
	r := scene.Rect{
		X1: -1, Y1: -0.5, X2: 0.25, Y2: 1,
		Colors: [4]scene.Lab{
			{0.1, 0.2, 0.3, 0.4},
			{1.1, 1.2, 1.3, 1.4},
			{2.1, 2.2, 2.3, 2.4},
			{3.1, 3.2, 3.3, 3.4},
		},
	}
	p := NewFillParams(r, m, cmm.Power(2.4))
	b := p.Marshal()
	if len(b) != ParamsSize {
		t.Fatalf("len(Marshal()) = %d, want %d", len(b), ParamsSize)
	}

	// Column major: column 0 holds the first entry of every row.
	for i, want := range []float32{1, 5, 9, 0} {
		if got := floatAt(b, i*4); got != want {
			t.Errorf("column 0 row %d = %v, want %v", i, got, want)
		}
	}
	// Column 3 is the translation with a homogeneous 1.
	for i, want := range []float32{4, 8, 12, 1} {
		if got := floatAt(b, 48+i*4); got != want {
			t.Errorf("column 3 row %d = %v, want %v", i, got, want)
		}
	}
	for i, want := range []float32{-1, -0.5, 0.25, 1} {
		if got := floatAt(b, 64+i*4); got != want {
			t.Errorf("rect[%d] = %v, want %v", i, got, want)
		}
	}
	if got := floatAt(b, 80+2*16+3*4); got != 2.4 {
		t.Errorf("color[2].a = %v, want 2.4", got)
	}
	if got := binary.LittleEndian.Uint32(b[144:]); got != 11 {
		t.Errorf("eotf = %d, want 11 (power)", got)
	}
	if got := floatAt(b, 160); got != 2.4 {
		t.Errorf("eotf_args.x = %v, want 2.4", got)
	}
}

// TestUnmarshalFillParams verifies decoding and the size check.
func TestUnmarshalFillParams(t *testing.T) {
	r := scene.DrawFill{Color: scene.Color{Lumen: 203, Lightness: 1}.Opaque()}.Rects()[0]
	m, tf := cmm.Parametric{Primaries: cmm.SRGB(), TransferFunction: cmm.Named(cmm.TransferST2084PQ)}.Resolve()
	want := NewFillParams(r, m, tf)

	got, err := UnmarshalFillParams(want.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalFillParams() error = %v", err)
	}
	if got != want {
		t.Errorf("UnmarshalFillParams() = %+v, want %+v", got, want)
	}

	if _, err := UnmarshalFillParams(make([]byte, 64)); err == nil {
		t.Error("UnmarshalFillParams(short) should fail")
	}
}
