package cmm

import (
	"errors"
	"fmt"
	"math"
)

// Chromaticity is a CIE 1931 xy chromaticity coordinate.
type Chromaticity struct {
	X, Y float64
}

// xyz returns the XYZ tristimulus value of c with Y = 1.
func (c Chromaticity) xyz() [3]float64 {
	return [3]float64{c.X / c.Y, 1, (1 - c.X - c.Y) / c.Y}
}

// Primaries are the chromaticities of the red, green and blue primaries and
// the white point of an RGB color space.
type Primaries struct {
	R, G, B, WP Chromaticity
}

// D65 is the CIE standard illuminant D65 white point.
var D65 = Chromaticity{0.3127, 0.3290}

// Matrices returns the matrices converting linear RGB in p to XYZ and back.
//
// The results are bit-exact across platforms: products are rounded before
// they are summed, which rules out fused multiply-add, and divisions go
// through the reciprocals of det, sr, sg and sb.
func (p Primaries) Matrices() (Matrix[XYZ, Local], Matrix[Local, XYZ]) {
	xw, yw := p.WP.X, p.WP.Y
	xr, yr := p.R.X, p.R.Y
	xg, yg := p.G.X, p.G.Y
	xb, yb := p.B.X, p.B.Y

	Xw := xw / yw
	Zw := (1 - xw - yw) / yw

	zr := 1 - xr - yr
	zg := 1 - xg - yg
	zb := 1 - xb - yb

	srx := float64(yg*zb) - float64(zg*yb)
	sry := float64(zg*xb) - float64(xg*zb)
	srz := float64(xg*yb) - float64(yg*xb)

	sgx := float64(zr*yb) - float64(yr*zb)
	sgy := float64(xr*zb) - float64(zr*xb)
	sgz := float64(yr*xb) - float64(xr*yb)

	sbx := float64(yr*zg) - float64(zr*yg)
	sby := float64(zr*xg) - float64(xr*zg)
	sbz := float64(xr*yg) - float64(yr*xg)

	det := srz + sgz + sbz

	sr := float64(srx*Xw) + sry + float64(srz*Zw)
	sg := float64(sgx*Xw) + sgy + float64(sgz*Zw)
	sb := float64(sbx*Xw) + sby + float64(sbz*Zw)

	detInv := 1 / det
	srInv := 1 / sr
	sgInv := 1 / sg
	sbInv := 1 / sb

	srp := sr * detInv
	sgp := sg * detInv
	sbp := sb * detInv

	toXYZ := linear[XYZ, Local]([3][3]float64{
		{srp * xr, sgp * xg, sbp * xb},
		{srp * yr, sgp * yg, sbp * yb},
		{srp * zr, sgp * zg, sbp * zb},
	})
	fromXYZ := linear[Local, XYZ]([3][3]float64{
		{srx * srInv, sry * srInv, srz * srInv},
		{sgx * sgInv, sgy * sgInv, sgz * sgInv},
		{sbx * sbInv, sby * sbInv, sbz * sbInv},
	})
	return toXYZ, fromXYZ
}

// ErrDegeneratePrimaries is returned by Primaries.Validate when the primaries
// do not span a color space.
var ErrDegeneratePrimaries = errors.New("cmm: degenerate primaries")

// Validate reports whether p yields finite conversion matrices.
func (p Primaries) Validate() error {
	for _, c := range [4]Chromaticity{p.R, p.G, p.B, p.WP} {
		if !finite(c.X) || !finite(c.Y) {
			return fmt.Errorf("%w: non-finite chromaticity %v", ErrDegeneratePrimaries, c)
		}
	}
	if p.WP.Y == 0 {
		return fmt.Errorf("%w: white point has y = 0", ErrDegeneratePrimaries)
	}
	// Twice the signed area of the primary triangle.
	area := (p.G.X-p.R.X)*(p.B.Y-p.R.Y) - (p.B.X-p.R.X)*(p.G.Y-p.R.Y)
	if area == 0 {
		return fmt.Errorf("%w: collinear primaries", ErrDegeneratePrimaries)
	}
	to, from := p.Matrices()
	for r := range 3 {
		for c := range 3 {
			if !finite(to.m[r][c]) || !finite(from.m[r][c]) {
				return fmt.Errorf("%w: singular primary matrix", ErrDegeneratePrimaries)
			}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NamedPrimaries identifies a well-known set of primaries.
type NamedPrimaries uint8

const (
	PrimariesSRGB NamedPrimaries = iota
	PrimariesPALM
	PrimariesPAL
	PrimariesNTSC
	PrimariesGenericFilm
	PrimariesBT2020
	PrimariesCIE1931XYZ
	PrimariesDCIP3
	PrimariesDisplayP3
	PrimariesAdobeRGB
)

var namedPrimaries = [...]struct {
	name string
	p    Primaries
}{
	PrimariesSRGB: {"srgb", Primaries{
		R: Chromaticity{0.64, 0.33}, G: Chromaticity{0.30, 0.60}, B: Chromaticity{0.15, 0.06}, WP: D65,
	}},
	PrimariesPALM: {"pal-m", Primaries{
		R: Chromaticity{0.67, 0.33}, G: Chromaticity{0.21, 0.71}, B: Chromaticity{0.14, 0.08}, WP: Chromaticity{0.310, 0.316},
	}},
	PrimariesPAL: {"pal", Primaries{
		R: Chromaticity{0.64, 0.33}, G: Chromaticity{0.29, 0.60}, B: Chromaticity{0.15, 0.06}, WP: D65,
	}},
	PrimariesNTSC: {"ntsc", Primaries{
		R: Chromaticity{0.630, 0.340}, G: Chromaticity{0.310, 0.595}, B: Chromaticity{0.155, 0.070}, WP: D65,
	}},
	PrimariesGenericFilm: {"generic-film", Primaries{
		R: Chromaticity{0.681, 0.319}, G: Chromaticity{0.243, 0.692}, B: Chromaticity{0.145, 0.049}, WP: Chromaticity{0.310, 0.316},
	}},
	PrimariesBT2020: {"bt2020", Primaries{
		R: Chromaticity{0.708, 0.292}, G: Chromaticity{0.170, 0.797}, B: Chromaticity{0.131, 0.046}, WP: D65,
	}},
	PrimariesCIE1931XYZ: {"cie1931-xyz", Primaries{
		R: Chromaticity{1, 0}, G: Chromaticity{0, 1}, B: Chromaticity{0, 0}, WP: Chromaticity{1.0 / 3, 1.0 / 3},
	}},
	PrimariesDCIP3: {"dci-p3", Primaries{
		R: Chromaticity{0.680, 0.320}, G: Chromaticity{0.265, 0.690}, B: Chromaticity{0.150, 0.060}, WP: Chromaticity{0.314, 0.351},
	}},
	PrimariesDisplayP3: {"display-p3", Primaries{
		R: Chromaticity{0.680, 0.320}, G: Chromaticity{0.265, 0.690}, B: Chromaticity{0.150, 0.060}, WP: D65,
	}},
	PrimariesAdobeRGB: {"adobe-rgb", Primaries{
		R: Chromaticity{0.64, 0.33}, G: Chromaticity{0.21, 0.71}, B: Chromaticity{0.15, 0.06}, WP: D65,
	}},
}

// SRGB returns the sRGB primaries, the reference the perceptual matrices are
// defined against.
func SRGB() Primaries {
	return namedPrimaries[PrimariesSRGB].p
}

// AllNamedPrimaries returns every NamedPrimaries value in declaration order.
func AllNamedPrimaries() []NamedPrimaries {
	out := make([]NamedPrimaries, len(namedPrimaries))
	for i := range out {
		out[i] = NamedPrimaries(i)
	}
	return out
}

// Primaries returns the chromaticities of n.
func (n NamedPrimaries) Primaries() Primaries {
	if int(n) >= len(namedPrimaries) {
		return SRGB()
	}
	return namedPrimaries[n].p
}

func (n NamedPrimaries) String() string {
	if int(n) >= len(namedPrimaries) {
		return fmt.Sprintf("NamedPrimaries(%d)", n)
	}
	return namedPrimaries[n].name
}

// MarshalText implements encoding.TextMarshaler.
func (n NamedPrimaries) MarshalText() ([]byte, error) {
	if int(n) >= len(namedPrimaries) {
		return nil, fmt.Errorf("cmm: unknown primaries %d", n)
	}
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NamedPrimaries) UnmarshalText(text []byte) error {
	for i, e := range namedPrimaries {
		if e.name == string(text) {
			*n = NamedPrimaries(i)
			return nil
		}
	}
	return fmt.Errorf("cmm: unknown primaries %q", text)
}
