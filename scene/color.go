package scene

import "math"

// ReferenceWhite is the luminance in cd/m² at which a color with lightness 1
// is reference white.
const ReferenceWhite = 203

// Color is a color in lightness, chroma, hue form with an absolute
// luminance.
type Color struct {
	// Lumen is the luminance of lightness 1 in cd/m².
	Lumen float64
	// Lightness and Chroma are Oklch coordinates.
	Lightness float64
	Chroma    float64
	// Hue in degrees.
	Hue float64
}

// Encoded is a color as passed between the scene and the shader before the
// hue is resolved: lightness and chroma scaled by the cube root of the
// relative luminance, hue in radians, and alpha.
type Encoded [4]float32

// Lab is a color with Cartesian a and b coordinates and alpha.
type Lab [4]float32

// Encode returns c with the given alpha.
func (c Color) Encode(alpha float64) Encoded {
	mul := math.Cbrt(c.Lumen / ReferenceWhite)
	return Encoded{
		float32(mul * c.Lightness),
		float32(mul * c.Chroma),
		float32(c.Hue / 180 * math.Pi),
		float32(alpha),
	}
}

// Opaque returns c encoded with alpha 1.
func (c Color) Opaque() Encoded {
	return c.Encode(1)
}

// Lab resolves the hue of e into Cartesian coordinates.
func (e Encoded) Lab() Lab {
	s, c := math.Sincos(float64(e[2]))
	return Lab{
		e[0],
		e[1] * float32(c),
		e[1] * float32(s),
		e[3],
	}
}
