package cmm

import "math"

var (
	bradfordFromXYZ = linear[Bradford, XYZ]([3][3]float64{
		{0.8951, 0.2664, -0.1614},
		{-0.7502, 1.7135, 0.0367},
		{0.0389, -0.0685, 1.0296},
	})
	xyzFromBradford = linear[XYZ, Bradford]([3][3]float64{
		{0.9870, -0.1471, 0.1600},
		{0.4323, 0.5184, 0.0493},
		{-0.0085, 0.0400, 0.9685},
	})
)

// WhiteBalance returns the transform that maps the luminance range from onto
// the range to while keeping reference white at the same relative position.
// wTo is the white point of the target space; the black offset is added
// along it. The offset is never negative.
func WhiteBalance(from, to Luminance, wTo Chromaticity) Matrix[XYZ, XYZ] {
	a := (from.Max - from.Min) / (to.Max - to.Min) *
		(to.White - from.Min) / (from.White - from.Min)
	d := math.Max(0, (from.Min-to.Min)/(to.Max-to.Min))
	s := a - d
	w := wTo.xyz()
	return NewMatrix[XYZ, XYZ]([3][4]float64{
		{s, 0, 0, d * w[0]},
		{0, s, 0, d * w[1]},
		{0, 0, s, d * w[2]},
	})
}

// BradfordAdaptation returns the chromatic adaptation transform from white
// point from to white point to.
func BradfordAdaptation(from, to Chromaticity) Matrix[XYZ, XYZ] {
	rf := bradfordFromXYZ.Apply(from.xyz())
	rt := bradfordFromXYZ.Apply(to.xyz())
	gain := linear[Bradford, Bradford]([3][3]float64{
		{rt[0] / rf[0], 0, 0},
		{0, rt[1] / rf[1], 0},
		{0, 0, rt[2] / rf[2]},
	})
	return Mul(xyzFromBradford, Mul(gain, bradfordFromXYZ))
}
