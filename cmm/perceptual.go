package cmm

// xyzFromLMS maps the cone responses the shader decodes into XYZ.
var xyzFromLMS = linear[XYZ, LMS]([3][3]float64{
	{1.22701, -0.5578, 0.281256},
	{-0.0405802, 1.11226, -0.0716767},
	{-0.0763813, -0.421482, 1.58616},
})

// XYZFromLMS returns the fixed LMS to XYZ matrix.
func XYZFromLMS() Matrix[XYZ, LMS] {
	return xyzFromLMS
}

// MatrixFromPerceptual returns the matrix the fill shader uses to turn
// decoded LMS values into linear RGB of the space described by p and l.
//
// Colors are defined relative to sRGB primaries and sRGB luminance. White
// balance is applied only when l differs from LuminanceSRGB and Bradford
// adaptation only when the white point of p differs from D65.
func MatrixFromPerceptual(p Primaries, l Luminance) Matrix[Local, LMS] {
	srgb := SRGB()
	_, mat := p.Matrices()
	if l != LuminanceSRGB {
		mat = Mul(mat, WhiteBalance(LuminanceSRGB, l, p.WP))
	}
	if p.WP != srgb.WP {
		mat = Mul(mat, BradfordAdaptation(srgb.WP, p.WP))
	}
	return Mul(mat, xyzFromLMS)
}
