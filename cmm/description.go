package cmm

// Description is a resolved color description: NoDescription, ScRGB or
// Parametric.
type Description interface {
	// Resolve returns the shader matrix and the transfer function.
	Resolve() (Matrix[Local, LMS], TransferFunction)
	isDescription()
}

// NoDescription renders device native sRGB.
type NoDescription struct{}

// ScRGB is the extended linear sRGB space used by Windows.
type ScRGB struct{}

// Parametric is a description built from primaries, a transfer function and
// an optional luminance range.
type Parametric struct {
	Primaries        Primaries
	TransferFunction TransferFunction
	// Luminance overrides the default range of TransferFunction. Max is
	// ignored for PQ, which always spans 10000 cd/m² above Min.
	Luminance *Luminance
}

func (NoDescription) isDescription() {}
func (ScRGB) isDescription()         {}
func (Parametric) isDescription()    {}

// Resolve implements Description.
func (NoDescription) Resolve() (Matrix[Local, LMS], TransferFunction) {
	return MatrixFromPerceptual(SRGB(), LuminanceSRGB), Named(TransferSRGB)
}

// Resolve implements Description.
func (ScRGB) Resolve() (Matrix[Local, LMS], TransferFunction) {
	return MatrixFromPerceptual(SRGB(), LuminanceWindowsScRGB), Named(TransferLinear)
}

// Resolve implements Description.
func (p Parametric) Resolve() (Matrix[Local, LMS], TransferFunction) {
	return MatrixFromPerceptual(p.Primaries, p.EffectiveLuminance()), p.TransferFunction
}

// EffectiveLuminance returns the luminance range used for p.
func (p Parametric) EffectiveLuminance() Luminance {
	lum := p.TransferFunction.DefaultLuminance()
	if p.Luminance == nil {
		return lum
	}
	lum.Min = p.Luminance.Min
	lum.White = p.Luminance.White
	if !p.TransferFunction.Power && p.TransferFunction.Named == TransferST2084PQ {
		lum.Max = lum.Min + 10000
	} else {
		lum.Max = p.Luminance.Max
	}
	return lum
}
