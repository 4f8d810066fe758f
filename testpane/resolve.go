package testpane

import (
	"github.com/mahkoh/wayland-color-test/cmm"
	"github.com/mahkoh/wayland-color-test/internal/cache"
)

// descKey identifies a description by value. Parametric descriptions with
// equal primaries, transfer function and effective luminance share a key.
type descKey struct {
	kind      uint8
	primaries cmm.Primaries
	tf        cmm.TransferFunction
	luminance cmm.Luminance
}

const (
	kindNone uint8 = iota
	kindScRGB
	kindParametric
)

type resolution struct {
	matrix cmm.Matrix[cmm.Local, cmm.LMS]
	tf     cmm.TransferFunction
}

// resolved memoizes description resolution across panes. Compositors
// resend the same few descriptions on every configure.
var resolved = cache.New[descKey, resolution](64)

func keyOf(d cmm.Description) descKey {
	switch d := d.(type) {
	case cmm.ScRGB:
		return descKey{kind: kindScRGB}
	case cmm.Parametric:
		return descKey{
			kind:      kindParametric,
			primaries: d.Primaries,
			tf:        d.TransferFunction,
			luminance: d.EffectiveLuminance(),
		}
	}
	return descKey{kind: kindNone}
}

// sameDescription reports whether a and b are equal by value. Unlike keyOf
// it tells an explicit luminance apart from the default one.
func sameDescription(a, b cmm.Description) bool {
	pa, okA := a.(cmm.Parametric)
	pb, okB := b.(cmm.Parametric)
	if !okA || !okB {
		return a == b
	}
	if pa.Primaries != pb.Primaries || pa.TransferFunction != pb.TransferFunction {
		return false
	}
	if pa.Luminance == nil || pb.Luminance == nil {
		return pa.Luminance == pb.Luminance
	}
	return *pa.Luminance == *pb.Luminance
}

// resolve returns the matrix and transfer function of d.
func resolve(d cmm.Description) (cmm.Matrix[cmm.Local, cmm.LMS], cmm.TransferFunction) {
	r := resolved.GetOrCreate(keyOf(d), func() resolution {
		m, tf := d.Resolve()
		return resolution{matrix: m, tf: tf}
	})
	return r.matrix, r.tf
}
