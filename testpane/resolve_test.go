package testpane

import (
	"testing"

	"github.com/mahkoh/wayland-color-test/cmm"
)

// TestResolveMatchesDescription verifies that cached resolution returns
// what the description itself resolves to.
func TestResolveMatchesDescription(t *testing.T) {
	lum := cmm.Luminance{Min: 0.1, Max: 600, White: 250}
	for _, d := range []cmm.Description{
		cmm.NoDescription{},
		cmm.ScRGB{},
		cmm.Parametric{Primaries: cmm.PrimariesDisplayP3.Primaries(), TransferFunction: cmm.Named(cmm.TransferGamma22)},
		cmm.Parametric{Primaries: cmm.PrimariesBT2020.Primaries(), TransferFunction: cmm.Named(cmm.TransferST2084PQ), Luminance: &lum},
		cmm.Parametric{Primaries: cmm.SRGB(), TransferFunction: cmm.Power(2.4), Luminance: &lum},
	} {
		wantM, wantTF := d.Resolve()
		for range 2 {
			m, tf := resolve(d)
			if m != wantM || tf != wantTF {
				t.Errorf("resolve(%#v) = %v, %v, want %v, %v", d, m, tf, wantM, wantTF)
			}
		}
	}
}

// TestResolveKeyIgnoresLuminancePointer verifies that equal luminance values
// behind different pointers share a cache entry.
func TestResolveKeyIgnoresLuminancePointer(t *testing.T) {
	a := cmm.Luminance{Min: 0.5, Max: 300, White: 120}
	b := a
	da := cmm.Parametric{Primaries: cmm.SRGB(), TransferFunction: cmm.Named(cmm.TransferBT1886), Luminance: &a}
	db := da
	db.Luminance = &b
	if keyOf(da) != keyOf(db) {
		t.Error("keyOf() differs for equal luminance values")
	}

	before := resolved.Stats().Hits
	resolve(da)
	resolve(db)
	if hits := resolved.Stats().Hits - before; hits < 1 {
		t.Errorf("cache hits = %d, want at least 1", hits)
	}
}

// TestResolveKeyDistinguishesKinds verifies that descriptions resolving to
// different matrices never share a key.
func TestResolveKeyDistinguishesKinds(t *testing.T) {
	keys := map[descKey]string{}
	for name, d := range map[string]cmm.Description{
		"none":  cmm.NoDescription{},
		"scrgb": cmm.ScRGB{},
		"srgb":  cmm.Parametric{Primaries: cmm.SRGB(), TransferFunction: cmm.Named(cmm.TransferSRGB)},
		"pq":    cmm.Parametric{Primaries: cmm.SRGB(), TransferFunction: cmm.Named(cmm.TransferST2084PQ)},
	} {
		k := keyOf(d)
		if other, ok := keys[k]; ok {
			t.Errorf("%s and %s share key %+v", name, other, k)
		}
		keys[k] = name
	}
}
