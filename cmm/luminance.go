package cmm

import (
	"errors"
	"fmt"
)

// Luminance describes the luminance range of a display in cd/m².
// White is the reference white luminance. Min <= White <= Max is expected
// but not enforced.
type Luminance struct {
	Min, Max, White float64
}

var (
	// LuminanceSRGB is the reference viewing condition of sRGB.
	LuminanceSRGB = Luminance{Min: 0.2, Max: 80, White: 80}
	// LuminanceBT1886 is the reference display of ITU-R BT.1886.
	LuminanceBT1886 = Luminance{Min: 0.01, Max: 100, White: 100}
	// LuminancePQ is the range of SMPTE ST 2084 with BT.2408 reference white.
	LuminancePQ = Luminance{Min: 0, Max: 10000, White: 203}
	// LuminanceHLG is the nominal range of hybrid log-gamma.
	LuminanceHLG = Luminance{Min: 0.005, Max: 1000, White: 203}
	// LuminanceWindowsScRGB maps scRGB 1.0 to 80 cd/m² on a 203 cd/m² white.
	LuminanceWindowsScRGB = Luminance{Min: 0, Max: 10000, White: 203.0 / 80.0 * 10000.0}
)

// ErrInvalidLuminance is returned by Luminance.Validate.
var ErrInvalidLuminance = errors.New("cmm: invalid luminance")

// Validate reports whether l is finite and ordered.
func (l Luminance) Validate() error {
	if !finite(l.Min) || !finite(l.Max) || !finite(l.White) {
		return fmt.Errorf("%w: non-finite value in %+v", ErrInvalidLuminance, l)
	}
	if l.Min < 0 {
		return fmt.Errorf("%w: negative minimum %v", ErrInvalidLuminance, l.Min)
	}
	if l.Min >= l.Max {
		return fmt.Errorf("%w: min %v >= max %v", ErrInvalidLuminance, l.Min, l.Max)
	}
	if l.White <= l.Min {
		return fmt.Errorf("%w: white %v <= min %v", ErrInvalidLuminance, l.White, l.Min)
	}
	return nil
}
