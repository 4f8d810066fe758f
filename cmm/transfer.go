package cmm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NamedTransferFunction identifies a well-known transfer function.
type NamedTransferFunction uint8

const (
	TransferSRGB NamedTransferFunction = iota
	TransferLinear
	TransferST2084PQ
	TransferBT1886
	TransferGamma22
	TransferGamma28
	TransferST240
	TransferExtSRGB
	TransferLog100
	TransferLog316
	TransferST428
)

var namedTransfer = [...]struct {
	name string
	code uint32
}{
	TransferSRGB:     {"srgb", 4},
	TransferLinear:   {"linear", 1},
	TransferST2084PQ: {"st2084-pq", 2},
	TransferBT1886:   {"bt1886", 3},
	TransferGamma22:  {"gamma22", 4},
	TransferGamma28:  {"gamma28", 5},
	TransferST240:    {"st240", 6},
	TransferExtSRGB:  {"ext-srgb", 4},
	TransferLog100:   {"log100", 8},
	TransferLog316:   {"log316", 9},
	TransferST428:    {"st428", 10},
}

// Shader selector codes. The named curves use the codes in namedTransfer.
const (
	shaderCodeLinear uint32 = 1
	shaderCodePower  uint32 = 11
)

// DefaultPowerExponent is the exponent of a power curve when none is given.
const DefaultPowerExponent = 2.2

// AllNamedTransferFunctions returns every NamedTransferFunction in
// declaration order.
func AllNamedTransferFunctions() []NamedTransferFunction {
	out := make([]NamedTransferFunction, len(namedTransfer))
	for i := range out {
		out[i] = NamedTransferFunction(i)
	}
	return out
}

func (n NamedTransferFunction) String() string {
	if int(n) >= len(namedTransfer) {
		return fmt.Sprintf("NamedTransferFunction(%d)", n)
	}
	return namedTransfer[n].name
}

// MarshalText implements encoding.TextMarshaler.
func (n NamedTransferFunction) MarshalText() ([]byte, error) {
	if int(n) >= len(namedTransfer) {
		return nil, fmt.Errorf("cmm: unknown transfer function %d", n)
	}
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NamedTransferFunction) UnmarshalText(text []byte) error {
	for i, e := range namedTransfer {
		if e.name == string(text) {
			*n = NamedTransferFunction(i)
			return nil
		}
	}
	return fmt.Errorf("cmm: unknown transfer function %q", text)
}

// TransferFunction is either a named curve or a pure power curve.
// The zero value is the sRGB curve.
type TransferFunction struct {
	Named NamedTransferFunction
	// Power selects the power curve with exponent Exponent. Named is ignored.
	Power    bool
	Exponent float64
}

// Named returns the named transfer function n.
func Named(n NamedTransferFunction) TransferFunction {
	return TransferFunction{Named: n}
}

// Power returns the power curve with the given exponent.
func Power(exponent float64) TransferFunction {
	return TransferFunction{Power: true, Exponent: exponent}
}

// ShaderCode returns the selector the fill shader uses for tf.
func (tf TransferFunction) ShaderCode() uint32 {
	if tf.Power {
		return shaderCodePower
	}
	if int(tf.Named) >= len(namedTransfer) {
		return shaderCodeLinear
	}
	return namedTransfer[tf.Named].code
}

// Args returns the shader arguments of tf.
func (tf TransferFunction) Args() [4]float32 {
	if !tf.Power {
		return [4]float32{}
	}
	return [4]float32{float32(tf.Exponent), 0, 0, 0}
}

// DefaultLuminance returns the luminance range a description with transfer
// function tf has when it does not carry one.
func (tf TransferFunction) DefaultLuminance() Luminance {
	if !tf.Power {
		switch tf.Named {
		case TransferST2084PQ:
			return LuminancePQ
		case TransferBT1886:
			return LuminanceBT1886
		}
	}
	return LuminanceSRGB
}

// PQ constants from SMPTE ST 2084.
const (
	pqM1 = 0.1593017578125
	pqM2 = 78.84375
	pqC1 = 0.8359375
	pqC2 = 18.8515625
	pqC3 = 18.6875
)

// Encode converts a linear value normalized to the range of tf into the
// encoded signal. It evaluates the same curves as the fill shader.
func (tf TransferFunction) Encode(v float64) float64 {
	switch tf.ShaderCode() {
	case 1:
		return v
	case 2:
		p := math.Pow(math.Max(v, 0), pqM1)
		return math.Pow((pqC1+pqC2*p)/(1+pqC3*p), pqM2)
	case 3:
		return signedPow(v, 1/2.4)
	case 4:
		return signedPow(v, 1/2.2)
	case 5:
		return signedPow(v, 1/2.8)
	case 6:
		if v < 0.0228 {
			return 4 * v
		}
		return 1.1115*math.Pow(v, 0.45) - 0.1115
	case 8:
		if v < 0.01 {
			return 0
		}
		return 1 + math.Log10(v)/2
	case 9:
		if v < math.Sqrt(10)/1000 {
			return 0
		}
		return 1 + math.Log10(v)/2.5
	case 10:
		return math.Pow(math.Max(48*v/52.37, 0), 1/2.6)
	case 11:
		return signedPow(v, 1/tf.Exponent)
	}
	return v
}

func signedPow(v, e float64) float64 {
	if v < 0 {
		return -math.Pow(-v, e)
	}
	return math.Pow(v, e)
}

func (tf TransferFunction) String() string {
	if tf.Power {
		return "pow:" + strconv.FormatFloat(tf.Exponent, 'g', -1, 64)
	}
	return tf.Named.String()
}

// MarshalText implements encoding.TextMarshaler.
func (tf TransferFunction) MarshalText() ([]byte, error) {
	if !tf.Power {
		return tf.Named.MarshalText()
	}
	return []byte(tf.String()), nil
}

// UnmarshalText accepts a named curve or "pow" optionally followed by
// ":exponent".
func (tf *TransferFunction) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "pow" {
		*tf = Power(DefaultPowerExponent)
		return nil
	}
	if e, ok := strings.CutPrefix(s, "pow:"); ok {
		exp, err := strconv.ParseFloat(e, 64)
		if err != nil {
			return fmt.Errorf("cmm: parse power exponent: %w", err)
		}
		if exp <= 0 || !finite(exp) {
			return fmt.Errorf("cmm: invalid power exponent %v", exp)
		}
		*tf = Power(exp)
		return nil
	}
	var n NamedTransferFunction
	if err := n.UnmarshalText(text); err != nil {
		return err
	}
	*tf = Named(n)
	return nil
}
