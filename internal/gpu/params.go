package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/image/math/f32"

	"github.com/mahkoh/wayland-color-test/cmm"
	"github.com/mahkoh/wayland-color-test/scene"
)

// Parameter block layout, matching struct FillData in the fill shaders:
//
//	lms_to_local mat4x4<f32>        offset   0, column major
//	rect         vec4<f32>          offset  64, x1 y1 x2 y2
//	color        array<vec4<f32>,4> offset  80
//	eotf         u32                offset 144
//	eotf_args    vec4<f32>          offset 160
const (
	paramsMatrixOffset = 0
	paramsRectOffset   = 64
	paramsColorOffset  = 80
	paramsEOTFOffset   = 144
	paramsArgsOffset   = 160

	// ParamsSize is the size of one parameter block, a multiple of 16.
	ParamsSize = 176
)

// FillParams is the parameter block of one rectangle draw.
type FillParams struct {
	// LMSToLocal is row major.
	LMSToLocal     f32.Mat4
	X1, Y1, X2, Y2 float32
	Colors         [4]scene.Lab
	EOTF           uint32
	EOTFArgs       [4]float32
}

// NewFillParams returns the parameter block drawing r with matrix m and
// transfer function tf.
func NewFillParams(r scene.Rect, m cmm.Matrix[cmm.Local, cmm.LMS], tf cmm.TransferFunction) FillParams {
	return FillParams{
		LMSToLocal: m.F32(),
		X1:         r.X1,
		Y1:         r.Y1,
		X2:         r.X2,
		Y2:         r.Y2,
		Colors:     r.Colors,
		EOTF:       tf.ShaderCode(),
		EOTFArgs:   tf.Args(),
	}
}

func putFloat(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}

func getFloat(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

// Marshal encodes p in the shader layout.
func (p *FillParams) Marshal() []byte {
	b := make([]byte, ParamsSize)
	for r := range 4 {
		for c := range 4 {
			putFloat(b, paramsMatrixOffset+(c*4+r)*4, p.LMSToLocal[r*4+c])
		}
	}
	for i, v := range [4]float32{p.X1, p.Y1, p.X2, p.Y2} {
		putFloat(b, paramsRectOffset+i*4, v)
	}
	for i, c := range p.Colors {
		for j, v := range c {
			putFloat(b, paramsColorOffset+(i*4+j)*4, v)
		}
	}
	binary.LittleEndian.PutUint32(b[paramsEOTFOffset:], p.EOTF)
	for i, v := range p.EOTFArgs {
		putFloat(b, paramsArgsOffset+i*4, v)
	}
	return b
}

// UnmarshalFillParams decodes a parameter block written by Marshal.
func UnmarshalFillParams(b []byte) (FillParams, error) {
	var p FillParams
	if len(b) != ParamsSize {
		return p, fmt.Errorf("gpu: parameter block is %d bytes, want %d", len(b), ParamsSize)
	}
	for r := range 4 {
		for c := range 4 {
			p.LMSToLocal[r*4+c] = getFloat(b, paramsMatrixOffset+(c*4+r)*4)
		}
	}
	p.X1 = getFloat(b, paramsRectOffset)
	p.Y1 = getFloat(b, paramsRectOffset+4)
	p.X2 = getFloat(b, paramsRectOffset+8)
	p.Y2 = getFloat(b, paramsRectOffset+12)
	for i := range p.Colors {
		for j := range p.Colors[i] {
			p.Colors[i][j] = getFloat(b, paramsColorOffset+(i*4+j)*4)
		}
	}
	p.EOTF = binary.LittleEndian.Uint32(b[paramsEOTFOffset:])
	for i := range p.EOTFArgs {
		p.EOTFArgs[i] = getFloat(b, paramsArgsOffset+i*4)
	}
	return p, nil
}
