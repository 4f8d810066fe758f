package cmm

import (
	"fmt"

	"golang.org/x/image/math/f32"
	"golang.org/x/image/math/f64"
)

// Space tags a Matrix with the color space it maps from or to.
type Space interface {
	Local | XYZ | LMS | Bradford
}

type (
	// Local is the linear RGB space defined by a set of primaries.
	Local struct{}
	// XYZ is CIE 1931 XYZ.
	XYZ struct{}
	// LMS is the cone response space the shader decodes colors into.
	LMS struct{}
	// Bradford is the cone response space of the Bradford transform.
	Bradford struct{}
)

// Matrix is a 3x4 affine transform from space From to space To.
//
// The zero Matrix maps every vector to zero. Matrix values are comparable;
// == compares the entries exactly.
type Matrix[To, From Space] struct {
	m [3][4]float64
}

// NewMatrix returns the affine matrix with the given rows. The fourth column
// is the translation.
func NewMatrix[To, From Space](rows [3][4]float64) Matrix[To, From] {
	return Matrix[To, From]{m: rows}
}

// linear returns the matrix with the given 3x3 linear part and no
// translation.
func linear[To, From Space](m [3][3]float64) Matrix[To, From] {
	return Matrix[To, From]{m: [3][4]float64{
		{m[0][0], m[0][1], m[0][2], 0},
		{m[1][0], m[1][1], m[1][2], 0},
		{m[2][0], m[2][1], m[2][2], 0},
	}}
}

// Identity returns the identity transform on space S.
func Identity[S Space]() Matrix[S, S] {
	return Matrix[S, S]{m: [3][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}}
}

// Mul returns a*b, the transform that applies b first and then a.
//
// The translation of b is transformed by the linear part of a and added to
// the translation of a.
func Mul[To, Via, From Space](a Matrix[To, Via], b Matrix[Via, From]) Matrix[To, From] {
	var out Matrix[To, From]
	for r := range 3 {
		for c := range 4 {
			v := a.m[r][0]*b.m[0][c] + a.m[r][1]*b.m[1][c] + a.m[r][2]*b.m[2][c]
			if c == 3 {
				v += a.m[r][3]
			}
			out.m[r][c] = v
		}
	}
	return out
}

// Apply multiplies v by the linear part of m. The translation is not applied.
func (m Matrix[To, From]) Apply(v f64.Vec3) f64.Vec3 {
	var out f64.Vec3
	for r := range 3 {
		out[r] = m.m[r][0]*v[0] + m.m[r][1]*v[1] + m.m[r][2]*v[2]
	}
	return out
}

// Transform applies the full affine transform to v.
func (m Matrix[To, From]) Transform(v f64.Vec3) f64.Vec3 {
	out := m.Apply(v)
	for r := range 3 {
		out[r] += m.m[r][3]
	}
	return out
}

// Rows returns the matrix entries.
func (m Matrix[To, From]) Rows() [3][4]float64 {
	return m.m
}

// At returns the entry in row r and column c.
func (m Matrix[To, From]) At(r, c int) float64 {
	return m.m[r][c]
}

// F32 narrows m to a row-major 4x4 single precision matrix whose last row is
// (0, 0, 0, 1).
func (m Matrix[To, From]) F32() f32.Mat4 {
	var out f32.Mat4
	for r := range 3 {
		for c := range 4 {
			out[r*4+c] = float32(m.m[r][c])
		}
	}
	out[15] = 1
	return out
}

// String formats m as three bracketed rows.
func (m Matrix[To, From]) String() string {
	return fmt.Sprintf("[%v %v %v %v]\n[%v %v %v %v]\n[%v %v %v %v]",
		m.m[0][0], m.m[0][1], m.m[0][2], m.m[0][3],
		m.m[1][0], m.m[1][1], m.m[1][2], m.m[1][3],
		m.m[2][0], m.m[2][1], m.m[2][2], m.m[2][3])
}
