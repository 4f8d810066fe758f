// Package cmm derives the color transform matrices used by the fill shader.
//
// All derivations are pure float64 arithmetic. Matrices are tagged with the
// color spaces they map between, so composing a Matrix[XYZ, Local] with a
// Matrix[LMS, XYZ] does not compile. The result is narrowed to float32 only
// when it is written into a GPU parameter block (see Matrix.F32).
//
// None of the functions in this package validate their inputs. Degenerate
// primaries (a collinear primary triangle) or inverted luminance ranges
// produce non-finite matrix entries. Callers that accept values from an
// untrusted source can use Primaries.Validate and Luminance.Validate first.
package cmm
