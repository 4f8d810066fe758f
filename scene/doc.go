// Package scene compiles test patterns into filled rectangles.
//
// A Scene is what the operator selects: a pattern plus its colors given as
// lightness, chroma, hue and luminance. Split turns a Scene into one or two
// Draws, one per surface, with every color encoded for the shader. A Draw
// expands into Rects in normalized device coordinates, x to the right and y
// pointing down, each with four corner colors in Lab form.
package scene
