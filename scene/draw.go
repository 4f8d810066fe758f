package scene

// Rect is an axis aligned rectangle in normalized device coordinates with
// y pointing down. Colors are the corners in triangle strip order:
// top-right, top-left, bottom-right, bottom-left.
type Rect struct {
	X1, Y1, X2, Y2 float32
	Colors         [4]Lab
}

// Draw is the encoded content of one surface.
type Draw interface {
	// Rects returns the rectangles in paint order.
	Rects() []Rect
}

// DrawFill fills the canvas.
type DrawFill struct {
	Color Encoded
}

// DrawLeftRight is a horizontal gradient.
type DrawLeftRight struct {
	Left, Right Encoded
}

// DrawTopBottom is a vertical gradient.
type DrawTopBottom struct {
	Top, Bottom Encoded
}

// DrawFour has four independent corners.
type DrawFour struct {
	Colors [4]Encoded
}

// DrawCenterBox draws a box of Size times each half axis.
type DrawCenterBox struct {
	Background, Foreground Encoded
	Size                   float32
}

// DrawGrid is a checkerboard.
type DrawGrid struct {
	Background, Foreground Encoded
	Rows, Cols             int
}

// DrawBlendLeft draws the translucent foreground over the bottom half of a
// transparent canvas.
type DrawBlendLeft struct {
	Foreground Encoded
}

// DrawBlendRight draws the opaque background on the left half, the opaque
// foreground in the top right quadrant and the straight alpha composite of
// the two in the bottom right quadrant. The alpha of Foreground is the
// blend factor.
type DrawBlendRight struct {
	Background, Foreground Encoded
}

func full(c [4]Lab) Rect {
	return Rect{X1: -1, Y1: -1, X2: 1, Y2: 1, Colors: c}
}

func solid(c Lab) [4]Lab {
	return [4]Lab{c, c, c, c}
}

// Rects implements Draw.
func (d DrawFill) Rects() []Rect {
	return []Rect{full(solid(d.Color.Lab()))}
}

// Rects implements Draw.
func (d DrawLeftRight) Rects() []Rect {
	l, r := d.Left.Lab(), d.Right.Lab()
	return []Rect{full([4]Lab{r, l, r, l})}
}

// Rects implements Draw.
func (d DrawTopBottom) Rects() []Rect {
	t, b := d.Top.Lab(), d.Bottom.Lab()
	return []Rect{full([4]Lab{t, t, b, b})}
}

// Rects implements Draw.
func (d DrawFour) Rects() []Rect {
	var c [4]Lab
	for i, e := range d.Colors {
		c[i] = e.Lab()
	}
	return []Rect{full(c)}
}

// Rects implements Draw.
func (d DrawCenterBox) Rects() []Rect {
	s := d.Size
	return []Rect{
		full(solid(d.Background.Lab())),
		{X1: -s, Y1: -s, X2: s, Y2: s, Colors: solid(d.Foreground.Lab())},
	}
}

// Rects implements Draw. Grids with a non-positive dimension have only the
// background. Dimensions above MaxGridSize are clamped to it.
func (d DrawGrid) Rects() []Rect {
	rects := []Rect{full(solid(d.Background.Lab()))}
	if d.Rows <= 0 || d.Cols <= 0 {
		return rects
	}
	rows, cols := min(d.Rows, MaxGridSize), min(d.Cols, MaxGridSize)
	fg := solid(d.Foreground.Lab())
	height := 2 / float32(rows)
	width := 2 / float32(cols)
	for row := range rows {
		y1 := -1 + height*float32(row)
		for col := range cols {
			if (row+col)%2 == 0 {
				continue
			}
			x1 := -1 + width*float32(col)
			rects = append(rects, Rect{X1: x1, Y1: y1, X2: x1 + width, Y2: y1 + height, Colors: fg})
		}
	}
	return rects
}

// Rects implements Draw.
func (d DrawBlendLeft) Rects() []Rect {
	return []Rect{{X1: -1, Y1: 0, X2: 1, Y2: 1, Colors: solid(d.Foreground.Lab())}}
}

// Rects implements Draw.
func (d DrawBlendRight) Rects() []Rect {
	b := d.Background.Lab()
	f := d.Foreground.Lab()
	a := f[3]
	r := f
	for i := range 3 {
		r[i] = r[i]*a + (1-a)*b[i]
	}
	b[3], f[3], r[3] = 1, 1, 1
	return []Rect{
		{X1: -1, Y1: -1, X2: 0, Y2: 1, Colors: solid(b)},
		{X1: 0, Y1: -1, X2: 1, Y2: 0, Colors: solid(f)},
		{X1: 0, Y1: 0, X2: 1, Y2: 1, Colors: solid(r)},
	}
}
