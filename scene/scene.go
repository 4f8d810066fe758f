package scene

// Scene is a test pattern selected by the operator.
type Scene interface {
	isScene()
}

// Fill fills the canvas with one color.
type Fill struct {
	Color Color
}

// LeftRight is a horizontal gradient.
type LeftRight struct {
	Left, Right Color
}

// TopBottom is a vertical gradient.
type TopBottom struct {
	Top, Bottom Color
}

// FourCorners interpolates between four corner colors in the order
// top-right, top-left, bottom-right, bottom-left.
type FourCorners struct {
	Colors [4]Color
}

// CenterBox draws a box centered on a background. Size is the percentage of
// each half axis covered by the box.
type CenterBox struct {
	Background, Foreground Color
	Size                   float64
}

// Grid is a checkerboard of Rows by Cols cells. The top-left cell has the
// background color. Rows and Cols are clamped to MaxGridSize.
type Grid struct {
	Background, Foreground Color
	Rows, Cols             int
}

// Blend shows Foreground at Alpha over Background twice: once blended by
// the compositor on a separate surface and once blended on the CPU.
type Blend struct {
	Background, Foreground Color
	Alpha                  float64
}

func (Fill) isScene()        {}
func (LeftRight) isScene()   {}
func (TopBottom) isScene()   {}
func (FourCorners) isScene() {}
func (CenterBox) isScene()   {}
func (Grid) isScene()        {}
func (Blend) isScene()       {}

// Split returns the draw for the main surface and, for Blend scenes, the
// draw for the blend surface. blend is nil for all other scenes.
func Split(s Scene) (main, blend Draw) {
	switch s := s.(type) {
	case Fill:
		return DrawFill{Color: s.Color.Opaque()}, nil
	case LeftRight:
		return DrawLeftRight{Left: s.Left.Opaque(), Right: s.Right.Opaque()}, nil
	case TopBottom:
		return DrawTopBottom{Top: s.Top.Opaque(), Bottom: s.Bottom.Opaque()}, nil
	case FourCorners:
		var d DrawFour
		for i, c := range s.Colors {
			d.Colors[i] = c.Opaque()
		}
		return d, nil
	case CenterBox:
		return DrawCenterBox{
			Background: s.Background.Opaque(),
			Foreground: s.Foreground.Opaque(),
			Size:       float32(s.Size / 100),
		}, nil
	case Grid:
		return DrawGrid{
			Background: s.Background.Opaque(),
			Foreground: s.Foreground.Opaque(),
			Rows:       s.Rows,
			Cols:       s.Cols,
		}, nil
	case Blend:
		fg := s.Foreground.Encode(s.Alpha)
		return DrawBlendRight{Background: s.Background.Opaque(), Foreground: fg},
			DrawBlendLeft{Foreground: fg}
	}
	return nil, nil
}

// Compile returns the rectangles of the main surface draw of s.
func Compile(s Scene) []Rect {
	main, _ := Split(s)
	if main == nil {
		return nil
	}
	return main.Rects()
}

// Name returns a short name for the pattern of s.
func Name(s Scene) string {
	switch s.(type) {
	case Fill:
		return "fill"
	case LeftRight:
		return "left-right"
	case TopBottom:
		return "top-bottom"
	case FourCorners:
		return "four-corners"
	case CenterBox:
		return "center-box"
	case Grid:
		return "grid"
	case Blend:
		return "blend"
	}
	return "unknown"
}
