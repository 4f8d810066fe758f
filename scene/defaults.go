package scene

// Defaults of the operator controls.
const (
	DefaultLumen     = ReferenceWhite
	DefaultLightness = 0.7
	DefaultChroma    = 0.2
	DefaultBoxSize   = 50
	DefaultGridSize  = 4
	DefaultAlpha     = 0.5

	MaxLumen    = 1000
	MaxChroma   = 0.5
	MaxGridSize = 25
)

var (
	black = Color{}
	white = Color{Lumen: DefaultLumen, Lightness: 1}
)

// Hued returns the default color with the given hue in degrees.
func Hued(hue float64) Color {
	return Color{Lumen: DefaultLumen, Lightness: DefaultLightness, Chroma: DefaultChroma, Hue: hue}
}

// DefaultFill is reference white.
func DefaultFill() Fill {
	return Fill{Color: white}
}

// DefaultLeftRight blends between opposite hues.
func DefaultLeftRight() LeftRight {
	return LeftRight{Left: Hued(0), Right: Hued(180)}
}

// DefaultTopBottom blends between opposite hues.
func DefaultTopBottom() TopBottom {
	return TopBottom{Top: Hued(90), Bottom: Hued(270)}
}

// DefaultFourCorners places four hues at the corners.
func DefaultFourCorners() FourCorners {
	return FourCorners{Colors: [4]Color{Hued(0), Hued(90), Hued(270), Hued(180)}}
}

// DefaultCenterBox is a white box on black.
func DefaultCenterBox() CenterBox {
	return CenterBox{Background: black, Foreground: white, Size: DefaultBoxSize}
}

// DefaultGrid is a black and white checkerboard.
func DefaultGrid() Grid {
	return Grid{Background: black, Foreground: white, Rows: DefaultGridSize, Cols: DefaultGridSize}
}

// DefaultBlend blends two hues at half opacity.
func DefaultBlend() Blend {
	return Blend{Background: Hued(40), Foreground: Hued(140), Alpha: DefaultAlpha}
}

// Defaults returns the default scene of every pattern keyed by Name.
func Defaults() map[string]Scene {
	out := map[string]Scene{}
	for _, s := range []Scene{
		DefaultFill(), DefaultLeftRight(), DefaultTopBottom(), DefaultFourCorners(),
		DefaultCenterBox(), DefaultGrid(), DefaultBlend(),
	} {
		out[Name(s)] = s
	}
	return out
}
