// Package colortest renders color-managed test patterns for HDR and
// wide-gamut displays.
//
// # Overview
//
// A test pane shows one of a few simple scenes: a solid fill, split
// halves, four corners, a centered box, a grid of hues or a blend test.
// Colors are authored in a perceptual space (lightness, chroma, hue and
// luminance in cd/m²) and converted on the GPU into whatever color space
// the compositor assigns to the pane's surface.
//
// # Packages
//
//   - cmm: primaries, luminance ranges, transfer functions and the typed
//     affine matrices that map the perceptual LMS space to a surface's
//     local color space.
//   - scene: scene parameters and their compilation into rectangles with
//     per-corner colors.
//   - testpane: the pane state machine. It tracks the surface size, color
//     description and scene, and renders a frame when something changed.
//   - internal/gpu: the device context and presentable surfaces, drawing
//     rectangles into RGBA16F swapchains through a Driver.
//   - internal/preview: a CPU rasterizer with the same color math, used for
//     TIFF previews and tests.
//
// # Rendering a Pane
//
//	drv, err := gpu.OpenHAL()
//	if err != nil {
//	    return err
//	}
//	dev, err := gpu.NewDevice(drv)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	main, err := dev.CreateSurface(target)
//	...
//	pane := testpane.New(main, blend, testpane.WithScene(scene.DefaultGrid()))
//	pane.Configure(width, height)
//	pane.SetDescription(cmm.Parametric{...})
//	if pane.Dirty() {
//	    err = pane.Frame()
//	}
//
// # Logging
//
// Nothing is logged by default. Use [SetLogger] to route diagnostics to a
// [log/slog] logger.
package colortest
