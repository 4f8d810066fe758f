package preview

import (
	"fmt"
	"image"
	"io"

	"github.com/nfnt/resize"
	"golang.org/x/image/tiff"
)

// WriteTIFF encodes img as a deflate compressed TIFF. 16 bit images keep
// their full precision.
func WriteTIFF(w io.Writer, img image.Image) error {
	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return fmt.Errorf("preview: encode tiff: %w", err)
	}
	return nil
}

// Thumbnail scales img down to fit into maxWidth x maxHeight, keeping the
// aspect ratio. Images that already fit are returned unchanged.
func Thumbnail(img image.Image, maxWidth, maxHeight uint) image.Image {
	return resize.Thumbnail(maxWidth, maxHeight, img, resize.Bilinear)
}
