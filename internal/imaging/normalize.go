package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
)

// CanvasSize is the side length in pixels of the square working canvas
// every image is normalized to before feature extraction. Changing it
// invalidates all stored feature records.
const CanvasSize = 224

// Decode parses raw image bytes into an image.Image.
//
// Supported formats are PNG, JPEG, and GIF. An error is returned if the
// bytes are empty or cannot be decoded as any registered format.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("degenerate image dimensions %dx%d", bounds.Dx(), bounds.Dy())
	}

	return img, nil
}

// Normalize scales an image onto the fixed CanvasSize x CanvasSize canvas
// using cover-fit semantics: the image is scaled to completely fill the
// canvas and any overflow is cropped around the center.
func Normalize(img image.Image) *image.NRGBA {
	return imaging.Fill(img, CanvasSize, CanvasSize, imaging.Center, imaging.Lanczos)
}

// GrayMatrix converts an image to a row-major luminance matrix.
//
// Values are in the 0-255 range using the BT.601 weights. The matrix is
// indexed as m[y][x].
func GrayMatrix(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, height)
	for y := 0; y < height; y++ {
		gray[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			gray[y][x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return gray
}
