package features

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"reflect"
	"testing"
)

func TestExtract_Determinism(t *testing.T) {
	data := encodePNG(t, createSquareImage(200, 200, 60))

	first, err := Extract(data)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	second, err := Extract(data)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("extracting the same bytes twice produced different records")
	}
}

func TestExtract_HistogramNormalization(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
	}{
		{"red square", createSquareImage(200, 200, 60)},
		{"uniform gray", createSolidImage(100, 100, color.RGBA{128, 128, 128, 255})},
		{"blue circle", createCircleImage(200, 200, 50)},
		{"non-square", createSolidImage(320, 100, color.RGBA{20, 200, 90, 255})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := Extract(encodePNG(t, tt.img))
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}

			for name, bins := range map[string][]float64{
				"red":   record.ColorHistogram.Red,
				"green": record.ColorHistogram.Green,
				"blue":  record.ColorHistogram.Blue,
			} {
				if len(bins) != HistogramBins {
					t.Errorf("%s channel has %d bins, want %d", name, len(bins), HistogramBins)
				}
				sum := 0.0
				for _, b := range bins {
					sum += b
				}
				if math.Abs(sum-1.0) > 1e-6 {
					t.Errorf("%s channel sums to %.9f, want 1.0", name, sum)
				}
			}
		})
	}
}

func TestExtract_UniformImage(t *testing.T) {
	// A fully uniform light image has no gradients, no texture, and no
	// dark pixels.
	record, err := Extract(encodePNG(t, createSolidImage(100, 100, color.RGBA{200, 200, 200, 255})))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if record.Edges.Variance != 0 {
		t.Errorf("edge variance: got %g, want 0", record.Edges.Variance)
	}
	if record.Edges.EdgeDensity != 0 {
		t.Errorf("edge density: got %g, want 0", record.Edges.EdgeDensity)
	}
	if record.Texture.MeanVariance != 0 {
		t.Errorf("texture mean variance: got %g, want 0", record.Texture.MeanVariance)
	}
	if record.Shape.Holes.Count != 0 {
		t.Errorf("hole count: got %d, want 0", record.Shape.Holes.Count)
	}
	if record.Shape.Metrics.Perimeter != 0 {
		t.Errorf("perimeter: got %g, want 0", record.Shape.Metrics.Perimeter)
	}
	if record.Shape.Metrics.Compactness != 0 {
		t.Errorf("compactness with zero perimeter: got %g, want 0", record.Shape.Metrics.Compactness)
	}
}

func TestExtract_DarkSquare(t *testing.T) {
	record, err := Extract(encodePNG(t, createSquareImage(200, 200, 60)))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if record.Dimensions.Width != 200 || record.Dimensions.Height != 200 {
		t.Errorf("dimensions: got %dx%d, want 200x200", record.Dimensions.Width, record.Dimensions.Height)
	}
	if record.Shape.Holes.Count != 1 {
		t.Errorf("hole count: got %d, want 1 (one dark square)", record.Shape.Holes.Count)
	}
	if record.Shape.Area <= 0 {
		t.Errorf("dark area fraction: got %g, want > 0", record.Shape.Area)
	}
	if record.Shape.AspectRatio != 1 {
		t.Errorf("canvas aspect ratio: got %g, want 1", record.Shape.AspectRatio)
	}
	if record.Edges.EdgeDensity <= 0 {
		t.Errorf("edge density: got %g, want > 0 (square outline)", record.Edges.EdgeDensity)
	}

	// The square is centered, so the single hole's centroid should sit
	// near the canvas center.
	pos := record.Shape.Holes.Positions[0]
	center := float64(CanvasSize) / 2
	if math.Abs(pos.X-center) > 10 || math.Abs(pos.Y-center) > 10 {
		t.Errorf("hole centroid: got (%.1f, %.1f), want near (%.1f, %.1f)", pos.X, pos.Y, center, center)
	}
}

func TestExtract_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not an image at all")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.data)
			if err == nil {
				t.Fatal("expected extraction error, got nil")
			}
			var extractErr *ExtractionError
			if !errors.As(err, &extractErr) {
				t.Errorf("expected *ExtractionError, got %T", err)
			}
		})
	}
}

// Helper functions

// createSolidImage returns a single-color image.
func createSolidImage(width, height int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createSquareImage returns a white image with a centered dark red
// square of the given half-size.
func createSquareImage(width, height, half int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	cx, cy := width/2, height/2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x >= cx-half && x < cx+half && y >= cy-half && y < cy+half {
				img.Set(x, y, color.RGBA{200, 20, 20, 255})
			} else {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

// createCircleImage returns a white image with a centered dark blue
// circle of the given radius.
func createCircleImage(width, height, radius int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	cx, cy := width/2, height/2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				img.Set(x, y, color.RGBA{20, 20, 200, 255})
			} else {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}
