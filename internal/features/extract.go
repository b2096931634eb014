package features

import (
	"image"

	"github.com/ironsheep/product-vision/internal/imaging"
)

// CanvasSize mirrors the working canvas side length for callers that
// only import this package.
const CanvasSize = imaging.CanvasSize

// Extract decodes raw image bytes and computes its FeatureRecord.
//
// This is a convenience wrapper around ExtractImage for callers holding
// undecoded bytes. It fails with *ExtractionError if the bytes cannot be
// decoded.
func Extract(data []byte) (*FeatureRecord, error) {
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, &ExtractionError{Stage: "decode", Err: err}
	}
	return ExtractImage(img)
}

// ExtractImage computes the FeatureRecord of a decoded image.
//
// The image is normalized onto the fixed square canvas (cover-fit: scaled
// to fill, overflow cropped) and then passed through four independent
// analysis stages: color histogram, edge statistics, texture statistics,
// and shape analysis. The original pre-normalization dimensions are
// recorded alongside.
//
// Extraction is deterministic: the same input always yields an identical
// record. It fails with *ExtractionError if the image is degenerate or a
// stage has no pixels to work on.
func ExtractImage(img image.Image) (*FeatureRecord, error) {
	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()
	if origWidth <= 0 || origHeight <= 0 {
		return nil, extractionErrorf("normalize", "degenerate image dimensions %dx%d", origWidth, origHeight)
	}

	normalized := imaging.Normalize(img)
	nb := normalized.Bounds()
	if nb.Dx() <= 0 || nb.Dy() <= 0 {
		return nil, extractionErrorf("normalize", "empty working canvas")
	}

	hist, err := colorHistogram(normalized)
	if err != nil {
		return nil, err
	}

	gray := imaging.GrayMatrix(normalized)

	edges, err := edgeFeatures(gray)
	if err != nil {
		return nil, err
	}

	texture, err := textureFeatures(gray)
	if err != nil {
		return nil, err
	}

	shape, err := shapeFeatures(gray)
	if err != nil {
		return nil, err
	}

	return &FeatureRecord{
		ColorHistogram: hist,
		Edges:          edges,
		Texture:        texture,
		Shape:          shape,
		Dimensions:     Dimensions{Width: origWidth, Height: origHeight},
	}, nil
}
