package features

import "fmt"

// Tunable constants that define the shape of extracted feature vectors.
// They are compile-time constants rather than runtime configuration:
// changing any of them invalidates every stored feature record.
const (
	// HistogramBins is the number of equal-width buckets per color channel.
	HistogramBins = 16

	// BinarizeThreshold is the grayscale cutoff for shape analysis.
	// Pixels with luminance <= BinarizeThreshold are treated as dark
	// (foreground).
	BinarizeThreshold = 128

	// MinHoleArea is the minimum pixel count for a connected dark region
	// to be kept; smaller regions are discarded as noise.
	MinHoleArea = 10
)

// Dimensions records the original (pre-normalization) size of an image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ColorHistogram holds per-channel normalized bin frequencies.
// Each channel has HistogramBins entries summing to 1.
type ColorHistogram struct {
	Red   []float64 `json:"red"`
	Green []float64 `json:"green"`
	Blue  []float64 `json:"blue"`
}

// EdgeFeatures summarizes the gradient magnitude map of the grayscale
// canvas. EdgeDensity is the fraction of pixels whose gradient exceeds
// the mean magnitude.
type EdgeFeatures struct {
	Mean        float64 `json:"mean"`
	Variance    float64 `json:"variance"`
	Max         float64 `json:"max"`
	Min         float64 `json:"min"`
	EdgeDensity float64 `json:"edge_density"`
}

// TextureFeatures summarizes the 3x3 local-neighborhood variance map of
// the grayscale canvas.
type TextureFeatures struct {
	MeanVariance float64 `json:"mean_variance"`
	MaxVariance  float64 `json:"max_variance"`
	MinVariance  float64 `json:"min_variance"`
}

// Position is a region centroid in canvas coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HoleStats describes the connected dark regions found during shape
// analysis. Areas and Positions are parallel slices, one entry per
// retained region.
type HoleStats struct {
	Count     int        `json:"count"`
	Areas     []float64  `json:"areas"`
	Positions []Position `json:"positions"`
}

// ShapeMetrics holds overall silhouette measurements of the binarized
// canvas. Area is the dark-pixel fraction of the canvas, Perimeter the
// count of dark pixels bordering a light 4-neighbor. Compactness is
// 4*pi*Area/Perimeter^2 (0 when the perimeter is 0); Circularity is the
// isoperimetric quotient over the dark pixel count, clamped to [0,1].
type ShapeMetrics struct {
	Area        float64 `json:"area"`
	Perimeter   float64 `json:"perimeter"`
	Compactness float64 `json:"compactness"`
	Circularity float64 `json:"circularity"`
}

// ShapeFeatures groups the shape descriptors of an image. AspectRatio is
// the width/height ratio of the working canvas; Area duplicates the
// dark-pixel fraction for direct use in comparisons.
type ShapeFeatures struct {
	Holes       *HoleStats    `json:"holes,omitempty"`
	Metrics     *ShapeMetrics `json:"shape_metrics,omitempty"`
	AspectRatio float64       `json:"aspect_ratio"`
	Area        float64       `json:"area"`
}

// FeatureRecord is the complete numeric fingerprint of a single image.
//
// The four feature groups are pointers so that partially populated
// records (for example, rows whose stored shape features were lost) can
// be represented and still compared over their remaining groups. A
// record is immutable once extracted.
type FeatureRecord struct {
	ColorHistogram *ColorHistogram  `json:"color_histogram,omitempty"`
	Edges          *EdgeFeatures    `json:"edge_features,omitempty"`
	Texture        *TextureFeatures `json:"texture_features,omitempty"`
	Shape          *ShapeFeatures   `json:"shape_features,omitempty"`
	Dimensions     Dimensions       `json:"dimensions"`
}

// ExtractionError reports a failure during feature extraction: the image
// could not be decoded, the working canvas was degenerate, or a pipeline
// stage ran out of data. Stage names the pipeline step that failed.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("feature extraction failed at %s", e.Stage)
	}
	return fmt.Sprintf("feature extraction failed at %s: %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// extractionErrorf builds an ExtractionError with a formatted cause.
func extractionErrorf(stage, format string, args ...interface{}) *ExtractionError {
	return &ExtractionError{Stage: stage, Err: fmt.Errorf(format, args...)}
}
