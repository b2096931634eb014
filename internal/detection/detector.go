package detection

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/ironsheep/product-vision/internal/features"
	"github.com/ironsheep/product-vision/internal/imaging"
)

// Detection defaults; overridable through Options.
const (
	// DefaultConfidenceThreshold is the minimum confidence for a
	// candidate to appear in results.
	DefaultConfidenceThreshold = 0.3

	// DefaultMaxMatches caps the number of returned matches.
	DefaultMaxMatches = 10

	// paletteSize is the number of dominant colors reported in the
	// query summary.
	paletteSize = 5
)

// Match is one scored candidate product.
//
// BestMatch is the best similarity against any single stored record (or
// the aggregated model), AvgSimilarity the mean over the per-image
// comparisons, and ModelSimilarity the similarity against the aggregated
// model when one is completed. Confidence is the max of the three.
type Match struct {
	Product         ProductSummary `json:"product"`
	Confidence      float64        `json:"confidence"`
	BestMatch       float64        `json:"best_match"`
	AvgSimilarity   float64        `json:"avg_similarity"`
	ModelSimilarity *float64       `json:"model_similarity,omitempty"`
}

// QuerySummary describes the query image back to the caller.
type QuerySummary struct {
	Dimensions     features.Dimensions      `json:"dimensions"`
	Shape          *features.ShapeFeatures  `json:"shape_features,omitempty"`
	DominantColors []imaging.ColorFrequency `json:"dominant_colors,omitempty"`
}

// Result is the outcome of one detection request. Matches is never nil;
// zero candidates clearing the threshold yields an empty list, not an
// error.
type Result struct {
	Matches []Match      `json:"matches"`
	Query   QuerySummary `json:"query_features"`
}

// Options tunes a Detector or Trainer. Zero values select the defaults.
type Options struct {
	ConfidenceThreshold      float64
	MaxMatches               int
	MinTrainingImages        int
	ExtractionTimeout        time.Duration
	MaxConcurrentExtractions int
}

// Detector matches query images against trained products. It never
// mutates stored data.
type Detector struct {
	store      FeatureStore
	gate       *extractionGate
	threshold  float64
	maxMatches int
}

// NewDetector builds a Detector over a feature store.
func NewDetector(store FeatureStore, opts Options) *Detector {
	threshold := opts.ConfidenceThreshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	maxMatches := opts.MaxMatches
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}
	return &Detector{
		store:      store,
		gate:       newExtractionGate(opts.MaxConcurrentExtractions, opts.ExtractionTimeout),
		threshold:  threshold,
		maxMatches: maxMatches,
	}
}

// Detect extracts the query image's features and ranks candidate
// products by similarity.
//
// A candidate is any product with a completed aggregated model or at
// least one stored feature record. Candidates whose stored records all
// lack features and that have no model are skipped rather than scored as
// zero. Matches below the confidence threshold are dropped; the rest are
// sorted by descending confidence and capped.
func (d *Detector) Detect(ctx context.Context, imageData []byte) (*Result, error) {
	img, err := imaging.Decode(imageData)
	if err != nil {
		return nil, &features.ExtractionError{Stage: "decode", Err: err}
	}

	query, err := d.gate.extract(ctx, img)
	if err != nil {
		return nil, err
	}

	products, err := d.store.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	matches := make([]Match, 0)
	for _, product := range products {
		match, ok, err := d.scoreCandidate(ctx, product, query)
		if err != nil {
			// One broken candidate must not poison the whole match
			// list.
			log.Printf("Warning: scoring product %d failed: %v", product.ID, err)
			continue
		}
		if ok && match.Confidence > d.threshold {
			matches = append(matches, match)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	if len(matches) > d.maxMatches {
		matches = matches[:d.maxMatches]
	}

	return &Result{
		Matches: matches,
		Query: QuerySummary{
			Dimensions:     query.Dimensions,
			Shape:          query.Shape,
			DominantColors: imaging.DominantColors(imaging.Normalize(img), paletteSize),
		},
	}, nil
}

// scoreCandidate compares the query against one product's stored records
// and model. ok is false when the product is not a candidate (no model,
// no comparable records).
func (d *Detector) scoreCandidate(ctx context.Context, product ProductSummary, query *features.FeatureRecord) (Match, bool, error) {
	images, err := d.store.TrainingImages(ctx, product.ID)
	if err != nil {
		return Match{}, false, fmt.Errorf("loading training images: %w", err)
	}
	model, err := d.store.Model(ctx, product.ID)
	if err != nil {
		return Match{}, false, fmt.Errorf("loading model: %w", err)
	}

	var best, sum float64
	compared := 0
	for _, img := range images {
		if img.Features == nil {
			continue
		}
		score := features.Compare(query, img.Features)
		if score > best {
			best = score
		}
		sum += score
		compared++
	}

	avg := 0.0
	if compared > 0 {
		avg = sum / float64(compared)
	}

	var modelScore *float64
	if model.Completed() {
		if avgRecord := model.Model.AverageRecord(); avgRecord != nil {
			s := features.Compare(query, avgRecord)
			modelScore = &s
			if s > best {
				best = s
			}
		}
	}

	if compared == 0 && modelScore == nil {
		return Match{}, false, nil
	}

	confidence := best
	if avg > confidence {
		confidence = avg
	}

	return Match{
		Product:         product,
		Confidence:      confidence,
		BestMatch:       best,
		AvgSimilarity:   avg,
		ModelSimilarity: modelScore,
	}, true, nil
}
