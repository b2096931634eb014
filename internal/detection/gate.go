package detection

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/ironsheep/product-vision/internal/features"
)

// Defaults for the extraction worker gate.
const (
	// DefaultExtractionTimeout bounds a single image's processing time.
	// Extraction is a handful of fixed-size pixel passes and normally
	// finishes in well under a second; a pathological image that does
	// not is reported as an extraction failure instead of occupying a
	// worker indefinitely.
	DefaultExtractionTimeout = 10 * time.Second

	// DefaultMaxConcurrentExtractions bounds how many extractions run at
	// once across all requests.
	DefaultMaxConcurrentExtractions = 4
)

// extractionGate serializes access to the CPU-bound extraction pipeline.
// A buffered channel acts as a counting semaphore; each extraction also
// runs under the configured timeout.
type extractionGate struct {
	slots   chan struct{}
	timeout time.Duration
}

func newExtractionGate(maxConcurrent int, timeout time.Duration) *extractionGate {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentExtractions
	}
	if timeout <= 0 {
		timeout = DefaultExtractionTimeout
	}
	return &extractionGate{
		slots:   make(chan struct{}, maxConcurrent),
		timeout: timeout,
	}
}

// extract runs the feature extractor for one decoded image under the
// gate's concurrency and time limits.
func (g *extractionGate) extract(ctx context.Context, img image.Image) (*features.FeatureRecord, error) {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-g.slots }()

	type outcome struct {
		record *features.FeatureRecord
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		record, err := features.ExtractImage(img)
		done <- outcome{record: record, err: err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.record, out.err
	case <-timer.C:
		return nil, &features.ExtractionError{
			Stage: "timeout",
			Err:   fmt.Errorf("image processing exceeded %s", g.timeout),
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
