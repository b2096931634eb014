package detection

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestDetect_EmptyCatalog(t *testing.T) {
	st := newMemStore()
	detector := NewDetector(st, Options{})

	result, err := detector.Detect(context.Background(), encodePNG(t, createSquareImage(200, 200, 60)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.Matches == nil {
		t.Error("matches must be an empty list, not nil")
	}
	if len(result.Matches) != 0 {
		t.Errorf("matches: got %d, want 0", len(result.Matches))
	}
	if result.Query.Dimensions.Width != 200 || result.Query.Dimensions.Height != 200 {
		t.Errorf("query dimensions: got %+v, want 200x200", result.Query.Dimensions)
	}
	if result.Query.Shape == nil {
		t.Error("query summary should include shape features")
	}
}

func TestDetect_InvalidImage(t *testing.T) {
	detector := NewDetector(newMemStore(), Options{})

	_, err := detector.Detect(context.Background(), []byte("not an image"))
	if err == nil {
		t.Fatal("expected error for undecodable query")
	}
}

// Scenario: three near-identical training images of a red square, train,
// then query with a fourth near-identical image.
func TestDetect_TrainedProductMatches(t *testing.T) {
	st := newMemStore()
	trainer := NewTrainer(st, discardSaver{}, Options{})
	detector := NewDetector(st, Options{})
	ctx := context.Background()

	productID := st.addProduct("Red Widget")
	uploadSquares(t, ctx, trainer, productID, 60, 61, 59)

	if _, err := trainer.Train(ctx, productID); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	result, err := detector.Detect(ctx, encodePNG(t, createSquareImage(200, 200, 62)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if len(result.Matches) == 0 {
		t.Fatal("expected the trained product to match")
	}
	top := result.Matches[0]
	if top.Product.ID != productID {
		t.Errorf("top match product: got %d, want %d", top.Product.ID, productID)
	}
	if top.Confidence <= DefaultConfidenceThreshold {
		t.Errorf("confidence: got %g, want > %g", top.Confidence, DefaultConfidenceThreshold)
	}
	if top.ModelSimilarity == nil {
		t.Error("trained product should report a model similarity")
	}
	if top.BestMatch < top.AvgSimilarity {
		t.Errorf("best match %g cannot be below average %g", top.BestMatch, top.AvgSimilarity)
	}
}

// Scenario: a red-square product and a blue-circle product; a blue
// circle query must rank the circle product strictly higher.
func TestDetect_RanksVisuallyCloserProductFirst(t *testing.T) {
	st := newMemStore()
	trainer := NewTrainer(st, discardSaver{}, Options{})
	detector := NewDetector(st, Options{})
	ctx := context.Background()

	squareID := st.addProduct("Red Square")
	circleID := st.addProduct("Blue Circle")

	uploadSquares(t, ctx, trainer, squareID, 60, 61, 59)
	uploadCircles(t, ctx, trainer, circleID, 40, 41, 39)

	for _, id := range []int64{squareID, circleID} {
		if _, err := trainer.Train(ctx, id); err != nil {
			t.Fatalf("Train(%d) failed: %v", id, err)
		}
	}

	result, err := detector.Detect(ctx, encodePNG(t, createCircleImage(200, 200, 40)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	scores := make(map[int64]float64)
	for _, m := range result.Matches {
		scores[m.Product.ID] = m.Confidence
	}
	circleScore, ok := scores[circleID]
	if !ok {
		t.Fatal("circle product missing from matches")
	}
	if squareScore, ok := scores[squareID]; ok && circleScore <= squareScore {
		t.Errorf("circle product %.4f must outrank square product %.4f", circleScore, squareScore)
	}
	if len(result.Matches) > 0 && result.Matches[0].Product.ID != circleID {
		t.Errorf("top match: got product %d, want %d", result.Matches[0].Product.ID, circleID)
	}
}

// A product whose only stored record has no features and that has no
// model is skipped entirely, not scored as zero.
func TestDetect_SkipsCandidateWithoutComparableData(t *testing.T) {
	st := newMemStore()
	ctx := context.Background()

	productID := st.addProduct("Corrupted")
	st.images[productID] = []TrainingImage{{ID: "x", ProductID: productID, Path: "gone.png"}}

	detector := NewDetector(st, Options{})
	result, err := detector.Detect(ctx, encodePNG(t, createSquareImage(200, 200, 60)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(result.Matches) != 0 {
		t.Errorf("candidate without features or model must be skipped, got %d matches", len(result.Matches))
	}
}

// A record with missing shape features still contributes through its
// remaining feature groups.
func TestDetect_PartialStoredRecordStillScores(t *testing.T) {
	st := newMemStore()
	trainer := NewTrainer(st, discardSaver{}, Options{})
	ctx := context.Background()

	productID := st.addProduct("Partial")
	uploadSquares(t, ctx, trainer, productID, 60)

	// Strip the shape features off the stored record.
	st.images[productID][0].Features.Shape = nil

	detector := NewDetector(st, Options{})
	result, err := detector.Detect(ctx, encodePNG(t, createSquareImage(200, 200, 60)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("matches: got %d, want 1", len(result.Matches))
	}
	if result.Matches[0].Confidence <= DefaultConfidenceThreshold {
		t.Errorf("confidence from remaining groups: got %g, want > %g",
			result.Matches[0].Confidence, DefaultConfidenceThreshold)
	}
}

func TestDetect_CapsMatches(t *testing.T) {
	st := newMemStore()
	trainer := NewTrainer(st, discardSaver{}, Options{MaxMatches: 2})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		id := st.addProduct(fmt.Sprintf("Widget %d", i))
		uploadSquares(t, ctx, trainer, id, 60)
	}

	detector := NewDetector(st, Options{MaxMatches: 2})
	result, err := detector.Detect(ctx, encodePNG(t, createSquareImage(200, 200, 60)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(result.Matches) != 2 {
		t.Errorf("matches: got %d, want capped at 2", len(result.Matches))
	}
}

// Helper functions and in-memory store

func uploadSquares(t *testing.T, ctx context.Context, trainer *Trainer, productID int64, halves ...int) {
	t.Helper()
	for _, half := range halves {
		report, err := trainer.AddTrainingImages(ctx, productID, []Upload{
			{Filename: fmt.Sprintf("sq-%d.png", half), Data: encodePNG(t, createSquareImage(200, 200, half))},
		})
		if err != nil {
			t.Fatalf("AddTrainingImages failed: %v", err)
		}
		if report.Accepted != 1 {
			t.Fatalf("upload not accepted: %+v", report.Results)
		}
	}
}

func uploadCircles(t *testing.T, ctx context.Context, trainer *Trainer, productID int64, radii ...int) {
	t.Helper()
	for _, radius := range radii {
		report, err := trainer.AddTrainingImages(ctx, productID, []Upload{
			{Filename: fmt.Sprintf("c-%d.png", radius), Data: encodePNG(t, createCircleImage(200, 200, radius))},
		})
		if err != nil {
			t.Fatalf("AddTrainingImages failed: %v", err)
		}
		if report.Accepted != 1 {
			t.Fatalf("upload not accepted: %+v", report.Results)
		}
	}
}

// memStore is an in-memory FeatureStore for tests.
type memStore struct {
	nextID   int64
	products map[int64]ProductSummary
	images   map[int64][]TrainingImage
	models   map[int64]*ProductModel

	saveModelErr error // injected failure for SaveModel
	statusCalls  []ModelStatus
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[int64]ProductSummary),
		images:   make(map[int64][]TrainingImage),
		models:   make(map[int64]*ProductModel),
	}
}

func (s *memStore) addProduct(name string) int64 {
	s.nextID++
	s.products[s.nextID] = ProductSummary{ID: s.nextID, Name: name, Stock: 5, Price: 9.99}
	return s.nextID
}

func (s *memStore) Product(_ context.Context, id int64) (*ProductSummary, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d not found", id)
	}
	return &p, nil
}

func (s *memStore) Products(_ context.Context) ([]ProductSummary, error) {
	out := make([]ProductSummary, 0, len(s.products))
	for id := int64(1); id <= s.nextID; id++ {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memStore) AddTrainingImage(_ context.Context, img *TrainingImage) error {
	s.images[img.ProductID] = append(s.images[img.ProductID], *img)
	return nil
}

func (s *memStore) TrainingImages(_ context.Context, productID int64) ([]TrainingImage, error) {
	return s.images[productID], nil
}

func (s *memStore) CountTrainingImages(_ context.Context, productID int64) (int, error) {
	return len(s.images[productID]), nil
}

func (s *memStore) Model(_ context.Context, productID int64) (*ProductModel, error) {
	return s.models[productID], nil
}

func (s *memStore) SaveModel(_ context.Context, model *ProductModel) error {
	if s.saveModelErr != nil {
		return s.saveModelErr
	}
	s.models[model.ProductID] = model
	return nil
}

func (s *memStore) SetModelStatus(_ context.Context, productID int64, status ModelStatus, errMsg string) error {
	s.statusCalls = append(s.statusCalls, status)
	m, ok := s.models[productID]
	if !ok {
		m = &ProductModel{ProductID: productID}
		s.models[productID] = m
	}
	m.Status = status
	m.Error = errMsg
	return nil
}

// discardSaver pretends to persist image files.
type discardSaver struct{}

func (discardSaver) SaveImage(_ image.Image, id string) (string, error) {
	return "/dev/null/" + id + ".png", nil
}

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
