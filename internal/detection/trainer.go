package detection

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/product-vision/internal/features"
	"github.com/ironsheep/product-vision/internal/imaging"
)

// DefaultMinTrainingImages is the minimum number of stored training
// images required before a model may be trained.
const DefaultMinTrainingImages = 3

// InsufficientDataError reports a training request against a product
// with too few stored training images. Nothing is mutated when it is
// returned.
type InsufficientDataError struct {
	ProductID int64
	Have      int
	Need      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("product %d has %d training images, need at least %d", e.ProductID, e.Have, e.Need)
}

// ImageSaver persists uploaded training image files. The saved path is
// recorded on the training image row.
type ImageSaver interface {
	SaveImage(img image.Image, id string) (string, error)
}

// Upload is one incoming training image file.
type Upload struct {
	Filename string
	Data     []byte
}

// UploadResult reports the outcome for one uploaded file. Error is empty
// for accepted images.
type UploadResult struct {
	Filename string `json:"filename"`
	ID       string `json:"id,omitempty"`
	Path     string `json:"path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UploadReport summarizes one upload request.
type UploadReport struct {
	ProductID  int64          `json:"product_id"`
	Results    []UploadResult `json:"results"`
	Accepted   int            `json:"accepted"`
	ImageCount int            `json:"image_count"` // total stored images after this upload
}

// Trainer ingests training images and aggregates per-product models.
type Trainer struct {
	store     FeatureStore
	images    ImageSaver
	gate      *extractionGate
	minImages int
}

// NewTrainer builds a Trainer over a feature store and an image saver.
func NewTrainer(store FeatureStore, images ImageSaver, opts Options) *Trainer {
	minImages := opts.MinTrainingImages
	if minImages <= 0 {
		minImages = DefaultMinTrainingImages
	}
	return &Trainer{
		store:     store,
		images:    images,
		gate:      newExtractionGate(opts.MaxConcurrentExtractions, opts.ExtractionTimeout),
		minImages: minImages,
	}
}

// AddTrainingImages extracts and persists a feature record per accepted
// upload and saves the image file alongside.
//
// Files that cannot be decoded or processed are reported per-file and do
// not fail the batch. When at least one image is accepted, a previously
// completed or failed model is reset to pending so the stale aggregate
// is retrained before it is trusted again.
func (t *Trainer) AddTrainingImages(ctx context.Context, productID int64, uploads []Upload) (*UploadReport, error) {
	if _, err := t.store.Product(ctx, productID); err != nil {
		return nil, fmt.Errorf("looking up product %d: %w", productID, err)
	}

	report := &UploadReport{
		ProductID: productID,
		Results:   make([]UploadResult, 0, len(uploads)),
	}

	for _, upload := range uploads {
		result := UploadResult{Filename: upload.Filename}

		id, path, err := t.ingest(ctx, productID, upload)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.ID = id
			result.Path = path
			report.Accepted++
		}
		report.Results = append(report.Results, result)
	}

	if report.Accepted > 0 {
		if err := t.resetStaleModel(ctx, productID); err != nil {
			return nil, err
		}
	}

	count, err := t.store.CountTrainingImages(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("counting training images: %w", err)
	}
	report.ImageCount = count

	return report, nil
}

// ingest decodes, extracts, and persists a single upload.
func (t *Trainer) ingest(ctx context.Context, productID int64, upload Upload) (id, path string, err error) {
	img, err := imaging.Decode(upload.Data)
	if err != nil {
		return "", "", err
	}

	record, err := t.gate.extract(ctx, img)
	if err != nil {
		return "", "", err
	}

	id = uuid.NewString()
	path, err = t.images.SaveImage(img, id)
	if err != nil {
		return "", "", fmt.Errorf("saving image file: %w", err)
	}

	err = t.store.AddTrainingImage(ctx, &TrainingImage{
		ID:        id,
		ProductID: productID,
		Path:      path,
		Features:  record,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", "", fmt.Errorf("storing feature record: %w", err)
	}

	return id, path, nil
}

// resetStaleModel moves a completed or failed model back to pending
// after the training set changed.
func (t *Trainer) resetStaleModel(ctx context.Context, productID int64) error {
	model, err := t.store.Model(ctx, productID)
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}
	if model == nil {
		return nil
	}
	if model.Status == StatusCompleted || model.Status == StatusFailed {
		if err := t.store.SetModelStatus(ctx, productID, StatusPending, ""); err != nil {
			return fmt.Errorf("resetting model status: %w", err)
		}
	}
	return nil
}

// Train aggregates a product's stored feature records into its model,
// replacing any prior one.
//
// Fewer than the minimum training images fails with
// *InsufficientDataError and mutates nothing. Otherwise the model status
// moves to training, and to completed on success. Every failure path —
// including a panic inside aggregation — lands the status on failed so a
// model is never left stuck in training.
func (t *Trainer) Train(ctx context.Context, productID int64) (model *ProductModel, err error) {
	if _, err := t.store.Product(ctx, productID); err != nil {
		return nil, fmt.Errorf("looking up product %d: %w", productID, err)
	}

	count, err := t.store.CountTrainingImages(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("counting training images: %w", err)
	}
	if count < t.minImages {
		return nil, &InsufficientDataError{ProductID: productID, Have: count, Need: t.minImages}
	}

	if err := t.store.SetModelStatus(ctx, productID, StatusTraining, ""); err != nil {
		return nil, fmt.Errorf("marking model training: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("training panicked: %v", r)
		}
		if err != nil {
			t.markFailed(ctx, productID, err)
			model = nil
		}
	}()

	images, err := t.store.TrainingImages(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("loading training images: %w", err)
	}

	records := make([]*features.FeatureRecord, 0, len(images))
	for _, img := range images {
		if img.Features != nil {
			records = append(records, img.Features)
		}
	}

	aggregate := features.Aggregate(records)

	model = &ProductModel{
		ProductID: productID,
		Status:    StatusCompleted,
		Model:     aggregate,
		Accuracy:  aggregate.Accuracy,
		TrainedAt: time.Now().UTC(),
	}
	if err := t.store.SaveModel(ctx, model); err != nil {
		return nil, fmt.Errorf("saving model: %w", err)
	}

	return model, nil
}

// markFailed records the failed status; best effort, since it already
// runs on an error path.
func (t *Trainer) markFailed(ctx context.Context, productID int64, cause error) {
	if err := t.store.SetModelStatus(ctx, productID, StatusFailed, cause.Error()); err != nil {
		log.Printf("Warning: marking model %d failed: %v", productID, err)
	}
}
