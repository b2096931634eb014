package detection

import (
	"context"
	"time"

	"github.com/ironsheep/product-vision/internal/features"
)

// ModelStatus tracks the lifecycle of a product's aggregated model.
type ModelStatus string

const (
	// StatusPending marks a model whose training set changed since the
	// last run (or that has never been trained despite having images).
	StatusPending ModelStatus = "pending"

	// StatusTraining marks a run in progress.
	StatusTraining ModelStatus = "training"

	// StatusCompleted marks a model ready for detection.
	StatusCompleted ModelStatus = "completed"

	// StatusFailed marks a run that errored; the stored error describes
	// the cause.
	StatusFailed ModelStatus = "failed"
)

// ProductSummary is the slice of the product catalog the matching
// subsystem needs. The catalog itself (stock movements, pricing rules)
// is owned elsewhere.
type ProductSummary struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Stock     int     `json:"stock"`
	Price     float64 `json:"price"`
	ImagePath string  `json:"image_path,omitempty"`
}

// TrainingImage is one stored training sample: the persisted image file
// plus the feature record extracted from it at upload time. Features may
// be nil for rows whose stored blob was lost or corrupted; such rows are
// skipped during comparison and aggregation.
type TrainingImage struct {
	ID        string                  `json:"id"`
	ProductID int64                   `json:"product_id"`
	Path      string                  `json:"path"`
	Features  *features.FeatureRecord `json:"features,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

// ProductModel is the stored aggregated model row for a product,
// replaced wholesale on every (re-)train.
type ProductModel struct {
	ProductID int64                     `json:"product_id"`
	Status    ModelStatus               `json:"status"`
	Model     *features.AggregatedModel `json:"model,omitempty"`
	Accuracy  float64                   `json:"accuracy"`
	Error     string                    `json:"error,omitempty"`
	TrainedAt time.Time                 `json:"trained_at"`
}

// Completed reports whether the model is trained and usable for
// detection.
func (m *ProductModel) Completed() bool {
	return m != nil && m.Status == StatusCompleted && m.Model != nil
}

// FeatureStore is the persistence boundary of the matching subsystem.
//
// Implementations provide durable storage for products, per-image
// feature records, and per-product aggregated models. Detection only
// reads; training writes records and models. Transactional guarantees
// are the store's concern.
type FeatureStore interface {
	// Product returns the catalog summary for one product.
	Product(ctx context.Context, id int64) (*ProductSummary, error)

	// Products lists all catalog products.
	Products(ctx context.Context) ([]ProductSummary, error)

	// AddTrainingImage persists one training image row.
	AddTrainingImage(ctx context.Context, img *TrainingImage) error

	// TrainingImages returns all training image rows of a product.
	TrainingImages(ctx context.Context, productID int64) ([]TrainingImage, error)

	// CountTrainingImages returns the number of stored training images
	// for a product.
	CountTrainingImages(ctx context.Context, productID int64) (int, error)

	// Model returns the product's model row, or nil when it has none.
	Model(ctx context.Context, productID int64) (*ProductModel, error)

	// SaveModel inserts or replaces the product's model row.
	SaveModel(ctx context.Context, model *ProductModel) error

	// SetModelStatus updates only the status and error message of the
	// product's model row, creating the row if it does not exist.
	SetModelStatus(ctx context.Context, productID int64, status ModelStatus, errMsg string) error
}
