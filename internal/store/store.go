package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ironsheep/product-vision/internal/detection"
	"github.com/ironsheep/product-vision/internal/features"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("not found")

// Store is a SQLite-backed implementation of detection.FeatureStore plus
// the minimal catalog operations the HTTP API exposes.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures the schema exists. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		price REAL NOT NULL DEFAULT 0,
		image_path TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS training_images (
		id TEXT PRIMARY KEY,
		product_id INTEGER NOT NULL REFERENCES products(id),
		path TEXT NOT NULL,
		features TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_training_images_product ON training_images(product_id);
	CREATE TABLE IF NOT EXISTS product_models (
		product_id INTEGER PRIMARY KEY REFERENCES products(id),
		status TEXT NOT NULL,
		model TEXT,
		accuracy REAL NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		trained_at TEXT
	);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateProduct inserts a catalog product and fills in its assigned ID.
func (s *Store) CreateProduct(ctx context.Context, p *detection.ProductSummary) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, stock, price, image_path) VALUES (?, ?, ?, ?)`,
		p.Name, p.Stock, p.Price, p.ImagePath)
	if err != nil {
		return fmt.Errorf("inserting product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading product id: %w", err)
	}
	p.ID = id
	return nil
}

// Product implements detection.FeatureStore.
func (s *Store) Product(ctx context.Context, id int64) (*detection.ProductSummary, error) {
	var p detection.ProductSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, stock, price, image_path FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Stock, &p.Price, &p.ImagePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying product %d: %w", id, err)
	}
	return &p, nil
}

// Products implements detection.FeatureStore.
func (s *Store) Products(ctx context.Context) ([]detection.ProductSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, stock, price, image_path FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []detection.ProductSummary
	for rows.Next() {
		var p detection.ProductSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock, &p.Price, &p.ImagePath); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// AddTrainingImage implements detection.FeatureStore.
func (s *Store) AddTrainingImage(ctx context.Context, img *detection.TrainingImage) error {
	var featuresJSON sql.NullString
	if img.Features != nil {
		data, err := json.Marshal(img.Features)
		if err != nil {
			return fmt.Errorf("encoding feature record: %w", err)
		}
		featuresJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO training_images (id, product_id, path, features, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		img.ID, img.ProductID, img.Path, featuresJSON, img.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting training image: %w", err)
	}
	return nil
}

// TrainingImages implements detection.FeatureStore. Rows whose stored
// feature blob cannot be decoded are returned with nil Features rather
// than failing the listing.
func (s *Store) TrainingImages(ctx context.Context, productID int64) ([]detection.TrainingImage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, path, features, created_at
		 FROM training_images WHERE product_id = ? ORDER BY created_at`, productID)
	if err != nil {
		return nil, fmt.Errorf("querying training images: %w", err)
	}
	defer rows.Close()

	var images []detection.TrainingImage
	for rows.Next() {
		var img detection.TrainingImage
		var featuresJSON sql.NullString
		var createdAt string
		if err := rows.Scan(&img.ID, &img.ProductID, &img.Path, &featuresJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning training image: %w", err)
		}
		if featuresJSON.Valid {
			var record features.FeatureRecord
			if err := json.Unmarshal([]byte(featuresJSON.String), &record); err == nil {
				img.Features = &record
			}
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			img.CreatedAt = t
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// CountTrainingImages implements detection.FeatureStore.
func (s *Store) CountTrainingImages(ctx context.Context, productID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM training_images WHERE product_id = ?`, productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting training images: %w", err)
	}
	return count, nil
}

// Model implements detection.FeatureStore; returns nil when the product
// has no model row.
func (s *Store) Model(ctx context.Context, productID int64) (*detection.ProductModel, error) {
	var m detection.ProductModel
	var modelJSON sql.NullString
	var trainedAt sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT product_id, status, model, accuracy, error, trained_at
		 FROM product_models WHERE product_id = ?`, productID).
		Scan(&m.ProductID, &m.Status, &modelJSON, &m.Accuracy, &m.Error, &trainedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying model %d: %w", productID, err)
	}

	if modelJSON.Valid && modelJSON.String != "" {
		var aggregate features.AggregatedModel
		if err := json.Unmarshal([]byte(modelJSON.String), &aggregate); err != nil {
			return nil, fmt.Errorf("decoding model %d: %w", productID, err)
		}
		m.Model = &aggregate
	}
	if trainedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, trainedAt.String); err == nil {
			m.TrainedAt = t
		}
	}
	return &m, nil
}

// SaveModel implements detection.FeatureStore; the model row is replaced
// wholesale.
func (s *Store) SaveModel(ctx context.Context, model *detection.ProductModel) error {
	var modelJSON sql.NullString
	if model.Model != nil {
		data, err := json.Marshal(model.Model)
		if err != nil {
			return fmt.Errorf("encoding model: %w", err)
		}
		modelJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO product_models (product_id, status, model, accuracy, error, trained_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET
			status = excluded.status,
			model = excluded.model,
			accuracy = excluded.accuracy,
			error = excluded.error,
			trained_at = excluded.trained_at`,
		model.ProductID, string(model.Status), modelJSON, model.Accuracy, model.Error,
		model.TrainedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("saving model: %w", err)
	}
	return nil
}

// SetModelStatus implements detection.FeatureStore. Only status and
// error change; the stored aggregate (if any) is kept so a pending model
// still shows its previous training output until retrained.
func (s *Store) SetModelStatus(ctx context.Context, productID int64, status detection.ModelStatus, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO product_models (product_id, status, error) VALUES (?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error`,
		productID, string(status), errMsg)
	if err != nil {
		return fmt.Errorf("updating model status: %w", err)
	}
	return nil
}
