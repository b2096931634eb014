// Package store persists the product catalog, per-image feature
// records, and per-product aggregated models in a SQLite database.
//
// Feature records and models are stored as JSON blobs: their nested
// shape is owned by the features package and the store does not inspect
// it. One row per training image, one model row per product (replaced on
// retrain). Uploaded training image files are written to a data
// directory as PNG, re-encoded from the decoded upload regardless of its
// original format.
package store
