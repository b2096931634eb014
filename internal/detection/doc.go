// Package detection orchestrates product matching and model training on
// top of the feature pipeline.
//
// The Detector answers "which products does this image look like":
// it extracts the query's features, compares them against every
// candidate product's stored per-image records and aggregated model, and
// returns the confident matches ranked best-first. Detection is
// read-only over the store.
//
// The Trainer owns the write side: it files uploaded training images
// (persisting one feature record per image) and aggregates a product's
// records into its model, driving the model status through
// pending -> training -> completed, or failed when anything goes wrong.
//
// Both operate through an explicit FeatureStore interface passed in at
// construction; the package holds no ambient state. Feature extraction
// is CPU-bound, so both share a bounded worker gate that limits
// concurrent extractions and enforces a per-image processing timeout.
package detection
