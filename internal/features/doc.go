// Package features implements the image feature pipeline used for
// product matching: extraction of per-image feature records, similarity
// comparison between records, and aggregation of multiple records into a
// per-product model.
//
// # Feature Records
//
// A FeatureRecord is the numeric fingerprint of a single image. It is
// computed from a fixed 224x224 normalized canvas and holds four
// independent feature groups:
//
//   - Color: per-channel 16-bin histograms (discrete probability
//     distributions, each summing to 1)
//   - Edge: statistics over a gradient magnitude map
//   - Texture: statistics over 3x3 local-neighborhood variances
//   - Shape: connected dark regions ("holes"), dark-area coverage,
//     perimeter, and compactness of a binarized image
//
// Extraction is a pure function: identical bytes always yield an
// identical record.
//
// # Comparison
//
// Compare blends the four groups into a single score in [0,1]. Each
// group is optional; groups missing on either side are skipped and the
// weighted average is renormalized over the groups that were actually
// computed. A record with only some groups present still produces a
// meaningful score instead of being penalized with zeros.
//
// # Aggregation
//
// Aggregate folds a set of records into a per-product model holding the
// arithmetic mean and population variance of every numeric leaf. The
// nested record structure is lowered to a small closed variant tree
// (scalar, vector, or named children) and walked generically, so the
// aggregate has the same shape as a record and can be compared against a
// query directly.
package features
