package features

import "gonum.org/v1/gonum/stat"

// PlaceholderAccuracy is the value recorded as a trained model's
// accuracy. It is a fixed stub, not a computed metric: the system has no
// held-out data to validate against, so inventing a real accuracy here
// would be misleading.
const PlaceholderAccuracy = 0.85

// AggregatedModel is a per-product centroid + spread summary over the
// feature records of its training images.
//
// AverageFeatures has the same nested shape as a FeatureRecord with every
// numeric leaf replaced by its arithmetic mean across the training set;
// FeatureVariances is the parallel structure of population variances.
// Variances are stored but not consulted at match time; they are kept for
// a possible future spread-aware scoring scheme.
type AggregatedModel struct {
	TrainingImagesCount int     `json:"training_images_count"`
	AverageFeatures     *Node   `json:"average_features"`
	FeatureVariances    *Node   `json:"feature_variances"`
	Accuracy            float64 `json:"accuracy"`
}

// AverageRecord returns the model's average features lifted back into
// record form for comparison against a query. Returns nil when the model
// holds no aggregated features.
func (m *AggregatedModel) AverageRecord() *FeatureRecord {
	if m == nil || m.AverageFeatures == nil {
		return nil
	}
	return RecordFromTree(m.AverageFeatures)
}

// Aggregate folds feature records into an AggregatedModel.
//
// The structure to aggregate is taken from the first record: for every
// path present there, scalar leaves become mean + population variance
// over the records that carry a value at that path, vector leaves are
// averaged element-wise (short vectors contribute 0 at out-of-range
// indices), and nested nodes are recursed into.
//
// Zero records yield an empty aggregate rather than an error; the
// minimum-training-images policy belongs to the caller.
func Aggregate(records []*FeatureRecord) *AggregatedModel {
	trees := make([]*Node, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		trees = append(trees, r.Tree())
	}

	model := &AggregatedModel{
		TrainingImagesCount: len(trees),
		Accuracy:            PlaceholderAccuracy,
	}
	if len(trees) == 0 {
		return model
	}

	model.AverageFeatures, model.FeatureVariances = aggregateNodes(trees)
	return model
}

// aggregateNodes reduces parallel nodes to their mean and population
// variance trees. The first node decides the variant at each path; nodes
// of a different variant at that path are skipped.
func aggregateNodes(nodes []*Node) (mean, variance *Node) {
	first := nodes[0]

	switch {
	case first.Fields != nil:
		meanFields := make(map[string]*Node, len(first.Fields))
		varFields := make(map[string]*Node, len(first.Fields))
		for key := range first.Fields {
			children := make([]*Node, 0, len(nodes))
			for _, n := range nodes {
				if c := n.child(key); c != nil {
					children = append(children, c)
				}
			}
			if len(children) == 0 {
				continue
			}
			meanFields[key], varFields[key] = aggregateNodes(children)
		}
		return FieldsNode(meanFields), FieldsNode(varFields)

	case first.Vector != nil:
		vectors := make([][]float64, 0, len(nodes))
		maxLen := 0
		for _, n := range nodes {
			if n.Vector == nil {
				continue
			}
			vectors = append(vectors, n.Vector)
			if len(n.Vector) > maxLen {
				maxLen = len(n.Vector)
			}
		}
		means := make([]float64, maxLen)
		variances := make([]float64, maxLen)
		for i := 0; i < maxLen; i++ {
			values := make([]float64, len(vectors))
			for j, v := range vectors {
				if i < len(v) {
					values[j] = v[i]
				}
			}
			means[i], variances[i] = meanAndVariance(values)
		}
		return &Node{Vector: means}, &Node{Vector: variances}

	default:
		values := make([]float64, 0, len(nodes))
		for _, n := range nodes {
			if n.Scalar != nil {
				values = append(values, *n.Scalar)
			}
		}
		if len(values) == 0 {
			return &Node{}, &Node{}
		}
		m, v := meanAndVariance(values)
		return ScalarNode(m), ScalarNode(v)
	}
}

// meanAndVariance computes the arithmetic mean and population (biased)
// variance of a non-empty value set.
func meanAndVariance(values []float64) (float64, float64) {
	m := stat.Mean(values, nil)
	return m, stat.MomentAbout(2, values, m, nil)
}
