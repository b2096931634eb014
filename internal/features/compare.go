package features

import "math"

// Blend weights of the four feature groups. The final score is the
// weighted average renormalized over the groups that were actually
// comparable, so a missing group shifts weight to the others instead of
// dragging the score toward zero.
const (
	colorWeight   = 0.30
	edgeWeight    = 0.25
	textureWeight = 0.20
	shapeWeight   = 0.25
)

// Weights of the shape sub-terms (hole count, aspect ratio, dark area),
// renormalized the same way over the sub-terms that are present.
const (
	holesWeight       = 0.4
	aspectRatioWeight = 0.3
	shapeAreaWeight   = 0.3
)

// Compare scores the similarity of two feature records in [0,1].
//
// Compare never fails: feature groups absent or malformed on either side
// are skipped rather than scored as zero, and the result is the weighted
// average over the remaining groups. If no group is comparable the score
// is 0. The score is symmetric and Compare(f, f) is exactly 1 for any
// well-formed record.
//
// Aggregated model features share the record shape, so a query can be
// compared against a product's average features with the same call.
func Compare(a, b *FeatureRecord) float64 {
	if a == nil || b == nil {
		return 0
	}

	var total, weightSum float64

	if s, ok := compareColor(a.ColorHistogram, b.ColorHistogram); ok {
		total += s * colorWeight
		weightSum += colorWeight
	}
	if s, ok := compareEdges(a.Edges, b.Edges); ok {
		total += s * edgeWeight
		weightSum += edgeWeight
	}
	if s, ok := compareTexture(a.Texture, b.Texture); ok {
		total += s * textureWeight
		weightSum += textureWeight
	}
	if s, ok := compareShape(a.Shape, b.Shape); ok {
		total += s * shapeWeight
		weightSum += shapeWeight
	}

	if weightSum == 0 {
		return 0
	}
	return clampUnit(total / weightSum)
}

// compareColor computes per-channel histogram intersection and averages
// the three channels. Histograms are probability distributions, so the
// intersection of a histogram with itself is exactly 1.
func compareColor(a, b *ColorHistogram) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	channels := 0
	sum := 0.0
	for _, pair := range [][2][]float64{
		{a.Red, b.Red},
		{a.Green, b.Green},
		{a.Blue, b.Blue},
	} {
		s, ok := histogramIntersection(pair[0], pair[1])
		if !ok {
			continue
		}
		sum += s
		channels++
	}

	if channels == 0 {
		return 0, false
	}
	return sum / float64(channels), true
}

// histogramIntersection sums min(a_i, b_i) over the bins both sides
// have. For normalized histograms the result lies in [0,1].
func histogramIntersection(a, b []float64) (float64, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0, false
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		sum += math.Min(a[i], b[i])
	}
	return clampUnit(sum), true
}

// compareEdges averages clipped-linear similarities of the mean gradient
// (scaled by the 0-255 range), the gradient variance (scaled by 255^2),
// and the edge density (already in [0,1]).
func compareEdges(a, b *EdgeFeatures) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	meanScore := math.Max(0, 1-math.Abs(a.Mean-b.Mean)/255)
	varScore := math.Max(0, 1-math.Abs(a.Variance-b.Variance)/65025)
	densityScore := math.Max(0, 1-math.Abs(a.EdgeDensity-b.EdgeDensity))

	return (meanScore + varScore + densityScore) / 3, true
}

// compareTexture scores the mean local variance with a clipped-linear
// similarity over a fixed scale of 1000.
func compareTexture(a, b *TextureFeatures) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	return math.Max(0, 1-math.Min(1, math.Abs(a.MeanVariance-b.MeanVariance)/1000)), true
}

// compareShape blends ratio-closeness of the hole count, aspect ratio,
// and dark-area fraction. Sub-terms where either side is zero carry no
// signal (a zero denominator, or "no holes" meeting "some holes") and
// are skipped, with the blend renormalized over the rest.
func compareShape(a, b *ShapeFeatures) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}

	var total, weightSum float64

	if a.Holes != nil && b.Holes != nil {
		if s, ok := ratioCloseness(float64(a.Holes.Count), float64(b.Holes.Count)); ok {
			total += s * holesWeight
			weightSum += holesWeight
		}
	}
	if s, ok := ratioCloseness(a.AspectRatio, b.AspectRatio); ok {
		total += s * aspectRatioWeight
		weightSum += aspectRatioWeight
	}
	if s, ok := ratioCloseness(a.Area, b.Area); ok {
		total += s * shapeAreaWeight
		weightSum += shapeAreaWeight
	}

	if weightSum == 0 {
		return 0, false
	}
	return total / weightSum, true
}

// ratioCloseness scores two positive values by min/max: 1 when equal,
// decreasing toward 0 as the relative gap grows. Non-positive values on
// either side make the term incomparable.
func ratioCloseness(a, b float64) (float64, bool) {
	if a <= 0 || b <= 0 {
		return 0, false
	}
	if a > b {
		return b / a, true
	}
	return a / b, true
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
