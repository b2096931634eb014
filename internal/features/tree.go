package features

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node is a closed variant over the numeric structure of a feature
// record: exactly one of Scalar, Vector, or Fields is set.
//
// Aggregation walks this tree generically instead of reflecting on the
// concrete record types, so every numeric leaf (including ones nested
// two levels deep, like the hole count) is averaged by the same code
// path. A Node marshals to plain JSON — a number, an array of numbers,
// or an object — so stored aggregates read naturally.
type Node struct {
	Scalar *float64
	Vector []float64
	Fields map[string]*Node
}

// ScalarNode returns a scalar leaf.
func ScalarNode(v float64) *Node { return &Node{Scalar: &v} }

// VectorNode returns a vector leaf over a copy of vs.
func VectorNode(vs []float64) *Node {
	out := make([]float64, len(vs))
	copy(out, vs)
	return &Node{Vector: out}
}

// FieldsNode returns a nested node over the given children.
func FieldsNode(children map[string]*Node) *Node { return &Node{Fields: children} }

// MarshalJSON encodes the node as a bare number, array, or object
// depending on its variant.
func (n *Node) MarshalJSON() ([]byte, error) {
	switch {
	case n.Scalar != nil:
		return json.Marshal(*n.Scalar)
	case n.Vector != nil:
		return json.Marshal(n.Vector)
	case n.Fields != nil:
		return json.Marshal(n.Fields)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a number, array of numbers, or object into the
// matching variant.
func (n *Node) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '{':
		fields := make(map[string]*Node)
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return fmt.Errorf("decoding feature node object: %w", err)
		}
		n.Fields = fields
	case '[':
		var vec []float64
		if err := json.Unmarshal(trimmed, &vec); err != nil {
			return fmt.Errorf("decoding feature node vector: %w", err)
		}
		n.Vector = vec
	default:
		var v float64
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return fmt.Errorf("decoding feature node scalar: %w", err)
		}
		n.Scalar = &v
	}
	return nil
}

// child returns the named child of a nested node, or nil.
func (n *Node) child(name string) *Node {
	if n == nil || n.Fields == nil {
		return nil
	}
	return n.Fields[name]
}

// scalarValue returns the scalar value of the named child.
func (n *Node) scalarValue(name string) (float64, bool) {
	c := n.child(name)
	if c == nil || c.Scalar == nil {
		return 0, false
	}
	return *c.Scalar, true
}

// vectorValue returns the vector value of the named child.
func (n *Node) vectorValue(name string) ([]float64, bool) {
	c := n.child(name)
	if c == nil || c.Vector == nil {
		return nil, false
	}
	return c.Vector, true
}

// Tree lowers a feature record to its variant-tree form.
//
// Hole centroid positions are deliberately left out: they are
// per-region coordinate pairs, not numeric leaves of the record shape,
// and averaging centroids across different images carries no signal.
func (r *FeatureRecord) Tree() *Node {
	root := make(map[string]*Node)

	if r.ColorHistogram != nil {
		root["color_histogram"] = FieldsNode(map[string]*Node{
			"red":   VectorNode(r.ColorHistogram.Red),
			"green": VectorNode(r.ColorHistogram.Green),
			"blue":  VectorNode(r.ColorHistogram.Blue),
		})
	}

	if r.Edges != nil {
		root["edge_features"] = FieldsNode(map[string]*Node{
			"mean":         ScalarNode(r.Edges.Mean),
			"variance":     ScalarNode(r.Edges.Variance),
			"max":          ScalarNode(r.Edges.Max),
			"min":          ScalarNode(r.Edges.Min),
			"edge_density": ScalarNode(r.Edges.EdgeDensity),
		})
	}

	if r.Texture != nil {
		root["texture_features"] = FieldsNode(map[string]*Node{
			"mean_variance": ScalarNode(r.Texture.MeanVariance),
			"max_variance":  ScalarNode(r.Texture.MaxVariance),
			"min_variance":  ScalarNode(r.Texture.MinVariance),
		})
	}

	if r.Shape != nil {
		shape := map[string]*Node{
			"aspect_ratio": ScalarNode(r.Shape.AspectRatio),
			"area":         ScalarNode(r.Shape.Area),
		}
		if r.Shape.Holes != nil {
			shape["holes"] = FieldsNode(map[string]*Node{
				"count": ScalarNode(float64(r.Shape.Holes.Count)),
				"areas": VectorNode(r.Shape.Holes.Areas),
			})
		}
		if r.Shape.Metrics != nil {
			shape["shape_metrics"] = FieldsNode(map[string]*Node{
				"area":        ScalarNode(r.Shape.Metrics.Area),
				"perimeter":   ScalarNode(r.Shape.Metrics.Perimeter),
				"compactness": ScalarNode(r.Shape.Metrics.Compactness),
				"circularity": ScalarNode(r.Shape.Metrics.Circularity),
			})
		}
		root["shape_features"] = FieldsNode(shape)
	}

	root["dimensions"] = FieldsNode(map[string]*Node{
		"width":  ScalarNode(float64(r.Dimensions.Width)),
		"height": ScalarNode(float64(r.Dimensions.Height)),
	})

	return FieldsNode(root)
}

// RecordFromTree lifts an averaged feature tree back into record form so
// it can be compared against a query record. Children that are missing
// or of the wrong variant simply leave the corresponding feature group
// nil; comparison skips those groups.
func RecordFromTree(n *Node) *FeatureRecord {
	if n == nil || n.Fields == nil {
		return &FeatureRecord{}
	}

	rec := &FeatureRecord{}

	if ch := n.child("color_histogram"); ch != nil {
		red, rok := ch.vectorValue("red")
		green, gok := ch.vectorValue("green")
		blue, bok := ch.vectorValue("blue")
		if rok && gok && bok {
			rec.ColorHistogram = &ColorHistogram{Red: red, Green: green, Blue: blue}
		}
	}

	if e := n.child("edge_features"); e != nil {
		mean, ok1 := e.scalarValue("mean")
		variance, ok2 := e.scalarValue("variance")
		max, ok3 := e.scalarValue("max")
		min, ok4 := e.scalarValue("min")
		density, ok5 := e.scalarValue("edge_density")
		if ok1 && ok2 && ok3 && ok4 && ok5 {
			rec.Edges = &EdgeFeatures{
				Mean:        mean,
				Variance:    variance,
				Max:         max,
				Min:         min,
				EdgeDensity: density,
			}
		}
	}

	if t := n.child("texture_features"); t != nil {
		meanVar, ok1 := t.scalarValue("mean_variance")
		maxVar, ok2 := t.scalarValue("max_variance")
		minVar, ok3 := t.scalarValue("min_variance")
		if ok1 && ok2 && ok3 {
			rec.Texture = &TextureFeatures{
				MeanVariance: meanVar,
				MaxVariance:  maxVar,
				MinVariance:  minVar,
			}
		}
	}

	if s := n.child("shape_features"); s != nil {
		aspect, ok1 := s.scalarValue("aspect_ratio")
		area, ok2 := s.scalarValue("area")
		if ok1 && ok2 {
			shape := &ShapeFeatures{AspectRatio: aspect, Area: area}
			if h := s.child("holes"); h != nil {
				if count, ok := h.scalarValue("count"); ok {
					holes := &HoleStats{Count: int(count + 0.5)}
					if areas, ok := h.vectorValue("areas"); ok {
						holes.Areas = areas
					}
					shape.Holes = holes
				}
			}
			if m := s.child("shape_metrics"); m != nil {
				mArea, mok1 := m.scalarValue("area")
				perim, mok2 := m.scalarValue("perimeter")
				compact, mok3 := m.scalarValue("compactness")
				circ, mok4 := m.scalarValue("circularity")
				if mok1 && mok2 && mok3 && mok4 {
					shape.Metrics = &ShapeMetrics{
						Area:        mArea,
						Perimeter:   perim,
						Compactness: compact,
						Circularity: circ,
					}
				}
			}
			rec.Shape = shape
		}
	}

	if d := n.child("dimensions"); d != nil {
		if w, ok := d.scalarValue("width"); ok {
			rec.Dimensions.Width = int(w + 0.5)
		}
		if h, ok := d.scalarValue("height"); ok {
			rec.Dimensions.Height = int(h + 0.5)
		}
	}

	return rec
}
