package imaging

import (
	"fmt"
	"image"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorFrequency represents a color and its occurrence frequency in an image.
type ColorFrequency struct {
	Hex        string  `json:"hex"`        // Hex color "#RRGGBB" (quantized)
	Percentage float64 `json:"percentage"` // Percentage of pixels with this color (0-100)
}

// labMergeDistance is the CIE Lab distance below which two quantized
// colors are folded into the same palette entry.
const labMergeDistance = 0.12

// DominantColors extracts the N most common colors from an image.
//
// Pixel colors are first quantized to 4 bits per channel to group near
// neighbors, then palette entries within a small CIE Lab distance of a
// more frequent entry are merged into it. The result is sorted by
// frequency in descending order.
//
// This is a descriptive summary only; it does not participate in feature
// comparison scores.
func DominantColors(img image.Image, count int) []ColorFrequency {
	bounds := img.Bounds()

	colorCounts := make(map[string]int)
	totalPixels := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// Quantize to reduce color space (group similar colors)
			r8 := uint8((r >> 8) / 16 * 16)
			g8 := uint8((g >> 8) / 16 * 16)
			b8 := uint8((b >> 8) / 16 * 16)
			key := fmt.Sprintf("#%02X%02X%02X", r8, g8, b8)
			colorCounts[key]++
			totalPixels++
		}
	}

	if totalPixels == 0 {
		return nil
	}

	type entry struct {
		hex   string
		count int
		lab   colorful.Color
	}

	entries := make([]entry, 0, len(colorCounts))
	for hex, cnt := range colorCounts {
		c, err := colorful.Hex(hex)
		if err != nil {
			continue
		}
		entries = append(entries, entry{hex: hex, count: cnt, lab: c})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].count > entries[j].count
	})

	// Merge perceptually close colors into the more frequent entry.
	merged := make([]entry, 0, len(entries))
	for _, e := range entries {
		absorbed := false
		for i := range merged {
			if merged[i].lab.DistanceLab(e.lab) < labMergeDistance {
				merged[i].count += e.count
				absorbed = true
				break
			}
		}
		if !absorbed {
			merged = append(merged, e)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].count > merged[j].count
	})

	if len(merged) > count {
		merged = merged[:count]
	}

	colors := make([]ColorFrequency, 0, len(merged))
	for _, e := range merged {
		colors = append(colors, ColorFrequency{
			Hex:        e.hex,
			Percentage: float64(e.count) / float64(totalPixels) * 100,
		})
	}
	return colors
}
