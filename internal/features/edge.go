package features

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// edgeFeatures computes gradient magnitude statistics over the interior
// of a grayscale canvas.
//
// The gradient is a central-difference approximation, not a Sobel
// kernel: gx and gy are the differences between the horizontal and
// vertical neighbors of each pixel. The comparator's distance scales
// assume this operator; changing it invalidates stored records.
func edgeFeatures(gray [][]float64) (*EdgeFeatures, error) {
	height := len(gray)
	if height < 3 {
		return nil, extractionErrorf("edges", "canvas too small: %d rows", height)
	}
	width := len(gray[0])
	if width < 3 {
		return nil, extractionErrorf("edges", "canvas too small: %d columns", width)
	}

	magnitudes := make([]float64, 0, (width-2)*(height-2))
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			gx := gray[y][x+1] - gray[y][x-1]
			gy := gray[y+1][x] - gray[y-1][x]
			magnitudes = append(magnitudes, math.Sqrt(gx*gx+gy*gy))
		}
	}

	if len(magnitudes) == 0 {
		return nil, extractionErrorf("edges", "no interior pixels")
	}

	mean := stat.Mean(magnitudes, nil)
	// Population variance (biased): second moment about the mean.
	variance := stat.MomentAbout(2, magnitudes, mean, nil)

	max := magnitudes[0]
	min := magnitudes[0]
	above := 0
	for _, m := range magnitudes {
		if m > max {
			max = m
		}
		if m < min {
			min = m
		}
		if m > mean {
			above++
		}
	}

	return &EdgeFeatures{
		Mean:        mean,
		Variance:    variance,
		Max:         max,
		Min:         min,
		EdgeDensity: float64(above) / float64(len(magnitudes)),
	}, nil
}
