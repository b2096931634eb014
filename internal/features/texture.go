package features

// textureFeatures computes local-variance statistics over the interior
// of a grayscale canvas.
//
// For every interior pixel the population variance of its 3x3
// neighborhood (9 values including the pixel itself) is computed; the
// per-pixel variances are aggregated into their mean, max, and min. Flat
// images yield all zeros.
func textureFeatures(gray [][]float64) (*TextureFeatures, error) {
	height := len(gray)
	if height < 3 {
		return nil, extractionErrorf("texture", "canvas too small: %d rows", height)
	}
	width := len(gray[0])
	if width < 3 {
		return nil, extractionErrorf("texture", "canvas too small: %d columns", width)
	}

	var sum float64
	var maxVar, minVar float64
	count := 0

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			var s, sq float64
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					v := gray[y+dy][x+dx]
					s += v
					sq += v * v
				}
			}
			mean := s / 9
			variance := sq/9 - mean*mean
			if variance < 0 {
				// Floating point rounding on flat neighborhoods.
				variance = 0
			}

			if count == 0 || variance > maxVar {
				maxVar = variance
			}
			if count == 0 || variance < minVar {
				minVar = variance
			}
			sum += variance
			count++
		}
	}

	if count == 0 {
		return nil, extractionErrorf("texture", "no interior pixels")
	}

	return &TextureFeatures{
		MeanVariance: sum / float64(count),
		MaxVariance:  maxVar,
		MinVariance:  minVar,
	}, nil
}
