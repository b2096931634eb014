package features

import "image"

// colorHistogram buckets every pixel of the normalized canvas into
// HistogramBins equal-width bins per channel and normalizes each channel
// by the total pixel count, producing three discrete probability
// distributions.
func colorHistogram(img *image.NRGBA) (*ColorHistogram, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	total := width * height
	if total == 0 {
		return nil, extractionErrorf("histogram", "no pixels on canvas")
	}

	red := make([]float64, HistogramBins)
	green := make([]float64, HistogramBins)
	blue := make([]float64, HistogramBins)

	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			red[histogramBin(row[x*4])]++
			green[histogramBin(row[x*4+1])]++
			blue[histogramBin(row[x*4+2])]++
		}
	}

	n := float64(total)
	for i := 0; i < HistogramBins; i++ {
		red[i] /= n
		green[i] /= n
		blue[i] /= n
	}

	return &ColorHistogram{Red: red, Green: green, Blue: blue}, nil
}

// histogramBin maps an 8-bit channel value to its bin index, clamped so
// that 255 lands in the last bin.
func histogramBin(v uint8) int {
	bin := int(float64(v) / 255.0 * float64(HistogramBins))
	if bin >= HistogramBins {
		bin = HistogramBins - 1
	}
	return bin
}
