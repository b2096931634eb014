package features

import "math"

type point struct {
	x, y int
}

// shapeFeatures analyzes the silhouette of a binarized grayscale canvas.
//
// Pixels with luminance <= BinarizeThreshold are dark (foreground).
// Connected dark regions are found by 4-connected flood fill; regions
// smaller than MinHoleArea pixels are discarded as noise and each
// retained region contributes its pixel area and centroid as a "hole".
// The overall silhouette is summarized by the dark-pixel fraction, the
// 4-neighbor perimeter, and compactness/circularity derived from the two.
func shapeFeatures(gray [][]float64) (*ShapeFeatures, error) {
	height := len(gray)
	if height == 0 {
		return nil, extractionErrorf("shape", "empty canvas")
	}
	width := len(gray[0])
	if width == 0 {
		return nil, extractionErrorf("shape", "empty canvas")
	}

	dark := make([][]bool, height)
	darkCount := 0
	for y := 0; y < height; y++ {
		dark[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			if gray[y][x] <= BinarizeThreshold {
				dark[y][x] = true
				darkCount++
			}
		}
	}

	holes := findHoles(dark, width, height)

	perimeter := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if dark[y][x] && hasLightNeighbor(dark, x, y, width, height) {
				perimeter++
			}
		}
	}

	areaFraction := float64(darkCount) / float64(width*height)

	compactness := 0.0
	circularity := 0.0
	if perimeter > 0 {
		p := float64(perimeter)
		compactness = 4 * math.Pi * areaFraction / (p * p)
		circularity = math.Min(1, 4*math.Pi*float64(darkCount)/(p*p))
	}

	return &ShapeFeatures{
		Holes: holes,
		Metrics: &ShapeMetrics{
			Area:        areaFraction,
			Perimeter:   float64(perimeter),
			Compactness: compactness,
			Circularity: circularity,
		},
		AspectRatio: float64(width) / float64(height),
		Area:        areaFraction,
	}, nil
}

// findHoles groups dark pixels into 4-connected regions and keeps those
// of at least MinHoleArea pixels.
func findHoles(dark [][]bool, width, height int) *HoleStats {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	stats := &HoleStats{
		Areas:     make([]float64, 0),
		Positions: make([]Position, 0),
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if !dark[y][x] || visited[y][x] {
				continue
			}

			area, centroid := fillRegion(dark, visited, x, y, width, height)
			if area < MinHoleArea {
				continue
			}

			stats.Count++
			stats.Areas = append(stats.Areas, float64(area))
			stats.Positions = append(stats.Positions, centroid)
		}
	}

	return stats
}

// fillRegion performs an iterative stack-based flood fill from a starting
// pixel, returning the region's pixel count and centroid. Stack-based
// rather than recursive so large regions cannot overflow the stack.
// Connectivity is 4-connected (no diagonals).
func fillRegion(dark, visited [][]bool, startX, startY, width, height int) (int, Position) {
	stack := []point{{x: startX, y: startY}}
	area := 0
	var sumX, sumY float64

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.x < 0 || p.x >= width || p.y < 0 || p.y >= height {
			continue
		}
		if visited[p.y][p.x] || !dark[p.y][p.x] {
			continue
		}

		visited[p.y][p.x] = true
		area++
		sumX += float64(p.x)
		sumY += float64(p.y)

		stack = append(stack,
			point{x: p.x + 1, y: p.y},
			point{x: p.x - 1, y: p.y},
			point{x: p.x, y: p.y + 1},
			point{x: p.x, y: p.y - 1},
		)
	}

	return area, Position{X: sumX / float64(area), Y: sumY / float64(area)}
}

// hasLightNeighbor reports whether a dark pixel borders a light pixel in
// its 4-neighborhood. Out-of-bounds neighbors do not count as light, so
// dark pixels on the canvas border are not perimeter pixels by
// themselves.
func hasLightNeighbor(dark [][]bool, x, y, width, height int) bool {
	if x > 0 && !dark[y][x-1] {
		return true
	}
	if x < width-1 && !dark[y][x+1] {
		return true
	}
	if y > 0 && !dark[y-1][x] {
		return true
	}
	if y < height-1 && !dark[y+1][x] {
		return true
	}
	return false
}
