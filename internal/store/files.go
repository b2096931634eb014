package store

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
)

// ImageDir persists training image files under a directory, one PNG per
// image id. It implements detection.ImageSaver.
type ImageDir struct {
	dir string
}

// NewImageDir ensures the directory exists and returns a saver over it.
func NewImageDir(dir string) (*ImageDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image directory: %w", err)
	}
	return &ImageDir{dir: dir}, nil
}

// SaveImage writes the decoded image as <id>.png and returns its path.
// Re-encoding to PNG makes the stored file independent of the upload's
// original format.
func (d *ImageDir) SaveImage(img image.Image, id string) (string, error) {
	path := filepath.Join(d.dir, id+".png")
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
