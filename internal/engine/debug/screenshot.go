// Package debug captures frames and composites from the viewer.
package debug

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/Faultbox/horizon3d/internal/engine/texture"
)

// Capture writes timestamped images into a directory.
type Capture struct {
	dir    string
	prefix string
	ext    string
	now    func() time.Time
}

// NewCapture saves into dir with names prefix_<time><ext>. An empty ext
// selects ".png".
func NewCapture(dir, prefix, ext string) *Capture {
	if ext == "" {
		ext = ".png"
	}
	return &Capture{dir: dir, prefix: prefix, ext: ext, now: time.Now}
}

// Filename returns the name the next capture would use.
func (c *Capture) Filename() string {
	name := fmt.Sprintf("%s_%s%s", c.prefix, c.now().Format("2006-01-02_15-04-05.000"), c.ext)
	if c.dir != "" {
		name = filepath.Join(c.dir, name)
	}
	return name
}

// SaveImage writes img and returns the file name.
func (c *Capture) SaveImage(img image.Image) (string, error) {
	if c.dir != "" {
		if err := os.MkdirAll(c.dir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	name := c.Filename()
	if err := texture.Save(name, img); err != nil {
		return "", err
	}
	return name, nil
}

// SavePixels writes a framebuffer read back bottom row first.
func (c *Capture) SavePixels(pixels []byte, width, height int) (string, error) {
	img, err := FlipRows(pixels, width, height)
	if err != nil {
		return "", err
	}
	return c.SaveImage(img)
}

// FlipRows converts tightly packed RGBA rows, bottom row first, into an
// image with the top row first.
func FlipRows(pixels []byte, width, height int) (*image.NRGBA, error) {
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	row := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * row
		copy(img.Pix[y*img.Stride:y*img.Stride+row], pixels[src:src+row])
	}
	return img, nil
}
