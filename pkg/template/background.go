// background.go - Decoding background image resources into drawable form.
// The editor treats image loading as an asynchronous "decode" operation with
// a discriminated result: dimensions plus a drawable handle, or failure.
package template

import (
	"bytes"
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// BackgroundImage is a decoded background: the drawable plus its native pixel
// dimensions, which are authoritative for stored field coordinates.
type BackgroundImage struct {
	Image  image.Image
	Width  int
	Height int
}

// DecodeBackground decodes image bytes (PNG, JPEG or GIF).
func DecodeBackground(data []byte) (*BackgroundImage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode background image: %w", err)
	}
	b := img.Bounds()
	return &BackgroundImage{Image: img, Width: b.Dx(), Height: b.Dy()}, nil
}

// LoadBackgroundFile reads and decodes a background image from disk.
func LoadBackgroundFile(path string) (*BackgroundImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read background %s: %w", path, err)
	}
	return DecodeBackground(data)
}
