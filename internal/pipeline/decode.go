package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/kozaktomas/faceverify/internal/constants"
	"github.com/kozaktomas/faceverify/internal/geometry"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var errEmptyInput = errors.New("empty input")

// ErrImageTooLarge is returned for images above constants.MaxInputPixels.
var ErrImageTooLarge = errors.New("image dimensions exceed limit")

// Decode reads an encoded image and normalizes it to RGBA at the origin.
// Dimensions are checked from the header before any pixel is allocated.
func Decode(data []byte) (*image.RGBA, string, error) {
	if len(data) == 0 {
		return nil, "", errEmptyInput
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > constants.MaxInputPixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return geometry.ToRGBA(img), format, nil
}
