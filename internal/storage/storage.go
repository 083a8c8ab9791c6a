// Package storage persists audit artifacts (rotation trail, face crops, composites).
// Nothing written here is read back by the pipeline.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"github.com/kozaktomas/faceverify/internal/constants"
)

// Store writes images under slash-separated keys such as "matched/<request>/id_face.jpg".
type Store interface {
	Save(ctx context.Context, key string, img image.Image) error
	// URL returns a link for a saved key, or "" when the backend can't serve it.
	URL(ctx context.Context, key string) string
}

// Key joins key parts with slashes.
func Key(parts ...string) string {
	return path.Join(parts...)
}

// Encode serializes img according to the key's extension (PNG for .png, JPEG otherwise).
func Encode(key string, img image.Image) ([]byte, string, error) {
	var buf bytes.Buffer
	if strings.EqualFold(path.Ext(key), ".png") {
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("failed to encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// Discard drops everything. Useful when debug output is disabled and in tests.
type Discard struct{}

// Save does nothing.
func (Discard) Save(context.Context, string, image.Image) error { return nil }

// URL always returns "".
func (Discard) URL(context.Context, string) string { return "" }
