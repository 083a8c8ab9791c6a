package facematch

import (
	"errors"
	"image"
	"image/draw"

	"github.com/kozaktomas/faceverify/internal/constants"
	"github.com/kozaktomas/faceverify/internal/geometry"
)

var (
	// ErrEmptyCrop is returned when a stage receives the empty crop.
	ErrEmptyCrop = errors.New("face crop is empty")

	// ErrPixelTypeMismatch is returned when two crops don't share a colour model.
	ErrPixelTypeMismatch = errors.New("face crops have different pixel types")
)

// Composite resizes both crops to the canonical square and places them side by side,
// ID face on the left and photo face on the right.
func Composite(id, photo Crop) (image.Image, error) {
	if id.Empty() || photo.Empty() {
		return nil, ErrEmptyCrop
	}

	size := constants.CanonicalFaceSize
	left := geometry.Resize(id.Image, size, size)
	right := geometry.Resize(photo.Image, size, size)
	if left.ColorModel() != right.ColorModel() {
		return nil, ErrPixelTypeMismatch
	}

	r := image.Rect(0, 0, 2*size, size)
	var out draw.Image
	if _, ok := left.(*image.Gray); ok {
		out = image.NewGray(r)
	} else {
		out = image.NewRGBA(r)
	}
	draw.Draw(out, image.Rect(0, 0, size, size), left, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(size, 0, 2*size, size), right, image.Point{}, draw.Src)
	return out, nil
}
