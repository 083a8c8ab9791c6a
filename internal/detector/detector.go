// Package detector provides the in-process dlib face detector and descriptor
// embedder. It is only functional in binaries built with the dlib tag.
package detector

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/kozaktomas/faceverify/internal/constants"
	"github.com/kozaktomas/faceverify/internal/facematch"
)

// ErrUnavailable is returned by NewDlib in builds without dlib support.
var ErrUnavailable = errors.New("dlib backend not compiled in, rebuild with -tags dlib")

// regionFromRect converts a detector rectangle to a Region.
func regionFromRect(r image.Rectangle) facematch.Region {
	return facematch.Region{Top: r.Min.Y, Left: r.Min.X, Bottom: r.Max.Y, Right: r.Max.X}
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
