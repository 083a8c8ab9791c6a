//go:build !dlib

package detector

import (
	"context"
	"image"

	"github.com/kozaktomas/faceverify/internal/facematch"
)

// Dlib is unavailable in this build.
type Dlib struct{}

// NewDlib always fails without the dlib build tag.
func NewDlib(string) (*Dlib, error) {
	return nil, ErrUnavailable
}

func (*Dlib) Detect(context.Context, *image.Gray) ([]facematch.Region, error) {
	return nil, ErrUnavailable
}

func (*Dlib) Embed(context.Context, image.Image) ([]float32, error) {
	return nil, ErrUnavailable
}

func (*Dlib) Close() error { return nil }
