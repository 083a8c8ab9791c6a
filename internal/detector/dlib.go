//go:build dlib

package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/kozaktomas/faceverify/internal/facematch"
)

// Dlib detects faces and computes 128-d descriptors with dlib.
type Dlib struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// NewDlib loads the dlib models from modelsDir.
func NewDlib(modelsDir string) (*Dlib, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("can't init face recognizer: %w", err)
	}
	return &Dlib{rec: rec}, nil
}

func (d *Dlib) recognize(ctx context.Context, img image.Image) ([]face.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	faces, err := d.rec.Recognize(data)
	if err != nil {
		return nil, fmt.Errorf("dlib recognize: %w", err)
	}
	return faces, nil
}

// Detect returns the faces dlib finds, in detector order.
func (d *Dlib) Detect(ctx context.Context, img *image.Gray) ([]facematch.Region, error) {
	faces, err := d.recognize(ctx, img)
	if err != nil {
		return nil, err
	}
	regions := make([]facematch.Region, 0, len(faces))
	for _, f := range faces {
		regions = append(regions, regionFromRect(f.Rectangle))
	}
	return regions, nil
}

// Embed returns the descriptor of the first face in img.
func (d *Dlib) Embed(ctx context.Context, img image.Image) ([]float32, error) {
	faces, err := d.recognize(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, errors.New("no face found in crop")
	}
	desc := faces[0].Descriptor
	return desc[:], nil
}

// Close releases the dlib models.
func (d *Dlib) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rec.Close()
	return nil
}
