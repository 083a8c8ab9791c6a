// Package facematch locates, extracts and composites faces.
package facematch

import (
	"context"
	"fmt"
	"image"

	"github.com/kozaktomas/faceverify/internal/geometry"
	"github.com/kozaktomas/faceverify/internal/logging"
)

// DefaultAngles is the rotation search order. The first angle with a detection wins.
var DefaultAngles = []int{0, 90, 180, 270}

// Detector finds face regions in a grayscale image.
// Implementations must be safe for repeated, concurrent use.
type Detector interface {
	Detect(ctx context.Context, img *image.Gray) ([]Region, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, img *image.Gray) ([]Region, error)

// Detect calls f.
func (f DetectorFunc) Detect(ctx context.Context, img *image.Gray) ([]Region, error) {
	return f(ctx, img)
}

// DebugSink receives every rotated candidate before detection runs on it.
type DebugSink func(ctx context.Context, tag string, angle int, img image.Image)

// Locator runs the rotation-retry detection loop.
type Locator struct {
	detector Detector
	angles   []int
}

// NewLocator creates a locator over the default angle sequence.
func NewLocator(detector Detector) *Locator {
	return &Locator{detector: detector, angles: DefaultAngles}
}

// WithAngles returns a copy of the locator that searches the given angles in order.
func (l *Locator) WithAngles(angles ...int) *Locator {
	return &Locator{detector: l.detector, angles: append([]int(nil), angles...)}
}

// Locate rotates img through the angle sequence until the detector reports a face.
// The first region found is returned together with the rotated image it belongs to.
// A nil Location with a nil error means no angle produced a detection.
func (l *Locator) Locate(ctx context.Context, img image.Image, tag string, sink DebugSink) (*Location, error) {
	log := logging.FromContext(ctx).WithField("tag", tag)

	for _, angle := range l.angles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rotated := geometry.Rotate(img, float64(angle))
		if sink != nil {
			sink(ctx, tag, angle, rotated)
		}

		regions, err := l.detector.Detect(ctx, geometry.ToGray(rotated))
		if err != nil {
			return nil, fmt.Errorf("detecting face at %d degrees: %w", angle, err)
		}
		if len(regions) == 0 {
			log.WithField("angle", angle).Debug("no faces")
			continue
		}

		log.WithField("angle", angle).Infof("found %d face(s), using the first", len(regions))
		return &Location{Region: regions[0], Image: rotated, Angle: angle}, nil
	}

	log.Info("no face found at any angle")
	return nil, nil
}
