// Package verify turns two face crops into a match decision by delegating the
// embedding distance to a Verifier capability.
package verify

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/kozaktomas/faceverify/internal/constants"
	"github.com/kozaktomas/faceverify/internal/facematch"
)

// Options are passed through to the capability.
type Options struct {
	// EnforceDetection asks the capability to run its own face detection first.
	EnforceDetection bool
}

// Result is the capability's decision. Verified holds iff Distance <= Threshold.
type Result struct {
	Verified  bool    `json:"verified"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Model     string  `json:"model"`
}

// Verifier computes the embedding distance between two face images and classifies it.
type Verifier interface {
	Verify(ctx context.Context, a, b image.Image, opts Options) (*Result, error)
}

// Engine wraps a Verifier with presentation rules and an optional threshold policy.
type Engine struct {
	verifier  Verifier
	threshold float64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithThreshold makes the engine decide with its own threshold instead of the
// capability's. Values <= 0 are ignored.
func WithThreshold(threshold float64) EngineOption {
	return func(e *Engine) {
		if threshold > 0 {
			e.threshold = threshold
		}
	}
}

// NewEngine creates a verification engine.
func NewEngine(v Verifier, opts ...EngineOption) *Engine {
	e := &Engine{verifier: v}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Verify compares two crops. Detection is not enforced again because both crops
// already went through the locator.
func (e *Engine) Verify(ctx context.Context, a, b facematch.Crop) (*Result, error) {
	if a.Empty() || b.Empty() {
		return nil, facematch.ErrEmptyCrop
	}

	res, err := e.verifier.Verify(ctx, a.Image, b.Image, Options{EnforceDetection: false})
	if err != nil {
		return nil, fmt.Errorf("verifying faces: %w", err)
	}
	if res == nil {
		return nil, errors.New("verifier returned no result")
	}

	out := *res
	if out.Model == "" {
		out.Model = constants.DefaultModelName
	}
	if e.threshold > 0 {
		out.Threshold = e.threshold
		out.Verified = out.Distance <= e.threshold
	}
	out.Distance = Round(out.Distance, constants.PresentationPrecision)
	out.Threshold = Round(out.Threshold, constants.PresentationPrecision)
	return &out, nil
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
