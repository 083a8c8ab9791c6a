package verify

import (
	"context"
	"fmt"
	"image"
)

// Embedder turns a face image into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, img image.Image) ([]float32, error)
}

// EmbeddingVerifier is a Verifier that compares embeddings locally against a fixed
// per-model threshold.
type EmbeddingVerifier struct {
	embedder  Embedder
	model     string
	metric    string
	threshold float64
}

// NewEmbeddingVerifier creates a verifier for the given model, metric and threshold.
func NewEmbeddingVerifier(e Embedder, model, metric string, threshold float64) (*EmbeddingVerifier, error) {
	switch metric {
	case MetricCosine, MetricEuclidean, MetricEuclideanL2:
	default:
		return nil, fmt.Errorf("unknown distance metric %q", metric)
	}
	if threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative, got %v", threshold)
	}
	return &EmbeddingVerifier{embedder: e, model: model, metric: metric, threshold: threshold}, nil
}

// Verify embeds both images and compares the distance with the threshold.
func (v *EmbeddingVerifier) Verify(ctx context.Context, a, b image.Image, _ Options) (*Result, error) {
	ea, err := v.embedder.Embed(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("embedding first face: %w", err)
	}
	eb, err := v.embedder.Embed(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("embedding second face: %w", err)
	}
	if len(ea) != len(eb) {
		return nil, fmt.Errorf("embedding dimensions differ: %d vs %d", len(ea), len(eb))
	}

	var d float64
	switch v.metric {
	case MetricEuclidean:
		d = EuclideanDistance(ea, eb)
	case MetricEuclideanL2:
		d = EuclideanL2Distance(ea, eb)
	default:
		d = CosineDistance(ea, eb)
	}

	return &Result{
		Verified:  d <= v.threshold,
		Distance:  d,
		Threshold: v.threshold,
		Model:     v.model,
	}, nil
}
