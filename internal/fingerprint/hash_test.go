package fingerprint

import (
	"image"
	"image/color"
	"testing"

	"github.com/kozaktomas/faceverify/internal/geometry"
)

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name     string
		hash1    uint64
		hash2    uint64
		expected int
	}{
		{"identical", 0x0, 0x0, 0},
		{"completely different", 0xFFFFFFFFFFFFFFFF, 0x0, 64},
		{"one bit different", 0x1, 0x0, 1},
		{"four bits different", 0xF, 0x0, 4},
		{"alternating", 0xAAAAAAAAAAAAAAAA, 0x5555555555555555, 64},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := HammingDistance(tc.hash1, tc.hash2)
			if result != tc.expected {
				t.Errorf("HammingDistance(%x, %x) = %d; want %d", tc.hash1, tc.hash2, result, tc.expected)
			}
		})
	}
}

func TestHashImage_Consistent(t *testing.T) {
	img := createGradientImage(120, 80)
	if HashImage(img) != HashImage(img) {
		t.Error("hashes should be deterministic")
	}
}

func TestIdentical(t *testing.T) {
	a := createGradientImage(200, 150)
	// A separate copy of the same pixels, placed at a different origin.
	b := image.NewRGBA(image.Rect(10, 10, 210, 160))
	for y := range 150 {
		for x := range 200 {
			b.Set(x+10, y+10, a.At(x, y))
		}
	}
	if !Identical(HashImage(a), HashImage(b), 4) {
		t.Errorf("copy not identical: %v vs %v", HashImage(a), HashImage(b))
	}

	mirrored := geometry.Rotate(a, 180)
	if Identical(HashImage(a), HashImage(mirrored), 4) {
		t.Error("rotated image reported as identical")
	}
}

func TestComputeDHash_Gradient(t *testing.T) {
	// Brightness increases to the right: no pixel is brighter than its right neighbour.
	if got := computeDHash(createGradientImage(90, 80)); got != 0 {
		t.Errorf("dHash = %016x, want 0", got)
	}
	if got := computeDHash(geometry.Rotate(createGradientImage(90, 80), 180)); got != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("dHash of reversed gradient = %016x, want all ones", got)
	}
}

func TestComputeMedian(t *testing.T) {
	if got := computeMedian([]float64{3, 1, 2}); got != 2 {
		t.Errorf("median odd = %v, want 2", got)
	}
	if got := computeMedian([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("median even = %v, want 2.5", got)
	}
}

func TestHashes_String(t *testing.T) {
	h := Hashes{PHash: 0xAB, DHash: 0x1}
	if got := h.String(); got != "p:00000000000000ab d:0000000000000001" {
		t.Errorf("String() = %q", got)
	}
}

// createGradientImage builds a left-to-right brightness ramp.
func createGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			v := uint8(x * 255 / width)
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}
