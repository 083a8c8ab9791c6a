package fingerprint

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/kozaktomas/faceverify/internal/geometry"
)

// Hashes contains perceptual hashes of an image.
type Hashes struct {
	PHash uint64 // 64-bit DCT hash
	DHash uint64 // 64-bit difference hash
}

// String returns both hashes as hex.
func (h Hashes) String() string {
	return fmt.Sprintf("p:%016x d:%016x", h.PHash, h.DHash)
}

// HashImage computes pHash and dHash for an image.
func HashImage(img image.Image) Hashes {
	return Hashes{PHash: computePHash(img), DHash: computeDHash(img)}
}

// HammingDistance computes the Hamming distance between two 64-bit hashes.
func HammingDistance(hash1, hash2 uint64) int {
	xor := hash1 ^ hash2
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1 // Clear lowest set bit
	}
	return distance
}

// Identical reports whether both hashes of a and b are within maxDistance bits,
// i.e. the two inputs are very likely the same picture.
func Identical(a, b Hashes, maxDistance int) bool {
	return HammingDistance(a.PHash, b.PHash) <= maxDistance &&
		HammingDistance(a.DHash, b.DHash) <= maxDistance
}

// luma resizes img and returns its grayscale values indexed [x][y].
func luma(img image.Image, width, height int) [][]float64 {
	gray := geometry.ToGray(geometry.Resize(img, width, height))
	out := make([][]float64, width)
	for x := range width {
		out[x] = make([]float64, height)
		for y := range height {
			out[x][y] = float64(gray.GrayAt(x, y).Y)
		}
	}
	return out
}

// computePHash computes a 64-bit perceptual hash using DCT.
func computePHash(img image.Image) uint64 {
	dct := computeDCT(luma(img, 32, 32))

	// Top-left 8x8 low frequencies without the DC component, padded with the
	// following coefficients.
	lowFreq := make([]float64, 0, 64)
	for u := range 8 {
		for v := range 8 {
			if u == 0 && v == 0 {
				continue
			}
			lowFreq = append(lowFreq, dct[u][v])
		}
	}
	lowFreq = append(lowFreq, dct[8][0])

	median := computeMedian(lowFreq)

	var hash uint64
	for i, v := range lowFreq {
		if v > median {
			hash |= 1 << (63 - i)
		}
	}
	return hash
}

// computeDHash compares horizontally adjacent pixels of a 9x8 thumbnail.
func computeDHash(img image.Image) uint64 {
	gray := luma(img, 9, 8)

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if gray[x][y] > gray[x+1][y] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

// computeDCT computes the DCT-II of a square grayscale grid.
func computeDCT(gray [][]float64) [][]float64 {
	size := len(gray)
	dct := make([][]float64, size)
	for i := range dct {
		dct[i] = make([]float64, size)
	}

	cosTable := make([][]float64, size)
	for i := range cosTable {
		cosTable[i] = make([]float64, size)
		for j := range size {
			cosTable[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(size)))
		}
	}

	for u := range size {
		for v := range size {
			var sum float64
			for x := range size {
				for y := range size {
					sum += gray[x][y] * cosTable[u][x] * cosTable[v][y]
				}
			}
			dct[u][v] = sum
		}
	}
	return dct
}

// computeMedian returns the median value from a slice.
func computeMedian(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
