// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Face localization constants
const (
	// CanonicalFaceSize is the side length both crops are resized to before compositing
	CanonicalFaceSize = 500

	// DefaultModelName is reported when the verification capability omits its model
	DefaultModelName = "VGG-Face"

	// PresentationPrecision is the number of decimals distance and threshold are rounded to
	PresentationPrecision = 4
)

// Storage area prefixes
const (
	// RotatedArea holds the rotation debug trail (write-only)
	RotatedArea = "rotated"

	// MatchedArea holds the extracted face crops
	MatchedArea = "matched"

	// OutputsArea holds the side-by-side composites
	OutputsArea = "outputs"

	// UploadsArea holds the raw uploaded files
	UploadsArea = "uploads"
)

// Input fingerprint constants
const (
	// IdenticalInputHashDistance is the max pHash Hamming distance at which the ID and the
	// photo are reported as the same picture submitted twice
	IdenticalInputHashDistance = 4
)

// Processing constants
const (
	// JPEGQuality is used for every JPEG written to storage or sent to a capability
	JPEGQuality = 90

	// DefaultConcurrency is the default number of parallel pipelines in batch mode
	DefaultConcurrency = 4

	// MaxInputPixels caps width*height of a decoded upload (40 megapixels)
	MaxInputPixels = 40_000_000
)
