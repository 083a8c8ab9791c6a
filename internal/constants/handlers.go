// Package constants provides shared constants used across the codebase.
package constants

// File upload constants
const (
	// MaxUploadSize is the maximum multipart form size in bytes (32MB)
	MaxUploadSize = 32 << 20
)

// AllowedExtensions lists the upload extensions accepted by the verify endpoint.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}
