// Package static embeds the upload page.
package static

import "embed"

//go:embed all:dist/*
var distFS embed.FS

// Index returns the upload page.
func Index() ([]byte, error) {
	return distFS.ReadFile("dist/index.html")
}
