package detector

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/kozaktomas/faceverify/internal/facematch"
)

func TestRegionFromRect(t *testing.T) {
	got := regionFromRect(image.Rect(10, 20, 50, 80))
	want := facematch.Region{Top: 20, Left: 10, Bottom: 80, Right: 50}
	if got != want {
		t.Errorf("regionFromRect() = %+v, want %+v", got, want)
	}
	if got.Width() != 40 || got.Height() != 60 {
		t.Errorf("size = %dx%d, want 40x60", got.Width(), got.Height())
	}
}

func TestEncodeJPEG(t *testing.T) {
	data, err := encodeJPEG(image.NewGray(image.Rect(0, 0, 32, 24)))
	if err != nil {
		t.Fatalf("encodeJPEG failed: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Errorf("bounds = %v", img.Bounds())
	}
}
