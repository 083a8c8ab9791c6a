package facematch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
)

// scriptedDetector returns results[i] on the i-th call and records what it saw.
type scriptedDetector struct {
	results [][]Region
	calls   int
	sizes   []image.Point
}

func (d *scriptedDetector) Detect(_ context.Context, img *image.Gray) ([]Region, error) {
	d.sizes = append(d.sizes, img.Bounds().Size())
	i := d.calls
	d.calls++
	if i < len(d.results) {
		return d.results[i], nil
	}
	return nil, nil
}

func newTestImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{R: 40, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func TestLocate_FirstAngle(t *testing.T) {
	det := &scriptedDetector{results: [][]Region{{{Top: 1, Left: 2, Bottom: 5, Right: 6}}}}
	loc, err := NewLocator(det).Locate(context.Background(), newTestImage(40, 20), "id", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc == nil {
		t.Fatal("expected a location")
	}
	if loc.Angle != 0 {
		t.Errorf("angle = %d, want 0", loc.Angle)
	}
	if det.calls != 1 {
		t.Errorf("detector called %d times, want 1", det.calls)
	}
}

func TestLocate_StopsAtFirstSuccessfulAngle(t *testing.T) {
	// Face at 90, false positive at 270 which must never be reached.
	det := &scriptedDetector{results: [][]Region{
		nil,
		{{Top: 3, Left: 4, Bottom: 13, Right: 14}},
		nil,
		{{Top: 0, Left: 0, Bottom: 1, Right: 1}},
	}}
	img := newTestImage(40, 20)

	loc, err := NewLocator(det).Locate(context.Background(), img, "id", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc == nil || loc.Angle != 90 {
		t.Fatalf("location = %+v, want angle 90", loc)
	}
	if det.calls != 2 {
		t.Errorf("detector called %d times, want 2", det.calls)
	}
	if loc.Region != (Region{Top: 3, Left: 4, Bottom: 13, Right: 14}) {
		t.Errorf("region = %+v", loc.Region)
	}
	// The returned image is the rotated one the region belongs to.
	if got := loc.Image.Bounds().Size(); got != (image.Point{X: 20, Y: 40}) {
		t.Errorf("image size = %v, want 20x40", got)
	}
}

func TestLocate_TakesFirstRegion(t *testing.T) {
	first := Region{Top: 10, Left: 10, Bottom: 20, Right: 20}
	det := &scriptedDetector{results: [][]Region{{first, {Top: 0, Left: 0, Bottom: 30, Right: 30}}}}
	loc, err := NewLocator(det).Locate(context.Background(), newTestImage(40, 40), "photo", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Region != first {
		t.Errorf("region = %+v, want %+v", loc.Region, first)
	}
}

func TestLocate_NotFound(t *testing.T) {
	det := &scriptedDetector{}
	var sunk []int
	sink := func(_ context.Context, tag string, angle int, _ image.Image) {
		if tag != "id" {
			t.Errorf("tag = %q, want id", tag)
		}
		sunk = append(sunk, angle)
	}

	loc, err := NewLocator(det).Locate(context.Background(), newTestImage(30, 10), "id", sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != nil {
		t.Errorf("expected nil location, got %+v", loc)
	}
	if det.calls != 4 {
		t.Errorf("detector called %d times, want 4", det.calls)
	}
	want := []int{0, 90, 180, 270}
	if len(sunk) != len(want) {
		t.Fatalf("sink angles = %v, want %v", sunk, want)
	}
	for i := range want {
		if sunk[i] != want[i] {
			t.Errorf("sink angles = %v, want %v", sunk, want)
			break
		}
	}
	// Detector saw the rotated canvases.
	wantSizes := []image.Point{{30, 10}, {10, 30}, {30, 10}, {10, 30}}
	for i, s := range det.sizes {
		if s != wantSizes[i] {
			t.Errorf("call %d size = %v, want %v", i, s, wantSizes[i])
		}
	}
}

func TestLocate_DetectorError(t *testing.T) {
	boom := errors.New("boom")
	det := DetectorFunc(func(context.Context, *image.Gray) ([]Region, error) {
		return nil, boom
	})
	_, err := NewLocator(det).Locate(context.Background(), newTestImage(10, 10), "id", nil)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestLocate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	det := &scriptedDetector{}
	_, err := NewLocator(det).Locate(ctx, newTestImage(10, 10), "id", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if det.calls != 0 {
		t.Errorf("detector called %d times, want 0", det.calls)
	}
}

// TestLocate_UprightFaceDetector uses a detector that only "sees" a face when a bright
// marker sits in the top-left corner, so the result depends on the rotation itself.
func TestLocate_UprightFaceDetector(t *testing.T) {
	img := newTestImage(8, 6)
	// Top-right corner; a 90 degree counter-clockwise turn moves it to the top-left.
	img.SetRGBA(7, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	det := DetectorFunc(func(_ context.Context, g *image.Gray) ([]Region, error) {
		if g.GrayAt(0, 0).Y > 200 {
			return []Region{{Top: 0, Left: 0, Bottom: 2, Right: 2}}, nil
		}
		return nil, nil
	})

	loc, err := NewLocator(det).Locate(context.Background(), img, "id", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc == nil || loc.Angle != 90 {
		t.Fatalf("location = %+v, want angle 90", loc)
	}
}

func TestWithAngles(t *testing.T) {
	det := &scriptedDetector{}
	l := NewLocator(det).WithAngles(270, 0)
	if _, err := l.Locate(context.Background(), newTestImage(10, 20), "id", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if det.calls != 2 {
		t.Errorf("detector called %d times, want 2", det.calls)
	}
	if det.sizes[0] != (image.Point{X: 20, Y: 10}) {
		t.Errorf("first call size = %v, want rotated 20x10", det.sizes[0])
	}
}
