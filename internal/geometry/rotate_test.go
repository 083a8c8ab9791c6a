package geometry

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// pattern builds a w x h RGBA image where every pixel is unique.
func pattern(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x*7 + y), A: 255})
		}
	}
	return img
}

func TestCanvas(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		degrees float64
		wantW   int
		wantH   int
	}{
		{"zero", 40, 30, 0, 40, 30},
		{"quarter turn swaps", 40, 30, 90, 30, 40},
		{"half turn keeps", 40, 30, 180, 40, 30},
		{"three quarters swaps", 40, 30, 270, 30, 40},
		{"full turn", 40, 30, 360, 40, 30},
		{"negative quarter", 40, 30, -90, 30, 40},
		{"45 degrees square", 10, 10, 45, 15, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Canvas(tt.w, tt.h, tt.degrees)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Canvas(%d, %d, %v) = %dx%d, want %dx%d", tt.w, tt.h, tt.degrees, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestRotation_CornersStayOnCanvas(t *testing.T) {
	sizes := []image.Point{{1, 1}, {3, 7}, {40, 30}, {123, 45}, {640, 480}}
	for _, size := range sizes {
		for deg := -180.0; deg <= 360; deg += 7.5 {
			b := image.Rect(0, 0, size.X, size.Y)
			newW, newH := Canvas(size.X, size.Y, deg)
			m := rotation(b, newW, newH, deg)

			corners := [][2]float64{
				{0, 0}, {float64(size.X), 0}, {0, float64(size.Y)}, {float64(size.X), float64(size.Y)},
			}
			for _, c := range corners {
				x := m[0]*c[0] + m[1]*c[1] + m[2]
				y := m[3]*c[0] + m[4]*c[1] + m[5]
				const eps = 1e-9
				if x < -eps || y < -eps || x > float64(newW)+eps || y > float64(newH)+eps {
					t.Fatalf("size %v, %v deg: corner %v -> (%.4f, %.4f) outside %dx%d", size, deg, c, x, y, newW, newH)
				}
			}
		}
	}
}

func TestRotate_QuarterTurnPermutesPixels(t *testing.T) {
	src := pattern(5, 3)
	dst := Rotate(src, 90)

	if got := dst.Bounds(); got != image.Rect(0, 0, 3, 5) {
		t.Fatalf("bounds = %v, want 3x5", got)
	}
	// Counter-clockwise: source (x, y) lands on (y, w-1-x).
	for y := range 3 {
		for x := range 5 {
			want := src.RGBAAt(x, y)
			got := dst.(*image.RGBA).RGBAAt(y, 5-1-x)
			if got != want {
				t.Errorf("src(%d,%d)=%v, dst(%d,%d)=%v", x, y, want, y, 4-x, got)
			}
		}
	}
}

func TestRotate_FourQuarterTurnsIsIdentity(t *testing.T) {
	src := pattern(7, 4)
	var img image.Image = src
	for range 4 {
		img = Rotate(img, 90)
	}
	out := img.(*image.RGBA)
	if out.Bounds() != src.Bounds() {
		t.Fatalf("bounds = %v, want %v", out.Bounds(), src.Bounds())
	}
	for y := range 4 {
		for x := range 7 {
			if out.RGBAAt(x, y) != src.RGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) changed: %v != %v", x, y, out.RGBAAt(x, y), src.RGBAAt(x, y))
			}
		}
	}
}

func TestRotate_HalfTurn(t *testing.T) {
	src := pattern(6, 4)
	dst := Rotate(src, 180).(*image.RGBA)
	for y := range 4 {
		for x := range 6 {
			if dst.RGBAAt(5-x, 3-y) != src.RGBAAt(x, y) {
				t.Errorf("pixel (%d,%d) not mirrored to (%d,%d)", x, y, 5-x, 3-y)
			}
		}
	}
}

func TestRotate_ZeroKeepsImage(t *testing.T) {
	src := pattern(4, 4)
	dst := Rotate(src, 0).(*image.RGBA)
	for y := range 4 {
		for x := range 4 {
			if dst.RGBAAt(x, y) != src.RGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) changed", x, y)
			}
		}
	}
}

func TestRotate_OffsetBounds(t *testing.T) {
	src := pattern(10, 6).SubImage(image.Rect(2, 1, 8, 5)).(*image.RGBA)
	dst := Rotate(src, 90)
	if got := dst.Bounds(); got != image.Rect(0, 0, 4, 6) {
		t.Fatalf("bounds = %v, want 4x6 at origin", got)
	}
	// Top-right source pixel (7,1) ends up top-left.
	if got, want := dst.(*image.RGBA).RGBAAt(0, 0), src.RGBAAt(7, 1); got != want {
		t.Errorf("dst(0,0) = %v, want %v", got, want)
	}
}

func TestRotate_KeepsGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 8, 4))
	src.SetGray(1, 2, color.Gray{Y: 200})
	dst, ok := Rotate(src, 270).(*image.Gray)
	if !ok {
		t.Fatalf("expected *image.Gray output")
	}
	if dst.Bounds().Dx() != 4 || dst.Bounds().Dy() != 8 {
		t.Fatalf("bounds = %v, want 4x8", dst.Bounds())
	}
}

func TestRotate_ArbitraryAngleFillsBlack(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := range 20 {
		for x := range 20 {
			src.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	dst := Rotate(src, 45).(*image.RGBA)
	w, h := Canvas(20, 20, 45)
	if dst.Bounds().Dx() != w || dst.Bounds().Dy() != h {
		t.Fatalf("bounds = %v, want %dx%d", dst.Bounds(), w, h)
	}
	if c := dst.RGBAAt(0, 0); c != (color.RGBA{A: 255}) {
		t.Errorf("corner = %v, want opaque black", c)
	}
	if c := dst.RGBAAt(w/2, h/2); c.R < 250 {
		t.Errorf("centre = %v, want white", c)
	}
}

func TestSinCos_Quadrants(t *testing.T) {
	for _, deg := range []float64{0, 90, 180, 270, 360, 450, -90} {
		s, c := sinCos(deg)
		rad := deg * math.Pi / 180
		if math.Abs(s-math.Sin(rad)) > 1e-12 || math.Abs(c-math.Cos(rad)) > 1e-12 {
			t.Errorf("sinCos(%v) = (%v, %v)", deg, s, c)
		}
	}
}
