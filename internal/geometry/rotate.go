// Package geometry implements the raster operations of the face pipeline:
// rotation onto an expanded canvas, grayscale conversion and resizing.
package geometry

import (
	"image"
	"image/color"
	stddraw "image/draw"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Rotate rotates img counter-clockwise by degrees around its centre.
// The output canvas is the smallest one that holds the whole rotated source, so
// no content is clipped. Quadrant angles are a lossless pixel permutation.
func Rotate(img image.Image, degrees float64) image.Image {
	b := img.Bounds()
	newW, newH := Canvas(b.Dx(), b.Dy(), degrees)
	dst := newCanvas(img, newW, newH)
	if b.Empty() {
		return dst
	}

	var interp draw.Interpolator = draw.BiLinear
	if isQuadrant(degrees) {
		interp = draw.NearestNeighbor
	}
	interp.Transform(dst, rotation(b, newW, newH, degrees), img, b, draw.Src, nil)
	return dst
}

// Canvas returns the width and height of the canvas that holds a w x h image
// rotated by degrees.
func Canvas(w, h int, degrees float64) (int, int) {
	sin, cos := sinCos(degrees)
	sin, cos = math.Abs(sin), math.Abs(cos)
	newW := int(math.Ceil(float64(h)*sin + float64(w)*cos))
	newH := int(math.Ceil(float64(h)*cos + float64(w)*sin))
	return newW, newH
}

// rotation builds the source-to-destination affine transform: rotate about the
// source centre, then move that centre onto the centre of the new canvas.
func rotation(b image.Rectangle, newW, newH int, degrees float64) f64.Aff3 {
	sin, cos := sinCos(degrees)
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2
	return f64.Aff3{
		cos, sin, float64(newW)/2 - cos*cx - sin*cy,
		-sin, cos, float64(newH)/2 + sin*cx - cos*cy,
	}
}

// sinCos returns exact values for multiples of 90 degrees.
func sinCos(degrees float64) (float64, float64) {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	switch d {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	rad := d * math.Pi / 180
	return math.Sin(rad), math.Cos(rad)
}

func isQuadrant(degrees float64) bool {
	return math.Mod(degrees, 90) == 0
}

// newCanvas allocates a black canvas with the same element type as img.
func newCanvas(img image.Image, w, h int) stddraw.Image {
	r := image.Rect(0, 0, w, h)
	if _, ok := img.(*image.Gray); ok {
		return image.NewGray(r)
	}
	dst := image.NewRGBA(r)
	stddraw.Draw(dst, r, &image.Uniform{C: color.Black}, image.Point{}, stddraw.Src)
	return dst
}
