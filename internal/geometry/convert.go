package geometry

import (
	"image"
	stddraw "image/draw"

	"golang.org/x/image/draw"
)

// ToGray converts an image to single-channel luma (ITU-R BT.601 weights).
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(gray, gray.Bounds(), img, b.Min, stddraw.Src)
	return gray
}

// ToRGBA copies img into an RGBA image anchored at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(dst, dst.Bounds(), img, b.Min, stddraw.Src)
	return dst
}

// Resize scales img to exactly width x height with bilinear interpolation.
// Grayscale input stays grayscale; everything else is returned as RGBA.
func Resize(img image.Image, width, height int) image.Image {
	r := image.Rect(0, 0, width, height)
	var dst draw.Image
	if _, ok := img.(*image.Gray); ok {
		dst = image.NewGray(r)
	} else {
		dst = image.NewRGBA(r)
	}
	draw.BiLinear.Scale(dst, r, img, img.Bounds(), draw.Src, nil)
	return dst
}
