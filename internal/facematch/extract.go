package facematch

import (
	"image"
	"image/draw"
)

// ExtractFace crops region out of img after clamping it to the image bounds.
// A region that is empty after clamping yields the empty Crop.
func ExtractFace(region Region, img image.Image) Crop {
	b := img.Bounds()
	r := clampRegion(region, b.Dx(), b.Dy())
	if r.Bottom <= r.Top || r.Right <= r.Left {
		return Crop{}
	}

	src := image.Rect(b.Min.X+r.Left, b.Min.Y+r.Top, b.Min.X+r.Right, b.Min.Y+r.Bottom)
	dr := image.Rect(0, 0, r.Width(), r.Height())

	var dst draw.Image
	if _, ok := img.(*image.Gray); ok {
		dst = image.NewGray(dr)
	} else {
		dst = image.NewRGBA(dr)
	}
	draw.Draw(dst, dr, img, src.Min, draw.Src)
	return Crop{Image: dst}
}
