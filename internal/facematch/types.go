package facematch

import "image"

// Region is a face rectangle in pixel coordinates of the image it was found in.
// Bottom and Right are exclusive.
type Region struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
	Right  int `json:"right"`
}

// Width returns the horizontal extent of the region.
func (r Region) Width() int { return r.Right - r.Left }

// Height returns the vertical extent of the region.
func (r Region) Height() int { return r.Bottom - r.Top }

// Location is a detected region paired with the rotated image it belongs to.
// Region coordinates are only valid against Image.
type Location struct {
	Region Region
	Image  image.Image
	Angle  int
}

// Crop is an extracted face. The zero value is the empty crop returned when
// extraction fails.
type Crop struct {
	Image image.Image
}

// Empty reports whether the crop holds no pixels.
func (c Crop) Empty() bool {
	return c.Image == nil || c.Image.Bounds().Empty()
}
