package facematch

import "math"

// RegionFromBBox converts a detector bounding box [x1, y1, x2, y2] in pixels to a Region.
// Returns false for malformed boxes.
func RegionFromBBox(bbox []float64) (Region, bool) {
	if len(bbox) != 4 {
		return Region{}, false
	}
	for _, v := range bbox {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Region{}, false
		}
	}
	return Region{
		Top:    int(math.Round(bbox[1])),
		Left:   int(math.Round(bbox[0])),
		Bottom: int(math.Round(bbox[3])),
		Right:  int(math.Round(bbox[2])),
	}, true
}

// clampRegion limits r to a width x height image.
func clampRegion(r Region, width, height int) Region {
	return Region{
		Top:    max(0, r.Top),
		Left:   max(0, r.Left),
		Bottom: min(height, r.Bottom),
		Right:  min(width, r.Right),
	}
}
