package feature

import (
	"fmt"
	"image"
	"math"
)

// GridSize is the extent of the backend's normalised coordinate space.
const GridSize = 1000

// Region is a highlight box [ymin, xmin, ymax, xmax] in the 0-1000 grid,
// independent of the pixel size of the image it was computed on.
type Region [4]float64

// NewRegion builds a region that satisfies the grid invariant: inverted
// pairs are swapped and every component is clamped to [0, GridSize].
func NewRegion(ymin, xmin, ymax, xmax float64) Region {
	if ymin > ymax {
		ymin, ymax = ymax, ymin
	}
	if xmin > xmax {
		xmin, xmax = xmax, xmin
	}
	return Region{clampGrid(ymin), clampGrid(xmin), clampGrid(ymax), clampGrid(xmax)}
}

func clampGrid(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > GridSize {
		return GridSize
	}
	return v
}

func (r Region) YMin() float64 { return r[0] }
func (r Region) XMin() float64 { return r[1] }
func (r Region) YMax() float64 { return r[2] }
func (r Region) XMax() float64 { return r[3] }

// Valid reports whether the region is ordered and inside the grid.
func (r Region) Valid() bool {
	for _, v := range r {
		if math.IsNaN(v) || v < 0 || v > GridSize {
			return false
		}
	}
	return r[0] <= r[2] && r[1] <= r[3]
}

// Scale stretches the region onto a width x height box. Only proportional
// stretching is applied; the result always covers at least one cell.
func (r Region) Scale(width, height int) image.Rectangle {
	if width <= 0 || height <= 0 {
		return image.Rectangle{}
	}
	x0 := int(math.Floor(r.XMin() * float64(width) / GridSize))
	y0 := int(math.Floor(r.YMin() * float64(height) / GridSize))
	x1 := int(math.Ceil(r.XMax() * float64(width) / GridSize))
	y1 := int(math.Ceil(r.YMax() * float64(height) / GridSize))
	x0 = min(x0, width-1)
	y0 = min(y0, height-1)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, width, height))
}

func (r Region) String() string {
	return fmt.Sprintf("[%g %g %g %g]", r[0], r[1], r[2], r[3])
}
