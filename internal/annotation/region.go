/**
 * Region - a named rectangle on a source image
 *
 * Coordinates are captured in display pixels together with the display-to-source
 * ratio at creation time. Scaled coordinates divide that ratio back out and are what
 * the crop scripts use.
 */

package annotation

import (
	"math"

	apperrors "github.com/adverant/nexus/region-annotator/internal/errors"
)

// Region is a named rectangle with an upper-left origin
type Region struct {
	Name  string
	Color string // kept for document compatibility, not used for drawing

	X int
	Y int
	W int
	H int

	ScalingX float64
	ScalingY float64
}

// NewRegion creates a region after checking the scale factors and extent
func NewRegion(name string, x, y, w, h int, scalingX, scalingY float64) (Region, error) {
	r := Region{
		Name:     name,
		X:        x,
		Y:        y,
		W:        w,
		H:        h,
		ScalingX: scalingX,
		ScalingY: scalingY,
	}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}

// RegionFromCorners normalizes two opposite corners into an upper-left origin with
// non-negative extent. Equal coordinates on an axis give a zero extent on that axis.
func RegionFromCorners(name string, x1, y1, x2, y2 int, scalingX, scalingY float64) (Region, error) {
	return NewRegion(name, min(x1, x2), min(y1, y2), absInt(x2-x1), absInt(y2-y1), scalingX, scalingY)
}

// RegionFromDisplay builds a region from two clicks in display pixels. The scale is
// display size over source size per axis. An empty name is replaced by the grid name
// of the upper-left corner.
func RegionFromDisplay(name string, x1, y1, x2, y2, displayW, displayH, sourceW, sourceH int) (Region, error) {
	if sourceW <= 0 || sourceH <= 0 {
		return Region{}, apperrors.NewInvalidRegionError(name, "source image size must be positive")
	}
	if displayW <= 0 || displayH <= 0 {
		return Region{}, apperrors.NewInvalidRegionError(name, "display size must be positive")
	}

	if name == "" {
		name = RegionNaming(float64(min(x1, x2)), float64(min(y1, y2)), float64(displayW), float64(displayH))
	}

	scaleX := float64(displayW) / float64(sourceW)
	scaleY := float64(displayH) / float64(sourceH)
	return RegionFromCorners(name, x1, y1, x2, y2, scaleX, scaleY)
}

// Validate enforces the region invariants
func (r Region) Validate() error {
	if r.Name == "" {
		return apperrors.NewInvalidRegionError(r.Name, "name is required")
	}
	if !(r.ScalingX > 0) || !(r.ScalingY > 0) || math.IsInf(r.ScalingX, 0) || math.IsInf(r.ScalingY, 0) {
		return apperrors.NewInvalidRegionError(r.Name, "scaling factors must be positive and finite")
	}
	if r.W < 0 || r.H < 0 {
		return apperrors.NewInvalidRegionError(r.Name, "width and height must not be negative")
	}
	return nil
}

func (r Region) X2() int { return r.X + r.W }

func (r Region) Y2() int { return r.Y + r.H }

// CoordinatesUnscaled returns x, y, w, h in display pixels
func (r Region) CoordinatesUnscaled() [4]int {
	return [4]int{r.X, r.Y, r.W, r.H}
}

// CoordinatesScaled returns x, y, w, h in source image pixels
func (r Region) CoordinatesScaled() [4]int {
	return [4]int{
		int(math.Floor(float64(r.X) / r.ScalingX)),
		int(math.Floor(float64(r.Y) / r.ScalingY)),
		int(math.Floor(float64(r.W) / r.ScalingX)),
		int(math.Floor(float64(r.H) / r.ScalingY)),
	}
}

// RegionNaming buckets a point into a 3x3 grid over the image, e.g. "top left".
// Each third includes its upper boundary. Only used as a default name.
func RegionNaming(x, y, imgWidth, imgHeight float64) string {
	colWidth := imgWidth / 3
	rowHeight := imgHeight / 3

	name := ""
	switch {
	case y <= rowHeight:
		name += "top"
	case y <= rowHeight*2:
		name += "middle"
	case y <= rowHeight*3:
		name += "bottom"
	}

	name += " "

	switch {
	case x <= colWidth:
		name += "left"
	case x <= colWidth*2:
		name += "center"
	case x <= colWidth*3:
		name += "right"
	}

	return name
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
