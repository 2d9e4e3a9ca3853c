// Package geom holds the pure geometry used by the canvas: bounding
// boxes, corner handles and the resize math. Nothing in here touches
// shared state, so everything is safe to call from any goroutine.
package geom

import "math"

// Point is a position on a canvas. Y grows downward, matching screen
// coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Translate returns the point shifted by (dx, dy).
func (p Point) Translate(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Finite reports whether both coordinates are real numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Rect is an axis-aligned rectangle with non-negative size.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Handle indices. The pivot of a resize is always the diagonally
// opposite corner, which is why OppositeHandle is an XOR.
const (
	HandleTopLeft = iota
	HandleTopRight
	HandleBottomRight
	HandleBottomLeft
	handleCount
)

// HandleSize is the visual side length of a corner handle.
const HandleSize = 8.0

// BoundingBox returns the rectangle spanned by two corners. The corners
// may be in either orientation; width and height are always absolute.
func BoundingBox(bottomLeft, topRight Point) Rect {
	return Rect{
		X:      math.Min(bottomLeft.X, topRight.X),
		Y:      math.Min(bottomLeft.Y, topRight.Y),
		Width:  math.Abs(topRight.X - bottomLeft.X),
		Height: math.Abs(topRight.Y - bottomLeft.Y),
	}
}

// Contains reports whether p lies within the bounding box of the two
// corners, edges included.
func Contains(bottomLeft, topRight, p Point) bool {
	box := BoundingBox(bottomLeft, topRight)
	return p.X >= box.X && p.X <= box.X+box.Width &&
		p.Y >= box.Y && p.Y <= box.Y+box.Height
}

// Corner returns the corner point for a handle index, derived from the
// bounding box of the two (possibly unordered) corners.
func Corner(bottomLeft, topRight Point, handle int) Point {
	box := BoundingBox(bottomLeft, topRight)
	switch handle {
	case HandleTopLeft:
		return Point{X: box.X, Y: box.Y}
	case HandleTopRight:
		return Point{X: box.X + box.Width, Y: box.Y}
	case HandleBottomRight:
		return Point{X: box.X + box.Width, Y: box.Y + box.Height}
	default:
		return Point{X: box.X, Y: box.Y + box.Height}
	}
}

// HandlePositions returns the draw position (top-left of the handle
// square) for each of the four corner handles, offset so the square is
// centered on its corner.
func HandlePositions(bottomLeft, topRight Point) [handleCount]Point {
	var out [handleCount]Point
	for i := 0; i < handleCount; i++ {
		c := Corner(bottomLeft, topRight, i)
		out[i] = Point{X: c.X - HandleSize/2, Y: c.Y - HandleSize/2}
	}
	return out
}

// HandleAt returns the index of the first handle whose hit square of
// side tolerance, centered on the corner, contains p. The second return
// is false when no handle matches.
func HandleAt(bottomLeft, topRight, p Point, tolerance float64) (int, bool) {
	for i := 0; i < handleCount; i++ {
		c := Corner(bottomLeft, topRight, i)
		if math.Abs(p.X-c.X) <= tolerance/2 && math.Abs(p.Y-c.Y) <= tolerance/2 {
			return i, true
		}
	}
	return 0, false
}

// OppositeHandle returns the index of the corner diagonally opposite
// the given handle (0<->2, 1<->3).
func OppositeHandle(handle int) int {
	return handle ^ 2
}

// ResizedBounds computes new corners for a resize in progress. pivot is
// the corner opposite the grabbed handle, taken from the corners at
// session start so it does not drift while dragging. When lockAspect is
// set, mouse is first pulled onto the line through pivot with the given
// ratio, so the original proportions survive whichever axis the drag
// favors. The result is normalized: bottomLeft = (minX, maxY) and
// topRight = (maxX, minY), which lets a drag cross the pivot and flip
// the layer without producing an invalid rectangle.
func ResizedBounds(mouse, pivot Point, handle int, lockAspect bool, ratio Fraction) (bottomLeft, topRight Point) {
	if lockAspect {
		mouse = constrainToRatio(mouse, pivot, ratio)
	}
	switch handle {
	case HandleTopLeft:
		bottomLeft = Point{X: mouse.X, Y: pivot.Y}
		topRight = Point{X: pivot.X, Y: mouse.Y}
	case HandleTopRight:
		bottomLeft = pivot
		topRight = mouse
	case HandleBottomRight:
		bottomLeft = Point{X: pivot.X, Y: mouse.Y}
		topRight = Point{X: mouse.X, Y: pivot.Y}
	default: // HandleBottomLeft
		bottomLeft = mouse
		topRight = pivot
	}
	return normalizeCorners(bottomLeft, topRight)
}

// constrainToRatio replaces the free drag point with one whose offset
// from the pivot matches ratio. The dimension the user dragged fastest
// along stays free; the other is derived from it.
func constrainToRatio(mouse, pivot Point, ratio Fraction) Point {
	r := ratio.Float()
	if r <= 0 {
		return mouse
	}
	dx := mouse.X - pivot.X
	dy := mouse.Y - pivot.Y
	var w, h float64
	if math.Abs(dx) > r*math.Abs(dy) {
		h = math.Abs(dy)
		w = h * r
	} else {
		w = math.Abs(dx)
		h = w / r
	}
	if dx < 0 {
		w = -w
	}
	if dy < 0 {
		h = -h
	}
	return Point{X: pivot.X + w, Y: pivot.Y + h}
}

func normalizeCorners(a, b Point) (bottomLeft, topRight Point) {
	bottomLeft = Point{X: math.Min(a.X, b.X), Y: math.Max(a.Y, b.Y)}
	topRight = Point{X: math.Max(a.X, b.X), Y: math.Min(a.Y, b.Y)}
	return
}

// ClampMinSize grows a degenerate rectangle to at least eps on each
// axis, keeping bottomLeft fixed. Previews may pass through zero size
// but committed bounds must not, or the next resize's ratio math would
// divide by zero.
func ClampMinSize(bottomLeft, topRight Point, eps float64) (Point, Point) {
	if math.Abs(topRight.X-bottomLeft.X) < eps {
		topRight.X = bottomLeft.X + eps
	}
	if math.Abs(topRight.Y-bottomLeft.Y) < eps {
		topRight.Y = bottomLeft.Y - eps
	}
	return bottomLeft, topRight
}
