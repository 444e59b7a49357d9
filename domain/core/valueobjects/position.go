package valueobjects

import (
	"fmt"
	"math"
)

// Position is one of the nine screen anchors a widget can snap to.
type Position string

const (
	TopLeft      Position = "top-left"
	TopCenter    Position = "top-center"
	TopRight     Position = "top-right"
	MiddleLeft   Position = "middle-left"
	Center       Position = "center"
	MiddleRight  Position = "middle-right"
	BottomLeft   Position = "bottom-left"
	BottomCenter Position = "bottom-center"
	BottomRight  Position = "bottom-right"
)

// Positions lists every anchor in row-major order.
var Positions = []Position{
	TopLeft, TopCenter, TopRight,
	MiddleLeft, Center, MiddleRight,
	BottomLeft, BottomCenter, BottomRight,
}

// ParsePosition validates s against the anchor set.
func ParsePosition(s string) (Position, error) {
	p := Position(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown position %q", s)
	}
	return p, nil
}

// Valid reports whether p is one of the nine anchors.
func (p Position) Valid() bool {
	for _, candidate := range Positions {
		if candidate == p {
			return true
		}
	}
	return false
}

func (p Position) String() string { return string(p) }

// Point returns the anchor's coordinates within a width x height area.
func (p Position) Point(width, height float64) (x, y float64) {
	for i, candidate := range Positions {
		if candidate == p {
			col, row := i%3, i/3
			return float64(col) * width / 2, float64(row) * height / 2
		}
	}
	return width / 2, height / 2
}

// NearestPosition returns the anchor closest to (x, y) in a width x height
// area. Ties go to the earlier anchor in row-major order.
func NearestPosition(x, y, width, height float64) Position {
	best := Positions[0]
	bestDist := math.Inf(1)
	for _, p := range Positions {
		px, py := p.Point(width, height)
		d := math.Hypot(x-px, y-py)
		if d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}
