package geom

import "math"

// Bounds is an axis-aligned envelope. An empty bounds has Min > Max on both
// axes; NewBounds starts empty so the first Extend sets all four edges.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// NewBounds returns an empty bounds ready to be extended.
func NewBounds() Bounds {
	return Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

// IsEmpty reports whether the bounds contains no points.
func (b Bounds) IsEmpty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// Extend grows the bounds to include (x, y).
func (b Bounds) Extend(x, y float64) Bounds {
	if x < b.MinX {
		b.MinX = x
	}
	if x > b.MaxX {
		b.MaxX = x
	}
	if y < b.MinY {
		b.MinY = y
	}
	if y > b.MaxY {
		b.MaxY = y
	}
	return b
}

// Union returns the smallest bounds containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.MinX, o.MinY).Extend(o.MaxX, o.MaxY)
}

// Intersects reports whether b and o overlap (edges touching counts).
func (b Bounds) Intersects(o Bounds) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return false
	}
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX &&
		b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

// Contains reports whether (x, y) lies inside the bounds.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() (x, y float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// boundsOf computes the envelope of a coordinate list, ignoring coordinates
// with fewer than two components.
func boundsOf(coords []Coord) Bounds {
	b := NewBounds()
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		b = b.Extend(c[0], c[1])
	}
	return b
}

// BoundsOf computes the envelope of a coordinate list.
func BoundsOf(coords []Coord) Bounds {
	return boundsOf(coords)
}
