// Package geom holds the shared geometry model used by all format parsers.
//
// Coordinates follow GeoJSON convention: [x, y] or [x, y, z] slices, with x
// before y regardless of whether the data is geographic (lon/lat) or
// projected (easting/northing).
package geom

import "math"

// Coord is a single position: [x, y] or [x, y, z].
type Coord []float64

// Clone returns a copy of the coordinate.
func (c Coord) Clone() Coord {
	out := make(Coord, len(c))
	copy(out, c)
	return out
}

// Type identifies a geometry variant.
type Type int

const (
	TypePoint Type = iota
	TypeMultiPoint
	TypeLineString
	TypePolygon
	TypeMultiLineString
	TypeMultiPolygon
)

// String returns the GeoJSON-style name of the geometry type.
func (t Type) String() string {
	switch t {
	case TypePoint:
		return "Point"
	case TypeMultiPoint:
		return "MultiPoint"
	case TypeLineString:
		return "LineString"
	case TypePolygon:
		return "Polygon"
	case TypeMultiLineString:
		return "MultiLineString"
	case TypeMultiPolygon:
		return "MultiPolygon"
	default:
		return "Unknown"
	}
}

// PointFunc maps one coordinate to another. Implementations must preserve
// any Z value they do not interpret.
type PointFunc func(Coord) Coord

// Geometry is a closed union over the supported geometry variants.
//
// The union is sealed: only the types in this package implement it. Callers
// dispatch with a type switch over the concrete variants, so adding a new
// variant breaks every switch at compile review rather than at runtime.
type Geometry interface {
	Type() Type

	// Bounds returns the axis-aligned envelope of the geometry's own
	// coordinates. Empty geometries return an empty bounds.
	Bounds() Bounds

	// Transform returns a new geometry of the same variant with fn applied
	// to every coordinate. Topology (rings, part nesting) is preserved.
	Transform(fn PointFunc) Geometry

	// Coords returns every coordinate in the geometry, flattened.
	// Useful for coordinate-system detection which only needs positions.
	Coords() []Coord

	sealed()
}

// Point is a single position.
type Point struct {
	Coord Coord
}

// MultiPoint is an unordered set of positions.
type MultiPoint struct {
	Coords_ []Coord
}

// LineString is an ordered sequence of positions forming a path.
type LineString struct {
	Coords_ []Coord
}

// Polygon is one or more rings: the first exterior, the rest holes.
type Polygon struct {
	Rings [][]Coord
}

// MultiLineString is a set of paths.
type MultiLineString struct {
	Lines [][]Coord
}

// MultiPolygon is a set of polygons.
type MultiPolygon struct {
	Polygons [][][]Coord
}

func (Point) Type() Type           { return TypePoint }
func (MultiPoint) Type() Type      { return TypeMultiPoint }
func (LineString) Type() Type      { return TypeLineString }
func (Polygon) Type() Type         { return TypePolygon }
func (MultiLineString) Type() Type { return TypeMultiLineString }
func (MultiPolygon) Type() Type    { return TypeMultiPolygon }

func (Point) sealed()           {}
func (MultiPoint) sealed()      {}
func (LineString) sealed()      {}
func (Polygon) sealed()         {}
func (MultiLineString) sealed() {}
func (MultiPolygon) sealed()    {}

func (g Point) Coords() []Coord {
	if g.Coord == nil {
		return nil
	}
	return []Coord{g.Coord}
}
func (g MultiPoint) Coords() []Coord { return g.Coords_ }
func (g LineString) Coords() []Coord { return g.Coords_ }

func (g Polygon) Coords() []Coord {
	var out []Coord
	for _, ring := range g.Rings {
		out = append(out, ring...)
	}
	return out
}

func (g MultiLineString) Coords() []Coord {
	var out []Coord
	for _, line := range g.Lines {
		out = append(out, line...)
	}
	return out
}

func (g MultiPolygon) Coords() []Coord {
	var out []Coord
	for _, poly := range g.Polygons {
		for _, ring := range poly {
			out = append(out, ring...)
		}
	}
	return out
}

func (g Point) Bounds() Bounds           { return boundsOf(g.Coords()) }
func (g MultiPoint) Bounds() Bounds      { return boundsOf(g.Coords()) }
func (g LineString) Bounds() Bounds      { return boundsOf(g.Coords()) }
func (g Polygon) Bounds() Bounds         { return boundsOf(g.Coords()) }
func (g MultiLineString) Bounds() Bounds { return boundsOf(g.Coords()) }
func (g MultiPolygon) Bounds() Bounds    { return boundsOf(g.Coords()) }

func (g Point) Transform(fn PointFunc) Geometry {
	if g.Coord == nil {
		return g
	}
	return Point{Coord: fn(g.Coord)}
}

func (g MultiPoint) Transform(fn PointFunc) Geometry {
	return MultiPoint{Coords_: transformCoords(g.Coords_, fn)}
}

func (g LineString) Transform(fn PointFunc) Geometry {
	return LineString{Coords_: transformCoords(g.Coords_, fn)}
}

func (g Polygon) Transform(fn PointFunc) Geometry {
	rings := make([][]Coord, len(g.Rings))
	for i, ring := range g.Rings {
		rings[i] = transformCoords(ring, fn)
	}
	return Polygon{Rings: rings}
}

func (g MultiLineString) Transform(fn PointFunc) Geometry {
	lines := make([][]Coord, len(g.Lines))
	for i, line := range g.Lines {
		lines[i] = transformCoords(line, fn)
	}
	return MultiLineString{Lines: lines}
}

func (g MultiPolygon) Transform(fn PointFunc) Geometry {
	polys := make([][][]Coord, len(g.Polygons))
	for i, poly := range g.Polygons {
		rings := make([][]Coord, len(poly))
		for j, ring := range poly {
			rings[j] = transformCoords(ring, fn)
		}
		polys[i] = rings
	}
	return MultiPolygon{Polygons: polys}
}

func transformCoords(coords []Coord, fn PointFunc) []Coord {
	out := make([]Coord, len(coords))
	for i, c := range coords {
		out[i] = fn(c)
	}
	return out
}

// IsClockwise reports whether a ring winds clockwise, using the shoelace sum.
// Shapefile polygons store exterior rings clockwise and holes counterclockwise.
func IsClockwise(ring []Coord) bool {
	if len(ring) < 3 {
		return false
	}
	sum := 0.0
	for i := 0; i < len(ring)-1; i++ {
		x1, y1 := ring[i][0], ring[i][1]
		x2, y2 := ring[i+1][0], ring[i+1][1]
		sum += (x2 - x1) * (y2 + y1)
	}
	return sum > 0
}

// FiniteCoord reports whether the first two components are finite numbers.
func FiniteCoord(c Coord) bool {
	if len(c) < 2 {
		return false
	}
	return !math.IsNaN(c[0]) && !math.IsInf(c[0], 0) &&
		!math.IsNaN(c[1]) && !math.IsInf(c[1], 0)
}
