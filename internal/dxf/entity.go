package dxf

import (
	"fmt"
	"math"

	"github.com/benj01/geoloader/internal/geom"
)

// Common carries the fields shared by every entity variant.
type Common struct {
	Handle   string
	Layer    string
	LineType string
}

// EntityCommon returns the shared entity fields.
func (c Common) EntityCommon() Common { return c }

// Entity is the closed set of supported DXF entity variants. Concrete
// types are Line, Point, Polyline, Circle, Arc, Ellipse, Text, Insert,
// and Spline.
type Entity interface {
	// DXFType returns the record name, e.g. "LINE".
	DXFType() string
	// EntityCommon returns handle, layer, and line type.
	EntityCommon() Common
	// Geometry converts the entity into the common geometry model.
	// Insert entities return nil; they are resolved by block expansion.
	Geometry() geom.Geometry

	// points returns representative coordinates for pattern analysis.
	points() []geom.Coord
	// apply returns a copy with the affine transform applied.
	apply(m geom.Matrix) Entity
	// validate returns a non-empty reason when the entity is malformed.
	// Malformed entities are kept and reported, never dropped silently.
	validate() string
}

type Line struct {
	Common
	Start geom.Coord
	End   geom.Coord
}

type Point struct {
	Common
	Position geom.Coord
}

type Polyline struct {
	Common
	Vertices []geom.Coord
	Closed   bool
}

type Circle struct {
	Common
	Center geom.Coord
	Radius float64
}

type Arc struct {
	Common
	Center     geom.Coord
	Radius     float64
	StartAngle float64 // degrees
	EndAngle   float64 // degrees
}

type Ellipse struct {
	Common
	Center         geom.Coord
	MajorAxis      geom.Coord // endpoint relative to center
	MinorAxisRatio float64
	StartParam     float64 // radians
	EndParam       float64 // radians
}

type Text struct {
	Common
	Position geom.Coord
	Value    string
}

// Insert places a named block at a position, optionally scaled, rotated,
// and repeated in a row/column grid.
type Insert struct {
	Common
	Block      string
	Position   geom.Coord
	ScaleX     float64
	ScaleY     float64
	Rotation   float64 // degrees
	Rows       int
	Columns    int
	RowSpacing float64
	ColSpacing float64
}

type Spline struct {
	Common
	Degree        int
	ControlPoints []geom.Coord
	Knots         []float64
	Weights       []float64
}

// Block is a named group of entities reusable via Insert.
type Block struct {
	Name     string
	Layer    string
	Position geom.Coord // base point subtracted at insertion
	Entities []Entity
}

// Layer is one entry of the LAYER table.
type Layer struct {
	Name     string
	Color    int
	LineType string
	Frozen   bool
	Locked   bool
	Visible  bool
}

func (Line) DXFType() string     { return "LINE" }
func (Point) DXFType() string    { return "POINT" }
func (Polyline) DXFType() string { return "POLYLINE" }
func (Circle) DXFType() string   { return "CIRCLE" }
func (Arc) DXFType() string      { return "ARC" }
func (Ellipse) DXFType() string  { return "ELLIPSE" }
func (Text) DXFType() string     { return "TEXT" }
func (Insert) DXFType() string   { return "INSERT" }
func (Spline) DXFType() string   { return "SPLINE" }

// arcSegments controls curve tessellation density for the geometry model.
const arcSegments = 32

func (e Line) Geometry() geom.Geometry {
	return geom.LineString{Coords_: []geom.Coord{e.Start.Clone(), e.End.Clone()}}
}

func (e Point) Geometry() geom.Geometry {
	return geom.Point{Coord: e.Position.Clone()}
}

func (e Polyline) Geometry() geom.Geometry {
	coords := cloneCoords(e.Vertices)
	if e.Closed && len(coords) >= 3 {
		first := coords[0]
		last := coords[len(coords)-1]
		if first[0] != last[0] || first[1] != last[1] {
			coords = append(coords, first.Clone())
		}
		return geom.Polygon{Rings: [][]geom.Coord{coords}}
	}
	return geom.LineString{Coords_: coords}
}

func (e Circle) Geometry() geom.Geometry {
	ring := make([]geom.Coord, 0, arcSegments+1)
	for i := 0; i <= arcSegments; i++ {
		angle := 2 * math.Pi * float64(i) / arcSegments
		ring = append(ring, geom.Coord{
			e.Center[0] + e.Radius*math.Cos(angle),
			e.Center[1] + e.Radius*math.Sin(angle),
		})
	}
	return geom.Polygon{Rings: [][]geom.Coord{ring}}
}

func (e Arc) Geometry() geom.Geometry {
	start := e.StartAngle * math.Pi / 180
	end := e.EndAngle * math.Pi / 180
	// DXF arcs run counterclockwise from start to end.
	for end <= start {
		end += 2 * math.Pi
	}
	sweep := end - start

	coords := make([]geom.Coord, 0, arcSegments+1)
	for i := 0; i <= arcSegments; i++ {
		angle := start + sweep*float64(i)/arcSegments
		coords = append(coords, geom.Coord{
			e.Center[0] + e.Radius*math.Cos(angle),
			e.Center[1] + e.Radius*math.Sin(angle),
		})
	}
	return geom.LineString{Coords_: coords}
}

func (e Ellipse) Geometry() geom.Geometry {
	major := math.Hypot(e.MajorAxis[0], e.MajorAxis[1])
	minor := major * e.MinorAxisRatio
	tilt := math.Atan2(e.MajorAxis[1], e.MajorAxis[0])

	start, end := e.StartParam, e.EndParam
	if end <= start {
		end += 2 * math.Pi
	}
	sweep := end - start

	coords := make([]geom.Coord, 0, arcSegments+1)
	for i := 0; i <= arcSegments; i++ {
		t := start + sweep*float64(i)/arcSegments
		x := major * math.Cos(t)
		y := minor * math.Sin(t)
		coords = append(coords, geom.Coord{
			e.Center[0] + x*math.Cos(tilt) - y*math.Sin(tilt),
			e.Center[1] + x*math.Sin(tilt) + y*math.Cos(tilt),
		})
	}
	return geom.LineString{Coords_: coords}
}

func (e Text) Geometry() geom.Geometry {
	return geom.Point{Coord: e.Position.Clone()}
}

func (e Insert) Geometry() geom.Geometry { return nil }

func (e Spline) Geometry() geom.Geometry {
	// Control polygon approximation; exact basis evaluation is not needed
	// for envelope and coordinate-system work.
	return geom.LineString{Coords_: cloneCoords(e.ControlPoints)}
}

func (e Line) points() []geom.Coord     { return []geom.Coord{e.Start, e.End} }
func (e Point) points() []geom.Coord    { return []geom.Coord{e.Position} }
func (e Polyline) points() []geom.Coord { return e.Vertices }
func (e Circle) points() []geom.Coord   { return []geom.Coord{e.Center} }
func (e Arc) points() []geom.Coord      { return []geom.Coord{e.Center} }
func (e Ellipse) points() []geom.Coord  { return []geom.Coord{e.Center} }
func (e Text) points() []geom.Coord     { return []geom.Coord{e.Position} }
func (e Insert) points() []geom.Coord   { return nil }
func (e Spline) points() []geom.Coord   { return e.ControlPoints }

func (e Line) apply(m geom.Matrix) Entity {
	e.Start = m.Apply(e.Start)
	e.End = m.Apply(e.End)
	return e
}

func (e Point) apply(m geom.Matrix) Entity {
	e.Position = m.Apply(e.Position)
	return e
}

func (e Polyline) apply(m geom.Matrix) Entity {
	e.Vertices = applyCoords(m, e.Vertices)
	return e
}

func (e Circle) apply(m geom.Matrix) Entity {
	e.Center = m.Apply(e.Center)
	e.Radius *= matrixScale(m)
	return e
}

func (e Arc) apply(m geom.Matrix) Entity {
	e.Center = m.Apply(e.Center)
	e.Radius *= matrixScale(m)
	e.StartAngle += matrixRotationDeg(m)
	e.EndAngle += matrixRotationDeg(m)
	return e
}

func (e Ellipse) apply(m geom.Matrix) Entity {
	e.Center = m.Apply(e.Center)
	// The major axis is a direction vector, so only the linear part of the
	// transform applies to it.
	linear := m
	linear[4], linear[5] = 0, 0
	e.MajorAxis = linear.Apply(e.MajorAxis)
	return e
}

func (e Text) apply(m geom.Matrix) Entity {
	e.Position = m.Apply(e.Position)
	return e
}

func (e Insert) apply(m geom.Matrix) Entity {
	e.Position = m.Apply(e.Position)
	return e
}

func (e Spline) apply(m geom.Matrix) Entity {
	e.ControlPoints = applyCoords(m, e.ControlPoints)
	return e
}

func (e Line) validate() string {
	if !geom.FiniteCoord(e.Start) || !geom.FiniteCoord(e.End) {
		return "line requires two finite points"
	}
	return ""
}

func (e Point) validate() string {
	if !geom.FiniteCoord(e.Position) {
		return "point requires a finite position"
	}
	return ""
}

func (e Polyline) validate() string {
	if len(e.Vertices) < 2 {
		return fmt.Sprintf("polyline with %d vertices", len(e.Vertices))
	}
	for i, v := range e.Vertices {
		if !geom.FiniteCoord(v) {
			return fmt.Sprintf("polyline vertex %d not finite", i)
		}
	}
	return ""
}

func (e Circle) validate() string {
	if !geom.FiniteCoord(e.Center) {
		return "circle requires a finite center"
	}
	if e.Radius <= 0 || math.IsInf(e.Radius, 0) || math.IsNaN(e.Radius) {
		return fmt.Sprintf("circle with radius %g", e.Radius)
	}
	return ""
}

func (e Arc) validate() string {
	if !geom.FiniteCoord(e.Center) {
		return "arc requires a finite center"
	}
	if e.Radius <= 0 || math.IsInf(e.Radius, 0) || math.IsNaN(e.Radius) {
		return fmt.Sprintf("arc with radius %g", e.Radius)
	}
	return ""
}

func (e Ellipse) validate() string {
	if !geom.FiniteCoord(e.Center) || !geom.FiniteCoord(e.MajorAxis) {
		return "ellipse requires finite center and major axis"
	}
	if e.MinorAxisRatio <= 0 || e.MinorAxisRatio > 1 {
		return fmt.Sprintf("ellipse with axis ratio %g", e.MinorAxisRatio)
	}
	return ""
}

func (e Text) validate() string {
	if !geom.FiniteCoord(e.Position) {
		return "text requires a finite position"
	}
	return ""
}

func (e Insert) validate() string {
	if e.Block == "" {
		return "insert without a block name"
	}
	if !geom.FiniteCoord(e.Position) {
		return "insert requires a finite position"
	}
	return ""
}

func (e Spline) validate() string {
	if len(e.ControlPoints) < 2 {
		return fmt.Sprintf("spline with %d control points", len(e.ControlPoints))
	}
	if e.Degree < 1 {
		return fmt.Sprintf("spline with degree %d", e.Degree)
	}
	return ""
}

func cloneCoords(coords []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		out[i] = c.Clone()
	}
	return out
}

func applyCoords(m geom.Matrix, coords []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		out[i] = m.Apply(c)
	}
	return out
}

// matrixScale extracts a scalar magnitude from the linear part, used for
// radii. Non-uniform block scales distort circles; the geometric mean of
// the axis scales keeps the area correct.
func matrixScale(m geom.Matrix) float64 {
	sx := math.Hypot(m[0], m[1])
	sy := math.Hypot(m[2], m[3])
	return math.Sqrt(sx * sy)
}

func matrixRotationDeg(m geom.Matrix) float64 {
	return math.Atan2(m[1], m[0]) * 180 / math.Pi
}
