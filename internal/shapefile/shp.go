package shapefile

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/benj01/geoloader/internal/geom"
)

// Geometry record content parsing. Each content block starts with a 4-byte
// little-endian shape type, followed by a type-specific payload per the ESRI
// Shapefile Technical Description.

// Sanity ceiling on part/point counts, matching the record content length
// cap: counts beyond this indicate a corrupt length field, not real data.
const maxPartsOrPoints = 1_000_000

// shpCursor is a bounds-checked little-endian reader over one record's
// content block.
type shpCursor struct {
	buf []byte
	pos int
}

func (c *shpCursor) remaining() int { return len(c.buf) - c.pos }

func (c *shpCursor) int32() (int32, bool) {
	if c.remaining() < 4 {
		return 0, false
	}
	v := int32(binary.LittleEndian.Uint32(c.buf[c.pos : c.pos+4]))
	c.pos += 4
	return v, true
}

func (c *shpCursor) float64() (float64, bool) {
	if c.remaining() < 8 {
		return 0, false
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(c.buf[c.pos : c.pos+8]))
	c.pos += 8
	return v, true
}

func (c *shpCursor) skip(n int) bool {
	if c.remaining() < n {
		return false
	}
	c.pos += n
	return true
}

// parseGeometry decodes one record's content block into a geometry.
// A nil geometry with a nil error means a Null shape (record intentionally
// empty). Unsupported shape types are reported via ErrGeometry so the caller
// can warn and skip.
func parseGeometry(content []byte, recordNumber int) (geom.Geometry, ShapeType, error) {
	c := &shpCursor{buf: content}
	typeCode, ok := c.int32()
	if !ok {
		return nil, ShapeNull, &ErrGeometry{RecordNumber: recordNumber, Reason: "content too short for shape type"}
	}
	shapeType := ShapeType(typeCode)

	if shapeType == ShapeNull {
		return nil, ShapeNull, nil
	}
	if !shapeType.supported() {
		return nil, shapeType, &ErrGeometry{
			RecordNumber: recordNumber,
			Reason:       fmt.Sprintf("unsupported shape type %d (%s)", typeCode, shapeType),
		}
	}

	switch shapeType {
	case ShapePoint, ShapePointZ, ShapePointM:
		return parsePoint(c, shapeType, recordNumber)
	case ShapeMultiPoint, ShapeMultiPointZ, ShapeMultiPointM:
		return parseMultiPoint(c, shapeType, recordNumber)
	case ShapePolyLine, ShapePolyLineZ, ShapePolyLineM:
		return parsePoly(c, shapeType, recordNumber, false)
	case ShapePolygon, ShapePolygonZ, ShapePolygonM:
		return parsePoly(c, shapeType, recordNumber, true)
	}
	// Unreachable: supported() covers exactly the cases above.
	return nil, shapeType, &ErrGeometry{RecordNumber: recordNumber, Reason: "unhandled shape type"}
}

func parsePoint(c *shpCursor, t ShapeType, recordNumber int) (geom.Geometry, ShapeType, error) {
	x, okX := c.float64()
	y, okY := c.float64()
	if !okX || !okY {
		return nil, t, &ErrGeometry{RecordNumber: recordNumber, Reason: "point payload truncated"}
	}
	coord := geom.Coord{x, y}
	if t == ShapePointZ {
		if z, ok := c.float64(); ok {
			coord = append(coord, z)
		}
		// Optional trailing M ignored.
	}
	return geom.Point{Coord: coord}, t, nil
}

func parseMultiPoint(c *shpCursor, t ShapeType, recordNumber int) (geom.Geometry, ShapeType, error) {
	if !c.skip(32) { // bounding box, recomputed later
		return nil, t, &ErrGeometry{RecordNumber: recordNumber, Reason: "multipoint box truncated"}
	}
	numPoints, ok := c.int32()
	if !ok || numPoints < 0 || numPoints > maxPartsOrPoints {
		return nil, t, &ErrGeometry{
			RecordNumber: recordNumber,
			Reason:       fmt.Sprintf("unreasonable multipoint count %d", numPoints),
		}
	}

	coords := make([]geom.Coord, 0, numPoints)
	for i := int32(0); i < numPoints; i++ {
		x, okX := c.float64()
		y, okY := c.float64()
		if !okX || !okY {
			return nil, t, &ErrGeometry{RecordNumber: recordNumber, Reason: "multipoint coordinates truncated"}
		}
		coords = append(coords, geom.Coord{x, y})
	}

	if t == ShapeMultiPointZ {
		if !c.skip(16) { // z range
			return geom.MultiPoint{Coords_: coords}, t, nil
		}
		for i := range coords {
			z, ok := c.float64()
			if !ok {
				break
			}
			coords[i] = append(coords[i], z)
		}
	}
	return geom.MultiPoint{Coords_: coords}, t, nil
}

// parsePoly decodes PolyLine and Polygon payloads, which share a layout:
// box, numParts, numPoints, part start indices, then the point array.
func parsePoly(c *shpCursor, t ShapeType, recordNumber int, isPolygon bool) (geom.Geometry, ShapeType, error) {
	if !c.skip(32) {
		return nil, t, &ErrGeometry{RecordNumber: recordNumber, Reason: "poly box truncated"}
	}
	numParts, okParts := c.int32()
	numPoints, okPoints := c.int32()
	if !okParts || !okPoints {
		return nil, t, &ErrGeometry{RecordNumber: recordNumber, Reason: "poly counts truncated"}
	}
	if numParts <= 0 || numParts > maxPartsOrPoints || numPoints <= 0 || numPoints > maxPartsOrPoints {
		return nil, t, &ErrGeometry{
			RecordNumber: recordNumber,
			Reason:       fmt.Sprintf("unreasonable part count %d or point count %d", numParts, numPoints),
		}
	}

	parts := make([]int32, numParts)
	for i := range parts {
		idx, ok := c.int32()
		if !ok {
			return nil, t, &ErrGeometry{RecordNumber: recordNumber, Reason: "part index array truncated"}
		}
		if idx < 0 || idx >= numPoints {
			return nil, t, &ErrGeometry{
				RecordNumber: recordNumber,
				Reason:       fmt.Sprintf("part index %d out of bounds (points: %d)", idx, numPoints),
			}
		}
		parts[i] = idx
	}

	points := make([]geom.Coord, 0, numPoints)
	for i := int32(0); i < numPoints; i++ {
		x, okX := c.float64()
		y, okY := c.float64()
		if !okX || !okY {
			return nil, t, &ErrGeometry{RecordNumber: recordNumber, Reason: "point array truncated"}
		}
		points = append(points, geom.Coord{x, y})
	}

	if t.hasZ() {
		if c.skip(16) { // z range
			for i := range points {
				z, ok := c.float64()
				if !ok {
					break
				}
				points[i] = append(points[i], z)
			}
		}
	}

	// Split the flat point array into parts.
	rings := make([][]geom.Coord, 0, numParts)
	for i, start := range parts {
		end := numPoints
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start >= end {
			// Degenerate empty part; keep an empty slice so the caller can
			// flag it rather than silently renumbering parts.
			rings = append(rings, nil)
			continue
		}
		rings = append(rings, points[start:end])
	}

	if isPolygon {
		return assemblePolygon(rings), t, nil
	}
	if len(rings) == 1 {
		return geom.LineString{Coords_: rings[0]}, t, nil
	}
	return geom.MultiLineString{Lines: rings}, t, nil
}

// assemblePolygon groups rings into polygons by winding order: a clockwise
// ring opens a new polygon (exterior), counterclockwise rings are holes of
// the polygon opened most recently. Files with a single exterior yield a
// plain Polygon, multiple exteriors a MultiPolygon.
func assemblePolygon(rings [][]geom.Coord) geom.Geometry {
	var polygons [][][]geom.Coord
	var current [][]geom.Coord

	for _, ring := range rings {
		if len(ring) == 0 {
			continue
		}
		if geom.IsClockwise(ring) || current == nil {
			if current != nil {
				polygons = append(polygons, current)
			}
			current = [][]geom.Coord{ring}
		} else {
			current = append(current, ring)
		}
	}
	if current != nil {
		polygons = append(polygons, current)
	}

	switch len(polygons) {
	case 0:
		return geom.Polygon{}
	case 1:
		return geom.Polygon{Rings: polygons[0]}
	default:
		return geom.MultiPolygon{Polygons: polygons}
	}
}
