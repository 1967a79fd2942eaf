package geoloader

import (
	"github.com/dhconnelly/rtreego"
)

// Dataset represents one parsed vector file: features, their common
// envelope, the detected coordinate system, and any issues found while
// parsing.
//
// All fields are private to maintain encapsulation. Access features via
// Features(), FeaturesInBounds(), or FeatureCount().
type Dataset struct {
	features     []Feature
	spatialIndex *spatialIndex
	bounds       Bounds
	detection    Detection
	issues       []Issue
	format       Format
	system       CoordinateSystem
}

// Format identifies the source file format of a dataset.
type Format int

const (
	FormatShapefile Format = iota
	FormatDXF
)

func (f Format) String() string {
	switch f {
	case FormatShapefile:
		return "Shapefile"
	case FormatDXF:
		return "DXF"
	default:
		return "Unknown"
	}
}

// Features returns all features in the dataset.
func (d *Dataset) Features() []Feature {
	return d.features
}

// FeatureCount returns the number of features in the dataset.
func (d *Dataset) FeatureCount() int {
	return len(d.features)
}

// Bounds returns the envelope of all feature coordinates, recomputed from
// the parsed geometry.
func (d *Dataset) Bounds() Bounds {
	return d.bounds
}

// Detection returns how the coordinate system was determined.
func (d *Dataset) Detection() Detection {
	return d.detection
}

// CoordinateSystem returns the system the dataset's coordinates are
// currently expressed in. Right after parsing this is the detected
// system; Transform updates it.
func (d *Dataset) CoordinateSystem() CoordinateSystem {
	return d.system
}

// Issues returns the non-fatal problems collected during parsing.
func (d *Dataset) Issues() []Issue {
	return d.issues
}

// Format returns the source file format.
func (d *Dataset) Format() Format {
	return d.format
}

// Feature is one parsed record: geometry plus attributes. Immutable value
// object, safe to pass across goroutines and serialization boundaries.
type Feature struct {
	id         int
	layer      string
	geometry   Geometry
	bounds     Bounds
	attributes map[string]any
}

// ID returns the feature identifier: the 1-based record number for
// Shapefiles, a running index for DXF entities.
func (f *Feature) ID() int {
	return f.id
}

// Layer returns the source layer name. Empty for Shapefile features.
func (f *Feature) Layer() string {
	return f.layer
}

// Geometry returns the spatial representation of the feature.
func (f *Feature) Geometry() Geometry {
	return f.geometry
}

// Bounds returns the feature's coordinate envelope.
func (f *Feature) Bounds() Bounds {
	return f.bounds
}

// Attributes returns all feature attributes as a map. For DXF features
// the map carries the entity type and text content where applicable.
func (f *Feature) Attributes() map[string]any {
	return f.attributes
}

// Attribute returns a specific attribute value by name.
func (f *Feature) Attribute(name string) (any, bool) {
	v, ok := f.attributes[name]
	return v, ok
}

// Geometry is the spatial representation of a feature.
//
// Positions follow GeoJSON axis order: [x, y] (easting/longitude first),
// with an optional trailing z.
type Geometry struct {
	// Type indicates the geometry variant.
	Type GeometryType

	// Coordinates contains positions grouped into parts:
	//
	// Point, MultiPoint, LineString: a single part
	// Polygon, MultiPolygon: one part per ring; exterior rings wind
	// clockwise, holes counterclockwise
	// MultiLineString: one part per line
	Coordinates [][][]float64
}

// GeometryType represents the type of geometry.
type GeometryType int

const (
	GeometryTypePoint GeometryType = iota
	GeometryTypeMultiPoint
	GeometryTypeLineString
	GeometryTypePolygon
	GeometryTypeMultiLineString
	GeometryTypeMultiPolygon
)

func (g GeometryType) String() string {
	switch g {
	case GeometryTypePoint:
		return "Point"
	case GeometryTypeMultiPoint:
		return "MultiPoint"
	case GeometryTypeLineString:
		return "LineString"
	case GeometryTypePolygon:
		return "Polygon"
	case GeometryTypeMultiLineString:
		return "MultiLineString"
	case GeometryTypeMultiPolygon:
		return "MultiPolygon"
	default:
		return "Unknown"
	}
}

// Bounds is an axis-aligned coordinate envelope.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Intersects reports whether two envelopes overlap.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX <= o.MaxX && b.MaxX >= o.MinX &&
		b.MinY <= o.MaxY && b.MaxY >= o.MinY
}

// Contains reports whether the point lies inside the envelope.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Width returns the horizontal extent.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Severity classifies an issue.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Issue is a non-fatal problem found during parsing.
type Issue struct {
	Severity Severity
	Code     string
	Message  string
	// Record identifies the source record or entity handle, empty when
	// the issue is file-wide.
	Record string
}

// FeaturesInBounds returns all features whose envelope intersects the
// given viewport. Backed by an R-tree, so this is the method to call per
// rendered frame.
func (d *Dataset) FeaturesInBounds(viewport Bounds) []Feature {
	if d.spatialIndex == nil || d.spatialIndex.rtree == nil {
		return d.featuresInBoundsLinear(viewport)
	}

	point := rtreego.Point{viewport.MinX, viewport.MinY}
	lengths := []float64{viewport.Width(), viewport.Height()}
	queryRect, err := rtreego.NewRect(point, lengths)
	if err != nil {
		return d.featuresInBoundsLinear(viewport)
	}

	spatials := d.spatialIndex.rtree.SearchIntersect(queryRect)
	result := make([]Feature, 0, len(spatials))
	for _, spatial := range spatials {
		result = append(result, spatial.(*indexedFeature).feature)
	}
	return result
}

func (d *Dataset) featuresInBoundsLinear(viewport Bounds) []Feature {
	var result []Feature
	for _, feature := range d.features {
		if viewport.Intersects(feature.bounds) {
			result = append(result, feature)
		}
	}
	return result
}

// spatialIndex provides O(log n) viewport queries over the features.
type spatialIndex struct {
	rtree *rtreego.Rtree
}

// indexedFeature wraps a feature for R-tree storage.
type indexedFeature struct {
	feature Feature
}

// Bounds implements the rtreego.Spatial interface.
func (f *indexedFeature) Bounds() rtreego.Rect {
	b := f.feature.bounds
	point := rtreego.Point{b.MinX, b.MinY}

	// The R-tree rejects zero-extent rectangles, so point features get a
	// small epsilon footprint.
	const epsilon = 1e-9
	width := b.Width()
	height := b.Height()
	if width < epsilon {
		width = epsilon
	}
	if height < epsilon {
		height = epsilon
	}

	rect, _ := rtreego.NewRect(point, []float64{width, height})
	return rect
}

func buildSpatialIndex(features []Feature) *spatialIndex {
	if len(features) == 0 {
		return nil
	}
	rtree := rtreego.NewTree(2, 25, 50)
	for i := range features {
		rtree.Insert(&indexedFeature{feature: features[i]})
	}
	return &spatialIndex{rtree: rtree}
}
