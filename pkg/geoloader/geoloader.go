// Package geoloader provides the public API for loading geospatial vector
// files (ESRI Shapefile component sets and DXF CAD drawings) into a common
// feature model, detecting their coordinate reference system, and
// transforming coordinates between the supported systems (Swiss LV95/LV03,
// WGS84, Web Mercator).
//
// Create a Loader with NewLoader and feed it raw file bytes; file I/O is
// the caller's concern. Each Loader owns a transform cache, so tests and
// independent pipelines stay isolated.
package geoloader

import (
	"fmt"

	"github.com/benj01/geoloader/internal/crs"
	"github.com/benj01/geoloader/internal/dxf"
	"github.com/benj01/geoloader/internal/geom"
	"github.com/benj01/geoloader/internal/shapefile"
)

// Loader parses vector files and transforms their coordinates. Safe for
// concurrent use; the transform cache is append-only.
type Loader struct {
	transforms *crs.Manager
}

// NewLoader creates a Loader with its own transform cache.
func NewLoader() *Loader {
	return &Loader{transforms: crs.NewManager()}
}

// ParseOptions controls parsing behavior.
type ParseOptions struct {
	// MaxFileSize rejects oversized Shapefile geometry buffers before
	// parsing. Zero means the default (512 MB); negative disables the
	// check. Ignored for DXF.
	MaxFileSize int64

	// TargetSystem, when not SystemNone, transforms all coordinates into
	// the given system right after parsing. Fails if no coordinate
	// system was detected.
	TargetSystem CoordinateSystem
}

// ShapefileInput holds the raw bytes of a Shapefile component set.
// SHP, SHX, and DBF are required; PRJ is optional.
type ShapefileInput struct {
	SHP []byte
	SHX []byte
	DBF []byte
	PRJ []byte
}

// ParseShapefile parses a Shapefile component set with default options.
func (l *Loader) ParseShapefile(input ShapefileInput) (*Dataset, error) {
	return l.ParseShapefileWithOptions(input, ParseOptions{})
}

// ParseShapefileWithOptions parses a Shapefile component set.
//
// Geometry records join attribute rows by index; records that fail to
// parse individually are reported in the dataset's issue list rather than
// aborting the whole file.
func (l *Loader) ParseShapefileWithOptions(input ShapefileInput, opts ParseOptions) (*Dataset, error) {
	result, err := shapefile.Parse(shapefile.Input{
		SHP: input.SHP,
		SHX: input.SHX,
		DBF: input.DBF,
		PRJ: input.PRJ,
	}, shapefile.Options{MaxFileSize: opts.MaxFileSize})
	if err != nil {
		return nil, err
	}

	dataset := &Dataset{
		format:    FormatShapefile,
		detection: fromInternalDetection(result.Detection),
	}
	dataset.system = dataset.detection.System

	for _, f := range result.Features {
		dataset.features = append(dataset.features, Feature{
			id:         f.RecordNumber,
			geometry:   fromInternalGeometry(f.Geometry),
			bounds:     fromInternalBounds(f.Bounds),
			attributes: f.Attributes,
		})
	}
	for _, issue := range result.Issues {
		record := ""
		if issue.Record > 0 {
			record = fmt.Sprintf("%d", issue.Record)
		}
		dataset.issues = append(dataset.issues, Issue{
			Severity: Severity(issue.Severity),
			Code:     issue.Code,
			Message:  issue.Message,
			Record:   record,
		})
	}

	finishDataset(dataset)
	if err := l.applyTarget(dataset, opts); err != nil {
		return nil, err
	}
	return dataset, nil
}

// ParseDXF parses an ASCII DXF drawing with default options.
func (l *Loader) ParseDXF(buf []byte) (*Dataset, error) {
	return l.ParseDXFWithOptions(buf, ParseOptions{})
}

// ParseDXFWithOptions parses an ASCII DXF drawing. Block references are
// expanded into world-space features; the referenced block's entities
// appear once per INSERT (and once per grid cell for array inserts).
func (l *Loader) ParseDXFWithOptions(buf []byte, opts ParseOptions) (*Dataset, error) {
	document, err := dxf.Parse(buf, dxf.DefaultOptions())
	if err != nil {
		return nil, err
	}
	entities := dxf.Expand(document)
	detection := dxf.InferCRS(document, entities)

	dataset := &Dataset{
		format:    FormatDXF,
		detection: fromInternalDetection(detection),
	}
	dataset.system = dataset.detection.System

	id := 0
	for _, entity := range entities {
		g := entity.Geometry()
		if g == nil {
			continue
		}
		id++
		common := entity.EntityCommon()
		attributes := map[string]any{
			"entityType": entity.DXFType(),
		}
		if common.Handle != "" {
			attributes["handle"] = common.Handle
		}
		if text, ok := entity.(dxf.Text); ok {
			attributes["text"] = text.Value
		}
		dataset.features = append(dataset.features, Feature{
			id:         id,
			layer:      common.Layer,
			geometry:   fromInternalGeometry(g),
			bounds:     fromInternalBounds(g.Bounds()),
			attributes: attributes,
		})
	}
	for _, issue := range document.Issues {
		dataset.issues = append(dataset.issues, Issue{
			Severity: Severity(issue.Severity),
			Code:     issue.Code,
			Message:  issue.Message,
			Record:   issue.Handle,
		})
	}
	if dataset.detection.System == SystemNone {
		dataset.issues = append(dataset.issues, Issue{
			Severity: SeverityWarning,
			Code:     dxf.IssueNoCRS,
			Message:  dataset.detection.Reasoning,
		})
	}

	finishDataset(dataset)
	if err := l.applyTarget(dataset, opts); err != nil {
		return nil, err
	}
	return dataset, nil
}

// Transform converts all dataset coordinates from their current system
// into the target system, rebuilding bounds and the spatial index.
//
// Unsupported pairs (anything involving SystemNone) fail; callers that
// want a fallback must choose one explicitly.
func (l *Loader) Transform(dataset *Dataset, target CoordinateSystem) error {
	from := dataset.system.internal()
	to := target.internal()

	pointFn, err := l.transforms.PointTransform(from, to)
	if err != nil {
		return err
	}

	for i := range dataset.features {
		transformGeometry(&dataset.features[i].geometry, pointFn)
		dataset.features[i].bounds = geometryBounds(dataset.features[i].geometry)
	}
	dataset.system = target
	finishDataset(dataset)
	return nil
}

// TransformPoint converts a single coordinate between systems.
func (l *Loader) TransformPoint(x, y float64, from, to CoordinateSystem) (float64, float64, error) {
	fn, err := l.transforms.PointTransform(from.internal(), to.internal())
	if err != nil {
		return 0, 0, err
	}
	out := fn(geom.Coord{x, y})
	return out[0], out[1], nil
}

func (l *Loader) applyTarget(dataset *Dataset, opts ParseOptions) error {
	if opts.TargetSystem == SystemNone || opts.TargetSystem == dataset.system {
		return nil
	}
	return l.Transform(dataset, opts.TargetSystem)
}

// finishDataset recomputes the dataset envelope and rebuilds the spatial
// index from the current feature list.
func finishDataset(dataset *Dataset) {
	union := geom.NewBounds()
	for _, f := range dataset.features {
		b := f.bounds
		union = union.Extend(b.MinX, b.MinY)
		union = union.Extend(b.MaxX, b.MaxY)
	}
	if !union.IsEmpty() {
		dataset.bounds = Bounds{MinX: union.MinX, MinY: union.MinY, MaxX: union.MaxX, MaxY: union.MaxY}
	}
	dataset.spatialIndex = buildSpatialIndex(dataset.features)
}

func fromInternalBounds(b geom.Bounds) Bounds {
	return Bounds{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
}

// fromInternalGeometry flattens the internal variants into the public
// parts layout documented on Geometry.
func fromInternalGeometry(g geom.Geometry) Geometry {
	switch v := g.(type) {
	case geom.Point:
		return Geometry{Type: GeometryTypePoint, Coordinates: [][][]float64{{coordSlice(v.Coord)}}}
	case geom.MultiPoint:
		return Geometry{Type: GeometryTypeMultiPoint, Coordinates: [][][]float64{coordsSlice(v.Coords_)}}
	case geom.LineString:
		return Geometry{Type: GeometryTypeLineString, Coordinates: [][][]float64{coordsSlice(v.Coords_)}}
	case geom.Polygon:
		return Geometry{Type: GeometryTypePolygon, Coordinates: partsSlice(v.Rings)}
	case geom.MultiLineString:
		return Geometry{Type: GeometryTypeMultiLineString, Coordinates: partsSlice(v.Lines)}
	case geom.MultiPolygon:
		var parts [][][]float64
		for _, poly := range v.Polygons {
			parts = append(parts, partsSlice(poly)...)
		}
		return Geometry{Type: GeometryTypeMultiPolygon, Coordinates: parts}
	default:
		return Geometry{}
	}
}

func coordSlice(c geom.Coord) []float64 {
	out := make([]float64, len(c))
	copy(out, c)
	return out
}

func coordsSlice(coords []geom.Coord) [][]float64 {
	out := make([][]float64, len(coords))
	for i, c := range coords {
		out[i] = coordSlice(c)
	}
	return out
}

func partsSlice(parts [][]geom.Coord) [][][]float64 {
	out := make([][][]float64, len(parts))
	for i, part := range parts {
		out[i] = coordsSlice(part)
	}
	return out
}

func transformGeometry(g *Geometry, fn crs.PointTransform) {
	for _, part := range g.Coordinates {
		for i, position := range part {
			out := fn(geom.Coord(position))
			part[i] = []float64(out)
		}
	}
}

func geometryBounds(g Geometry) Bounds {
	b := geom.NewBounds()
	for _, part := range g.Coordinates {
		for _, position := range part {
			if len(position) >= 2 {
				b = b.Extend(position[0], position[1])
			}
		}
	}
	if b.IsEmpty() {
		return Bounds{}
	}
	return Bounds{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
}
