// Package shapefile decodes the ESRI Shapefile component set: the .shp
// geometry file, the .shx record index, the .dbf attribute table, and the
// optional .prj projection text.
//
// The parsers work over immutable byte buffers supplied by the caller; no
// file I/O happens here. Fatal problems (bad magic, mismatched companions,
// size limit) abort the parse with a typed error. Per-record problems are
// collected as issues alongside the partial result, so one corrupt record
// never discards the rest of a file.
package shapefile

import (
	"encoding/binary"
	"fmt"

	"github.com/benj01/geoloader/internal/crs"
	"github.com/benj01/geoloader/internal/geom"
)

// Input holds the raw bytes of the component files. SHP, SHX, and DBF are
// required; PRJ is optional.
type Input struct {
	SHP []byte
	SHX []byte
	DBF []byte
	PRJ []byte
}

// Options configures parsing behavior.
type Options struct {
	// MaxFileSize rejects oversized geometry files before any record
	// parsing. Zero means the default ceiling; negative disables the check.
	MaxFileSize int64
}

// DefaultOptions returns parse options with defaults.
func DefaultOptions() Options {
	return Options{
		MaxFileSize: 512 * 1024 * 1024, // 512MB
	}
}

func (o Options) maxFileSize() int64 {
	if o.MaxFileSize == 0 {
		return DefaultOptions().MaxFileSize
	}
	return o.MaxFileSize
}

// Severity classifies an issue.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

// Issue is a non-fatal problem found during parsing.
type Issue struct {
	Severity Severity
	Code     string
	Message  string
	Record   int // record number, 0 when not record-specific
}

// Issue codes.
const (
	IssueUnsupportedShape = "unsupported_shape_type"
	IssueGeometry         = "geometry_error"
	IssueDegenerate       = "degenerate_geometry"
	IssueNullShape        = "null_shape"
	IssueDeletedRecord    = "deleted_record"
	IssueRecordTruncated  = "record_truncated"
	IssueNoCRS            = "no_coordinate_system_detected"
)

// Feature is one parsed shapefile record: geometry joined with attributes.
// The bounding box is always recomputed from the parsed coordinates, never
// copied from the file.
type Feature struct {
	RecordNumber int
	ShapeType    ShapeType
	Geometry     geom.Geometry
	Bounds       geom.Bounds
	Attributes   Row
}

// Result is the outcome of parsing a shapefile component set.
type Result struct {
	Header    Header
	Features  []Feature
	Fields    []Field
	Bounds    geom.Bounds // union of recomputed per-record bounds
	Detection crs.DetectionResult
	Issues    []Issue
}

// Parse decodes a complete shapefile component set.
//
// The Nth geometry record joins the Nth DBF row by physical index; a
// mismatch between index entries and attribute rows is a fatal component
// error (truncating to the shorter list would silently misalign every
// record after the gap).
func Parse(input Input, opts Options) (*Result, error) {
	if limit := opts.maxFileSize(); limit > 0 && int64(len(input.SHP)) > limit {
		return nil, &ErrSizeLimit{Size: int64(len(input.SHP)), Limit: limit}
	}

	if len(input.SHP) == 0 {
		return nil, &ErrComponent{Reason: "missing .shp geometry file"}
	}
	if len(input.SHX) == 0 {
		return nil, &ErrComponent{Reason: "missing .shx index file"}
	}
	if len(input.DBF) == 0 {
		return nil, &ErrComponent{Reason: "missing .dbf attribute file"}
	}

	header, err := ReadHeader(input.SHP)
	if err != nil {
		return nil, err
	}

	entries, err := ReadOffsets(input.SHX)
	if err != nil {
		return nil, fmt.Errorf("read shx index: %w", err)
	}

	table, err := ReadDBF(input.DBF)
	if err != nil {
		return nil, fmt.Errorf("read dbf attributes: %w", err)
	}

	if len(entries) != table.PhysicalCount() {
		return nil, &ErrComponent{
			Reason: fmt.Sprintf("record count mismatch: %d index entries, %d attribute rows",
				len(entries), table.PhysicalCount()),
		}
	}

	result := &Result{
		Header: header,
		Fields: table.Fields,
		Bounds: geom.NewBounds(),
	}

	for i, entry := range entries {
		recordNumber := i + 1 // shapefile records are 1-based

		attributes, active := table.RowAt(i)
		if !active {
			result.addIssue(SeverityInfo, IssueDeletedRecord, recordNumber,
				"attribute row flagged deleted; geometry skipped")
			continue
		}

		content, issue := recordContent(input.SHP, entry, recordNumber)
		if issue != nil {
			result.Issues = append(result.Issues, *issue)
			continue
		}

		geometry, shapeType, err := parseGeometry(content, recordNumber)
		if err != nil {
			// Record-level failure: warn and continue with the next record.
			code := IssueGeometry
			if !shapeType.supported() && shapeType != ShapeNull {
				code = IssueUnsupportedShape
			}
			result.addIssue(SeverityWarning, code, recordNumber, err.Error())
			continue
		}
		if geometry == nil {
			result.addIssue(SeverityInfo, IssueNullShape, recordNumber, "null shape record")
			continue
		}

		if reason, degenerate := degenerateReason(geometry); degenerate {
			// Retained but flagged: downstream consumers decide what to drop.
			result.addIssue(SeverityWarning, IssueDegenerate, recordNumber, reason)
		}

		bounds := geometry.Bounds()
		result.Features = append(result.Features, Feature{
			RecordNumber: recordNumber,
			ShapeType:    shapeType,
			Geometry:     geometry,
			Bounds:       bounds,
			Attributes:   attributes,
		})
		result.Bounds = result.Bounds.Union(bounds)
	}

	result.Detection = detectSystem(input.PRJ, result)
	if result.Detection.System == crs.None {
		result.addIssue(SeverityWarning, IssueNoCRS, 0, result.Detection.Reasoning)
	}

	return result, nil
}

func (r *Result) addIssue(severity Severity, code string, record int, message string) {
	r.Issues = append(r.Issues, Issue{
		Severity: severity,
		Code:     code,
		Message:  message,
		Record:   record,
	})
}

// recordContent slices one record's content block out of the .shp buffer,
// validating the 8-byte record header (number, content length) against the
// SHX entry and the buffer size.
func recordContent(shp []byte, entry IndexEntry, recordNumber int) ([]byte, *Issue) {
	start := entry.OffsetBytes
	if start < headerLength || start+8 > int64(len(shp)) {
		return nil, &Issue{
			Severity: SeverityWarning,
			Code:     IssueRecordTruncated,
			Message:  fmt.Sprintf("shx offset %d outside geometry file", start),
			Record:   recordNumber,
		}
	}

	contentWords := int32(binary.BigEndian.Uint32(shp[start+4 : start+8]))
	if contentWords < 0 || contentWords > maxPartsOrPoints {
		return nil, &Issue{
			Severity: SeverityWarning,
			Code:     IssueRecordTruncated,
			Message:  fmt.Sprintf("unreasonable record content length %d words", contentWords),
			Record:   recordNumber,
		}
	}

	contentBytes := int64(contentWords) * 2
	if entry.LengthBytes != contentBytes {
		// Trust the record's own header; the index length is advisory.
		contentBytes = min64(entry.LengthBytes, contentBytes)
	}
	end := start + 8 + contentBytes
	if end > int64(len(shp)) {
		return nil, &Issue{
			Severity: SeverityWarning,
			Code:     IssueRecordTruncated,
			Message: fmt.Sprintf("truncated record content (need %d bytes, have %d)",
				contentBytes, int64(len(shp))-start-8),
			Record: recordNumber,
		}
	}
	return shp[start+8 : end], nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// degenerateReason flags geometries that parse but cannot render: too few
// vertices for their variant, or rings that never close.
func degenerateReason(g geom.Geometry) (string, bool) {
	switch v := g.(type) {
	case geom.LineString:
		if len(v.Coords_) < 2 {
			return fmt.Sprintf("linestring with %d vertices", len(v.Coords_)), true
		}
	case geom.MultiLineString:
		for i, line := range v.Lines {
			if len(line) < 2 {
				return fmt.Sprintf("part %d with %d vertices", i, len(line)), true
			}
		}
	case geom.Polygon:
		if len(v.Rings) == 0 {
			return "polygon with no rings", true
		}
		for i, ring := range v.Rings {
			if len(ring) < 4 {
				return fmt.Sprintf("ring %d with %d vertices", i, len(ring)), true
			}
		}
	case geom.MultiPolygon:
		for i, poly := range v.Polygons {
			for j, ring := range poly {
				if len(ring) < 4 {
					return fmt.Sprintf("polygon %d ring %d with %d vertices", i, j, len(ring)), true
				}
			}
		}
	case geom.MultiPoint:
		if len(v.Coords_) == 0 {
			return "multipoint with no points", true
		}
	}
	return "", false
}

// detectSystem prefers the .prj projection text when it classifies to a
// known system; otherwise falls back to bounds analysis over all parsed
// coordinates. Never silently assumes WGS84.
func detectSystem(prj []byte, result *Result) crs.DetectionResult {
	if len(prj) > 0 {
		detection := ReadPRJ(prj)
		if detection.System != crs.None {
			return detection
		}
	}

	var coords []geom.Coord
	for _, feature := range result.Features {
		coords = append(coords, feature.Geometry.Coords()...)
	}
	return crs.Detect(coords)
}
