package shapefile

import (
	"encoding/binary"
	"math"

	"github.com/benj01/geoloader/internal/geom"
)

// The 100-byte main file header is shared by .shp and .shx.
//
// ESRI Shapefile Technical Description, main file header layout:
//
//	Byte  0: File code (int32 BE) - always 9994
//	Bytes 4-23: unused
//	Byte 24: File length in 16-bit words, including header (int32 BE)
//	Byte 28: Version (int32 LE) - always 1000
//	Byte 32: Shape type (int32 LE)
//	Byte 36: Bounding box Xmin, Ymin, Xmax, Ymax (4 x float64 LE)
//	Byte 68: Zmin, Zmax, Mmin, Mmax (4 x float64 LE)
const (
	headerLength = 100
	fileCode     = 9994
	fileVersion  = 1000
)

// Header is the decoded main file header of a .shp or .shx file.
type Header struct {
	FileLengthWords int32 // file length in 16-bit words, header included
	ShapeType       ShapeType
	Bounds          geom.Bounds
	ZRange          [2]float64
	MRange          [2]float64
}

// FileLengthBytes returns the declared file length in bytes.
func (h Header) FileLengthBytes() int64 {
	return int64(h.FileLengthWords) * 2
}

// ReadHeader decodes and validates the 100-byte main file header.
//
// The file code must be 9994 and the version 1000; anything else rejects
// the whole file up front since record offsets cannot be trusted.
func ReadHeader(buf []byte) (Header, error) {
	if len(buf) < headerLength {
		return Header{}, &ErrInvalidHeader{
			Reason: "buffer too small for header",
			Got:    len(buf),
			Want:   headerLength,
		}
	}

	code := int32(binary.BigEndian.Uint32(buf[0:4]))
	if code != fileCode {
		return Header{}, &ErrInvalidHeader{Reason: "bad file code", Got: int(code), Want: fileCode}
	}

	version := int32(binary.LittleEndian.Uint32(buf[28:32]))
	if version != fileVersion {
		return Header{}, &ErrInvalidHeader{Reason: "unsupported version", Got: int(version), Want: fileVersion}
	}

	h := Header{
		FileLengthWords: int32(binary.BigEndian.Uint32(buf[24:28])),
		ShapeType:       ShapeType(binary.LittleEndian.Uint32(buf[32:36])),
	}

	xmin := math.Float64frombits(binary.LittleEndian.Uint64(buf[36:44]))
	ymin := math.Float64frombits(binary.LittleEndian.Uint64(buf[44:52]))
	xmax := math.Float64frombits(binary.LittleEndian.Uint64(buf[52:60]))
	ymax := math.Float64frombits(binary.LittleEndian.Uint64(buf[60:68]))
	// Header bounds are advisory only: per-record envelopes are always
	// recomputed from parsed coordinates (spec tolerates corrupt envelopes).
	h.Bounds = geom.Bounds{MinX: xmin, MinY: ymin, MaxX: xmax, MaxY: ymax}

	h.ZRange[0] = math.Float64frombits(binary.LittleEndian.Uint64(buf[68:76]))
	h.ZRange[1] = math.Float64frombits(binary.LittleEndian.Uint64(buf[76:84]))
	h.MRange[0] = math.Float64frombits(binary.LittleEndian.Uint64(buf[84:92]))
	h.MRange[1] = math.Float64frombits(binary.LittleEndian.Uint64(buf[92:100]))

	return h, nil
}

// ShapeType is the ESRI shape type code.
type ShapeType int32

const (
	ShapeNull        ShapeType = 0
	ShapePoint       ShapeType = 1
	ShapePolyLine    ShapeType = 3
	ShapePolygon     ShapeType = 5
	ShapeMultiPoint  ShapeType = 8
	ShapePointZ      ShapeType = 11
	ShapePolyLineZ   ShapeType = 13
	ShapePolygonZ    ShapeType = 15
	ShapeMultiPointZ ShapeType = 18
	ShapePointM      ShapeType = 21
	ShapePolyLineM   ShapeType = 23
	ShapePolygonM    ShapeType = 25
	ShapeMultiPointM ShapeType = 28
	ShapeMultiPatch  ShapeType = 31
)

// String returns the shape type name.
func (t ShapeType) String() string {
	switch t {
	case ShapeNull:
		return "Null"
	case ShapePoint:
		return "Point"
	case ShapePolyLine:
		return "PolyLine"
	case ShapePolygon:
		return "Polygon"
	case ShapeMultiPoint:
		return "MultiPoint"
	case ShapePointZ:
		return "PointZ"
	case ShapePolyLineZ:
		return "PolyLineZ"
	case ShapePolygonZ:
		return "PolygonZ"
	case ShapeMultiPointZ:
		return "MultiPointZ"
	case ShapePointM:
		return "PointM"
	case ShapePolyLineM:
		return "PolyLineM"
	case ShapePolygonM:
		return "PolygonM"
	case ShapeMultiPatch:
		return "MultiPatch"
	default:
		return "Unknown"
	}
}

// hasZ reports whether the type carries Z values.
func (t ShapeType) hasZ() bool {
	switch t {
	case ShapePointZ, ShapePolyLineZ, ShapePolygonZ, ShapeMultiPointZ:
		return true
	}
	return false
}

// hasM reports whether the type carries measure values (parsed past, not kept).
func (t ShapeType) hasM() bool {
	switch t {
	case ShapePointM, ShapePolyLineM, ShapePolygonM, ShapeMultiPointM:
		return true
	}
	return t.hasZ() // Z types optionally carry an M block too
}

// supported reports whether this library can decode the type's geometry.
func (t ShapeType) supported() bool {
	switch t {
	case ShapePoint, ShapePolyLine, ShapePolygon, ShapeMultiPoint,
		ShapePointZ, ShapePolyLineZ, ShapePolygonZ, ShapeMultiPointZ,
		ShapePointM, ShapePolyLineM, ShapePolygonM, ShapeMultiPointM:
		return true
	}
	return false
}
