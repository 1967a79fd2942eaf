package shapefile

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/benj01/geoloader/internal/crs"
	"github.com/benj01/geoloader/internal/geom"
)

// shpBuilder assembles a .shp buffer and the matching .shx index.
type shpBuilder struct {
	shapeType ShapeType
	records   [][]byte // content blocks (without record headers)
}

func (b *shpBuilder) addPoint(x, y float64) {
	content := make([]byte, 20)
	binary.LittleEndian.PutUint32(content[0:4], uint32(ShapePoint))
	binary.LittleEndian.PutUint64(content[4:12], math.Float64bits(x))
	binary.LittleEndian.PutUint64(content[12:20], math.Float64bits(y))
	b.records = append(b.records, content)
}

func (b *shpBuilder) addRaw(content []byte) {
	b.records = append(b.records, content)
}

// addPolyLine writes a single-part polyline content block with the given
// bounding box (possibly wrong, to prove envelopes get recomputed).
func (b *shpBuilder) addPolyLine(box [4]float64, coords [][2]float64) {
	content := make([]byte, 4+32+8+4+len(coords)*16)
	binary.LittleEndian.PutUint32(content[0:4], uint32(ShapePolyLine))
	for i, v := range box {
		binary.LittleEndian.PutUint64(content[4+i*8:12+i*8], math.Float64bits(v))
	}
	binary.LittleEndian.PutUint32(content[36:40], 1) // numParts
	binary.LittleEndian.PutUint32(content[40:44], uint32(len(coords)))
	binary.LittleEndian.PutUint32(content[44:48], 0) // part 0 start
	for i, c := range coords {
		binary.LittleEndian.PutUint64(content[48+i*16:56+i*16], math.Float64bits(c[0]))
		binary.LittleEndian.PutUint64(content[56+i*16:64+i*16], math.Float64bits(c[1]))
	}
	b.records = append(b.records, content)
}

// build returns the .shp and .shx buffers.
func (b *shpBuilder) build() (shp, shx []byte) {
	var pairs [][2]int32
	offsetWords := int32(50) // header is 100 bytes = 50 words

	body := []byte{}
	for i, content := range b.records {
		header := make([]byte, 8)
		binary.BigEndian.PutUint32(header[0:4], uint32(i+1))
		binary.BigEndian.PutUint32(header[4:8], uint32(len(content)/2))
		body = append(body, header...)
		body = append(body, content...)

		pairs = append(pairs, [2]int32{offsetWords, int32(len(content) / 2)})
		offsetWords += int32((8 + len(content)) / 2)
	}

	shp = buildMainHeader(b.shapeType, offsetWords, [4]float64{})
	shp = append(shp, body...)
	shx = buildSHX(pairs)
	return shp, shx
}

func singleFieldDBF(values []string, deleted []bool) []byte {
	fields := []Field{{Name: "ID", Type: FieldNumeric, Length: 4}}
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{v}
	}
	return buildDBF(fields, rows, deleted)
}

func TestParseJoinsGeometryAndAttributes(t *testing.T) {
	b := &shpBuilder{shapeType: ShapePoint}
	b.addPoint(2600000, 1200000)
	b.addPoint(2601000, 1201000)
	shp, shx := b.build()

	result, err := Parse(Input{SHP: shp, SHX: shx, DBF: singleFieldDBF([]string{"1", "2"}, nil)}, DefaultOptions())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(result.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(result.Features))
	}

	first := result.Features[0]
	if first.RecordNumber != 1 {
		t.Errorf("record number: got %d", first.RecordNumber)
	}
	point, ok := first.Geometry.(geom.Point)
	if !ok {
		t.Fatalf("expected Point geometry, got %T", first.Geometry)
	}
	if point.Coord[0] != 2600000 || point.Coord[1] != 1200000 {
		t.Errorf("coordinates: got %v", point.Coord)
	}
	if first.Attributes["ID"] != 1.0 {
		t.Errorf("attributes: got %v", first.Attributes)
	}
	if result.Features[1].Attributes["ID"] != 2.0 {
		t.Error("second feature joined to wrong attribute row")
	}
}

// TestParseCountMismatchFatal: truncating to the shorter list would misalign
// every later record, so mismatched companion counts abort the parse.
func TestParseCountMismatchFatal(t *testing.T) {
	b := &shpBuilder{shapeType: ShapePoint}
	b.addPoint(1, 2)
	b.addPoint(3, 4)
	shp, shx := b.build()

	_, err := Parse(Input{SHP: shp, SHX: shx, DBF: singleFieldDBF([]string{"1"}, nil)}, DefaultOptions())
	var componentErr *ErrComponent
	if !errors.As(err, &componentErr) {
		t.Fatalf("expected ErrComponent, got %v", err)
	}
}

func TestParseMissingComponents(t *testing.T) {
	b := &shpBuilder{shapeType: ShapePoint}
	b.addPoint(1, 2)
	shp, shx := b.build()
	dbf := singleFieldDBF([]string{"1"}, nil)

	cases := []struct {
		name  string
		input Input
	}{
		{"missing shp", Input{SHX: shx, DBF: dbf}},
		{"missing shx", Input{SHP: shp, DBF: dbf}},
		{"missing dbf", Input{SHP: shp, SHX: shx}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var componentErr *ErrComponent
			if _, err := Parse(tc.input, DefaultOptions()); !errors.As(err, &componentErr) {
				t.Errorf("expected ErrComponent, got %v", err)
			}
		})
	}
}

func TestParseSizeLimit(t *testing.T) {
	b := &shpBuilder{shapeType: ShapePoint}
	b.addPoint(1, 2)
	shp, shx := b.build()

	_, err := Parse(Input{SHP: shp, SHX: shx, DBF: singleFieldDBF([]string{"1"}, nil)},
		Options{MaxFileSize: 16})
	var sizeErr *ErrSizeLimit
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected ErrSizeLimit, got %v", err)
	}
	if sizeErr.Limit != 16 {
		t.Errorf("limit in error: got %d", sizeErr.Limit)
	}
}

// TestParseRecomputesBounds: the record's stored envelope is garbage; the
// result must carry the envelope of the actual coordinates.
func TestParseRecomputesBounds(t *testing.T) {
	b := &shpBuilder{shapeType: ShapePolyLine}
	b.addPolyLine([4]float64{-999, -999, 999, 999}, [][2]float64{{10, 20}, {30, 40}})
	shp, shx := b.build()

	result, err := Parse(Input{SHP: shp, SHX: shx, DBF: singleFieldDBF([]string{"1"}, nil)}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	bounds := result.Features[0].Bounds
	if bounds.MinX != 10 || bounds.MinY != 20 || bounds.MaxX != 30 || bounds.MaxY != 40 {
		t.Errorf("bounds not recomputed from coordinates: %+v", bounds)
	}
}

// TestParseUnsupportedShapeSkipped: a MultiPatch record produces a warning
// and is skipped; the remaining records still parse.
func TestParseUnsupportedShapeSkipped(t *testing.T) {
	b := &shpBuilder{shapeType: ShapePoint}
	unsupported := make([]byte, 4)
	binary.LittleEndian.PutUint32(unsupported, uint32(ShapeMultiPatch))
	b.addRaw(unsupported)
	b.addPoint(5, 6)
	shp, shx := b.build()

	result, err := Parse(Input{SHP: shp, SHX: shx, DBF: singleFieldDBF([]string{"1", "2"}, nil)}, DefaultOptions())
	if err != nil {
		t.Fatalf("unsupported record must not be fatal: %v", err)
	}
	if len(result.Features) != 1 {
		t.Fatalf("expected 1 surviving feature, got %d", len(result.Features))
	}
	if !hasIssue(result.Issues, IssueUnsupportedShape) {
		t.Errorf("missing unsupported-shape warning: %+v", result.Issues)
	}
}

// TestParseDegenerateFlagged: a one-vertex polyline is retained but flagged.
func TestParseDegenerateFlagged(t *testing.T) {
	b := &shpBuilder{shapeType: ShapePolyLine}
	b.addPolyLine([4]float64{}, [][2]float64{{10, 20}})
	shp, shx := b.build()

	result, err := Parse(Input{SHP: shp, SHX: shx, DBF: singleFieldDBF([]string{"1"}, nil)}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Features) != 1 {
		t.Fatal("degenerate geometry must be retained")
	}
	if !hasIssue(result.Issues, IssueDegenerate) {
		t.Errorf("missing degenerate warning: %+v", result.Issues)
	}
}

func TestParseDeletedRowSkipsGeometry(t *testing.T) {
	b := &shpBuilder{shapeType: ShapePoint}
	b.addPoint(1, 2)
	b.addPoint(3, 4)
	shp, shx := b.build()

	result, err := Parse(Input{SHP: shp, SHX: shx,
		DBF: singleFieldDBF([]string{"1", "2"}, []bool{true, false})}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(result.Features))
	}
	if result.Features[0].Attributes["ID"] != 2.0 {
		t.Error("surviving feature joined to wrong row")
	}
	if !hasIssue(result.Issues, IssueDeletedRecord) {
		t.Error("missing deleted-record issue")
	}
}

// TestParseDetectionFromPRJ: projection text wins over bounds analysis.
func TestParseDetectionFromPRJ(t *testing.T) {
	b := &shpBuilder{shapeType: ShapePoint}
	b.addPoint(2600000, 1200000)
	shp, shx := b.build()

	result, err := Parse(Input{
		SHP: shp, SHX: shx,
		DBF: singleFieldDBF([]string{"1"}, nil),
		PRJ: []byte(`PROJCS["CH1903+ / LV95",AUTHORITY["EPSG","2056"]]`),
	}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if result.Detection.System != crs.SwissLV95 {
		t.Errorf("detection: got %s", result.Detection.System)
	}
	if result.Detection.Method != crs.MethodProjectionText {
		t.Errorf("detection method: got %s", result.Detection.Method)
	}
}

// TestParseDetectionFromBounds: without a .prj, Swiss-range coordinates
// classify by bounds analysis.
func TestParseDetectionFromBounds(t *testing.T) {
	b := &shpBuilder{shapeType: ShapePoint}
	b.addPoint(2600000, 1200000)
	shp, shx := b.build()

	result, err := Parse(Input{SHP: shp, SHX: shx, DBF: singleFieldDBF([]string{"1"}, nil)}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if result.Detection.System != crs.SwissLV95 {
		t.Errorf("detection: got %s", result.Detection.System)
	}
	if result.Detection.Method != crs.MethodBoundsAnalysis {
		t.Errorf("detection method: got %s", result.Detection.Method)
	}
}

// TestParseUnknownCRSWarned: unmatched .prj and out-of-range coordinates
// yield None plus a warning, never a silent WGS84 assumption.
func TestParseUnknownCRSWarned(t *testing.T) {
	b := &shpBuilder{shapeType: ShapePoint}
	b.addPoint(5e8, 5e8)
	shp, shx := b.build()

	result, err := Parse(Input{
		SHP: shp, SHX: shx,
		DBF: singleFieldDBF([]string{"1"}, nil),
		PRJ: []byte(`PROJCS["NAD83 / UTM zone 19N"]`),
	}, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if result.Detection.System != crs.None {
		t.Errorf("detection: got %s, want None", result.Detection.System)
	}
	if !hasIssue(result.Issues, IssueNoCRS) {
		t.Error("missing no-CRS warning")
	}
}

func hasIssue(issues []Issue, code string) bool {
	for _, issue := range issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}
