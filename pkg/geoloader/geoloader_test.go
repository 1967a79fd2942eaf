package geoloader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/benj01/geoloader/internal/crs"
	"github.com/benj01/geoloader/internal/dxf"
)

// buildPointShapefile assembles a minimal component set with one point
// record per coordinate pair and a single numeric ID column.
func buildPointShapefile(points [][2]float64) ShapefileInput {
	const headerLen = 100
	shp := make([]byte, headerLen)
	binary.BigEndian.PutUint32(shp[0:4], 9994)
	binary.LittleEndian.PutUint32(shp[28:32], 1000)
	binary.LittleEndian.PutUint32(shp[32:36], 1) // point

	shx := make([]byte, headerLen)
	copy(shx, shp)

	offsetWords := int32(50)
	for i, p := range points {
		content := make([]byte, 20)
		binary.LittleEndian.PutUint32(content[0:4], 1)
		binary.LittleEndian.PutUint64(content[4:12], math.Float64bits(p[0]))
		binary.LittleEndian.PutUint64(content[12:20], math.Float64bits(p[1]))

		recordHeader := make([]byte, 8)
		binary.BigEndian.PutUint32(recordHeader[0:4], uint32(i+1))
		binary.BigEndian.PutUint32(recordHeader[4:8], 10)
		shp = append(shp, recordHeader...)
		shp = append(shp, content...)

		entry := make([]byte, 8)
		binary.BigEndian.PutUint32(entry[0:4], uint32(offsetWords))
		binary.BigEndian.PutUint32(entry[4:8], 10)
		shx = append(shx, entry...)
		offsetWords += 14
	}
	binary.BigEndian.PutUint32(shp[24:28], uint32(offsetWords))
	binary.BigEndian.PutUint32(shx[24:28], uint32(50+len(points)*4))

	// DBF: one 4-byte numeric ID column.
	fieldLen := 4
	recordLen := 1 + fieldLen
	headerSize := 32 + 32 + 1
	dbf := make([]byte, headerSize, headerSize+len(points)*recordLen+1)
	dbf[0] = 0x03
	binary.LittleEndian.PutUint32(dbf[4:8], uint32(len(points)))
	binary.LittleEndian.PutUint16(dbf[8:10], uint16(headerSize))
	binary.LittleEndian.PutUint16(dbf[10:12], uint16(recordLen))
	copy(dbf[32:], "ID")
	dbf[32+11] = 'N'
	dbf[32+16] = byte(fieldLen)
	dbf[headerSize-1] = 0x0D
	for i := range points {
		dbf = append(dbf, ' ')
		dbf = append(dbf, []byte(fmt.Sprintf("%4d", i+1))...)
	}
	dbf = append(dbf, 0x1A)

	return ShapefileInput{SHP: shp, SHX: shx, DBF: dbf}
}

func TestParseShapefileEndToEnd(t *testing.T) {
	loader := NewLoader()
	dataset, err := loader.ParseShapefile(buildPointShapefile([][2]float64{
		{2600000, 1200000},
		{2601000, 1201000},
	}))
	if err != nil {
		t.Fatal(err)
	}

	if dataset.FeatureCount() != 2 {
		t.Fatalf("features: got %d", dataset.FeatureCount())
	}
	if dataset.Format() != FormatShapefile {
		t.Errorf("format: got %s", dataset.Format())
	}

	feature := dataset.Features()[0]
	if feature.ID() != 1 {
		t.Errorf("id: got %d", feature.ID())
	}
	if feature.Geometry().Type != GeometryTypePoint {
		t.Errorf("geometry type: got %s", feature.Geometry().Type)
	}
	if id, ok := feature.Attribute("ID"); !ok || id != 1.0 {
		t.Errorf("attribute: got %v", id)
	}

	if dataset.Detection().System != SystemSwissLV95 {
		t.Errorf("detected system: got %s", dataset.Detection().System)
	}
	if dataset.Detection().Confidence < 0.8 {
		t.Errorf("confidence: got %g", dataset.Detection().Confidence)
	}

	b := dataset.Bounds()
	if b.MinX != 2600000 || b.MaxX != 2601000 {
		t.Errorf("bounds: %+v", b)
	}
}

func TestParseDXFEndToEnd(t *testing.T) {
	drawing := strings.Join([]string{
		"0", "SECTION", "2", "ENTITIES",
		"0", "LINE", "8", "roads",
		"10", "2600000", "20", "1200000",
		"11", "2600500", "21", "1200500",
		"0", "LINE", "8", "roads",
		"10", "2601000", "20", "1201000",
		"11", "2601500", "21", "1201500",
		"0", "ENDSEC",
		"0", "EOF",
	}, "\n")

	loader := NewLoader()
	dataset, err := loader.ParseDXF([]byte(drawing))
	if err != nil {
		t.Fatal(err)
	}
	if dataset.FeatureCount() != 2 {
		t.Fatalf("features: got %d", dataset.FeatureCount())
	}
	feature := dataset.Features()[0]
	if feature.Layer() != "roads" {
		t.Errorf("layer: got %q", feature.Layer())
	}
	if entityType, _ := feature.Attribute("entityType"); entityType != "LINE" {
		t.Errorf("entityType: got %v", entityType)
	}
	if dataset.Detection().System != SystemSwissLV95 {
		t.Errorf("detected system: got %s", dataset.Detection().System)
	}
	if dataset.Detection().Method != MethodPointPattern {
		t.Errorf("method: got %s", dataset.Detection().Method)
	}
}

func TestParseDXFUnknownCRSWarned(t *testing.T) {
	drawing := strings.Join([]string{
		"0", "SECTION", "2", "ENTITIES",
		"0", "POINT", "8", "0",
		"10", "500000000", "20", "500000000",
		"0", "ENDSEC",
		"0", "EOF",
	}, "\n")

	loader := NewLoader()
	dataset, err := loader.ParseDXF([]byte(drawing))
	if err != nil {
		t.Fatal(err)
	}
	if dataset.Detection().System != SystemNone {
		t.Fatalf("detected system: got %s", dataset.Detection().System)
	}
	found := false
	for _, issue := range dataset.Issues() {
		if issue.Code == dxf.IssueNoCRS && issue.Severity == SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Errorf("missing %s warning; issues: %v", dxf.IssueNoCRS, dataset.Issues())
	}
}

func TestParseDXFTargetSystemUndetected(t *testing.T) {
	drawing := strings.Join([]string{
		"0", "SECTION", "2", "ENTITIES",
		"0", "POINT", "8", "0",
		"10", "500000000", "20", "500000000",
		"0", "ENDSEC",
		"0", "EOF",
	}, "\n")

	loader := NewLoader()
	dataset, err := loader.ParseDXFWithOptions([]byte(drawing), ParseOptions{TargetSystem: SystemWGS84})
	if err == nil {
		t.Fatal("target transform from an undetected system must fail")
	}
	if dataset != nil {
		t.Errorf("dataset must be nil on failure, got %v", dataset)
	}
}

func TestFeaturesInBounds(t *testing.T) {
	points := make([][2]float64, 0, 100)
	for i := 0; i < 100; i++ {
		points = append(points, [2]float64{2600000 + float64(i)*100, 1200000})
	}
	loader := NewLoader()
	dataset, err := loader.ParseShapefile(buildPointShapefile(points))
	if err != nil {
		t.Fatal(err)
	}

	visible := dataset.FeaturesInBounds(Bounds{
		MinX: 2600000, MinY: 1199000,
		MaxX: 2600450, MaxY: 1201000,
	})
	if len(visible) != 5 {
		t.Errorf("viewport query: got %d features, want 5", len(visible))
	}

	none := dataset.FeaturesInBounds(Bounds{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1})
	if len(none) != 0 {
		t.Errorf("empty viewport: got %d features", len(none))
	}
}

func TestTransformDataset(t *testing.T) {
	loader := NewLoader()
	dataset, err := loader.ParseShapefile(buildPointShapefile([][2]float64{
		// Bern reference marker.
		{2600000, 1200000},
	}))
	if err != nil {
		t.Fatal(err)
	}

	if err := loader.Transform(dataset, SystemWGS84); err != nil {
		t.Fatal(err)
	}
	if dataset.CoordinateSystem() != SystemWGS84 {
		t.Errorf("system after transform: got %s", dataset.CoordinateSystem())
	}

	position := dataset.Features()[0].Geometry().Coordinates[0][0]
	if math.Abs(position[0]-7.438632) > 1e-3 || math.Abs(position[1]-46.951083) > 1e-3 {
		t.Errorf("Bern in WGS84: got %v", position)
	}

	b := dataset.Bounds()
	if b.MinX < 5 || b.MinX > 11 {
		t.Errorf("bounds not rebuilt after transform: %+v", b)
	}
}

func TestParseWithTargetSystem(t *testing.T) {
	loader := NewLoader()
	dataset, err := loader.ParseShapefileWithOptions(
		buildPointShapefile([][2]float64{{2600000, 1200000}}),
		ParseOptions{TargetSystem: SystemWebMercator},
	)
	if err != nil {
		t.Fatal(err)
	}
	if dataset.CoordinateSystem() != SystemWebMercator {
		t.Errorf("system: got %s", dataset.CoordinateSystem())
	}
	position := dataset.Features()[0].Geometry().Coordinates[0][0]
	if position[0] < 700000 || position[0] > 950000 {
		t.Errorf("Web Mercator easting: got %g", position[0])
	}
}

func TestTransformPointUnsupported(t *testing.T) {
	loader := NewLoader()
	_, _, err := loader.TransformPoint(1, 2, SystemNone, SystemWGS84)
	if err == nil {
		t.Fatal("transform from None must fail")
	}
	var unsupported *crs.ErrUnsupportedTransform
	if !errors.As(err, &unsupported) {
		t.Fatalf("unexpected error type: %v", err)
	}
}

func TestTransformRoundTrip(t *testing.T) {
	loader := NewLoader()
	x, y, err := loader.TransformPoint(2670000, 1210000, SystemSwissLV95, SystemWGS84)
	if err != nil {
		t.Fatal(err)
	}
	backX, backY, err := loader.TransformPoint(x, y, SystemWGS84, SystemSwissLV95)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(backX-2670000) > 1e-4 || math.Abs(backY-1210000) > 1e-4 {
		t.Errorf("round trip drift: (%g, %g)", backX-2670000, backY-1210000)
	}
}

func TestSystemFromNameAndEPSG(t *testing.T) {
	if s, ok := SystemFromName("EPSG:2056"); !ok || s != SystemSwissLV95 {
		t.Errorf("EPSG:2056: got %s, %v", s, ok)
	}
	if s, ok := SystemFromEPSG(3857); !ok || s != SystemWebMercator {
		t.Errorf("3857: got %s, %v", s, ok)
	}
	if SystemSwissLV03.EPSG() != 21781 {
		t.Errorf("LV03 EPSG: got %d", SystemSwissLV03.EPSG())
	}
}

func BenchmarkFeaturesInBounds(b *testing.B) {
	points := make([][2]float64, 0, 5000)
	for i := 0; i < 5000; i++ {
		points = append(points, [2]float64{2600000 + float64(i%100)*50, 1200000 + float64(i/100)*50})
	}
	loader := NewLoader()
	dataset, err := loader.ParseShapefile(buildPointShapefile(points))
	if err != nil {
		b.Fatal(err)
	}
	viewport := Bounds{MinX: 2601000, MinY: 1201000, MaxX: 2602000, MaxY: 1202000}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dataset.FeaturesInBounds(viewport)
	}
}
