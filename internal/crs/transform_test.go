package crs

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/benj01/geoloader/internal/geom"
)

// Bern old observatory: the Swiss projection centre. LV95 coordinates are
// the false origin by construction; the WGS84 position differs from the
// Bessel one by the datum shift.
const (
	bernE = 2600000.0
	bernN = 1200000.0
)

func TestTransformIdentity(t *testing.T) {
	m := NewManager()
	coords, err := m.TransformCoords([]geom.Coord{{2600000, 1200000}}, SwissLV95, SwissLV95)
	if err != nil {
		t.Fatalf("identity transform failed: %v", err)
	}
	if coords[0][0] != 2600000 || coords[0][1] != 1200000 {
		t.Errorf("identity transform changed coordinates: %v", coords[0])
	}
}

func TestLV95ToWGS84(t *testing.T) {
	m := NewManager()
	fn, err := m.PointTransform(SwissLV95, WGS84)
	if err != nil {
		t.Fatalf("build transform: %v", err)
	}
	out := fn(geom.Coord{bernE, bernN})
	lon, lat := out[0], out[1]

	// The projection centre lands near 7.44°E / 46.95°N in WGS84.
	if math.Abs(lon-7.4386) > 0.01 {
		t.Errorf("longitude out of expected range: %f", lon)
	}
	if math.Abs(lat-46.9511) > 0.01 {
		t.Errorf("latitude out of expected range: %f", lat)
	}
}

// TestRoundTripSwissWGS84 checks the testable property that A -> B -> A
// reproduces the original point within a small epsilon.
func TestRoundTripSwissWGS84(t *testing.T) {
	m := NewManager()
	points := []geom.Coord{
		{2600000, 1200000},
		{2679520.05, 1212273.44}, // Zurich
		{2500210.00, 1117725.00}, // Geneva
		{2758363.00, 1191843.00}, // St. Moritz area
	}
	forward, err := m.PointTransform(SwissLV95, WGS84)
	if err != nil {
		t.Fatal(err)
	}
	back, err := m.PointTransform(WGS84, SwissLV95)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range points {
		roundTrip := back(forward(p))
		if math.Abs(roundTrip[0]-p[0]) > 1e-4 || math.Abs(roundTrip[1]-p[1]) > 1e-4 {
			t.Errorf("round trip drift: %v -> %v", p, roundTrip)
		}
	}
}

// TestRoundTripSubMillimetre pins the accuracy of the datum shift inverse:
// the forward shift leaves points off the WGS84 ellipsoid, and the inverse
// must solve for that height rather than assume zero.
func TestRoundTripSubMillimetre(t *testing.T) {
	m := NewManager()
	forward, err := m.PointTransform(SwissLV95, WGS84)
	if err != nil {
		t.Fatal(err)
	}
	back, err := m.PointTransform(WGS84, SwissLV95)
	if err != nil {
		t.Fatal(err)
	}
	p := geom.Coord{bernE, bernN}
	roundTrip := back(forward(p))
	if math.Abs(roundTrip[0]-p[0]) > 1e-6 || math.Abs(roundTrip[1]-p[1]) > 1e-6 {
		t.Errorf("round trip drift beyond a micrometre: %v -> %v", p, roundTrip)
	}
}

func TestRoundTripWGS84Swiss(t *testing.T) {
	m := NewManager()
	forward, _ := m.PointTransform(WGS84, SwissLV95)
	back, _ := m.PointTransform(SwissLV95, WGS84)

	p := geom.Coord{8.5417, 47.3769} // Zurich
	roundTrip := back(forward(p))
	if math.Abs(roundTrip[0]-p[0]) > 1e-6 || math.Abs(roundTrip[1]-p[1]) > 1e-6 {
		t.Errorf("round trip drift: %v -> %v", p, roundTrip)
	}
}

// TestLV03Offset: LV03 differs from LV95 by exactly 2,000,000/1,000,000, so
// converting between the two Swiss systems must reproduce the offset.
func TestLV03Offset(t *testing.T) {
	m := NewManager()
	fn, err := m.PointTransform(SwissLV03, SwissLV95)
	if err != nil {
		t.Fatal(err)
	}
	out := fn(geom.Coord{600000, 200000})
	if math.Abs(out[0]-2600000) > 1e-4 || math.Abs(out[1]-1200000) > 1e-4 {
		t.Errorf("LV03 -> LV95 offset wrong: %v", out)
	}
}

func TestWebMercator(t *testing.T) {
	m := NewManager()
	fn, err := m.PointTransform(WGS84, WebMercator)
	if err != nil {
		t.Fatal(err)
	}
	out := fn(geom.Coord{180, 0})
	if math.Abs(out[0]-20037508.342789244) > 0.01 {
		t.Errorf("x at 180 degrees: got %f", out[0])
	}
	if math.Abs(out[1]) > 1e-6 {
		t.Errorf("y at equator: got %f", out[1])
	}

	back, _ := m.PointTransform(WebMercator, WGS84)
	p := geom.Coord{8.5417, 47.3769}
	roundTrip := back(fn(p))
	if math.Abs(roundTrip[0]-p[0]) > 1e-9 || math.Abs(roundTrip[1]-p[1]) > 1e-9 {
		t.Errorf("web mercator round trip drift: %v -> %v", p, roundTrip)
	}
}

// TestSwissToWebMercator verifies the composed route through WGS84.
func TestSwissToWebMercator(t *testing.T) {
	m := NewManager()
	direct, err := m.PointTransform(SwissLV95, WebMercator)
	if err != nil {
		t.Fatalf("LV95 -> WebMercator must be supported via WGS84: %v", err)
	}

	toGeo, _ := m.PointTransform(SwissLV95, WGS84)
	toMerc, _ := m.PointTransform(WGS84, WebMercator)

	p := geom.Coord{2679520, 1212273}
	got := direct(p)
	want := toMerc(toGeo(p))
	if math.Abs(got[0]-want[0]) > 1e-6 || math.Abs(got[1]-want[1]) > 1e-6 {
		t.Errorf("composed route mismatch: %v vs %v", got, want)
	}
}

func TestUnsupportedTransform(t *testing.T) {
	m := NewManager()
	_, err := m.PointTransform(None, WGS84)
	if err == nil {
		t.Fatal("expected error for transform from None")
	}
	var unsupported *ErrUnsupportedTransform
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected ErrUnsupportedTransform, got %T", err)
	}
	if unsupported.From != None || unsupported.To != WGS84 {
		t.Errorf("error pair wrong: %s -> %s", unsupported.From, unsupported.To)
	}
}

// TestZPreserved: transforms touch only x/y; a Z value rides along.
func TestZPreserved(t *testing.T) {
	m := NewManager()
	fn, _ := m.PointTransform(SwissLV95, WGS84)
	out := fn(geom.Coord{2600000, 1200000, 555.5})
	if len(out) != 3 || out[2] != 555.5 {
		t.Errorf("Z not preserved: %v", out)
	}
}

func TestTransformGeometryPreservesShape(t *testing.T) {
	m := NewManager()
	poly := geom.Polygon{Rings: [][]geom.Coord{
		{{2600000, 1200000}, {2601000, 1200000}, {2601000, 1201000}, {2600000, 1200000}},
		{{2600200, 1200200}, {2600400, 1200200}, {2600400, 1200400}, {2600200, 1200200}},
	}}
	out, err := m.Transform(poly, SwissLV95, WGS84)
	if err != nil {
		t.Fatal(err)
	}
	transformed, ok := out.(geom.Polygon)
	if !ok {
		t.Fatalf("variant changed: %T", out)
	}
	if len(transformed.Rings) != 2 {
		t.Fatalf("ring count changed: %d", len(transformed.Rings))
	}
	if len(transformed.Rings[0]) != 4 || len(transformed.Rings[1]) != 4 {
		t.Error("ring vertex counts changed")
	}
}

func TestManagerConcurrent(t *testing.T) {
	m := NewManager()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn, err := m.PointTransform(SwissLV95, WGS84)
			if err != nil {
				t.Errorf("concurrent build: %v", err)
				return
			}
			out := fn(geom.Coord{2600000, 1200000})
			if math.Abs(out[0]-7.4386) > 0.01 {
				t.Errorf("concurrent result wrong: %v", out)
			}
		}()
	}
	wg.Wait()
}

func TestManagerReset(t *testing.T) {
	m := NewManager()
	if _, err := m.PointTransform(SwissLV95, WGS84); err != nil {
		t.Fatal(err)
	}
	m.Reset()
	// Cache rebuilds transparently after a reset.
	fn, err := m.PointTransform(SwissLV95, WGS84)
	if err != nil {
		t.Fatal(err)
	}
	if fn == nil {
		t.Fatal("transform missing after reset")
	}
}

func BenchmarkLV95ToWGS84(b *testing.B) {
	m := NewManager()
	fn, err := m.PointTransform(SwissLV95, WGS84)
	if err != nil {
		b.Fatal(err)
	}
	p := geom.Coord{2679520, 1212273}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = fn(p)
	}
}
