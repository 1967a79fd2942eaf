package geom

import (
	"math"
	"testing"
)

func TestIsClockwise(t *testing.T) {
	cw := []Coord{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}
	if !IsClockwise(cw) {
		t.Error("clockwise ring misclassified")
	}

	ccw := []Coord{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	if IsClockwise(ccw) {
		t.Error("counterclockwise ring misclassified")
	}
}

func TestBoundsExtendAndUnion(t *testing.T) {
	b := NewBounds()
	if !b.IsEmpty() {
		t.Fatal("fresh bounds must be empty")
	}

	b = b.Extend(10, 20)
	b = b.Extend(-5, 30)
	if b.MinX != -5 || b.MinY != 20 || b.MaxX != 10 || b.MaxY != 30 {
		t.Errorf("extend: %+v", b)
	}

	other := NewBounds().Extend(100, 100)
	union := b.Union(other)
	if union.MaxX != 100 || union.MaxY != 100 || union.MinX != -5 {
		t.Errorf("union: %+v", union)
	}

	if union.Union(NewBounds()) != union {
		t.Error("union with empty must be a no-op")
	}
}

func TestBoundsIntersects(t *testing.T) {
	a := NewBounds().Extend(0, 0).Extend(10, 10)
	b := NewBounds().Extend(5, 5).Extend(15, 15)
	c := NewBounds().Extend(20, 20).Extend(30, 30)

	if !a.Intersects(b) {
		t.Error("overlapping envelopes must intersect")
	}
	if a.Intersects(c) {
		t.Error("disjoint envelopes must not intersect")
	}
}

func TestMatrixCompose(t *testing.T) {
	// Scale then translate: (1, 0) -> (2, 0) -> (12, 5).
	m := Scale(2, 2).Multiply(Translate(10, 5))
	out := m.Apply(Coord{1, 0})
	if out[0] != 12 || out[1] != 5 {
		t.Errorf("compose: %v", out)
	}

	// Opposite order: (1, 0) -> (11, 5) -> (22, 10).
	m = Translate(10, 5).Multiply(Scale(2, 2))
	out = m.Apply(Coord{1, 0})
	if out[0] != 22 || out[1] != 10 {
		t.Errorf("compose: %v", out)
	}
}

func TestMatrixRotatePreservesZ(t *testing.T) {
	m := Rotate(math.Pi / 2)
	out := m.Apply(Coord{1, 0, 42})
	if math.Abs(out[0]) > 1e-12 || math.Abs(out[1]-1) > 1e-12 {
		t.Errorf("rotate: %v", out)
	}
	if out[2] != 42 {
		t.Errorf("z not preserved: %v", out)
	}
}

func TestGeometryTransformPreservesShape(t *testing.T) {
	poly := Polygon{Rings: [][]Coord{
		{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}},
		{{2, 2}, {8, 2}, {8, 8}, {2, 8}, {2, 2}},
	}}
	shift := func(c Coord) Coord {
		out := c.Clone()
		out[0] += 100
		return out
	}

	got, ok := poly.Transform(shift).(Polygon)
	if !ok {
		t.Fatalf("transform changed variant: %T", poly.Transform(shift))
	}
	if len(got.Rings) != 2 {
		t.Fatalf("rings: got %d", len(got.Rings))
	}
	if got.Rings[1][0][0] != 102 {
		t.Errorf("hole not shifted: %v", got.Rings[1][0])
	}
	// Source must stay untouched.
	if poly.Rings[1][0][0] != 2 {
		t.Error("transform mutated the source geometry")
	}
}

func TestCoordsCollection(t *testing.T) {
	mp := MultiPolygon{Polygons: [][][]Coord{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		{{{5, 5}, {6, 5}, {6, 6}, {5, 5}}},
	}}
	if len(mp.Coords()) != 8 {
		t.Errorf("coords: got %d", len(mp.Coords()))
	}

	b := mp.Bounds()
	if b.MinX != 0 || b.MaxX != 6 {
		t.Errorf("bounds: %+v", b)
	}
}

func TestFiniteCoord(t *testing.T) {
	if !FiniteCoord(Coord{1, 2}) {
		t.Error("finite coordinate rejected")
	}
	if FiniteCoord(Coord{math.NaN(), 2}) {
		t.Error("NaN accepted")
	}
	if FiniteCoord(Coord{1, math.Inf(1)}) {
		t.Error("Inf accepted")
	}
	if FiniteCoord(Coord{1}) {
		t.Error("one-dimensional coordinate accepted")
	}
}
