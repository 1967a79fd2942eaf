package crs

import (
	"fmt"
	"sync"

	"github.com/benj01/geoloader/internal/geom"
)

// PointTransform is a compiled, pure point conversion. Extra components
// beyond x/y (typically Z) are carried through unchanged.
type PointTransform func(geom.Coord) geom.Coord

// ErrUnsupportedTransform indicates a system pair the manager cannot convert
// between. The manager fails closed: callers decide on a fallback route
// rather than silently receiving untransformed coordinates.
type ErrUnsupportedTransform struct {
	From, To System
}

func (e *ErrUnsupportedTransform) Error() string {
	return fmt.Sprintf("unsupported coordinate transform: %s -> %s", e.From, e.To)
}

// Manager builds, caches, and applies coordinate transformations.
//
// Construct one per consumer with NewManager and share it freely: the cache
// is append-only for the manager's lifetime (system definitions are static
// constants), so concurrent lookup and population are safe. A race merely
// recomputes the same pure function; last writer wins with an equal value.
type Manager struct {
	cache sync.Map // pairKey -> PointTransform
}

type pairKey struct {
	from, to System
}

// NewManager returns an empty transform manager.
func NewManager() *Manager {
	return &Manager{}
}

// Reset clears the compiled transform cache. Only needed when projection
// constants change under test; normal callers never reset.
func (m *Manager) Reset() {
	m.cache.Range(func(key, _ any) bool {
		m.cache.Delete(key)
		return true
	})
}

// PointTransform returns the compiled conversion for (from, to), building
// and caching it on first use. from == to yields the identity.
func (m *Manager) PointTransform(from, to System) (PointTransform, error) {
	if from == to {
		return identityTransform, nil
	}
	key := pairKey{from: from, to: to}
	if cached, ok := m.cache.Load(key); ok {
		return cached.(PointTransform), nil
	}
	fn, err := compileTransform(from, to)
	if err != nil {
		return nil, err
	}
	m.cache.Store(key, fn)
	return fn, nil
}

// Transform re-projects every coordinate of a geometry, preserving the
// geometry variant, ring/part structure, and any Z values.
func (m *Manager) Transform(g geom.Geometry, from, to System) (geom.Geometry, error) {
	if from == to {
		return g, nil
	}
	fn, err := m.PointTransform(from, to)
	if err != nil {
		return nil, err
	}
	return g.Transform(geom.PointFunc(fn)), nil
}

// TransformCoords re-projects a flat coordinate list.
func (m *Manager) TransformCoords(coords []geom.Coord, from, to System) ([]geom.Coord, error) {
	if from == to {
		return coords, nil
	}
	fn, err := m.PointTransform(from, to)
	if err != nil {
		return nil, err
	}
	out := make([]geom.Coord, len(coords))
	for i, c := range coords {
		out[i] = fn(c)
	}
	return out, nil
}

func identityTransform(c geom.Coord) geom.Coord { return c.Clone() }

// compileTransform builds the (from, to) conversion by routing through
// WGS84. Every supported system has an exact conversion to and from WGS84,
// so any pair of supported systems composes; only None has no route.
func compileTransform(from, to System) (PointTransform, error) {
	toGeo, err := toWGS84(from)
	if err != nil {
		return nil, &ErrUnsupportedTransform{From: from, To: to}
	}
	fromGeo, err := fromWGS84(to)
	if err != nil {
		return nil, &ErrUnsupportedTransform{From: from, To: to}
	}
	return func(c geom.Coord) geom.Coord {
		if len(c) < 2 {
			return c.Clone()
		}
		out := c.Clone()
		lon, lat := toGeo(c[0], c[1])
		out[0], out[1] = fromGeo(lon, lat)
		return out
	}, nil
}

type xyFunc func(x, y float64) (float64, float64)

func toWGS84(s System) (xyFunc, error) {
	switch s {
	case WGS84:
		return func(x, y float64) (float64, float64) { return x, y }, nil
	case SwissLV95:
		return lv95ToWGS84, nil
	case SwissLV03:
		return func(e, n float64) (float64, float64) {
			return lv95ToWGS84(e+lv03Offset, n+lv03OffsetN)
		}, nil
	case WebMercator:
		return webMercatorToWGS84, nil
	default:
		return nil, &ErrUnsupportedTransform{From: s, To: WGS84}
	}
}

func fromWGS84(s System) (xyFunc, error) {
	switch s {
	case WGS84:
		return func(x, y float64) (float64, float64) { return x, y }, nil
	case SwissLV95:
		return wgs84ToLV95, nil
	case SwissLV03:
		return func(lon, lat float64) (float64, float64) {
			e, n := wgs84ToLV95(lon, lat)
			return e - lv03Offset, n - lv03OffsetN
		}, nil
	case WebMercator:
		return wgs84ToWebMercator, nil
	default:
		return nil, &ErrUnsupportedTransform{From: WGS84, To: s}
	}
}
