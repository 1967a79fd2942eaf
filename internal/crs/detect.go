package crs

import (
	"fmt"

	"github.com/benj01/geoloader/internal/geom"
)

// Method identifies how a detection result was reached.
type Method int

const (
	// MethodFallback is the only method allowed to produce System None
	// with zero confidence.
	MethodFallback Method = iota

	// MethodBoundsAnalysis matched the data envelope against known ranges.
	MethodBoundsAnalysis

	// MethodProjectionText classified a WKT projection string.
	MethodProjectionText

	// MethodHeaderExtents matched file header extents against known ranges.
	MethodHeaderExtents

	// MethodPointPattern matched sampled geometry points against known ranges.
	MethodPointPattern
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodBoundsAnalysis:
		return "BoundsAnalysis"
	case MethodProjectionText:
		return "ProjectionText"
	case MethodHeaderExtents:
		return "HeaderExtents"
	case MethodPointPattern:
		return "PointPattern"
	default:
		return "Fallback"
	}
}

// Alternative is a lower-ranked detection candidate.
type Alternative struct {
	System     System
	Confidence float64
}

// DetectionResult is the outcome of coordinate system detection.
//
// Invariant: Confidence == 0 and System == None only via MethodFallback;
// every other method carries a non-empty Reasoning string.
type DetectionResult struct {
	System       System
	Confidence   float64 // 0..1
	Method       Method
	Reasoning    string
	Alternatives []Alternative
}

// fallbackResult builds the canonical "nothing detected" result.
func fallbackResult(reason string) DetectionResult {
	return DetectionResult{
		System:     None,
		Confidence: 0,
		Method:     MethodFallback,
		Reasoning:  reason,
	}
}

// Detect classifies a set of coordinates by their numeric envelope.
//
// Ranges are evaluated in priority order: LV95, then LV03, then WGS84.
// First match wins. If nothing matches but the values are plausibly
// lat/lon shaped, WGS84 is returned at low confidence; otherwise None.
func Detect(coords []geom.Coord) DetectionResult {
	return DetectPoints(coords, MethodBoundsAnalysis)
}

// DetectPoints is Detect with an explicit reporting method, for callers
// sampling representative points rather than analysing a whole dataset.
func DetectPoints(coords []geom.Coord, method Method) DetectionResult {
	b := geom.NewBounds()
	finite := 0
	for _, c := range coords {
		if !geom.FiniteCoord(c) {
			continue
		}
		b = b.Extend(c[0], c[1])
		finite++
	}
	if finite == 0 {
		return fallbackResult("no finite coordinates to analyse")
	}
	return detectBounds(b, method, finite)
}

// DetectBounds classifies a precomputed envelope (e.g. DXF header extents).
func DetectBounds(b geom.Bounds, method Method) DetectionResult {
	if b.IsEmpty() {
		return fallbackResult("empty extent")
	}
	return detectBounds(b, method, 0)
}

func detectBounds(b geom.Bounds, method Method, sampleCount int) DetectionResult {
	var alternatives []Alternative

	for _, r := range detectionRanges {
		if containsBounds(r.tight, b) {
			// Expanded-range matches for later systems become alternatives.
			for _, other := range detectionRanges {
				if other.system != r.system && containsBounds(other.expanded, b) {
					alternatives = append(alternatives, Alternative{System: other.system, Confidence: 0.3})
				}
			}
			confidence := 0.9
			if r.system == WGS84 {
				// The WGS84 range also admits small projected datasets near
				// the origin, so bounds alone are weaker evidence.
				confidence = 0.8
			}
			return DetectionResult{
				System:       r.system,
				Confidence:   confidence,
				Method:       method,
				Reasoning:    rangeReasoning(r.system, b, sampleCount, true),
				Alternatives: alternatives,
			}
		}
	}

	// Second pass over expanded ranges at lower confidence.
	for _, r := range detectionRanges {
		if containsBounds(r.expanded, b) {
			return DetectionResult{
				System:     r.system,
				Confidence: 0.7,
				Method:     method,
				Reasoning:  rangeReasoning(r.system, b, sampleCount, false),
			}
		}
	}

	// Plausibly lat/lon shaped: moderate magnitudes that merely spill over
	// the strict ±180/±90 box (corrupt outliers, wrapped longitudes).
	if b.MinX >= -360 && b.MaxX <= 360 && b.MinY >= -180 && b.MaxY <= 180 {
		return DetectionResult{
			System:     WGS84,
			Confidence: 0.3,
			Method:     method,
			Reasoning: fmt.Sprintf("envelope [%.2f %.2f %.2f %.2f] exceeds strict geographic bounds but has degree-like magnitudes",
				b.MinX, b.MinY, b.MaxX, b.MaxY),
		}
	}

	return fallbackResult(fmt.Sprintf("envelope [%.2f %.2f %.2f %.2f] matches no known system",
		b.MinX, b.MinY, b.MaxX, b.MaxY))
}

func rangeReasoning(s System, b geom.Bounds, sampleCount int, tight bool) string {
	rng := "expanded"
	if tight {
		rng = "characteristic"
	}
	if sampleCount > 0 {
		return fmt.Sprintf("%d coordinates with envelope [%.2f %.2f %.2f %.2f] fall within the %s range of %s",
			sampleCount, b.MinX, b.MinY, b.MaxX, b.MaxY, rng, s)
	}
	return fmt.Sprintf("envelope [%.2f %.2f %.2f %.2f] falls within the %s range of %s",
		b.MinX, b.MinY, b.MaxX, b.MaxY, rng, s)
}
