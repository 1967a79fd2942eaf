package geoloader

import (
	"github.com/benj01/geoloader/internal/crs"
)

// CoordinateSystem identifies one of the supported reference systems.
type CoordinateSystem int

const (
	// SystemNone means no system could be determined. Transforming from
	// or to it fails; there is no silent WGS84 assumption anywhere.
	SystemNone CoordinateSystem = iota
	SystemWGS84
	SystemSwissLV95
	SystemSwissLV03
	SystemWebMercator
)

func (s CoordinateSystem) String() string {
	return s.internal().String()
}

// EPSG returns the EPSG code of the system, 0 for SystemNone.
func (s CoordinateSystem) EPSG() int {
	return s.internal().EPSG()
}

// SystemFromEPSG resolves an EPSG code to a coordinate system.
func SystemFromEPSG(code int) (CoordinateSystem, bool) {
	sys, ok := crs.SystemFromEPSG(code)
	return fromInternalSystem(sys), ok
}

// SystemFromName resolves common spellings ("LV95", "EPSG:2056",
// "WGS 84") to a coordinate system.
func SystemFromName(name string) (CoordinateSystem, bool) {
	sys, ok := crs.SystemFromName(name)
	return fromInternalSystem(sys), ok
}

func (s CoordinateSystem) internal() crs.System {
	switch s {
	case SystemWGS84:
		return crs.WGS84
	case SystemSwissLV95:
		return crs.SwissLV95
	case SystemSwissLV03:
		return crs.SwissLV03
	case SystemWebMercator:
		return crs.WebMercator
	default:
		return crs.None
	}
}

func fromInternalSystem(s crs.System) CoordinateSystem {
	switch s {
	case crs.WGS84:
		return SystemWGS84
	case crs.SwissLV95:
		return SystemSwissLV95
	case crs.SwissLV03:
		return SystemSwissLV03
	case crs.WebMercator:
		return SystemWebMercator
	default:
		return SystemNone
	}
}

// DetectionMethod names the heuristic that identified the coordinate
// system.
type DetectionMethod string

const (
	MethodFallback       DetectionMethod = "Fallback"
	MethodBoundsAnalysis DetectionMethod = "BoundsAnalysis"
	MethodProjectionText DetectionMethod = "ProjectionText"
	MethodHeaderExtents  DetectionMethod = "HeaderExtents"
	MethodPointPattern   DetectionMethod = "PointPattern"
)

// Detection describes how a dataset's coordinate system was determined.
type Detection struct {
	// System is the detected coordinate system, SystemNone when nothing
	// matched.
	System CoordinateSystem
	// Confidence is in [0, 1]. Zero only together with SystemNone.
	Confidence float64
	// Method is the heuristic that produced the result.
	Method DetectionMethod
	// Reasoning is a human-readable explanation for logs and UIs.
	Reasoning string
	// Alternatives lists other plausible systems at lower confidence.
	Alternatives []Alternative
}

// Alternative is a lower-confidence detection candidate.
type Alternative struct {
	System     CoordinateSystem
	Confidence float64
}

func fromInternalDetection(d crs.DetectionResult) Detection {
	out := Detection{
		System:     fromInternalSystem(d.System),
		Confidence: d.Confidence,
		Method:     fromInternalMethod(d.Method),
		Reasoning:  d.Reasoning,
	}
	for _, alt := range d.Alternatives {
		out.Alternatives = append(out.Alternatives, Alternative{
			System:     fromInternalSystem(alt.System),
			Confidence: alt.Confidence,
		})
	}
	return out
}

func fromInternalMethod(m crs.Method) DetectionMethod {
	switch m {
	case crs.MethodBoundsAnalysis:
		return MethodBoundsAnalysis
	case crs.MethodProjectionText:
		return MethodProjectionText
	case crs.MethodHeaderExtents:
		return MethodHeaderExtents
	case crs.MethodPointPattern:
		return MethodPointPattern
	default:
		return MethodFallback
	}
}
