package crs

import (
	"fmt"
	"strconv"
	"strings"
)

// ClassifyWKT classifies a WKT projection string against the known systems.
//
// Classification is by recognizable markers rather than a full WKT grammar:
// datum and CRS names first, then the false easting/northing parameters
// which unambiguously separate LV95 from LV03. Unrecognized text yields
// None with zero confidence under MethodProjectionText, not an error, since
// a .prj file may legitimately describe a system this library cannot handle.
func ClassifyWKT(wkt string) DetectionResult {
	trimmed := strings.TrimSpace(wkt)
	if trimmed == "" {
		return DetectionResult{
			System:     None,
			Confidence: 0,
			Method:     MethodProjectionText,
			Reasoning:  "empty projection text",
		}
	}
	upper := strings.ToUpper(trimmed)

	// Authority code is the strongest signal when present.
	if code, ok := trailingAuthorityCode(upper); ok {
		if sys, ok := SystemFromEPSG(code); ok {
			return DetectionResult{
				System:     sys,
				Confidence: 0.95,
				Method:     MethodProjectionText,
				Reasoning:  fmt.Sprintf("WKT authority code EPSG:%d", code),
			}
		}
	}

	// Name markers. CH1903+ must be tested before CH1903: the legacy name
	// is a prefix of the modern one.
	switch {
	case strings.Contains(upper, "CH1903+") || strings.Contains(upper, "LV95"):
		return wktResult(SwissLV95, "CH1903+/LV95 datum name in WKT")
	case strings.Contains(upper, "CH1903") || strings.Contains(upper, "LV03"):
		return wktResult(SwissLV03, "CH1903/LV03 datum name in WKT")
	case strings.Contains(upper, "PSEUDO-MERCATOR") || strings.Contains(upper, "PSEUDO_MERCATOR") || strings.Contains(upper, "900913"):
		return wktResult(WebMercator, "Pseudo-Mercator name in WKT")
	}

	// Parameter markers: the Swiss false easting/northing pairs.
	fe, feOK := wktParameter(upper, "FALSE_EASTING")
	fn, fnOK := wktParameter(upper, "FALSE_NORTHING")
	if feOK && fnOK {
		switch {
		case fe == 2600000 && fn == 1200000:
			return wktResult(SwissLV95, "false easting/northing 2600000/1200000 in WKT")
		case fe == 600000 && fn == 200000:
			return wktResult(SwissLV03, "false easting/northing 600000/200000 in WKT")
		}
	}

	// A plain geographic CRS on the WGS 84 datum.
	if strings.HasPrefix(upper, "GEOGCS") &&
		(strings.Contains(upper, "WGS_1984") || strings.Contains(upper, "WGS 84") || strings.Contains(upper, "WGS84")) {
		return wktResult(WGS84, "geographic CRS on WGS 84 datum in WKT")
	}

	return DetectionResult{
		System:     None,
		Confidence: 0,
		Method:     MethodProjectionText,
		Reasoning:  "projection text matches no known system",
	}
}

func wktResult(s System, reason string) DetectionResult {
	return DetectionResult{
		System:     s,
		Confidence: 0.9,
		Method:     MethodProjectionText,
		Reasoning:  reason,
	}
}

// wktParameter extracts PARAMETER["name", value] from uppercased WKT.
func wktParameter(upper, name string) (float64, bool) {
	marker := `PARAMETER["` + name + `"`
	idx := strings.Index(upper, marker)
	if idx < 0 {
		return 0, false
	}
	rest := upper[idx+len(marker):]
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return 0, false
	}
	value := strings.Trim(rest[:end], ", ")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// trailingAuthorityCode finds the last AUTHORITY["EPSG","<code>"] entry,
// which by WKT convention identifies the whole CRS rather than a component.
func trailingAuthorityCode(upper string) (int, bool) {
	idx := strings.LastIndex(upper, `AUTHORITY["EPSG"`)
	if idx < 0 {
		return 0, false
	}
	rest := upper[idx:]
	start := strings.Index(rest, `,"`)
	if start < 0 {
		return 0, false
	}
	rest = rest[start+2:]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return 0, false
	}
	code, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return code, true
}
