package shapefile

import "github.com/benj01/geoloader/internal/crs"

// ReadPRJ classifies the WKT projection text of a .prj companion file.
//
// The .prj file is plain text holding a single WKT spatial reference
// definition. Classification matches known datum names, false origins, and
// authority codes against the systems this library supports; unmatched text
// yields None with zero confidence rather than an error, since the file may
// describe a legitimate but unsupported system.
func ReadPRJ(buf []byte) crs.DetectionResult {
	return crs.ClassifyWKT(string(buf))
}
