package crs

import "math"

// Spherical ("web") Mercator, the closed-form projection used by tile maps.
// Uses the WGS84 semi-major axis as the sphere radius, per EPSG:3857.

const webMercatorR = 6378137.0

// Latitudes are clamped to the Mercator cut-off so the projection stays
// finite; tiles end at ±85.051129° anyway.
const webMercatorMaxLat = 85.051128779806604

// wgs84ToWebMercator converts lon/lat degrees to web mercator metres.
func wgs84ToWebMercator(lon, lat float64) (x, y float64) {
	if lat > webMercatorMaxLat {
		lat = webMercatorMaxLat
	}
	if lat < -webMercatorMaxLat {
		lat = -webMercatorMaxLat
	}
	x = webMercatorR * lon * math.Pi / 180
	y = webMercatorR * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return
}

// webMercatorToWGS84 converts web mercator metres to lon/lat degrees.
func webMercatorToWGS84(x, y float64) (lon, lat float64) {
	lon = x / webMercatorR * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(y/webMercatorR)) - math.Pi/2) * 180 / math.Pi
	return
}
