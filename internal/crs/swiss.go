package crs

import "math"

// Swiss projection math: the rigorous oblique Mercator ("swiss cylindrical")
// projection on the Bessel 1841 ellipsoid, plus the geocentric translation
// between the CH1903+ datum and WGS84.
//
// The forward and inverse paths are exact mutual inverses (the single
// iterative step converges to machine precision), so round-tripping a point
// through WGS84 reproduces the original to well below millimetre level.

// Bessel 1841 ellipsoid (CH1903/CH1903+ reference surface).
const (
	besselA  = 6377397.155
	besselE2 = 0.006674372230614
)

// WGS 84 ellipsoid.
const (
	wgs84A  = 6378137.0
	wgs84E2 = 0.00669437999014
)

// Projection centre: Bern old observatory, 46°57'08.66" N, 7°26'22.50" E.
const (
	swissPhi0    = (46.0 + 57.0/60 + 8.66/3600) * math.Pi / 180
	swissLambda0 = (7.0 + 26.0/60 + 22.50/3600) * math.Pi / 180
)

// LV95 false origin; LV03 is offset from LV95 by exactly 2,000,000/1,000,000.
const (
	lv95FalseEasting  = 2600000.0
	lv95FalseNorthing = 1200000.0
	lv03Offset        = 2000000.0
	lv03OffsetN       = 1000000.0
)

// CH1903+ -> WGS84 geocentric translation (metres). The official CH1903+
// transformation carries no rotation or scale terms.
const (
	swissShiftX = 674.374
	swissShiftY = 15.056
	swissShiftZ = 405.346
)

// Derived projection constants, computed once.
var (
	swissE     = math.Sqrt(besselE2)
	swissR     = besselA * math.Sqrt(1-besselE2) / (1 - besselE2*sq(math.Sin(swissPhi0)))
	swissAlpha = math.Sqrt(1 + besselE2/(1-besselE2)*math.Pow(math.Cos(swissPhi0), 4))
	swissB0    = math.Asin(math.Sin(swissPhi0) / swissAlpha)
	swissK     = math.Log(math.Tan(math.Pi/4+swissB0/2)) -
		swissAlpha*math.Log(math.Tan(math.Pi/4+swissPhi0/2)) +
		swissAlpha*swissE/2*math.Log((1+swissE*math.Sin(swissPhi0))/(1-swissE*math.Sin(swissPhi0)))
)

func sq(x float64) float64 { return x * x }

// swissProject maps Bessel geodetic coordinates (radians) to LV95 E/N metres.
func swissProject(phi, lambda float64) (e, n float64) {
	s := swissAlpha*math.Log(math.Tan(math.Pi/4+phi/2)) -
		swissAlpha*swissE/2*math.Log((1+swissE*math.Sin(phi))/(1-swissE*math.Sin(phi))) +
		swissK
	b := 2 * (math.Atan(math.Exp(s)) - math.Pi/4)
	l := swissAlpha * (lambda - swissLambda0)

	// Rotate onto the pseudo-equator through the projection centre.
	sinBbar := math.Cos(swissB0)*math.Sin(b) - math.Sin(swissB0)*math.Cos(b)*math.Cos(l)
	lbar := math.Atan2(math.Sin(l)*math.Cos(b),
		math.Sin(swissB0)*math.Sin(b)+math.Cos(swissB0)*math.Cos(b)*math.Cos(l))

	y := swissR * lbar
	x := swissR / 2 * math.Log((1+sinBbar)/(1-sinBbar))

	return y + lv95FalseEasting, x + lv95FalseNorthing
}

// swissUnproject maps LV95 E/N metres to Bessel geodetic radians.
func swissUnproject(e, n float64) (phi, lambda float64) {
	y := e - lv95FalseEasting
	x := n - lv95FalseNorthing

	lbar := y / swissR
	bbar := 2 * (math.Atan(math.Exp(x/swissR)) - math.Pi/4)

	// Inverse rotation from the pseudo-equator.
	sinB := math.Cos(swissB0)*math.Sin(bbar) + math.Sin(swissB0)*math.Cos(bbar)*math.Cos(lbar)
	b := math.Asin(sinB)
	l := math.Atan2(math.Sin(lbar)*math.Cos(bbar),
		math.Cos(swissB0)*math.Cos(bbar)*math.Cos(lbar)-math.Sin(swissB0)*math.Sin(bbar))

	lambda = swissLambda0 + l/swissAlpha

	// Solve the isometric latitude equation for phi by fixed-point iteration.
	q := (math.Log(math.Tan(math.Pi/4+b/2)) - swissK) / swissAlpha
	phi = b
	for i := 0; i < 30; i++ {
		next := 2*math.Atan(math.Exp(q+swissE/2*math.Log((1+swissE*math.Sin(phi))/(1-swissE*math.Sin(phi))))) - math.Pi/2
		if math.Abs(next-phi) < 1e-14 {
			phi = next
			break
		}
		phi = next
	}
	return phi, lambda
}

// geodeticToCartesian converts geodetic radians and ellipsoidal height to
// earth-centred cartesian metres on the given ellipsoid.
func geodeticToCartesian(phi, lambda, h, a, e2 float64) (x, y, z float64) {
	sinPhi := math.Sin(phi)
	nu := a / math.Sqrt(1-e2*sinPhi*sinPhi)
	x = (nu + h) * math.Cos(phi) * math.Cos(lambda)
	y = (nu + h) * math.Cos(phi) * math.Sin(lambda)
	z = (nu*(1-e2) + h) * sinPhi
	return
}

// cartesianToGeodetic converts earth-centred cartesian metres to geodetic
// radians plus ellipsoidal height, iterating latitude to convergence.
func cartesianToGeodetic(x, y, z, a, e2 float64) (phi, lambda, h float64) {
	lambda = math.Atan2(y, x)
	p := math.Hypot(x, y)
	if p == 0 {
		h = math.Abs(z) - a*math.Sqrt(1-e2)
		if z >= 0 {
			return math.Pi / 2, lambda, h
		}
		return -math.Pi / 2, lambda, h
	}
	phi = math.Atan2(z, p*(1-e2))
	for i := 0; i < 30; i++ {
		sinPhi := math.Sin(phi)
		nu := a / math.Sqrt(1-e2*sinPhi*sinPhi)
		h = p/math.Cos(phi) - nu
		next := math.Atan2(z, p*(1-e2*nu/(nu+h)))
		if math.Abs(next-phi) < 1e-14 {
			phi = next
			break
		}
		phi = next
	}
	sinPhi := math.Sin(phi)
	nu := a / math.Sqrt(1-e2*sinPhi*sinPhi)
	h = p/math.Cos(phi) - nu
	return phi, lambda, h
}

// lv95ToWGS84 converts LV95 easting/northing to WGS84 lon/lat degrees. The
// datum shift starts from height 0 on the Bessel ellipsoid; the resulting
// WGS84 height is discarded.
func lv95ToWGS84(e, n float64) (lon, lat float64) {
	phi, lambda := swissUnproject(e, n)
	x, y, z := geodeticToCartesian(phi, lambda, 0, besselA, besselE2)
	x += swissShiftX
	y += swissShiftY
	z += swissShiftZ
	phi, lambda, _ = cartesianToGeodetic(x, y, z, wgs84A, wgs84E2)
	return lambda * 180 / math.Pi, phi * 180 / math.Pi
}

// wgs84ToLV95 converts WGS84 lon/lat degrees to LV95 easting/northing. The
// forward shift leaves points above the WGS84 ellipsoid, so the inverse
// solves for the WGS84 height that lands back on height 0 of the Bessel
// ellipsoid; otherwise round trips drift by about a millimetre.
func wgs84ToLV95(lon, lat float64) (e, n float64) {
	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180
	var phiB, lambdaB float64
	hw := 0.0
	for i := 0; i < 10; i++ {
		x, y, z := geodeticToCartesian(phi, lambda, hw, wgs84A, wgs84E2)
		x -= swissShiftX
		y -= swissShiftY
		z -= swissShiftZ
		var hb float64
		phiB, lambdaB, hb = cartesianToGeodetic(x, y, z, besselA, besselE2)
		if math.Abs(hb) < 1e-9 {
			break
		}
		hw -= hb
	}
	return swissProject(phiB, lambdaB)
}
