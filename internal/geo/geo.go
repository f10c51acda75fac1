// Package geo provides spherical distance and polygon containment primitives
// used by geofence rule evaluation.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000

// Coordinate is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies in the representable
// latitude/longitude range.
func Valid(c Coordinate) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Distance returns the great-circle distance between two coordinates in
// meters, computed with the haversine formula.
func Distance(a, b Coordinate) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// PointInPolygon reports whether p lies inside the polygon using the even-odd
// ray-casting rule. The vertex sequence is treated as implicitly closed (the
// last vertex connects back to the first). Points exactly on an edge may
// resolve either way.
func PointInPolygon(p Coordinate, polygon []Coordinate) bool {
	inside := false
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		xi, yi := polygon[i].Lat, polygon[i].Lng
		xj, yj := polygon[j].Lat, polygon[j].Lng

		intersect := (yi > p.Lng) != (yj > p.Lng) &&
			p.Lat < (xj-xi)*(p.Lng-yi)/(yj-yi)+xi
		if intersect {
			inside = !inside
		}
	}
	return inside
}
