// Package geo implements the great-circle distance math behind the
// attendance geofence.
package geo

import "math"

const (
	// EarthRadiusMeters is the Earth radius used by the Haversine formula.
	EarthRadiusMeters = 6371000

	// FenceRadiusMeters is how far a student may be from the nearest teacher
	// anchor for attendance to count.
	FenceRadiusMeters = 100
)

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether the coordinate is inside the WGS84 range and free of NaN/Inf.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Haversine returns the great-circle distance between two coordinates in meters.
func Haversine(a, b Coordinate) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	deltaPhi := (b.Lat - a.Lat) * math.Pi / 180
	deltaLambda := (b.Lon - a.Lon) * math.Pi / 180

	sinPhi := math.Sin(deltaPhi / 2)
	sinLambda := math.Sin(deltaLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Nearest scans anchors in order and returns the index and distance of the
// closest valid one. Invalid anchors are skipped. A strictly smaller distance
// is required to replace the current best, so the earliest-inserted anchor
// wins ties. ok is false when no usable anchor exists.
func Nearest(claimant Coordinate, anchors []Coordinate) (idx int, distance float64, ok bool) {
	idx = -1
	for i, anchor := range anchors {
		if !anchor.Valid() {
			continue
		}
		d := Haversine(claimant, anchor)
		if !ok || d < distance {
			idx, distance, ok = i, d, true
		}
	}
	return idx, distance, ok
}

// InZone reports whether a distance to the nearest anchor passes the geofence.
func InZone(distance float64) bool {
	return distance <= FenceRadiusMeters
}
