package geo

import (
	"math"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// Planning constants: great-circle estimates assume a flat average road
// speed rather than per-segment speed data.
const (
	earthRadiusKm = 6371.0
	avgSpeedKmh   = 50.0
)

// DistanceKm returns the great-circle (haversine) distance between two
// points in kilometers.
func DistanceKm(a, b model.GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// TravelMinutes derives drive time in whole minutes from a distance at the
// planning speed.
func TravelMinutes(km float64) int {
	return int(math.Round(km / avgSpeedKmh * 60.0))
}

// PathKm sums pairwise great-circle distances along an ordered path. Zero
// for fewer than two points.
func PathKm(points []model.GeoPoint) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += DistanceKm(points[i-1], points[i])
	}
	return total
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
