package geo

import (
	"math"
	"testing"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

func TestDistanceKm(t *testing.T) {
	a := model.GeoPoint{Lat: 41.3275, Lng: 19.8187}
	if d := DistanceKm(a, a); d != 0 {
		t.Fatalf("distance to self: want 0, got %v", d)
	}
	b := model.GeoPoint{Lat: 41.3300, Lng: 19.8500}
	if DistanceKm(a, b) != DistanceKm(b, a) {
		t.Fatalf("distance not symmetric")
	}
	// One degree of latitude is ~111.19 km.
	eq := DistanceKm(model.GeoPoint{Lat: 0, Lng: 0}, model.GeoPoint{Lat: 1, Lng: 0})
	if math.Abs(eq-111.19) > 0.1 {
		t.Fatalf("1 degree latitude: want ~111.19 km, got %v", eq)
	}
}

func TestTravelMinutes(t *testing.T) {
	cases := []struct {
		km   float64
		want int
	}{
		{0, 0},
		{50, 60},
		{25, 30},
		{12.5, 15},
		{1, 1},
		{0.3, 0}, // rounds down below half a minute
	}
	for _, c := range cases {
		if got := TravelMinutes(c.km); got != c.want {
			t.Fatalf("TravelMinutes(%v): want %d, got %d", c.km, c.want, got)
		}
	}
}

func TestPathKm(t *testing.T) {
	if km := PathKm(nil); km != 0 {
		t.Fatalf("empty path: want 0, got %v", km)
	}
	if km := PathKm([]model.GeoPoint{{Lat: 1, Lng: 1}}); km != 0 {
		t.Fatalf("single point: want 0, got %v", km)
	}
	pts := []model.GeoPoint{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 0}, {Lat: 2, Lng: 0}}
	want := DistanceKm(pts[0], pts[1]) + DistanceKm(pts[1], pts[2])
	if got := PathKm(pts); math.Abs(got-want) > 1e-9 {
		t.Fatalf("path sum: want %v, got %v", want, got)
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(12.345); got != 12.35 {
		t.Fatalf("Round2(12.345): got %v", got)
	}
	if got := Round2(12.344); got != 12.34 {
		t.Fatalf("Round2(12.344): got %v", got)
	}
	if got := Round2(0.125); got != 0.13 {
		t.Fatalf("Round2(0.125): got %v", got)
	}
}
