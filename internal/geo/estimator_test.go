package geo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

type fakeDirections struct {
	est  LegEstimate
	err  error
	hits int
}

func (f *fakeDirections) Distance(ctx context.Context, origin, dest model.GeoPoint) (LegEstimate, error) {
	f.hits++
	return f.est, f.err
}

func TestEstimatorLegFallsBackWithoutProvider(t *testing.T) {
	e := NewEstimator(nil, 0, FuelDefaults{})
	a := model.GeoPoint{Lat: 0, Lng: 0}
	b := model.GeoPoint{Lat: 1, Lng: 0}
	leg := e.Leg(context.Background(), a, b)
	if math.Abs(leg.DistanceKm-DistanceKm(a, b)) > 1e-9 {
		t.Fatalf("want great-circle distance, got %v", leg.DistanceKm)
	}
	if leg.TravelMinutes != TravelMinutes(leg.DistanceKm) {
		t.Fatalf("want derived minutes, got %d", leg.TravelMinutes)
	}
}

func TestEstimatorLegUsesProvider(t *testing.T) {
	fd := &fakeDirections{est: LegEstimate{DistanceKm: 120, DurationMinutes: 90}}
	e := NewEstimator(fd, time.Second, FuelDefaults{})
	leg := e.Leg(context.Background(), model.GeoPoint{Lat: 0, Lng: 0}, model.GeoPoint{Lat: 1, Lng: 0})
	if leg.DistanceKm != 120 || leg.TravelMinutes != 90 {
		t.Fatalf("want provider estimate 120km/90min, got %v/%d", leg.DistanceKm, leg.TravelMinutes)
	}
	if fd.hits != 1 {
		t.Fatalf("provider hits: want 1, got %d", fd.hits)
	}
}

func TestEstimatorLegFallsBackOnProviderError(t *testing.T) {
	fd := &fakeDirections{err: errors.New("boom")}
	e := NewEstimator(fd, time.Second, FuelDefaults{})
	a := model.GeoPoint{Lat: 0, Lng: 0}
	b := model.GeoPoint{Lat: 0, Lng: 1}
	leg := e.Leg(context.Background(), a, b)
	if math.Abs(leg.DistanceKm-DistanceKm(a, b)) > 1e-9 {
		t.Fatalf("want great-circle fallback, got %v", leg.DistanceKm)
	}
}

func TestEstimatorLegDerivesMinutesWhenProviderOmitsDuration(t *testing.T) {
	fd := &fakeDirections{est: LegEstimate{DistanceKm: 100}}
	e := NewEstimator(fd, time.Second, FuelDefaults{})
	leg := e.Leg(context.Background(), model.GeoPoint{}, model.GeoPoint{Lat: 1})
	if leg.TravelMinutes != TravelMinutes(100) {
		t.Fatalf("want %d min, got %d", TravelMinutes(100), leg.TravelMinutes)
	}
}

func TestEstimatorPath(t *testing.T) {
	e := NewEstimator(nil, 0, FuelDefaults{})
	if est := e.Path(context.Background(), nil); len(est.Legs) != 0 || est.DistanceKm != 0 {
		t.Fatalf("empty path: got %+v", est)
	}
	pts := []model.GeoPoint{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 0}, {Lat: 1, Lng: 1}}
	est := e.Path(context.Background(), pts)
	if len(est.Legs) != 2 {
		t.Fatalf("legs: want 2, got %d", len(est.Legs))
	}
	if math.Abs(est.DistanceKm-PathKm(pts)) > 1e-9 {
		t.Fatalf("path distance: want %v, got %v", PathKm(pts), est.DistanceKm)
	}
}

func TestFuelCost(t *testing.T) {
	e := NewEstimator(nil, 0, FuelDefaults{})
	// Fleet defaults: 8 L/100km at 1.50 per litre.
	if got := e.FuelCost(100, nil); got != 12.00 {
		t.Fatalf("default fuel cost: want 12.00, got %v", got)
	}
	// Electric defaults: 18 kWh/100km at 0.35 per kWh.
	if got := e.FuelCost(100, &model.Vehicle{FuelType: model.FuelTypeElectric}); got != 6.30 {
		t.Fatalf("electric fuel cost: want 6.30, got %v", got)
	}
	// Vehicle profile overrides both factors.
	v := &model.Vehicle{FuelType: model.FuelTypeDiesel, ConsumptionPer100Km: 10, FuelPricePerUnit: 2}
	if got := e.FuelCost(50, v); got != 10.00 {
		t.Fatalf("vehicle fuel cost: want 10.00, got %v", got)
	}
	if got := e.FuelCost(0, nil); got != 0 {
		t.Fatalf("zero distance: want 0, got %v", got)
	}
}

func TestHTTPDirectionsDistance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/directions/driving-car" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"routes":[{"summary":{"distance":10000,"duration":1200}}]}`))
	}))
	defer srv.Close()

	d := NewHTTPDirections(srv.URL, "key", time.Second, 100)
	est, err := d.Distance(context.Background(), model.GeoPoint{Lat: 0, Lng: 0}, model.GeoPoint{Lat: 1, Lng: 1})
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if est.DistanceKm != 10 || est.DurationMinutes != 20 {
		t.Fatalf("want 10km/20min, got %v/%d", est.DistanceKm, est.DurationMinutes)
	}
}

func TestHTTPDirectionsRetriesOn500(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(500)
			return
		}
		w.Write([]byte(`{"routes":[{"summary":{"distance":5000,"duration":600}}]}`))
	}))
	defer srv.Close()

	d := NewHTTPDirections(srv.URL, "", time.Second, 100)
	est, err := d.Distance(context.Background(), model.GeoPoint{}, model.GeoPoint{Lat: 1})
	if err != nil {
		t.Fatalf("Distance after retry: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls: want 2, got %d", calls)
	}
	if est.DistanceKm != 5 {
		t.Fatalf("want 5km, got %v", est.DistanceKm)
	}
}

func TestHTTPDirectionsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"routes":[]}`))
	}))
	defer srv.Close()

	d := NewHTTPDirections(srv.URL, "", time.Second, 100)
	if _, err := d.Distance(context.Background(), model.GeoPoint{}, model.GeoPoint{Lat: 1}); err == nil {
		t.Fatalf("want error on empty routes")
	}
}
