package geo

import (
	"context"
	"time"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/metrics"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// Leg is one hop of an ordered path.
type Leg struct {
	DistanceKm    float64
	TravelMinutes int
}

// Estimate aggregates the legs of a full path.
type Estimate struct {
	Legs          []Leg
	DistanceKm    float64
	TravelMinutes int
}

// FuelDefaults fill vehicle-profile gaps when pricing a route.
type FuelDefaults struct {
	ConsumptionPer100Km         float64 // litres per 100 km, combustion
	PricePerLitre               float64
	ElectricConsumptionPer100Km float64 // kWh per 100 km
	ElectricPricePerKWh         float64
}

// DefaultFuel returns the fleet-wide fallback fuel profile.
func DefaultFuel() FuelDefaults {
	return FuelDefaults{
		ConsumptionPer100Km:         8.0,
		PricePerLitre:               1.5,
		ElectricConsumptionPer100Km: 18.0,
		ElectricPricePerKWh:         0.35,
	}
}

// Estimator produces leg and path estimates. When a directions provider is
// configured it is consulted per leg; any provider error or timeout falls
// back to the great-circle estimate without surfacing to the caller.
type Estimator struct {
	provider DirectionsProvider
	timeout  time.Duration
	fuel     FuelDefaults
}

// NewEstimator builds an Estimator. provider may be nil; a zero fuel
// profile is replaced by DefaultFuel.
func NewEstimator(provider DirectionsProvider, timeout time.Duration, fuel FuelDefaults) *Estimator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if fuel == (FuelDefaults{}) {
		fuel = DefaultFuel()
	}
	return &Estimator{provider: provider, timeout: timeout, fuel: fuel}
}

// Leg estimates one hop.
func (e *Estimator) Leg(ctx context.Context, a, b model.GeoPoint) Leg {
	km := DistanceKm(a, b)
	leg := Leg{DistanceKm: km, TravelMinutes: TravelMinutes(km)}
	if e.provider == nil {
		return leg
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	est, err := e.provider.Distance(ctx, a, b)
	if err != nil || est.DistanceKm <= 0 {
		metrics.ProviderFallbacks.WithLabelValues("directions").Inc()
		return leg
	}
	leg.DistanceKm = est.DistanceKm
	if est.DurationMinutes > 0 {
		leg.TravelMinutes = est.DurationMinutes
	} else {
		leg.TravelMinutes = TravelMinutes(est.DistanceKm)
	}
	return leg
}

// Path estimates an ordered path. Fewer than two points yield a zero
// estimate with no legs.
func (e *Estimator) Path(ctx context.Context, points []model.GeoPoint) Estimate {
	var out Estimate
	for i := 1; i < len(points); i++ {
		leg := e.Leg(ctx, points[i-1], points[i])
		out.Legs = append(out.Legs, leg)
		out.DistanceKm += leg.DistanceKm
		out.TravelMinutes += leg.TravelMinutes
	}
	return out
}

// FuelCost prices a distance against a vehicle profile, falling back to the
// fleet defaults. Result is rounded to 2 decimals.
func (e *Estimator) FuelCost(km float64, v *model.Vehicle) float64 {
	cons := e.fuel.ConsumptionPer100Km
	price := e.fuel.PricePerLitre
	if v != nil && v.FuelType == model.FuelTypeElectric {
		cons = e.fuel.ElectricConsumptionPer100Km
		price = e.fuel.ElectricPricePerKWh
	}
	if v != nil {
		if v.ConsumptionPer100Km > 0 {
			cons = v.ConsumptionPer100Km
		}
		if v.FuelPricePerUnit > 0 {
			price = v.FuelPricePerUnit
		}
	}
	return Round2(km / 100 * cons * price)
}
