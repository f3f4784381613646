package weather

import (
	"context"
	"math"
	"time"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/metrics"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// NeutralSafetyScore is attached when no assessment is available.
const NeutralSafetyScore = 50

const unavailableWarning = "Weather data unavailable, plan with normal caution"

// Overlay enriches routes with weather context. A nil provider or any
// provider failure degrades to a neutral summary; the overlay never fails
// the caller.
type Overlay struct {
	Provider Provider
	Timeout  time.Duration
}

func NewOverlay(p Provider) *Overlay {
	return &Overlay{Provider: p, Timeout: 10 * time.Second}
}

// Annotate attaches a weather summary to each route and spreads any
// suggested delay evenly across its stops.
func (o *Overlay) Annotate(ctx context.Context, businessID string, routes []model.Route) []model.Route {
	for i := range routes {
		r := &routes[i]
		if len(r.Stops) == 0 {
			continue
		}
		imp, ok := o.assess(ctx, businessID, center(r.Stops))
		if !ok {
			r.Weather = &model.WeatherSummary{
				Warnings:    []string{unavailableWarning},
				SafetyScore: NeutralSafetyScore,
			}
			continue
		}
		r.Weather = &model.WeatherSummary{
			Warnings:                 warningsFor(imp),
			SafetyScore:              imp.SafetyScore,
			SuggestedDelayMinutes:    imp.SuggestedDelayMinutes,
			EquipmentRecommendations: imp.EquipmentRecommendations,
		}
		if imp.SuggestedDelayMinutes > 0 {
			per := int(math.Round(float64(imp.SuggestedDelayMinutes) / float64(len(r.Stops))))
			for j := range r.Stops {
				r.Stops[j].WeatherDelayMinutes = per
			}
		}
	}
	return routes
}

// Alerts returns active alerts for the business area. Provider trouble
// degrades to an empty list, same as Annotate.
func (o *Overlay) Alerts(ctx context.Context, businessID string) []model.WeatherAlert {
	if o.Provider == nil {
		return []model.WeatherAlert{}
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	alerts, err := o.Provider.GetWeatherAlerts(ctx, businessID)
	if err != nil {
		metrics.ProviderFallbacks.WithLabelValues("weather").Inc()
		return []model.WeatherAlert{}
	}
	if alerts == nil {
		alerts = []model.WeatherAlert{}
	}
	return alerts
}

func (o *Overlay) assess(ctx context.Context, businessID string, c model.GeoPoint) (Impact, bool) {
	if o.Provider == nil {
		return Impact{}, false
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	imp, err := o.Provider.GetWeatherImpact(ctx, businessID, c)
	if err != nil {
		metrics.ProviderFallbacks.WithLabelValues("weather").Inc()
		return Impact{}, false
	}
	return imp, true
}

// center is the arithmetic mean of the stop coordinates.
func center(stops []model.RouteStop) model.GeoPoint {
	var lat, lng float64
	for _, s := range stops {
		lat += s.Location.Lat
		lng += s.Location.Lng
	}
	n := float64(len(stops))
	return model.GeoPoint{Lat: lat / n, Lng: lng / n}
}

// warningsFor derives human-readable warnings from the risk level and the
// high-severity impact factors.
func warningsFor(imp Impact) []string {
	var out []string
	switch imp.RiskLevel {
	case RiskSevere:
		out = append(out, "Severe weather expected, consider rescheduling non-urgent stops")
	case RiskHigh:
		out = append(out, "High weather risk, allow extra travel time")
	case RiskModerate:
		out = append(out, "Moderate weather risk, monitor conditions through the day")
	}
	for _, f := range imp.ImpactFactors {
		if f.Description == "" {
			continue
		}
		if f.Severity == RiskHigh || f.Severity == RiskSevere {
			out = append(out, f.Description)
		}
	}
	return out
}
