package opt

import (
	"context"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/geo"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// CalcMetrics prices a task sequence as given: distance and travel time
// over the ordered locations (starting from the team's current location
// when known), plus service time, fuel cost and the optimization score.
// The team contributes only its start point and vehicle profile.
func CalcMetrics(ctx context.Context, est *geo.Estimator, tasks []model.Task, team *model.Team) model.RouteMetrics {
	points := make([]model.GeoPoint, 0, len(tasks)+1)
	if team != nil && team.CurrentLocation != nil {
		points = append(points, *team.CurrentLocation)
	}
	for _, t := range tasks {
		points = append(points, t.Location.Point())
	}
	path := est.Path(ctx, points)

	m := model.RouteMetrics{
		TaskCount:         len(tasks),
		TotalDistanceKm:   geo.Round2(path.DistanceKm),
		TravelTimeMinutes: path.TravelMinutes,
	}
	for _, t := range tasks {
		m.ServiceTimeMinutes += t.EstimatedDuration
	}
	m.TotalTimeMinutes = m.TravelTimeMinutes + m.ServiceTimeMinutes

	var vehicle *model.Vehicle
	if team != nil {
		vehicle = team.Vehicle
	}
	m.FuelCost = est.FuelCost(path.DistanceKm, vehicle)
	if len(tasks) > 0 {
		m.AvgDistancePerTaskKm = geo.Round2(path.DistanceKm / float64(len(tasks)))
		m.AvgTimePerTaskMinutes = geo.Round2(float64(m.TotalTimeMinutes) / float64(len(tasks)))
	}
	m.OptimizationScore = Score(path.DistanceKm, m.TotalTimeMinutes, len(tasks))
	return m
}
