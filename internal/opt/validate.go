package opt

import (
	"fmt"
	"time"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/geo"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// Limits are the effective constraint ceilings for one validation run.
// Zero values disable the corresponding check.
type Limits struct {
	MaxTasks            int
	MaxRouteTimeMinutes int
	MaxRouteDistanceKm  float64
}

// LimitsFor resolves a team's limits with optional request overrides. The
// time ceiling falls back to the working-hours span when the team has no
// explicit route-time limit.
func LimitsFor(team model.Team, o *model.ConstraintLimits) Limits {
	l := Limits{
		MaxTasks:            team.MaxDailyTasks,
		MaxRouteTimeMinutes: team.MaxRouteTimeMinutes,
		MaxRouteDistanceKm:  team.MaxRouteDistanceKm,
	}
	if l.MaxRouteTimeMinutes == 0 {
		l.MaxRouteTimeMinutes = workingSpanMinutes(team.WorkingHours)
	}
	if o != nil {
		if o.MaxTasks > 0 {
			l.MaxTasks = o.MaxTasks
		}
		if o.MaxRouteTimeMinutes > 0 {
			l.MaxRouteTimeMinutes = o.MaxRouteTimeMinutes
		}
		if o.MaxRouteDistanceKm > 0 {
			l.MaxRouteDistanceKm = o.MaxRouteDistanceKm
		}
	}
	return l
}

// Validate checks a candidate team/task pairing and reports violations.
// Capacity and skill breaches are errors; equipment, distance and time
// breaches are warnings. Advisory only.
func Validate(team model.Team, tasks []model.Task, l Limits) []model.Violation {
	var out []model.Violation
	if l.MaxTasks > 0 && len(tasks) > l.MaxTasks {
		out = append(out, model.Violation{
			Type:     model.ViolationCapacity,
			Severity: model.SeverityError,
			TeamID:   team.ID,
			Detail:   fmt.Sprintf("%d tasks exceed capacity of %d", len(tasks), l.MaxTasks),
		})
	}
	for _, t := range tasks {
		for _, s := range t.RequiredSkills {
			if !team.HasSkill(s) {
				out = append(out, model.Violation{
					Type:     model.ViolationSkill,
					Severity: model.SeverityError,
					TeamID:   team.ID,
					TaskID:   t.ID,
					Detail:   fmt.Sprintf("team lacks required skill %q", s),
				})
			}
		}
		for _, e := range t.RequiredEquipment {
			if !team.HasEquipment(e) {
				out = append(out, model.Violation{
					Type:     model.ViolationEquipment,
					Severity: model.SeverityWarning,
					TeamID:   team.ID,
					TaskID:   t.ID,
					Detail:   fmt.Sprintf("team lacks equipment %q", e),
				})
			}
		}
	}
	km, travelMin := pathEstimate(team, tasks)
	if l.MaxRouteDistanceKm > 0 && km > l.MaxRouteDistanceKm {
		out = append(out, model.Violation{
			Type:     model.ViolationDistance,
			Severity: model.SeverityWarning,
			TeamID:   team.ID,
			Detail:   fmt.Sprintf("estimated %.1f km exceeds limit of %.1f km", km, l.MaxRouteDistanceKm),
		})
	}
	totalMin := travelMin
	for _, t := range tasks {
		totalMin += t.EstimatedDuration
	}
	if l.MaxRouteTimeMinutes > 0 && totalMin > l.MaxRouteTimeMinutes {
		out = append(out, model.Violation{
			Type:     model.ViolationTime,
			Severity: model.SeverityWarning,
			TeamID:   team.ID,
			Detail:   fmt.Sprintf("estimated %d min exceeds limit of %d min", totalMin, l.MaxRouteTimeMinutes),
		})
	}
	return out
}

// Valid reports overall validity: no error-severity violations.
func Valid(violations []model.Violation) bool {
	for _, v := range violations {
		if v.Severity == model.SeverityError {
			return false
		}
	}
	return true
}

// pathEstimate walks the tasks in the given order from the team's current
// location. Great-circle only; validation never calls the provider.
func pathEstimate(team model.Team, tasks []model.Task) (km float64, minutes int) {
	points := make([]model.GeoPoint, 0, len(tasks)+1)
	if team.CurrentLocation != nil {
		points = append(points, *team.CurrentLocation)
	}
	for _, t := range tasks {
		points = append(points, t.Location.Point())
	}
	km = geo.PathKm(points)
	return km, geo.TravelMinutes(km)
}

// workingSpanMinutes converts an HH:MM shift pair to its length in minutes.
// Zero when absent, unparsable, or inverted.
func workingSpanMinutes(wh *model.WorkingHours) int {
	if wh == nil || wh.Start == "" || wh.End == "" {
		return 0
	}
	s, err1 := time.Parse("15:04", wh.Start)
	e, err2 := time.Parse("15:04", wh.End)
	if err1 != nil || err2 != nil {
		return 0
	}
	d := e.Sub(s)
	if d <= 0 {
		return 0
	}
	return int(d.Minutes())
}
