package store

import (
	"fmt"
	"math"
	"time"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

const defaultTaskDurationMin = 30

// normalizeTask validates one task import row and fills defaults. The
// returned task is ready to persist.
func normalizeTask(businessID, id string, in model.TaskIn, now string) (model.Task, error) {
	if err := checkCoords(in.Location.Lat, in.Location.Lng); err != nil {
		return model.Task{}, err
	}
	if in.ScheduledDate == "" {
		return model.Task{}, fmt.Errorf("scheduledDate is required")
	}
	if _, err := time.Parse("2006-01-02", in.ScheduledDate); err != nil {
		return model.Task{}, fmt.Errorf("scheduledDate: want YYYY-MM-DD")
	}
	if in.EstimatedDuration < 0 {
		return model.Task{}, fmt.Errorf("estimatedDurationMinutes must not be negative")
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		return model.Task{}, fmt.Errorf("unknown priority %q", in.Priority)
	}
	if err := checkWindow(in.TimeWindow); err != nil {
		return model.Task{}, err
	}
	duration := in.EstimatedDuration
	if duration == 0 {
		duration = defaultTaskDurationMin
	}
	return model.Task{
		ID:                id,
		BusinessID:        businessID,
		Name:              in.Name,
		Location:          in.Location,
		ScheduledDate:     in.ScheduledDate,
		TimeWindow:        in.TimeWindow,
		EstimatedDuration: duration,
		Priority:          priority,
		RequiredSkills:    in.RequiredSkills,
		RequiredEquipment: in.RequiredEquipment,
		Status:            model.TaskStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// normalizeTeam validates one team import row and fills defaults. Active
// and AvailableForRouting default to true.
func normalizeTeam(businessID, id string, in model.TeamIn, now string) (model.Team, error) {
	if in.Name == "" {
		return model.Team{}, fmt.Errorf("name is required")
	}
	if in.CurrentLocation != nil {
		if err := checkCoords(in.CurrentLocation.Lat, in.CurrentLocation.Lng); err != nil {
			return model.Team{}, err
		}
	}
	if in.MaxDailyTasks < 0 || in.MaxRouteTimeMinutes < 0 || in.MaxRouteDistanceKm < 0 {
		return model.Team{}, fmt.Errorf("limits must not be negative")
	}
	if err := checkShift(in.WorkingHours); err != nil {
		return model.Team{}, err
	}
	if err := checkVehicle(in.Vehicle); err != nil {
		return model.Team{}, err
	}
	active, available := true, true
	if in.Active != nil {
		active = *in.Active
	}
	if in.AvailableForRouting != nil {
		available = *in.AvailableForRouting
	}
	return model.Team{
		ID:                  id,
		BusinessID:          businessID,
		Name:                in.Name,
		Active:              active,
		AvailableForRouting: available,
		Aliases:             in.Aliases,
		Skills:              in.Skills,
		Equipment:           in.Equipment,
		MaxDailyTasks:       in.MaxDailyTasks,
		MaxRouteTimeMinutes: in.MaxRouteTimeMinutes,
		MaxRouteDistanceKm:  in.MaxRouteDistanceKm,
		WorkingHours:        in.WorkingHours,
		CurrentLocation:     in.CurrentLocation,
		Vehicle:             in.Vehicle,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func checkCoords(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v out of range", lng)
	}
	return nil
}

func checkWindow(w *model.TimeWindow) error {
	if w == nil {
		return nil
	}
	var start, end time.Time
	var err error
	if w.Start != "" {
		if start, err = time.Parse("15:04", w.Start); err != nil {
			return fmt.Errorf("timeWindow.start: want HH:MM")
		}
	}
	if w.End != "" {
		if end, err = time.Parse("15:04", w.End); err != nil {
			return fmt.Errorf("timeWindow.end: want HH:MM")
		}
	}
	if w.Start != "" && w.End != "" && !end.After(start) {
		return fmt.Errorf("timeWindow end must be after start")
	}
	return nil
}

func checkShift(wh *model.WorkingHours) error {
	if wh == nil || (wh.Start == "" && wh.End == "") {
		return nil
	}
	s, err := time.Parse("15:04", wh.Start)
	if err != nil {
		return fmt.Errorf("workingHours.start: want HH:MM")
	}
	e, err := time.Parse("15:04", wh.End)
	if err != nil {
		return fmt.Errorf("workingHours.end: want HH:MM")
	}
	if !e.After(s) {
		return fmt.Errorf("workingHours end must be after start")
	}
	return nil
}

func checkVehicle(v *model.Vehicle) error {
	if v == nil {
		return nil
	}
	switch v.FuelType {
	case "", model.FuelTypeDiesel, model.FuelTypePetrol, model.FuelTypeHybrid, model.FuelTypeElectric:
	default:
		return fmt.Errorf("unknown fuelType %q", v.FuelType)
	}
	if v.ConsumptionPer100Km < 0 || v.FuelPricePerUnit < 0 {
		return fmt.Errorf("vehicle consumption and price must not be negative")
	}
	return nil
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

// round2 duplicates the geo helper to keep the store layer self-contained.
func round2(v float64) float64 { return math.Round(v*100) / 100 }
