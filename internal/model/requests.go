package model

import "time"

// Typed request/response shapes, one per public operation.

// DateFilter selects either a single day or a calendar month. At most one
// field may be set; the zero value means "the current month".
type DateFilter struct {
	Date  string `json:"date,omitempty"`  // YYYY-MM-DD
	Month string `json:"month,omitempty"` // YYYY-MM
}

// IsZero reports whether no filter was supplied.
func (f DateFilter) IsZero() bool { return f.Date == "" && f.Month == "" }

// Range resolves the filter to an inclusive [from, to] day range. The zero
// filter resolves to the month containing now.
func (f DateFilter) Range(now time.Time) (from, to string, err error) {
	if f.Date != "" && f.Month != "" {
		return "", "", &InvalidInputError{Field: "date", Reason: "date and month are mutually exclusive"}
	}
	switch {
	case f.Date != "":
		d, perr := time.Parse("2006-01-02", f.Date)
		if perr != nil {
			return "", "", &InvalidInputError{Field: "date", Reason: "want YYYY-MM-DD"}
		}
		s := d.Format("2006-01-02")
		return s, s, nil
	case f.Month != "":
		m, perr := time.Parse("2006-01", f.Month)
		if perr != nil {
			return "", "", &InvalidInputError{Field: "month", Reason: "want YYYY-MM"}
		}
		return m.Format("2006-01-02"), m.AddDate(0, 1, -1).Format("2006-01-02"), nil
	default:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.Format("2006-01-02"), first.AddDate(0, 1, -1).Format("2006-01-02"), nil
	}
}

// Label names the filtered period, for stats responses.
func (f DateFilter) Label(now time.Time) string {
	switch {
	case f.Date != "":
		return f.Date
	case f.Month != "":
		return f.Month
	default:
		return now.Format("2006-01")
	}
}

// OptimizeParams tunes one optimization run. Zero values fall back to team
// limits and engine defaults.
type OptimizeParams struct {
	PrioritizeTime      bool `json:"prioritizeTime,omitempty"`
	PrioritizeFuel      bool `json:"prioritizeFuel,omitempty"`
	MaxTasksPerTeam     int  `json:"maxTasksPerTeam,omitempty"`
	MaxRouteTimeMinutes int  `json:"maxRouteTimeMinutes,omitempty"`
}

// OptimizeRequest asks for route proposals for one business day.
type OptimizeRequest struct {
	BusinessID string          `json:"businessId"`
	Date       string          `json:"date"` // YYYY-MM-DD
	TeamIDs    []string        `json:"teamIds,omitempty"`
	Params     *OptimizeParams `json:"params,omitempty"`
}

// OptimizeResponse carries the proposals produced by one run. Unassignable
// tasks are omitted from Routes and visible only through the counts.
type OptimizeResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Routes        []Route  `json:"routes"`
	TotalTasks    int      `json:"totalTasks"`
	AssignedTasks int      `json:"assignedTasks"`
}

// ProgressEventRequest reports one stop-level lifecycle event. Event is the
// variant tag; Location and Note are optional attachments.
type ProgressEventRequest struct {
	BusinessID string    `json:"businessId"`
	TeamID     string    `json:"teamId"`
	TaskID     string    `json:"taskId"`
	Event      string    `json:"event"` // started, arrived, completed, paused
	Location   *GeoPoint `json:"location,omitempty"`
	Note       string    `json:"note,omitempty"`
}

// Ack is the standard mutation envelope: success plus optional warnings for
// best-effort side updates that did not stick.
type Ack struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// AssignRouteRequest binds a persisted route to a team.
type AssignRouteRequest struct {
	BusinessID string `json:"businessId"`
	TeamID     string `json:"teamId"`
}

// ReoptimizeRequest regenerates a persisted route in place.
type ReoptimizeRequest struct {
	BusinessID string          `json:"businessId"`
	Params     *OptimizeParams `json:"params,omitempty"`
}

// ConstraintLimits overrides team limits during validation.
type ConstraintLimits struct {
	MaxTasks            int     `json:"maxTasks,omitempty"`
	MaxRouteTimeMinutes int     `json:"maxRouteTimeMinutes,omitempty"`
	MaxRouteDistanceKm  float64 `json:"maxRouteDistanceKm,omitempty"`
}

// ValidateRouteRequest checks a candidate team/task pairing.
type ValidateRouteRequest struct {
	BusinessID string            `json:"businessId"`
	TeamID     string            `json:"teamId"`
	TaskIDs    []string          `json:"taskIds"`
	Limits     *ConstraintLimits `json:"limits,omitempty"`
}

// ValidateResponse reports advisory violations for a candidate pairing.
type ValidateResponse struct {
	Success    bool        `json:"success"`
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

// MetricsRequest computes route metrics for a proposed task set. TeamID is
// optional and only contributes the vehicle fuel profile and start point.
type MetricsRequest struct {
	BusinessID string   `json:"businessId"`
	TaskIDs    []string `json:"taskIds"`
	TeamID     string   `json:"teamId,omitempty"`
}

// MetricsResponse wraps RouteMetrics in the standard envelope.
type MetricsResponse struct {
	Success bool         `json:"success"`
	Metrics RouteMetrics `json:"metrics"`
}

// ProgressSnapshot is the read view returned by progress queries.
type ProgressSnapshot struct {
	Success        bool            `json:"success"`
	TeamID         string          `json:"teamId,omitempty"`
	Progresses     []RouteProgress `json:"progresses"`
	LatestLocation *TeamLocation   `json:"latestLocation,omitempty"`
}

// TeamLocation is the latest known position of a team.
type TeamLocation struct {
	BusinessID string   `json:"businessId"`
	TeamID     string   `json:"teamId"`
	Point      GeoPoint `json:"point"`
	TS         string   `json:"ts"`
}

// TaskIn is the import shape accepted by the task-pool stand-in.
type TaskIn struct {
	ID                string      `json:"id,omitempty"`
	Name              string      `json:"name,omitempty"`
	Location          Location    `json:"location"`
	ScheduledDate     string      `json:"scheduledDate"` // YYYY-MM-DD
	TimeWindow        *TimeWindow `json:"timeWindow,omitempty"`
	EstimatedDuration int         `json:"estimatedDurationMinutes,omitempty"`
	Priority          string      `json:"priority,omitempty"`
	RequiredSkills    []string    `json:"requiredSkills,omitempty"`
	RequiredEquipment []string    `json:"requiredEquipment,omitempty"`
}

// TeamIn is the import shape accepted by the team-registry stand-in.
// Active and AvailableForRouting default to true when omitted.
type TeamIn struct {
	ID                  string        `json:"id,omitempty"`
	Name                string        `json:"name"`
	Active              *bool         `json:"active,omitempty"`
	AvailableForRouting *bool         `json:"availableForRouting,omitempty"`
	Aliases             []string      `json:"aliases,omitempty"`
	Skills              []string      `json:"skills,omitempty"`
	Equipment           []string      `json:"equipment,omitempty"`
	MaxDailyTasks       int           `json:"maxDailyTasks,omitempty"`
	MaxRouteTimeMinutes int           `json:"maxRouteTimeMinutes,omitempty"`
	MaxRouteDistanceKm  float64       `json:"maxRouteDistanceKm,omitempty"`
	WorkingHours        *WorkingHours `json:"workingHours,omitempty"`
	CurrentLocation     *GeoPoint     `json:"currentLocation,omitempty"`
	Vehicle             *Vehicle      `json:"vehicle,omitempty"`
}

// ImportResult reports a bulk import: how many records stuck and how many
// were skipped with per-item reasons.
type ImportResult struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
