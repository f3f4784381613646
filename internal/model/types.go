package model

// Core domain types. Timestamps are RFC3339 strings, dates are YYYY-MM-DD,
// clock-only fields are HH:MM.

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a service location: coordinates plus a display address.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Point returns the bare coordinates of the location.
func (l Location) Point() GeoPoint { return GeoPoint{Lat: l.Lat, Lng: l.Lng} }

// TimeWindow is a preferred service interval on the scheduled date.
type TimeWindow struct {
	Start    string `json:"start,omitempty"` // HH:MM
	End      string `json:"end,omitempty"`   // HH:MM
	Flexible bool   `json:"flexible,omitempty"`
}

// WorkingHours is a team's daily shift span.
type WorkingHours struct {
	Start string `json:"start,omitempty"` // HH:MM
	End   string `json:"end,omitempty"`   // HH:MM
}

// Vehicle carries the fuel profile used for route cost estimates.
// ConsumptionPer100Km is litres for combustion engines and kWh for electric.
type Vehicle struct {
	FuelType            string  `json:"fuelType,omitempty"` // diesel, petrol, hybrid, electric
	ConsumptionPer100Km float64 `json:"consumptionPer100Km,omitempty"`
	FuelPricePerUnit    float64 `json:"fuelPricePerUnit,omitempty"`
}

// Task lifecycle.
const (
	TaskStatusPending     = "pending"
	TaskStatusAssigned    = "assigned"
	TaskStatusInProgress  = "in_progress"
	TaskStatusCompleted   = "completed"
	TaskStatusOnHold      = "on_hold"
	TaskStatusCancelled   = "cancelled"
	TaskStatusRescheduled = "rescheduled"
)

// Task priorities, lowest to highest.
const (
	PriorityLow       = "low"
	PriorityMedium    = "medium"
	PriorityHigh      = "high"
	PriorityUrgent    = "urgent"
	PriorityEmergency = "emergency"
)

var priorityRank = map[string]int{
	PriorityLow:       1,
	PriorityMedium:    2,
	PriorityHigh:      3,
	PriorityUrgent:    4,
	PriorityEmergency: 5,
}

// PriorityRank returns the ordering weight of a priority. Unknown or empty
// priorities rank as medium.
func PriorityRank(p string) int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return priorityRank[PriorityMedium]
}

// ValidPriority reports whether p is a recognized priority value.
func ValidPriority(p string) bool {
	_, ok := priorityRank[p]
	return ok
}

// Task is a scheduled unit of field work. The engine only transitions
// Status, AssignedTeamID, AssignedRouteID, AssignedAt, CompletedAt and
// Performance; everything else belongs to the task pool.
type Task struct {
	ID                string             `json:"id"`
	BusinessID        string             `json:"businessId"`
	Name              string             `json:"name,omitempty"`
	Location          Location           `json:"location"`
	ScheduledDate     string             `json:"scheduledDate"` // YYYY-MM-DD
	TimeWindow        *TimeWindow        `json:"timeWindow,omitempty"`
	EstimatedDuration int                `json:"estimatedDurationMinutes,omitempty"`
	Priority          string             `json:"priority,omitempty"`
	RequiredSkills    []string           `json:"requiredSkills,omitempty"`
	RequiredEquipment []string           `json:"requiredEquipment,omitempty"`
	Status            string             `json:"status"`
	AssignedTeamID    string             `json:"assignedTeamId,omitempty"`
	AssignedRouteID   string             `json:"assignedRouteId,omitempty"`
	AssignedAt        string             `json:"assignedAt,omitempty"`
	CompletedAt       string             `json:"completedAt,omitempty"`
	Performance       *ActualPerformance `json:"actualPerformance,omitempty"`
	CreatedAt         string             `json:"createdAt,omitempty"`
	UpdatedAt         string             `json:"updatedAt,omitempty"`
}

// ActualPerformance records wall-clock execution of a task.
type ActualPerformance struct {
	StartTime      string      `json:"startTime,omitempty"`
	EndTime        string      `json:"endTime,omitempty"`
	ActualDuration int         `json:"actualDurationMinutes,omitempty"`
	Delays         []TaskDelay `json:"delays,omitempty"`
}

type TaskDelay struct {
	Reason  string `json:"reason,omitempty"`
	Minutes int    `json:"minutes,omitempty"`
	TS      string `json:"ts,omitempty"`
}

// Vehicle fuel types.
const (
	FuelTypeDiesel   = "diesel"
	FuelTypePetrol   = "petrol"
	FuelTypeHybrid   = "hybrid"
	FuelTypeElectric = "electric"
)

// Team is a read-mostly crew snapshot from the capability registry.
// Aliases holds legacy or external identifiers; every lookup addressing a
// team must accept any of them.
type Team struct {
	ID                  string        `json:"id"`
	BusinessID          string        `json:"businessId"`
	Name                string        `json:"name"`
	Active              bool          `json:"active"`
	AvailableForRouting bool          `json:"availableForRouting"`
	Aliases             []string      `json:"aliases,omitempty"`
	Skills              []string      `json:"skills,omitempty"`
	Equipment           []string      `json:"equipment,omitempty"`
	MaxDailyTasks       int           `json:"maxDailyTasks,omitempty"`
	MaxRouteTimeMinutes int           `json:"maxRouteTimeMinutes,omitempty"`
	MaxRouteDistanceKm  float64       `json:"maxRouteDistanceKm,omitempty"`
	WorkingHours        *WorkingHours `json:"workingHours,omitempty"`
	CurrentLocation     *GeoPoint     `json:"currentLocation,omitempty"`
	Vehicle             *Vehicle      `json:"vehicle,omitempty"`
	CreatedAt           string        `json:"createdAt,omitempty"`
	UpdatedAt           string        `json:"updatedAt,omitempty"`
}

// MatchesID reports whether id is the team's primary id or a known alias.
func (t *Team) MatchesID(id string) bool {
	if t.ID == id {
		return true
	}
	for _, a := range t.Aliases {
		if a == id {
			return true
		}
	}
	return false
}

// HasSkill reports whether the team carries the named skill.
func (t *Team) HasSkill(skill string) bool {
	for _, s := range t.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// HasEquipment reports whether the team carries the named equipment.
func (t *Team) HasEquipment(item string) bool {
	for _, e := range t.Equipment {
		if e == item {
			return true
		}
	}
	return false
}

// Route lifecycle.
const (
	RouteStatusDraft      = "draft"
	RouteStatusOptimized  = "optimized"
	RouteStatusAssigned   = "assigned"
	RouteStatusInProgress = "in_progress"
	RouteStatusCompleted  = "completed"
	RouteStatusCancelled  = "cancelled"
)

// Stop lifecycle.
const (
	StopStatusPending   = "pending"
	StopStatusInService = "in_service"
	StopStatusCompleted = "completed"
	StopStatusSkipped   = "skipped"
)

// Route is the durable optimization plan for one team on one date.
// Stops keep a dense 1..N SequenceNumber matching array position. Routes are
// soft-deleted only (DeletedAt set, status cancelled).
type Route struct {
	RouteID                   string          `json:"routeId"`
	BusinessID                string          `json:"businessId"`
	TeamID                    string          `json:"teamId"`
	TeamName                  string          `json:"teamName,omitempty"`
	Date                      string          `json:"date"` // YYYY-MM-DD
	Status                    string          `json:"status"`
	Stops                     []RouteStop     `json:"stops"`
	EstimatedTotalTimeMinutes int             `json:"estimatedTotalTimeMinutes"`
	ActualTotalTimeMinutes    int             `json:"actualTotalTimeMinutes,omitempty"`
	EstimatedDistanceKm       float64         `json:"estimatedDistanceKm"`
	EstimatedFuelCost         float64         `json:"estimatedFuelCost"`
	OptimizationScore         float64         `json:"optimizationScore"`
	Optimization              *Optimization   `json:"optimization,omitempty"`
	Weather                   *WeatherSummary `json:"weather,omitempty"`
	CreatedAt                 string          `json:"createdAt,omitempty"`
	UpdatedAt                 string          `json:"updatedAt,omitempty"`
	DeletedAt                 string          `json:"deletedAt,omitempty"`
}

// Optimization describes how a route was produced.
type Optimization struct {
	Algorithm        string   `json:"algorithm"`
	ProcessingTimeMs int64    `json:"processingTimeMs"`
	ConstraintsUsed  []string `json:"constraintsUsed,omitempty"`
}

// WeatherSummary is the overlay result attached to a route.
type WeatherSummary struct {
	Warnings                 []string `json:"warnings,omitempty"`
	SafetyScore              int      `json:"safetyScore"`
	SuggestedDelayMinutes    int      `json:"suggestedDelayMinutes,omitempty"`
	EquipmentRecommendations []string `json:"equipmentRecommendations,omitempty"`
}

// RouteStop is one task's position within a route.
type RouteStop struct {
	TaskID                        string   `json:"taskId"`
	TaskName                      string   `json:"taskName,omitempty"`
	SequenceNumber                int      `json:"sequenceNumber"`
	Location                      Location `json:"location"`
	EstimatedArrival              string   `json:"estimatedArrival,omitempty"`
	EstimatedDeparture            string   `json:"estimatedDeparture,omitempty"`
	ActualArrival                 string   `json:"actualArrival,omitempty"`
	ActualDeparture               string   `json:"actualDeparture,omitempty"`
	DistanceFromPreviousKm        float64  `json:"distanceFromPreviousKm"`
	TravelTimeFromPreviousMinutes int      `json:"travelTimeFromPreviousMinutes"`
	ServiceTimeMinutes            int      `json:"serviceTimeMinutes"`
	Priority                      string   `json:"priority,omitempty"`
	Status                        string   `json:"status"`
	WeatherDelayMinutes           int      `json:"weatherDelayMinutes,omitempty"`
}

// Progress lifecycle (route-level and per progress task).
const (
	ProgressStatusPending    = "pending"
	ProgressStatusInProgress = "in_progress"
	ProgressStatusCompleted  = "completed"
)

// Progress events accepted by the tracker.
const (
	EventStarted   = "started"
	EventArrived   = "arrived"
	EventCompleted = "completed"
	EventPaused    = "paused"
)

// ValidProgressEvent reports whether ev is a recognized progress event.
func ValidProgressEvent(ev string) bool {
	switch ev {
	case EventStarted, EventArrived, EventCompleted, EventPaused:
		return true
	}
	return false
}

// RouteProgress is the live-tracking shadow of a Route: one per team per
// date unless the prior one was soft-deleted. CompletedTasksCount always
// equals the number of tasks with status completed; route-level status is
// completed exactly when that count reaches len(Tasks) and never moves
// backward.
type RouteProgress struct {
	ID                         string               `json:"id"`
	BusinessID                 string               `json:"businessId"`
	TeamID                     string               `json:"teamId"`
	TeamName                   string               `json:"teamName,omitempty"`
	RouteID                    string               `json:"routeId"`
	RouteDate                  string               `json:"routeDate"` // YYYY-MM-DD
	Status                     string               `json:"status"`
	Tasks                      []ProgressTask       `json:"tasks"`
	CurrentTaskIndex           int                  `json:"currentTaskIndex"`
	CompletedTasksCount        int                  `json:"completedTasksCount"`
	RouteStartTime             string               `json:"routeStartTime,omitempty"`
	RouteEndTime               string               `json:"routeEndTime,omitempty"`
	TotalActualDurationMinutes int                  `json:"totalActualDurationMinutes,omitempty"`
	Updates                    []ProgressUpdate     `json:"updates,omitempty"`
	Performance                *ProgressPerformance `json:"performance,omitempty"`
	CreatedAt                  string               `json:"createdAt,omitempty"`
	UpdatedAt                  string               `json:"updatedAt,omitempty"`
	DeletedAt                  string               `json:"deletedAt,omitempty"`
}

// ProgressTask mirrors one route stop inside the tracking shadow.
type ProgressTask struct {
	TaskID                   string   `json:"taskId"`
	TaskName                 string   `json:"taskName,omitempty"`
	ScheduledOrder           int      `json:"scheduledOrder"`
	Location                 Location `json:"location"`
	EstimatedStart           string   `json:"estimatedStart,omitempty"`
	EstimatedEnd             string   `json:"estimatedEnd,omitempty"`
	ActualStart              string   `json:"actualStart,omitempty"`
	ActualEnd                string   `json:"actualEnd,omitempty"`
	EstimatedDurationMinutes int      `json:"estimatedDurationMinutes,omitempty"`
	ActualDurationMinutes    int      `json:"actualDurationMinutes,omitempty"`
	Status                   string   `json:"status"`
}

// ProgressUpdate is one entry of the append-only progress log.
type ProgressUpdate struct {
	ID       string    `json:"id,omitempty"`
	TS       string    `json:"ts"`
	Status   string    `json:"status"` // route_created, started, arrived, completed, paused
	TaskID   string    `json:"taskId,omitempty"`
	Location *GeoPoint `json:"location,omitempty"`
	Note     string    `json:"note,omitempty"`
}

// ProgressPerformance aggregates execution quality once a route completes.
type ProgressPerformance struct {
	EfficiencyPercent int `json:"efficiencyPercent,omitempty"`
}

// CountCompleted returns the number of progress tasks with status completed.
func (p *RouteProgress) CountCompleted() int {
	n := 0
	for _, t := range p.Tasks {
		if t.Status == ProgressStatusCompleted {
			n++
		}
	}
	return n
}

// Violation severities.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Violation types.
const (
	ViolationCapacity  = "capacity_exceeded"
	ViolationSkill     = "skill_mismatch"
	ViolationEquipment = "equipment_missing"
	ViolationDistance  = "distance_exceeded"
	ViolationTime      = "time_exceeded"
)

// Violation is a named constraint breach. Advisory: callers decide whether
// to proceed despite warnings.
type Violation struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	TeamID   string `json:"teamId,omitempty"`
	TaskID   string `json:"taskId,omitempty"`
	Detail   string `json:"detail"`
}

// RouteMetrics summarizes distance, time, fuel and score for a task set.
type RouteMetrics struct {
	TaskCount             int     `json:"taskCount"`
	TotalDistanceKm       float64 `json:"totalDistanceKm"`
	TravelTimeMinutes     int     `json:"travelTimeMinutes"`
	ServiceTimeMinutes    int     `json:"serviceTimeMinutes"`
	TotalTimeMinutes      int     `json:"totalTimeMinutes"`
	FuelCost              float64 `json:"fuelCost"`
	AvgDistancePerTaskKm  float64 `json:"avgDistancePerTaskKm"`
	AvgTimePerTaskMinutes float64 `json:"avgTimePerTaskMinutes"`
	OptimizationScore     float64 `json:"optimizationScore"`
}

// RouteStats aggregates persisted routes over a date or month filter.
type RouteStats struct {
	BusinessID                string         `json:"businessId"`
	Period                    string         `json:"period"`
	TotalRoutes               int            `json:"totalRoutes"`
	RoutesByStatus            map[string]int `json:"routesByStatus"`
	TotalStops                int            `json:"totalStops"`
	CompletedStops            int            `json:"completedStops"`
	CompletionRate            float64        `json:"completionRate"`
	TotalDistanceKm           float64        `json:"totalDistanceKm"`
	TotalEstimatedTimeMinutes int            `json:"totalEstimatedTimeMinutes"`
	TotalFuelCost             float64        `json:"totalFuelCost"`
	AvgOptimizationScore      float64        `json:"avgOptimizationScore"`
	AvgStopsPerRoute          float64        `json:"avgStopsPerRoute"`
}

// WeatherAlert is a passthrough alert from the weather collaborator.
type WeatherAlert struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Headline    string `json:"headline,omitempty"`
	Description string `json:"description,omitempty"`
	Starts      string `json:"starts,omitempty"`
	Ends        string `json:"ends,omitempty"`
}
