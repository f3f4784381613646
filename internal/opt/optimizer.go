package opt

import (
	"context"
	"sort"
	"time"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/geo"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

const (
	// Algorithm names the pipeline recorded in route metadata.
	Algorithm = "greedy_nearest_neighbor"

	// Synthetic schedules begin at 08:00 with a fixed schedule-level
	// travel buffer between stops, distinct from metric travel time.
	dayStartHour       = 8
	interStopBufferMin = 15
)

// Input is one optimization run: eligible tasks and available teams for a
// single date.
type Input struct {
	Date   string // YYYY-MM-DD
	Tasks  []model.Task
	Teams  []model.Team
	Params model.OptimizeParams
}

// Proposal is one team's optimized route before persistence.
type Proposal struct {
	Team             model.Team
	Date             string
	Stops            []model.RouteStop
	TravelMinutes    int
	ServiceMinutes   int
	TotalTimeMinutes int
	DistanceKm       float64
	FuelCost         float64
	Score            float64
	ConstraintsUsed  []string
}

// Result carries the proposals plus assignment counts. Tasks no team could
// take are visible only through the counts.
type Result struct {
	Proposals  []Proposal
	TotalTasks int
	Assigned   int
}

// Optimizer builds per-team route proposals with a greedy fill and a
// nearest-neighbor stop ordering.
type Optimizer struct {
	Est *geo.Estimator
}

func New(est *geo.Estimator) *Optimizer { return &Optimizer{Est: est} }

// Optimize partitions tasks across teams and sequences each team's stops.
// Zero tasks or zero teams fail with model.ErrNoEligibleWork.
func (o *Optimizer) Optimize(ctx context.Context, in Input) (Result, error) {
	if len(in.Tasks) == 0 || len(in.Teams) == 0 {
		return Result{}, model.ErrNoEligibleWork
	}

	sorted := sortByPriority(in.Tasks)
	assigned := assignGreedy(sorted, in.Teams, in.Params.MaxTasksPerTeam)

	res := Result{TotalTasks: len(in.Tasks)}
	for ti := range in.Teams {
		team := in.Teams[ti]
		tasks := assigned[ti]
		if len(tasks) == 0 {
			continue
		}
		ordered := orderNearest(tasks, team.CurrentLocation)
		stops := buildStops(ctx, o.Est, ordered, team, in.Date)

		p := Proposal{
			Team:            team,
			Date:            in.Date,
			Stops:           stops,
			ConstraintsUsed: constraintsUsed(in.Params),
		}
		for _, s := range stops {
			p.DistanceKm += s.DistanceFromPreviousKm
			p.TravelMinutes += s.TravelTimeFromPreviousMinutes
			p.ServiceMinutes += s.ServiceTimeMinutes
		}
		p.TotalTimeMinutes = p.TravelMinutes + p.ServiceMinutes
		p.FuelCost = o.Est.FuelCost(p.DistanceKm, team.Vehicle)
		p.Score = Score(p.DistanceKm, p.TotalTimeMinutes, len(stops))
		res.Proposals = append(res.Proposals, p)
		res.Assigned += len(stops)
	}
	return res, nil
}

// sortByPriority orders tasks by descending priority rank, ties broken by
// ascending time-window start. Tasks without a window sort last within
// their rank.
func sortByPriority(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := model.PriorityRank(out[i].Priority), model.PriorityRank(out[j].Priority)
		if ri != rj {
			return ri > rj
		}
		return windowStart(out[i]) < windowStart(out[j])
	})
	return out
}

func windowStart(t model.Task) string {
	if t.TimeWindow == nil || t.TimeWindow.Start == "" {
		return "99:99"
	}
	return t.TimeWindow.Start
}

// assignGreedy fills each team up to min(maxPerTeam, team.MaxDailyTasks),
// skipping tasks whose required skills the team lacks. Zero limits mean
// unlimited. Returns tasks per team index.
func assignGreedy(tasks []model.Task, teams []model.Team, maxPerTeam int) map[int][]model.Task {
	out := make(map[int][]model.Task, len(teams))
	for _, task := range tasks {
		for ti := range teams {
			if capLimit := teamCap(teams[ti], maxPerTeam); capLimit > 0 && len(out[ti]) >= capLimit {
				continue
			}
			if !hasAllSkills(&teams[ti], task.RequiredSkills) {
				continue
			}
			out[ti] = append(out[ti], task)
			break
		}
	}
	return out
}

func teamCap(team model.Team, maxPerTeam int) int {
	switch {
	case maxPerTeam > 0 && team.MaxDailyTasks > 0:
		if maxPerTeam < team.MaxDailyTasks {
			return maxPerTeam
		}
		return team.MaxDailyTasks
	case maxPerTeam > 0:
		return maxPerTeam
	default:
		return team.MaxDailyTasks
	}
}

func hasAllSkills(team *model.Team, required []string) bool {
	for _, s := range required {
		if !team.HasSkill(s) {
			return false
		}
	}
	return true
}

// orderNearest sequences tasks with a nearest-neighbor walk starting from
// start (or the first task's location when absent). Output is a
// permutation of the input.
func orderNearest(tasks []model.Task, start *model.GeoPoint) []model.Task {
	if len(tasks) <= 1 {
		return tasks
	}
	cur := tasks[0].Location.Point()
	if start != nil {
		cur = *start
	}
	remaining := make([]model.Task, len(tasks))
	copy(remaining, tasks)
	out := make([]model.Task, 0, len(tasks))
	for len(remaining) > 0 {
		best := 0
		bestD := geo.DistanceKm(cur, remaining[0].Location.Point())
		for i := 1; i < len(remaining); i++ {
			if d := geo.DistanceKm(cur, remaining[i].Location.Point()); d < bestD {
				best, bestD = i, d
			}
		}
		next := remaining[best]
		out = append(out, next)
		cur = next.Location.Point()
		remaining = append(remaining[:best], remaining[best+1:]...)
	}
	return out
}

// buildStops turns an ordered task list into route stops with metric-level
// distance/travel per leg and a synthetic 08:00 schedule. The approach leg
// from the team's current location counts toward distance when known.
func buildStops(ctx context.Context, est *geo.Estimator, tasks []model.Task, team model.Team, date string) []model.RouteStop {
	stops := make([]model.RouteStop, 0, len(tasks))
	var prev model.GeoPoint
	havePrev := false
	if team.CurrentLocation != nil {
		prev = *team.CurrentLocation
		havePrev = true
	}
	clock := scheduleStart(date)
	for i, t := range tasks {
		stop := model.RouteStop{
			TaskID:             t.ID,
			TaskName:           t.Name,
			SequenceNumber:     i + 1,
			Location:           t.Location,
			ServiceTimeMinutes: t.EstimatedDuration,
			Priority:           t.Priority,
			Status:             model.StopStatusPending,
		}
		if havePrev {
			leg := est.Leg(ctx, prev, t.Location.Point())
			stop.DistanceFromPreviousKm = leg.DistanceKm
			stop.TravelTimeFromPreviousMinutes = leg.TravelMinutes
		}
		if i > 0 {
			clock = clock.Add(interStopBufferMin * time.Minute)
		}
		stop.EstimatedArrival = clock.Format(time.RFC3339)
		clock = clock.Add(time.Duration(t.EstimatedDuration) * time.Minute)
		stop.EstimatedDeparture = clock.Format(time.RFC3339)

		prev = t.Location.Point()
		havePrev = true
		stops = append(stops, stop)
	}
	return stops
}

// scheduleStart returns 08:00 UTC on the route date; falls back to today
// when the date does not parse.
func scheduleStart(date string) time.Time {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		d = time.Now().UTC()
	}
	return time.Date(d.Year(), d.Month(), d.Day(), dayStartHour, 0, 0, 0, time.UTC)
}

// Score rates a route in [60, 100]: short hops and service times near 45
// minutes score best.
func Score(distanceKm float64, totalMinutes, taskCount int) float64 {
	if taskCount == 0 {
		return 60
	}
	avgKm := distanceKm / float64(taskCount)
	avgMin := float64(totalMinutes) / float64(taskCount)
	score := 100.0
	score -= minF(30, 2*avgKm)
	score -= minF(20, (avgMin-45)/5)
	if score < 60 {
		score = 60
	}
	if score > 100 {
		score = 100
	}
	return geo.Round2(score)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func constraintsUsed(p model.OptimizeParams) []string {
	used := []string{"skills", "capacity"}
	if p.PrioritizeTime {
		used = append(used, "prioritize_time")
	}
	if p.PrioritizeFuel {
		used = append(used, "prioritize_fuel")
	}
	if p.MaxRouteTimeMinutes > 0 {
		used = append(used, "max_route_time")
	}
	return used
}
