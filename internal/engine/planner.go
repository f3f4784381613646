package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/metrics"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/opt"
)

// Optimize plans routes for one business day: eligible tasks are partitioned
// across available teams, sequenced, priced, weather-annotated, and persisted
// as Route plus RouteProgress pairs. Tasks are stamped with their assignment
// best-effort; anything that fails to stick is reported as a warning, never
// as a failure of the run.
func (e *Engine) Optimize(ctx context.Context, req model.OptimizeRequest) (model.OptimizeResponse, error) {
	if req.BusinessID == "" {
		return model.OptimizeResponse{}, model.Invalid("businessId", "required")
	}
	date := req.Date
	if date == "" {
		date = todayUTC()
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return model.OptimizeResponse{}, model.Invalid("date", "want YYYY-MM-DD")
	}
	params := model.OptimizeParams{}
	if req.Params != nil {
		params = *req.Params
	}
	if params.MaxTasksPerTeam < 0 {
		return model.OptimizeResponse{}, model.Invalid("params.maxTasksPerTeam", "must not be negative")
	}
	if params.MaxRouteTimeMinutes < 0 {
		return model.OptimizeResponse{}, model.Invalid("params.maxRouteTime", "must not be negative")
	}

	teams, teamIDs, err := e.availableTeams(ctx, req.BusinessID, req.TeamIDs)
	if err != nil {
		return model.OptimizeResponse{}, err
	}
	if len(teams) == 0 {
		metrics.Optimizations.WithLabelValues("no_work").Inc()
		return model.OptimizeResponse{}, fmt.Errorf("no routable teams: %w", model.ErrNoEligibleWork)
	}
	var filterIDs []string
	if len(req.TeamIDs) > 0 {
		filterIDs = teamIDs
	}
	tasks, err := e.Store.FindEligibleTasks(ctx, req.BusinessID, date, date, filterIDs)
	if err != nil {
		return model.OptimizeResponse{}, err
	}
	if len(tasks) == 0 {
		metrics.Optimizations.WithLabelValues("no_work").Inc()
		return model.OptimizeResponse{}, fmt.Errorf("no eligible tasks for %s: %w", date, model.ErrNoEligibleWork)
	}

	start := time.Now()
	res, err := e.Opt.Optimize(ctx, opt.Input{Date: date, Tasks: tasks, Teams: teams, Params: params})
	procMs := time.Since(start).Milliseconds()
	metrics.OptimizationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, model.ErrNoEligibleWork) {
			metrics.Optimizations.WithLabelValues("no_work").Inc()
		} else {
			metrics.Optimizations.WithLabelValues("error").Inc()
		}
		return model.OptimizeResponse{}, err
	}

	routes := make([]model.Route, 0, len(res.Proposals))
	for _, p := range res.Proposals {
		routes = append(routes, buildRoute(req.BusinessID, p, procMs))
	}
	routes = e.Weather.Annotate(ctx, req.BusinessID, routes)

	warnings := e.persistPlan(ctx, req.BusinessID, routes)
	metrics.Optimizations.WithLabelValues("ok").Inc()
	e.Audit.Record(ctx, req.BusinessID, "route.optimized", map[string]any{
		"date":          date,
		"routes":        len(routes),
		"totalTasks":    res.TotalTasks,
		"assignedTasks": res.Assigned,
	})
	return model.OptimizeResponse{
		Success:       true,
		Message:       fmt.Sprintf("optimized %d route(s) covering %d of %d tasks", len(routes), res.Assigned, res.TotalTasks),
		Warnings:      warnings,
		Routes:        routes,
		TotalTasks:    res.TotalTasks,
		AssignedTasks: res.Assigned,
	}, nil
}

// availableTeams returns active routing-eligible teams, narrowed by the
// requested ids (alias-aware) when given, plus the primary ids of the result.
func (e *Engine) availableTeams(ctx context.Context, businessID string, requested []string) ([]model.Team, []string, error) {
	all, err := e.Store.GetTeams(ctx, businessID)
	if err != nil {
		return nil, nil, err
	}
	var teams []model.Team
	for _, t := range all {
		if !t.Active || !t.AvailableForRouting {
			continue
		}
		if len(requested) > 0 && !matchesAny(&t, requested) {
			continue
		}
		teams = append(teams, t)
	}
	ids := make([]string, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	return teams, ids, nil
}

func matchesAny(t *model.Team, ids []string) bool {
	for _, id := range ids {
		if t.MatchesID(id) {
			return true
		}
	}
	return false
}

func buildRoute(businessID string, p opt.Proposal, procMs int64) model.Route {
	return model.Route{
		RouteID:                   routeID(businessID, p.Team.ID, p.Date),
		BusinessID:                businessID,
		TeamID:                    p.Team.ID,
		TeamName:                  p.Team.Name,
		Date:                      p.Date,
		Status:                    model.RouteStatusOptimized,
		Stops:                     p.Stops,
		EstimatedTotalTimeMinutes: p.TotalTimeMinutes,
		EstimatedDistanceKm:       p.DistanceKm,
		EstimatedFuelCost:         p.FuelCost,
		OptimizationScore:         p.Score,
		Optimization: &model.Optimization{
			Algorithm:        opt.Algorithm,
			ProcessingTimeMs: procMs,
			ConstraintsUsed:  p.ConstraintsUsed,
		},
	}
}

// persistPlan writes each route and its tracking shadow, retiring any live
// plan for the same team and date first. Failures become warnings: the
// computed plan is still returned to the caller and the next optimization
// reconciles whatever did not stick.
func (e *Engine) persistPlan(ctx context.Context, businessID string, routes []model.Route) []string {
	var warnings []string
	now := nowRFC3339()
	for _, r := range routes {
		if prev, err := e.Store.FindRouteForTeamDate(ctx, businessID, r.TeamID, r.Date); err == nil {
			if err := e.Store.SoftDeleteRoute(ctx, businessID, prev.RouteID, now); err != nil {
				warnings = append(warnings, fmt.Sprintf("route %s: could not retire prior route %s: %v", r.RouteID, prev.RouteID, err))
			}
		}
		if prev, err := e.Store.GetProgressByTeamDate(ctx, businessID, r.TeamID, r.Date); err == nil {
			if err := e.Store.SoftDeleteProgress(ctx, businessID, prev.ID, now); err != nil {
				warnings = append(warnings, fmt.Sprintf("route %s: could not retire prior progress: %v", r.RouteID, err))
			}
		}
		if err := e.Store.CreateRoute(ctx, r); err != nil {
			warnings = append(warnings, fmt.Sprintf("route %s: persistence failed: %v", r.RouteID, err))
			log.WithFields(log.Fields{"route": r.RouteID, "team": r.TeamID}).WithError(err).Warn("route persistence failed")
			continue
		}
		if err := e.Store.CreateProgress(ctx, progressFor(r)); err != nil {
			warnings = append(warnings, fmt.Sprintf("route %s: progress tracking unavailable: %v", r.RouteID, err))
			log.WithFields(log.Fields{"route": r.RouteID, "team": r.TeamID}).WithError(err).Warn("progress persistence failed")
		}
		for _, s := range r.Stops {
			if err := e.Store.UpdateTaskAssignment(ctx, businessID, s.TaskID, r.RouteID, r.TeamID, now); err != nil {
				warnings = append(warnings, fmt.Sprintf("task %s: assignment stamp failed: %v", s.TaskID, err))
			}
		}
	}
	return warnings
}

// progressFor builds the pristine tracking shadow for a freshly planned
// route: one pending progress task per stop and a route_created log entry.
func progressFor(r model.Route) model.RouteProgress {
	tasks := make([]model.ProgressTask, len(r.Stops))
	for i, s := range r.Stops {
		tasks[i] = model.ProgressTask{
			TaskID:                   s.TaskID,
			TaskName:                 s.TaskName,
			ScheduledOrder:           s.SequenceNumber,
			Location:                 s.Location,
			EstimatedStart:           s.EstimatedArrival,
			EstimatedEnd:             s.EstimatedDeparture,
			EstimatedDurationMinutes: s.ServiceTimeMinutes,
			Status:                   model.ProgressStatusPending,
		}
	}
	return model.RouteProgress{
		BusinessID: r.BusinessID,
		TeamID:     r.TeamID,
		TeamName:   r.TeamName,
		RouteID:    r.RouteID,
		RouteDate:  r.Date,
		Status:     model.ProgressStatusPending,
		Tasks:      tasks,
		Updates: []model.ProgressUpdate{{
			ID:     uuid.New().String(),
			TS:     nowRFC3339(),
			Status: "route_created",
			Note:   fmt.Sprintf("route created with %d stop(s)", len(tasks)),
		}},
	}
}

// GetRoutes lists live routes in the filtered period.
func (e *Engine) GetRoutes(ctx context.Context, businessID string, f model.DateFilter) ([]model.Route, error) {
	if businessID == "" {
		return nil, model.Invalid("businessId", "required")
	}
	from, to, err := f.Range(time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return e.Store.ListRoutes(ctx, businessID, from, to)
}

// GetRoute fetches one live route.
func (e *Engine) GetRoute(ctx context.Context, businessID, routeID string) (model.Route, error) {
	return e.Store.GetRoute(ctx, businessID, routeID)
}

// CancelRoute soft-deletes a route, retires its tracking shadow, and returns
// its unexecuted tasks to the pool.
func (e *Engine) CancelRoute(ctx context.Context, businessID, routeID string) (model.Ack, error) {
	r, err := e.Store.GetRoute(ctx, businessID, routeID)
	if err != nil {
		return model.Ack{}, err
	}
	now := nowRFC3339()
	if err := e.Store.SoftDeleteRoute(ctx, businessID, routeID, now); err != nil {
		return model.Ack{}, err
	}
	var warnings []string
	if prog, err := e.Store.GetProgressByTeamDate(ctx, businessID, r.TeamID, r.Date); err == nil {
		if err := e.Store.SoftDeleteProgress(ctx, businessID, prog.ID, now); err != nil {
			warnings = append(warnings, fmt.Sprintf("progress cleanup failed: %v", err))
		}
	}
	for _, s := range r.Stops {
		t, err := e.Store.GetTask(ctx, businessID, s.TaskID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("task %s: %v", s.TaskID, err))
			continue
		}
		if t.AssignedRouteID != routeID || t.Status != model.TaskStatusAssigned {
			continue
		}
		t.Status = model.TaskStatusPending
		t.AssignedRouteID = ""
		t.AssignedTeamID = ""
		t.AssignedAt = ""
		if err := e.Store.UpdateTask(ctx, t); err != nil {
			warnings = append(warnings, fmt.Sprintf("task %s: release failed: %v", s.TaskID, err))
		}
	}
	e.Audit.Record(ctx, businessID, "route.deleted", map[string]any{"routeId": routeID, "teamId": r.TeamID, "date": r.Date})
	return model.Ack{Success: true, Message: fmt.Sprintf("route %s cancelled", routeID), Warnings: warnings}, nil
}

// AssignRoute moves a planned route to assigned, optionally re-targeting it
// to a different team. Re-targeting rebuilds the tracking shadow for the new
// team and re-stamps the tasks.
func (e *Engine) AssignRoute(ctx context.Context, businessID, routeID string, req model.AssignRouteRequest) (model.Ack, error) {
	if req.TeamID == "" {
		return model.Ack{}, model.Invalid("teamId", "required")
	}
	team, err := e.Store.FindTeam(ctx, businessID, req.TeamID)
	if err != nil {
		return model.Ack{}, err
	}
	r, err := e.Store.GetRoute(ctx, businessID, routeID)
	if err != nil {
		return model.Ack{}, err
	}
	switch r.Status {
	case model.RouteStatusDraft, model.RouteStatusOptimized, model.RouteStatusAssigned:
	default:
		return model.Ack{}, model.Invalid("routeId", fmt.Sprintf("route in status %s cannot be assigned", r.Status))
	}

	var warnings []string
	now := nowRFC3339()
	retarget := team.ID != r.TeamID
	if retarget {
		if other, err := e.Store.FindRouteForTeamDate(ctx, businessID, team.ID, r.Date); err == nil && other.RouteID != r.RouteID {
			return model.Ack{}, model.Invalid("teamId", fmt.Sprintf("team %s already has route %s on %s", team.ID, other.RouteID, r.Date))
		}
		if prog, err := e.Store.GetProgressByTeamDate(ctx, businessID, r.TeamID, r.Date); err == nil {
			if err := e.Store.SoftDeleteProgress(ctx, businessID, prog.ID, now); err != nil {
				warnings = append(warnings, fmt.Sprintf("prior progress cleanup failed: %v", err))
			}
		}
		r.TeamID = team.ID
		r.TeamName = team.Name
	}
	r.Status = model.RouteStatusAssigned
	if err := e.Store.UpdateRoute(ctx, r); err != nil {
		return model.Ack{}, err
	}
	if retarget {
		if err := e.Store.CreateProgress(ctx, progressFor(r)); err != nil {
			warnings = append(warnings, fmt.Sprintf("progress tracking unavailable: %v", err))
		}
		for _, s := range r.Stops {
			if err := e.Store.UpdateTaskAssignment(ctx, businessID, s.TaskID, r.RouteID, team.ID, now); err != nil {
				warnings = append(warnings, fmt.Sprintf("task %s: assignment stamp failed: %v", s.TaskID, err))
			}
		}
	}
	e.Audit.Record(ctx, businessID, "route.assigned", map[string]any{"routeId": routeID, "teamId": team.ID})
	return model.Ack{Success: true, Message: fmt.Sprintf("route %s assigned to team %s", routeID, team.ID), Warnings: warnings}, nil
}

// Reoptimize regenerates one route: its unexecuted tasks are re-sequenced
// for the same team and date, the prior Route and RouteProgress are retired,
// and replacements are persisted. Completed and cancelled tasks drop out.
func (e *Engine) Reoptimize(ctx context.Context, businessID, oldRouteID string, req model.ReoptimizeRequest) (model.Route, []string, error) {
	r, err := e.Store.GetRoute(ctx, businessID, oldRouteID)
	if err != nil {
		return model.Route{}, nil, err
	}
	team, err := e.Store.FindTeam(ctx, businessID, r.TeamID)
	if err != nil {
		return model.Route{}, nil, err
	}
	var warnings []string
	var tasks []model.Task
	for _, s := range r.Stops {
		t, err := e.Store.GetTask(ctx, businessID, s.TaskID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("task %s: %v", s.TaskID, err))
			continue
		}
		if t.Status == model.TaskStatusCompleted || t.Status == model.TaskStatusCancelled {
			continue
		}
		tasks = append(tasks, t)
	}
	if len(tasks) == 0 {
		return model.Route{}, warnings, fmt.Errorf("route %s has no remaining work: %w", oldRouteID, model.ErrNoEligibleWork)
	}

	params := model.OptimizeParams{}
	if req.Params != nil {
		params = *req.Params
	}
	start := time.Now()
	res, err := e.Opt.Optimize(ctx, opt.Input{Date: r.Date, Tasks: tasks, Teams: []model.Team{team}, Params: params})
	procMs := time.Since(start).Milliseconds()
	metrics.OptimizationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Optimizations.WithLabelValues("error").Inc()
		return model.Route{}, warnings, err
	}
	if len(res.Proposals) == 0 {
		metrics.Optimizations.WithLabelValues("no_work").Inc()
		return model.Route{}, warnings, fmt.Errorf("no proposal for team %s: %w", team.ID, model.ErrNoEligibleWork)
	}
	routes := []model.Route{buildRoute(businessID, res.Proposals[0], procMs)}
	routes = e.Weather.Annotate(ctx, businessID, routes)
	warnings = append(warnings, e.persistPlan(ctx, businessID, routes)...)
	metrics.Optimizations.WithLabelValues("ok").Inc()
	e.Audit.Record(ctx, businessID, "route.reoptimized", map[string]any{
		"previousRouteId": oldRouteID,
		"routeId":         routes[0].RouteID,
		"teamId":          team.ID,
		"stops":           len(routes[0].Stops),
	})
	return routes[0], warnings, nil
}

// Validate checks a candidate team/task pairing against capacity, skill,
// equipment, distance, and time limits. Advisory only.
func (e *Engine) Validate(ctx context.Context, req model.ValidateRouteRequest) (model.ValidateResponse, error) {
	if req.TeamID == "" {
		return model.ValidateResponse{}, model.Invalid("teamId", "required")
	}
	if len(req.TaskIDs) == 0 {
		return model.ValidateResponse{}, model.Invalid("taskIds", "required")
	}
	team, err := e.Store.FindTeam(ctx, req.BusinessID, req.TeamID)
	if err != nil {
		return model.ValidateResponse{}, err
	}
	tasks, err := e.Store.GetTasksByIDs(ctx, req.BusinessID, req.TaskIDs)
	if err != nil {
		return model.ValidateResponse{}, err
	}
	violations := opt.Validate(team, tasks, opt.LimitsFor(team, req.Limits))
	e.Audit.Record(ctx, req.BusinessID, "route.validated", map[string]any{
		"teamId":     team.ID,
		"tasks":      len(tasks),
		"violations": len(violations),
	})
	return model.ValidateResponse{Success: true, Valid: opt.Valid(violations), Violations: violations}, nil
}

// Metrics prices a task sequence as given, optionally from a team's start
// point and fuel profile.
func (e *Engine) Metrics(ctx context.Context, req model.MetricsRequest) (model.MetricsResponse, error) {
	if len(req.TaskIDs) == 0 {
		return model.MetricsResponse{}, model.Invalid("taskIds", "required")
	}
	var team *model.Team
	if req.TeamID != "" {
		t, err := e.Store.FindTeam(ctx, req.BusinessID, req.TeamID)
		if err != nil {
			return model.MetricsResponse{}, err
		}
		team = &t
	}
	tasks, err := e.Store.GetTasksByIDs(ctx, req.BusinessID, req.TaskIDs)
	if err != nil {
		return model.MetricsResponse{}, err
	}
	return model.MetricsResponse{Success: true, Metrics: opt.CalcMetrics(ctx, e.Est, tasks, team)}, nil
}

// Stats aggregates live routes over the filtered period.
func (e *Engine) Stats(ctx context.Context, businessID string, f model.DateFilter) (model.RouteStats, error) {
	if businessID == "" {
		return model.RouteStats{}, model.Invalid("businessId", "required")
	}
	now := time.Now().UTC()
	from, to, err := f.Range(now)
	if err != nil {
		return model.RouteStats{}, err
	}
	stats, err := e.Store.RouteStats(ctx, businessID, from, to)
	if err != nil {
		return model.RouteStats{}, err
	}
	stats.Period = f.Label(now)
	return stats, nil
}

// WeatherAlerts surfaces active alerts from the weather collaborator. A
// degraded provider yields an empty list, never an error.
func (e *Engine) WeatherAlerts(ctx context.Context, businessID string) ([]model.WeatherAlert, error) {
	if businessID == "" {
		return nil, model.Invalid("businessId", "required")
	}
	return e.Weather.Alerts(ctx, businessID), nil
}
