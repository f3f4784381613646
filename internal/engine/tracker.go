package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/metrics"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// ApplyProgressEvent applies one stop-level lifecycle event. The Task is
// mutated first and is authoritative; the Route and RouteProgress mirrors
// are best-effort, and their failures surface as warnings on a successful
// ack. Updates for the same team and date are serialized through the locker
// so completedTasksCount never loses increments.
func (e *Engine) ApplyProgressEvent(ctx context.Context, req model.ProgressEventRequest) (model.Ack, model.RouteProgress, error) {
	if req.BusinessID == "" {
		return model.Ack{}, model.RouteProgress{}, model.Invalid("businessId", "required")
	}
	if req.TeamID == "" {
		return model.Ack{}, model.RouteProgress{}, model.Invalid("teamId", "required")
	}
	if req.TaskID == "" {
		return model.Ack{}, model.RouteProgress{}, model.Invalid("taskId", "required")
	}
	if !model.ValidProgressEvent(req.Event) {
		return model.Ack{}, model.RouteProgress{}, model.Invalid("event", "want one of started, arrived, completed, paused")
	}
	if req.Location != nil && !validCoords(req.Location.Lat, req.Location.Lng) {
		return model.Ack{}, model.RouteProgress{}, model.Invalid("location", "coordinates out of range")
	}

	outcome := "error"
	defer func() { metrics.ProgressEvents.WithLabelValues(req.Event, outcome).Inc() }()

	team, err := e.Store.FindTeam(ctx, req.BusinessID, req.TeamID)
	if err != nil {
		return model.Ack{}, model.RouteProgress{}, err
	}
	task, err := e.Store.GetTask(ctx, req.BusinessID, req.TaskID)
	if err != nil {
		return model.Ack{}, model.RouteProgress{}, err
	}
	date := task.ScheduledDate

	release, err := e.Locks.Acquire(ctx, fmt.Sprintf("progress:%s:%s:%s", req.BusinessID, team.ID, date), progressLockTTL)
	if err != nil {
		return model.Ack{}, model.RouteProgress{}, err
	}
	defer release()

	prog, err := e.Store.GetProgressByTeamDate(ctx, req.BusinessID, team.ID, date)
	if err != nil {
		return model.Ack{}, model.RouteProgress{}, err
	}
	idx := -1
	for i := range prog.Tasks {
		if prog.Tasks[i].TaskID == req.TaskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Ack{}, model.RouteProgress{}, model.NotFound("progress task", req.TaskID)
	}

	// Reapplying started/completed to a finished stop is a no-op, not an
	// error: crews double-tap.
	if prog.Tasks[idx].Status == model.ProgressStatusCompleted &&
		(req.Event == model.EventStarted || req.Event == model.EventCompleted) {
		outcome = "noop"
		return model.Ack{Success: true, Message: fmt.Sprintf("task %s already completed", req.TaskID)}, prog, nil
	}

	now := time.Now().UTC()
	nowS := now.Format(time.RFC3339)

	// Task first: it is the source of truth for whether the work happened.
	actualDuration := 0
	switch req.Event {
	case model.EventStarted:
		task.Status = model.TaskStatusInProgress
		if task.Performance == nil {
			task.Performance = &model.ActualPerformance{}
		}
		if task.Performance.StartTime == "" {
			task.Performance.StartTime = nowS
		}
		if err := e.Store.UpdateTask(ctx, task); err != nil {
			return model.Ack{}, model.RouteProgress{}, fmt.Errorf("task update failed: %w", err)
		}
	case model.EventCompleted:
		task.Status = model.TaskStatusCompleted
		task.CompletedAt = nowS
		if task.Performance == nil {
			task.Performance = &model.ActualPerformance{}
		}
		task.Performance.EndTime = nowS
		if m, ok := minutesSince(task.Performance.StartTime, now); ok {
			actualDuration = m
		} else {
			actualDuration = task.EstimatedDuration
		}
		task.Performance.ActualDuration = actualDuration
		if err := e.Store.UpdateTask(ctx, task); err != nil {
			return model.Ack{}, model.RouteProgress{}, fmt.Errorf("task update failed: %w", err)
		}
	case model.EventArrived, model.EventPaused:
		// Advisory signals: logged, never a Task status transition.
	}

	var warnings []string
	applyToProgress(&prog, idx, req, nowS, actualDuration)
	if err := e.Store.UpdateProgress(ctx, prog); err != nil {
		warnings = append(warnings, fmt.Sprintf("progress update failed: %v", err))
		log.WithFields(log.Fields{"team": team.ID, "date": date, "task": req.TaskID}).WithError(err).Warn("progress mirror update failed")
	}
	if task.AssignedRouteID != "" {
		if warn := e.mirrorToRoute(ctx, req.BusinessID, task.AssignedRouteID, req, nowS, prog.TotalActualDurationMinutes); warn != "" {
			warnings = append(warnings, warn)
			log.WithFields(log.Fields{"route": task.AssignedRouteID, "task": req.TaskID}).Warn(warn)
		}
	}

	e.Audit.Record(ctx, req.BusinessID, "route.progress", map[string]any{
		"teamId": team.ID,
		"taskId": req.TaskID,
		"event":  req.Event,
		"date":   date,
	})
	outcome = "ok"
	return model.Ack{
		Success:  true,
		Message:  fmt.Sprintf("event %s applied to task %s", req.Event, req.TaskID),
		Warnings: warnings,
	}, prog, nil
}

// applyToProgress folds one event into the tracking document: the touched
// task entry, the append-only update log, the counters, and route-level
// status, which moves to completed exactly when every task is completed and
// never moves back.
func applyToProgress(prog *model.RouteProgress, idx int, req model.ProgressEventRequest, nowS string, actualDuration int) {
	entry := &prog.Tasks[idx]
	switch req.Event {
	case model.EventStarted:
		entry.Status = model.ProgressStatusInProgress
		if entry.ActualStart == "" {
			entry.ActualStart = nowS
		}
		if prog.RouteStartTime == "" {
			prog.RouteStartTime = nowS
		}
		if prog.Status == model.ProgressStatusPending {
			prog.Status = model.ProgressStatusInProgress
		}
		prog.CurrentTaskIndex = idx
	case model.EventCompleted:
		entry.Status = model.ProgressStatusCompleted
		entry.ActualEnd = nowS
		entry.ActualDurationMinutes = actualDuration
	}
	prog.Updates = append(prog.Updates, model.ProgressUpdate{
		ID:       uuid.New().String(),
		TS:       nowS,
		Status:   req.Event,
		TaskID:   req.TaskID,
		Location: req.Location,
		Note:     req.Note,
	})
	prog.CompletedTasksCount = prog.CountCompleted()
	if req.Event == model.EventCompleted {
		prog.CurrentTaskIndex = nextOpenTask(prog.Tasks, idx)
		if prog.CompletedTasksCount == len(prog.Tasks) && len(prog.Tasks) > 0 {
			prog.Status = model.ProgressStatusCompleted
			if prog.RouteEndTime == "" {
				prog.RouteEndTime = nowS
			}
			prog.TotalActualDurationMinutes = totalActualMinutes(prog)
			prog.Performance = &model.ProgressPerformance{
				EfficiencyPercent: efficiencyPercent(estimatedTotalMinutes(prog), prog.TotalActualDurationMinutes),
			}
		}
	}
}

// mirrorToRoute reflects the event onto the persisted plan. Returns a
// warning string instead of an error: the plan is a tracking view here.
func (e *Engine) mirrorToRoute(ctx context.Context, businessID, routeID string, req model.ProgressEventRequest, nowS string, totalActual int) string {
	r, err := e.Store.GetRoute(ctx, businessID, routeID)
	if err != nil {
		return fmt.Sprintf("route mirror unavailable: %v", err)
	}
	idx := -1
	for i := range r.Stops {
		if r.Stops[i].TaskID == req.TaskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Sprintf("route %s has no stop for task %s", routeID, req.TaskID)
	}
	stop := &r.Stops[idx]
	switch req.Event {
	case model.EventStarted:
		stop.Status = model.StopStatusInService
		if stop.ActualArrival == "" {
			stop.ActualArrival = nowS
		}
		switch r.Status {
		case model.RouteStatusDraft, model.RouteStatusOptimized, model.RouteStatusAssigned:
			r.Status = model.RouteStatusInProgress
		}
	case model.EventArrived:
		if stop.ActualArrival == "" {
			stop.ActualArrival = nowS
		}
	case model.EventCompleted:
		stop.Status = model.StopStatusCompleted
		stop.ActualDeparture = nowS
		if r.Status != model.RouteStatusCompleted && allStopsCompleted(r.Stops) {
			r.Status = model.RouteStatusCompleted
			r.ActualTotalTimeMinutes = totalActual
		}
	case model.EventPaused:
		// Log-only signal; the stop keeps its status.
		return ""
	}
	if err := e.Store.UpdateRoute(ctx, r); err != nil {
		return fmt.Sprintf("route mirror update failed: %v", err)
	}
	return ""
}

// GetProgress resolves the team (alias-aware) and lists its tracking
// documents over the filtered period.
func (e *Engine) GetProgress(ctx context.Context, businessID, teamID string, f model.DateFilter) ([]model.RouteProgress, model.Team, error) {
	if businessID == "" {
		return nil, model.Team{}, model.Invalid("businessId", "required")
	}
	if teamID == "" {
		return nil, model.Team{}, model.Invalid("teamId", "required")
	}
	team, err := e.Store.FindTeam(ctx, businessID, teamID)
	if err != nil {
		return nil, model.Team{}, err
	}
	from, to, err := f.Range(time.Now().UTC())
	if err != nil {
		return nil, model.Team{}, err
	}
	progresses, err := e.Store.ListProgress(ctx, businessID, team.ID, from, to)
	if err != nil {
		return nil, model.Team{}, err
	}
	return progresses, team, nil
}

func nextOpenTask(tasks []model.ProgressTask, fallback int) int {
	for i := range tasks {
		if tasks[i].Status != model.ProgressStatusCompleted {
			return i
		}
	}
	return fallback
}

func allStopsCompleted(stops []model.RouteStop) bool {
	for i := range stops {
		if stops[i].Status != model.StopStatusCompleted && stops[i].Status != model.StopStatusSkipped {
			return false
		}
	}
	return len(stops) > 0
}

// totalActualMinutes prefers wall clock from route start to end, falling
// back to the sum of per-task durations when the start was never stamped.
func totalActualMinutes(prog *model.RouteProgress) int {
	if prog.RouteStartTime != "" && prog.RouteEndTime != "" {
		start, err1 := time.Parse(time.RFC3339, prog.RouteStartTime)
		end, err2 := time.Parse(time.RFC3339, prog.RouteEndTime)
		if err1 == nil && err2 == nil && !end.Before(start) {
			return int(end.Sub(start).Minutes())
		}
	}
	sum := 0
	for i := range prog.Tasks {
		sum += prog.Tasks[i].ActualDurationMinutes
	}
	return sum
}

func estimatedTotalMinutes(prog *model.RouteProgress) int {
	sum := 0
	for i := range prog.Tasks {
		sum += prog.Tasks[i].EstimatedDurationMinutes
	}
	return sum
}

// efficiencyPercent compares estimated to actual service time, capped to
// [0, 200] so a freakishly fast route does not skew dashboards. Unknown
// totals read as neutral 100.
func efficiencyPercent(estimated, actual int) int {
	if estimated <= 0 || actual <= 0 {
		return 100
	}
	pct := int(math.Round(float64(estimated) / float64(actual) * 100.0))
	if pct > 200 {
		pct = 200
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}
