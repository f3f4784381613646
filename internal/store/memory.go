package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu        sync.Mutex
	tasks     map[string]model.Task // businessID|taskID -> task
	taskOrder map[string][]string   // businessID -> task ids in insertion order
	teams     map[string]model.Team // businessID|teamID -> team
	teamOrder map[string][]string   // businessID -> team ids in insertion order
	routes    map[string]model.Route
	routesBiz map[string][]string // businessID -> route ids
	progress  map[string]model.RouteProgress
	progBiz   map[string][]string // businessID -> progress ids
	audits    map[string]*AuditDelivery
	auditSeq  []string // audit ids in enqueue order
	seq       int
}

func NewMemory() *Memory {
	return &Memory{
		tasks:     map[string]model.Task{},
		taskOrder: map[string][]string{},
		teams:     map[string]model.Team{},
		teamOrder: map[string][]string{},
		routes:    map[string]model.Route{},
		routesBiz: map[string][]string{},
		progress:  map[string]model.RouteProgress{},
		progBiz:   map[string][]string{},
		audits:    map[string]*AuditDelivery{},
	}
}

func key(businessID, id string) string { return businessID + "|" + id }

// Tasks

func (m *Memory) CreateTasks(ctx context.Context, businessID string, in []model.TaskIn) (int, int, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := nowRFC3339()
	created, skipped := 0, 0
	var errs []string
	for i, t := range in {
		id := t.ID
		if id == "" {
			m.seq++
			id = fmt.Sprintf("task_%06d", m.seq)
		}
		k := key(businessID, id)
		if _, exists := m.tasks[k]; exists {
			skipped++
			errs = append(errs, fmt.Sprintf("item %d: duplicate task id %s", i, id))
			continue
		}
		task, err := normalizeTask(businessID, id, t, now)
		if err != nil {
			skipped++
			errs = append(errs, fmt.Sprintf("item %d: %v", i, err))
			continue
		}
		m.tasks[k] = task
		m.taskOrder[businessID] = append(m.taskOrder[businessID], id)
		created++
	}
	return created, skipped, errs, nil
}

func (m *Memory) GetTask(ctx context.Context, businessID, taskID string) (model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[key(businessID, taskID)]
	if !ok {
		return model.Task{}, model.NotFound("task", taskID)
	}
	return cloneTask(t), nil
}

func (m *Memory) GetTasksByIDs(ctx context.Context, businessID string, ids []string) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := m.tasks[key(businessID, id)]
		if !ok {
			return nil, model.NotFound("task", id)
		}
		out = append(out, cloneTask(t))
	}
	return out, nil
}

func (m *Memory) FindEligibleTasks(ctx context.Context, businessID, from, to string, teamIDs []string) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := map[string]bool{}
	for _, id := range teamIDs {
		allowed[id] = true
	}
	var out []model.Task
	for _, id := range m.taskOrder[businessID] {
		t := m.tasks[key(businessID, id)]
		if t.ScheduledDate < from || t.ScheduledDate > to {
			continue
		}
		switch {
		case t.Status == model.TaskStatusPending:
		case t.Status == model.TaskStatusAssigned && len(teamIDs) > 0 && allowed[t.AssignedTeamID]:
		default:
			continue
		}
		out = append(out, cloneTask(t))
	}
	return out, nil
}

func (m *Memory) ListTasks(ctx context.Context, businessID, status, from, to string, limit int) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := []model.Task{}
	for _, id := range m.taskOrder[businessID] {
		t := m.tasks[key(businessID, id)]
		if status != "" && t.Status != status {
			continue
		}
		if from != "" && t.ScheduledDate < from {
			continue
		}
		if to != "" && t.ScheduledDate > to {
			continue
		}
		out = append(out, cloneTask(t))
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) UpdateTask(ctx context.Context, task model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(task.BusinessID, task.ID)
	if _, ok := m.tasks[k]; !ok {
		return model.NotFound("task", task.ID)
	}
	task.UpdatedAt = nowRFC3339()
	m.tasks[k] = cloneTask(task)
	return nil
}

func (m *Memory) UpdateTaskAssignment(ctx context.Context, businessID, taskID, routeID, teamID, assignedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(businessID, taskID)
	t, ok := m.tasks[k]
	if !ok {
		return model.NotFound("task", taskID)
	}
	t.AssignedRouteID = routeID
	t.AssignedTeamID = teamID
	t.AssignedAt = assignedAt
	t.Status = model.TaskStatusAssigned
	t.UpdatedAt = nowRFC3339()
	m.tasks[k] = t
	return nil
}

// Teams

func (m *Memory) CreateTeams(ctx context.Context, businessID string, in []model.TeamIn) (int, int, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := nowRFC3339()
	created, skipped := 0, 0
	var errs []string
	for i, t := range in {
		id := t.ID
		if id == "" {
			m.seq++
			id = fmt.Sprintf("team_%06d", m.seq)
		}
		k := key(businessID, id)
		if _, exists := m.teams[k]; exists {
			skipped++
			errs = append(errs, fmt.Sprintf("item %d: duplicate team id %s", i, id))
			continue
		}
		team, err := normalizeTeam(businessID, id, t, now)
		if err != nil {
			skipped++
			errs = append(errs, fmt.Sprintf("item %d: %v", i, err))
			continue
		}
		m.teams[k] = team
		m.teamOrder[businessID] = append(m.teamOrder[businessID], id)
		created++
	}
	return created, skipped, errs, nil
}

func (m *Memory) GetTeams(ctx context.Context, businessID string) ([]model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Team{}
	for _, id := range m.teamOrder[businessID] {
		out = append(out, cloneTeam(m.teams[key(businessID, id)]))
	}
	return out, nil
}

func (m *Memory) FindTeam(ctx context.Context, businessID, idOrAlias string) (model.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.teamOrder[businessID] {
		t := m.teams[key(businessID, id)]
		if t.MatchesID(idOrAlias) {
			return cloneTeam(t), nil
		}
	}
	return model.Team{}, model.NotFound("team", idOrAlias)
}

// Routes

func (m *Memory) CreateRoute(ctx context.Context, r model.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.routes[r.RouteID]; exists {
		return fmt.Errorf("route %s already exists", r.RouteID)
	}
	now := nowRFC3339()
	if r.CreatedAt == "" {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	m.routes[r.RouteID] = cloneRoute(r)
	m.routesBiz[r.BusinessID] = append(m.routesBiz[r.BusinessID], r.RouteID)
	return nil
}

func (m *Memory) GetRoute(ctx context.Context, businessID, routeID string) (model.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[routeID]
	if !ok || r.BusinessID != businessID || r.DeletedAt != "" {
		return model.Route{}, model.NotFound("route", routeID)
	}
	return cloneRoute(r), nil
}

func (m *Memory) ListRoutes(ctx context.Context, businessID, from, to string) ([]model.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Route{}
	for _, id := range m.routesBiz[businessID] {
		r := m.routes[id]
		if r.DeletedAt != "" || r.Date < from || r.Date > to {
			continue
		}
		out = append(out, cloneRoute(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

func (m *Memory) UpdateRoute(ctx context.Context, r model.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.routes[r.RouteID]
	if !ok || cur.BusinessID != r.BusinessID || cur.DeletedAt != "" {
		return model.NotFound("route", r.RouteID)
	}
	r.CreatedAt = cur.CreatedAt
	r.UpdatedAt = nowRFC3339()
	m.routes[r.RouteID] = cloneRoute(r)
	return nil
}

func (m *Memory) SoftDeleteRoute(ctx context.Context, businessID, routeID, deletedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[routeID]
	if !ok || r.BusinessID != businessID || r.DeletedAt != "" {
		return model.NotFound("route", routeID)
	}
	r.DeletedAt = deletedAt
	r.Status = model.RouteStatusCancelled
	r.UpdatedAt = nowRFC3339()
	m.routes[routeID] = r
	return nil
}

func (m *Memory) FindRouteForTeamDate(ctx context.Context, businessID, teamID, date string) (model.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.routesBiz[businessID] {
		r := m.routes[id]
		if r.DeletedAt == "" && r.TeamID == teamID && r.Date == date {
			return cloneRoute(r), nil
		}
	}
	return model.Route{}, model.NotFound("route", teamID+"@"+date)
}

// Route progress

func (m *Memory) CreateProgress(ctx context.Context, p model.RouteProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.progBiz[p.BusinessID] {
		cur := m.progress[id]
		if cur.DeletedAt == "" && cur.TeamID == p.TeamID && cur.RouteDate == p.RouteDate {
			return fmt.Errorf("route progress already exists for team %s on %s", p.TeamID, p.RouteDate)
		}
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := nowRFC3339()
	if p.CreatedAt == "" {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.progress[p.ID] = cloneProgress(p)
	m.progBiz[p.BusinessID] = append(m.progBiz[p.BusinessID], p.ID)
	return nil
}

func (m *Memory) GetProgressByTeamDate(ctx context.Context, businessID, teamID, date string) (model.RouteProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.progBiz[businessID] {
		p := m.progress[id]
		if p.DeletedAt == "" && p.TeamID == teamID && p.RouteDate == date {
			return cloneProgress(p), nil
		}
	}
	return model.RouteProgress{}, model.NotFound("route progress", teamID+"@"+date)
}

func (m *Memory) ListProgress(ctx context.Context, businessID, teamID, from, to string) ([]model.RouteProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.RouteProgress{}
	for _, id := range m.progBiz[businessID] {
		p := m.progress[id]
		if p.DeletedAt != "" || p.RouteDate < from || p.RouteDate > to {
			continue
		}
		if teamID != "" && p.TeamID != teamID {
			continue
		}
		out = append(out, cloneProgress(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RouteDate != out[j].RouteDate {
			return out[i].RouteDate < out[j].RouteDate
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

func (m *Memory) UpdateProgress(ctx context.Context, p model.RouteProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.progress[p.ID]
	if !ok || cur.BusinessID != p.BusinessID || cur.DeletedAt != "" {
		return model.NotFound("route progress", p.ID)
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = nowRFC3339()
	m.progress[p.ID] = cloneProgress(p)
	return nil
}

func (m *Memory) SoftDeleteProgress(ctx context.Context, businessID, progressID, deletedAt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.progress[progressID]
	if !ok || p.BusinessID != businessID || p.DeletedAt != "" {
		return model.NotFound("route progress", progressID)
	}
	p.DeletedAt = deletedAt
	p.UpdatedAt = nowRFC3339()
	m.progress[progressID] = p
	return nil
}

// Stats

func (m *Memory) RouteStats(ctx context.Context, businessID, from, to string) (model.RouteStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := model.RouteStats{BusinessID: businessID, RoutesByStatus: map[string]int{}}
	scoreSum := 0.0
	for _, id := range m.routesBiz[businessID] {
		r := m.routes[id]
		if r.DeletedAt != "" || r.Date < from || r.Date > to {
			continue
		}
		stats.TotalRoutes++
		stats.RoutesByStatus[r.Status]++
		stats.TotalStops += len(r.Stops)
		for _, s := range r.Stops {
			if s.Status == model.StopStatusCompleted {
				stats.CompletedStops++
			}
		}
		stats.TotalDistanceKm += r.EstimatedDistanceKm
		stats.TotalEstimatedTimeMinutes += r.EstimatedTotalTimeMinutes
		stats.TotalFuelCost += r.EstimatedFuelCost
		scoreSum += r.OptimizationScore
	}
	if stats.TotalStops > 0 {
		stats.CompletionRate = round2(float64(stats.CompletedStops) / float64(stats.TotalStops))
	}
	if stats.TotalRoutes > 0 {
		stats.AvgOptimizationScore = round2(scoreSum / float64(stats.TotalRoutes))
		stats.AvgStopsPerRoute = round2(float64(stats.TotalStops) / float64(stats.TotalRoutes))
	}
	stats.TotalDistanceKm = round2(stats.TotalDistanceKm)
	stats.TotalFuelCost = round2(stats.TotalFuelCost)
	return stats, nil
}

// Audit deliveries

func (m *Memory) EnqueueAudit(ctx context.Context, d AuditDelivery) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := nowRFC3339()
	d.Status = AuditStatusPending
	if d.NextAttemptAt == "" {
		d.NextAttemptAt = now
	}
	d.CreatedAt, d.UpdatedAt = now, now
	m.audits[d.ID] = &d
	m.auditSeq = append(m.auditSeq, d.ID)
	return d.ID, nil
}

func (m *Memory) FetchDueAuditDeliveries(ctx context.Context, limit int) ([]AuditDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	now := nowRFC3339()
	out := []AuditDelivery{}
	for _, id := range m.auditSeq {
		a := m.audits[id]
		if a.Status != AuditStatusPending || a.NextAttemptAt > now {
			continue
		}
		out = append(out, *a)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkAuditDelivery(ctx context.Context, id string, success bool, nextAttemptAt, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.audits[id]
	if !ok {
		return model.NotFound("audit delivery", id)
	}
	a.Attempts++
	a.LastError = lastError
	a.ResponseCode = responseCode
	a.UpdatedAt = nowRFC3339()
	if success {
		a.Status = AuditStatusDelivered
	} else {
		a.NextAttemptAt = nextAttemptAt
	}
	return nil
}

func (m *Memory) FailAuditDelivery(ctx context.Context, id, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.audits[id]
	if !ok {
		return model.NotFound("audit delivery", id)
	}
	a.Attempts++
	a.Status = AuditStatusDLQ
	a.LastError = lastError
	a.ResponseCode = responseCode
	a.UpdatedAt = nowRFC3339()
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// Clone helpers keep callers from sharing backing arrays with the store.

func cloneTask(t model.Task) model.Task {
	t.RequiredSkills = append([]string(nil), t.RequiredSkills...)
	t.RequiredEquipment = append([]string(nil), t.RequiredEquipment...)
	if t.TimeWindow != nil {
		w := *t.TimeWindow
		t.TimeWindow = &w
	}
	if t.Performance != nil {
		p := *t.Performance
		p.Delays = append([]model.TaskDelay(nil), p.Delays...)
		t.Performance = &p
	}
	return t
}

func cloneTeam(t model.Team) model.Team {
	t.Aliases = append([]string(nil), t.Aliases...)
	t.Skills = append([]string(nil), t.Skills...)
	t.Equipment = append([]string(nil), t.Equipment...)
	if t.WorkingHours != nil {
		w := *t.WorkingHours
		t.WorkingHours = &w
	}
	if t.CurrentLocation != nil {
		l := *t.CurrentLocation
		t.CurrentLocation = &l
	}
	if t.Vehicle != nil {
		v := *t.Vehicle
		t.Vehicle = &v
	}
	return t
}

func cloneRoute(r model.Route) model.Route {
	r.Stops = append([]model.RouteStop(nil), r.Stops...)
	if r.Optimization != nil {
		o := *r.Optimization
		o.ConstraintsUsed = append([]string(nil), o.ConstraintsUsed...)
		r.Optimization = &o
	}
	if r.Weather != nil {
		w := *r.Weather
		w.Warnings = append([]string(nil), w.Warnings...)
		w.EquipmentRecommendations = append([]string(nil), w.EquipmentRecommendations...)
		r.Weather = &w
	}
	return r
}

func cloneProgress(p model.RouteProgress) model.RouteProgress {
	p.Tasks = append([]model.ProgressTask(nil), p.Tasks...)
	p.Updates = append([]model.ProgressUpdate(nil), p.Updates...)
	if p.Performance != nil {
		perf := *p.Performance
		p.Performance = &perf
	}
	return p
}
