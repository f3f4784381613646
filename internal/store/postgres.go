package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// Postgres is the durable store. Dates and timestamps are stored as ISO-8601
// text so range filters compare lexically, which keeps its behavior identical
// to the in-memory store. Nested documents (stops, progress tasks, updates,
// vehicle profiles) live in JSONB columns and are replaced whole on update.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies every .sql file in dir in name order. Migrations are
// written to be idempotent, so re-running the full set is safe.
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(b)); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
}

// Tasks

const taskCols = `id, COALESCE(name,''), lat, lng, COALESCE(address,''), scheduled_date, time_window, duration_min, priority,
	array_to_string(skills, ','), array_to_string(equipment, ','), status,
	COALESCE(assigned_team_id,''), COALESCE(assigned_route_id,''), COALESCE(assigned_at,''), COALESCE(completed_at,''),
	performance, created_at, updated_at`

func (p *Postgres) CreateTasks(ctx context.Context, businessID string, in []model.TaskIn) (int, int, []string, error) {
	now := nowRFC3339()
	created, skipped := 0, 0
	var errs []string
	for i, t := range in {
		id := t.ID
		if id == "" {
			id = "task_" + uuid.New().String()[:8]
		}
		task, err := normalizeTask(businessID, id, t, now)
		if err != nil {
			skipped++
			errs = append(errs, fmt.Sprintf("item %d: %v", i, err))
			continue
		}
		res, err := p.db.ExecContext(ctx, `INSERT INTO tasks
			(business_id, id, name, lat, lng, address, scheduled_date, time_window, duration_min, priority, skills, equipment, status, assigned_team_id, assigned_route_id, assigned_at, completed_at, performance, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
			ON CONFLICT (business_id, id) DO NOTHING`,
			businessID, task.ID, nullIfEmpty(task.Name), task.Location.Lat, task.Location.Lng, nullIfEmpty(task.Location.Address),
			task.ScheduledDate, jsonb(task.TimeWindow), task.EstimatedDuration, task.Priority,
			pqStringArray(task.RequiredSkills), pqStringArray(task.RequiredEquipment), task.Status,
			nullIfEmpty(task.AssignedTeamID), nullIfEmpty(task.AssignedRouteID), nullIfEmpty(task.AssignedAt), nullIfEmpty(task.CompletedAt),
			jsonb(task.Performance), task.CreatedAt, task.UpdatedAt)
		if err != nil {
			return created, skipped, errs, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			skipped++
			errs = append(errs, fmt.Sprintf("item %d: duplicate task id %s", i, id))
			continue
		}
		created++
	}
	return created, skipped, errs, nil
}

func (p *Postgres) GetTask(ctx context.Context, businessID, taskID string) (model.Task, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE business_id=$1 AND id=$2`, businessID, taskID)
	t, err := scanTask(businessID, row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, model.NotFound("task", taskID)
	}
	return t, err
}

func (p *Postgres) GetTasksByIDs(ctx context.Context, businessID string, ids []string) ([]model.Task, error) {
	if len(ids) == 0 {
		return []model.Task{}, nil
	}
	rows, err := p.db.QueryContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE business_id=$1 AND id = ANY($2)`, businessID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := map[string]model.Task{}
	for rows.Next() {
		t, err := scanTask(businessID, rows)
		if err != nil {
			return nil, err
		}
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			return nil, model.NotFound("task", id)
		}
		out = append(out, t)
	}
	return out, nil
}

func (p *Postgres) FindEligibleTasks(ctx context.Context, businessID, from, to string, teamIDs []string) ([]model.Task, error) {
	var rows *sql.Rows
	var err error
	if len(teamIDs) > 0 {
		rows, err = p.db.QueryContext(ctx, `SELECT `+taskCols+` FROM tasks
			WHERE business_id=$1 AND scheduled_date >= $2 AND scheduled_date <= $3
			AND (status='pending' OR (status='assigned' AND assigned_team_id = ANY($4)))
			ORDER BY created_at, id`, businessID, from, to, teamIDs)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT `+taskCols+` FROM tasks
			WHERE business_id=$1 AND scheduled_date >= $2 AND scheduled_date <= $3 AND status='pending'
			ORDER BY created_at, id`, businessID, from, to)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(businessID, rows)
}

func (p *Postgres) ListTasks(ctx context.Context, businessID, status, from, to string, limit int) ([]model.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + taskCols + ` FROM tasks WHERE business_id=$1`
	args := []any{businessID}
	if status != "" {
		args = append(args, status)
		q += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if from != "" {
		args = append(args, from)
		q += fmt.Sprintf(" AND scheduled_date >= $%d", len(args))
	}
	if to != "" {
		args = append(args, to)
		q += fmt.Sprintf(" AND scheduled_date <= $%d", len(args))
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d", len(args))
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(businessID, rows)
}

func (p *Postgres) UpdateTask(ctx context.Context, task model.Task) error {
	res, err := p.db.ExecContext(ctx, `UPDATE tasks SET
		name=$3, lat=$4, lng=$5, address=$6, scheduled_date=$7, time_window=$8, duration_min=$9, priority=$10,
		skills=$11, equipment=$12, status=$13, assigned_team_id=$14, assigned_route_id=$15, assigned_at=$16,
		completed_at=$17, performance=$18, updated_at=$19
		WHERE business_id=$1 AND id=$2`,
		task.BusinessID, task.ID, nullIfEmpty(task.Name), task.Location.Lat, task.Location.Lng, nullIfEmpty(task.Location.Address),
		task.ScheduledDate, jsonb(task.TimeWindow), task.EstimatedDuration, task.Priority,
		pqStringArray(task.RequiredSkills), pqStringArray(task.RequiredEquipment), task.Status,
		nullIfEmpty(task.AssignedTeamID), nullIfEmpty(task.AssignedRouteID), nullIfEmpty(task.AssignedAt),
		nullIfEmpty(task.CompletedAt), jsonb(task.Performance), nowRFC3339())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("task", task.ID)
	}
	return nil
}

func (p *Postgres) UpdateTaskAssignment(ctx context.Context, businessID, taskID, routeID, teamID, assignedAt string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE tasks SET assigned_route_id=$3, assigned_team_id=$4, assigned_at=$5, status='assigned', updated_at=$6
		WHERE business_id=$1 AND id=$2`,
		businessID, taskID, nullIfEmpty(routeID), nullIfEmpty(teamID), nullIfEmpty(assignedAt), nowRFC3339())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("task", taskID)
	}
	return nil
}

// Teams

const teamCols = `id, name, active, available_for_routing,
	array_to_string(aliases, ','), array_to_string(skills, ','), array_to_string(equipment, ','),
	max_daily_tasks, max_route_time_min, max_route_distance_km, working_hours, current_lat, current_lng, vehicle,
	created_at, updated_at`

func (p *Postgres) CreateTeams(ctx context.Context, businessID string, in []model.TeamIn) (int, int, []string, error) {
	now := nowRFC3339()
	created, skipped := 0, 0
	var errs []string
	for i, t := range in {
		id := t.ID
		if id == "" {
			id = "team_" + uuid.New().String()[:8]
		}
		team, err := normalizeTeam(businessID, id, t, now)
		if err != nil {
			skipped++
			errs = append(errs, fmt.Sprintf("item %d: %v", i, err))
			continue
		}
		var clat, clng any
		if team.CurrentLocation != nil {
			clat, clng = team.CurrentLocation.Lat, team.CurrentLocation.Lng
		}
		res, err := p.db.ExecContext(ctx, `INSERT INTO teams
			(business_id, id, name, active, available_for_routing, aliases, skills, equipment, max_daily_tasks, max_route_time_min, max_route_distance_km, working_hours, current_lat, current_lng, vehicle, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
			ON CONFLICT (business_id, id) DO NOTHING`,
			businessID, team.ID, team.Name, team.Active, team.AvailableForRouting,
			pqStringArray(team.Aliases), pqStringArray(team.Skills), pqStringArray(team.Equipment),
			team.MaxDailyTasks, team.MaxRouteTimeMinutes, team.MaxRouteDistanceKm,
			jsonb(team.WorkingHours), clat, clng, jsonb(team.Vehicle), team.CreatedAt, team.UpdatedAt)
		if err != nil {
			return created, skipped, errs, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			skipped++
			errs = append(errs, fmt.Sprintf("item %d: duplicate team id %s", i, id))
			continue
		}
		created++
	}
	return created, skipped, errs, nil
}

func (p *Postgres) GetTeams(ctx context.Context, businessID string) ([]model.Team, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+teamCols+` FROM teams WHERE business_id=$1 ORDER BY created_at, id`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Team{}
	for rows.Next() {
		t, err := scanTeam(businessID, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) FindTeam(ctx context.Context, businessID, idOrAlias string) (model.Team, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+teamCols+` FROM teams
		WHERE business_id=$1 AND (id=$2 OR $2 = ANY(COALESCE(aliases,'{}')))
		ORDER BY created_at LIMIT 1`, businessID, idOrAlias)
	t, err := scanTeam(businessID, row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Team{}, model.NotFound("team", idOrAlias)
	}
	return t, err
}

// Routes

const routeCols = `route_id, business_id, team_id, COALESCE(team_name,''), route_date, status, stops,
	est_total_time_min, actual_total_time_min, est_distance_km, est_fuel_cost, optimization_score,
	optimization, weather, created_at, updated_at, COALESCE(deleted_at,'')`

func (p *Postgres) CreateRoute(ctx context.Context, r model.Route) error {
	now := nowRFC3339()
	if r.CreatedAt == "" {
		r.CreatedAt = now
	}
	res, err := p.db.ExecContext(ctx, `INSERT INTO routes
		(route_id, business_id, team_id, team_name, route_date, status, stops, est_total_time_min, actual_total_time_min, est_distance_km, est_fuel_cost, optimization_score, optimization, weather, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (route_id) DO NOTHING`,
		r.RouteID, r.BusinessID, r.TeamID, nullIfEmpty(r.TeamName), r.Date, r.Status, jsonb(r.Stops),
		r.EstimatedTotalTimeMinutes, r.ActualTotalTimeMinutes, r.EstimatedDistanceKm, r.EstimatedFuelCost,
		r.OptimizationScore, jsonb(r.Optimization), jsonb(r.Weather), r.CreatedAt, now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("route %s already exists", r.RouteID)
	}
	return nil
}

func (p *Postgres) GetRoute(ctx context.Context, businessID, routeID string) (model.Route, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+routeCols+` FROM routes
		WHERE business_id=$1 AND route_id=$2 AND deleted_at IS NULL`, businessID, routeID)
	r, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Route{}, model.NotFound("route", routeID)
	}
	return r, err
}

func (p *Postgres) ListRoutes(ctx context.Context, businessID, from, to string) ([]model.Route, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+routeCols+` FROM routes
		WHERE business_id=$1 AND deleted_at IS NULL AND route_date >= $2 AND route_date <= $3
		ORDER BY route_date, created_at`, businessID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Route{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateRoute(ctx context.Context, r model.Route) error {
	res, err := p.db.ExecContext(ctx, `UPDATE routes SET
		team_id=$3, team_name=$4, route_date=$5, status=$6, stops=$7, est_total_time_min=$8, actual_total_time_min=$9,
		est_distance_km=$10, est_fuel_cost=$11, optimization_score=$12, optimization=$13, weather=$14, updated_at=$15
		WHERE business_id=$1 AND route_id=$2 AND deleted_at IS NULL`,
		r.BusinessID, r.RouteID, r.TeamID, nullIfEmpty(r.TeamName), r.Date, r.Status, jsonb(r.Stops),
		r.EstimatedTotalTimeMinutes, r.ActualTotalTimeMinutes, r.EstimatedDistanceKm, r.EstimatedFuelCost,
		r.OptimizationScore, jsonb(r.Optimization), jsonb(r.Weather), nowRFC3339())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("route", r.RouteID)
	}
	return nil
}

func (p *Postgres) SoftDeleteRoute(ctx context.Context, businessID, routeID, deletedAt string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE routes SET deleted_at=$3, status=$4, updated_at=$5
		WHERE business_id=$1 AND route_id=$2 AND deleted_at IS NULL`,
		businessID, routeID, deletedAt, model.RouteStatusCancelled, nowRFC3339())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("route", routeID)
	}
	return nil
}

func (p *Postgres) FindRouteForTeamDate(ctx context.Context, businessID, teamID, date string) (model.Route, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+routeCols+` FROM routes
		WHERE business_id=$1 AND team_id=$2 AND route_date=$3 AND deleted_at IS NULL
		ORDER BY created_at LIMIT 1`, businessID, teamID, date)
	r, err := scanRoute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Route{}, model.NotFound("route", teamID+"@"+date)
	}
	return r, err
}

// Route progress

const progressCols = `id, business_id, team_id, COALESCE(team_name,''), COALESCE(route_id,''), route_date, status, tasks,
	current_task_index, completed_tasks_count, COALESCE(route_start_time,''), COALESCE(route_end_time,''),
	total_actual_duration_min, updates, performance, created_at, updated_at, COALESCE(deleted_at,'')`

func (p *Postgres) CreateProgress(ctx context.Context, pr model.RouteProgress) error {
	if pr.ID == "" {
		pr.ID = uuid.New().String()
	}
	now := nowRFC3339()
	if pr.CreatedAt == "" {
		pr.CreatedAt = now
	}
	res, err := p.db.ExecContext(ctx, `INSERT INTO route_progress
		(id, business_id, team_id, team_name, route_id, route_date, status, tasks, current_task_index, completed_tasks_count, route_start_time, route_end_time, total_actual_duration_min, updates, performance, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		ON CONFLICT (business_id, team_id, route_date) WHERE deleted_at IS NULL DO NOTHING`,
		pr.ID, pr.BusinessID, pr.TeamID, nullIfEmpty(pr.TeamName), nullIfEmpty(pr.RouteID), pr.RouteDate, pr.Status,
		jsonb(pr.Tasks), pr.CurrentTaskIndex, pr.CompletedTasksCount, nullIfEmpty(pr.RouteStartTime), nullIfEmpty(pr.RouteEndTime),
		pr.TotalActualDurationMinutes, jsonb(pr.Updates), jsonb(pr.Performance), pr.CreatedAt, now)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("route progress already exists for team %s on %s", pr.TeamID, pr.RouteDate)
	}
	return nil
}

func (p *Postgres) GetProgressByTeamDate(ctx context.Context, businessID, teamID, date string) (model.RouteProgress, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+progressCols+` FROM route_progress
		WHERE business_id=$1 AND team_id=$2 AND route_date=$3 AND deleted_at IS NULL`, businessID, teamID, date)
	pr, err := scanProgress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RouteProgress{}, model.NotFound("route progress", teamID+"@"+date)
	}
	return pr, err
}

func (p *Postgres) ListProgress(ctx context.Context, businessID, teamID, from, to string) ([]model.RouteProgress, error) {
	q := `SELECT ` + progressCols + ` FROM route_progress
		WHERE business_id=$1 AND deleted_at IS NULL AND route_date >= $2 AND route_date <= $3`
	args := []any{businessID, from, to}
	if teamID != "" {
		args = append(args, teamID)
		q += fmt.Sprintf(" AND team_id=$%d", len(args))
	}
	q += " ORDER BY route_date, created_at"
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RouteProgress{}
	for rows.Next() {
		pr, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateProgress(ctx context.Context, pr model.RouteProgress) error {
	res, err := p.db.ExecContext(ctx, `UPDATE route_progress SET
		team_name=$3, route_id=$4, route_date=$5, status=$6, tasks=$7, current_task_index=$8, completed_tasks_count=$9,
		route_start_time=$10, route_end_time=$11, total_actual_duration_min=$12, updates=$13, performance=$14, updated_at=$15
		WHERE business_id=$1 AND id=$2 AND deleted_at IS NULL`,
		pr.BusinessID, pr.ID, nullIfEmpty(pr.TeamName), nullIfEmpty(pr.RouteID), pr.RouteDate, pr.Status,
		jsonb(pr.Tasks), pr.CurrentTaskIndex, pr.CompletedTasksCount, nullIfEmpty(pr.RouteStartTime), nullIfEmpty(pr.RouteEndTime),
		pr.TotalActualDurationMinutes, jsonb(pr.Updates), jsonb(pr.Performance), nowRFC3339())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("route progress", pr.ID)
	}
	return nil
}

func (p *Postgres) SoftDeleteProgress(ctx context.Context, businessID, progressID, deletedAt string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE route_progress SET deleted_at=$3, updated_at=$4
		WHERE business_id=$1 AND id=$2 AND deleted_at IS NULL`,
		businessID, progressID, deletedAt, nowRFC3339())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("route progress", progressID)
	}
	return nil
}

// Stats

func (p *Postgres) RouteStats(ctx context.Context, businessID, from, to string) (model.RouteStats, error) {
	stats := model.RouteStats{BusinessID: businessID, RoutesByStatus: map[string]int{}}
	var stops, completed int64
	var scoreSum float64
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*),
		COALESCE(SUM(jsonb_array_length(stops)),0),
		COALESCE(SUM((SELECT COUNT(*) FROM jsonb_array_elements(stops) s WHERE s->>'status'='completed')),0),
		COALESCE(SUM(est_distance_km),0), COALESCE(SUM(est_total_time_min),0), COALESCE(SUM(est_fuel_cost),0),
		COALESCE(SUM(optimization_score),0)
		FROM routes WHERE business_id=$1 AND deleted_at IS NULL AND route_date >= $2 AND route_date <= $3`,
		businessID, from, to).Scan(&stats.TotalRoutes, &stops, &completed,
		&stats.TotalDistanceKm, &stats.TotalEstimatedTimeMinutes, &stats.TotalFuelCost, &scoreSum)
	if err != nil {
		return stats, err
	}
	stats.TotalStops = int(stops)
	stats.CompletedStops = int(completed)
	rows, err := p.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM routes
		WHERE business_id=$1 AND deleted_at IS NULL AND route_date >= $2 AND route_date <= $3
		GROUP BY status`, businessID, from, to)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, err
		}
		stats.RoutesByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return stats, err
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

func (p *Postgres) EnqueueAudit(ctx context.Context, d AuditDelivery) (string, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := nowRFC3339()
	if d.NextAttemptAt == "" {
		d.NextAttemptAt = now
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO audit_deliveries
		(id, business_id, action, payload, status, attempts, next_attempt_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,'pending',0,$5,$6,$7)`,
		d.ID, d.BusinessID, d.Action, d.Payload, d.NextAttemptAt, now, now)
	if err != nil {
		return "", err
	}
	return d.ID, nil
}

func (p *Postgres) FetchDueAuditDeliveries(ctx context.Context, limit int) ([]AuditDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `SELECT id, business_id, action, payload, status, attempts, next_attempt_at, COALESCE(last_error,''), response_code, created_at, updated_at
		FROM audit_deliveries WHERE status='pending' AND next_attempt_at <= $1
		ORDER BY next_attempt_at LIMIT $2`, nowRFC3339(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []AuditDelivery{}
	for rows.Next() {
		var d AuditDelivery
		if err := rows.Scan(&d.ID, &d.BusinessID, &d.Action, &d.Payload, &d.Status, &d.Attempts, &d.NextAttemptAt, &d.LastError, &d.ResponseCode, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkAuditDelivery(ctx context.Context, id string, success bool, nextAttemptAt, lastError string, responseCode, latencyMs int) error {
	var res sql.Result
	var err error
	if success {
		res, err = p.db.ExecContext(ctx, `UPDATE audit_deliveries SET attempts=attempts+1, status='delivered', last_error=$2, response_code=$3, latency_ms=$4, updated_at=$5 WHERE id=$1`,
			id, nullIfEmpty(lastError), responseCode, latencyMs, nowRFC3339())
	} else {
		res, err = p.db.ExecContext(ctx, `UPDATE audit_deliveries SET attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4, next_attempt_at=$5, updated_at=$6 WHERE id=$1`,
			id, nullIfEmpty(lastError), responseCode, latencyMs, nextAttemptAt, nowRFC3339())
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("audit delivery", id)
	}
	return nil
}

func (p *Postgres) FailAuditDelivery(ctx context.Context, id, lastError string, responseCode, latencyMs int) error {
	res, err := p.db.ExecContext(ctx, `UPDATE audit_deliveries SET attempts=attempts+1, status='dlq', last_error=$2, response_code=$3, latency_ms=$4, updated_at=$5 WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs, nowRFC3339())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("audit delivery", id)
	}
	return nil
}

// Scan helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(businessID string, rs rowScanner) (model.Task, error) {
	var t model.Task
	var skills, equipment sql.NullString
	var twB, perfB []byte
	err := rs.Scan(&t.ID, &t.Name, &t.Location.Lat, &t.Location.Lng, &t.Location.Address, &t.ScheduledDate,
		&twB, &t.EstimatedDuration, &t.Priority, &skills, &equipment, &t.Status,
		&t.AssignedTeamID, &t.AssignedRouteID, &t.AssignedAt, &t.CompletedAt, &perfB, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}
	t.BusinessID = businessID
	t.RequiredSkills = splitCSV(skills)
	t.RequiredEquipment = splitCSV(equipment)
	t.TimeWindow = decodePtr[model.TimeWindow](twB)
	t.Performance = decodePtr[model.ActualPerformance](perfB)
	return t, nil
}

func collectTasks(businessID string, rows *sql.Rows) ([]model.Task, error) {
	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(businessID, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTeam(businessID string, rs rowScanner) (model.Team, error) {
	var t model.Team
	var aliases, skills, equipment sql.NullString
	var whB, vehB []byte
	var clat, clng sql.NullFloat64
	err := rs.Scan(&t.ID, &t.Name, &t.Active, &t.AvailableForRouting, &aliases, &skills, &equipment,
		&t.MaxDailyTasks, &t.MaxRouteTimeMinutes, &t.MaxRouteDistanceKm, &whB, &clat, &clng, &vehB,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Team{}, err
	}
	t.BusinessID = businessID
	t.Aliases = splitCSV(aliases)
	t.Skills = splitCSV(skills)
	t.Equipment = splitCSV(equipment)
	if clat.Valid && clng.Valid {
		t.CurrentLocation = &model.GeoPoint{Lat: clat.Float64, Lng: clng.Float64}
	}
	t.WorkingHours = decodePtr[model.WorkingHours](whB)
	t.Vehicle = decodePtr[model.Vehicle](vehB)
	return t, nil
}

func scanRoute(rs rowScanner) (model.Route, error) {
	var r model.Route
	var stopsB, optB, wxB []byte
	err := rs.Scan(&r.RouteID, &r.BusinessID, &r.TeamID, &r.TeamName, &r.Date, &r.Status, &stopsB,
		&r.EstimatedTotalTimeMinutes, &r.ActualTotalTimeMinutes, &r.EstimatedDistanceKm, &r.EstimatedFuelCost,
		&r.OptimizationScore, &optB, &wxB, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt)
	if err != nil {
		return model.Route{}, err
	}
	r.Stops = decodeSlice[model.RouteStop](stopsB)
	r.Optimization = decodePtr[model.Optimization](optB)
	r.Weather = decodePtr[model.WeatherSummary](wxB)
	return r, nil
}

func scanProgress(rs rowScanner) (model.RouteProgress, error) {
	var pr model.RouteProgress
	var tasksB, updatesB, perfB []byte
	err := rs.Scan(&pr.ID, &pr.BusinessID, &pr.TeamID, &pr.TeamName, &pr.RouteID, &pr.RouteDate, &pr.Status,
		&tasksB, &pr.CurrentTaskIndex, &pr.CompletedTasksCount, &pr.RouteStartTime, &pr.RouteEndTime,
		&pr.TotalActualDurationMinutes, &updatesB, &perfB, &pr.CreatedAt, &pr.UpdatedAt, &pr.DeletedAt)
	if err != nil {
		return model.RouteProgress{}, err
	}
	pr.Tasks = decodeSlice[model.ProgressTask](tasksB)
	pr.Updates = decodeSlice[model.ProgressUpdate](updatesB)
	pr.Performance = decodePtr[model.ProgressPerformance](perfB)
	return pr, nil
}

// Helpers

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// pqStringArray passes nil for empty slices so TEXT[] columns stay NULL; the
// driver encodes non-empty []string natively.
func pqStringArray(v []string) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

// jsonb marshals v for a JSONB column. Nil pointers marshal to the JSON
// literal null, which the decode helpers below treat as absent.
func jsonb(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func decodePtr[T any](b []byte) *T {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	return &v
}

func decodeSlice[T any](b []byte) []T {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var v []T
	_ = json.Unmarshal(b, &v)
	return v
}

func splitCSV(s sql.NullString) []string {
	if !s.Valid || s.String == "" {
		return nil
	}
	return strings.Split(s.String, ",")
}
