package store

import (
	"context"
	"errors"
	"testing"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

func taskIn(id, date string) model.TaskIn {
	return model.TaskIn{
		ID:            id,
		Name:          "task " + id,
		Location:      model.Location{Lat: 41.32, Lng: 19.81},
		ScheduledDate: date,
		Priority:      model.PriorityMedium,
	}
}

func TestCreateTasksDefaultsAndSkips(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	in := []model.TaskIn{
		taskIn("t1", "2026-03-02"),
		taskIn("t1", "2026-03-02"),                    // duplicate id
		{ID: "t2", Location: model.Location{Lat: 1}},  // missing date
		{ID: "t3", Location: model.Location{Lat: 95}}, // bad latitude
		{ID: "t4", Location: model.Location{Lat: 1}, ScheduledDate: "2026-03-02", Priority: "asap"},
		{ID: "t5", Location: model.Location{Lat: 1}, ScheduledDate: "2026-03-02"},
	}
	created, skipped, errs, err := m.CreateTasks(ctx, "biz_1", in)
	if err != nil {
		t.Fatalf("CreateTasks: %v", err)
	}
	if created != 2 || skipped != 4 {
		t.Fatalf("counts: want 2/4, got %d/%d", created, skipped)
	}
	if len(errs) != 4 {
		t.Fatalf("errors: want 4, got %v", errs)
	}

	got, err := m.GetTask(ctx, "biz_1", "t5")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != model.TaskStatusPending {
		t.Fatalf("status: got %s", got.Status)
	}
	if got.Priority != model.PriorityMedium {
		t.Fatalf("default priority: got %s", got.Priority)
	}
	if got.EstimatedDuration != defaultTaskDurationMin {
		t.Fatalf("default duration: got %d", got.EstimatedDuration)
	}
}

func TestCreateTasksGeneratesIDs(t *testing.T) {
	m := NewMemory()
	in := []model.TaskIn{{Location: model.Location{Lat: 1, Lng: 1}, ScheduledDate: "2026-03-02"}}
	created, _, _, err := m.CreateTasks(context.Background(), "biz_1", in)
	if err != nil || created != 1 {
		t.Fatalf("create: %d, %v", created, err)
	}
	tasks, err := m.ListTasks(context.Background(), "biz_1", "", "", "", 0)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("list: %v, %v", tasks, err)
	}
	if tasks[0].ID == "" {
		t.Fatalf("generated id missing")
	}
}

func TestGetTaskNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.GetTask(context.Background(), "biz_1", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	var nf *model.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "task" {
		t.Fatalf("want task NotFoundError, got %v", err)
	}
}

func TestGetTasksByIDsMissingOne(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.CreateTasks(ctx, "biz_1", []model.TaskIn{taskIn("t1", "2026-03-02")})
	if _, err := m.GetTasksByIDs(ctx, "biz_1", []string{"t1", "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	out, err := m.GetTasksByIDs(ctx, "biz_1", []string{"t1"})
	if err != nil || len(out) != 1 {
		t.Fatalf("got %v, %v", out, err)
	}
}

func TestFindEligibleTasks(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.CreateTasks(ctx, "biz_1", []model.TaskIn{
		taskIn("pending_in", "2026-03-02"),
		taskIn("pending_out", "2026-04-01"),
		taskIn("assigned_mine", "2026-03-02"),
		taskIn("assigned_other", "2026-03-02"),
		taskIn("done", "2026-03-02"),
	})
	m.UpdateTaskAssignment(ctx, "biz_1", "assigned_mine", "rt_1", "tm_1", "2026-03-01T08:00:00Z")
	m.UpdateTaskAssignment(ctx, "biz_1", "assigned_other", "rt_2", "tm_9", "2026-03-01T08:00:00Z")
	done, _ := m.GetTask(ctx, "biz_1", "done")
	done.Status = model.TaskStatusCompleted
	m.UpdateTask(ctx, done)

	// Without team scope only pending tasks in range match.
	out, err := m.FindEligibleTasks(ctx, "biz_1", "2026-03-01", "2026-03-31", nil)
	if err != nil {
		t.Fatalf("FindEligibleTasks: %v", err)
	}
	if len(out) != 1 || out[0].ID != "pending_in" {
		t.Fatalf("unscoped: got %v", ids(out))
	}

	// Scoped to tm_1, its own assigned tasks are eligible again.
	out, err = m.FindEligibleTasks(ctx, "biz_1", "2026-03-01", "2026-03-31", []string{"tm_1"})
	if err != nil {
		t.Fatalf("FindEligibleTasks scoped: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("scoped: got %v", ids(out))
	}
}

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestListTasksFilters(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.CreateTasks(ctx, "biz_1", []model.TaskIn{
		taskIn("t1", "2026-03-01"),
		taskIn("t2", "2026-03-02"),
		taskIn("t3", "2026-03-03"),
	})
	m.UpdateTaskAssignment(ctx, "biz_1", "t2", "rt_1", "tm_1", "2026-03-01T08:00:00Z")

	out, _ := m.ListTasks(ctx, "biz_1", model.TaskStatusPending, "", "", 0)
	if len(out) != 2 {
		t.Fatalf("status filter: got %v", ids(out))
	}
	out, _ = m.ListTasks(ctx, "biz_1", "", "2026-03-02", "2026-03-03", 0)
	if len(out) != 2 {
		t.Fatalf("range filter: got %v", ids(out))
	}
	out, _ = m.ListTasks(ctx, "biz_1", "", "", "", 1)
	if len(out) != 1 {
		t.Fatalf("limit: got %v", ids(out))
	}
	out, _ = m.ListTasks(ctx, "biz_other", "", "", "", 0)
	if len(out) != 0 {
		t.Fatalf("foreign business: got %v", ids(out))
	}
}

func TestCreateTeamsAndFindTeam(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	created, skipped, errs, err := m.CreateTeams(ctx, "biz_1", []model.TeamIn{
		{ID: "tm_1", Name: "North Crew", Aliases: []string{"crew-north"}, Skills: []string{"hvac"}},
		{ID: "tm_2"}, // missing name
		{ID: "tm_3", Name: "Bad Shift", WorkingHours: &model.WorkingHours{Start: "18:00", End: "09:00"}},
	})
	if err != nil {
		t.Fatalf("CreateTeams: %v", err)
	}
	if created != 1 || skipped != 2 || len(errs) != 2 {
		t.Fatalf("counts: %d/%d errs=%v", created, skipped, errs)
	}

	byID, err := m.FindTeam(ctx, "biz_1", "tm_1")
	if err != nil || byID.ID != "tm_1" {
		t.Fatalf("find by id: %v, %v", byID, err)
	}
	byAlias, err := m.FindTeam(ctx, "biz_1", "crew-north")
	if err != nil || byAlias.ID != "tm_1" {
		t.Fatalf("find by alias: %v, %v", byAlias, err)
	}
	if !byID.Active || !byID.AvailableForRouting {
		t.Fatalf("defaults not applied: %+v", byID)
	}
	if _, err := m.FindTeam(ctx, "biz_1", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRouteLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	r := model.Route{
		RouteID:    "rt_1",
		BusinessID: "biz_1",
		TeamID:     "tm_1",
		Date:       "2026-03-02",
		Status:     model.RouteStatusOptimized,
		Stops: []model.RouteStop{
			{TaskID: "t1", SequenceNumber: 1, Status: model.StopStatusPending},
		},
	}
	if err := m.CreateRoute(ctx, r); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	if err := m.CreateRoute(ctx, r); err == nil {
		t.Fatalf("duplicate route accepted")
	}

	got, err := m.GetRoute(ctx, "biz_1", "rt_1")
	if err != nil || got.CreatedAt == "" {
		t.Fatalf("GetRoute: %v, %v", got, err)
	}
	if _, err := m.GetRoute(ctx, "biz_other", "rt_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-business read allowed: %v", err)
	}

	found, err := m.FindRouteForTeamDate(ctx, "biz_1", "tm_1", "2026-03-02")
	if err != nil || found.RouteID != "rt_1" {
		t.Fatalf("FindRouteForTeamDate: %v, %v", found, err)
	}

	got.Status = model.RouteStatusAssigned
	got.CreatedAt = "tampered"
	if err := m.UpdateRoute(ctx, got); err != nil {
		t.Fatalf("UpdateRoute: %v", err)
	}
	after, _ := m.GetRoute(ctx, "biz_1", "rt_1")
	if after.Status != model.RouteStatusAssigned {
		t.Fatalf("update lost: %s", after.Status)
	}
	if after.CreatedAt == "tampered" {
		t.Fatalf("CreatedAt should be preserved by the store")
	}

	if err := m.SoftDeleteRoute(ctx, "biz_1", "rt_1", "2026-03-02T12:00:00Z"); err != nil {
		t.Fatalf("SoftDeleteRoute: %v", err)
	}
	if _, err := m.GetRoute(ctx, "biz_1", "rt_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("soft-deleted route still readable")
	}
	if err := m.SoftDeleteRoute(ctx, "biz_1", "rt_1", "2026-03-02T13:00:00Z"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: want ErrNotFound, got %v", err)
	}
	routes, _ := m.ListRoutes(ctx, "biz_1", "2026-03-01", "2026-03-31")
	if len(routes) != 0 {
		t.Fatalf("deleted route listed: %v", routes)
	}
}

func TestListRoutesOrdered(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.CreateRoute(ctx, model.Route{RouteID: "rt_b", BusinessID: "biz_1", TeamID: "tm", Date: "2026-03-05"})
	m.CreateRoute(ctx, model.Route{RouteID: "rt_a", BusinessID: "biz_1", TeamID: "tm", Date: "2026-03-02"})
	out, err := m.ListRoutes(ctx, "biz_1", "2026-03-01", "2026-03-31")
	if err != nil || len(out) != 2 {
		t.Fatalf("ListRoutes: %v, %v", out, err)
	}
	if out[0].RouteID != "rt_a" || out[1].RouteID != "rt_b" {
		t.Fatalf("order: got %s, %s", out[0].RouteID, out[1].RouteID)
	}
}

func TestProgressLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	p := model.RouteProgress{
		BusinessID: "biz_1",
		TeamID:     "tm_1",
		RouteID:    "rt_1",
		RouteDate:  "2026-03-02",
		Status:     model.ProgressStatusPending,
		Tasks: []model.ProgressTask{
			{TaskID: "t1", ScheduledOrder: 1, Status: model.ProgressStatusPending},
		},
	}
	if err := m.CreateProgress(ctx, p); err != nil {
		t.Fatalf("CreateProgress: %v", err)
	}
	if err := m.CreateProgress(ctx, p); err == nil {
		t.Fatalf("duplicate team/date progress accepted")
	}

	got, err := m.GetProgressByTeamDate(ctx, "biz_1", "tm_1", "2026-03-02")
	if err != nil {
		t.Fatalf("GetProgressByTeamDate: %v", err)
	}
	if got.ID == "" {
		t.Fatalf("progress id not generated")
	}

	got.Status = model.ProgressStatusInProgress
	got.Tasks[0].Status = model.ProgressStatusCompleted
	if err := m.UpdateProgress(ctx, got); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	after, _ := m.GetProgressByTeamDate(ctx, "biz_1", "tm_1", "2026-03-02")
	if after.Status != model.ProgressStatusInProgress || after.Tasks[0].Status != model.ProgressStatusCompleted {
		t.Fatalf("update lost: %+v", after)
	}

	if err := m.SoftDeleteProgress(ctx, "biz_1", got.ID, "2026-03-02T12:00:00Z"); err != nil {
		t.Fatalf("SoftDeleteProgress: %v", err)
	}
	if _, err := m.GetProgressByTeamDate(ctx, "biz_1", "tm_1", "2026-03-02"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("soft-deleted progress still readable")
	}
	// A fresh document for the same team/date is allowed after soft delete.
	if err := m.CreateProgress(ctx, p); err != nil {
		t.Fatalf("recreate after soft delete: %v", err)
	}
}

func TestListProgressScope(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.CreateProgress(ctx, model.RouteProgress{BusinessID: "biz_1", TeamID: "tm_1", RouteID: "rt_1", RouteDate: "2026-03-02"})
	m.CreateProgress(ctx, model.RouteProgress{BusinessID: "biz_1", TeamID: "tm_2", RouteID: "rt_2", RouteDate: "2026-03-02"})
	m.CreateProgress(ctx, model.RouteProgress{BusinessID: "biz_1", TeamID: "tm_1", RouteID: "rt_3", RouteDate: "2026-04-02"})

	all, _ := m.ListProgress(ctx, "biz_1", "", "2026-03-01", "2026-03-31")
	if len(all) != 2 {
		t.Fatalf("unscoped march: got %d", len(all))
	}
	mine, _ := m.ListProgress(ctx, "biz_1", "tm_1", "2026-03-01", "2026-03-31")
	if len(mine) != 1 || mine[0].TeamID != "tm_1" {
		t.Fatalf("team scoped: got %+v", mine)
	}
}

func TestRouteStatsMath(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.CreateRoute(ctx, model.Route{
		RouteID: "rt_1", BusinessID: "biz_1", TeamID: "tm_1", Date: "2026-03-02",
		Status: model.RouteStatusCompleted,
		Stops: []model.RouteStop{
			{TaskID: "a", Status: model.StopStatusCompleted},
			{TaskID: "b", Status: model.StopStatusCompleted},
		},
		EstimatedDistanceKm:       20.5,
		EstimatedTotalTimeMinutes: 120,
		EstimatedFuelCost:         4.1,
		OptimizationScore:         90,
	})
	m.CreateRoute(ctx, model.Route{
		RouteID: "rt_2", BusinessID: "biz_1", TeamID: "tm_2", Date: "2026-03-03",
		Status: model.RouteStatusAssigned,
		Stops: []model.RouteStop{
			{TaskID: "c", Status: model.StopStatusCompleted},
			{TaskID: "d", Status: model.StopStatusPending},
		},
	})
	stats, err := m.RouteStats(ctx, "biz_1", "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("RouteStats: %v", err)
	}
	if stats.TotalRoutes != 2 || stats.TotalStops != 4 || stats.CompletedStops != 3 {
		t.Fatalf("counts: %+v", stats)
	}
	if stats.RoutesByStatus[model.RouteStatusCompleted] != 1 || stats.RoutesByStatus[model.RouteStatusAssigned] != 1 {
		t.Fatalf("by status: %+v", stats.RoutesByStatus)
	}
	if stats.CompletionRate != 0.75 {
		t.Fatalf("completion rate: got %v", stats.CompletionRate)
	}
	if stats.AvgStopsPerRoute != 2 {
		t.Fatalf("avg stops: got %v", stats.AvgStopsPerRoute)
	}
}

func TestAuditQueue(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, err := m.EnqueueAudit(ctx, AuditDelivery{BusinessID: "biz_1", Action: "route.optimized", Payload: []byte(`{}`)})
	if err != nil || id == "" {
		t.Fatalf("EnqueueAudit: %q, %v", id, err)
	}

	due, err := m.FetchDueAuditDeliveries(ctx, 10)
	if err != nil || len(due) != 1 {
		t.Fatalf("FetchDue: %v, %v", due, err)
	}
	if due[0].Status != AuditStatusPending {
		t.Fatalf("status: %s", due[0].Status)
	}

	if err := m.MarkAuditDelivery(ctx, id, true, "", "", 200, 12); err != nil {
		t.Fatalf("MarkAuditDelivery: %v", err)
	}
	due, _ = m.FetchDueAuditDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("delivered item still due: %v", due)
	}

	id2, _ := m.EnqueueAudit(ctx, AuditDelivery{BusinessID: "biz_1", Action: "route.deleted", Payload: []byte(`{}`)})
	if err := m.FailAuditDelivery(ctx, id2, "boom", 500, 8); err != nil {
		t.Fatalf("FailAuditDelivery: %v", err)
	}
	due, _ = m.FetchDueAuditDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("dlq item still due: %v", due)
	}
}

func TestCloneIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.CreateTeams(ctx, "biz_1", []model.TeamIn{{ID: "tm_1", Name: "Crew", Skills: []string{"hvac"}}})
	got, _ := m.FindTeam(ctx, "biz_1", "tm_1")
	got.Skills[0] = "mutated"
	again, _ := m.FindTeam(ctx, "biz_1", "tm_1")
	if again.Skills[0] != "hvac" {
		t.Fatalf("store shared backing array with caller: %v", again.Skills)
	}
}
