package store

import (
	"context"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// Store is the persistence interface used by the API server and the
// routing engine. It doubles as the task-pool and team-registry stand-in.
// Route and progress writes are value-based: the full document, embedded
// arrays included, replaces the stored one.
type Store interface {
	// Tasks (task-pool stand-in)
	CreateTasks(ctx context.Context, businessID string, in []model.TaskIn) (created, skipped int, errs []string, err error)
	GetTask(ctx context.Context, businessID, taskID string) (model.Task, error)
	GetTasksByIDs(ctx context.Context, businessID string, ids []string) ([]model.Task, error)
	FindEligibleTasks(ctx context.Context, businessID, from, to string, teamIDs []string) ([]model.Task, error)
	ListTasks(ctx context.Context, businessID, status, from, to string, limit int) ([]model.Task, error)
	UpdateTask(ctx context.Context, task model.Task) error
	UpdateTaskAssignment(ctx context.Context, businessID, taskID, routeID, teamID, assignedAt string) error

	// Teams (capability-registry stand-in)
	CreateTeams(ctx context.Context, businessID string, in []model.TeamIn) (created, skipped int, errs []string, err error)
	GetTeams(ctx context.Context, businessID string) ([]model.Team, error)
	FindTeam(ctx context.Context, businessID, idOrAlias string) (model.Team, error)

	// Routes
	CreateRoute(ctx context.Context, r model.Route) error
	GetRoute(ctx context.Context, businessID, routeID string) (model.Route, error)
	ListRoutes(ctx context.Context, businessID, from, to string) ([]model.Route, error)
	UpdateRoute(ctx context.Context, r model.Route) error
	SoftDeleteRoute(ctx context.Context, businessID, routeID, deletedAt string) error
	FindRouteForTeamDate(ctx context.Context, businessID, teamID, date string) (model.Route, error)

	// Route progress
	CreateProgress(ctx context.Context, p model.RouteProgress) error
	GetProgressByTeamDate(ctx context.Context, businessID, teamID, date string) (model.RouteProgress, error)
	ListProgress(ctx context.Context, businessID, teamID, from, to string) ([]model.RouteProgress, error)
	UpdateProgress(ctx context.Context, p model.RouteProgress) error
	SoftDeleteProgress(ctx context.Context, businessID, progressID, deletedAt string) error

	// Stats
	RouteStats(ctx context.Context, businessID, from, to string) (model.RouteStats, error)

	// Audit deliveries
	EnqueueAudit(ctx context.Context, d AuditDelivery) (string, error)
	FetchDueAuditDeliveries(ctx context.Context, limit int) ([]AuditDelivery, error)
	MarkAuditDelivery(ctx context.Context, id string, success bool, nextAttemptAt, lastError string, responseCode, latencyMs int) error
	FailAuditDelivery(ctx context.Context, id, lastError string, responseCode, latencyMs int) error

	// Health
	Ping(ctx context.Context) error
}

// ErrNotFound aliases the model sentinel so store callers can keep the
// conventional errors.Is(err, store.ErrNotFound) check.
var ErrNotFound = model.ErrNotFound
