package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/buildinfo"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// TasksHandler handles POST/GET /v1/tasks. POST is the task-pool import:
// per-item validation failures are skipped and reported, never fatal.
func (s *Server) TasksHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			BusinessID string         `json:"businessId"`
			Tasks      []model.TaskIn `json:"tasks"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.BusinessID == "" {
			req.BusinessID = businessID(r)
		}
		if req.BusinessID == "" {
			writeProblem(w, http.StatusBadRequest, "Invalid Request", "businessId required", r.URL.Path)
			return
		}
		created, skipped, errs, err := s.Store.CreateTasks(r.Context(), req.BusinessID, req.Tasks)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"success": true, "created": created, "skipped": skipped, "errors": errs,
		})
	case http.MethodGet:
		biz := businessID(r)
		if biz == "" {
			writeProblem(w, http.StatusBadRequest, "Invalid Request", "businessId required", r.URL.Path)
			return
		}
		f := model.DateFilter{Date: r.URL.Query().Get("date"), Month: r.URL.Query().Get("month")}
		from, to, err := f.Range(time.Now().UTC())
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		tasks, err := s.Store.ListTasks(r.Context(), biz, r.URL.Query().Get("status"), from, to, limit)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "tasks": tasks, "count": len(tasks)})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// TeamsHandler handles POST/GET /v1/teams, the capability-registry
// stand-in.
func (s *Server) TeamsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			BusinessID string         `json:"businessId"`
			Teams      []model.TeamIn `json:"teams"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.BusinessID == "" {
			req.BusinessID = businessID(r)
		}
		if req.BusinessID == "" {
			writeProblem(w, http.StatusBadRequest, "Invalid Request", "businessId required", r.URL.Path)
			return
		}
		created, skipped, errs, err := s.Store.CreateTeams(r.Context(), req.BusinessID, req.Teams)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"success": true, "created": created, "skipped": skipped, "errors": errs,
		})
	case http.MethodGet:
		biz := businessID(r)
		if biz == "" {
			writeProblem(w, http.StatusBadRequest, "Invalid Request", "businessId required", r.URL.Path)
			return
		}
		teams, err := s.Store.GetTeams(r.Context(), biz)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "teams": teams, "count": len(teams)})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// OptimizeHandler handles POST /v1/optimize.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = businessID(r)
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	resp, err := s.Engine.Optimize(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	for _, rt := range resp.Routes {
		s.Broker.Publish(progressTopic(rt.BusinessID, rt.TeamID, rt.Date), StreamEvent{
			Type: "route.optimized",
			Data: map[string]any{
				"routeId": rt.RouteID,
				"teamId":  rt.TeamID,
				"date":    rt.Date,
				"stops":   len(rt.Stops),
				"ts":      time.Now().UTC().Format(time.RFC3339),
			},
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// RoutesHandler handles GET /v1/routes.
func (s *Server) RoutesHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/routes" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	biz := businessID(r)
	if biz == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "businessId required", r.URL.Path)
		return
	}
	f := model.DateFilter{Date: r.URL.Query().Get("date"), Month: r.URL.Query().Get("month")}
	routes, err := s.Engine.GetRoutes(r.Context(), biz, f)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "routes": routes, "count": len(routes)})
}

// RouteByIDHandler handles GET/DELETE /v1/routes/{routeId} plus the
// /assign and /reoptimize subresources.
func (s *Server) RouteByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/routes/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing route id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	routeID := parts[0]
	biz := businessID(r)

	if len(parts) > 1 && parts[1] == "assign" {
		s.assignRoute(w, r, biz, routeID)
		return
	}
	if len(parts) > 1 && parts[1] == "reoptimize" {
		s.reoptimizeRoute(w, r, biz, routeID)
		return
	}
	if len(parts) > 1 {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}

	if biz == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "businessId required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		route, err := s.Engine.GetRoute(r.Context(), biz, routeID)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "route": route})
	case http.MethodDelete:
		route, err := s.Engine.GetRoute(r.Context(), biz, routeID)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		ack, err := s.Engine.CancelRoute(r.Context(), biz, routeID)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		s.Broker.Publish(progressTopic(biz, route.TeamID, route.Date), StreamEvent{
			Type: "route.cancelled",
			Data: map[string]any{"routeId": routeID, "teamId": route.TeamID, "date": route.Date,
				"ts": time.Now().UTC().Format(time.RFC3339)},
		})
		writeJSON(w, http.StatusOK, ack)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) assignRoute(w http.ResponseWriter, r *http.Request, biz, routeID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.AssignRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = biz
	}
	ack, err := s.Engine.AssignRoute(r.Context(), req.BusinessID, routeID, req)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if route, err := s.Engine.GetRoute(r.Context(), req.BusinessID, routeID); err == nil {
		s.Broker.Publish(progressTopic(req.BusinessID, route.TeamID, route.Date), StreamEvent{
			Type: "route.assigned",
			Data: map[string]any{"routeId": routeID, "teamId": route.TeamID, "date": route.Date,
				"ts": time.Now().UTC().Format(time.RFC3339)},
		})
	}
	writeJSON(w, http.StatusOK, ack)
}

func (s *Server) reoptimizeRoute(w http.ResponseWriter, r *http.Request, biz, routeID string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.ReoptimizeRequest
	if r.Body != nil {
		// body is optional
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.BusinessID == "" {
		req.BusinessID = biz
	}
	if req.BusinessID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "businessId required", r.URL.Path)
		return
	}
	route, warnings, err := s.Engine.Reoptimize(r.Context(), req.BusinessID, routeID, req)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	s.Broker.Publish(progressTopic(req.BusinessID, route.TeamID, route.Date), StreamEvent{
		Type: "route.reoptimized",
		Data: map[string]any{"previousRouteId": routeID, "routeId": route.RouteID,
			"teamId": route.TeamID, "date": route.Date, "stops": len(route.Stops),
			"ts": time.Now().UTC().Format(time.RFC3339)},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "route": route, "warnings": warnings,
	})
}

// RouteStatsHandler handles GET /v1/routes/stats.
func (s *Server) RouteStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	biz := businessID(r)
	if biz == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "businessId required", r.URL.Path)
		return
	}
	f := model.DateFilter{Date: r.URL.Query().Get("date"), Month: r.URL.Query().Get("month")}
	stats, err := s.Engine.Stats(r.Context(), biz, f)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

// ValidateRouteHandler handles POST /v1/routes/validate.
func (s *Server) ValidateRouteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.ValidateRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = businessID(r)
	}
	resp, err := s.Engine.Validate(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RouteMetricsHandler handles POST /v1/routes/metrics.
func (s *Server) RouteMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.MetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = businessID(r)
	}
	resp, err := s.Engine.Metrics(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ProgressEventsHandler handles POST /v1/progress/events: the tracker entry
// point. Successful events fan out to stream subscribers and refresh the
// team location cache.
func (s *Server) ProgressEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.ProgressEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if req.BusinessID == "" {
		req.BusinessID = businessID(r)
	}
	ack, prog, err := s.Engine.ApplyProgressEvent(r.Context(), req)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if req.Location != nil {
		s.Locations.Upsert(prog.BusinessID, prog.TeamID, *req.Location, time.Now().UTC().Format(time.RFC3339))
	}
	s.publishProgress(req, prog)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  ack.Success,
		"message":  ack.Message,
		"warnings": ack.Warnings,
		"progress": prog,
	})
}

func (s *Server) publishProgress(req model.ProgressEventRequest, prog model.RouteProgress) {
	topic := progressTopic(prog.BusinessID, prog.TeamID, prog.RouteDate)
	ts := time.Now().UTC().Format(time.RFC3339)
	data := map[string]any{
		"teamId":              prog.TeamID,
		"date":                prog.RouteDate,
		"taskId":              req.TaskID,
		"event":               req.Event,
		"completedTasksCount": prog.CompletedTasksCount,
		"totalTasks":          len(prog.Tasks),
		"status":              prog.Status,
		"ts":                  ts,
	}
	if req.Location != nil {
		data["location"] = req.Location
	}
	s.Broker.Publish(topic, StreamEvent{Type: "progress." + req.Event, Data: data})
	if req.Event == model.EventCompleted && prog.Status == model.ProgressStatusCompleted {
		s.Broker.Publish(topic, StreamEvent{Type: "route.completed", Data: map[string]any{
			"teamId":                     prog.TeamID,
			"date":                       prog.RouteDate,
			"routeId":                    prog.RouteID,
			"totalActualDurationMinutes": prog.TotalActualDurationMinutes,
			"ts":                         ts,
		}})
	}
}

// ProgressHandler handles GET /v1/progress.
func (s *Server) ProgressHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/progress" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	biz := businessID(r)
	teamRef := r.URL.Query().Get("teamId")
	f := model.DateFilter{Date: r.URL.Query().Get("date"), Month: r.URL.Query().Get("month")}
	progresses, team, err := s.Engine.GetProgress(r.Context(), biz, teamRef, f)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ProgressSnapshot{
		Success:        true,
		TeamID:         team.ID,
		Progresses:     progresses,
		LatestLocation: s.Locations.Latest(biz, team.ID),
	})
}

// WeatherAlertsHandler handles GET /v1/weather/alerts.
func (s *Server) WeatherAlertsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	biz := businessID(r)
	if biz == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Request", "businessId required", r.URL.Path)
		return
	}
	alerts, err := s.Engine.WeatherAlerts(r.Context(), biz)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "alerts": alerts, "count": len(alerts)})
}

// HealthHandler reports liveness plus build information.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

// ReadyHandler reports readiness; with the Postgres store this pings the
// database.
func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
