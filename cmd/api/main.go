package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/api"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/config"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/logging"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/metrics"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using environment variables")
	}
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	srv, err := api.NewServer(cfg)
	if err != nil {
		log.Fatalf("init server: %v", err)
	}

	mux := http.NewServeMux()

	// Task pool and team registry stand-ins
	mux.HandleFunc("/v1/tasks", srv.TasksHandler)
	mux.HandleFunc("/v1/teams", srv.TeamsHandler)

	// Optimization
	mux.HandleFunc("/v1/optimize", srv.OptimizeHandler)

	// Routes
	mux.HandleFunc("/v1/routes", srv.RoutesHandler)
	mux.HandleFunc("/v1/routes/", srv.RouteByIDHandler) // includes /assign, /reoptimize
	mux.HandleFunc("/v1/routes/stats", srv.RouteStatsHandler)
	mux.HandleFunc("/v1/routes/validate", srv.ValidateRouteHandler)
	mux.HandleFunc("/v1/routes/metrics", srv.RouteMetricsHandler)

	// Progress tracking
	mux.HandleFunc("/v1/progress/events", srv.ProgressEventsHandler)
	mux.HandleFunc("/v1/progress", srv.ProgressHandler)
	mux.HandleFunc("/v1/progress/stream", srv.ProgressStreamHandler)

	// Weather
	mux.HandleFunc("/v1/weather/alerts", srv.WeatherAlertsHandler)

	// Operational
	mux.HandleFunc("/healthz", srv.HealthHandler)
	mux.HandleFunc("/readyz", srv.ReadyHandler)
	mux.HandleFunc("/debugz", srv.DebugJSON)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	addr := ":" + cfg.Server.Port

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           api.Instrument(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if worker := srv.NewAuditWorker(); worker != nil {
		worker.Start()
	}

	log.WithField("addr", addr).Info("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
