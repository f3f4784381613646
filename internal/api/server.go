// Package api implements the HTTP surface of the route optimization
// service: JSON handlers over the stdlib mux, a WebSocket progress stream,
// and the wiring between store, engine, broker and audit worker.
package api

import (
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/audit"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/config"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/engine"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/geo"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/lock"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/metrics"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/store"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/weather"
)

type Server struct {
	Store     store.Store
	Engine    *engine.Engine
	Broker    EventBroker
	Locations *LocationCache
	Audit     config.Audit
}

// NewServer wires the service from configuration. No DATABASE_URL means the
// in-memory store; no REDIS_URL means in-process locking and fanout.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.Database.URL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if cfg.Database.Migrate {
			if err := sp.MigrateDir(cfg.Database.MigrationsDir); err != nil {
				return nil, err
			}
		}
		s = sp
	}

	var locks lock.Locker
	var broker EventBroker
	if cfg.Redis.URL != "" {
		rl, err := lock.NewRedisLocker(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		locks = rl
		rb, err := NewRedisBroker(cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		broker = rb
	} else {
		broker = NewBroker()
	}

	var dirs geo.DirectionsProvider
	if cfg.Directions.BaseURL != "" {
		dirs = geo.NewHTTPDirections(cfg.Directions.BaseURL, cfg.Directions.APIKey,
			time.Duration(cfg.Directions.TimeoutSeconds)*time.Second, cfg.Directions.RPS)
	}
	est := geo.NewEstimator(dirs, time.Duration(cfg.Directions.TimeoutSeconds)*time.Second, geo.DefaultFuel())

	var wp weather.Provider
	if cfg.Weather.BaseURL != "" {
		wp = weather.NewHTTPProvider(cfg.Weather.BaseURL, cfg.Weather.APIKey,
			time.Duration(cfg.Weather.TimeoutSeconds)*time.Second, cfg.Weather.RPS)
	}
	overlay := weather.NewOverlay(wp)

	rec := &audit.Recorder{Store: s}
	eng := engine.New(s, est, overlay, locks, rec)

	metrics.RegisterDefault()

	return &Server{
		Store:     s,
		Engine:    eng,
		Broker:    broker,
		Locations: NewLocationCache(),
		Audit:     cfg.Audit,
	}, nil
}

// NewAuditWorker builds the background delivery worker, or nil when no sink
// is configured.
func (s *Server) NewAuditWorker() *audit.Worker {
	if s.Audit.SinkURL == "" {
		log.Info("audit sink not configured, deliveries stay queued")
		return nil
	}
	return audit.NewWorker(s.Store, s.Audit.SinkURL, s.Audit.Secret, s.Audit.MaxAttempts)
}

// businessID resolves the tenant for a request: query parameter first, then
// header.
func businessID(r *http.Request) string {
	if v := r.URL.Query().Get("businessId"); v != "" {
		return v
	}
	return r.Header.Get("X-Business-Id")
}
