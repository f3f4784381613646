package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/logging"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/metrics"
)

// Instrument wraps the mux with correlation ids, request logging, and the
// Prometheus request counters.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		cid := r.Header.Get("X-Correlation-Id")
		if cid == "" {
			cid = uuid.New().String()
		}
		ctx := logging.WithCorrelationID(r.Context(), cid)
		w.Header().Set("X-Correlation-Id", cid)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))
		dur := time.Since(start)
		path := metricPath(r.URL.Path)
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(dur.Seconds())
		logging.FromContext(ctx).WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": dur.String(),
		}).Info("request")
	})
}

// metricPath collapses path parameters so route ids do not explode the
// metric label space.
func metricPath(p string) string {
	if !strings.HasPrefix(p, "/v1/routes/") {
		return p
	}
	switch p {
	case "/v1/routes/stats", "/v1/routes/validate", "/v1/routes/metrics":
		return p
	}
	switch {
	case strings.HasSuffix(p, "/assign"):
		return "/v1/routes/:id/assign"
	case strings.HasSuffix(p, "/reoptimize"):
		return "/v1/routes/:id/reoptimize"
	default:
		return "/v1/routes/:id"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps WebSocket upgrades working through the wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
