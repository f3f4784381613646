package audit

import (
	"bytes"
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/metrics"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/store"
)

// Worker drains the audit queue and POSTs each event to the sink URL,
// signing the body when a secret is configured. Failed deliveries retry
// with exponential backoff until MaxAttempts, then land in the DLQ.
type Worker struct {
	Store       store.Store
	HTTP        *http.Client
	Stop        chan struct{}
	SinkURL     string
	Secret      string
	MaxAttempts int
}

func NewWorker(s store.Store, sinkURL, secret string, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Worker{
		Store:       s,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		Stop:        make(chan struct{}),
		SinkURL:     sinkURL,
		Secret:      secret,
		MaxAttempts: maxAttempts,
	}
}

func (w *Worker) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-w.Stop:
				return
			case <-ticker.C:
				w.processOnce()
			}
		}
	}()
}

func (w *Worker) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	items, err := w.Store.FetchDueAuditDeliveries(ctx, 50)
	if err != nil || len(items) == 0 {
		return
	}
	for _, it := range items {
		success := false
		next := time.Now().UTC().Add(nextBackoff(it.Attempts)).Format(time.RFC3339)
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, w.SinkURL, bytes.NewReader(it.Payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Audit-Action", it.Action)
		if w.Secret != "" {
			req.Header.Set("X-Signature", SignHMAC(w.Secret, it.Payload))
		}
		start := time.Now()
		resp, err := w.HTTP.Do(req)
		latency := int(time.Since(start).Milliseconds())
		code := 0
		if err == nil && resp != nil {
			code = resp.StatusCode
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
			if code >= 200 && code < 300 {
				success = true
			}
		}
		lastErr := ""
		if !success && err != nil {
			lastErr = err.Error()
		}
		if success {
			metrics.AuditDeliveries.WithLabelValues("delivered").Inc()
			metrics.AuditLatency.WithLabelValues("delivered").Observe(float64(latency))
			_ = w.Store.MarkAuditDelivery(ctx, it.ID, true, "", lastErr, code, latency)
			continue
		}
		if it.Attempts+1 >= w.MaxAttempts {
			metrics.AuditDeliveries.WithLabelValues("dlq").Inc()
			metrics.AuditLatency.WithLabelValues("dlq").Observe(float64(latency))
			log.WithFields(log.Fields{
				"delivery": it.ID,
				"action":   it.Action,
				"attempts": it.Attempts + 1,
				"code":     code,
			}).Warn("audit delivery moved to DLQ")
			_ = w.Store.FailAuditDelivery(ctx, it.ID, lastErr, code, latency)
			continue
		}
		metrics.AuditDeliveries.WithLabelValues("retry").Inc()
		metrics.AuditLatency.WithLabelValues("retry").Observe(float64(latency))
		_ = w.Store.MarkAuditDelivery(ctx, it.ID, false, next, lastErr, code, latency)
	}
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
