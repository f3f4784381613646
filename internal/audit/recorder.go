package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/store"
)

// Recorder queues audit events for asynchronous delivery to the configured
// sink. Recording is fire-and-forget from the caller's perspective; a nil
// Recorder drops everything, so callers never need to guard for an
// unconfigured sink.
type Recorder struct {
	Store store.Store
}

func NewRecorder(s store.Store) *Recorder {
	return &Recorder{Store: s}
}

// Record enqueues one audit event. Delivery failures are the worker's
// problem; enqueue failures are swallowed because audit must never block or
// fail a business operation.
func (r *Recorder) Record(ctx context.Context, businessID, action string, data any) {
	if r == nil || r.Store == nil {
		return
	}
	payload := map[string]any{
		"id":         fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"action":     action,
		"businessId": businessID,
		"ts":         time.Now().UTC().Format(time.RFC3339),
		"data":       data,
	}
	body, _ := json.Marshal(payload)
	_, _ = r.Store.EnqueueAudit(ctx, store.AuditDelivery{
		BusinessID: businessID,
		Action:     action,
		Payload:    body,
	})
}
