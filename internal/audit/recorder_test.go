package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/store"
)

func TestRecorderEnqueues(t *testing.T) {
	s := store.NewMemory()
	rec := NewRecorder(s)
	rec.Record(context.Background(), "b1", "route.optimized", map[string]any{"routeId": "rt_1"})

	due, err := s.FetchDueAuditDeliveries(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("due deliveries: %d", len(due))
	}
	d := due[0]
	if d.BusinessID != "b1" || d.Action != "route.optimized" {
		t.Fatalf("delivery: %+v", d)
	}
	var payload struct {
		Action string         `json:"action"`
		Data   map[string]any `json:"data"`
	}
	if err := json.Unmarshal(d.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Action != "route.optimized" || payload.Data["routeId"] != "rt_1" {
		t.Fatalf("payload content: %+v", payload)
	}
}

func TestRecorderNilSafe(t *testing.T) {
	var rec *Recorder
	rec.Record(context.Background(), "b1", "noop", nil)
	NewRecorder(nil).Record(context.Background(), "b1", "noop", nil)
}
