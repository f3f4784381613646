package api

import (
	"testing"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

func TestLocationCache(t *testing.T) {
	c := NewLocationCache()

	if got := c.Latest("biz", "tm_1"); got != nil {
		t.Fatalf("empty cache: %+v", got)
	}

	c.Upsert("biz", "tm_1", model.GeoPoint{Lat: 41.0, Lng: 19.0}, "2026-03-02T08:00:00Z")
	got := c.Latest("biz", "tm_1")
	if got == nil || got.Point.Lat != 41.0 || got.TS != "2026-03-02T08:00:00Z" {
		t.Fatalf("first report: %+v", got)
	}

	// Later reports replace earlier ones.
	c.Upsert("biz", "tm_1", model.GeoPoint{Lat: 41.5, Lng: 19.5}, "2026-03-02T09:00:00Z")
	got = c.Latest("biz", "tm_1")
	if got.Point.Lat != 41.5 || got.TS != "2026-03-02T09:00:00Z" {
		t.Fatalf("replacement: %+v", got)
	}

	// Teams and tenants do not bleed into each other.
	if got := c.Latest("biz", "tm_2"); got != nil {
		t.Fatalf("team bleed: %+v", got)
	}
	if got := c.Latest("other", "tm_1"); got != nil {
		t.Fatalf("tenant bleed: %+v", got)
	}

	// Blank keys are dropped rather than stored.
	c.Upsert("", "tm_9", model.GeoPoint{Lat: 1}, "2026-03-02T08:00:00Z")
	if got := c.Latest("", "tm_9"); got != nil {
		t.Fatalf("blank business stored: %+v", got)
	}
}
