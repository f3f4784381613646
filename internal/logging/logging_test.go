package logging

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetup(t *testing.T) {
	defer Setup("info", "json")

	Setup("debug", "text")
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("level: %v", log.GetLevel())
	}
	Setup("nonsense", "json")
	if log.GetLevel() != log.InfoLevel {
		t.Fatalf("bad level should fall back to info: %v", log.GetLevel())
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := CorrelationID(ctx); got != "" {
		t.Fatalf("empty context: %q", got)
	}
	ctx = WithCorrelationID(ctx, "cid-42")
	if got := CorrelationID(ctx); got != "cid-42" {
		t.Fatalf("round trip: %q", got)
	}
}

func TestFromContext(t *testing.T) {
	entry := FromContext(WithCorrelationID(context.Background(), "cid-42"))
	if entry.Data["correlation_id"] != "cid-42" {
		t.Fatalf("entry fields: %v", entry.Data)
	}
	entry = FromContext(context.Background())
	if _, ok := entry.Data["correlation_id"]; ok {
		t.Fatalf("untagged context should produce a bare entry")
	}
}
