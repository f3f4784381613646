// Package logging configures the process-wide logrus logger and carries
// per-request correlation ids through context.
package logging

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Setup applies log level and output format. Unknown values fall back to
// info and json.
func Setup(level, format string) {
	lv, err := log.ParseLevel(level)
	if err != nil {
		lv = log.InfoLevel
	}
	log.SetLevel(lv)
	if format == "text" {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

type correlationKey struct{}

// WithCorrelationID returns a context carrying the request correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id stored in ctx, or "".
func CorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(correlationKey{}).(string); ok {
		return v
	}
	return ""
}

// FromContext returns an entry tagged with the correlation id when one is
// present.
func FromContext(ctx context.Context) *log.Entry {
	if id := CorrelationID(ctx); id != "" {
		return log.WithField("correlation_id", id)
	}
	return log.NewEntry(log.StandardLogger())
}
