package api

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/buildinfo"
)

// DebugJSON exposes build info and a redacted view of the effective
// environment for operators. Secrets are reported as presence flags only.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":               os.Getenv("PORT"),
			"LOG_LEVEL":          os.Getenv("LOG_LEVEL"),
			"LOG_FORMAT":         os.Getenv("LOG_FORMAT"),
			"AUDIT_MAX_ATTEMPTS": os.Getenv("AUDIT_MAX_ATTEMPTS"),
			"HAS_DATABASE_URL":   os.Getenv("DATABASE_URL") != "",
			"HAS_REDIS_URL":      os.Getenv("REDIS_URL") != "",
			"HAS_WEATHER_API":    os.Getenv("WEATHER_API_URL") != "",
			"HAS_DIRECTIONS_API": os.Getenv("DIRECTIONS_API_URL") != "",
			"HAS_AUDIT_SINK":     os.Getenv("AUDIT_SINK_URL") != "",
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
