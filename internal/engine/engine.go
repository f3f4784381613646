// Package engine orchestrates route planning and live execution tracking.
// It owns the flows between the task pool, the team registry, the optimizer,
// the weather overlay, and the two persisted aggregates (Route and
// RouteProgress). Handlers stay thin; every business rule lives here.
package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/audit"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/geo"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/lock"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/opt"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/store"
	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/weather"
)

const progressLockTTL = 30 * time.Second

type Engine struct {
	Store   store.Store
	Opt     *opt.Optimizer
	Est     *geo.Estimator
	Weather *weather.Overlay
	Locks   lock.Locker
	Audit   *audit.Recorder
}

func New(s store.Store, est *geo.Estimator, ov *weather.Overlay, locks lock.Locker, rec *audit.Recorder) *Engine {
	if locks == nil {
		locks = lock.NewMemoryLocker()
	}
	return &Engine{
		Store:   s,
		Opt:     opt.New(est),
		Est:     est,
		Weather: ov,
		Locks:   locks,
		Audit:   rec,
	}
}

// routeID builds the durable route identifier: business, team, compact date,
// plus a short nonce so replacements never collide.
func routeID(businessID, teamID, date string) string {
	return fmt.Sprintf("route_%s_%s_%s_%s", businessID, teamID, strings.ReplaceAll(date, "-", ""), uuid.New().String()[:8])
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

func todayUTC() string { return time.Now().UTC().Format("2006-01-02") }

func validCoords(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// minutesSince returns whole minutes from an RFC3339 stamp to now, floored
// at zero. ok is false when the stamp does not parse.
func minutesSince(startRFC3339 string, now time.Time) (int, bool) {
	start, err := time.Parse(time.RFC3339, startRFC3339)
	if err != nil {
		return 0, false
	}
	m := int(math.Round(now.Sub(start).Minutes()))
	if m < 0 {
		m = 0
	}
	return m, true
}
