package api

import (
	"fmt"
	"time"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// validateOptimizeRequest rejects shapes the engine would choke on before
// any store work happens. Semantic checks (team existence, eligibility)
// stay in the engine.
func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if req.Date != "" {
		if _, err := time.Parse("2006-01-02", req.Date); err != nil {
			return fmt.Errorf("invalid date %q: want YYYY-MM-DD", req.Date)
		}
	}
	if req.Params != nil {
		if req.Params.MaxTasksPerTeam < 0 {
			return fmt.Errorf("maxTasksPerTeam must be >= 0")
		}
		if req.Params.MaxRouteTimeMinutes < 0 {
			return fmt.Errorf("maxRouteTimeMinutes must be >= 0")
		}
	}
	return nil
}
