package api

import (
	"sync"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// LocationCache keeps the latest reported position per team. Populated from
// progress events carrying a location; read by progress snapshots. Purely
// in-memory, rebuilt from traffic after a restart.
type LocationCache struct {
	mu sync.Mutex
	m  map[string]model.TeamLocation
}

func NewLocationCache() *LocationCache {
	return &LocationCache{m: map[string]model.TeamLocation{}}
}

func (c *LocationCache) key(businessID, teamID string) string {
	return businessID + "|" + teamID
}

// Upsert stores the latest position for a team.
func (c *LocationCache) Upsert(businessID, teamID string, p model.GeoPoint, ts string) {
	if businessID == "" || teamID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[c.key(businessID, teamID)] = model.TeamLocation{
		BusinessID: businessID,
		TeamID:     teamID,
		Point:      p,
		TS:         ts,
	}
}

// Latest returns the last known position, or nil when the team has not
// reported one.
func (c *LocationCache) Latest(businessID, teamID string) *model.TeamLocation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loc, ok := c.m[c.key(businessID, teamID)]; ok {
		return &loc
	}
	return nil
}
