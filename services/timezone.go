package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
	"go.uber.org/zap"
)

// DefaultTimezone is used for every user who has not stored an IANA zone.
// A missing or unloadable zone degrades silently to this default rather than
// erroring, so scheduling always has a well-defined local clock.
const DefaultTimezone = "Europe/Stockholm"

// ResolveTimezone returns the IANA timezone name to use for a user.
// It never fails: a nil profile, an empty zone, or a zone that does not load
// all resolve to DefaultTimezone.
func ResolveTimezone(profile *types.UserProfile) string {
	if profile == nil || profile.Timezone == "" {
		return DefaultTimezone
	}
	if _, err := time.LoadLocation(profile.Timezone); err != nil {
		return DefaultTimezone
	}
	return profile.Timezone
}

// locationCache memoizes time.LoadLocation lookups. Zone data loads hit the
// filesystem, and a scheduler run resolves the same handful of zones for
// every routine variable.
type locationCache struct {
	mu    sync.RWMutex
	zones map[string]*time.Location
}

func newLocationCache() *locationCache {
	return &locationCache{zones: make(map[string]*time.Location)}
}

// Load returns the location for an IANA zone name, falling back to the
// default zone when the name does not resolve.
func (c *locationCache) Load(name string) *time.Location {
	c.mu.RLock()
	loc, ok := c.zones[name]
	c.mu.RUnlock()
	if ok {
		return loc
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		loc, err = time.LoadLocation(DefaultTimezone)
		if err != nil {
			loc = time.UTC
		}
	}

	c.mu.Lock()
	c.zones[name] = loc
	c.mu.Unlock()
	return loc
}

// fetchUserZones bulk-resolves stored timezones for the owners of the given
// scheduled variables. A failing lookup degrades to the default zone for
// everyone rather than aborting the run.
func fetchUserZones(ctx context.Context, profiles store.ProfileStore, variables []types.ScheduledVariable, log *zap.SugaredLogger) map[uuid.UUID]string {
	userIDs := make([]uuid.UUID, 0, len(variables))
	seen := make(map[uuid.UUID]struct{}, len(variables))
	for i := range variables {
		if _, ok := seen[variables[i].UserID]; ok {
			continue
		}
		seen[variables[i].UserID] = struct{}{}
		userIDs = append(userIDs, variables[i].UserID)
	}

	zones, err := profiles.GetTimezones(ctx, userIDs)
	if err != nil {
		log.Warnw("Failed to fetch user timezones, falling back to default for all users",
			"error", err,
			"default", DefaultTimezone)
		return map[uuid.UUID]string{}
	}
	return zones
}
