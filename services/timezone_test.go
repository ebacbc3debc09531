package services

import (
	"testing"

	"github.com/modular-health/modular-health-backend/types"
	"github.com/stretchr/testify/assert"
)

func TestResolveTimezone(t *testing.T) {
	assert.Equal(t, "Europe/Stockholm", DefaultTimezone)

	tests := []struct {
		name    string
		profile *types.UserProfile
		want    string
	}{
		{name: "nil profile", profile: nil, want: DefaultTimezone},
		{name: "empty zone", profile: &types.UserProfile{}, want: DefaultTimezone},
		{name: "invalid zone", profile: &types.UserProfile{Timezone: "Mars/Olympus"}, want: DefaultTimezone},
		{name: "valid zone", profile: &types.UserProfile{Timezone: "America/New_York"}, want: "America/New_York"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveTimezone(tt.profile))
		})
	}
}

func TestLocationCacheFallback(t *testing.T) {
	cache := newLocationCache()

	loc := cache.Load("Not/AZone")
	assert.Equal(t, DefaultTimezone, loc.String())

	// Cached entry comes back identical.
	assert.Same(t, loc, cache.Load("Not/AZone"))

	ny := cache.Load("America/New_York")
	assert.Equal(t, "America/New_York", ny.String())
}
