package services

import (
	"fmt"
	"time"

	"github.com/modular-health/modular-health-backend/types"
)

// MatchResult is the outcome of evaluating one scheduled variable against the
// current instant.
type MatchResult struct {
	// Matched is true when a time slot fired. Slot then holds the matched
	// "HH:MM" entry and LocalNow the instant in the user's zone.
	Matched  bool
	Slot     string
	LocalNow time.Time
	// Occurrence is the matched slot's instant on the current local day,
	// in UTC. The tolerance window lets the same occurrence match on two
	// consecutive ticks, so duplicate guards must key on this instant, not
	// on the tick time.
	Occurrence time.Time
	// Reason explains a non-match (weekday or time mismatch).
	Reason string
	// Err is set when every candidate entry was malformed.
	Err error
}

// RoutineMatcher decides which routine variables fire at a given instant.
//
// A slot "HH:MM" matches when its second-of-day falls within the current
// minute widened by the configured tolerance on both sides:
//
//	[nowMinute*60 - tolerance, (nowMinute+1)*60 + tolerance)
//
// With zero tolerance this degenerates to strict same-minute matching, which
// requires the invocation cadence to be at most one minute. The tolerance and
// the cron cadence are configured together (SchedulerConfig).
type RoutineMatcher struct {
	tolerance time.Duration
	locations *locationCache
}

// NewRoutineMatcher creates a matcher with the given tolerance.
func NewRoutineMatcher(tolerance time.Duration) *RoutineMatcher {
	return &RoutineMatcher{
		tolerance: tolerance,
		locations: newLocationCache(),
	}
}

// Location resolves an IANA zone name through the matcher's cache.
func (m *RoutineMatcher) Location(zone string) *time.Location {
	return m.locations.Load(zone)
}

// Match evaluates a scheduled variable against now in the given zone.
// The first matching time entry wins: at most one slot fires per variable
// per invocation even when several entries cover the same instant.
func (m *RoutineMatcher) Match(sv *types.ScheduledVariable, zone string, now time.Time) MatchResult {
	localNow := now.In(m.locations.Load(zone))

	if !sv.MatchesWeekday(types.ISOWeekday(localNow.Weekday())) {
		return MatchResult{
			LocalNow: localNow,
			Reason:   fmt.Sprintf("weekday %d not scheduled", types.ISOWeekday(localNow.Weekday())),
		}
	}

	var parseErr error
	for _, entry := range sv.Times {
		slotMinutes, err := types.ParseClockTime(entry.Time)
		if err != nil {
			parseErr = err
			continue
		}
		if m.minuteWindowContains(localNow, slotMinutes) {
			occurrence := time.Date(
				localNow.Year(), localNow.Month(), localNow.Day(),
				slotMinutes/60, slotMinutes%60, 0, 0, localNow.Location(),
			)
			return MatchResult{
				Matched:    true,
				Slot:       entry.Time,
				LocalNow:   localNow,
				Occurrence: occurrence.UTC(),
			}
		}
	}

	if parseErr != nil {
		return MatchResult{LocalNow: localNow, Err: parseErr}
	}
	return MatchResult{LocalNow: localNow, Reason: "no time slot matches current minute"}
}

// MatchAdjusted evaluates a slot shifted by offsetMinutes (negative for
// "before", positive for "after") against now. Used by the reminder job,
// which fires relative to the slot time rather than at it.
func (m *RoutineMatcher) MatchAdjusted(slot string, offsetMinutes int, zone string, now time.Time) (bool, error) {
	slotMinutes, err := types.ParseClockTime(slot)
	if err != nil {
		return false, err
	}

	target := slotMinutes + offsetMinutes
	// Reminder targets that shift past midnight are out of scope for the
	// current local day and never fire.
	if target < 0 || target >= 24*60 {
		return false, nil
	}

	localNow := now.In(m.locations.Load(zone))
	return m.minuteWindowContains(localNow, target), nil
}

// minuteWindowContains reports whether the slot second-of-day falls within
// the current minute widened by the tolerance.
func (m *RoutineMatcher) minuteWindowContains(localNow time.Time, slotMinutes int) bool {
	nowMinute := localNow.Hour()*60 + localNow.Minute()
	slotSeconds := slotMinutes * 60
	tol := int(m.tolerance.Seconds())

	windowStart := nowMinute*60 - tol
	windowEnd := (nowMinute+1)*60 + tol
	return slotSeconds >= windowStart && slotSeconds < windowEnd
}
