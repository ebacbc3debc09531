package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
	"go.uber.org/zap"
)

const reminderJobName = "reminders"

// ReminderService runs the routine reminder job: for every user who enabled
// reminders, it finds the routine slots whose adjusted fire time matches the
// current instant, claims each occurrence in reminder history, and hands the
// notification to the dispatch pool.
//
// The history claim is the duplicate guard: each (user, variable, local day,
// slot) tuple is claimed at most once, so a slot that fired already today is
// skipped no matter how often the job runs.
type ReminderService struct {
	routineStore store.RoutineStore
	profileStore store.ProfileStore
	prefStore    store.PreferenceStore
	historyStore store.ReminderHistoryStore
	pool         *DispatchPool
	matcher      *RoutineMatcher
	lease        *JobLease
	leaseTTL     time.Duration
	logger       *zap.SugaredLogger
	metrics      *jobMetrics
}

// NewReminderService creates the reminder job service.
func NewReminderService(
	routineStore store.RoutineStore,
	profileStore store.ProfileStore,
	prefStore store.PreferenceStore,
	historyStore store.ReminderHistoryStore,
	pool *DispatchPool,
	matcher *RoutineMatcher,
	lease *JobLease,
	leaseTTL time.Duration,
) *ReminderService {
	return &ReminderService{
		routineStore: routineStore,
		profileStore: profileStore,
		prefStore:    prefStore,
		historyStore: historyStore,
		pool:         pool,
		matcher:      matcher,
		lease:        lease,
		leaseTTL:     leaseTTL,
		logger:       logger.GetLogger().Named("reminders"),
		metrics:      newJobMetrics(),
	}
}

// Run executes one reminder pass for the given instant.
// Returns ErrRunInProgress when another invocation holds the lease, or an
// error when preferences or routine variables cannot be read at all.
// Per-item failures are reported in the result, not as an error.
func (s *ReminderService) Run(ctx context.Context, now time.Time) (*types.JobRunResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.runDuration.WithLabelValues(reminderJobName).Observe(time.Since(start).Seconds())
	}()

	if s.lease != nil {
		release, ok, err := s.lease.Acquire(ctx, reminderJobName, s.leaseTTL)
		if err != nil {
			// The history claim still dedupes; a missing lease only costs
			// some wasted work on overlap.
			s.logger.Warnw("Proceeding without run lease", "error", err)
		} else if !ok {
			s.metrics.runsTotal.WithLabelValues(reminderJobName, "lease_held").Inc()
			return nil, ErrRunInProgress
		} else {
			defer release()
		}
	}

	prefs, err := s.prefStore.ListReminderEnabled(ctx)
	if err != nil {
		s.metrics.runsTotal.WithLabelValues(reminderJobName, "error").Inc()
		return nil, fmt.Errorf("failed to fetch notification preferences: %w", err)
	}

	result := &types.JobRunResult{
		Logged:    []uuid.UUID{},
		Items:     []types.ItemOutcome{},
		Timestamp: now.UTC(),
	}

	if len(prefs) == 0 {
		s.metrics.runsTotal.WithLabelValues(reminderJobName, "ok").Inc()
		return result, nil
	}

	prefByUser := make(map[uuid.UUID]*types.NotificationPreference, len(prefs))
	for i := range prefs {
		prefByUser[prefs[i].UserID] = &prefs[i]
	}

	variables, err := s.routineStore.ListScheduledVariables(ctx)
	if err != nil {
		s.metrics.runsTotal.WithLabelValues(reminderJobName, "error").Inc()
		return nil, fmt.Errorf("failed to fetch routine variables: %w", err)
	}

	// Only variables owned by reminder-enabled users are candidates.
	candidates := variables[:0:0]
	for i := range variables {
		if _, ok := prefByUser[variables[i].UserID]; ok {
			candidates = append(candidates, variables[i])
		}
	}

	zones := fetchUserZones(ctx, s.profileStore, candidates, s.logger)

	for i := range candidates {
		outcome := s.processVariable(ctx, &candidates[i], prefByUser[candidates[i].UserID], zones, now)
		s.metrics.itemsTotal.WithLabelValues(reminderJobName, string(outcome.Status)).Inc()
		result.Items = append(result.Items, outcome)
	}

	s.metrics.runsTotal.WithLabelValues(reminderJobName, "ok").Inc()
	s.logger.Infow("Reminder run complete",
		"candidates", len(candidates),
		"items", len(result.Items))
	return result, nil
}

// reminderOffsetMinutes converts a preference into the slot shift in minutes.
func reminderOffsetMinutes(pref *types.NotificationPreference) int {
	switch pref.RoutineReminderTiming {
	case types.ReminderTimingBefore:
		return -pref.RoutineReminderMinutes
	case types.ReminderTimingAfter:
		return pref.RoutineReminderMinutes
	default:
		return 0
	}
}

// processVariable evaluates one routine variable against the user's reminder
// settings and dispatches at most one notification for it.
func (s *ReminderService) processVariable(ctx context.Context, sv *types.ScheduledVariable, pref *types.NotificationPreference, zones map[uuid.UUID]string, now time.Time) types.ItemOutcome {
	outcome := types.ItemOutcome{
		RoutineVariableID: sv.ID,
		UserID:            sv.UserID,
	}

	zone := zones[sv.UserID]
	if zone == "" {
		zone = DefaultTimezone
	}
	localNow := now.In(s.matcher.Location(zone))

	if !sv.MatchesWeekday(types.ISOWeekday(localNow.Weekday())) {
		outcome.Status = types.ItemStatusSkipped
		outcome.Reason = fmt.Sprintf("weekday %d not scheduled", types.ISOWeekday(localNow.Weekday()))
		return outcome
	}

	offset := reminderOffsetMinutes(pref)

	var parseErr error
	for _, entry := range sv.Times {
		matched, err := s.matcher.MatchAdjusted(entry.Time, offset, zone, now)
		if err != nil {
			parseErr = err
			continue
		}
		if !matched {
			continue
		}
		// First matching slot wins.
		return s.fireReminder(ctx, sv, pref, entry.Time, localNow, outcome)
	}

	if parseErr != nil {
		s.logger.Warnw("Routine variable has unusable schedule",
			"routineVariableID", sv.ID,
			"error", parseErr)
		outcome.Status = types.ItemStatusError
		outcome.Reason = parseErr.Error()
		return outcome
	}

	outcome.Status = types.ItemStatusSkipped
	outcome.Reason = "no reminder slot matches current minute"
	return outcome
}

// fireReminder claims the occurrence in history and hands delivery to the
// dispatch pool. The claim happens before dispatch so that a crash mid-send
// cannot produce a second notification on the next run.
func (s *ReminderService) fireReminder(ctx context.Context, sv *types.ScheduledVariable, pref *types.NotificationPreference, slot string, localNow time.Time, outcome types.ItemOutcome) types.ItemOutcome {
	rec := &types.ReminderRecord{
		UserID:            sv.UserID,
		RoutineVariableID: sv.ID,
		SlotDate:          time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, time.UTC),
		SlotTime:          slot,
		Status:            types.ReminderStatusPending,
	}

	claimed, err := s.historyStore.Claim(ctx, rec)
	if err != nil {
		s.logger.Errorw("Reminder claim failed",
			"routineVariableID", sv.ID,
			"error", err)
		outcome.Status = types.ItemStatusError
		outcome.Reason = "reminder claim failed"
		return outcome
	}
	if !claimed {
		outcome.Status = types.ItemStatusDuplicate
		outcome.Reason = "reminder already sent for this slot today"
		return outcome
	}

	submitted := s.pool.Submit(Delivery{
		ReminderID:   rec.ID,
		UserID:       sv.UserID,
		Notification: buildReminderNotification(sv, pref, slot),
	})
	if !submitted {
		// The occurrence stays claimed; it will not be retried today.
		if markErr := s.historyStore.MarkOutcome(ctx, rec.ID, types.ReminderStatusFailed, nil); markErr != nil {
			s.logger.Errorw("Failed to record dropped reminder",
				"reminderID", rec.ID,
				"error", markErr)
		}
		outcome.Status = types.ItemStatusError
		outcome.Reason = "dispatch queue full"
		return outcome
	}

	outcome.Status = types.ItemStatusNotified
	return outcome
}

// buildReminderNotification renders the push payload for one reminder.
func buildReminderNotification(sv *types.ScheduledVariable, pref *types.NotificationPreference, slot string) *PushNotification {
	var body string
	switch pref.RoutineReminderTiming {
	case types.ReminderTimingBefore:
		body = fmt.Sprintf("Your %s routine starts in %d minutes.", slot, pref.RoutineReminderMinutes)
	case types.ReminderTimingAfter:
		body = fmt.Sprintf("Your %s routine was scheduled %d minutes ago. Don't forget to log it.", slot, pref.RoutineReminderMinutes)
	default:
		body = fmt.Sprintf("Time for your %s routine.", slot)
	}

	return &PushNotification{
		Title: "Routine reminder",
		Body:  body,
		Data: map[string]interface{}{
			"type":                "routine_reminder",
			"routine_id":          sv.RoutineID.String(),
			"routine_variable_id": sv.ID.String(),
			"slot":                slot,
		},
		Priority: "high",
	}
}
