package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned when a job invocation overlaps a run that
// currently holds the cross-run lease.
var ErrRunInProgress = errors.New("job run already in progress")

const autoLogJobName = "auto-log"

// AutoLogService runs the routine auto-logging job: one short-lived pass over
// every scheduled routine variable, writing a log entry for each slot that
// matches the current instant in its owner's local timezone.
//
// All state lives in the database; nothing is shared between runs. One
// failing item never aborts the batch: every variable gets a structured
// outcome in the run result.
type AutoLogService struct {
	routineStore store.RoutineStore
	logStore     store.LogStore
	profileStore store.ProfileStore
	matcher      *RoutineMatcher
	lease        *JobLease
	leaseTTL     time.Duration
	logger       *zap.SugaredLogger
	metrics      *jobMetrics
}

// NewAutoLogService creates the auto-log job service.
func NewAutoLogService(
	routineStore store.RoutineStore,
	logStore store.LogStore,
	profileStore store.ProfileStore,
	matcher *RoutineMatcher,
	lease *JobLease,
	leaseTTL time.Duration,
) *AutoLogService {
	return &AutoLogService{
		routineStore: routineStore,
		logStore:     logStore,
		profileStore: profileStore,
		matcher:      matcher,
		lease:        lease,
		leaseTTL:     leaseTTL,
		logger:       logger.GetLogger().Named("autolog"),
		metrics:      newJobMetrics(),
	}
}

// Run executes one auto-log pass for the given instant.
// Returns ErrRunInProgress when another invocation holds the lease, or an
// error when the routine variables cannot be read at all. Per-item failures
// are reported in the result, not as an error.
func (s *AutoLogService) Run(ctx context.Context, now time.Time) (*types.JobRunResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.runDuration.WithLabelValues(autoLogJobName).Observe(time.Since(start).Seconds())
	}()

	if s.lease != nil {
		release, ok, err := s.lease.Acquire(ctx, autoLogJobName, s.leaseTTL)
		if err != nil {
			// Redis being down must not stop auto-logging: the unique index
			// on the logs table still guarantees at-most-once per slot.
			s.logger.Warnw("Proceeding without run lease", "error", err)
		} else if !ok {
			s.metrics.runsTotal.WithLabelValues(autoLogJobName, "lease_held").Inc()
			return nil, ErrRunInProgress
		} else {
			defer release()
		}
	}

	variables, err := s.routineStore.ListScheduledVariables(ctx)
	if err != nil {
		s.metrics.runsTotal.WithLabelValues(autoLogJobName, "error").Inc()
		return nil, fmt.Errorf("failed to fetch routine variables: %w", err)
	}

	zones := fetchUserZones(ctx, s.profileStore, variables, s.logger)

	result := &types.JobRunResult{
		Logged:    []uuid.UUID{},
		Items:     make([]types.ItemOutcome, 0, len(variables)),
		Timestamp: now.UTC(),
	}

	for i := range variables {
		outcome := s.processVariable(ctx, &variables[i], zones, now)
		s.metrics.itemsTotal.WithLabelValues(autoLogJobName, string(outcome.Status)).Inc()
		if outcome.Status == types.ItemStatusLogged {
			result.Logged = append(result.Logged, outcome.RoutineVariableID)
		}
		result.Items = append(result.Items, outcome)
	}

	s.metrics.runsTotal.WithLabelValues(autoLogJobName, "ok").Inc()
	s.logger.Infow("Auto-log run complete",
		"variables", len(variables),
		"logged", len(result.Logged))
	return result, nil
}

// processVariable evaluates one routine variable and writes its auto-log
// entry when a slot matches and the slot is not already logged.
func (s *AutoLogService) processVariable(ctx context.Context, sv *types.ScheduledVariable, zones map[uuid.UUID]string, now time.Time) types.ItemOutcome {
	outcome := types.ItemOutcome{
		RoutineVariableID: sv.ID,
		UserID:            sv.UserID,
	}

	zone := zones[sv.UserID]
	if zone == "" {
		zone = DefaultTimezone
	}

	match := s.matcher.Match(sv, zone, now)
	if match.Err != nil {
		s.logger.Warnw("Routine variable has unusable schedule",
			"routineVariableID", sv.ID,
			"error", match.Err)
		outcome.Status = types.ItemStatusError
		outcome.Reason = match.Err.Error()
		return outcome
	}
	if !match.Matched {
		outcome.Status = types.ItemStatusSkipped
		outcome.Reason = match.Reason
		return outcome
	}

	// The dedupe key is the slot occurrence, not the tick instant: with a
	// tolerance the same occurrence matches on adjacent ticks, which land in
	// different minutes.
	minuteStart := match.Occurrence
	exists, err := s.logStore.ExistsAutoLogInMinute(ctx, sv.UserID, sv.VariableID, sv.RoutineID, minuteStart)
	if err != nil {
		// A failing check means the slot state is unknown; report an error
		// rather than a duplicate and do not write.
		s.logger.Errorw("Duplicate check failed",
			"routineVariableID", sv.ID,
			"error", err)
		outcome.Status = types.ItemStatusError
		outcome.Reason = "duplicate check failed"
		return outcome
	}
	if exists {
		outcome.Status = types.ItemStatusDuplicate
		outcome.Reason = "slot occurrence already logged"
		return outcome
	}

	entry := &types.LogEntry{
		UserID:     sv.UserID,
		VariableID: sv.VariableID,
		RoutineID:  &sv.RoutineID,
		Date:       match.Occurrence,
		Value:      sv.DefaultValue,
		Source:     types.LogSourceRoutineAuto,
		Notes:      fmt.Sprintf("Auto-logged from routine (timezone: %s, slot: %s)", zone, match.Slot),
	}

	inserted, err := s.logStore.InsertAutoLog(ctx, entry)
	if err != nil {
		// Insert failure is non-fatal per item; the rest of the batch
		// continues.
		s.logger.Errorw("Auto-log insert failed",
			"routineVariableID", sv.ID,
			"error", err)
		outcome.Status = types.ItemStatusError
		outcome.Reason = "insert failed"
		return outcome
	}
	if !inserted {
		// A concurrent run won the slot between the check and the insert.
		outcome.Status = types.ItemStatusDuplicate
		outcome.Reason = "slot claimed by concurrent run"
		return outcome
	}

	outcome.Status = types.ItemStatusLogged
	outcome.LogID = &entry.ID
	return outcome
}
