package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/modular-health/modular-health-backend/errors"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/modular-health/modular-health-backend/services"
	"github.com/modular-health/modular-health-backend/types"
	"go.uber.org/zap"
)

// JobHandler exposes the scheduler job triggers. These endpoints exist for
// external schedulers and operators; the internal cron runs the same jobs.
type JobHandler struct {
	autoLog  *services.AutoLogService
	reminder *services.ReminderService
	logger   *zap.SugaredLogger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(autoLog *services.AutoLogService, reminder *services.ReminderService) *JobHandler {
	return &JobHandler{
		autoLog:  autoLog,
		reminder: reminder,
		logger:   logger.GetLogger().Named("JobHandler"),
	}
}

// TriggerAutoLog handles POST /v1/jobs/auto-log.
// Runs one auto-log pass for the current instant and returns the structured
// per-item outcomes.
func (h *JobHandler) TriggerAutoLog(c *gin.Context) {
	h.runJob(c, "auto-log", h.autoLog.Run)
}

// TriggerReminders handles POST /v1/jobs/reminders.
func (h *JobHandler) TriggerReminders(c *gin.Context) {
	h.runJob(c, "reminders", h.reminder.Run)
}

func (h *JobHandler) runJob(c *gin.Context, name string, run func(ctx context.Context, now time.Time) (*types.JobRunResult, error)) {
	result, err := run(c.Request.Context(), time.Now())
	if err != nil {
		if errors.Is(err, services.ErrRunInProgress) {
			_ = c.Error(apperrors.RunInProgress(name))
			return
		}
		h.logger.Errorw("Job run failed", "job", name, "error", err)
		_ = c.Error(apperrors.InternalServerError("Job run failed"))
		return
	}

	c.JSON(http.StatusOK, result)
}
