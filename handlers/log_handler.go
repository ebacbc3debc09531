package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/modular-health/modular-health-backend/errors"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
	"go.uber.org/zap"
)

// LogHandler handles HTTP requests for log entries.
type LogHandler struct {
	logStore store.LogStore
	logger   *zap.SugaredLogger
}

// NewLogHandler creates a new LogHandler.
func NewLogHandler(ls store.LogStore) *LogHandler {
	return &LogHandler{
		logStore: ls,
		logger:   logger.GetLogger().Named("LogHandler"),
	}
}

// CreateLog handles POST /v1/logs. Entries created here are always
// manual-sourced; auto-sourced entries come only from the scheduler.
func (h *LogHandler) CreateLog(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req types.LogEntryCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	date := time.Now().UTC()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	entry := &types.LogEntry{
		UserID:     userID,
		VariableID: req.VariableID,
		RoutineID:  req.RoutineID,
		Date:       date,
		Value:      req.Value,
		Source:     types.LogSourceManual,
		Notes:      req.Notes,
	}
	if err := h.logStore.Create(c.Request.Context(), entry); err != nil {
		h.logger.Errorw("Failed to create log entry", "userID", userID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// ListLogs handles GET /v1/logs with optional variable_id, source, from, to,
// limit and offset query parameters.
func (h *LogHandler) ListLogs(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	filter, ok := parseLogFilter(c)
	if !ok {
		return
	}

	entries, err := h.logStore.List(c.Request.Context(), userID, filter)
	if err != nil {
		h.logger.Errorw("Failed to list log entries", "userID", userID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusOK, entries)
}

func parseLogFilter(c *gin.Context) (types.LogFilter, bool) {
	filter := types.LogFilter{Limit: 50}

	if v := c.Query("variable_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			_ = c.Error(apperrors.ValidationFailed("Invalid filter", "variable_id must be a UUID"))
			return filter, false
		}
		filter.VariableID = &id
	}
	if v := c.Query("source"); v != "" {
		source := types.LogSource(v)
		if source != types.LogSourceManual && source != types.LogSourceRoutineAuto {
			_ = c.Error(apperrors.ValidationFailed("Invalid filter", "source must be manual or routine_auto"))
			return filter, false
		}
		filter.Source = &source
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			_ = c.Error(apperrors.ValidationFailed("Invalid filter", "from must be RFC3339"))
			return filter, false
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			_ = c.Error(apperrors.ValidationFailed("Invalid filter", "to must be RFC3339"))
			return filter, false
		}
		filter.To = &t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			n = 50
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	return filter, true
}
