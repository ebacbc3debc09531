package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/modular-health/modular-health-backend/errors"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/modular-health/modular-health-backend/store"
	"github.com/modular-health/modular-health-backend/types"
	"go.uber.org/zap"
)

// RoutineHandler handles HTTP requests for routines and their variables.
type RoutineHandler struct {
	routineStore store.RoutineStore
	logger       *zap.SugaredLogger
}

// NewRoutineHandler creates a new RoutineHandler.
func NewRoutineHandler(rs store.RoutineStore) *RoutineHandler {
	return &RoutineHandler{
		routineStore: rs,
		logger:       logger.GetLogger().Named("RoutineHandler"),
	}
}

// CreateRoutine handles POST /v1/routines.
func (h *RoutineHandler) CreateRoutine(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req types.RoutineCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}

	routine := &types.Routine{
		UserID: userID,
		Name:   req.Name,
	}
	if err := h.routineStore.CreateRoutine(c.Request.Context(), routine); err != nil {
		h.logger.Errorw("Failed to create routine", "userID", userID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusCreated, routine)
}

// ListRoutines handles GET /v1/routines.
func (h *RoutineHandler) ListRoutines(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	routines, err := h.routineStore.ListRoutinesByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Errorw("Failed to list routines", "userID", userID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusOK, routines)
}

// GetRoutine handles GET /v1/routines/:id. The response includes the
// routine's variables.
func (h *RoutineHandler) GetRoutine(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	routine, ok := h.loadOwnedRoutine(c, userID)
	if !ok {
		return
	}

	variables, err := h.routineStore.ListVariablesByRoutine(c.Request.Context(), routine.ID)
	if err != nil {
		h.logger.Errorw("Failed to list routine variables", "routineID", routine.ID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"routine":   routine,
		"variables": variables,
	})
}

// DeleteRoutine handles DELETE /v1/routines/:id.
func (h *RoutineHandler) DeleteRoutine(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	routineID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	err := h.routineStore.DeleteRoutine(c.Request.Context(), routineID, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = c.Error(apperrors.RoutineNotFound(routineID.String()))
	case errors.Is(err, store.ErrForbidden):
		_ = c.Error(apperrors.Forbidden("Not your routine", ""))
	case err != nil:
		h.logger.Errorw("Failed to delete routine", "routineID", routineID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
	default:
		c.Status(http.StatusNoContent)
	}
}

// AddVariable handles POST /v1/routines/:id/variables.
func (h *RoutineHandler) AddVariable(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	routine, ok := h.loadOwnedRoutine(c, userID)
	if !ok {
		return
	}

	var req types.RoutineVariableCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}
	if err := validateSchedule(req.Weekdays, req.Times); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid schedule", err.Error()))
		return
	}

	rv := &types.RoutineVariable{
		RoutineID:    routine.ID,
		VariableID:   req.VariableID,
		Weekdays:     req.Weekdays,
		Times:        req.Times,
		DefaultValue: req.DefaultValue,
	}
	if err := h.routineStore.CreateRoutineVariable(c.Request.Context(), rv); err != nil {
		h.logger.Errorw("Failed to create routine variable", "routineID", routine.ID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.JSON(http.StatusCreated, rv)
}

// UpdateVariable handles PATCH /v1/routines/:id/variables/:variableID.
func (h *RoutineHandler) UpdateVariable(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	routine, ok := h.loadOwnedRoutine(c, userID)
	if !ok {
		return
	}

	variableID, ok := h.variableInRoutine(c, routine.ID)
	if !ok {
		return
	}

	var req types.RoutineVariableUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.ValidationFailed("Invalid request body", err.Error()))
		return
	}
	if req.Weekdays != nil || req.Times != nil {
		weekdays := []int{1}
		times := []types.RoutineTime{{Time: "00:00"}}
		if req.Weekdays != nil {
			weekdays = *req.Weekdays
		}
		if req.Times != nil {
			times = *req.Times
		}
		if err := validateSchedule(weekdays, times); err != nil {
			_ = c.Error(apperrors.ValidationFailed("Invalid schedule", err.Error()))
			return
		}
	}

	if err := h.routineStore.UpdateRoutineVariable(c.Request.Context(), variableID, &req); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.NotFound("Routine variable", variableID))
			return
		}
		h.logger.Errorw("Failed to update routine variable", "variableID", variableID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteVariable handles DELETE /v1/routines/:id/variables/:variableID.
func (h *RoutineHandler) DeleteVariable(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	routine, ok := h.loadOwnedRoutine(c, userID)
	if !ok {
		return
	}

	variableID, ok := h.variableInRoutine(c, routine.ID)
	if !ok {
		return
	}

	if err := h.routineStore.DeleteRoutineVariable(c.Request.Context(), variableID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.NotFound("Routine variable", variableID))
			return
		}
		h.logger.Errorw("Failed to delete routine variable", "variableID", variableID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return
	}

	c.Status(http.StatusNoContent)
}

// loadOwnedRoutine fetches the routine from the :id path param and verifies
// the caller owns it. On failure the error response is already attached.
func (h *RoutineHandler) loadOwnedRoutine(c *gin.Context, userID uuid.UUID) (*types.Routine, bool) {
	routineID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	routine, err := h.routineStore.GetRoutine(c.Request.Context(), routineID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = c.Error(apperrors.RoutineNotFound(routineID.String()))
			return nil, false
		}
		h.logger.Errorw("Failed to get routine", "routineID", routineID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return nil, false
	}
	if routine.UserID != userID {
		_ = c.Error(apperrors.Forbidden("Not your routine", ""))
		return nil, false
	}
	return routine, true
}

// variableInRoutine parses the :variableID param and verifies the variable
// belongs to the given routine.
func (h *RoutineHandler) variableInRoutine(c *gin.Context, routineID uuid.UUID) (uuid.UUID, bool) {
	variableID, ok := parseIDParam(c, "variableID")
	if !ok {
		return uuid.Nil, false
	}

	variables, err := h.routineStore.ListVariablesByRoutine(c.Request.Context(), routineID)
	if err != nil {
		h.logger.Errorw("Failed to list routine variables", "routineID", routineID, "error", err)
		_ = c.Error(apperrors.NewDatabaseError(err))
		return uuid.Nil, false
	}
	for i := range variables {
		if variables[i].ID == variableID {
			return variableID, true
		}
	}
	_ = c.Error(apperrors.NotFound("Routine variable", variableID))
	return uuid.Nil, false
}

// validateSchedule checks weekday and time entries before persisting.
func validateSchedule(weekdays []int, times []types.RoutineTime) error {
	if err := types.ValidateWeekdays(weekdays); err != nil {
		return err
	}
	for _, t := range times {
		if _, err := types.ParseClockTime(t.Time); err != nil {
			return err
		}
	}
	return nil
}
