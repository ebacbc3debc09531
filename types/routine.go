package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Weekday numbering follows ISO-8601: 1=Monday .. 7=Sunday.
const (
	WeekdayMonday = 1
	WeekdaySunday = 7
)

// Routine is a user-defined recurring schedule owning zero or more
// routine variables. A routine belongs to exactly one user.
type Routine struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoutineTime is a single scheduled time-of-day entry, stored as "HH:MM".
type RoutineTime struct {
	Time string `json:"time"`
}

// RoutineVariable is a single trackable variable within a routine, with its
// own weekday/time schedule and the default value auto-logged when it fires.
type RoutineVariable struct {
	ID           uuid.UUID     `json:"id"`
	RoutineID    uuid.UUID     `json:"routine_id"`
	VariableID   uuid.UUID     `json:"variable_id"`
	Weekdays     []int         `json:"weekdays"`
	Times        []RoutineTime `json:"times"`
	DefaultValue string        `json:"default_value"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ScheduledVariable is a routine variable joined with its owning user,
// as fetched in one bulk query for a scheduler run.
type ScheduledVariable struct {
	RoutineVariable
	UserID uuid.UUID `json:"user_id"`
}

// RoutineCreate is the payload for creating a routine.
type RoutineCreate struct {
	Name string `json:"name" binding:"required"`
}

// RoutineVariableCreate is the payload for adding a variable to a routine.
type RoutineVariableCreate struct {
	VariableID   uuid.UUID     `json:"variable_id" binding:"required"`
	Weekdays     []int         `json:"weekdays" binding:"required"`
	Times        []RoutineTime `json:"times" binding:"required"`
	DefaultValue string        `json:"default_value"`
}

// RoutineVariableUpdate carries optional fields for updating a routine variable.
type RoutineVariableUpdate struct {
	Weekdays     *[]int         `json:"weekdays,omitempty"`
	Times        *[]RoutineTime `json:"times,omitempty"`
	DefaultValue *string        `json:"default_value,omitempty"`
}

// MatchesWeekday reports whether the ISO weekday (1=Monday..7=Sunday) is in
// the variable's configured weekday set.
func (rv *RoutineVariable) MatchesWeekday(isoWeekday int) bool {
	for _, wd := range rv.Weekdays {
		if wd == isoWeekday {
			return true
		}
	}
	return false
}

// ParseClockTime parses an "HH:MM" string into minutes since midnight.
// Hours must be 0-23 and minutes 0-59.
func ParseClockTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}

// ISOWeekday converts a time.Weekday (Sunday=0) to ISO numbering (Monday=1).
func ISOWeekday(wd time.Weekday) int {
	return (int(wd)+6)%7 + 1
}

// ValidateWeekdays checks that every entry is within 1..7.
func ValidateWeekdays(weekdays []int) error {
	for _, wd := range weekdays {
		if wd < WeekdayMonday || wd > WeekdaySunday {
			return fmt.Errorf("weekday %d out of range 1-7", wd)
		}
	}
	return nil
}
