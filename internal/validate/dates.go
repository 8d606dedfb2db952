// Package validate holds the pure field validators shared by the appointment
// service: the date/deadline window check and its creation-time composition.
package validate

import (
	"time"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// Date checks a changed event date against the existing deadline. It fails
// with INVALID_VALUES naming "date" if the date falls before the deadline.
// A missing date or deadline passes; there is nothing to compare.
func Date(date, deadline *time.Time) error {
	if date == nil || deadline == nil {
		return nil
	}
	if date.Before(*deadline) {
		return model.NewInvalidValuesError("date")
	}
	return nil
}

// Deadline checks a changed registration deadline against the existing event
// date. It fails with INVALID_VALUES naming "deadline" if the deadline falls
// after the date. Violations are always hard rejections, never silently
// clamped.
func Deadline(date, deadline *time.Time) error {
	if date == nil || deadline == nil {
		return nil
	}
	if deadline.After(*date) {
		return model.NewInvalidValuesError("deadline")
	}
	return nil
}

// Window validates a submitted (date, deadline) pair together, as on
// appointment creation. The deadline is reported as the offending attribute.
func Window(date, deadline *time.Time) error {
	return Deadline(date, deadline)
}
