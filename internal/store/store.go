// Package store persists appointments and their enrollments.
package store

import (
	"context"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// Store persists appointments and enrollments.
type Store interface {
	// CreateAppointment persists a new appointment. Returns DUPLICATE_VALUES
	// if the link is already taken.
	CreateAppointment(ctx context.Context, appt model.Appointment) error

	// AppointmentByLink retrieves an appointment by its link, including
	// additions, enrollments, administrators, and pinners. Returns NOT_FOUND
	// if no appointment carries the link.
	AppointmentByLink(ctx context.Context, link string) (model.Appointment, error)

	// UpdateAppointment persists an updated appointment, replacing its
	// additions, administrators, and pinners wholesale.
	UpdateAppointment(ctx context.Context, appt model.Appointment) error

	// LinkExists reports whether an appointment with the given link exists.
	LinkExists(ctx context.Context, link string) (bool, error)

	// RelevantAppointments returns appointments the subject created,
	// administers, enrolled in, or pinned, plus appointments whose links are
	// listed in pinLinks. Ordered by creation time descending.
	RelevantAppointments(ctx context.Context, subjectID string, pinLinks []string) ([]model.Appointment, error)

	// CreateEnrollment adds an enrollment to an appointment.
	CreateEnrollment(ctx context.Context, appointmentID string, enr model.Enrollment) error

	// UpdateEnrollment persists an updated enrollment.
	UpdateEnrollment(ctx context.Context, appointmentID string, enr model.Enrollment) error

	// DeleteEnrollment removes an enrollment from an appointment. Returns
	// NOT_FOUND if the enrollment doesn't exist.
	DeleteEnrollment(ctx context.Context, appointmentID, enrollmentID string) error

	// HealthCheck verifies the store is reachable.
	HealthCheck(ctx context.Context) error
}
