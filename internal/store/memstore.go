package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// MemoryStore is an in-memory Store for testing.
type MemoryStore struct {
	mu           sync.RWMutex
	appointments map[string]model.Appointment // key: appointment ID
	linkIndex    map[string]string            // key: link, value: appointment ID
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		appointments: make(map[string]model.Appointment),
		linkIndex:    make(map[string]string),
	}
}

// CreateAppointment persists a new appointment.
func (s *MemoryStore) CreateAppointment(_ context.Context, appt model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.linkIndex[appt.Link]; taken {
		return model.NewDuplicateValuesError("Appointment link already in use", "link")
	}

	s.appointments[appt.ID] = cloneAppointment(appt)
	s.linkIndex[appt.Link] = appt.ID
	return nil
}

// AppointmentByLink retrieves an appointment by its link.
func (s *MemoryStore) AppointmentByLink(_ context.Context, link string) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.linkIndex[link]
	if !exists {
		return model.Appointment{}, model.NewNotFoundError(
			fmt.Sprintf("appointment %q not found", link),
		)
	}
	return cloneAppointment(s.appointments[id]), nil
}

// UpdateAppointment persists an updated appointment.
func (s *MemoryStore) UpdateAppointment(_ context.Context, appt model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.appointments[appt.ID]
	if !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("appointment %q not found", appt.ID),
		)
	}

	if existing.Link != appt.Link {
		if _, taken := s.linkIndex[appt.Link]; taken {
			return model.NewDuplicateValuesError("Appointment link already in use", "link")
		}
		delete(s.linkIndex, existing.Link)
		s.linkIndex[appt.Link] = appt.ID
	}

	s.appointments[appt.ID] = cloneAppointment(appt)
	return nil
}

// LinkExists reports whether an appointment with the given link exists.
func (s *MemoryStore) LinkExists(_ context.Context, link string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.linkIndex[link]
	return exists, nil
}

// RelevantAppointments returns appointments related to the subject.
func (s *MemoryStore) RelevantAppointments(_ context.Context, subjectID string, pinLinks []string) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pinned := make(map[string]bool, len(pinLinks))
	for _, link := range pinLinks {
		pinned[link] = true
	}

	var result []model.Appointment
	for _, appt := range s.appointments {
		if relatesTo(appt, subjectID) || pinned[appt.Link] {
			result = append(result, cloneAppointment(appt))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// CreateEnrollment adds an enrollment to an appointment.
func (s *MemoryStore) CreateEnrollment(_ context.Context, appointmentID string, enr model.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, exists := s.appointments[appointmentID]
	if !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("appointment %q not found", appointmentID),
		)
	}

	appt.Enrollments = append(appt.Enrollments, enr)
	s.appointments[appointmentID] = appt
	return nil
}

// UpdateEnrollment persists an updated enrollment.
func (s *MemoryStore) UpdateEnrollment(_ context.Context, appointmentID string, enr model.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, exists := s.appointments[appointmentID]
	if !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("appointment %q not found", appointmentID),
		)
	}

	for i := range appt.Enrollments {
		if appt.Enrollments[i].ID == enr.ID {
			appt.Enrollments[i] = enr
			s.appointments[appointmentID] = appt
			return nil
		}
	}
	return model.NewNotFoundError(
		fmt.Sprintf("enrollment %q not found", enr.ID),
	)
}

// DeleteEnrollment removes an enrollment from an appointment.
func (s *MemoryStore) DeleteEnrollment(_ context.Context, appointmentID, enrollmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, exists := s.appointments[appointmentID]
	if !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("appointment %q not found", appointmentID),
		)
	}

	for i := range appt.Enrollments {
		if appt.Enrollments[i].ID == enrollmentID {
			appt.Enrollments = append(appt.Enrollments[:i], appt.Enrollments[i+1:]...)
			s.appointments[appointmentID] = appt
			return nil
		}
	}
	return model.NewNotFoundError(
		fmt.Sprintf("enrollment %q not found", enrollmentID),
	)
}

// HealthCheck always succeeds for the in-memory store.
func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}

// Len returns the total number of appointments. For testing.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.appointments)
}

func relatesTo(appt model.Appointment, subjectID string) bool {
	if subjectID == "" {
		return false
	}
	if appt.CreatorID == subjectID {
		return true
	}
	for _, id := range appt.AdministratorIDs {
		if id == subjectID {
			return true
		}
	}
	for _, enr := range appt.Enrollments {
		if enr.CreatorID == subjectID {
			return true
		}
	}
	for _, id := range appt.PinnerIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}

// cloneAppointment deep-copies an appointment so callers cannot mutate
// stored state through shared slices.
func cloneAppointment(appt model.Appointment) model.Appointment {
	out := appt
	out.AdministratorIDs = append([]string(nil), appt.AdministratorIDs...)
	out.PinnerIDs = append([]string(nil), appt.PinnerIDs...)
	out.Additions = append([]model.Addition(nil), appt.Additions...)
	out.Enrollments = make([]model.Enrollment, len(appt.Enrollments))
	for i, enr := range appt.Enrollments {
		out.Enrollments[i] = cloneEnrollment(enr)
	}
	return out
}

func cloneEnrollment(enr model.Enrollment) model.Enrollment {
	out := enr
	out.Additions = append([]model.Addition(nil), enr.Additions...)
	if enr.Driver != nil {
		d := *enr.Driver
		out.Driver = &d
	}
	if enr.Passenger != nil {
		p := *enr.Passenger
		out.Passenger = &p
	}
	return out
}
