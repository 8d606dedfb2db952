// Package model defines the domain entities of the appointment/enrollment
// service together with the identity and error types shared by every layer.
package model

import (
	"strings"
	"time"
)

// Appointment is the schedulable event. It has exactly one creator, zero or
// more administrators, an ordered list of named sub-options (additions), and
// the enrollments registered against it.
type Appointment struct {
	ID               string
	Link             string
	Title            string
	Description      string
	Location         string
	Date             *time.Time
	Deadline         *time.Time
	MaxEnrollments   *int
	DriverAddition   bool
	Hidden           bool
	CreatorID        string
	AdministratorIDs []string
	Additions        []Addition
	Enrollments      []Enrollment
	PinnerIDs        []string
	CreatedAt        time.Time
}

// Addition is a named selectable sub-option scoped to one appointment. Name
// is unique within the appointment; Order is the zero-based, contiguous
// display position. Additions are created and destroyed only by reconciling
// a submitted list against the appointment.
type Addition struct {
	ID    string
	Name  string
	Order int
}

// AdditionByID returns the appointment's addition with the given id.
func (a *Appointment) AdditionByID(id string) (Addition, bool) {
	for _, add := range a.Additions {
		if add.ID == id {
			return add, true
		}
	}
	return Addition{}, false
}

// EnrollmentByID returns the appointment's enrollment with the given id.
func (a *Appointment) EnrollmentByID(id string) (Enrollment, bool) {
	for _, e := range a.Enrollments {
		if e.ID == id {
			return e, true
		}
	}
	return Enrollment{}, false
}

// Enrollment is a named registration against an appointment, optionally
// anonymous. CreatorID is empty for enrollments created without a login;
// those remain editable through a capability token derived from the
// enrollment id. CreatedAt orders enrollments chronologically and feeds the
// token derivation context.
type Enrollment struct {
	ID        string
	Name      string
	Comment   string
	CreatorID string
	Additions []Addition
	Driver    *Driver
	Passenger *Passenger
	CreatedAt time.Time
}

// CreatedByUser reports whether the enrollment was created by a logged-in
// subject. This boolean is the only creator information exposed to callers
// who are not the appointment's creator or an administrator.
func (e *Enrollment) CreatedByUser() bool {
	return e.CreatorID != ""
}

// Driver is the driver half of the driver/passenger sub-model enabled by an
// appointment's DriverAddition flag. Service encodes the offered direction
// (1 = outward, 2 = return, 3 = both), Seats the free passenger seats.
type Driver struct {
	Service int
	Seats   int
}

// Passenger is the passenger half of the driver/passenger sub-model.
// Requirement uses the same direction encoding as Driver.Service.
type Passenger struct {
	Requirement int
}

// NormalizeComment trims surrounding whitespace from a submitted comment.
// A comment that is empty after trimming is stored as the empty string.
func NormalizeComment(comment string) string {
	return strings.TrimSpace(comment)
}

// RelationTag is a derived label describing why an appointment matters to an
// identity. An appointment may carry several tags for the same identity,
// each at most once.
type RelationTag string

// Relation tags, in their fixed emission order.
const (
	RelationAdmin    RelationTag = "ADMIN"
	RelationCreator  RelationTag = "CREATOR"
	RelationEnrolled RelationTag = "ENROLLED"
	RelationPinned   RelationTag = "PINNED"
)

// AdditionRef is a client-submitted reference to an addition: either an
// existing addition by id or a new one by name. A ref may carry both; the
// name then wins for duplicate detection while the id drives entity reuse.
type AdditionRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}
