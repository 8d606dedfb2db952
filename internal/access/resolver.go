// Package access decides, for any (appointment, enrollment, requester)
// triple, who may read which enrollments and who may mutate what. It
// composes identity-based checks with possession-style capability tokens and
// never performs I/O; every answer is a pure function over the snapshots it
// is handed.
package access

import (
	"github.com/sebamomann/anmeldesystem-backend-sub000/internal/token"
	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// Resolver answers read and write eligibility questions. It holds no state
// beyond the capability token codec and never mutates its inputs; callers
// translate a false answer into INSUFFICIENT_PERMISSIONS at the boundary.
type Resolver struct {
	tokens *token.Codec
}

// NewResolver returns a Resolver verifying capability tokens with the given
// codec.
func NewResolver(tokens *token.Codec) *Resolver {
	return &Resolver{tokens: tokens}
}

// IsCreator reports whether the identity is the appointment's creator.
// Anonymous is never a creator.
func (r *Resolver) IsCreator(a *model.Appointment, id model.Identity) bool {
	return id.Authenticated() && id.SubjectID() == a.CreatorID
}

// IsAdministrator reports whether the identity is in the appointment's
// administrator set. An empty set yields false, never an error.
func (r *Resolver) IsAdministrator(a *model.Appointment, id model.Identity) bool {
	if !id.Authenticated() {
		return false
	}
	for _, adminID := range a.AdministratorIDs {
		if adminID == id.SubjectID() {
			return true
		}
	}
	return false
}

// CanManageAppointment reports whether the identity may mutate the
// appointment: update its fields, manage administrators and files, toggle
// visibility, and reconcile additions. Creator or administrator alone
// suffices.
func (r *Resolver) CanManageAppointment(a *model.Appointment, id model.Identity) bool {
	return r.IsCreator(a, id) || r.IsAdministrator(a, id)
}

// CanManageEnrollment reports whether the caller may mutate or delete the
// enrollment. Any one clause suffices: appointment creator, appointment
// administrator, enrollment creator, or possession of a valid capability
// token for the enrollment's id. The token clause is skipped when the
// enrollment has no id yet.
func (r *Resolver) CanManageEnrollment(a *model.Appointment, e *model.Enrollment, id model.Identity, suppliedToken string) bool {
	if r.IsCreator(a, id) || r.IsAdministrator(a, id) {
		return true
	}
	if id.Authenticated() && e.CreatorID != "" && id.SubjectID() == e.CreatorID {
		return true
	}
	if e.ID == "" {
		return false
	}
	return r.tokens.Verify(e.ID, suppliedToken)
}
