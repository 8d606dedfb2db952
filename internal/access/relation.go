package access

import "github.com/sebamomann/anmeldesystem-backend-sub000/model"

// Classify derives the relationship tags describing why the appointment is
// relevant to the identity, for "my appointments" listings. extraPinLinks
// lets a caller prove pin-equivalent access purely by knowing an
// appointment's link, without being recorded as a pinner.
//
// Tags are emitted in the fixed order ADMIN, CREATOR, ENROLLED, PINNED, each
// at most once, so listings are stable. Anonymous carries no tags.
func (r *Resolver) Classify(a *model.Appointment, id model.Identity, extraPinLinks []string) []model.RelationTag {
	if !id.Authenticated() {
		return nil
	}

	var tags []model.RelationTag
	if r.IsAdministrator(a, id) {
		tags = append(tags, model.RelationAdmin)
	}
	if r.IsCreator(a, id) {
		tags = append(tags, model.RelationCreator)
	}
	if enrolledBy(a, id.SubjectID()) {
		tags = append(tags, model.RelationEnrolled)
	}
	if pinnedBy(a, id.SubjectID()) || linkListed(a.Link, extraPinLinks) {
		tags = append(tags, model.RelationPinned)
	}
	return tags
}

func enrolledBy(a *model.Appointment, subjectID string) bool {
	for _, e := range a.Enrollments {
		if e.CreatorID == subjectID {
			return true
		}
	}
	return false
}

func pinnedBy(a *model.Appointment, subjectID string) bool {
	for _, pinnerID := range a.PinnerIDs {
		if pinnerID == subjectID {
			return true
		}
	}
	return false
}

func linkListed(link string, links []string) bool {
	for _, l := range links {
		if l == link {
			return true
		}
	}
	return false
}
