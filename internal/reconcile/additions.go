// Package reconcile turns client-submitted addition lists into the new
// authoritative addition list of an appointment, and resolves the subset an
// enrollment selects. All failures abort the whole run; callers see either
// the fully reconciled list or their unchanged authoritative list plus an
// error.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// Reconciler merges submitted addition references against an authoritative
// list. It carries no state beyond the id generator for newly created
// additions, which is injectable for tests.
type Reconciler struct {
	newID func() string
}

// NewReconciler returns a Reconciler generating UUIDs for new additions.
func NewReconciler() *Reconciler {
	return &Reconciler{newID: uuid.NewString}
}

// NewReconcilerWithIDs returns a Reconciler using the given id generator.
func NewReconcilerWithIDs(newID func() string) *Reconciler {
	return &Reconciler{newID: newID}
}

// Apply reconciles the submitted references against the current
// authoritative list and returns the new list: existing additions referenced
// by id keep their identity and move to their submitted position, names
// unseen in the current list become new additions, and additions absent from
// the submission drop out. Order values are assigned strictly from the final
// zero-based position, so they are unique and gap-free by construction.
//
// Duplicate effective names reject the whole submission with
// DUPLICATE_VALUES enumerating every duplicated name. A reference with an
// unknown id and no name fails with NOT_FOUND naming the id; a reference
// with neither id nor name fails with MISSING_VALUES naming "name".
func (r *Reconciler) Apply(current []model.Addition, submitted []model.AdditionRef) ([]model.Addition, error) {
	if err := checkDuplicateNames(current, submitted); err != nil {
		return nil, err
	}

	out := make([]model.Addition, 0, len(submitted))
	for _, ref := range submitted {
		add, err := r.resolve(current, ref)
		if err != nil {
			return nil, err
		}
		add.Order = len(out)
		out = append(out, add)
	}

	sortByOrder(out)
	return out, nil
}

// resolve maps one submitted reference to its output addition: a reused
// existing entity when the id is known, otherwise a freshly created one.
func (r *Reconciler) resolve(current []model.Addition, ref model.AdditionRef) (model.Addition, error) {
	if ref.ID != "" {
		if existing, ok := lookup(current, ref.ID); ok {
			return existing, nil
		}
		if ref.Name == "" {
			return model.Addition{}, model.NewNotFoundError(
				fmt.Sprintf("addition %q not found", ref.ID),
			)
		}
	}
	if ref.Name == "" {
		return model.Addition{}, model.NewMissingValuesError("name")
	}
	return model.Addition{ID: r.newID(), Name: ref.Name}, nil
}

// checkDuplicateNames computes the effective name of every submitted
// reference and rejects the submission when any name occurs more than once.
// A reference carrying a name contributes that name; an id-only reference
// contributes the resolved current name. Unknown id-only references
// contribute nothing here and surface as NOT_FOUND during resolution.
func checkDuplicateNames(current []model.Addition, submitted []model.AdditionRef) error {
	seen := make(map[string]int, len(submitted))
	for _, ref := range submitted {
		name := ref.Name
		if name == "" && ref.ID != "" {
			if existing, ok := lookup(current, ref.ID); ok {
				name = existing.Name
			}
		}
		if name == "" {
			continue
		}
		seen[name]++
	}

	var duplicates []string
	for name, count := range seen {
		if count > 1 {
			duplicates = append(duplicates, name)
		}
	}
	if len(duplicates) == 0 {
		return nil
	}
	sort.Strings(duplicates)
	return model.NewDuplicateValuesError("Duplicate addition names", duplicates...)
}

// Select resolves the addition ids an enrollment picked against the owning
// appointment's authoritative list. Enrollments never create additions; an
// id that does not belong to the appointment fails with NOT_FOUND naming the
// offending submitted item. The result is deduplicated and ordered by the
// appointment's addition order.
func Select(available []model.Addition, ids []string) ([]model.Addition, error) {
	picked := make([]model.Addition, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		add, ok := lookup(available, id)
		if !ok {
			return nil, model.NewNotFoundError(
				fmt.Sprintf("addition %q not found", id),
			)
		}
		picked = append(picked, add)
	}
	sortByOrder(picked)
	return picked, nil
}

func lookup(additions []model.Addition, id string) (model.Addition, bool) {
	for _, add := range additions {
		if add.ID == id {
			return add, true
		}
	}
	return model.Addition{}, false
}

// sortByOrder sorts ascending by Order. Order values are unique by
// construction, so the tie case of the comparison is unreachable.
func sortByOrder(additions []model.Addition) {
	sort.SliceStable(additions, func(i, j int) bool {
		return additions[i].Order < additions[j].Order
	})
}
