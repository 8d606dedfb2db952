package access

import (
	"net/url"
	"strings"

	"github.com/sebamomann/anmeldesystem-backend-sub000/model"
)

// TokenPair couples a candidate enrollment id with the capability token the
// caller supplied for it.
type TokenPair struct {
	ID    string
	Token string
}

// ParseTokenPairs extracts (id, token) pairs from a raw query string. Any
// parameter whose name starts with "perm" is an id, any parameter whose name
// starts with "token" is a token; the i-th id is paired with the i-th token
// by order of appearance, regardless of numeric suffixes. Ids without a
// token at their position stay in the result with an empty token and simply
// never verify.
//
// Pairing is positional rather than suffix-matched to stay compatible with
// existing clients, which emit the parameters in insertion order.
func ParseTokenPairs(rawQuery string) []TokenPair {
	var ids, tokens []string

	for _, segment := range strings.Split(rawQuery, "&") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			decoded = value
		}
		switch {
		case strings.HasPrefix(key, "perm"):
			ids = append(ids, decoded)
		case strings.HasPrefix(key, "token"):
			tokens = append(tokens, decoded)
		}
	}

	pairs := make([]TokenPair, len(ids))
	for i, id := range ids {
		pairs[i] = TokenPair{ID: id}
		if i < len(tokens) {
			pairs[i].Token = tokens[i]
		}
	}
	return pairs
}

// VisibleEnrollments returns the enrollments the caller may see. For a
// hidden appointment the roster is filtered unless the caller is the
// creator or an administrator: the result is every enrollment whose id the
// caller proved possession of through a verifying token pair, plus every
// enrollment the caller authored. An appointment that is not hidden passes
// its full roster through.
func (r *Resolver) VisibleEnrollments(a *model.Appointment, id model.Identity, pairs []TokenPair) []model.Enrollment {
	if !a.Hidden || r.CanManageAppointment(a, id) {
		return a.Enrollments
	}

	valid := make(map[string]bool, len(pairs))
	for _, pair := range pairs {
		if r.tokens.Verify(pair.ID, pair.Token) {
			valid[pair.ID] = true
		}
	}

	var visible []model.Enrollment
	for _, e := range a.Enrollments {
		if valid[e.ID] {
			visible = append(visible, e)
			continue
		}
		if id.Authenticated() && e.CreatorID == id.SubjectID() {
			visible = append(visible, e)
		}
	}
	return visible
}
