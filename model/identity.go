package model

import "context"

// Identity represents the caller of an operation: either an authenticated
// subject, identified by the stable subject id of the identity provider, or
// no caller at all. The engine never issues or validates identity tokens
// itself; an Identity is supplied per request by the transport layer.
type Identity struct {
	subjectID string
}

// Anonymous is the identity of an unauthenticated caller.
var Anonymous = Identity{}

// NewIdentity returns an authenticated Identity for the given subject id.
// An empty subject id yields Anonymous.
func NewIdentity(subjectID string) Identity {
	return Identity{subjectID: subjectID}
}

// Authenticated reports whether the identity belongs to a logged-in subject.
func (id Identity) Authenticated() bool {
	return id.subjectID != ""
}

// SubjectID returns the identity provider's subject id, or the empty string
// for Anonymous.
func (id Identity) SubjectID() string {
	return id.subjectID
}

// Account is the minimal user-directory profile exposed for creators and
// administrators. Resolved by the directory collaborator, never stored here.
type Account struct {
	SubjectID   string `json:"subjectId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type identityKey struct{}

// WithIdentity attaches an Identity to the given context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom extracts the Identity from the context. Requests that never
// passed the authentication middleware yield Anonymous.
func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
