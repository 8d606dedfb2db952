// Package token derives and verifies possession-style capability tokens.
// A token is a keyed digest of an entity id; presenting the correct digest
// is treated as proof of the right to act on that entity, without a login.
package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Codec derives capability tokens from entity ids and a server-side salt.
// The salt is a shared secret: it must stay stable for the lifetime of any
// outstanding token, and rotating it invalidates all of them. Codec holds no
// other state; both operations are pure.
type Codec struct {
	salt string
}

// NewCodec returns a Codec keyed with the given salt.
func NewCodec(salt string) *Codec {
	return &Codec{salt: salt}
}

// Derive computes the capability token for the given entity id:
// hex(SHA-256(entityID || salt)). Deterministic for a fixed salt.
func (c *Codec) Derive(entityID string) string {
	sum := sha256.Sum256([]byte(entityID + c.salt))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether the supplied token proves possession for the given
// entity id. Spaces in the supplied value are normalized back to '+' first,
// undoing the query-string encoding artifact of '+' arriving as ' '. An
// empty entity id or supplied token never verifies.
func (c *Codec) Verify(entityID, supplied string) bool {
	if entityID == "" || supplied == "" {
		return false
	}
	normalized := strings.ReplaceAll(supplied, " ", "+")
	expected := c.Derive(entityID)
	return subtle.ConstantTimeCompare([]byte(normalized), []byte(expected)) == 1
}
