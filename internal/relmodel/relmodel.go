package relmodel

import "fmt"

// Role identifies which side of an interface contract a test or an
// implementation plays.
type Role string

const (
	// RoleProvider is the side that provides the interface.
	RoleProvider Role = "provider"

	// RoleRequirer is the side that requires the interface.
	RoleRequirer Role = "requirer"
)

// Roles lists the two valid roles in declaration order.
var Roles = []Role{RoleProvider, RoleRequirer}

// Valid reports whether r is one of the two defined roles.
func (r Role) Valid() bool {
	return r == RoleProvider || r == RoleRequirer
}

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("invalid role %q: must be %q or %q", s, RoleProvider, RoleRequirer)
	}
	return r, nil
}

// Databag is a key/value mapping attached to a relation at either app or
// unit scope. Values are opaque strings; structured payloads are encoded
// as JSON by convention and validated by the schema layer.
type Databag map[string]string

// Clone returns a deep copy of the databag. A nil databag clones to an
// empty, non-nil one so callers can write to the result.
func (d Databag) Clone() Databag {
	out := make(Databag, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether the databag has no entries.
func (d Databag) IsEmpty() bool {
	return len(d) == 0
}
