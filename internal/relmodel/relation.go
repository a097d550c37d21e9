package relmodel

import (
	"fmt"

	"github.com/google/uuid"
)

// Relation is a simulated communication channel instance between two roles.
// It carries app-scoped and unit-scoped databags for both sides.
//
// Relations are compared and filtered by the Interface field; testing code
// is expected to avoid two relations that are indistinguishable on
// Interface+Endpoint within one State.
type Relation struct {
	// ID uniquely identifies this relation instance within a run.
	// Synthesized relations get a UUIDv7; authored relations may leave it
	// empty, in which case it is filled on first clone.
	ID string

	// Interface is the name of the interface contract this relation
	// implements (e.g. "ingress", "tracing").
	Interface string

	// Endpoint is the implementation-local name bound to this relation
	// for the role under test.
	Endpoint string

	// RemoteAppName is the application name on the far side of the
	// relation, if the test cares about it.
	RemoteAppName string

	LocalAppData   Databag
	LocalUnitData  Databag
	RemoteAppData  Databag
	RemoteUnitData Databag
}

// NewRelation constructs a relation with empty databags and a fresh ID.
func NewRelation(iface, endpoint string) Relation {
	return Relation{
		ID:             NewRelationID(),
		Interface:      iface,
		Endpoint:       endpoint,
		LocalAppData:   Databag{},
		LocalUnitData:  Databag{},
		RemoteAppData:  Databag{},
		RemoteUnitData: Databag{},
	}
}

// NewRelationID returns a time-ordered unique relation identifier.
func NewRelationID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clone returns a deep copy of the relation. An empty ID is filled in so
// every live relation instance is identifiable.
func (r Relation) Clone() Relation {
	out := r
	if out.ID == "" {
		out.ID = NewRelationID()
	}
	out.LocalAppData = r.LocalAppData.Clone()
	out.LocalUnitData = r.LocalUnitData.Clone()
	out.RemoteAppData = r.RemoteAppData.Clone()
	out.RemoteUnitData = r.RemoteUnitData.Clone()
	return out
}

// WithEndpoint returns a copy of the relation bound to a different
// endpoint name. Used by event coercion to override the endpoint parsed
// out of a relation event name.
func (r Relation) WithEndpoint(endpoint string) Relation {
	out := r.Clone()
	out.Endpoint = endpoint
	return out
}

// String renders a short identity for diagnostics.
func (r Relation) String() string {
	return fmt.Sprintf("Relation(%s:%s)", r.Endpoint, r.Interface)
}
