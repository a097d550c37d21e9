package relmodel

import (
	"fmt"
	"strings"
)

// RelationEventKinds are the relation lifecycle suffixes recognized in
// event names of the form "<endpoint>-relation-<kind>".
var RelationEventKinds = []string{"created", "joined", "changed", "departed", "broken"}

// Event identifies a simulated lifecycle event, optionally bound to a
// specific relation instance. Relation-kind events must carry a bound
// Relation before they reach the runtime; that binding is enforced by the
// harness during event coercion.
type Event struct {
	// Name is the full event name, e.g. "db-relation-changed" or
	// "update-status".
	Name string

	// Relation is the relation instance a relation-kind event is about.
	// Nil for non-relation events.
	Relation *Relation
}

// NewEvent constructs an unbound event.
func NewEvent(name string) Event {
	return Event{Name: name}
}

// BindRelation returns a copy of the event bound to rel.
func (e Event) BindRelation(rel Relation) Event {
	r := rel.Clone()
	return Event{Name: e.Name, Relation: &r}
}

// IsRelationEvent reports whether the event name matches the
// "<endpoint>-relation-<kind>" pattern.
func (e Event) IsRelationEvent() bool {
	_, _, ok := ParseRelationEventName(e.Name)
	return ok
}

// String renders the event for diagnostics.
func (e Event) String() string {
	if e.Relation != nil {
		return fmt.Sprintf("Event(%s, %s)", e.Name, e.Relation)
	}
	return fmt.Sprintf("Event(%s)", e.Name)
}

// ParseRelationEventName splits a relation event name into its endpoint
// and kind parts. It returns ok=false for names that are not relation
// events, including names with an empty endpoint ("-relation-changed")
// and names with an unrecognized kind.
func ParseRelationEventName(name string) (endpoint, kind string, ok bool) {
	for _, k := range RelationEventKinds {
		suffix := "-relation-" + k
		if strings.HasSuffix(name, suffix) {
			ep := strings.TrimSuffix(name, suffix)
			if ep == "" {
				return "", "", false
			}
			return ep, k, true
		}
	}
	return "", "", false
}
