package tester

import (
	"fmt"

	"github.com/roach88/interlock/internal/relmodel"
)

// EventSpec is the tagged union accepted by Tester.Run: either a bare
// event name or an already-constructed Event. Explicit coercion produces
// a single canonical relmodel.Event before any further processing.
type EventSpec interface {
	isEventSpec()
}

// NamedEvent specifies an event by name alone. Names matching the
// "<endpoint>-relation-<kind>" pattern are bound to the relation under
// test during coercion.
type NamedEvent string

func (NamedEvent) isEventSpec() {}

// BoundEvent specifies a fully constructed event. Relation-kind events
// must already carry their bound relation; the harness will not guess.
type BoundEvent struct {
	Event relmodel.Event
}

func (BoundEvent) isEventSpec() {}

// CoerceEvent converts a raw event spec into a canonical Event, binding
// the relation under test where the spec allows it:
//
//   - A NamedEvent matching "<endpoint>-relation-<kind>" becomes an Event
//     bound to relUnderTest with its endpoint overridden to the parsed
//     endpoint name.
//   - Any other NamedEvent becomes an unbound Event.
//   - A BoundEvent passes through unchanged, except that a relation-kind
//     event with no bound relation is an InvalidTestCaseError: it might
//     not refer to the relation under test, so the caller must bind one
//     explicitly.
//
// Coercion is idempotent on valid bound events.
func CoerceEvent(spec EventSpec, relUnderTest relmodel.Relation) (relmodel.Event, error) {
	switch ev := spec.(type) {
	case NamedEvent:
		name := string(ev)
		if endpoint, _, ok := relmodel.ParseRelationEventName(name); ok {
			return relmodel.NewEvent(name).BindRelation(relUnderTest.WithEndpoint(endpoint)), nil
		}
		return relmodel.NewEvent(name), nil

	case BoundEvent:
		if ev.Event.IsRelationEvent() && ev.Event.Relation == nil {
			return relmodel.Event{}, &InvalidTestCaseError{
				Message: fmt.Sprintf(
					"event %q is a relation event but carries no relation; bind one explicitly with BindRelation",
					ev.Event.Name),
			}
		}
		return ev.Event, nil

	case nil:
		return relmodel.Event{}, &InvalidTestCaseError{
			Message: "nil event spec: expected NamedEvent or BoundEvent",
		}

	default:
		return relmodel.Event{}, &InvalidTestCaseError{
			Message: fmt.Sprintf("unsupported event spec type %T", spec),
		}
	}
}
