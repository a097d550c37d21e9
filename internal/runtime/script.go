package runtime

import (
	"context"

	"github.com/roach88/interlock/internal/relmodel"
)

// Handler transforms state in response to one event. The state argument
// is a private copy; handlers may mutate and return it.
type Handler func(event relmodel.Event, state relmodel.State) (relmodel.State, error)

// ScriptRuntime is a deterministic in-memory Runtime: handlers are keyed
// by event name, and events with no registered handler pass the state
// through unchanged.
//
// It serves two purposes: unit-testing the harness core without a real
// event-handling runtime, and "dry run" CLI execution that checks test
// and schema wiring without an implementation attached.
type ScriptRuntime struct {
	handlers map[string]Handler
}

// NewScriptRuntime creates an empty script runtime.
func NewScriptRuntime() *ScriptRuntime {
	return &ScriptRuntime{handlers: make(map[string]Handler)}
}

// On registers a handler for an event name, replacing any previous
// handler for that name. Returns the receiver for chaining.
func (s *ScriptRuntime) On(eventName string, h Handler) *ScriptRuntime {
	s.handlers[eventName] = h
	return s
}

// Run implements Runtime. The input state is deep-copied before the
// handler sees it, so the caller's snapshot is never mutated.
func (s *ScriptRuntime) Run(_ context.Context, _ Config, event relmodel.Event, state relmodel.State) (relmodel.State, error) {
	h, ok := s.handlers[event.Name]
	if !ok {
		return state.Clone(), nil
	}
	return h(event, state.Clone())
}
