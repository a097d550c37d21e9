// Package schema validates relation databags against declared CUE
// contracts.
//
// A schema for one role is a CUE struct with optional "app" and "unit"
// fields, each constraining the corresponding databag scope:
//
//	provider: {
//		app: {
//			url: string
//		}
//	}
//
// Databag values are opaque strings on the wire; values that parse as JSON
// are decoded before unification so schemas can constrain structured
// payloads, matching the convention of JSON-encoded databag fields.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/interlock/internal/relmodel"
)

// DatabagPair is the unit of validation: one relation's local databags,
// split by scope.
type DatabagPair struct {
	Unit relmodel.Databag
	App  relmodel.Databag
}

// DataBagSchema is a compiled databag contract for one role of one
// interface version.
type DataBagSchema struct {
	name  string
	value cue.Value
}

// FromValue wraps a CUE value as a DataBagSchema. The value must be a
// struct; its "app" and "unit" fields, when present, constrain the
// corresponding databag scope. name labels the schema in error messages
// (typically "provider" or "requirer").
func FromValue(name string, v cue.Value) (*DataBagSchema, error) {
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("schema %q: %w", name, err)
	}
	if k := v.IncompleteKind(); k != cue.StructKind {
		return nil, fmt.Errorf("schema %q: expected struct, got %s", name, k)
	}
	return &DataBagSchema{name: name, value: v}, nil
}

// Name returns the schema's label.
func (s *DataBagSchema) Name() string {
	return s.name
}

// Validate checks a databag pair against the schema and returns a
// *ValidationError carrying every violation found, or nil if the pair
// conforms. Validation never short-circuits: all app and unit violations
// are collected in one pass.
func (s *DataBagSchema) Validate(pair DatabagPair) error {
	var msgs []string
	msgs = append(msgs, s.validateScope("app", pair.App)...)
	msgs = append(msgs, s.validateScope("unit", pair.Unit)...)
	if len(msgs) > 0 {
		return &ValidationError{Schema: s.name, Messages: msgs}
	}
	return nil
}

// validateScope unifies one databag against the schema's constraint for
// that scope, if declared. The unified value is checked for concreteness,
// so fields required by the schema but absent from the databag surface as
// incomplete-value errors.
func (s *DataBagSchema) validateScope(scope string, bag relmodel.Databag) []string {
	constraint := s.value.LookupPath(cue.ParsePath(scope))
	if !constraint.Exists() {
		return nil
	}

	data := constraint.Context().Encode(decodeDatabag(bag))
	if err := data.Err(); err != nil {
		return []string{fmt.Sprintf("%s: cannot encode databag: %v", scope, err)}
	}

	unified := constraint.Unify(data)
	err := unified.Validate(cue.Concrete(true), cue.Final())
	if err == nil {
		return nil
	}

	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		msgs = append(msgs, fmt.Sprintf("%s: %s", scope, e.Error()))
	}
	return msgs
}

// decodeDatabag converts string databag values into structured values
// where they parse as JSON, leaving plain strings untouched. Numbers are
// kept as json.Number so integral values unify with CUE int constraints
// instead of degrading to floats.
func decodeDatabag(bag relmodel.Databag) map[string]any {
	out := make(map[string]any, len(bag))
	for k, v := range bag {
		dec := json.NewDecoder(strings.NewReader(v))
		dec.UseNumber()
		var decoded any
		if err := dec.Decode(&decoded); err == nil && !dec.More() {
			out[k] = decoded
		} else {
			out[k] = v
		}
	}
	return out
}

// ValidationError reports every violation found while validating one
// databag pair against one schema.
type ValidationError struct {
	// Schema is the label of the violated schema.
	Schema string

	// Messages lists all violations, one per message.
	Messages []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("databag does not conform to %q schema: %s",
		e.Schema, strings.Join(e.Messages, "; "))
}
