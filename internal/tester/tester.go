package tester

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/interlock/internal/relmodel"
	"github.com/roach88/interlock/internal/schema"
)

// Tester executes exactly one simulated event against a merged state and
// exposes the post-conditions for assertion.
//
// A Tester is single-use and owned by its Scope: Run may be called once,
// and exactly one of AssertSchemaValid, AssertRelationDataEmpty or
// SkipSchemaValidation must be called before the scope closes.
type Tester struct {
	scope      *Scope
	name       string
	inputState relmodel.State

	stateOut         *relmodel.State
	hasRun           bool
	hasCheckedSchema bool
	diags            []Diagnostic
}

// Name returns the Tester's diagnostic label.
func (t *Tester) Name() string {
	return t.name
}

// Diagnostics returns the advisory notices accumulated so far, in order.
func (t *Tester) Diagnostics() []Diagnostic {
	return t.diags
}

// Run merges the input state with the implementation's state template,
// locates or synthesizes the relation under test, coerces the event, and
// drives it through the runtime. Returns the resulting state.
//
// Run marks the Tester as run even when the merge or the runtime fails:
// the test has consumed its single attempt either way. A second call is
// rejected with a LifecycleError.
func (t *Tester) Run(ctx context.Context, spec EventSpec) (relmodel.State, error) {
	if t.scope.closed {
		return relmodel.State{}, &LifecycleError{
			Code:    CodeNoActiveContext,
			Message: "cannot run: scope is closed",
		}
	}
	if t.hasRun {
		return relmodel.State{}, &LifecycleError{
			Code:    CodeRunRepeated,
			Message: "Run was already called on this Tester; construct a new scope for another run",
		}
	}
	t.hasRun = true

	tctx := t.scope.ctx
	log := tctx.logger()

	template := relmodel.State{}
	if tctx.StateTemplate != nil {
		template = *tctx.StateTemplate
	}

	merged, err := MergeRelations(tctx, template, t.inputState)
	if err != nil {
		return relmodel.State{}, err
	}
	t.diags = append(t.diags, merged.Diagnostics...)
	for _, d := range merged.Diagnostics {
		log.Warn(d.Message, "code", string(d.Code))
	}

	state := template.WithRelations(merged.Relations)

	// The relation this test is about. Guaranteed present post-merge.
	relUnderTest, ok := findRelation(merged.Relations, tctx.Interface)
	if !ok {
		return relmodel.State{}, fmt.Errorf("internal: merge produced no relation with interface %q", tctx.Interface)
	}

	event, err := CoerceEvent(spec, relUnderTest)
	if err != nil {
		return relmodel.State{}, err
	}

	log.Info("running simulated event",
		"interface", tctx.Interface,
		"version", tctx.Version,
		"role", string(tctx.Role),
		"event", event.Name,
	)

	out, err := tctx.Runtime.Run(ctx, tctx.RuntimeConfig, event, state)
	if err != nil {
		return relmodel.State{}, fmt.Errorf("simulated runtime: %w", err)
	}
	t.stateOut = &out
	return out, nil
}

// AssertSchemaValid validates the output relation data against a schema:
// the explicit argument if non-nil, otherwise the context's declared one.
// Every relation matching the tested interface is validated and all
// failures are collected into one SchemaValidationError.
//
// Resolves the Tester's schema decision regardless of outcome.
func (t *Tester) AssertSchemaValid(override *schema.DataBagSchema) error {
	t.hasCheckedSchema = true
	if err := t.checkHasRun(); err != nil {
		return err
	}

	tctx := t.scope.ctx
	s := override
	if s == nil {
		s = tctx.Schema
		if s == nil {
			return &NoSchemaError{
				Interface: tctx.Interface,
				Version:   tctx.Version,
				Role:      tctx.Role,
			}
		}
	}

	var failures []RelationFailure
	for _, rel := range t.stateOut.RelationsWithInterface(tctx.Interface) {
		err := s.Validate(schema.DatabagPair{
			Unit: rel.LocalUnitData,
			App:  rel.LocalAppData,
		})
		if err == nil {
			continue
		}
		failure := RelationFailure{Endpoint: rel.Endpoint, Interface: rel.Interface}
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			failure.Messages = verr.Messages
		} else {
			failure.Messages = []string{err.Error()}
		}
		failures = append(failures, failure)
	}

	if len(failures) > 0 {
		return &SchemaValidationError{Failures: failures}
	}
	return nil
}

// AssertRelationDataEmpty asserts that the implementation wrote no local
// data on any relation matching the tested interface. Resolves the
// Tester's schema decision.
func (t *Tester) AssertRelationDataEmpty() error {
	if err := t.checkHasRun(); err != nil {
		return err
	}
	t.hasCheckedSchema = true

	var failures []RelationFailure
	for _, rel := range t.stateOut.RelationsWithInterface(t.scope.ctx.Interface) {
		var msgs []string
		if !rel.LocalAppData.IsEmpty() {
			msgs = append(msgs, fmt.Sprintf("local app data not empty: %s", renderDatabag(rel.LocalAppData)))
		}
		if !rel.LocalUnitData.IsEmpty() {
			msgs = append(msgs, fmt.Sprintf("local unit data not empty: %s", renderDatabag(rel.LocalUnitData)))
		}
		if len(msgs) > 0 {
			failures = append(failures, RelationFailure{
				Endpoint:  rel.Endpoint,
				Interface: rel.Interface,
				Messages:  msgs,
			})
		}
	}

	if len(failures) > 0 {
		return &SchemaValidationError{Failures: failures}
	}
	return nil
}

// SkipSchemaValidation resolves the Tester's schema decision without
// performing any check. Explicit opt-out for interfaces with no schema.
func (t *Tester) SkipSchemaValidation() error {
	if err := t.checkHasRun(); err != nil {
		return err
	}
	t.hasCheckedSchema = true
	return nil
}

// finalize verifies the Tester completed its lifecycle. Called by
// Scope.Close on every exit path.
func (t *Tester) finalize() error {
	if !t.hasRun {
		return &LifecycleError{
			Code:    CodeRunNotCalled,
			Message: "Tester.Run was never called before the scope closed",
		}
	}
	if !t.hasCheckedSchema {
		return &LifecycleError{
			Code:    CodeSchemaUnresolved,
			Message: "schema decision unresolved: call AssertSchemaValid, AssertRelationDataEmpty or SkipSchemaValidation before the scope closes",
		}
	}
	return nil
}

func (t *Tester) checkHasRun() error {
	if !t.hasRun {
		return &LifecycleError{
			Code:    CodeRunNotCalled,
			Message: "call Tester.Run first",
		}
	}
	if t.stateOut == nil {
		return &LifecycleError{
			Code:    CodeRunNotCalled,
			Message: "Tester.Run did not complete successfully; no output state to assert on",
		}
	}
	return nil
}

func findRelation(rels []relmodel.Relation, iface string) (relmodel.Relation, bool) {
	for _, r := range rels {
		if r.Interface == iface {
			return r, true
		}
	}
	return relmodel.Relation{}, false
}

// renderDatabag produces a stable rendering for failure messages; key
// order never depends on map iteration.
func renderDatabag(d relmodel.Databag) string {
	b, err := relmodel.MarshalCanonicalDatabag(d)
	if err != nil {
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Sprintf("keys %v", keys)
	}
	return string(b)
}
