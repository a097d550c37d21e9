package tester

import (
	"fmt"

	"github.com/roach88/interlock/internal/relmodel"
)

// DiagnosticCode categorizes advisory merge notices.
type DiagnosticCode string

const (
	// DiagTemplateRelationDiscarded notes a tested-interface relation
	// found in the state template; the interface test's own specification
	// always wins over template leakage.
	DiagTemplateRelationDiscarded DiagnosticCode = "TEMPLATE_RELATION_DISCARDED"

	// DiagIrrelevantRelationIgnored notes an input-state relation whose
	// interface is not the one under test; the input state exists only to
	// describe the relation under test.
	DiagIrrelevantRelationIgnored DiagnosticCode = "IRRELEVANT_RELATION_IGNORED"

	// DiagMultipleInputRelations notes that the input state supplied more
	// than one relation matching the tested interface.
	DiagMultipleInputRelations DiagnosticCode = "MULTIPLE_INPUT_RELATIONS"

	// DiagRelationSynthesized notes that neither state supplied a
	// tested-interface relation, so a default one was constructed.
	DiagRelationSynthesized DiagnosticCode = "RELATION_SYNTHESIZED"
)

// Diagnostic is a structured advisory notice produced while assembling
// the relation list. Diagnostics are not errors; tests can assert on
// them.
type Diagnostic struct {
	Code      DiagnosticCode `json:"code"`
	Message   string         `json:"message"`
	Endpoint  string         `json:"endpoint,omitempty"`
	Interface string         `json:"interface,omitempty"`
}

// MergeResult is the output of the merge engine: the relation list the
// test will actually run with, plus any advisory diagnostics.
type MergeResult struct {
	Relations   []relmodel.Relation
	Diagnostics []Diagnostic
}

// MergeRelations deterministically reconciles the implementation's state
// template with the test author's input state into one relation list.
//
// The ordering guarantees the interface test's declared relation data
// always takes precedence over implementation scaffolding for the
// relation under test, while scaffolding for other interfaces is
// preserved verbatim so the simulated event sees a realistic surrounding
// environment:
//
//  1. Baseline: every template relation whose interface is NOT the tested
//     one. Template relations matching the tested interface are discarded
//     with a diagnostic.
//  2. Every input-state relation matching the tested interface is
//     appended; input-state relations with other interfaces are ignored
//     with a diagnostic.
//  3. If no relation matches the tested interface after 1–2, one is
//     synthesized from the role's supported endpoint list. Zero declared
//     endpoints or more than one is a fatal ConfigError.
//
// Pure function of its arguments; neither input state is mutated.
func MergeRelations(ctx *Context, template, input relmodel.State) (MergeResult, error) {
	var res MergeResult
	iface := ctx.Interface

	for _, rel := range template.Relations {
		if rel.Interface == iface {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Code: DiagTemplateRelationDiscarded,
				Message: fmt.Sprintf(
					"state template contains a relation with interface %q; it will be overwritten by the relation spec provided by the interface test case",
					iface),
				Endpoint:  rel.Endpoint,
				Interface: rel.Interface,
			})
			continue
		}
		res.Relations = append(res.Relations, rel.Clone())
	}

	var fromInput int
	for _, rel := range input.Relations {
		if rel.Interface != iface {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Code: DiagIrrelevantRelationIgnored,
				Message: fmt.Sprintf(
					"irrelevant relation %s in input state for %s/%s; ignored",
					rel, iface, ctx.Role),
				Endpoint:  rel.Endpoint,
				Interface: rel.Interface,
			})
			continue
		}
		res.Relations = append(res.Relations, rel.Clone())
		fromInput++
	}

	if fromInput > 1 {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Code: DiagMultipleInputRelations,
			Message: fmt.Sprintf(
				"input state supplies %d relations with interface %q; all will be included",
				fromInput, iface),
			Interface: iface,
		})
	}

	if fromInput == 0 {
		rel, err := synthesizeRelation(ctx)
		if err != nil {
			return MergeResult{}, err
		}
		res.Relations = append(res.Relations, rel)
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Code: DiagRelationSynthesized,
			Message: fmt.Sprintf(
				"no relation with interface %q supplied; synthesized a default one on endpoint %q",
				iface, rel.Endpoint),
			Endpoint:  rel.Endpoint,
			Interface: iface,
		})
	}

	return res, nil
}

// synthesizeRelation constructs the default relation under test from the
// role's supported endpoint list, which must name exactly one endpoint.
func synthesizeRelation(ctx *Context) (relmodel.Relation, error) {
	endpoints := ctx.SupportedEndpoints[ctx.Role]
	switch {
	case len(endpoints) < 1:
		return relmodel.Relation{}, &ConfigError{
			Code:    ErrCodeNoEndpoint,
			Message: fmt.Sprintf("no endpoint found for %s/%s", ctx.Role, ctx.Interface),
		}
	case len(endpoints) > 1:
		return relmodel.Relation{}, &ConfigError{
			Code: ErrCodeAmbiguousEndpoint,
			Message: fmt.Sprintf(
				"multiple endpoints found for %s/%s: %v: cannot guess which one the test is about",
				ctx.Role, ctx.Interface, endpoints),
		}
	}
	return relmodel.NewRelation(ctx.Interface, endpoints[0]), nil
}
