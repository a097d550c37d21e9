package tester

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/interlock/internal/relmodel"
)

// LifecycleCode categorizes lifecycle violations. These are programmer
// errors in how the harness is driven, always surfaced and never
// swallowed.
type LifecycleCode string

const (
	// CodeNoActiveContext indicates an operation outside an open scope.
	CodeNoActiveContext LifecycleCode = "NO_ACTIVE_CONTEXT"

	// CodeTesterAlreadyLive indicates a second Tester was constructed
	// while one is live in the same scope.
	CodeTesterAlreadyLive LifecycleCode = "TESTER_ALREADY_LIVE"

	// CodeNoTester indicates a scope closed without any Tester being
	// constructed.
	CodeNoTester LifecycleCode = "NO_TESTER"

	// CodeRunNotCalled indicates an assertion or finalization before a
	// completed Run.
	CodeRunNotCalled LifecycleCode = "RUN_NOT_CALLED"

	// CodeRunRepeated indicates a second Run on a single-use Tester.
	CodeRunRepeated LifecycleCode = "RUN_REPEATED"

	// CodeSchemaUnresolved indicates a scope closed before the Tester
	// resolved its schema decision.
	CodeSchemaUnresolved LifecycleCode = "SCHEMA_UNRESOLVED"
)

// LifecycleError reports a violation of the harness lifecycle: the
// one-Tester-per-scope rule, the run-exactly-once rule, or the mandatory
// schema resolution before scope exit.
type LifecycleError struct {
	Code    LifecycleCode
	Message string
}

// Error implements the error interface.
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLifecycleError reports whether err is (or wraps) a LifecycleError.
func IsLifecycleError(err error) bool {
	var le *LifecycleError
	return errors.As(err, &le)
}

// ConfigErrorCode categorizes configuration errors in the Test Context.
type ConfigErrorCode string

const (
	// ErrCodeNoEndpoint indicates the role declares no endpoint for the
	// tested interface, so no relation can be synthesized.
	ErrCodeNoEndpoint ConfigErrorCode = "NO_ENDPOINT"

	// ErrCodeAmbiguousEndpoint indicates the role declares more than one
	// endpoint for the tested interface and the harness cannot guess
	// which one the test is about.
	ErrCodeAmbiguousEndpoint ConfigErrorCode = "AMBIGUOUS_ENDPOINT"
)

// ConfigError reports a bad Test Context detected during relation
// merging. Fatal, raised immediately, never retried.
type ConfigError struct {
	Code    ConfigErrorCode
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// InvalidTestCaseError reports a mistake by the test author: a malformed
// event argument, or a relation-kind event missing its bound relation.
// Distinct from lifecycle and schema failures so the hosting framework
// can attribute the failure correctly.
type InvalidTestCaseError struct {
	Message string
}

// Error implements the error interface.
func (e *InvalidTestCaseError) Error() string {
	return "invalid test case: " + e.Message
}

// NoSchemaError reports a schema validation request for a context that
// declares no schema and received no explicit one.
type NoSchemaError struct {
	Interface string
	Version   int
	Role      relmodel.Role
}

// Error implements the error interface.
func (e *NoSchemaError) Error() string {
	return fmt.Sprintf("no schema found for %s/v%d/%s; call SkipSchemaValidation() explicitly or pass a schema",
		e.Interface, e.Version, e.Role)
}

// RelationFailure groups the violations found on one relation.
type RelationFailure struct {
	Endpoint  string
	Interface string
	Messages  []string
}

// SchemaValidationError aggregates validation failures across every
// relation matching the tested interface. Validation never short-circuits
// on the first failing relation; one run surfaces all problems at once.
type SchemaValidationError struct {
	Failures []RelationFailure
}

// Error implements the error interface.
func (e *SchemaValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema validation failed for %d relation(s):", len(e.Failures))
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s:%s:", f.Endpoint, f.Interface)
		for _, m := range f.Messages {
			fmt.Fprintf(&b, "\n    %s", m)
		}
	}
	return b.String()
}

// AllMessages flattens the per-relation failures into one message list.
func (e *SchemaValidationError) AllMessages() []string {
	var out []string
	for _, f := range e.Failures {
		out = append(out, f.Messages...)
	}
	return out
}
