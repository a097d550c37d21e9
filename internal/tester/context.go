// Package tester is the conformance test execution core: it merges
// author-provided and implementation-provided states, synthesizes or
// locates the relation under test, drives one simulated event through the
// implementation's runtime, and validates the resulting relation data
// against a declared schema.
//
// Usage shape, from inside a hosted test:
//
//	scope, err := tester.Enter(ctx)        // ctx built by discovery
//	defer func() { err = scope.Close() }() // lifecycle checks on exit
//
//	tst, err := scope.NewTester()
//	out, err := tst.Run(context.Background(), tester.NamedEvent("db-relation-changed"))
//	err = tst.AssertSchemaValid(nil)
//
// The scope handle replaces a process-wide active-context slot: exactly
// one Tester may be live per scope, enforced by ownership rather than a
// global, so sequential test execution needs no shared mutable state.
package tester

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/interlock/internal/relmodel"
	"github.com/roach88/interlock/internal/runtime"
	"github.com/roach88/interlock/internal/schema"
)

// Context describes one interface conformance test invocation: which
// interface/version/role is under test, the schema to validate against,
// the endpoints each role supports, and the runtime configuration needed
// to simulate an event.
//
// A Context is produced by the discovery collaborator, is immutable, and
// is scoped to exactly one test function execution.
type Context struct {
	// Interface is the name of the interface under test.
	Interface string

	// Version is the interface version under test.
	Version int

	// Role is the side of the contract the implementation plays.
	Role relmodel.Role

	// Schema is the declared databag schema for this role, if any.
	Schema *schema.DataBagSchema

	// SupportedEndpoints maps each role to the endpoint names the
	// implementation declares for this interface.
	SupportedEndpoints map[relmodel.Role][]string

	// Runtime executes the simulated event.
	Runtime runtime.Runtime

	// RuntimeConfig is the opaque bundle handed to the runtime.
	RuntimeConfig runtime.Config

	// StateTemplate is the implementation-authored baseline state
	// (config, unrelated relations). Nil means an empty baseline.
	StateTemplate *relmodel.State

	// Logger receives advisory diagnostics. Nil discards them.
	Logger *slog.Logger
}

func (c *Context) validate() error {
	if c.Interface == "" {
		return fmt.Errorf("context: interface name is required")
	}
	if c.Version < 0 {
		return fmt.Errorf("context: version must be non-negative, got %d", c.Version)
	}
	if !c.Role.Valid() {
		return fmt.Errorf("context: invalid role %q", c.Role)
	}
	if c.Runtime == nil {
		return fmt.Errorf("context: runtime is required")
	}
	return nil
}

func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Scope is the activation handle for one Context. It owns the
// one-live-Tester slot and performs lifecycle verification when closed.
//
// A Scope is single-use: Enter opens it, exactly one Tester must be
// constructed, run, and resolve its schema decision before Close.
type Scope struct {
	ctx    *Context
	tester *Tester
	closed bool
}

// Enter activates a Context and returns its Scope handle. The handle
// must be closed on every exit path; Close reports lifecycle violations
// as errors so a forgotten assertion becomes a hard test failure.
func Enter(ctx *Context) (*Scope, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if err := ctx.validate(); err != nil {
		return nil, err
	}
	return &Scope{ctx: ctx}, nil
}

// Context returns the Context this scope activates.
func (s *Scope) Context() *Context {
	return s.ctx
}

// NewTester constructs the single Tester for this scope.
//
// Fails with a LifecycleError if the scope is already closed or if a
// Tester is already live in it.
func (s *Scope) NewTester(opts ...TesterOption) (*Tester, error) {
	if s.closed {
		return nil, &LifecycleError{
			Code:    CodeNoActiveContext,
			Message: "cannot construct a Tester: scope is closed",
		}
	}
	if s.tester != nil {
		return nil, &LifecycleError{
			Code:    CodeTesterAlreadyLive,
			Message: "a Tester is already live in this scope; one Tester per test",
		}
	}

	t := &Tester{
		scope:      s,
		inputState: relmodel.State{},
	}
	for _, opt := range opts {
		opt(t)
	}
	s.tester = t
	return t, nil
}

// Close deactivates the scope and verifies the lifecycle invariants:
// exactly one Tester was constructed, it ran, and it resolved its schema
// decision. Close is idempotent; only the first call performs the checks.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.tester == nil {
		return &LifecycleError{
			Code:    CodeNoTester,
			Message: "no Tester was constructed within the scope",
		}
	}
	return s.tester.finalize()
}

// TesterOption configures a Tester at construction.
type TesterOption func(*Tester)

// WithInputState sets the test-author-provided input state. Defaults to
// an empty State.
func WithInputState(st relmodel.State) TesterOption {
	return func(t *Tester) {
		t.inputState = st.Clone()
	}
}

// WithName labels the Tester for diagnostics. Defaults to the empty
// string.
func WithName(name string) TesterOption {
	return func(t *Tester) {
		t.name = name
	}
}
