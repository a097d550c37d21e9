// Package collect discovers interface conformance test material from a
// filesystem tree laid out by convention:
//
//	<root>/interfaces/<name>/v<version>/
//	    interface.yaml   charm references per role (optional)
//	    schema.cue       provider/requirer databag schemas (optional)
//
// Test case bodies are Go functions registered in a Registry; discovery
// pairs each registered case with the schema and charm metadata found on
// disk, producing the interface → version → role mapping the runner
// consumes.
package collect

import (
	"fmt"
	"sort"

	"github.com/roach88/interlock/internal/relmodel"
	"github.com/roach88/interlock/internal/tester"
)

// TestFunc is the body of one conformance test case. It receives the
// activated scope handle and drives a Tester through its lifecycle; the
// runner closes the scope and surfaces lifecycle violations.
type TestFunc func(*tester.Scope) error

// TestCase is one registered conformance test.
type TestCase struct {
	Name string
	Run  TestFunc
}

type registryKey struct {
	iface   string
	version int
	role    relmodel.Role
}

// Registry holds registered test cases, keyed by interface, version and
// role. Not safe for concurrent registration; tests register from init
// functions or test setup, sequentially.
type Registry struct {
	cases map[registryKey][]TestCase
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cases: make(map[registryKey][]TestCase)}
}

// Register adds a test case. Registering two cases with the same name for
// the same interface/version/role is an error.
func (r *Registry) Register(iface string, version int, role relmodel.Role, name string, fn TestFunc) error {
	if iface == "" {
		return fmt.Errorf("register %q: interface name is required", name)
	}
	if version < 0 {
		return fmt.Errorf("register %q: version must be non-negative", name)
	}
	if !role.Valid() {
		return fmt.Errorf("register %q: invalid role %q", name, role)
	}
	if name == "" {
		return fmt.Errorf("register: test name is required")
	}
	if fn == nil {
		return fmt.Errorf("register %q: test func is required", name)
	}

	key := registryKey{iface: iface, version: version, role: role}
	for _, tc := range r.cases[key] {
		if tc.Name == name {
			return fmt.Errorf("register %q: duplicate test name for %s/v%d/%s", name, iface, version, role)
		}
	}
	r.cases[key] = append(r.cases[key], TestCase{Name: name, Run: fn})
	return nil
}

// MustRegister is Register that panics on error, for use in init
// functions.
func (r *Registry) MustRegister(iface string, version int, role relmodel.Role, name string, fn TestFunc) {
	if err := r.Register(iface, version, role, name, fn); err != nil {
		panic(err)
	}
}

// Cases returns the registered cases for one interface/version/role,
// sorted by name.
func (r *Registry) Cases(iface string, version int, role relmodel.Role) []TestCase {
	key := registryKey{iface: iface, version: version, role: role}
	out := make([]TestCase, len(r.cases[key]))
	copy(out, r.cases[key])
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by package-level
// Register calls.
func Default() *Registry {
	return defaultRegistry
}

// Register adds a test case to the default registry.
func Register(iface string, version int, role relmodel.Role, name string, fn TestFunc) error {
	return defaultRegistry.Register(iface, version, role, name, fn)
}
