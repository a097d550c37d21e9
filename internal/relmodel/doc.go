// Package relmodel defines the value objects shared by the conformance
// harness: roles, relations, simulated state snapshots and events.
//
// All types in this package are value-semantic. State and Relation are
// treated as immutable snapshots: transformations return deep copies and
// never mutate the receiver. This keeps the merge engine a pure function
// and makes test failures reproducible from their inputs.
package relmodel
