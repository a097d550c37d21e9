package relmodel

// State is an immutable snapshot of a simulated runtime's relevant state.
//
// Two instances matter to the harness: the input state (authored by the
// interface-test writer, describes the relation under test) and the state
// template (authored by the implementation under test, describes baseline
// mocking such as config or unrelated relations). Neither is ever mutated
// in place; every transformation produces a new State.
type State struct {
	// Relations is the ordered list of relation instances in this snapshot.
	Relations []Relation

	// Config holds implementation config options. Not owned by the
	// harness core; carried through untouched so the simulated runtime
	// sees a realistic environment.
	Config map[string]any

	// Leader reports whether the simulated unit holds leadership.
	// Carried through untouched, like Config.
	Leader bool
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{
		Relations: make([]Relation, len(s.Relations)),
		Leader:    s.Leader,
	}
	for i, r := range s.Relations {
		out.Relations[i] = r.Clone()
	}
	if s.Config != nil {
		out.Config = make(map[string]any, len(s.Config))
		for k, v := range s.Config {
			out.Config[k] = v
		}
	}
	return out
}

// WithRelations returns a copy of the state with its relation list
// replaced by rels. The other facets are preserved.
func (s State) WithRelations(rels []Relation) State {
	out := s.Clone()
	out.Relations = make([]Relation, len(rels))
	for i, r := range rels {
		out.Relations[i] = r.Clone()
	}
	return out
}

// RelationsWithInterface returns the relations whose Interface equals iface,
// in list order.
func (s State) RelationsWithInterface(iface string) []Relation {
	var out []Relation
	for _, r := range s.Relations {
		if r.Interface == iface {
			out = append(out, r)
		}
	}
	return out
}
