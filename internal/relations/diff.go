package relations

import (
	"cmp"
	"slices"

	"github.com/roach88/goalctl/internal/goal"
)

// EdgeSet is a set of edges keyed by identity.
type EdgeSet map[goal.Edge]struct{}

// NewEdgeSet builds a set from edges. Duplicates collapse.
func NewEdgeSet(edges ...goal.Edge) EdgeSet {
	s := make(EdgeSet, len(edges))
	for _, e := range edges {
		s[e] = struct{}{}
	}
	return s
}

// Add inserts e.
func (s EdgeSet) Add(e goal.Edge) {
	s[e] = struct{}{}
}

// Remove deletes e.
func (s EdgeSet) Remove(e goal.Edge) {
	delete(s, e)
}

// Has reports whether e is in the set.
func (s EdgeSet) Has(e goal.Edge) bool {
	_, ok := s[e]
	return ok
}

// Clone returns an independent copy.
func (s EdgeSet) Clone() EdgeSet {
	c := make(EdgeSet, len(s))
	for e := range s {
		c[e] = struct{}{}
	}
	return c
}

// Sorted returns the edges ordered by (From, To, Kind) for deterministic
// iteration.
func (s EdgeSet) Sorted() []goal.Edge {
	out := make([]goal.Edge, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b goal.Edge) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		if c := cmp.Compare(a.To, b.To); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind, b.Kind)
	})
	return out
}

// Diff returns desired - current as toAdd and current - desired as toRemove.
func Diff(current, desired EdgeSet) (toAdd, toRemove EdgeSet) {
	toAdd = make(EdgeSet)
	toRemove = make(EdgeSet)
	for e := range desired {
		if !current.Has(e) {
			toAdd.Add(e)
		}
	}
	for e := range current {
		if !desired.Has(e) {
			toRemove.Add(e)
		}
	}
	return toAdd, toRemove
}

// ParentEdges builds the edges parent→child for every parent ID.
func ParentEdges(child int64, parents []int64) EdgeSet {
	s := make(EdgeSet, len(parents))
	for _, p := range parents {
		s.Add(goal.ChildEdge(p, child))
	}
	return s
}

// ChildEdges builds the edges parent→child for every child ID.
func ChildEdges(parent int64, children []int64) EdgeSet {
	s := make(EdgeSet, len(children))
	for _, c := range children {
		s.Add(goal.ChildEdge(parent, c))
	}
	return s
}

// Incoming filters edges whose target is id.
func Incoming(edges []goal.Edge, id int64) EdgeSet {
	s := make(EdgeSet)
	for _, e := range edges {
		if e.To == id {
			s.Add(e)
		}
	}
	return s
}

// Outgoing filters edges whose source is id.
func Outgoing(edges []goal.Edge, id int64) EdgeSet {
	s := make(EdgeSet)
	for _, e := range edges {
		if e.From == id {
			s.Add(e)
		}
	}
	return s
}
