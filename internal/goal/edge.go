package goal

import "fmt"

// EdgeKind is the kind of a relationship edge.
type EdgeKind string

// EdgeChild means From is the parent of To.
const EdgeChild EdgeKind = "child"

// Edge is a directed parent→child link between two goals.
type Edge struct {
	From int64    `json:"from"`
	To   int64    `json:"to"`
	Kind EdgeKind `json:"relationship_type"`
}

// ChildEdge builds a child edge from parent to child.
func ChildEdge(parent, child int64) Edge {
	return Edge{From: parent, To: child, Kind: EdgeChild}
}

// Validate checks structural invariants of the edge.
func (e Edge) Validate() error {
	if e.From == 0 || e.To == 0 {
		return fmt.Errorf("edge %d->%d: both endpoints must be saved goals", e.From, e.To)
	}
	if e.From == e.To {
		return fmt.Errorf("edge %d->%d: self-edges are not allowed", e.From, e.To)
	}
	if e.Kind != EdgeChild {
		return fmt.Errorf("edge %d->%d: unknown kind %q", e.From, e.To, e.Kind)
	}
	return nil
}

func (e Edge) String() string {
	return fmt.Sprintf("%d-[%s]->%d", e.From, e.Kind, e.To)
}
