package relations

import (
	"fmt"

	"github.com/roach88/goalctl/internal/goal"
)

// CycleError reports an edge that would close a loop in the hierarchy.
type CycleError struct {
	Edge goal.Edge
	// Path runs from the edge's child back down to its parent.
	Path []int64
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("goal %d cannot be a parent of %d: %d is already below %d", e.Edge.From, e.Edge.To, e.Edge.From, e.Edge.To)
}

// CheckCycles reports the first edge of add that would close a loop once
// remove is taken out of graph and add is put in. Edges are checked in
// sorted order so the result is deterministic.
func CheckCycles(graph, add, remove EdgeSet) error {
	next := graph.Clone()
	for e := range remove {
		next.Remove(e)
	}
	for _, e := range add.Sorted() {
		if path := reach(next, e.To, e.From); path != nil {
			return &CycleError{Edge: e, Path: path}
		}
		next.Add(e)
	}
	return nil
}

// reach returns a path of child links from 'from' to 'to', or nil.
func reach(graph EdgeSet, from, to int64) []int64 {
	children := make(map[int64][]int64)
	for _, e := range graph.Sorted() {
		children[e.From] = append(children[e.From], e.To)
	}

	seen := map[int64]bool{from: true}
	prev := make(map[int64]int64)
	queue := []int64{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == to {
			var path []int64
			for at := to; at != from; at = prev[at] {
				path = append([]int64{at}, path...)
			}
			return append([]int64{from}, path...)
		}
		for _, c := range children[n] {
			if !seen[c] {
				seen[c] = true
				prev[c] = n
				queue = append(queue, c)
			}
		}
	}
	return nil
}
