// Package relations computes and caches parent→child edge changes.
//
// Diff is the core: given the edges a node currently has and the edges the
// user wants, it returns the minimal add and remove sets. It is pure and
// idempotent: applying its output and diffing again yields two empty sets.
//
// Cache memoizes the relationship graph for one editing session. The graph is
// fetched at most once per open, and concurrent loaders share one in-flight
// fetch.
package relations
