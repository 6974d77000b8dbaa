// Package dag resolves declared targets into a dependency graph and drives
// Makefile generation over it.
//
// Build turns the config model into nodes, resolves every dependency
// reference and rejects cycles. The resulting Graph owns all nodes in a
// single arena; nodes refer to each other only through target.Info.
//
// Ordering is fully deterministic: the topological order is a post-order
// depth-first traversal that starts from targets in declaration order and
// follows dependencies in the order each target declares them. Each node's
// transitive closure is listed in the same traversal order, so identical
// input always yields identical output.
package dag
