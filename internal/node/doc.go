// Package node defines the contract every build target kind implements, the
// optional capabilities a kind may expose to its dependents, and helpers
// shared by the concrete kinds.
//
// A node never holds a pointer to another node. Dependencies are kept as
// target.Info values and looked up through an Index built from the
// transitive dependency list handed to WriteMakefile.
package node
