// Package cc implements the C and C++ target kinds: cc_library,
// cc_shared_library and cc_binary.
//
// Every source file compiles to its own object under the object directory.
// Libraries expose those objects to dependents through ObjectFiles so that
// a linking target can gather every object it transitively needs. Shared
// libraries stop that propagation and expose their linked binary instead.
package cc
