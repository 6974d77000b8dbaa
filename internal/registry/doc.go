// Package registry maps target kind names to node constructors.
//
// A Registry is built once per generation run by the application, populated
// by Modules, and passed explicitly to the resolver. There is no global
// registry state.
package registry
