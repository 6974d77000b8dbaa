// Package target defines the identity of a build target: the package path
// it is declared in and its name within that package.
//
// References in BUILD files take one of the forms
//
//	:name            a target in the current package
//	name             same as :name
//	//pkg/path:name  a target in another package
//	//pkg/path       the target named after the last path element
package target
