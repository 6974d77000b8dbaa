package target

import "strings"

// Info uniquely identifies a target. It is a comparable value and is used as
// a map key throughout the resolver.
type Info struct {
	// Package is the slash-separated directory of the declaring BUILD file,
	// relative to the workspace root. The root package is "".
	Package string
	// Name is unique within Package.
	Name string
}

// New returns the Info for name declared in pkg.
func New(pkg, name string) Info {
	return Info{Package: pkg, Name: name}
}

// String returns the canonical "//pkg:name" form.
func (i Info) String() string {
	return "//" + i.Package + ":" + i.Name
}

// Path returns "pkg/name", the path used for per-target build outputs and
// for the phony alias a user types on the make command line.
func (i Info) Path() string {
	if i.Package == "" {
		return i.Name
	}
	return i.Package + "/" + i.Name
}

// IsZero reports whether i is the zero Info.
func (i Info) IsZero() bool {
	return i.Package == "" && i.Name == ""
}

// Less orders targets by package, then name.
func (i Info) Less(other Info) bool {
	if i.Package != other.Package {
		return i.Package < other.Package
	}
	return i.Name < other.Name
}

// Compare returns -1, 0 or +1 following Less. It is suitable for slices.SortFunc.
func Compare(a, b Info) int {
	if c := strings.Compare(a.Package, b.Package); c != 0 {
		return c
	}
	return strings.Compare(a.Name, b.Name)
}
