// Package resource provides stable, comparable file identities for build
// artifacts and an order-preserving set of them tagged by language.
package resource

import (
	"path"
	"strings"
)

// Resource names a file as a root directory plus a path relative to it. Two
// resources are equal iff both parts match, so Resource is usable as a map key.
// Paths are always slash-separated since they end up in Makefile text.
type Resource struct {
	Root string
	Path string
}

// New returns a cleaned Resource.
func New(root, rel string) Resource {
	if root != "" {
		root = path.Clean(root)
	}
	return Resource{Root: root, Path: path.Clean(rel)}
}

// Source returns the resource for file declared by a BUILD file in pkg.
// Source resources are relative to the workspace root.
func Source(pkg, file string) Resource {
	return New("", path.Join(pkg, file))
}

// String returns the path as it appears in the generated Makefile.
func (r Resource) String() string {
	if r.Root == "" || r.Root == "." {
		return r.Path
	}
	return r.Root + "/" + r.Path
}

// Dir returns the directory part of the resource, keeping its root.
func (r Resource) Dir() Resource {
	return Resource{Root: r.Root, Path: path.Dir(r.Path)}
}

// Base returns the last element of the path.
func (r Resource) Base() string {
	return path.Base(r.Path)
}

// Ext returns the file extension including the dot.
func (r Resource) Ext() string {
	return path.Ext(r.Path)
}

// WithExt replaces the extension of the resource path.
func (r Resource) WithExt(ext string) Resource {
	return Resource{Root: r.Root, Path: strings.TrimSuffix(r.Path, path.Ext(r.Path)) + ext}
}

// Rebase moves the resource under a different root, keeping its relative path.
func (r Resource) Rebase(root string) Resource {
	return New(root, r.Path)
}

// Join returns a resource for elem below r.
func (r Resource) Join(elem ...string) Resource {
	return New(r.Root, path.Join(append([]string{r.Path}, elem...)...))
}
