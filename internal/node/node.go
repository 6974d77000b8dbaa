package node

import (
	"context"

	"github.com/vk/repobuild/internal/config"
	"github.com/vk/repobuild/internal/makefile"
	"github.com/vk/repobuild/internal/resource"
	"github.com/vk/repobuild/internal/target"
)

// Node is one declared target.
type Node interface {
	// Target returns the identity the node was created with.
	Target() target.Info
	// Kind returns the registered kind name, e.g. "cc_library".
	Kind() string
	// Dependencies returns the declared direct dependencies in declaration
	// order. It is only meaningful after Parse.
	Dependencies() []target.Info
	// Parse populates the node from its description. It returns a
	// *ConfigError for missing, malformed or unsupported attributes.
	Parse(ctx context.Context, desc *config.Target) error
	// WriteMakefile appends the node's rules to out. deps is the full
	// transitive dependency list in resolver order.
	WriteMakefile(deps []Node, out *makefile.Makefile) error
}

// ObjectProvider is implemented by kinds that contribute link inputs.
type ObjectProvider interface {
	// ObjectFiles appends the node's own link inputs for w.Lang(), then
	// visits whichever direct dependencies the kind chooses to propagate.
	ObjectFiles(w *ObjectWalk, out *resource.FileSet)
}

// OutputProvider is implemented by kinds whose build products can be
// consumed by a build the generated rules do not describe, such as an
// external configure script.
type OutputProvider interface {
	// Outputs appends the files the node's rules produce.
	Outputs(out *resource.FileSet)
	// ExportFlags returns the preprocessor and linker flags that locate
	// those outputs from the workspace root.
	ExportFlags() (cppflags, ldflags []string)
}

// DependencyFileProvider is implemented by kinds whose dependents must wait
// on specific files before running their own commands.
type DependencyFileProvider interface {
	DependencyFiles(out *resource.FileSet)
}

// FlagProvider is implemented by kinds that add flags to their dependents'
// compile and link commands.
type FlagProvider interface {
	CompileFlags() []string
	LinkFlags() []string
}

// Index resolves target identities to nodes.
type Index struct {
	nodes map[target.Info]Node
}

// NewIndex indexes nodes by target.
func NewIndex(nodes ...Node) *Index {
	idx := &Index{nodes: make(map[target.Info]Node, len(nodes))}
	for _, n := range nodes {
		idx.nodes[n.Target()] = n
	}
	return idx
}

// Lookup returns the node for info.
func (i *Index) Lookup(info target.Info) (Node, bool) {
	n, ok := i.nodes[info]
	return n, ok
}

// ObjectWalk is one ObjectFiles traversal for a single language. Every
// node contributes at most once per walk, so shared dependencies are not
// revisited through each path leading to them.
type ObjectWalk struct {
	idx     *Index
	lang    resource.Language
	visited map[target.Info]struct{}
}

// NewObjectWalk starts a traversal over the nodes of idx.
func NewObjectWalk(idx *Index, lang resource.Language) *ObjectWalk {
	return &ObjectWalk{idx: idx, lang: lang, visited: make(map[target.Info]struct{})}
}

// Lang returns the language being collected.
func (w *ObjectWalk) Lang() resource.Language {
	return w.lang
}

// Walk collects the objects of n unless the walk already visited it.
func (w *ObjectWalk) Walk(n Node, out *resource.FileSet) {
	if _, ok := w.visited[n.Target()]; ok {
		return
	}
	w.visited[n.Target()] = struct{}{}
	if p, ok := n.(ObjectProvider); ok {
		p.ObjectFiles(w, out)
	}
}

// Visit looks info up in the index and walks it. Unknown targets are skipped.
func (w *ObjectWalk) Visit(info target.Info, out *resource.FileSet) {
	if n, ok := w.idx.Lookup(info); ok {
		w.Walk(n, out)
	}
}

// Outputs collects the build products of every node in deps, in order.
func Outputs(deps []Node) *resource.FileSet {
	files := &resource.FileSet{}
	for _, d := range deps {
		if p, ok := d.(OutputProvider); ok {
			p.Outputs(files)
		}
	}
	return files
}

// ExportFlags collects the exported preprocessor and linker flags of every
// node in deps, in order.
func ExportFlags(deps []Node) (cppflags, ldflags []string) {
	for _, d := range deps {
		if p, ok := d.(OutputProvider); ok {
			c, l := p.ExportFlags()
			cppflags = appendUnique(cppflags, c...)
			ldflags = appendUnique(ldflags, l...)
		}
	}
	return cppflags, ldflags
}

// DependencyFiles collects the dependency files of every node in deps, in order.
func DependencyFiles(deps []Node) *resource.FileSet {
	files := &resource.FileSet{}
	for _, d := range deps {
		if p, ok := d.(DependencyFileProvider); ok {
			p.DependencyFiles(files)
		}
	}
	return files
}

// CompileFlags collects the compile flags every node in deps exports, in order.
func CompileFlags(deps []Node) []string {
	var flags []string
	for _, d := range deps {
		if p, ok := d.(FlagProvider); ok {
			flags = appendUnique(flags, p.CompileFlags()...)
		}
	}
	return flags
}

// LinkFlags collects the link flags every node in deps exports, in order.
func LinkFlags(deps []Node) []string {
	var flags []string
	for _, d := range deps {
		if p, ok := d.(FlagProvider); ok {
			flags = appendUnique(flags, p.LinkFlags()...)
		}
	}
	return flags
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
