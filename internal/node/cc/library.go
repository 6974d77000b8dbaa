package cc

import (
	"context"
	"path"
	"strings"

	"github.com/vk/repobuild/internal/config"
	"github.com/vk/repobuild/internal/makefile"
	"github.com/vk/repobuild/internal/node"
	"github.com/vk/repobuild/internal/resource"
	"github.com/vk/repobuild/internal/target"
)

// LibraryKind is the kind name of Library.
const LibraryKind = "cc_library"

var libraryAttrs = []string{
	node.DependenciesAttr,
	"sources",
	"headers",
	"cflags",
	"cxxflags",
	"ldflags",
}

// compileUnit is one source file and the object it compiles to.
type compileUnit struct {
	lang resource.Language
	src  resource.Resource
	obj  resource.Resource
}

// Library compiles its sources into objects and archives them. Dependents
// link against the objects themselves.
type Library struct {
	node.Base

	units   []compileUnit
	objects *resource.FileSet
	headers []resource.Resource

	cflags   []string
	cxxflags []string
	ldflags  []string
}

// NewLibrary is the registry constructor for cc_library.
func NewLibrary(info target.Info, env *node.Env) node.Node {
	return newLibrary(LibraryKind, info, env)
}

func newLibrary(kind string, info target.Info, env *node.Env) *Library {
	return &Library{
		Base:    node.NewBase(kind, info, env),
		objects: &resource.FileSet{},
	}
}

// Parse implements node.Node.
func (l *Library) Parse(ctx context.Context, desc *config.Target) error {
	if err := l.CheckAttributes(desc, libraryAttrs...); err != nil {
		return err
	}
	return l.parse(desc)
}

// parse reads the attributes shared by every cc kind.
func (l *Library) parse(desc *config.Target) error {
	if err := l.ParseDependencies(desc); err != nil {
		return err
	}

	sources, err := l.ListAttr(desc, "sources")
	if err != nil {
		return err
	}
	srcs, err := l.SourceFiles("sources", sources)
	if err != nil {
		return err
	}
	seen := make(map[resource.Resource]struct{}, len(srcs))
	for i, src := range srcs {
		lang := resource.LanguageOf(src.Path)
		if lang == resource.None {
			return l.Errorf("sources", "unsupported source file %q", sources[i])
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		obj := l.Env().ObjPath(l.Target().Package, path.Clean(sources[i])+".o")
		l.units = append(l.units, compileUnit{lang: lang, src: src, obj: obj})
		l.objects.Add(lang, obj)
	}

	headers, err := l.ListAttr(desc, "headers")
	if err != nil {
		return err
	}
	if l.headers, err = l.SourceFiles("headers", headers); err != nil {
		return err
	}

	if l.cflags, err = l.ListAttr(desc, "cflags"); err != nil {
		return err
	}
	if l.cxxflags, err = l.ListAttr(desc, "cxxflags"); err != nil {
		return err
	}
	if l.ldflags, err = l.ListAttr(desc, "ldflags"); err != nil {
		return err
	}
	return nil
}

// Archive returns the static archive resource.
func (l *Library) Archive() resource.Resource {
	return l.Env().ObjPath(l.Target().Package, "lib"+l.Target().Name+".a")
}

// WriteMakefile implements node.Node.
func (l *Library) WriteMakefile(deps []node.Node, out *makefile.Makefile) error {
	if err := l.writeCompileRules(deps, out); err != nil {
		return err
	}
	if len(l.units) == 0 {
		return node.WriteUserTarget(out, l, l.headers...)
	}

	archive := l.Archive()
	err := out.AddRule(&makefile.Rule{
		Target:   archive.String(),
		Prereqs:  l.objects.Strings(),
		Commands: []string{node.MkdirCommand, "rm -f $@", "$(AR) rcs $@ $^"},
	})
	if err != nil {
		return err
	}
	return node.WriteUserTarget(out, l, archive)
}

// writeCompileRules emits one rule per source. Each object waits on the
// dependency files of the whole transitive closure, not just direct deps.
func (l *Library) writeCompileRules(deps []node.Node, out *makefile.Makefile) error {
	depFiles := node.DependencyFiles(deps)
	depFlags := node.CompileFlags(deps)

	for _, u := range l.units {
		rule := &makefile.Rule{Target: u.obj.String()}
		rule.AddPrereqs(u.src.String())
		for _, h := range l.headers {
			rule.AddPrereqs(h.String())
		}
		rule.AddPrereqs(depFiles.Strings()...)
		rule.AddCommands(node.MkdirCommand, compileCommand(u.lang, l.cflags, l.cxxflags, depFlags))
		if err := out.AddRule(rule); err != nil {
			return err
		}
	}
	return nil
}

// ObjectFiles appends the library's own objects for the walk's language,
// then whatever each direct dependency chooses to export.
func (l *Library) ObjectFiles(w *node.ObjectWalk, out *resource.FileSet) {
	out.AddAll(w.Lang(), l.objects.Filter(w.Lang())...)
	for _, dep := range l.Dependencies() {
		w.Visit(dep, out)
	}
}

// DependencyFiles exposes the library headers to dependents' compile rules.
func (l *Library) DependencyFiles(out *resource.FileSet) {
	out.AddAll(resource.None, l.headers...)
}

// CompileFlags implements node.FlagProvider. Library cflags stay private.
func (l *Library) CompileFlags() []string { return nil }

// LinkFlags implements node.FlagProvider.
func (l *Library) LinkFlags() []string { return l.ldflags }

// Outputs implements node.OutputProvider. Header-only libraries produce nothing.
func (l *Library) Outputs(out *resource.FileSet) {
	if len(l.units) > 0 {
		out.Add(resource.None, l.Archive())
	}
}

// ExportFlags implements node.OutputProvider. Headers are included relative
// to the workspace root, as in compile rules.
func (l *Library) ExportFlags() (cppflags, ldflags []string) {
	cppflags = []string{"-I$(CURDIR)"}
	if len(l.units) > 0 {
		ldflags = l.libraryFlags()
	}
	return cppflags, ldflags
}

// libraryFlags returns -L and -l flags naming lib<name> in the output directory.
func (l *Library) libraryFlags() []string {
	dir := path.Dir(l.Archive().String())
	return []string{"-L$(CURDIR)/" + dir, "-l" + l.Target().Name}
}

// linkInputs gathers everything a linking target needs: the objects of src
// and its exported dependencies, plus the completion files of dependencies
// that contribute no objects.
func linkInputs(idx *node.Index, src node.Node, deps []node.Node) (*resource.FileSet, *resource.FileSet) {
	inputs := &resource.FileSet{}
	for _, lang := range resource.Languages {
		node.NewObjectWalk(idx, lang).Walk(src, inputs)
	}

	opaque := &resource.FileSet{}
	for _, d := range deps {
		if _, ok := d.(node.ObjectProvider); ok {
			continue
		}
		if p, ok := d.(node.DependencyFileProvider); ok {
			p.DependencyFiles(opaque)
		}
	}
	return inputs, opaque
}

// linkCommand returns the recipe line producing $@ from inputs.
func linkCommand(driver string, flags []string, inputs *resource.FileSet, ldflags []string) string {
	parts := []string{driver}
	parts = append(parts, flags...)
	parts = append(parts, "-o", "$@")
	parts = append(parts, inputs.Strings()...)
	parts = append(parts, quoteAll(ldflags)...)
	return strings.Join(parts, " ")
}
