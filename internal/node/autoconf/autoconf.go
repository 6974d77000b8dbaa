// Package autoconf implements the autoconf target kind: a package built by
// its own configure script and makefile, which the generated Makefile runs
// as an opaque step.
//
// The only output dependents can rely on is the completion stamp. Headers
// and libraries installed under the package prefix are exposed through
// include and library search flags, never as individual rule targets.
package autoconf

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/vk/repobuild/internal/config"
	"github.com/vk/repobuild/internal/ctxlog"
	"github.com/vk/repobuild/internal/makefile"
	"github.com/vk/repobuild/internal/node"
	"github.com/vk/repobuild/internal/registry"
	"github.com/vk/repobuild/internal/resource"
	"github.com/vk/repobuild/internal/target"
)

// Kind is the kind name of Node.
const Kind = "autoconf"

var attrs = []string{
	node.DependenciesAttr,
	"source",
	"dist_source",
	"configure_args",
	"configure_env",
	"make_args",
	"link_libs",
}

// Node runs configure, make and make install for an external source tree.
type Node struct {
	node.Base

	// sourceDir is either workspace-relative or, for fetched sources, absolute.
	sourceDir     string
	configureArgs []string
	configureEnv  map[string]string
	makeArgs      []string
	linkLibs      []string
}

// New is the registry constructor for autoconf.
func New(info target.Info, env *node.Env) node.Node {
	return &Node{Base: node.NewBase(Kind, info, env)}
}

// Module registers the autoconf kind.
type Module struct{}

// Register implements registry.Module.
func (Module) Register(r *registry.Registry) {
	r.Register(registry.Kind{Name: Kind, New: New, WriteMakeHead: writeHead})
}

func writeHead(env *node.Env, out *makefile.Makefile) {
	out.WriteHead("autoconf", "CONFIGURE_FLAGS ?=")
}

// Parse implements node.Node. A dist_source is fetched here so that an
// unavailable source fails generation before any output is produced.
func (n *Node) Parse(ctx context.Context, desc *config.Target) error {
	if err := n.CheckAttributes(desc, attrs...); err != nil {
		return err
	}
	if err := n.ParseDependencies(desc); err != nil {
		return err
	}

	source, err := n.StringAttr(desc, "source")
	if err != nil {
		return err
	}
	distID, err := n.StringAttr(desc, "dist_source")
	if err != nil {
		return err
	}

	switch {
	case source != "" && distID != "":
		return n.Errorf("dist_source", "cannot be combined with source")
	case distID != "":
		fetcher := n.Env().Sources
		if fetcher == nil {
			return n.Errorf("dist_source", "no source fetcher is configured")
		}
		dir, err := fetcher.Fetch(ctx, distID)
		if err != nil {
			return fmt.Errorf("%s: fetching %q: %w", n.Target(), distID, err)
		}
		n.sourceDir = dir
		ctxlog.FromContext(ctx).Debug("Fetched dist source.", "id", distID, "dir", dir)
	default:
		if source == "" {
			source = "."
		}
		res, err := n.SourceFiles("source", []string{source})
		if err != nil {
			return err
		}
		n.sourceDir = res[0].String()
		for _, dir := range []string{n.Env().ObjDir, n.Env().GenDir} {
			if dir != "" && containsDir(n.sourceDir, dir) {
				return n.Errorf("source", "directory %q contains the output directory %q", n.sourceDir, dir)
			}
		}
	}

	if n.configureArgs, err = n.ListAttr(desc, "configure_args"); err != nil {
		return err
	}
	if n.makeArgs, err = n.ListAttr(desc, "make_args"); err != nil {
		return err
	}
	if n.linkLibs, err = n.ListAttr(desc, "link_libs"); err != nil {
		return err
	}
	if n.configureEnv, err = desc.StringMap("configure_env"); err != nil {
		return n.Errorf("configure_env", "%v", err)
	}
	return nil
}

// Stamp is the file touched once the external build has been installed.
func (n *Node) Stamp() resource.Resource {
	return n.Env().ObjPath(n.Target().Package, n.Target().Name+".stamp")
}

func (n *Node) workDir() resource.Resource {
	return n.Env().ObjPath(n.Target().Package, n.Target().Name+".build")
}

// Prefix is the directory the package installs into.
func (n *Node) Prefix() resource.Resource {
	return n.Env().ObjPath(n.Target().Package, n.Target().Name+".install")
}

// WriteMakefile implements node.Node. It writes a single rule producing the
// stamp plus the user alias.
func (n *Node) WriteMakefile(deps []node.Node, out *makefile.Makefile) error {
	work := n.workDir().String()
	prefix := "$(CURDIR)/" + n.Prefix().String()

	var env []string
	for _, key := range sortedKeys(n.configureEnv) {
		env = append(env, key+"="+node.ShellQuote(n.configureEnv[key]))
	}
	cppflags, ldflags := node.ExportFlags(deps)
	if flags := append(node.CompileFlags(deps), cppflags...); len(flags) > 0 {
		env = append(env, "CPPFLAGS="+node.ShellQuote(strings.Join(flags, " ")))
	}
	if flags := append(node.LinkFlags(deps), ldflags...); len(flags) > 0 {
		env = append(env, "LDFLAGS="+node.ShellQuote(strings.Join(flags, " ")))
	}

	configure := []string{"cd", work, "&&"}
	configure = append(configure, env...)
	configure = append(configure, "./configure", "--prefix="+prefix, "$(CONFIGURE_FLAGS)")
	configure = append(configure, quoteAll(n.configureArgs)...)

	build := append([]string{"$(MAKE)", "-C", work}, quoteAll(n.makeArgs)...)

	// The configure script reads dependency headers and links against
	// their archives and shared objects, so all of them must exist first.
	prereqs := node.DependencyFiles(deps)
	prereqs.Merge(node.Outputs(deps))

	rule := &makefile.Rule{
		Target:  n.Stamp().String(),
		Prereqs: prereqs.Strings(),
		Commands: []string{
			"rm -rf " + work,
			"@mkdir -p " + work,
			"cp -R " + node.ShellQuote(n.sourceDir) + "/. " + work,
			strings.Join(configure, " "),
			strings.Join(build, " "),
			"$(MAKE) -C " + work + " install",
			"touch $@",
		},
	}
	if err := out.AddRule(rule); err != nil {
		return err
	}
	return node.WriteUserTarget(out, n, n.Stamp())
}

// DependencyFiles implements node.DependencyFileProvider.
func (n *Node) DependencyFiles(out *resource.FileSet) {
	out.Add(resource.None, n.Stamp())
}

// CompileFlags implements node.FlagProvider.
func (n *Node) CompileFlags() []string {
	return []string{"-I$(CURDIR)/" + path.Join(n.Prefix().String(), "include")}
}

// LinkFlags implements node.FlagProvider.
func (n *Node) LinkFlags() []string {
	flags := []string{"-L$(CURDIR)/" + path.Join(n.Prefix().String(), "lib")}
	for _, lib := range n.linkLibs {
		flags = append(flags, "-l"+lib)
	}
	return flags
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func quoteAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = node.ShellQuote(a)
	}
	return out
}

// containsDir reports whether the workspace-relative directory sub is dir
// or lies below it.
func containsDir(dir, sub string) bool {
	dir, sub = path.Clean(dir), path.Clean(sub)
	return dir == "." || dir == sub || strings.HasPrefix(sub, dir+"/")
}
