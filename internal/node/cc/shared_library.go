package cc

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/vk/repobuild/internal/config"
	"github.com/vk/repobuild/internal/makefile"
	"github.com/vk/repobuild/internal/node"
	"github.com/vk/repobuild/internal/resource"
	"github.com/vk/repobuild/internal/target"
)

// SharedLibraryKind is the kind name of SharedLibrary.
const SharedLibraryKind = "cc_shared_library"

var sharedLibraryAttrs = append(slices.Clone(libraryAttrs),
	"major_version",
	"minor_version",
	"release_version",
	"version",
	"install_strip_prefix",
	"exported_symbols",
)

var (
	versionNumberRegex = regexp.MustCompile(`^[0-9]+$`)
	versionRegex       = regexp.MustCompile(`^([0-9]+)\.([0-9]+)\.([0-9]+)$`)
)

// SharedLibrary links its objects and those of its dependencies into a
// versioned shared object. Dependents link against the shared object rather
// than the objects inside it.
type SharedLibrary struct {
	*Library

	major   string
	minor   string
	release string

	installStripPrefix string
	exportedSymbols    *resource.Resource
}

// NewSharedLibrary is the registry constructor for cc_shared_library.
func NewSharedLibrary(info target.Info, env *node.Env) node.Node {
	return &SharedLibrary{Library: newLibrary(SharedLibraryKind, info, env)}
}

// Parse implements node.Node.
func (s *SharedLibrary) Parse(ctx context.Context, desc *config.Target) error {
	if err := s.CheckAttributes(desc, sharedLibraryAttrs...); err != nil {
		return err
	}
	if err := s.Library.parse(desc); err != nil {
		return err
	}
	if err := s.parseVersion(desc); err != nil {
		return err
	}

	prefix, err := s.StringAttr(desc, "install_strip_prefix")
	if err != nil {
		return err
	}
	if prefix != "" {
		s.installStripPrefix = path.Clean(strings.Trim(prefix, "/"))
	}

	symbols, err := s.StringAttr(desc, "exported_symbols")
	if err != nil {
		return err
	}
	if symbols != "" {
		res, err := s.SourceFiles("exported_symbols", []string{symbols})
		if err != nil {
			return err
		}
		s.exportedSymbols = &res[0]
	}
	return nil
}

// parseVersion accepts either the three numeric attributes or a single
// "X.Y.Z" version string. A component may only be set if the ones before
// it are.
func (s *SharedLibrary) parseVersion(desc *config.Target) error {
	version, err := s.StringAttr(desc, "version")
	if err != nil {
		return err
	}
	if version != "" {
		for _, attr := range []string{"major_version", "minor_version", "release_version"} {
			if desc.Has(attr) {
				return s.Errorf(attr, "cannot be combined with version")
			}
		}
		m := versionRegex.FindStringSubmatch(version)
		if m == nil {
			return s.Errorf("version", "%q does not match MAJOR.MINOR.RELEASE", version)
		}
		s.major, s.minor, s.release = m[1], m[2], m[3]
		return nil
	}

	fields := []struct {
		attr string
		dst  *string
	}{
		{"major_version", &s.major},
		{"minor_version", &s.minor},
		{"release_version", &s.release},
	}
	for i, f := range fields {
		value, err := s.StringAttr(desc, f.attr)
		if err != nil {
			return err
		}
		if value == "" {
			continue
		}
		if !versionNumberRegex.MatchString(value) {
			return s.Errorf(f.attr, "%q is not an unsigned integer", value)
		}
		if i > 0 && *fields[i-1].dst == "" {
			return s.Errorf(f.attr, "requires %s", fields[i-1].attr)
		}
		*f.dst = value
	}
	return nil
}

// versions returns the set version components, most significant first.
func (s *SharedLibrary) versions() []string {
	var v []string
	for _, part := range []string{s.major, s.minor, s.release} {
		if part == "" {
			break
		}
		v = append(v, part)
	}
	return v
}

func (s *SharedLibrary) baseName() string {
	return "lib" + s.Target().Name + ".so"
}

// OutLinkedObj returns the real file the link command produces, e.g.
// libfoo.so.1.2.3, or libfoo.so when unversioned.
func (s *SharedLibrary) OutLinkedObj() resource.Resource {
	name := s.baseName()
	if v := s.versions(); len(v) > 0 {
		name += "." + strings.Join(v, ".")
	}
	return s.Env().ObjPath(s.Target().Package, name)
}

// linkChain returns OutLinkedObj followed by each symlink alias, each
// pointing at the one before it.
func (s *SharedLibrary) linkChain() []resource.Resource {
	chain := []resource.Resource{s.OutLinkedObj()}
	v := s.versions()
	if len(v) == 0 {
		return chain
	}
	pkg := s.Target().Package
	if len(v) > 1 {
		chain = append(chain, s.Env().ObjPath(pkg, s.baseName()+"."+s.major))
	}
	return append(chain, s.Env().ObjPath(pkg, s.baseName()))
}

// soname is the name the dynamic linker records for dependents.
func (s *SharedLibrary) soname() string {
	if s.major == "" {
		return s.baseName()
	}
	return s.baseName() + "." + s.major
}

// WriteMakefile implements node.Node.
func (s *SharedLibrary) WriteMakefile(deps []node.Node, out *makefile.Makefile) error {
	idx := node.NewIndex(append(slices.Clone(deps), s)...)

	if err := s.writeCompileRules(deps, out); err != nil {
		return err
	}
	if err := s.WriteLink(idx, deps, out); err != nil {
		return err
	}

	chain := s.linkChain()
	for i := 1; i < len(chain); i++ {
		err := out.AddRule(&makefile.Rule{
			Target:   chain[i].String(),
			Prereqs:  []string{chain[i-1].String()},
			Commands: []string{"$(LN_S) " + chain[i-1].Base() + " $@"},
		})
		if err != nil {
			return err
		}
	}

	s.WriteInstall(out.Install())
	return node.WriteUserTarget(out, s, chain...)
}

// WriteLink emits the rule producing OutLinkedObj from every object the
// library transitively needs.
func (s *SharedLibrary) WriteLink(idx *node.Index, deps []node.Node, out *makefile.Makefile) error {
	inputs, opaque := linkInputs(idx, s.Library, deps)
	if inputs.Len() == 0 {
		return s.Errorf("sources", "shared library has nothing to link")
	}

	flags := []string{"$(SO_LDFLAGS)", "$(LDFLAGS)", "-Wl,-soname," + s.soname()}
	rule := &makefile.Rule{Target: s.OutLinkedObj().String()}
	rule.AddPrereqs(inputs.Strings()...)
	if s.exportedSymbols != nil {
		rule.AddPrereqs(s.exportedSymbols.String())
		flags = append(flags, "-Wl,--version-script="+s.exportedSymbols.String())
	}
	rule.AddPrereqs(opaque.Strings()...)

	ldflags := append(slices.Clone(s.ldflags), node.LinkFlags(deps)...)
	rule.AddCommands(node.MkdirCommand, linkCommand(linker(inputs), flags, inputs, ldflags))
	return out.AddRule(rule)
}

// DestInstallDir returns the directory res installs into, relative to the
// install root: its package-relative directory with install_strip_prefix
// removed.
func (s *SharedLibrary) DestInstallDir(res resource.Resource) string {
	dir := path.Dir(res.Path)
	if dir == "." {
		dir = ""
	}
	prefix := s.installStripPrefix
	switch {
	case prefix == "" || prefix == ".":
		return dir
	case dir == prefix:
		return ""
	case strings.HasPrefix(dir, prefix+"/"):
		return strings.TrimPrefix(dir, prefix+"/")
	default:
		return dir
	}
}

// WriteInstall appends the commands reproducing the link chain and headers
// under the install root.
func (s *SharedLibrary) WriteInstall(install *makefile.Rule) {
	chain := s.linkChain()
	libDir := joinDest("$(DESTDIR)$(LIBDIR)", s.DestInstallDir(chain[0]))

	for _, c := range chain {
		install.AddPrereqs(c.String())
	}
	install.AddCommands(
		"$(INSTALL) -d "+libDir,
		fmt.Sprintf("$(INSTALL) -m 755 %s %s/%s", chain[0], libDir, chain[0].Base()),
	)
	for i := 1; i < len(chain); i++ {
		install.AddCommands(fmt.Sprintf("$(LN_S) %s %s/%s", chain[i-1].Base(), libDir, chain[i].Base()))
	}

	created := make(map[string]struct{})
	for _, h := range s.headers {
		dir := joinDest("$(DESTDIR)$(INCLUDEDIR)", s.DestInstallDir(h))
		if _, ok := created[dir]; !ok {
			created[dir] = struct{}{}
			install.AddCommands("$(INSTALL) -d " + dir)
		}
		install.AddCommands(fmt.Sprintf("$(INSTALL) -m 644 %s %s/%s", h, dir, h.Base()))
	}
}

// ObjectFiles exports the linked shared object only. The objects linked
// into it are not propagated to dependents.
func (s *SharedLibrary) ObjectFiles(w *node.ObjectWalk, out *resource.FileSet) {
	out.Add(w.Lang(), s.OutLinkedObj())
}

// Outputs implements node.OutputProvider: the linked object and its aliases.
func (s *SharedLibrary) Outputs(out *resource.FileSet) {
	out.AddAll(resource.None, s.linkChain()...)
}

// ExportFlags implements node.OutputProvider.
func (s *SharedLibrary) ExportFlags() (cppflags, ldflags []string) {
	return []string{"-I$(CURDIR)"}, s.libraryFlags()
}

func joinDest(root, dir string) string {
	if dir == "" {
		return root
	}
	return root + "/" + dir
}
