package cc

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/repobuild/internal/config"
	"github.com/vk/repobuild/internal/makefile"
	"github.com/vk/repobuild/internal/node"
	"github.com/vk/repobuild/internal/resource"
	"github.com/vk/repobuild/internal/target"
)

// BinaryKind is the kind name of Binary.
const BinaryKind = "cc_binary"

var binaryAttrs = append(slices.Clone(libraryAttrs), "install")

// Binary links an executable from its own objects and every object its
// dependencies export.
type Binary struct {
	*Library
	install bool
}

// NewBinary is the registry constructor for cc_binary.
func NewBinary(info target.Info, env *node.Env) node.Node {
	return &Binary{Library: newLibrary(BinaryKind, info, env)}
}

// Parse implements node.Node.
func (b *Binary) Parse(ctx context.Context, desc *config.Target) error {
	if err := b.CheckAttributes(desc, binaryAttrs...); err != nil {
		return err
	}
	if err := b.Library.parse(desc); err != nil {
		return err
	}
	install, _, err := desc.Bool("install")
	if err != nil {
		return b.Errorf("install", "%v", err)
	}
	b.install = install
	return nil
}

// Output returns the linked executable.
func (b *Binary) Output() resource.Resource {
	return b.Env().ObjPath(b.Target().Package, b.Target().Name)
}

// WriteMakefile implements node.Node.
func (b *Binary) WriteMakefile(deps []node.Node, out *makefile.Makefile) error {
	idx := node.NewIndex(deps...)

	if err := b.writeCompileRules(deps, out); err != nil {
		return err
	}

	inputs, opaque := linkInputs(idx, b.Library, deps)
	if inputs.Len() == 0 {
		return b.Errorf("sources", "binary has nothing to link")
	}

	output := b.Output()
	rule := &makefile.Rule{Target: output.String()}
	rule.AddPrereqs(inputs.Strings()...)
	rule.AddPrereqs(opaque.Strings()...)
	ldflags := append(slices.Clone(b.ldflags), node.LinkFlags(deps)...)
	rule.AddCommands(node.MkdirCommand, linkCommand(linker(inputs), []string{"$(LDFLAGS)"}, inputs, ldflags))
	if err := out.AddRule(rule); err != nil {
		return err
	}

	if b.install {
		install := out.Install()
		install.AddPrereqs(output.String())
		install.AddCommands(
			"$(INSTALL) -d $(DESTDIR)$(BINDIR)",
			fmt.Sprintf("$(INSTALL) -m 755 %s $(DESTDIR)$(BINDIR)/%s", output, output.Base()),
		)
	}
	return node.WriteUserTarget(out, b, output)
}

// ObjectFiles implements node.ObjectProvider. Executables are never link inputs.
func (b *Binary) ObjectFiles(w *node.ObjectWalk, out *resource.FileSet) {}

// Outputs implements node.OutputProvider.
func (b *Binary) Outputs(out *resource.FileSet) {
	out.Add(resource.None, b.Output())
}

// ExportFlags implements node.OutputProvider. Executables export no flags.
func (b *Binary) ExportFlags() (cppflags, ldflags []string) { return nil, nil }

// LinkFlags implements node.FlagProvider. A binary's ldflags stay private.
func (b *Binary) LinkFlags() []string { return nil }
