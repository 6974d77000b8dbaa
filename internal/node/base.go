package node

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/vk/repobuild/internal/config"
	"github.com/vk/repobuild/internal/makefile"
	"github.com/vk/repobuild/internal/resource"
	"github.com/vk/repobuild/internal/target"
)

// DependenciesAttr is the attribute every kind reads its dependency list from.
const DependenciesAttr = "dependencies"

// Base carries the identity shared by all kinds. Concrete kinds embed it.
type Base struct {
	info target.Info
	kind string
	env  *Env
	deps []target.Info
}

// NewBase returns a Base for a node of kind.
func NewBase(kind string, info target.Info, env *Env) Base {
	return Base{info: info, kind: kind, env: env}
}

func (b *Base) Target() target.Info { return b.info }
func (b *Base) Kind() string { return b.kind }
func (b *Base) Env() *Env { return b.env }
func (b *Base) Dependencies() []target.Info { return b.deps }

// Errorf returns a ConfigError for this target.
func (b *Base) Errorf(attribute, format string, args ...any) error {
	return NewConfigError(b.info, attribute, format, args...)
}

// CheckAttributes rejects any attribute of desc not in allowed.
func (b *Base) CheckAttributes(desc *config.Target, allowed ...string) error {
	for _, name := range desc.AttributeNames() {
		if !slices.Contains(allowed, name) {
			return b.Errorf(name, "not supported by %s", b.kind)
		}
	}
	return nil
}

// ParseDependencies resolves the dependencies attribute. Duplicates are
// dropped, keeping the first occurrence.
func (b *Base) ParseDependencies(desc *config.Target) error {
	refs, err := desc.StringList(DependenciesAttr)
	if err != nil {
		return b.Errorf(DependenciesAttr, "%v", err)
	}
	b.deps = b.deps[:0]
	for _, ref := range refs {
		dep, err := target.ParseRef(ref, b.info.Package)
		if err != nil {
			return b.Errorf(DependenciesAttr, "%v", err)
		}
		if !slices.Contains(b.deps, dep) {
			b.deps = append(b.deps, dep)
		}
	}
	return nil
}

// ListAttr decodes a list attribute, wrapping failures in a ConfigError.
func (b *Base) ListAttr(desc *config.Target, attribute string) ([]string, error) {
	values, err := desc.StringList(attribute)
	if err != nil {
		return nil, b.Errorf(attribute, "%v", err)
	}
	return values, nil
}

// StringAttr decodes a scalar attribute, wrapping failures in a ConfigError.
func (b *Base) StringAttr(desc *config.Target, attribute string) (string, error) {
	value, _, err := desc.Scalar(attribute)
	if err != nil {
		return "", b.Errorf(attribute, "%v", err)
	}
	return value, nil
}

// SourceFiles resolves package-relative file names into source resources.
// Names may not escape the package.
func (b *Base) SourceFiles(attribute string, files []string) ([]resource.Resource, error) {
	out := make([]resource.Resource, 0, len(files))
	for _, f := range files {
		if err := checkRelative(f); err != nil {
			return nil, b.Errorf(attribute, "%v", err)
		}
		out = append(out, resource.Source(b.info.Package, f))
	}
	return out, nil
}

func checkRelative(file string) error {
	if file == "" {
		return errors.New("empty file name")
	}
	if path.IsAbs(file) {
		return fmt.Errorf("file %q must be relative to the package", file)
	}
	clean := path.Clean(file)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("file %q is outside the package", file)
	}
	return nil
}

// WriteUserTarget adds the phony "pkg/name" alias for a node, depending on
// prereqs, and makes it part of the default goal.
func WriteUserTarget(out *makefile.Makefile, n Node, prereqs ...resource.Resource) error {
	rule := &makefile.Rule{Target: n.Target().Path(), Phony: true}
	for _, p := range prereqs {
		rule.AddPrereqs(p.String())
	}
	if err := out.AddRule(rule); err != nil {
		return err
	}
	out.AddDefault(rule.Target)
	return nil
}

// MkdirCommand creates the directory of the rule target.
const MkdirCommand = "@mkdir -p $(@D)"

// ShellQuote quotes s for a POSIX shell unless it is made of safe characters.
// Make variable references are left intact.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:+,@%$()", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
