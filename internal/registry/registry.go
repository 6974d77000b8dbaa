package registry

import (
	"fmt"
	"slices"

	"github.com/vk/repobuild/internal/makefile"
	"github.com/vk/repobuild/internal/node"
	"github.com/vk/repobuild/internal/target"
)

// Module is the interface that all kind packages implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Constructor creates an unparsed node.
type Constructor func(info target.Info, env *node.Env) node.Node

// HeadWriter writes the Makefile prologue shared by all nodes of a kind.
type HeadWriter func(env *node.Env, out *makefile.Makefile)

// Kind describes a registered target kind.
type Kind struct {
	Name string
	New  Constructor
	// WriteMakeHead is optional. The resolver calls it once per kind that
	// has at least one node in the output.
	WriteMakeHead HeadWriter
}

// Registry holds the registered kinds for a single application instance.
type Registry struct {
	kinds map[string]*Kind
}

// New creates and initializes a new Registry, registering every module.
func New(modules ...Module) *Registry {
	r := &Registry{kinds: make(map[string]*Kind)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds a kind. Registering the same name twice is a programming
// error and panics.
func (r *Registry) Register(k Kind) {
	if k.Name == "" || k.New == nil {
		panic("registry: kind must have a name and a constructor")
	}
	if _, exists := r.kinds[k.Name]; exists {
		panic(fmt.Sprintf("registry: kind %q registered twice", k.Name))
	}
	r.kinds[k.Name] = &k
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// NewNode instantiates a node of the named kind. An unknown kind is a
// *node.ConfigError.
func (r *Registry) NewNode(kind string, info target.Info, env *node.Env) (node.Node, error) {
	k, ok := r.kinds[kind]
	if !ok {
		return nil, node.NewConfigError(info, "", "unknown target kind %q", kind)
	}
	return k.New(info, env), nil
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
