package dag

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/repobuild/internal/config"
	"github.com/vk/repobuild/internal/ctxlog"
	"github.com/vk/repobuild/internal/node"
	"github.com/vk/repobuild/internal/registry"
	"github.com/vk/repobuild/internal/target"
)

// Graph is the resolved, acyclic dependency graph. Node indices are
// positions in declaration order.
type Graph struct {
	nodes    []node.Node
	index    map[target.Info]int
	edges    [][]int
	order    []int
	closures [][]int

	registry *registry.Registry
	env      *node.Env
}

// Build instantiates and parses a node per declared target, resolves every
// dependency and computes the deterministic order and closures.
func Build(ctx context.Context, model *config.Model, reg *registry.Registry, env *node.Env) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Graph build started.", "targets", len(model.Targets))

	g := &Graph{
		index:    make(map[target.Info]int, len(model.Targets)),
		registry: reg,
		env:      env,
	}

	if err := g.createNodes(ctx, model); err != nil {
		return nil, err
	}
	logger.Debug("Nodes created and parsed.", "count", len(g.nodes))

	if err := g.linkNodes(); err != nil {
		return nil, err
	}
	if err := g.sortNodes(); err != nil {
		return nil, err
	}
	g.computeClosures()

	logger.Debug("Graph build complete.", "nodes", len(g.nodes))
	return g, nil
}

// createNodes instantiates a node per target via the registry and parses it.
func (g *Graph) createNodes(ctx context.Context, model *config.Model) error {
	declared := make(map[target.Info]*config.Target, len(model.Targets))

	for _, desc := range model.Targets {
		info := target.New(desc.Package, desc.Name)
		if err := info.Validate(); err != nil {
			return &node.ConfigError{Target: info, Err: err}
		}
		if prev, ok := declared[info]; ok {
			return node.NewConfigError(info, "", "duplicate target, first declared at %s:%d", prev.File, prev.Line)
		}
		declared[info] = desc

		n, err := g.registry.NewNode(desc.Kind, info, g.env)
		if err != nil {
			return err
		}
		if err := n.Parse(ctxlog.With(ctx, "target", info.String()), desc); err != nil {
			var cfgErr *node.ConfigError
			if errors.As(err, &cfgErr) {
				return err
			}
			return fmt.Errorf("failed to parse %s: %w", info, err)
		}

		g.index[info] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}
	return nil
}

// linkNodes resolves every declared dependency into an edge.
func (g *Graph) linkNodes() error {
	g.edges = make([][]int, len(g.nodes))
	for i, n := range g.nodes {
		for _, dep := range n.Dependencies() {
			j, ok := g.index[dep]
			if !ok {
				return &UnresolvedDependencyError{From: n.Target(), To: dep}
			}
			g.edges[i] = append(g.edges[i], j)
		}
	}
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node declared as info.
func (g *Graph) Node(info target.Info) (node.Node, bool) {
	i, ok := g.index[info]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// Order returns every node in topological order: each node comes after all
// of its transitive dependencies.
func (g *Graph) Order() []node.Node {
	return g.lookup(g.order)
}

// TransitiveDeps returns the full dependency closure of info, in the same
// deterministic order used for generation.
func (g *Graph) TransitiveDeps(info target.Info) ([]node.Node, error) {
	i, ok := g.index[info]
	if !ok {
		return nil, fmt.Errorf("target %s is not declared", info)
	}
	return g.lookup(g.closures[i]), nil
}

func (g *Graph) lookup(ids []int) []node.Node {
	out := make([]node.Node, len(ids))
	for k, id := range ids {
		out[k] = g.nodes[id]
	}
	return out
}
