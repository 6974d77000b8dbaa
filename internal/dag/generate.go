package dag

import (
	"context"
	"fmt"

	"github.com/vk/repobuild/internal/ctxlog"
	"github.com/vk/repobuild/internal/makefile"
	"github.com/vk/repobuild/internal/target"
)

// WriteMakefile writes every node, or only roots and their transitive
// dependencies when roots are given, into out. Type-level heads are written
// once per kind, in the order kinds first appear.
func (g *Graph) WriteMakefile(ctx context.Context, out *makefile.Makefile, roots ...target.Info) error {
	logger := ctxlog.FromContext(ctx)

	selected := g.order
	if len(roots) > 0 {
		ids := make([]int, 0, len(roots))
		for _, r := range roots {
			i, ok := g.index[r]
			if !ok {
				return fmt.Errorf("requested target %s is not declared", r)
			}
			ids = append(ids, i)
		}
		selected = g.closureOf(ids)
	}

	written := make(map[string]struct{})
	for _, i := range selected {
		kind := g.nodes[i].Kind()
		if _, ok := written[kind]; ok {
			continue
		}
		written[kind] = struct{}{}
		if k, ok := g.registry.Lookup(kind); ok && k.WriteMakeHead != nil {
			k.WriteMakeHead(g.env, out)
		}
	}

	for _, i := range selected {
		n := g.nodes[i]
		if err := n.WriteMakefile(g.lookup(g.closures[i]), out); err != nil {
			return fmt.Errorf("failed to write rules for %s: %w", n.Target(), err)
		}
		logger.Debug("Rules written.", "target", n.Target().String(), "kind", n.Kind(), "deps", len(g.closures[i]))
	}

	out.AddClean(g.env.ObjDir)
	if g.env.GenDir != "" {
		out.AddClean(g.env.GenDir)
	}
	return nil
}
