package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/repobuild/internal/ctxlog"
	"github.com/vk/repobuild/internal/dag"
	"github.com/vk/repobuild/internal/makefile"
	"github.com/vk/repobuild/internal/target"
)

const banner = "Generated by repobuild. DO NOT EDIT."

// Run generates the Makefile and writes it to the configured output. Nothing
// is written unless generation succeeds completely.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	out, err := a.Generate(ctx)
	if err != nil {
		return err
	}

	outPath := a.config.OutputPath()
	if err := writeFileAtomic(outPath, out); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	a.logger.Info("Makefile written.", "path", outPath, "rules", len(out.Rules()))
	return nil
}

// Generate runs the whole pipeline in memory and returns the Makefile.
func (a *App) Generate(ctx context.Context) (*makefile.Makefile, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	model, err := a.loader.Load(ctx, a.config.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to load build files: %w", err)
	}
	a.logger.Debug("Build files loaded.", "targets", len(model.Targets))

	graph, err := dag.Build(ctx, model, a.registry, a.env())
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	a.logger.Debug("Dependency graph built.", "node_count", graph.Len())

	roots := make([]target.Info, 0, len(a.config.Targets))
	for _, ref := range a.config.Targets {
		info, err := target.ParseRef(ref, "")
		if err != nil {
			return nil, err
		}
		roots = append(roots, info)
	}

	out := makefile.New(banner)
	if err := graph.WriteMakefile(ctx, out, roots...); err != nil {
		return nil, err
	}

	if dangling := out.Dangling(a.isSource); len(dangling) > 0 {
		return nil, fmt.Errorf("prerequisites are neither sources nor rule targets: %s", strings.Join(dangling, ", "))
	}
	return out, nil
}

// isSource reports whether a prerequisite exists on disk.
func (a *App) isSource(p string) bool {
	if !filepath.IsAbs(p) {
		p = filepath.Join(a.config.Root, filepath.FromSlash(p))
	}
	_, err := os.Stat(p)
	return err == nil
}

// writeFileAtomic writes out next to path and renames it into place, so a
// failed write never leaves a partial Makefile behind.
func writeFileAtomic(path string, out *makefile.Makefile) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".makefile-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = out.WriteTo(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
