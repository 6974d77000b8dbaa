package app

import (
	"io"
	"log/slog"

	"github.com/vk/repobuild/internal/config"
	"github.com/vk/repobuild/internal/distsource"
	"github.com/vk/repobuild/internal/node"
	"github.com/vk/repobuild/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	loader   config.Loader
	registry *registry.Registry
	sources  distsource.DistSource
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// With no modules given, the core target kinds are registered.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.New(modules...)
	logger.Debug("Target kinds registered.", "kinds", reg.Kinds())

	sources, err := newDistSource(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		loader:   loader,
		registry: reg,
		sources:  sources,
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// env returns the generation environment for nodes.
func (a *App) env() *node.Env {
	env := &node.Env{
		Root:      a.config.Root,
		ObjDir:    a.config.ObjDir,
		GenDir:    a.config.GenDir,
		Toolchain: a.config.Toolchain,
	}
	if a.sources != nil {
		env.Sources = a.sources
	}
	return env
}
