package app

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/vk/repobuild/internal/distsource"
	"github.com/vk/repobuild/internal/node"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Root is the workspace directory holding BUILD.hcl files.
	Root string
	// Output is the Makefile name. Recipes use root-relative paths, so it
	// must live directly in Root; an absolute path naming that location is
	// accepted.
	Output string
	// ObjDir and GenDir are workspace-relative output directories.
	ObjDir string
	GenDir string
	// Targets restricts generation to these references and their
	// dependencies. Empty means every declared target.
	Targets []string

	LogFormat string
	LogLevel  string

	Toolchain node.Toolchain

	// DistDir holds unpacked dist sources, one directory per identifier.
	DistDir string
	// ObjectStore is used when its Endpoint is set.
	ObjectStore     distsource.ObjectStoreConfig
	SourceCacheSize int
}

// Defaults applied by NewConfig.
const (
	DefaultOutput          = "Makefile"
	DefaultObjDir          = ".gen-obj"
	DefaultGenDir          = ".gen-files"
	DefaultSourceCacheSize = 64
)

// NewConfig applies defaults and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Root == "" {
		return nil, errors.New("Root is a required configuration field and cannot be empty")
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if cfg.ObjDir == "" {
		cfg.ObjDir = DefaultObjDir
	}
	if cfg.GenDir == "" {
		cfg.GenDir = DefaultGenDir
	}
	if cfg.SourceCacheSize <= 0 {
		cfg.SourceCacheSize = DefaultSourceCacheSize
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	for name, dir := range map[string]*string{"ObjDir": &cfg.ObjDir, "GenDir": &cfg.GenDir} {
		clean := path.Clean(filepath.ToSlash(*dir))
		if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
			return nil, fmt.Errorf("%s must be a directory inside the workspace, got %q", name, *dir)
		}
		*dir = clean
	}
	output, err := makefileName(cfg.Root, cfg.Output)
	if err != nil {
		return nil, err
	}
	cfg.Output = output
	if cfg.ObjDir == cfg.GenDir {
		return nil, fmt.Errorf("ObjDir and GenDir must differ, both are %q", cfg.ObjDir)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	return &cfg, nil
}

// OutputPath returns the Makefile location on disk.
func (c *Config) OutputPath() string {
	return filepath.Join(c.Root, c.Output)
}

// makefileName reduces output to a file name in root, rejecting any other
// directory.
func makefileName(root, output string) (string, error) {
	dir, name := filepath.Split(filepath.Clean(output))
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("Output %q does not name a file", output)
	}
	if dir == "" {
		return name, nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	absDir := filepath.Clean(dir)
	if !filepath.IsAbs(dir) {
		absDir = filepath.Join(absRoot, dir)
	}
	if absDir != absRoot {
		return "", fmt.Errorf("Output %q must be a file directly in the workspace root %q", output, root)
	}
	return name, nil
}
