package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/repobuild/internal/config"
)

// staticLoader returns a fixed model.
type staticLoader struct {
	model *config.Model
	err   error
}

func (l *staticLoader) Load(ctx context.Context, root string) (*config.Model, error) {
	return l.model, l.err
}

func library(name string, attrs map[string]cty.Value) *config.Target {
	return &config.Target{Kind: "cc_library", Name: name, File: "BUILD.hcl", Line: 1, Attributes: attrs}
}

func strs(values ...string) cty.Value {
	out := make([]cty.Value, len(values))
	for i, v := range values {
		out[i] = cty.StringVal(v)
	}
	return cty.ListVal(out)
}

func newTestApp(t *testing.T, root string, loader config.Loader, mutate ...func(*Config)) *App {
	t.Helper()
	cfg := Config{Root: root, LogLevel: "debug"}
	for _, m := range mutate {
		m(&cfg)
	}
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)
	a, err := NewApp(&bytes.Buffer{}, appConfig, loader)
	require.NoError(t, err)
	return a
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(Config{Root: "ws", ObjDir: "./out/"})
	require.NoError(t, err)
	assert.Equal(t, "Makefile", cfg.Output)
	assert.Equal(t, "out", cfg.ObjDir)
	assert.Equal(t, DefaultGenDir, cfg.GenDir)
	assert.Equal(t, DefaultSourceCacheSize, cfg.SourceCacheSize)
	assert.Equal(t, filepath.Join("ws", "Makefile"), cfg.OutputPath())

	root := t.TempDir()
	abs, err := NewConfig(Config{Root: root, Output: filepath.Join(root, "GNUmakefile")})
	require.NoError(t, err)
	assert.Equal(t, "GNUmakefile", abs.Output)
	assert.Equal(t, filepath.Join(root, "GNUmakefile"), abs.OutputPath())

	dotted, err := NewConfig(Config{Root: "ws", Output: "./build.mk"})
	require.NoError(t, err)
	assert.Equal(t, "build.mk", dotted.Output)

	testCases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing root", Config{}, "Root is a required"},
		{"absolute obj dir", Config{Root: "ws", ObjDir: "/obj"}, "ObjDir must be a directory inside the workspace"},
		{"root as gen dir", Config{Root: "ws", GenDir: "."}, "GenDir must be a directory inside the workspace"},
		{"same dirs", Config{Root: "ws", ObjDir: "x", GenDir: "x/"}, "must differ"},
		{"output outside root", Config{Root: "ws", Output: "/tmp/Makefile"}, "must be a file directly in the workspace root"},
		{"output in subdirectory", Config{Root: "ws", Output: "build/Makefile"}, "must be a file directly in the workspace root"},
		{"output escapes root", Config{Root: "ws", Output: "../Makefile"}, "must be a file directly in the workspace root"},
		{"output is a directory", Config{Root: "ws", Output: "."}, "does not name a file"},
		{"bad format", Config{Root: "ws", LogFormat: "xml"}, "invalid log format"},
		{"bad level", Config{Root: "ws", LogLevel: "trace"}, "invalid log level"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestApp_Run(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.c"), nil, 0o644))
	loader := &staticLoader{model: &config.Model{Targets: []*config.Target{
		library("a", map[string]cty.Value{"sources": strs("a.c")}),
	}}}

	a := newTestApp(t, root, loader)
	require.NoError(t, a.Run(context.Background()))

	content, err := os.ReadFile(filepath.Join(root, "Makefile"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Generated by repobuild. DO NOT EDIT.")
	assert.Contains(t, string(content), ".gen-obj/a.c.o: a.c")
	assert.Contains(t, string(content), ".gen-obj/liba.a: .gen-obj/a.c.o")
	assert.Contains(t, string(content), "\trm -rf .gen-obj .gen-files")

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".makefile-", "temporary file left behind")
	}
}

func TestApp_RunFailuresKeepPreviousMakefile(t *testing.T) {
	testCases := []struct {
		name   string
		loader *staticLoader
		mutate func(*Config)
		want   string
	}{
		{
			name:   "load error",
			loader: &staticLoader{err: errors.New("boom")},
			want:   "failed to load build files: boom",
		},
		{
			name: "missing source",
			loader: &staticLoader{model: &config.Model{Targets: []*config.Target{
				library("a", map[string]cty.Value{"sources": strs("missing.c")}),
			}}},
			want: "prerequisites are neither sources nor rule targets: missing.c",
		},
		{
			name: "unknown kind",
			loader: &staticLoader{model: &config.Model{Targets: []*config.Target{
				{Kind: "py_binary", Name: "x", File: "BUILD.hcl", Line: 3},
			}}},
			want: `unknown target kind "py_binary"`,
		},
		{
			name:   "undeclared requested target",
			loader: &staticLoader{model: &config.Model{}},
			mutate: func(c *Config) { c.Targets = []string{"//lib:nope"} },
			want:   "requested target //lib:nope is not declared",
		},
		{
			name:   "malformed requested target",
			loader: &staticLoader{model: &config.Model{}},
			mutate: func(c *Config) { c.Targets = []string{"//lib:"} },
			want:   "missing name",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			makefilePath := filepath.Join(root, "Makefile")
			require.NoError(t, os.WriteFile(makefilePath, []byte("previous\n"), 0o644))

			var mutate []func(*Config)
			if tc.mutate != nil {
				mutate = append(mutate, tc.mutate)
			}
			err := newTestApp(t, root, tc.loader, mutate...).Run(context.Background())

			require.ErrorContains(t, err, tc.want)
			content, readErr := os.ReadFile(makefilePath)
			require.NoError(t, readErr)
			assert.Equal(t, "previous\n", string(content))
		})
	}
}

func TestApp_GenerateRoots(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"a.c", "b.c"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), nil, 0o644))
	}
	loader := &staticLoader{model: &config.Model{Targets: []*config.Target{
		library("a", map[string]cty.Value{"sources": strs("a.c")}),
		library("b", map[string]cty.Value{"sources": strs("b.c")}),
	}}}

	a := newTestApp(t, root, loader, func(c *Config) { c.Targets = []string{":b"} })
	out, err := a.Generate(context.Background())
	require.NoError(t, err)

	assert.True(t, out.HasTarget(".gen-obj/libb.a"))
	assert.False(t, out.HasTarget(".gen-obj/liba.a"))
	assert.Equal(t, []string{"b"}, out.Defaults())
}

func TestNewApp_DistSources(t *testing.T) {
	cfg, err := NewConfig(Config{Root: t.TempDir(), DistDir: "dist"})
	require.NoError(t, err)
	a, err := NewApp(&bytes.Buffer{}, cfg, &staticLoader{})
	require.NoError(t, err)
	assert.NotNil(t, a.env().Sources)

	cfg, err = NewConfig(Config{Root: t.TempDir()})
	require.NoError(t, err)
	a, err = NewApp(&bytes.Buffer{}, cfg, &staticLoader{})
	require.NoError(t, err)
	assert.Nil(t, a.env().Sources)

	assert.Equal(t, []string{"autoconf", "cc_binary", "cc_library", "cc_shared_library"}, a.Registry().Kinds())
}
