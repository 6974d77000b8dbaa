package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/repobuild/internal/app"
	"github.com/vk/repobuild/internal/hcl"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Root      string
	Makefile  string
	LogOutput string
	Err       error
}

// Option adjusts the app configuration before a run.
type Option func(*app.Config)

// WithTargets restricts generation to refs and their dependencies.
func WithTargets(refs ...string) Option {
	return func(c *app.Config) { c.Targets = refs }
}

// WithDistDir points the app at a directory of unpacked dist sources.
func WithDistDir(dir string) Option {
	return func(c *app.Config) { c.DistDir = dir }
}

// WriteWorkspace creates a temporary workspace from a map of relative file
// names to contents and returns its root.
func WriteWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(Unindent(content)), 0o644))
	}
	return root
}

// RunIntegrationTest provides a standardized harness for running the full
// generation pipeline on a temporary workspace.
func RunIntegrationTest(t *testing.T, files map[string]string, opts ...Option) *HarnessResult {
	t.Helper()
	return RunIntegrationTestIn(context.Background(), t, WriteWorkspace(t, files), opts...)
}

// RunIntegrationTestIn runs the pipeline on an existing workspace root.
func RunIntegrationTestIn(ctx context.Context, t *testing.T, root string, opts ...Option) *HarnessResult {
	t.Helper()

	cfg := app.Config{Root: root, LogLevel: "debug", LogFormat: "text"}
	for _, opt := range opts {
		opt(&cfg)
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &SafeBuffer{}
	result := &HarnessResult{Root: root}

	testApp, err := app.NewApp(logBuffer, appConfig, hcl.NewLoader(appConfig.ObjDir, appConfig.GenDir))
	if err == nil {
		err = testApp.Run(ctx)
	}
	result.Err = err
	result.LogOutput = logBuffer.String()

	if content, readErr := os.ReadFile(appConfig.OutputPath()); readErr == nil {
		result.Makefile = string(content)
	}

	if os.Getenv("REPOBUILD_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
	}
	return result
}
