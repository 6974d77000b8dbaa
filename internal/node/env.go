package node

import (
	"context"
	"path"

	"github.com/vk/repobuild/internal/resource"
)

// SourceFetcher materializes an externally hosted source tree and returns
// its local path. distsource.DistSource satisfies it.
type SourceFetcher interface {
	Fetch(ctx context.Context, id string) (string, error)
}

// Toolchain holds the values written as overridable Makefile variables.
type Toolchain struct {
	CC       string
	CXX      string
	AR       string
	CFLAGS   string
	CXXFLAGS string
	LDFLAGS  string
	Prefix   string
}

// DefaultToolchain is used for any Toolchain field left empty.
var DefaultToolchain = Toolchain{
	CC:       "cc",
	CXX:      "c++",
	AR:       "ar",
	CFLAGS:   "-O2",
	CXXFLAGS: "-O2",
	Prefix:   "/usr/local",
}

// WithDefaults fills empty fields from DefaultToolchain. LDFLAGS may stay empty.
func (t Toolchain) WithDefaults() Toolchain {
	def := DefaultToolchain
	if t.CC == "" {
		t.CC = def.CC
	}
	if t.CXX == "" {
		t.CXX = def.CXX
	}
	if t.AR == "" {
		t.AR = def.AR
	}
	if t.CFLAGS == "" {
		t.CFLAGS = def.CFLAGS
	}
	if t.CXXFLAGS == "" {
		t.CXXFLAGS = def.CXXFLAGS
	}
	if t.Prefix == "" {
		t.Prefix = def.Prefix
	}
	return t
}

// Env is the generation environment shared by every node.
type Env struct {
	// Root is the workspace directory on disk.
	Root string
	// ObjDir and GenDir are workspace-relative output directories.
	ObjDir    string
	GenDir    string
	Toolchain Toolchain
	// Sources is nil when no source fetcher is configured.
	Sources SourceFetcher
}

// ObjPath returns the output resource for file produced by a target in pkg.
func (e *Env) ObjPath(pkg, file string) resource.Resource {
	return resource.New(e.ObjDir, path.Join(pkg, file))
}

// GenPath returns the resource for a generated file of a target in pkg.
func (e *Env) GenPath(pkg, file string) resource.Resource {
	return resource.New(e.GenDir, path.Join(pkg, file))
}
