package cc

import (
	"strings"

	"github.com/vk/repobuild/internal/makefile"
	"github.com/vk/repobuild/internal/node"
	"github.com/vk/repobuild/internal/resource"
)

const (
	toolchainHeadKey     = "cc-toolchain"
	sharedLibraryHeadKey = "cc-shared-library"
)

// writeToolchainHead writes the compiler variables every cc kind uses.
func writeToolchainHead(env *node.Env, out *makefile.Makefile) {
	tc := env.Toolchain.WithDefaults()
	out.WriteHead(toolchainHeadKey,
		"CC = "+tc.CC,
		"CXX = "+tc.CXX,
		"AR = "+tc.AR,
		"CFLAGS ?= "+tc.CFLAGS,
		"CXXFLAGS ?= "+tc.CXXFLAGS,
		strings.TrimSpace("LDFLAGS ?= "+tc.LDFLAGS),
		"PIC_FLAG ?= -fPIC",
		"PREFIX ?= "+tc.Prefix,
		"BINDIR ?= $(PREFIX)/bin",
		"INSTALL ?= install",
	)
}

// WriteSharedLibraryHead writes the link-stage variables of shared libraries.
func WriteSharedLibraryHead(env *node.Env, out *makefile.Makefile) {
	writeToolchainHead(env, out)
	out.WriteHead(sharedLibraryHeadKey,
		"SO_LDFLAGS ?= -shared",
		"LN_S ?= ln -sf",
		"LIBDIR ?= $(PREFIX)/lib",
		"INCLUDEDIR ?= $(PREFIX)/include",
	)
}

// compileCommand returns the recipe line compiling $< into $@.
func compileCommand(lang resource.Language, cflags, cxxflags, extra []string) string {
	var parts []string
	switch lang {
	case resource.CPP:
		parts = append(parts, "$(CXX)", "$(CXXFLAGS)", "$(PIC_FLAG)", "-I.")
		parts = append(parts, quoteAll(cflags)...)
		parts = append(parts, quoteAll(cxxflags)...)
	default:
		parts = append(parts, "$(CC)", "$(CFLAGS)", "$(PIC_FLAG)", "-I.")
		parts = append(parts, quoteAll(cflags)...)
	}
	parts = append(parts, quoteAll(extra)...)
	parts = append(parts, "-c", "-o", "$@", "$<")
	return strings.Join(parts, " ")
}

// linker picks the C++ driver when any C++ object is linked.
func linker(inputs *resource.FileSet) string {
	if len(inputs.Filter(resource.CPP)) > 0 {
		return "$(CXX)"
	}
	return "$(CC)"
}

// quoteAll shell-quotes user supplied flags.
func quoteAll(flags []string) []string {
	quoted := make([]string, len(flags))
	for i, f := range flags {
		quoted[i] = node.ShellQuote(f)
	}
	return quoted
}
