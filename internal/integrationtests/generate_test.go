package integrationtests

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/repobuild/internal/testutil"
)

var workspace = map[string]string{
	"BUILD.hcl": `
		cc_binary "app" {
		  sources      = ["main.cc"]
		  dependencies = ["//lib:greet", "//third_party/zlib"]
		  install      = true
		}
	`,
	"main.cc": "int main() { return 0; }\n",
	"lib/BUILD.hcl": `
		cc_library "util" {
		  sources = glob("util/*.c")
		  headers = ["util/util.h"]
		  cflags  = [format("-DPKG_%s", upper(package))]
		}

		cc_shared_library "greet" {
		  sources              = ["greet.cc"]
		  headers              = ["include/greet.h"]
		  dependencies         = [":util"]
		  version              = "1.2.3"
		  install_strip_prefix = "lib"
		}
	`,
	"lib/util/a.c":        "",
	"lib/util/b.c":        "",
	"lib/util/util.h":     "",
	"lib/greet.cc":        "",
	"lib/include/greet.h": "",
	"third_party/zlib/BUILD.hcl": `
		autoconf "zlib" {
		  configure_args = ["--static"]
		  link_libs      = ["z"]
		}
	`,
	"third_party/zlib/configure": "#!/bin/sh\n",
}

func TestGenerate_FullWorkspace(t *testing.T) {
	result := testutil.RunIntegrationTest(t, workspace)
	require.NoError(t, result.Err)
	mk := result.Makefile

	assert.True(t, strings.HasPrefix(mk, "# Generated by repobuild. DO NOT EDIT.\n"))
	for _, want := range []string{
		"CC = cc\n",
		"SO_LDFLAGS ?= -shared\n",
		"CONFIGURE_FLAGS ?=\n",
		".gen-obj/lib/util/a.c.o: lib/util/a.c lib/util/util.h\n",
		".gen-obj/lib/libutil.a: .gen-obj/lib/util/a.c.o .gen-obj/lib/util/b.c.o\n",
		"\t$(AR) rcs $@ $^\n",
		"-DPKG_LIB",
		"-Wl,-soname,libgreet.so.1",
		".gen-obj/lib/libgreet.so.1: .gen-obj/lib/libgreet.so.1.2.3\n",
		"\t$(LN_S) libgreet.so.1 $@\n",
		".gen-obj/third_party/zlib/zlib.stamp:",
		"./configure --prefix=$(CURDIR)/.gen-obj/third_party/zlib/zlib.install $(CONFIGURE_FLAGS) --static",
		"$(INSTALL) -m 755 .gen-obj/app $(DESTDIR)$(BINDIR)/app\n",
		"$(INSTALL) -m 644 lib/include/greet.h $(DESTDIR)$(INCLUDEDIR)/include/greet.h\n",
		"\trm -rf .gen-obj .gen-files\n",
	} {
		assert.Contains(t, mk, want)
	}

	// The binary links the shared library, not the objects inside it.
	link := ruleBlock(t, mk, ".gen-obj/app:")
	assert.Contains(t, link, ".gen-obj/lib/libgreet.so")
	assert.NotContains(t, link, "util/a.c.o")
	assert.Contains(t, link, "-L$(CURDIR)/.gen-obj/third_party/zlib/zlib.install/lib -lz")

	assert.Contains(t, result.LogOutput, "Makefile written.")
}

func TestGenerate_Deterministic(t *testing.T) {
	root := testutil.WriteWorkspace(t, workspace)

	first := testutil.RunIntegrationTestIn(context.Background(), t, root)
	require.NoError(t, first.Err)
	second := testutil.RunIntegrationTestIn(context.Background(), t, root)
	require.NoError(t, second.Err)

	if diff := cmp.Diff(first.Makefile, second.Makefile); diff != "" {
		t.Errorf("Makefile changed between runs (-first +second):\n%s", diff)
	}
}

func TestGenerate_Roots(t *testing.T) {
	result := testutil.RunIntegrationTest(t, workspace, testutil.WithTargets("//lib:greet"))
	require.NoError(t, result.Err)

	assert.Contains(t, result.Makefile, "all: lib/util lib/greet\n")
	assert.NotContains(t, result.Makefile, "zlib")
	assert.NotContains(t, result.Makefile, ".gen-obj/app:")
}

func TestGenerate_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name: "cycle",
			files: map[string]string{"BUILD.hcl": `
				cc_library "a" { dependencies = [":b"] }
				cc_library "b" { dependencies = [":c"] }
				cc_library "c" { dependencies = [":a"] }
			`},
			want: "dependency cycle: //:a -> //:b -> //:c -> //:a",
		},
		{
			name:  "missing source",
			files: map[string]string{"BUILD.hcl": `cc_library "a" { sources = ["a.c"] }`},
			want:  "prerequisites are neither sources nor rule targets: a.c",
		},
		{
			name:  "undeclared dependency",
			files: map[string]string{"BUILD.hcl": `cc_library "a" { dependencies = ["//lib:b"] }`},
			want:  "//:a depends on //lib:b, which is not declared",
		},
		{
			name: "duplicate target",
			files: map[string]string{"BUILD.hcl": `
				cc_library "a" {}
				cc_binary "a" {}
			`},
			want: "duplicate target",
		},
		{
			name:  "unsupported attribute",
			files: map[string]string{"BUILD.hcl": `cc_library "a" { srcs = ["a.c"] }`},
			want:  `attribute "srcs"`,
		},
		{
			name:  "dist source without fetcher",
			files: map[string]string{"BUILD.hcl": `autoconf "z" { dist_source = "zlib-1.3" }`},
			want:  "dist_source",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := testutil.RunIntegrationTest(t, tc.files)

			require.ErrorContains(t, result.Err, tc.want)
			assert.NoFileExists(t, filepath.Join(result.Root, "Makefile"))
		})
	}
}

func TestGenerate_DistSource(t *testing.T) {
	dist := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "zlib-1.3"), 0o755))

	result := testutil.RunIntegrationTest(t, map[string]string{
		"BUILD.hcl": `autoconf "zlib" { dist_source = "zlib-1.3" }`,
	}, testutil.WithDistDir(dist))
	require.NoError(t, result.Err)

	assert.Contains(t, result.Makefile, "cp -R "+filepath.Join(dist, "zlib-1.3")+"/. .gen-obj/zlib.build\n")
}

// ruleBlock returns the rule starting with header, continuation lines joined.
func ruleBlock(t *testing.T, mk, header string) string {
	t.Helper()
	start := strings.Index(mk, "\n"+header)
	require.GreaterOrEqual(t, start, 0, "rule %q not found", header)
	block := mk[start+1:]
	if end := strings.Index(block, "\n\n"); end >= 0 {
		block = block[:end]
	}
	return strings.ReplaceAll(block, " \\\n    ", " ")
}
