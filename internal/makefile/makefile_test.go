package makefile

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakefile_WriteTo(t *testing.T) {
	m := New("Generated file.")
	assert.True(t, m.WriteHead("cc", "CC ?= cc", "AR ?= ar"))
	assert.False(t, m.WriteHead("cc", "CC ?= gcc"), "a head is written once per key")

	require.NoError(t, m.AddRule(&Rule{
		Target:   "obj/a.o",
		Prereqs:  []string{"a.c", "a.h"},
		Commands: []string{"@mkdir -p $(@D)", "$(CC) -c -o $@ $<"},
	}))
	require.NoError(t, m.AddRule(&Rule{Target: "pkg/a", Prereqs: []string{"obj/a.o"}, Phony: true}))
	m.AddDefault("pkg/a", "pkg/a")
	m.Install().AddPrereqs("obj/a.o")
	m.Install().AddCommands("install -m 644 obj/a.o $(DESTDIR)/a.o")
	m.AddClean("obj")

	expected := strings.Join([]string{
		"# Generated file.",
		"",
		"CC ?= cc",
		"AR ?= ar",
		"",
		".PHONY: all pkg/a install clean",
		"",
		"all: pkg/a",
		"",
		"obj/a.o: a.c a.h",
		"\t@mkdir -p $(@D)",
		"\t$(CC) -c -o $@ $<",
		"",
		"pkg/a: obj/a.o",
		"",
		"install: obj/a.o",
		"\tinstall -m 644 obj/a.o $(DESTDIR)/a.o",
		"",
		"clean:",
		"\trm -rf obj",
		"",
	}, "\n")

	if diff := cmp.Diff(expected, m.String()); diff != "" {
		t.Errorf("unexpected Makefile (-want +got):\n%s", diff)
	}
}

func TestMakefile_AddRuleErrors(t *testing.T) {
	m := New("")
	require.NoError(t, m.AddRule(&Rule{Target: "x"}))

	assert.ErrorContains(t, m.AddRule(&Rule{Target: "x"}), "duplicate rule")
	assert.ErrorContains(t, m.AddRule(&Rule{Target: "install"}), "reserved")
	assert.ErrorContains(t, m.AddRule(&Rule{}), "no target")
}

func TestMakefile_Dangling(t *testing.T) {
	m := New("")
	require.NoError(t, m.AddRule(&Rule{Target: "b.o", Prereqs: []string{"b.c", "missing.h"}}))
	require.NoError(t, m.AddRule(&Rule{Target: "lib.a", Prereqs: []string{"b.o", "c.o"}}))
	m.AddDefault("lib.a")
	m.Install().AddPrereqs("lib.a", "gone.so")

	isSource := func(p string) bool { return p == "b.c" }
	assert.Equal(t, []string{"missing.h", "c.o", "gone.so"}, m.Dangling(isSource))
}

func TestMakeWriter_Wrapping(t *testing.T) {
	var prereqs []string
	for i := 0; i < 12; i++ {
		prereqs = append(prereqs, strings.Repeat("x", 9))
	}

	var sb strings.Builder
	w := &makeWriter{writer: &sb}
	w.Rule(&Rule{Target: "out", Prereqs: prereqs})
	require.NoError(t, w.err)

	lines := strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n")
	require.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), lineWidth)
	}
	for _, line := range lines[:len(lines)-1] {
		assert.True(t, strings.HasSuffix(line, " \\"), line)
	}
	assert.Equal(t, strings.Join(append([]string{"out:"}, prereqs...), " "),
		strings.Join(strings.Fields(strings.ReplaceAll(sb.String(), "\\\n", "")), " "))
}

func TestMakeWriter_Comment(t *testing.T) {
	var sb strings.Builder
	w := &makeWriter{writer: &sb}
	w.Comment(strings.Repeat("word ", 30) + "\nsecond")
	for _, line := range strings.Split(strings.TrimSuffix(sb.String(), "\n"), "\n") {
		assert.True(t, strings.HasPrefix(line, "# "), line)
		assert.LessOrEqual(t, len(line), lineWidth)
	}
	assert.True(t, strings.HasSuffix(sb.String(), "# second\n"))
}
