package node_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/repobuild/internal/config"
	"github.com/vk/repobuild/internal/makefile"
	"github.com/vk/repobuild/internal/node"
	"github.com/vk/repobuild/internal/resource"
	"github.com/vk/repobuild/internal/target"
)

// countingNode contributes one object per language and counts its visits.
type countingNode struct {
	info   target.Info
	deps   []target.Info
	visits int
	out    []resource.Resource
	flags  []string
}

func (n *countingNode) Target() target.Info                                 { return n.info }
func (n *countingNode) Kind() string                                        { return "fake" }
func (n *countingNode) Dependencies() []target.Info                         { return n.deps }
func (n *countingNode) Parse(context.Context, *config.Target) error         { return nil }
func (n *countingNode) WriteMakefile([]node.Node, *makefile.Makefile) error { return nil }

func (n *countingNode) ObjectFiles(w *node.ObjectWalk, out *resource.FileSet) {
	n.visits++
	out.Add(w.Lang(), resource.New(".gen-obj", n.info.Name+".o"))
	for _, d := range n.deps {
		w.Visit(d, out)
	}
}

func (n *countingNode) Outputs(out *resource.FileSet) { out.AddAll(resource.None, n.out...) }

func (n *countingNode) ExportFlags() ([]string, []string) { return n.flags, n.flags }

func TestObjectWalk_VisitsEachNodeOnce(t *testing.T) {
	const levels = 30
	var nodes []node.Node
	var counters []*countingNode
	for i := 0; i < levels; i++ {
		for _, side := range []string{"a", "b"} {
			n := &countingNode{info: target.New("", fmt.Sprintf("%s%d", side, i))}
			if i < levels-1 {
				n.deps = []target.Info{target.New("", fmt.Sprintf("a%d", i+1)), target.New("", fmt.Sprintf("b%d", i+1))}
			}
			nodes = append(nodes, n)
			counters = append(counters, n)
		}
	}
	idx := node.NewIndex(nodes...)

	set := &resource.FileSet{}
	for _, lang := range resource.Languages {
		node.NewObjectWalk(idx, lang).Walk(nodes[0], set)
	}

	// b0 is not reachable from a0.
	assert.Equal(t, 2*levels-1, set.Len())
	assert.Zero(t, counters[1].visits)
	for i, n := range counters {
		if i == 1 {
			continue
		}
		assert.Equal(t, len(resource.Languages), n.visits, "%s", n.info)
	}
}

func TestObjectWalk_SkipsUnknownTargets(t *testing.T) {
	n := &countingNode{info: target.New("", "a"), deps: []target.Info{target.New("", "missing")}}
	set := &resource.FileSet{}
	node.NewObjectWalk(node.NewIndex(n), resource.C).Walk(n, set)
	assert.Equal(t, []string{".gen-obj/a.o"}, set.Strings())
}

func TestOutputsAndExportFlags(t *testing.T) {
	x := &countingNode{info: target.New("", "x"), out: []resource.Resource{resource.New(".gen-obj", "libx.a")}, flags: []string{"-I$(CURDIR)", "-lx"}}
	y := &countingNode{info: target.New("", "y"), out: []resource.Resource{resource.New(".gen-obj", "liby.so")}, flags: []string{"-I$(CURDIR)", "-ly"}}

	assert.Equal(t, []string{".gen-obj/libx.a", ".gen-obj/liby.so"}, node.Outputs([]node.Node{x, y}).Strings())
	cppflags, ldflags := node.ExportFlags([]node.Node{x, y})
	assert.Equal(t, []string{"-I$(CURDIR)", "-lx", "-ly"}, cppflags)
	assert.Equal(t, cppflags, ldflags)
}
