// Package makefile holds the in-memory rule graph produced by build nodes and
// serializes it as a Makefile.
//
// Rules are written in the order they were added. Head sections, the
// default goal, the install pseudo-target and the clean target are written
// around them at fixed positions so that output depends only on the order of
// the calls made against a Makefile.
package makefile

import (
	"fmt"
	"slices"
)

const (
	// AllTarget is the default goal.
	AllTarget = "all"
	// InstallTarget is the pseudo-target every node may contribute to.
	InstallTarget = "install"
	// CleanTarget removes generated directories.
	CleanTarget = "clean"
)

// Rule is a single Makefile rule.
type Rule struct {
	Target    string
	Prereqs   []string
	OrderOnly []string
	Commands  []string
	Phony     bool
	Comment   string
}

// AddPrereqs appends prerequisites not already present.
func (r *Rule) AddPrereqs(prereqs ...string) {
	for _, p := range prereqs {
		if !slices.Contains(r.Prereqs, p) {
			r.Prereqs = append(r.Prereqs, p)
		}
	}
}

// AddCommands appends recipe lines.
func (r *Rule) AddCommands(cmds ...string) {
	r.Commands = append(r.Commands, cmds...)
}

type head struct {
	key   string
	lines []string
}

// Makefile is an ordered collection of rules plus the distinguished
// all, install and clean targets.
type Makefile struct {
	banner   string
	heads    []head
	headKeys map[string]struct{}
	rules    []*Rule
	targets  map[string]*Rule
	defaults []string
	install  *Rule
	clean    []string
}

// New returns an empty Makefile. The banner is written as a comment at the
// top of the output.
func New(banner string) *Makefile {
	return &Makefile{
		banner:   banner,
		headKeys: make(map[string]struct{}),
		targets:  make(map[string]*Rule),
		install:  &Rule{Target: InstallTarget, Phony: true},
	}
}

// WriteHead records a block of prologue lines under key. Only the first call
// for a given key has an effect; it reports whether the block was recorded.
func (m *Makefile) WriteHead(key string, lines ...string) bool {
	if _, ok := m.headKeys[key]; ok {
		return false
	}
	m.headKeys[key] = struct{}{}
	m.heads = append(m.heads, head{key: key, lines: slices.Clone(lines)})
	return true
}

// HasHead reports whether a head block was recorded under key.
func (m *Makefile) HasHead(key string) bool {
	_, ok := m.headKeys[key]
	return ok
}

// AddRule appends r. Two rules may not share a target.
func (m *Makefile) AddRule(r *Rule) error {
	if r.Target == "" {
		return fmt.Errorf("rule has no target")
	}
	switch r.Target {
	case AllTarget, InstallTarget, CleanTarget:
		return fmt.Errorf("rule target %q is reserved", r.Target)
	}
	if _, ok := m.targets[r.Target]; ok {
		return fmt.Errorf("duplicate rule for target %q", r.Target)
	}
	m.targets[r.Target] = r
	m.rules = append(m.rules, r)
	return nil
}

// Rule returns the rule producing target.
func (m *Makefile) Rule(target string) (*Rule, bool) {
	r, ok := m.targets[target]
	return r, ok
}

// HasTarget reports whether some rule produces target.
func (m *Makefile) HasTarget(target string) bool {
	_, ok := m.targets[target]
	return ok
}

// Rules returns the added rules in order. The returned slice must not be modified.
func (m *Makefile) Rules() []*Rule {
	return m.rules
}

// Install returns the install pseudo-target for nodes to append to.
func (m *Makefile) Install() *Rule {
	return m.install
}

// AddDefault adds targets to the prerequisites of the default goal.
func (m *Makefile) AddDefault(targets ...string) {
	for _, t := range targets {
		if !slices.Contains(m.defaults, t) {
			m.defaults = append(m.defaults, t)
		}
	}
}

// Defaults returns the prerequisites of the default goal.
func (m *Makefile) Defaults() []string {
	return m.defaults
}

// AddClean adds paths removed by the clean target.
func (m *Makefile) AddClean(paths ...string) {
	for _, p := range paths {
		if !slices.Contains(m.clean, p) {
			m.clean = append(m.clean, p)
		}
	}
}

// Dangling returns every prerequisite that is neither produced by a rule nor
// accepted by isSource, in first-seen order.
func (m *Makefile) Dangling(isSource func(path string) bool) []string {
	var dangling []string
	seen := make(map[string]struct{})
	check := func(prereqs []string) {
		for _, p := range prereqs {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			if m.HasTarget(p) || isSource(p) {
				continue
			}
			dangling = append(dangling, p)
		}
	}

	check(m.defaults)
	for _, r := range m.rules {
		check(r.Prereqs)
		check(r.OrderOnly)
	}
	check(m.install.Prereqs)
	return dangling
}
