package dag

import "github.com/vk/repobuild/internal/target"

const (
	unvisited = iota
	inProgress
	done
)

// sortNodes runs a three-colour depth-first search from each node in
// declaration order. A back edge to an in-progress node is a cycle.
func (g *Graph) sortNodes() error {
	state := make([]int, len(g.nodes))
	var stack []int
	g.order = make([]int, 0, len(g.nodes))

	var visit func(i int) error
	visit = func(i int) error {
		state[i] = inProgress
		stack = append(stack, i)
		for _, j := range g.edges[i] {
			switch state[j] {
			case inProgress:
				return g.cycleError(stack, j)
			case unvisited:
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = done
		g.order = append(g.order, i)
		return nil
	}

	for i := range g.nodes {
		if state[i] == unvisited {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// cycleError builds the path from the first occurrence of start on the
// stack back around to start.
func (g *Graph) cycleError(stack []int, start int) error {
	var path []target.Info
	for k := len(stack) - 1; k >= 0; k-- {
		if stack[k] == start {
			for _, id := range stack[k:] {
				path = append(path, g.nodes[id].Target())
			}
			break
		}
	}
	path = append(path, g.nodes[start].Target())
	return &CycleError{Path: path}
}

// computeClosures fills closures in topological order, so every dependency's
// closure is ready before its dependents need it. A node's closure is, for
// each direct dependency in declared order, that dependency's closure
// followed by the dependency itself, skipping anything already listed.
func (g *Graph) computeClosures() {
	g.closures = make([][]int, len(g.nodes))
	for _, i := range g.order {
		seen := make(map[int]struct{})
		var closure []int
		add := func(id int) {
			if _, ok := seen[id]; ok {
				return
			}
			seen[id] = struct{}{}
			closure = append(closure, id)
		}
		for _, j := range g.edges[i] {
			for _, k := range g.closures[j] {
				add(k)
			}
			add(j)
		}
		g.closures[i] = closure
	}
}

// closureOf returns the union of the given roots and their closures,
// listed in topological order.
func (g *Graph) closureOf(roots []int) []int {
	want := make([]bool, len(g.nodes))
	for _, r := range roots {
		want[r] = true
		for _, k := range g.closures[r] {
			want[k] = true
		}
	}
	var out []int
	for _, i := range g.order {
		if want[i] {
			out = append(out, i)
		}
	}
	return out
}
