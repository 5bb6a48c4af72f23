package compiler

import (
	"fmt"
	"slices"
	"strings"
)

// ClassCycle is a set of user classes whose parent links form a loop.
type ClassCycle struct {
	Path    []string `json:"path"`    // e.g. ["A", "B", "A"]
	Message string   `json:"message"` // Human-readable description
}

// classGraph maps class name → parent class names.
type classGraph map[string][]string

// AnalyzeClassCycles finds inheritance cycles among user-declared classes.
//
// A class cycle has no order in which its classes could be registered, so
// every cycle is an error. The algorithm:
//  1. Use Tarjan's algorithm to find strongly connected components
//  2. Report each SCC with size > 1, or a class listing itself as parent
//
// Results are sorted by their first path element so output is stable.
func AnalyzeClassCycles(graph classGraph) []ClassCycle {
	cycles := []ClassCycle{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	slices.SortFunc(cycles, func(a, b ClassCycle) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return cycles
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph classGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes and edges are visited in sorted order for deterministic output.
func tarjanSCC(graph classGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// sccToCycle converts an SCC to a ClassCycle with a reconstructed path.
func sccToCycle(scc []string, graph classGraph) ClassCycle {
	if len(scc) == 1 {
		return ClassCycle{
			Path:    []string{scc[0], scc[0]},
			Message: fmt.Sprintf("class %s lists itself as a parent", scc[0]),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return ClassCycle{
		Path:    path,
		Message: fmt.Sprintf("class inheritance cycle: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath returns a closed walk from the SCC's first member
// back to itself. The search backtracks out of dead ends, and an SCC always
// contains such a walk.
func reconstructCyclePath(scc []string, graph classGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	path := []string{start}
	visited := map[string]bool{start: true}

	var search func(string) bool
	search = func(current string) bool {
		for _, next := range graph[current] {
			if !members[next] {
				continue
			}
			if next == start {
				path = append(path, start)
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			path = append(path, next)
			if search(next) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}

	if !search(start) {
		// Unreachable for a real SCC.
		return append(slices.Clone(scc), start)
	}
	return path
}

// registrationOrder returns the classes of an acyclic graph parents-first.
// Parents outside the graph (predefined classes) are ignored. Ties keep
// declaration order.
func registrationOrder(declared []string, graph classGraph) []string {
	order := make([]string, 0, len(declared))
	done := make(map[string]bool, len(declared))

	var visit func(string)
	visit = func(name string) {
		if done[name] {
			return
		}
		done[name] = true
		for _, p := range graph[name] {
			if _, inGraph := graph[p]; inGraph {
				visit(p)
			}
		}
		order = append(order, name)
	}

	for _, name := range declared {
		visit(name)
	}
	return order
}
