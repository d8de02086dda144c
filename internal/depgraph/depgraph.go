// Package depgraph builds a package-import graph and reports every cycle
// in it. Detection is depth-first with a recursion stack: reaching a node
// already on the stack closes a cycle equal to the path suffix from that
// node's first occurrence. Each node roots exactly one DFS (global visited
// set), so the walk is O(V+E) even on dense cyclic graphs.
package depgraph

import (
	"slices"
	"sort"
)

// Graph is a directed import graph. Nodes are package import paths.
type Graph struct {
	edges map[string][]string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{edges: make(map[string][]string)}
}

// AddNode ensures n exists even if nothing imports it and it imports
// nothing. Isolated packages must still root a DFS.
func (g *Graph) AddNode(n string) {
	if _, ok := g.edges[n]; !ok {
		g.edges[n] = nil
	}
}

// AddEdge records that from imports to. Duplicate edges collapse.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if !slices.Contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
	}
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.edges) }

// Cycles returns every cycle in the graph. Each cycle is the node sequence
// starting and ending at the repeated node, e.g. [a b c a]; a self-import
// yields [a a]. Order is deterministic: roots and edges walk sorted.
func (g *Graph) Cycles() [][]string {
	nodes := make([]string, 0, len(g.edges))
	for n := range g.edges {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	visited := make(map[string]bool, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	var path []string
	var cycles [][]string

	var dfs func(n string)
	dfs = func(n string) {
		visited[n] = true
		onStack[n] = true
		path = append(path, n)

		deps := slices.Clone(g.edges[n])
		sort.Strings(deps)
		for _, dep := range deps {
			if onStack[dep] {
				i := slices.Index(path, dep)
				cycle := append(slices.Clone(path[i:]), dep)
				cycles = append(cycles, cycle)
				continue
			}
			if !visited[dep] {
				dfs(dep)
			}
		}

		path = path[:len(path)-1]
		onStack[n] = false
	}

	for _, n := range nodes {
		if !visited[n] {
			dfs(n)
		}
	}
	return cycles
}
