package network

import (
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

// geometry describes the comparison graph: node/edge summaries, connectivity
// and topology classification (star vs well-connected vs sparse).
func (an *Analyzer) geometry(g *graph) synthesis.NetworkGeometry {
	reachable := g.reachableFrom(g.nodes[0])

	nodes := make([]synthesis.TreatmentNode, 0, len(g.nodes))
	connected := true
	for _, name := range g.nodes {
		studies := 0
		for _, idx := range g.adj[name] {
			studies += g.edges[idx].studies
		}
		disconnected := !reachable[name]
		if disconnected {
			connected = false
		}
		nodes = append(nodes, synthesis.TreatmentNode{
			Treatment:    name,
			Comparisons:  len(g.adj[name]),
			Studies:      studies,
			Disconnected: disconnected,
		})
	}

	edges := make([]synthesis.ComparisonEdge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, synthesis.ComparisonEdge{
			Treatment:  e.b,
			Comparator: e.a,
			Studies:    e.studies,
			Estimate:   e.estimate,
			SE:         sqrtVariance(e.variance),
		})
	}

	geo := synthesis.NetworkGeometry{
		Nodes:     nodes,
		Edges:     edges,
		Connected: connected,
	}
	geo.Shape, geo.Hub = an.classifyShape(g)
	return geo
}

// classifyShape: a closed loop anywhere makes the network well-connected; a
// loop-free network where every comparison shares one hub is a star;
// everything else is a sparse tree/forest.
func (an *Analyzer) classifyShape(g *graph) (synthesis.NetworkShape, string) {
	if len(an.loops(g)) > 0 {
		return synthesis.ShapeWellConnected, ""
	}
	if hub, ok := g.findHub(); ok {
		return synthesis.ShapeStar, hub
	}
	return synthesis.ShapeSparse, ""
}

// findHub looks for one node present in every edge
func (g *graph) findHub() (string, bool) {
	if len(g.edges) < 2 {
		return "", false
	}
	for _, candidate := range []string{g.edges[0].a, g.edges[0].b} {
		onEvery := true
		for _, e := range g.edges {
			if e.a != candidate && e.b != candidate {
				onEvery = false
				break
			}
		}
		if onEvery {
			return candidate, true
		}
	}
	return "", false
}

// reachableFrom runs a BFS over the undirected comparison graph
func (g *graph) reachableFrom(start string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, idx := range g.adj[node] {
			e := g.edges[idx]
			next := e.a
			if next == node {
				next = e.b
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return seen
}
