package network

import (
	"math"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

// loopCountCap bounds cycle enumeration on dense networks so the analysis
// always terminates in bounded time.
const loopCountCap = 100

// consistency computes loop inconsistency factors, node-splitting estimates
// and the global inconsistency test.
func (an *Analyzer) consistency(g *graph) synthesis.ConsistencyResult {
	loops := an.loops(g)

	result := synthesis.ConsistencyResult{
		GlobalPValue: 1,
		Consistent:   true,
	}

	var globalQ float64
	for _, loop := range loops {
		lic := an.loopInconsistency(g, loop)
		result.Loops = append(result.Loops, lic)
		if lic.Variance > 0 {
			globalQ += lic.Z * lic.Z
		}
	}

	result.NodeSplits = an.nodeSplits(g)

	if len(result.Loops) > 0 {
		result.GlobalQ = globalQ
		result.GlobalDF = len(result.Loops)
		result.GlobalPValue = an.dist.ChiSquarePValue(globalQ, result.GlobalDF)
		result.Consistent = result.GlobalPValue >= 0.05
	}
	return result
}

// loopInconsistency walks one closed loop: the inconsistency factor is the
// signed sum of the oriented direct estimates around the loop (zero under
// perfect consistency), with variance the sum of variances along the loop.
func (an *Analyzer) loopInconsistency(g *graph, loop []string) synthesis.LoopInconsistency {
	var factor, variance float64
	m := len(loop)
	for i := 0; i < m; i++ {
		from := loop[i]
		to := loop[(i+1)%m]
		idx, _ := g.edgeBetween(from, to)
		factor += g.edges[idx].oriented(from, to)
		variance += g.edges[idx].variance
	}

	lic := synthesis.LoopInconsistency{
		Treatments: loop,
		Factor:     factor,
		Variance:   variance,
		PValue:     1,
	}
	if variance > 0 {
		lic.Z = factor / math.Sqrt(variance)
		lic.PValue = an.dist.NormalTwoTailedP(lic.Z)
	}
	return lic
}

// nodeSplits re-estimates each direct comparison twice: once from its direct
// evidence, once from the best indirect path with that edge removed.
func (an *Analyzer) nodeSplits(g *graph) []synthesis.NodeSplitResult {
	var splits []synthesis.NodeSplitResult
	for idx, e := range g.edges {
		indirect, indirectVar, ok := g.minVariancePath(e.a, e.b, idx)
		if !ok {
			continue
		}
		diff := e.estimate - indirect
		se := math.Sqrt(e.variance + indirectVar)

		split := synthesis.NodeSplitResult{
			Treatment:  e.b,
			Comparator: e.a,
			Direct:     e.estimate,
			DirectSE:   math.Sqrt(e.variance),
			Indirect:   indirect,
			IndirectSE: math.Sqrt(indirectVar),
			Difference: diff,
			PValue:     1,
		}
		if se > 0 {
			split.PValue = an.dist.NormalTwoTailedP(diff / se)
		}
		splits = append(splits, split)
	}
	return splits
}

// loops enumerates simple cycles of length 3 up to the configured maximum.
// Each cycle is reported once in canonical form: smallest treatment first,
// and the second element smaller than the last to fix orientation.
func (an *Analyzer) loops(g *graph) [][]string {
	maxLen := an.cfg.MaxLoopLength
	var cycles [][]string

	var dfs func(start string, path []string, onPath map[string]bool)
	dfs = func(start string, path []string, onPath map[string]bool) {
		if len(cycles) >= loopCountCap {
			return
		}
		last := path[len(path)-1]
		for _, idx := range g.adj[last] {
			e := g.edges[idx]
			next := e.a
			if next == last {
				next = e.b
			}
			if next == start && len(path) >= 3 {
				// orientation dedupe: keep the traversal whose second node
				// precedes its last node
				if path[1] < path[len(path)-1] {
					cycle := append([]string(nil), path...)
					cycles = append(cycles, cycle)
				}
				continue
			}
			// node dedupe: only walk nodes after the starting node
			if next <= start || onPath[next] || len(path) >= maxLen {
				continue
			}
			onPath[next] = true
			dfs(start, append(path, next), onPath)
			delete(onPath, next)
		}
	}

	for _, start := range g.nodes {
		dfs(start, []string{start}, map[string]bool{start: true})
	}
	return cycles
}

// minVariancePath runs Dijkstra over edge variances and returns the summed
// oriented estimate and variance of the lowest-variance path from a to b,
// optionally excluding one edge.
func (g *graph) minVariancePath(from, to string, excludeEdge int) (float64, float64, bool) {
	const inf = math.MaxFloat64
	dist := map[string]float64{}
	est := map[string]float64{}
	visited := map[string]bool{}
	for _, n := range g.nodes {
		dist[n] = inf
	}
	dist[from] = 0

	for {
		current := ""
		best := inf
		for _, n := range g.nodes {
			if !visited[n] && dist[n] < best {
				best = dist[n]
				current = n
			}
		}
		if current == "" {
			break
		}
		if current == to {
			return est[to], dist[to], true
		}
		visited[current] = true

		for _, idx := range g.adj[current] {
			if idx == excludeEdge {
				continue
			}
			e := g.edges[idx]
			next := e.a
			if next == current {
				next = e.b
			}
			if alt := dist[current] + e.variance; alt < dist[next] {
				dist[next] = alt
				est[next] = est[current] + e.oriented(current, next)
			}
		}
	}
	return 0, 0, false
}

func sqrtVariance(v float64) float64 {
	return math.Sqrt(v)
}
