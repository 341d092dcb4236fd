package network

import (
	"fmt"
	"math"
	"sort"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/stats/pooling"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/analysis"
)

// Analyzer assesses multi-treatment comparison geometry, inconsistency and
// treatment rankings. Pairwise contrasts are pooled through the pooling
// engine; everything downstream works on the analysis scale.
type Analyzer struct {
	cfg  synthesis.AnalysisConfig
	pool *pooling.Engine
	dist *analysis.StatisticalDistributions
}

// NewAnalyzer creates a network analyzer
func NewAnalyzer(cfg synthesis.AnalysisConfig) *Analyzer {
	return &Analyzer{
		cfg:  cfg,
		pool: pooling.NewEngine(cfg),
		dist: analysis.NewDistributions(),
	}
}

// Result bundles the three network analyses for one comparison set
type Result struct {
	Geometry    synthesis.NetworkGeometry   `json:"geometry"`
	Consistency synthesis.ConsistencyResult `json:"consistency"`
	Ranking     *synthesis.RankingResult    `json:"ranking,omitempty"` // nil when the network is disconnected
}

// Analyze runs geometry, consistency and ranking in one pass
func (an *Analyzer) Analyze(contrasts []synthesis.Contrast, direction synthesis.RankDirection, seed int64) (Result, error) {
	g, err := an.buildGraph(contrasts)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Geometry:    an.geometry(g),
		Consistency: an.consistency(g),
	}
	if result.Geometry.Connected {
		ranking, err := an.rank(g, direction, seed)
		if err != nil {
			return Result{}, err
		}
		result.Ranking = &ranking
	}
	return result, nil
}

// Geometry builds the comparison graph description alone
func (an *Analyzer) Geometry(contrasts []synthesis.Contrast) (synthesis.NetworkGeometry, error) {
	g, err := an.buildGraph(contrasts)
	if err != nil {
		return synthesis.NetworkGeometry{}, err
	}
	return an.geometry(g), nil
}

// Consistency evaluates closed-loop and node-split inconsistency alone
func (an *Analyzer) Consistency(contrasts []synthesis.Contrast) (synthesis.ConsistencyResult, error) {
	g, err := an.buildGraph(contrasts)
	if err != nil {
		return synthesis.ConsistencyResult{}, err
	}
	return an.consistency(g), nil
}

// Rank produces SUCRA/P-score treatment rankings alone
func (an *Analyzer) Rank(contrasts []synthesis.Contrast, direction synthesis.RankDirection, seed int64) (synthesis.RankingResult, error) {
	g, err := an.buildGraph(contrasts)
	if err != nil {
		return synthesis.RankingResult{}, err
	}
	if !an.geometry(g).Connected {
		return synthesis.RankingResult{}, core.ErrDisconnectedNetwork
	}
	return an.rank(g, direction, seed)
}

// ============================================================================
// GRAPH CONSTRUCTION
// ============================================================================

// edge is one pooled direct comparison, oriented from the lexically smaller
// treatment to the larger one.
type edge struct {
	a, b     string
	estimate float64 // effect of b vs a, analysis scale
	variance float64
	studies  int
}

// graph is the internal comparison network
type graph struct {
	nodes []string // sorted
	edges []edge
	adj   map[string][]int // node -> indices into edges
}

func (g *graph) edgeBetween(a, b string) (int, bool) {
	for _, idx := range g.adj[a] {
		e := g.edges[idx]
		if (e.a == a && e.b == b) || (e.a == b && e.b == a) {
			return idx, true
		}
	}
	return 0, false
}

// oriented returns the estimate of "to vs from" along an edge
func (e edge) oriented(from, to string) float64 {
	if e.a == from && e.b == to {
		return e.estimate
	}
	return -e.estimate
}

// buildGraph pools each contrast into a direct-comparison edge and merges
// duplicate comparisons by inverse variance.
func (an *Analyzer) buildGraph(contrasts []synthesis.Contrast) (*graph, error) {
	if len(contrasts) < 2 {
		return nil, core.NewInsufficientStudiesError("network analysis", len(contrasts), 2)
	}

	type accum struct {
		sumW, sumWY float64
		studies     int
	}
	nodeSet := map[string]bool{}
	pairs := map[[2]string]*accum{}

	for _, c := range contrasts {
		if c.Treatment == "" || c.Comparator == "" {
			return nil, core.NewConfigurationError("contrast", "treatment and comparator must be named")
		}
		if c.Treatment == c.Comparator {
			return nil, core.NewConfigurationError("contrast", fmt.Sprintf("self comparison for treatment %q", c.Treatment))
		}
		if len(c.Effects) == 0 {
			return nil, core.NewInsufficientStudiesError("contrast "+c.Treatment+" vs "+c.Comparator, 0, 1)
		}

		est, variance, err := an.poolContrast(c)
		if err != nil {
			return nil, fmt.Errorf("contrast %s vs %s: %w", c.Treatment, c.Comparator, err)
		}

		// Normalize orientation to lexical order; est is treatment vs comparator
		a, b := c.Comparator, c.Treatment
		if a > b {
			a, b = b, a
			est = -est
		}

		key := [2]string{a, b}
		if pairs[key] == nil {
			pairs[key] = &accum{}
		}
		w := 1 / variance
		pairs[key].sumW += w
		pairs[key].sumWY += w * est
		pairs[key].studies += len(c.Effects)
		nodeSet[c.Treatment] = true
		nodeSet[c.Comparator] = true
	}

	g := &graph{adj: map[string][]int{}}
	for node := range nodeSet {
		g.nodes = append(g.nodes, node)
	}
	sort.Strings(g.nodes)

	keys := make([][2]string, 0, len(pairs))
	for key := range pairs {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	for _, key := range keys {
		acc := pairs[key]
		idx := len(g.edges)
		g.edges = append(g.edges, edge{
			a:        key[0],
			b:        key[1],
			estimate: acc.sumWY / acc.sumW,
			variance: 1 / acc.sumW,
			studies:  acc.studies,
		})
		g.adj[key[0]] = append(g.adj[key[0]], idx)
		g.adj[key[1]] = append(g.adj[key[1]], idx)
	}
	return g, nil
}

// poolContrast reduces one contrast's studies to a single estimate/variance
// on the analysis scale. Multi-study contrasts go through the pooling engine;
// a single study is used directly.
func (an *Analyzer) poolContrast(c synthesis.Contrast) (float64, float64, error) {
	if len(c.Effects) == 1 {
		e := c.Effects[0]
		if e.SE <= 0 {
			return 0, 0, core.NewInstabilityError("network edge", "non-positive standard error for study "+e.StudyID.String())
		}
		return e.AnalysisValue(), e.Variance(), nil
	}

	pooled, err := an.pool.Pool(c.Effects, synthesis.ModelAuto)
	if err != nil {
		return 0, 0, err
	}
	analysisEst := pooled.Estimate
	if pooled.Measure.IsRatio() {
		analysisEst = math.Log(pooled.Estimate)
	}
	return analysisEst, pooled.SE * pooled.SE, nil
}
