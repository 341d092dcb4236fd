package network

import (
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

// minRankingDraws is the floor on Monte Carlo draws regardless of config
const minRankingDraws = 1000

// rank simulates the rank distribution per treatment with seeded Monte Carlo
// draws and derives SUCRA scores, with the analytic P-score computed
// alongside as a sanity cross-check. Draws are independent and identically
// distributed, so batches are split across workers and merged by summing
// counts; no ordering is needed.
func (an *Analyzer) rank(g *graph, direction synthesis.RankDirection, seed int64) (synthesis.RankingResult, error) {
	if direction == "" {
		direction = synthesis.HigherIsBetter
	}
	if direction != synthesis.HigherIsBetter && direction != synthesis.LowerIsBetter {
		return synthesis.RankingResult{}, core.NewConfigurationError("direction", string(direction))
	}

	reference := g.nodes[0]
	if hub, ok := g.findHub(); ok {
		reference = hub
	}

	// Effect of each treatment relative to the reference, from the
	// lowest-variance path through the network.
	n := len(g.nodes)
	mu := make([]float64, n)
	variance := make([]float64, n)
	for i, node := range g.nodes {
		if node == reference {
			continue
		}
		est, v, ok := g.minVariancePath(reference, node, -1)
		if !ok {
			return synthesis.RankingResult{}, core.ErrDisconnectedNetwork
		}
		mu[i] = est
		variance[i] = v
	}

	draws := an.cfg.RankingDraws
	if draws < minRankingDraws {
		draws = minRankingDraws
	}
	workers := an.cfg.RankingWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > draws {
		workers = draws
	}

	batchCounts := make([][][]int, workers)
	var eg errgroup.Group
	for w := 0; w < workers; w++ {
		batch := w
		batchDraws := draws / workers
		if batch == 0 {
			batchDraws += draws % workers
		}
		eg.Go(func() error {
			batchCounts[batch] = simulateRanks(mu, variance, direction, batchDraws, seed+int64(batch))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return synthesis.RankingResult{}, err
	}

	// Merge batches by simple aggregation
	counts := make([][]int, n)
	for i := range counts {
		counts[i] = make([]int, n)
	}
	for _, bc := range batchCounts {
		for i := range bc {
			for r := range bc[i] {
				counts[i][r] += bc[i][r]
			}
		}
	}

	rankings := make([]synthesis.TreatmentRanking, n)
	for i, node := range g.nodes {
		probs := make([]float64, n)
		meanRank := 0.0
		for r := range probs {
			probs[r] = float64(counts[i][r]) / float64(draws)
			meanRank += float64(r+1) * probs[r]
		}

		// SUCRA: average cumulative probability of being ranked r or better
		// over the first n-1 ranks
		sucra := 0.0
		cum := 0.0
		for r := 0; r < n-1; r++ {
			cum += probs[r]
			sucra += cum
		}
		if n > 1 {
			sucra /= float64(n - 1)
		}

		rankings[i] = synthesis.TreatmentRanking{
			Treatment: node,
			SUCRA:     sucra * 100,
			PScore:    an.pScore(i, mu, variance, direction) * 100,
			MeanRank:  meanRank,
			RankProbs: probs,
		}
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].SUCRA != rankings[j].SUCRA {
			return rankings[i].SUCRA > rankings[j].SUCRA
		}
		return rankings[i].Treatment < rankings[j].Treatment
	})

	return synthesis.RankingResult{
		Rankings:  rankings,
		Reference: reference,
		Direction: direction,
		Draws:     draws,
		Seed:      seed,
	}, nil
}

// simulateRanks draws from each treatment's effect distribution and counts
// rank occupancy. counts[i][r] is how often treatment i landed at rank r+1.
func simulateRanks(mu, variance []float64, direction synthesis.RankDirection, draws int, seed int64) [][]int {
	n := len(mu)
	rng := rand.New(rand.NewSource(seed))

	counts := make([][]int, n)
	for i := range counts {
		counts[i] = make([]int, n)
	}

	samples := make([]float64, n)
	order := make([]int, n)
	for d := 0; d < draws; d++ {
		for i := range samples {
			samples[i] = mu[i] + math.Sqrt(variance[i])*rng.NormFloat64()
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool {
			if direction == synthesis.HigherIsBetter {
				return samples[order[a]] > samples[order[b]]
			}
			return samples[order[a]] < samples[order[b]]
		})
		for r, i := range order {
			counts[i][r]++
		}
	}
	return counts
}

// pScore is the closed-form analog of SUCRA: the mean probability of being
// better than each alternative, from the normal approximation of pairwise
// differences.
func (an *Analyzer) pScore(i int, mu, variance []float64, direction synthesis.RankDirection) float64 {
	n := len(mu)
	if n < 2 {
		return 0
	}
	total := 0.0
	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		diff := mu[i] - mu[j]
		if direction == synthesis.LowerIsBetter {
			diff = -diff
		}
		se := math.Sqrt(variance[i] + variance[j])
		if se == 0 {
			if diff > 0 {
				total++
			} else if diff == 0 {
				total += 0.5
			}
			continue
		}
		total += an.dist.NormalCDF(diff / se)
	}
	return total / float64(n-1)
}
