package heterogeneity

import (
	"math"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/analysis"
)

// Analyzer computes between-study variance statistics from a set of effect
// sizes. All arithmetic happens on the analysis scale (log for ratio
// measures).
type Analyzer struct {
	cfg  synthesis.AnalysisConfig
	dist *analysis.StatisticalDistributions
}

// NewAnalyzer creates a heterogeneity analyzer
func NewAnalyzer(cfg synthesis.AnalysisConfig) *Analyzer {
	return &Analyzer{cfg: cfg, dist: analysis.NewDistributions()}
}

// Assess computes Q, I², tau² (DerSimonian-Laird), H² and, for k >= 3, the
// prediction interval. Fewer than 2 studies is not an error: callers must
// still render "not applicable", so the result is flagged instead.
func (a *Analyzer) Assess(effects []synthesis.EffectSize) synthesis.HeterogeneityStats {
	k := len(effects)
	stats := synthesis.HeterogeneityStats{
		K:          k,
		DF:         k - 1,
		Tau2Method: synthesis.Tau2MethodDL,
		H2:         1,
		PValue:     1,
	}
	if k < 2 {
		stats.DF = 0
		stats.InsufficientStudies = true
		return stats
	}

	// Fixed-effect pooled mean with inverse-variance weights
	var sumW, sumWY, sumW2 float64
	for _, e := range effects {
		w := 1 / e.Variance()
		sumW += w
		sumWY += w * e.AnalysisValue()
		sumW2 += w * w
	}
	pooled := sumWY / sumW

	var q float64
	for _, e := range effects {
		diff := e.AnalysisValue() - pooled
		q += diff * diff / e.Variance()
	}

	df := float64(stats.DF)
	stats.Q = q
	stats.PValue = a.dist.ChiSquarePValue(q, stats.DF)

	// DerSimonian-Laird tau², truncated at zero (never a negative variance)
	c := sumW - sumW2/sumW
	if c > 0 {
		stats.Tau2 = math.Max(0, (q-df)/c)
	}

	// I² reported as 0 when Q < df, never negative
	if q > 0 {
		stats.I2 = math.Max(0, (q-df)/q*100)
	}
	if q > df && df > 0 {
		stats.H2 = q / df
	}

	if k >= 3 {
		stats.Prediction = a.predictionInterval(effects, stats.Tau2)
	}
	return stats
}

// predictionInterval uses a t-distribution with k-2 degrees of freedom around
// the random-effects pooled mean: pooled ± t * sqrt(SE² + tau²), then
// back-transforms ratio measures.
func (a *Analyzer) predictionInterval(effects []synthesis.EffectSize, tau2 float64) *synthesis.PredictionInterval {
	var sumW, sumWY float64
	for _, e := range effects {
		w := 1 / (e.Variance() + tau2)
		sumW += w
		sumWY += w * e.AnalysisValue()
	}
	pooled := sumWY / sumW
	pooledSE := 1 / math.Sqrt(sumW)

	t := a.dist.TQuantile(0.5+a.cfg.ConfidenceLevel/2, len(effects)-2)
	half := t * math.Sqrt(pooledSE*pooledSE+tau2)

	measure := effects[0].Measure
	return &synthesis.PredictionInterval{
		Lower: measure.FromAnalysisScale(pooled - half),
		Upper: measure.FromAnalysisScale(pooled + half),
	}
}
