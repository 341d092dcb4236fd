package pooling

import (
	"fmt"
	"math"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/stats/heterogeneity"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/analysis"
)

// Engine combines effect sizes into one summary estimate under a chosen
// model. Random-effects weighting takes tau² from the heterogeneity analyzer.
type Engine struct {
	cfg  synthesis.AnalysisConfig
	het  *heterogeneity.Analyzer
	dist *analysis.StatisticalDistributions
}

// NewEngine creates a pooling engine
func NewEngine(cfg synthesis.AnalysisConfig) *Engine {
	return &Engine{
		cfg:  cfg,
		het:  heterogeneity.NewAnalyzer(cfg),
		dist: analysis.NewDistributions(),
	}
}

// Pool combines the effects under the requested model. "auto" resolves to
// fixed or random from I² against the configured threshold; the decision is
// deterministic and recorded in ModelReason for auditability.
func (p *Engine) Pool(effects []synthesis.EffectSize, model synthesis.Model) (synthesis.PooledResult, error) {
	if !model.Valid() {
		return synthesis.PooledResult{}, core.NewConfigurationError("model", fmt.Sprintf("unknown model %q", model))
	}
	k := len(effects)
	if k < p.cfg.MinStudiesPooling {
		return synthesis.PooledResult{}, core.NewInsufficientStudiesError("pooling", k, p.cfg.MinStudiesPooling)
	}
	measure := effects[0].Measure
	for _, e := range effects {
		if e.Measure != measure {
			return synthesis.PooledResult{}, core.NewConfigurationError("effects", fmt.Sprintf("mixed measures %s and %s in one pool", measure, e.Measure))
		}
		if e.SE <= 0 {
			return synthesis.PooledResult{}, core.NewInstabilityError("pooling", fmt.Sprintf("study %s has non-positive standard error", e.StudyID))
		}
	}

	het := p.het.Assess(effects)
	resolved, reason := p.resolveModel(model, het)

	tau2 := 0.0
	if resolved == synthesis.ModelRandom {
		tau2 = het.Tau2
	}

	var sumW, sumWY float64
	weights := make([]synthesis.StudyWeight, 0, k)
	for _, e := range effects {
		w := 1 / (e.Variance() + tau2)
		sumW += w
		sumWY += w * e.AnalysisValue()
		weights = append(weights, synthesis.StudyWeight{StudyID: e.StudyID, Weight: w})
	}
	if sumW <= 0 || math.IsInf(sumW, 0) || math.IsNaN(sumW) {
		return synthesis.PooledResult{}, core.NewInstabilityError("pooling", "degenerate weight sum")
	}

	// Normalize weights to sum to 1
	for i := range weights {
		weights[i].Weight /= sumW
	}

	pooled := sumWY / sumW
	se := 1 / math.Sqrt(sumW)
	z := p.dist.ZCritical(p.cfg.ConfidenceLevel)

	return synthesis.PooledResult{
		Model:       resolved,
		ModelReason: reason,
		Measure:     measure,
		Estimate:    measure.FromAnalysisScale(pooled),
		SE:          se,
		CILower:     measure.FromAnalysisScale(pooled - z*se),
		CIUpper:     measure.FromAnalysisScale(pooled + z*se),
		Weights:     weights,
		Tau2:        het.Tau2,
		Tau2Method:  het.Tau2Method,
		K:           k,
	}, nil
}

// resolveModel turns "auto" into a concrete model with an audit reason
func (p *Engine) resolveModel(model synthesis.Model, het synthesis.HeterogeneityStats) (synthesis.Model, string) {
	switch model {
	case synthesis.ModelFixed:
		return synthesis.ModelFixed, "fixed-effect model requested"
	case synthesis.ModelRandom:
		return synthesis.ModelRandom, "random-effects model requested"
	}

	threshold := p.cfg.AutoModelI2Threshold
	if het.I2 < threshold {
		return synthesis.ModelFixed, fmt.Sprintf("auto: I²=%.1f%% below %.1f%% threshold, fixed-effect selected", het.I2, threshold)
	}
	return synthesis.ModelRandom, fmt.Sprintf("auto: I²=%.1f%% at or above %.1f%% threshold, random-effects selected", het.I2, threshold)
}
