package bias

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/analysis"
)

// minStudies is the hard floor below which the regression and rank tests are
// undefined (Egger needs k-2 residual degrees of freedom).
const minStudies = 3

// Analyzer tests funnel-plot asymmetry and imputes missing studies. It
// consumes effect sizes on the analysis scale and never mutates its input.
type Analyzer struct {
	cfg  synthesis.AnalysisConfig
	dist *analysis.StatisticalDistributions
}

// NewAnalyzer creates a publication bias analyzer
func NewAnalyzer(cfg synthesis.AnalysisConfig) *Analyzer {
	return &Analyzer{cfg: cfg, dist: analysis.NewDistributions()}
}

// Assess runs Egger's regression, Begg's rank correlation and trim-and-fill.
// Below the configured minimum study count the assessment is still computed
// but flagged low power, since ten studies is a statistical convention, not a
// computational requirement.
func (a *Analyzer) Assess(effects []synthesis.EffectSize) (synthesis.BiasAssessment, error) {
	k := len(effects)
	if k < minStudies {
		return synthesis.BiasAssessment{}, core.NewInsufficientStudiesError("publication bias assessment", k, minStudies)
	}
	for _, e := range effects {
		if e.SE <= 0 {
			return synthesis.BiasAssessment{}, core.NewInstabilityError("publication bias assessment", "non-positive standard error for study "+e.StudyID.String())
		}
	}

	egger := a.egger(effects)
	begg := a.begg(effects)
	trimFill, imputed := a.trimAndFill(effects)

	funnel := make([]synthesis.FunnelPoint, 0, k+len(imputed))
	for _, e := range effects {
		funnel = append(funnel, synthesis.FunnelPoint{
			StudyID:   e.StudyID,
			Effect:    e.AnalysisValue(),
			SE:        e.SE,
			Precision: 1 / e.SE,
		})
	}
	funnel = append(funnel, imputed...)

	return synthesis.BiasAssessment{
		K:        k,
		LowPower: k < a.cfg.MinStudiesBias,
		Egger:    egger,
		Begg:     begg,
		TrimFill: trimFill,
		Funnel:   funnel,
		Summary:  funnelSummary(effects),
	}, nil
}

// funnelSummary condenses the observed funnel; imputed points are excluded so
// the summary describes the evidence as published.
func funnelSummary(effects []synthesis.EffectSize) synthesis.FunnelSummary {
	values := make([]float64, len(effects))
	precisions := make([]float64, len(effects))
	for i, e := range effects {
		values[i] = e.AnalysisValue()
		precisions[i] = 1 / e.SE
	}

	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	spread, _ := stats.StandardDeviationSample(values)
	medianPrecision, _ := stats.Median(precisions)

	return synthesis.FunnelSummary{
		MeanEffect:      mean,
		MedianEffect:    median,
		EffectSpread:    spread,
		MedianPrecision: medianPrecision,
	}
}

// fixedPooled returns the inverse-variance pooled mean and total weight on
// the analysis scale.
func fixedPooled(values, variances []float64) (pooled, sumW float64) {
	var sumWY float64
	for i, v := range values {
		w := 1 / variances[i]
		sumW += w
		sumWY += w * v
	}
	return sumWY / sumW, sumW
}

func analysisValues(effects []synthesis.EffectSize) (values, variances []float64) {
	values = make([]float64, len(effects))
	variances = make([]float64, len(effects))
	for i, e := range effects {
		values[i] = e.AnalysisValue()
		variances[i] = e.Variance()
	}
	return values, variances
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
