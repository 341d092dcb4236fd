package grade

import (
	"fmt"
	"strings"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

// Grader rates the quality of a body of evidence from heterogeneity, bias and
// precision signals. Design labels and the upgrade flags come from upstream
// collaborators; the grader never classifies studies itself.
type Grader struct {
	cfg synthesis.AnalysisConfig
}

// NewGrader creates an evidence grader
func NewGrader(cfg synthesis.AnalysisConfig) *Grader {
	return &Grader{cfg: cfg}
}

// Grade applies the GRADE framework: start from the design's baseline quality,
// downgrade for bias/inconsistency/indirectness/imprecision/publication bias,
// upgrade (observational only) for large effects, dose-response gradients and
// plausible confounding. Every adjustment carries a one-sentence rationale so
// the output is never just a label.
func (g *Grader) Grade(input synthesis.GradeInput) (synthesis.GradeAssessment, error) {
	if !input.Design.Valid() {
		return synthesis.GradeAssessment{}, core.NewConfigurationError("design", fmt.Sprintf("unknown study design %q", input.Design))
	}

	starting := synthesis.QualityLow
	if input.Design == synthesis.DesignRCT {
		starting = synthesis.QualityHigh
	}

	var adjustments []synthesis.Adjustment
	adjustments = append(adjustments, g.downgrades(input)...)
	if input.Design == synthesis.DesignObservational {
		adjustments = append(adjustments, g.upgrades(input)...)
	}

	rank := starting.Rank()
	for _, adj := range adjustments {
		if adj.Direction == synthesis.AdjustDown {
			rank -= adj.Levels
		} else {
			rank += adj.Levels
		}
	}
	final := synthesis.QualityFromRank(rank)

	return synthesis.GradeAssessment{
		StartingQuality: starting,
		FinalQuality:    final,
		Adjustments:     adjustments,
		Rationale:       summarize(starting, final, adjustments),
	}, nil
}

func (g *Grader) downgrades(input synthesis.GradeInput) []synthesis.Adjustment {
	var adjs []synthesis.Adjustment

	switch input.RiskOfBias {
	case synthesis.RiskHigh:
		adjs = append(adjs, synthesis.Adjustment{
			Factor:    synthesis.FactorRiskOfBias,
			Direction: synthesis.AdjustDown,
			Levels:    1,
			Rationale: "Included studies carry a high risk of bias per the upstream assessment.",
		})
	case synthesis.RiskCritical:
		adjs = append(adjs, synthesis.Adjustment{
			Factor:    synthesis.FactorRiskOfBias,
			Direction: synthesis.AdjustDown,
			Levels:    2,
			Rationale: "Included studies carry a critical risk of bias per the upstream assessment.",
		})
	}

	het := input.Heterogeneity
	if !het.InsufficientStudies && het.I2 > g.cfg.HighI2Threshold {
		levels := 1
		if het.I2 > 90 {
			levels = 2
		}
		adjs = append(adjs, synthesis.Adjustment{
			Factor:    synthesis.FactorInconsistency,
			Direction: synthesis.AdjustDown,
			Levels:    levels,
			Rationale: fmt.Sprintf("Unexplained inconsistency: I² of %.1f%% exceeds the %.0f%% threshold.", het.I2, g.cfg.HighI2Threshold),
		})
	}

	if input.Indirect {
		adjs = append(adjs, synthesis.Adjustment{
			Factor:    synthesis.FactorIndirectness,
			Direction: synthesis.AdjustDown,
			Levels:    1,
			Rationale: "The evidence addresses a population or outcome that differs from the review question.",
		})
	}

	if width, threshold, wide := g.imprecision(input); wide {
		adjs = append(adjs, synthesis.Adjustment{
			Factor:    synthesis.FactorImprecision,
			Direction: synthesis.AdjustDown,
			Levels:    1,
			Rationale: fmt.Sprintf("The pooled confidence interval (width %.2f) is wide relative to the clinical threshold of %.2f.", width, threshold),
		})
	}

	if input.Bias != nil && input.Bias.Detected() {
		adjs = append(adjs, synthesis.Adjustment{
			Factor:    synthesis.FactorPublicationBias,
			Direction: synthesis.AdjustDown,
			Levels:    1,
			Rationale: fmt.Sprintf("Publication bias detected: Egger p=%.3f with %d studies imputed by trim-and-fill.", input.Bias.Egger.PValue, input.Bias.TrimFill.Imputed),
		})
	}
	return adjs
}

func (g *Grader) upgrades(input synthesis.GradeInput) []synthesis.Adjustment {
	var adjs []synthesis.Adjustment

	if large, desc := g.largeEffect(input.Pooled); large {
		adjs = append(adjs, synthesis.Adjustment{
			Factor:    synthesis.FactorLargeEffect,
			Direction: synthesis.AdjustUp,
			Levels:    1,
			Rationale: desc,
		})
	}

	if input.DoseResponse {
		adjs = append(adjs, synthesis.Adjustment{
			Factor:    synthesis.FactorDoseResponse,
			Direction: synthesis.AdjustUp,
			Levels:    1,
			Rationale: "A dose-response gradient was reported across exposure levels.",
		})
	}

	if input.PlausibleConfounding {
		adjs = append(adjs, synthesis.Adjustment{
			Factor:    synthesis.FactorPlausibleConfounding,
			Direction: synthesis.AdjustUp,
			Levels:    1,
			Rationale: "All plausible confounding would act to reduce the observed effect.",
		})
	}
	return adjs
}

// imprecision compares the pooled CI width against the clinical threshold.
// Ratio measures use the CI ratio, additive measures the CI span.
func (g *Grader) imprecision(input synthesis.GradeInput) (width, threshold float64, wide bool) {
	threshold = input.ClinicalThreshold
	if threshold <= 0 {
		threshold = g.cfg.ImpreciseCIWidth
	}

	pooled := input.Pooled
	if pooled.Measure.IsRatio() {
		if pooled.CILower <= 0 {
			return 0, threshold, false
		}
		width = pooled.CIUpper / pooled.CILower
	} else {
		width = pooled.CIUpper - pooled.CILower
	}
	return width, threshold, width > threshold
}

// largeEffect applies the 2x / 0.5x convention for ratio measures and the
// conventional 0.8 magnitude for standardized mean differences.
func (g *Grader) largeEffect(pooled synthesis.PooledResult) (bool, string) {
	switch {
	case pooled.Measure.IsRatio():
		ratio := g.cfg.LargeEffectRatio
		if pooled.Estimate >= ratio || (pooled.Estimate > 0 && pooled.Estimate <= 1/ratio) {
			return true, fmt.Sprintf("The pooled %s of %.2f is beyond the %gx / %.2gx large-effect convention.", pooled.Measure, pooled.Estimate, ratio, 1/ratio)
		}
	case pooled.Measure == synthesis.MeasureSMD:
		if pooled.Estimate >= 0.8 || pooled.Estimate <= -0.8 {
			return true, fmt.Sprintf("The pooled standardized mean difference of %.2f represents a large effect.", pooled.Estimate)
		}
	}
	return false, ""
}

func summarize(starting, final synthesis.QualityLevel, adjustments []synthesis.Adjustment) string {
	if len(adjustments) == 0 {
		return fmt.Sprintf("Quality remains %s; no adjustment factors applied.", starting)
	}

	parts := make([]string, 0, len(adjustments))
	for _, adj := range adjustments {
		arrow := "down"
		if adj.Direction == synthesis.AdjustUp {
			arrow = "up"
		}
		parts = append(parts, fmt.Sprintf("%s (%s %d)", adj.Factor, arrow, adj.Levels))
	}
	return fmt.Sprintf("Started at %s, ended at %s after: %s.", starting, final, strings.Join(parts, ", "))
}
