package bias

import (
	"fmt"
	"math"
	"testing"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/studygen"
)

func newAnalyzer() *Analyzer {
	return NewAnalyzer(synthesis.DefaultAnalysisConfig())
}

// gradedAsymmetric builds studies whose standardized effect grows linearly
// with the standard error, the textbook small-study-effect pattern.
func gradedAsymmetric(k int) []synthesis.EffectSize {
	out := make([]synthesis.EffectSize, k)
	for i := 0; i < k; i++ {
		se := 0.1 + 0.04*float64(i)
		jitter := -0.01
		if i%2 == 1 {
			jitter = 0.01
		}
		out[i] = synthesis.EffectSize{
			StudyID:  core.StudyID(fmt.Sprintf("study-%02d", i+1)),
			Measure:  synthesis.MeasureMeanDifference,
			Estimate: 0.2 + 1.5*se + jitter,
			SE:       se,
		}
	}
	return out
}

func TestAssess_SymmetricFunnelIsClean(t *testing.T) {
	effects := studygen.SymmetricFunnel(6, 0.5, synthesis.MeasureMeanDifference)
	res, err := newAnalyzer().Assess(effects)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}

	if math.Abs(res.Egger.Intercept) > 1e-9 {
		t.Fatalf("mirrored funnel must give zero Egger intercept, got %.6f", res.Egger.Intercept)
	}
	if res.Egger.Asymmetric {
		t.Fatalf("mirrored funnel flagged asymmetric, p=%.4f", res.Egger.PValue)
	}
	if res.Begg.Tau != 0 {
		t.Fatalf("mirrored funnel must give Begg tau=0, got %.4f", res.Begg.Tau)
	}
	if res.TrimFill.Imputed != 0 {
		t.Fatalf("mirrored funnel must impute nothing, got %d", res.TrimFill.Imputed)
	}
	if !res.TrimFill.Converged {
		t.Fatal("trim-and-fill did not converge on a symmetric funnel")
	}
	if math.Abs(res.TrimFill.AdjustedEstimate-0.5) > 1e-9 {
		t.Fatalf("adjusted estimate must equal the center 0.5, got %.6f", res.TrimFill.AdjustedEstimate)
	}
	if res.Detected() {
		t.Fatal("no bias must be detected on a symmetric funnel")
	}
	if math.Abs(res.Summary.MeanEffect-0.5) > 1e-9 || math.Abs(res.Summary.MedianEffect-0.5) > 1e-9 {
		t.Fatalf("funnel summary must center on 0.5, got mean %.6f median %.6f",
			res.Summary.MeanEffect, res.Summary.MedianEffect)
	}
	// precisions for se=0.1+0.05i, i=0..5 mirrored: the middle pair is 4 and 5
	if math.Abs(res.Summary.MedianPrecision-4.5) > 1e-9 {
		t.Fatalf("median precision must be 4.5, got %.6f", res.Summary.MedianPrecision)
	}
	if res.Summary.EffectSpread <= 0 {
		t.Fatalf("spread-out effects must have positive spread, got %g", res.Summary.EffectSpread)
	}
}

func TestAssess_FunnelSummaryHandValues(t *testing.T) {
	effects := []synthesis.EffectSize{
		{StudyID: "a", Measure: synthesis.MeasureMeanDifference, Estimate: 1, SE: 0.5},
		{StudyID: "b", Measure: synthesis.MeasureMeanDifference, Estimate: 2, SE: 0.5},
		{StudyID: "c", Measure: synthesis.MeasureMeanDifference, Estimate: 3, SE: 0.5},
	}
	res, err := newAnalyzer().Assess(effects)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}

	s := res.Summary
	if math.Abs(s.MeanEffect-2) > 1e-12 || math.Abs(s.MedianEffect-2) > 1e-12 {
		t.Fatalf("want mean and median 2, got %.6f and %.6f", s.MeanEffect, s.MedianEffect)
	}
	if math.Abs(s.EffectSpread-1) > 1e-12 {
		t.Fatalf("want sample standard deviation 1, got %.6f", s.EffectSpread)
	}
	if math.Abs(s.MedianPrecision-2) > 1e-12 {
		t.Fatalf("want median precision 2, got %.6f", s.MedianPrecision)
	}
}

func TestAssess_SuppressedFunnelImputesAndShrinks(t *testing.T) {
	effects := studygen.SuppressedFunnel(6, 3, 0.5, synthesis.MeasureMeanDifference)
	res, err := newAnalyzer().Assess(effects)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}

	if res.TrimFill.Imputed == 0 {
		t.Fatal("suppressing small null studies must trigger imputation")
	}
	if res.TrimFill.Side != "right" {
		t.Fatalf("removing low-side studies leaves the right side heavy, got %q", res.TrimFill.Side)
	}
	if !res.TrimFill.Converged {
		t.Fatalf("trim-and-fill did not converge in %d iterations", res.TrimFill.Iterations)
	}

	// The adjusted estimate moves back toward the true center 0.5
	var sumW, sumWY float64
	for _, e := range effects {
		w := 1 / e.Variance()
		sumW += w
		sumWY += w * e.AnalysisValue()
	}
	unadjusted := sumWY / sumW
	if !(res.TrimFill.AdjustedEstimate < unadjusted) {
		t.Fatalf("adjusted %.4f not below unadjusted %.4f", res.TrimFill.AdjustedEstimate, unadjusted)
	}
	if math.Abs(res.TrimFill.AdjustedEstimate-0.5) >= math.Abs(unadjusted-0.5) {
		t.Fatalf("adjusted %.4f not closer to 0.5 than unadjusted %.4f", res.TrimFill.AdjustedEstimate, unadjusted)
	}
}

func TestAssess_GradedAsymmetryDetected(t *testing.T) {
	res, err := newAnalyzer().Assess(gradedAsymmetric(10))
	if err != nil {
		t.Fatalf("assess: %v", err)
	}

	if !res.Egger.Asymmetric {
		t.Fatalf("small-study pattern not flagged by Egger, p=%.4f", res.Egger.PValue)
	}
	if res.Egger.Intercept <= 0 {
		t.Fatalf("expected positive intercept, got %.4f", res.Egger.Intercept)
	}
	if res.Begg.Tau != 1 {
		t.Fatalf("monotone pattern must give Begg tau=1, got %.4f", res.Begg.Tau)
	}
	if res.Begg.PValue >= 0.05 {
		t.Fatalf("expected significant Begg test, p=%.4f", res.Begg.PValue)
	}
	if res.TrimFill.Imputed == 0 {
		t.Fatal("asymmetric funnel must impute studies")
	}
	if !res.Detected() {
		t.Fatal("bias must be detected when Egger flags and studies are imputed")
	}
}

func TestAssess_FunnelIncludesImputedPoints(t *testing.T) {
	effects := studygen.SuppressedFunnel(6, 3, 0.5, synthesis.MeasureMeanDifference)
	res, err := newAnalyzer().Assess(effects)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}

	if len(res.Funnel) != len(effects)+res.TrimFill.Imputed {
		t.Fatalf("funnel has %d points, want %d observed + %d imputed",
			len(res.Funnel), len(effects), res.TrimFill.Imputed)
	}
	imputed := 0
	for _, p := range res.Funnel {
		if p.Imputed {
			imputed++
			if p.Effect >= 0.5 {
				t.Fatalf("imputed point %s on the heavy side: effect=%.4f", p.StudyID, p.Effect)
			}
		}
		if math.Abs(p.Precision-1/p.SE) > 1e-12 {
			t.Fatalf("precision must be 1/SE for %s", p.StudyID)
		}
	}
	if imputed != res.TrimFill.Imputed {
		t.Fatalf("%d imputed funnel points, TrimFill reports %d", imputed, res.TrimFill.Imputed)
	}
}

func TestAssess_RatioMeasureStaysOnRatioScale(t *testing.T) {
	// A symmetric funnel of log odds ratios around log(2): the adjusted
	// estimate back-transforms to an OR of 2.
	effects := studygen.SymmetricFunnel(5, math.Log(2), synthesis.MeasureOddsRatio)
	res, err := newAnalyzer().Assess(effects)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if math.Abs(res.TrimFill.AdjustedEstimate-2) > 1e-9 {
		t.Fatalf("expected adjusted OR=2, got %.6f", res.TrimFill.AdjustedEstimate)
	}
	if res.TrimFill.AdjustedCILower <= 0 {
		t.Fatalf("ratio-scale CI lower bound must be positive, got %.6f", res.TrimFill.AdjustedCILower)
	}
}

func TestAssess_TooFewStudiesFails(t *testing.T) {
	effects := studygen.SymmetricFunnel(1, 0.5, synthesis.MeasureMeanDifference)
	_, err := newAnalyzer().Assess(effects)
	if !core.IsInsufficientStudies(err) {
		t.Fatalf("expected insufficient studies error, got %v", err)
	}
}

func TestAssess_SmallSetFlaggedLowPower(t *testing.T) {
	an := newAnalyzer()

	small, err := an.Assess(studygen.SymmetricFunnel(2, 0.5, synthesis.MeasureMeanDifference))
	if err != nil {
		t.Fatalf("assess small: %v", err)
	}
	if !small.LowPower {
		t.Fatalf("%d studies must be flagged low power", small.K)
	}

	large, err := an.Assess(studygen.SymmetricFunnel(6, 0.5, synthesis.MeasureMeanDifference))
	if err != nil {
		t.Fatalf("assess large: %v", err)
	}
	if large.LowPower {
		t.Fatalf("%d studies wrongly flagged low power", large.K)
	}
}

func TestEgger_UniformPrecisionIsUndefined(t *testing.T) {
	effects := []synthesis.EffectSize{
		{StudyID: "s1", Measure: synthesis.MeasureMeanDifference, Estimate: 0.2, SE: 0.3},
		{StudyID: "s2", Measure: synthesis.MeasureMeanDifference, Estimate: 0.8, SE: 0.3},
		{StudyID: "s3", Measure: synthesis.MeasureMeanDifference, Estimate: 0.5, SE: 0.3},
	}
	res, err := newAnalyzer().Assess(effects)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	if res.Egger.Asymmetric || res.Egger.PValue != 1 {
		t.Fatalf("uniform precision must disable the regression, got p=%.4f", res.Egger.PValue)
	}
}
