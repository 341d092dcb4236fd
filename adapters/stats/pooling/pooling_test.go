package pooling

import (
	"math"
	"strings"
	"testing"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

func newEngine() *Engine {
	return NewEngine(synthesis.DefaultAnalysisConfig())
}

func orEffect(id string, or, se float64) synthesis.EffectSize {
	return synthesis.EffectSize{
		StudyID:  core.StudyID(id),
		Measure:  synthesis.MeasureOddsRatio,
		Estimate: or,
		SE:       se,
	}
}

func mdEffect(id string, md, se float64) synthesis.EffectSize {
	return synthesis.EffectSize{
		StudyID:  core.StudyID(id),
		Measure:  synthesis.MeasureMeanDifference,
		Estimate: md,
		SE:       se,
	}
}

func TestPool_FixedTwoStudyGoldValue(t *testing.T) {
	// OR 2.0 (SE 0.3) and OR 3.0 (SE 0.4) pooled fixed-effect on the log
	// scale: w1=11.11, w2=6.25, pooled log OR = 0.8246, OR = 2.3144.
	effects := []synthesis.EffectSize{
		orEffect("s1", 2.0, 0.3),
		orEffect("s2", 3.0, 0.4),
	}
	res, err := newEngine().Pool(effects, synthesis.ModelFixed)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}

	if math.Abs(res.Estimate-2.3144) > 5e-4 {
		t.Fatalf("expected pooled OR 2.3144, got %.4f", res.Estimate)
	}
	wantSE := 1 / math.Sqrt(1/0.09+1/0.16)
	if math.Abs(res.SE-wantSE) > 1e-9 {
		t.Fatalf("expected SE=%.6f, got %.6f", wantSE, res.SE)
	}
	if res.Model != synthesis.ModelFixed {
		t.Fatalf("unexpected model %s", res.Model)
	}
	if res.CILower >= res.Estimate || res.CIUpper <= res.Estimate {
		t.Fatalf("CI [%.4f, %.4f] does not bracket %.4f", res.CILower, res.CIUpper, res.Estimate)
	}
}

func TestPool_PooledEstimateBetweenInputs(t *testing.T) {
	effects := []synthesis.EffectSize{
		orEffect("s1", 2.0, 0.3),
		orEffect("s2", 3.0, 0.4),
	}
	for _, model := range []synthesis.Model{synthesis.ModelFixed, synthesis.ModelRandom} {
		res, err := newEngine().Pool(effects, model)
		if err != nil {
			t.Fatalf("%s: %v", model, err)
		}
		if res.Estimate < 2.0 || res.Estimate > 3.0 {
			t.Fatalf("%s: pooled %.4f outside study range [2, 3]", model, res.Estimate)
		}
	}
}

func TestPool_IdenticalStudiesShrinkSE(t *testing.T) {
	// k identical studies with SE s pool to the same estimate with SE s/sqrt(k)
	const k = 4
	effects := make([]synthesis.EffectSize, 0, k)
	for i := 0; i < k; i++ {
		effects = append(effects, mdEffect(string(rune('a'+i)), 1.5, 0.4))
	}
	res, err := newEngine().Pool(effects, synthesis.ModelFixed)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if math.Abs(res.Estimate-1.5) > 1e-9 {
		t.Fatalf("expected pooled MD=1.5, got %.6f", res.Estimate)
	}
	if math.Abs(res.SE-0.4/math.Sqrt(k)) > 1e-9 {
		t.Fatalf("expected SE=%.6f, got %.6f", 0.4/math.Sqrt(k), res.SE)
	}
}

func TestPool_RandomNeverTighterThanFixed(t *testing.T) {
	// Heterogeneous set: tau² > 0 widens the random-effects interval
	effects := []synthesis.EffectSize{
		mdEffect("s1", 0.1, 0.2),
		mdEffect("s2", 1.4, 0.2),
		mdEffect("s3", 0.7, 0.2),
		mdEffect("s4", 2.0, 0.2),
	}
	eng := newEngine()
	fixed, err := eng.Pool(effects, synthesis.ModelFixed)
	if err != nil {
		t.Fatalf("fixed: %v", err)
	}
	random, err := eng.Pool(effects, synthesis.ModelRandom)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	if random.Tau2 <= 0 {
		t.Fatalf("construction broken: tau2=%.6f", random.Tau2)
	}
	if random.SE < fixed.SE {
		t.Fatalf("random SE %.6f tighter than fixed SE %.6f", random.SE, fixed.SE)
	}
}

func TestPool_AutoSelectsFixedWhenHomogeneous(t *testing.T) {
	effects := []synthesis.EffectSize{
		mdEffect("s1", 1.0, 0.3),
		mdEffect("s2", 1.0, 0.3),
		mdEffect("s3", 1.0, 0.3),
	}
	res, err := newEngine().Pool(effects, synthesis.ModelAuto)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if res.Model != synthesis.ModelFixed {
		t.Fatalf("homogeneous auto pool must resolve fixed, got %s", res.Model)
	}
	if !strings.Contains(res.ModelReason, "auto") || !strings.Contains(res.ModelReason, "fixed") {
		t.Fatalf("model reason does not record the auto decision: %q", res.ModelReason)
	}
}

func TestPool_AutoSelectsRandomWhenHeterogeneous(t *testing.T) {
	// Two studies at 0 and 2 with SE 0.3: Q = 2*(1/0.09) ≈ 22.2, I² ≈ 95%
	effects := []synthesis.EffectSize{
		mdEffect("s1", 0.0, 0.3),
		mdEffect("s2", 2.0, 0.3),
		mdEffect("s3", 0.1, 0.3),
		mdEffect("s4", 1.9, 0.3),
	}
	res, err := newEngine().Pool(effects, synthesis.ModelAuto)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if res.Model != synthesis.ModelRandom {
		t.Fatalf("heterogeneous auto pool must resolve random, got %s", res.Model)
	}
	if !strings.Contains(res.ModelReason, "random") {
		t.Fatalf("model reason does not record the auto decision: %q", res.ModelReason)
	}
	if res.Tau2 <= 0 {
		t.Fatalf("expected positive tau2, got %.6f", res.Tau2)
	}
	if res.Tau2Method != synthesis.Tau2MethodDL {
		t.Fatalf("unexpected tau2 method %q", res.Tau2Method)
	}
}

func TestPool_WeightsNormalizedAndOrdered(t *testing.T) {
	effects := []synthesis.EffectSize{
		mdEffect("s1", 1.0, 0.2),
		mdEffect("s2", 1.2, 0.4),
		mdEffect("s3", 0.8, 0.6),
	}
	res, err := newEngine().Pool(effects, synthesis.ModelFixed)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}

	var total float64
	for _, w := range res.Weights {
		if w.Weight <= 0 {
			t.Fatalf("study %s has non-positive weight %.6f", w.StudyID, w.Weight)
		}
		total += w.Weight
	}
	if math.Abs(total-1) > 1e-9 {
		t.Fatalf("weights must sum to 1, got %.9f", total)
	}
	// Smaller SE means larger weight
	if !(res.Weights[0].Weight > res.Weights[1].Weight && res.Weights[1].Weight > res.Weights[2].Weight) {
		t.Fatalf("weights not ordered by precision: %+v", res.Weights)
	}
}

func TestPool_Failures(t *testing.T) {
	eng := newEngine()

	if _, err := eng.Pool([]synthesis.EffectSize{orEffect("s1", 2.0, 0.3)}, synthesis.ModelFixed); !core.IsInsufficientStudies(err) {
		t.Fatalf("single study: expected insufficient studies error, got %v", err)
	}

	mixed := []synthesis.EffectSize{orEffect("s1", 2.0, 0.3), mdEffect("s2", 1.0, 0.3)}
	if _, err := eng.Pool(mixed, synthesis.ModelFixed); !core.IsConfigurationError(err) {
		t.Fatalf("mixed measures: expected configuration error, got %v", err)
	}

	if _, err := eng.Pool([]synthesis.EffectSize{orEffect("s1", 2.0, 0.3), orEffect("s2", 3.0, 0)}, synthesis.ModelFixed); !core.IsNumericalInstability(err) {
		t.Fatalf("zero SE: expected instability error, got %v", err)
	}

	if _, err := eng.Pool(mixed, synthesis.Model("bayesian")); !core.IsConfigurationError(err) {
		t.Fatalf("unknown model: expected configuration error, got %v", err)
	}
}
