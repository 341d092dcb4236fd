package effectsize

import (
	"fmt"
	"math"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/analysis"
)

// Calculator converts raw per-study counts or means into a common effect
// metric with variance. It is pure and stateless; the config is a value.
type Calculator struct {
	cfg  synthesis.AnalysisConfig
	dist *analysis.StatisticalDistributions
}

// NewCalculator creates an effect size calculator
func NewCalculator(cfg synthesis.AnalysisConfig) *Calculator {
	return &Calculator{cfg: cfg, dist: analysis.NewDistributions()}
}

// cells is a 2x2 table on the continuity-corrected scale
type cells struct {
	a, b, c, d float64 // treatment events/non-events, control events/non-events
}

func (t cells) n1() float64 { return t.a + t.b }
func (t cells) n2() float64 { return t.c + t.d }

// binaryFormula returns the analysis-scale estimate and its standard error.
// Ratio measures work on the log scale here and are exponentiated for display.
type binaryFormula func(t cells) (estimate, se float64)

var binaryFormulas = map[synthesis.Measure]binaryFormula{
	synthesis.MeasureOddsRatio: func(t cells) (float64, float64) {
		logOR := math.Log((t.a * t.d) / (t.b * t.c))
		se := math.Sqrt(1/t.a + 1/t.b + 1/t.c + 1/t.d)
		return logOR, se
	},
	synthesis.MeasureRiskRatio: func(t cells) (float64, float64) {
		logRR := math.Log((t.a / t.n1()) / (t.c / t.n2()))
		se := math.Sqrt(1/t.a - 1/t.n1() + 1/t.c - 1/t.n2())
		return logRR, se
	},
	synthesis.MeasureRiskDifference: func(t cells) (float64, float64) {
		p1 := t.a / t.n1()
		p2 := t.c / t.n2()
		se := math.Sqrt(p1*(1-p1)/t.n1() + p2*(1-p2)/t.n2())
		return p1 - p2, se
	},
}

// continuousFormula returns the estimate and standard error for two-arm
// continuous summaries. All continuous measures are on the native scale.
type continuousFormula func(n1 float64, m1, sd1 float64, n2 float64, m2, sd2 float64) (estimate, se float64)

var continuousFormulas = map[synthesis.Measure]continuousFormula{
	synthesis.MeasureMeanDifference: func(n1, m1, sd1, n2, m2, sd2 float64) (float64, float64) {
		se := math.Sqrt(sd1*sd1/n1 + sd2*sd2/n2)
		return m1 - m2, se
	},
	synthesis.MeasureSMD: func(n1, m1, sd1, n2, m2, sd2 float64) (float64, float64) {
		df := n1 + n2 - 2
		pooledSD := math.Sqrt(((n1-1)*sd1*sd1 + (n2-1)*sd2*sd2) / df)
		d := (m1 - m2) / pooledSD

		// Hedges' g small-sample correction
		j := 1 - 3/(4*df-1)
		g := j * d

		seD := math.Sqrt((n1+n2)/(n1*n2) + d*d/(2*(n1+n2)))
		return g, j * seD
	},
}

// ComputeBinary computes an effect size from a 2x2 table: a,b are treatment
// events/non-events, c,d are control events/non-events. Any zero cell gets the
// +0.5 continuity correction for ratio measures and the result is flagged.
func (calc *Calculator) ComputeBinary(studyID core.StudyID, a, b, c, d int, measure synthesis.Measure) (synthesis.EffectSize, error) {
	if !measure.IsBinary() {
		return synthesis.EffectSize{}, core.NewConfigurationError("measure", fmt.Sprintf("%s is not a binary measure", measure))
	}
	id := studyID.String()
	if a < 0 || b < 0 || c < 0 || d < 0 {
		return synthesis.EffectSize{}, core.NewInsufficientDataError(id, "negative cell count")
	}
	if a+b == 0 || c+d == 0 {
		return synthesis.EffectSize{}, core.NewInsufficientDataError(id, "empty study arm")
	}

	t := cells{a: float64(a), b: float64(b), c: float64(c), d: float64(d)}
	corrected := false
	if measure.IsRatio() && (a == 0 || b == 0 || c == 0 || d == 0) {
		t = cells{a: t.a + 0.5, b: t.b + 0.5, c: t.c + 0.5, d: t.d + 0.5}
		corrected = true
	}

	estimate, se := binaryFormulas[measure](t)
	if !isFinite(estimate) || !isFinite(se) {
		return synthesis.EffectSize{}, core.NewInstabilityError("effect size", fmt.Sprintf("study %s: non-finite %s estimate", id, measure))
	}
	if se <= 0 {
		return synthesis.EffectSize{}, core.NewInstabilityError("effect size", fmt.Sprintf("study %s: zero variance %s estimate", id, measure))
	}

	es := calc.fromAnalysisScale(studyID, measure, estimate, se)
	es.Corrected = corrected
	return es, nil
}

// ComputeContinuous computes an effect size from two-arm continuous summaries
func (calc *Calculator) ComputeContinuous(studyID core.StudyID, n1 int, m1, sd1 float64, n2 int, m2, sd2 float64, measure synthesis.Measure) (synthesis.EffectSize, error) {
	if !measure.IsContinuous() {
		return synthesis.EffectSize{}, core.NewConfigurationError("measure", fmt.Sprintf("%s is not a continuous measure", measure))
	}
	id := studyID.String()
	if n1 < 2 || n2 < 2 {
		return synthesis.EffectSize{}, core.NewInsufficientDataError(id, "each arm needs at least 2 participants")
	}
	if sd1 <= 0 || sd2 <= 0 {
		return synthesis.EffectSize{}, core.NewInsufficientDataError(id, "non-positive standard deviation")
	}

	estimate, se := continuousFormulas[measure](float64(n1), m1, sd1, float64(n2), m2, sd2)
	if !isFinite(estimate) || !isFinite(se) || se <= 0 {
		return synthesis.EffectSize{}, core.NewInstabilityError("effect size", fmt.Sprintf("study %s: degenerate %s estimate", id, measure))
	}

	return calc.fromAnalysisScale(studyID, measure, estimate, se), nil
}

// ComputeObservation dispatches a study observation to the right formula
func (calc *Calculator) ComputeObservation(obs synthesis.StudyObservation, measure synthesis.Measure) (synthesis.EffectSize, error) {
	if err := obs.Validate(); err != nil {
		return synthesis.EffectSize{}, err
	}
	if obs.Insufficient {
		return synthesis.EffectSize{}, core.NewInsufficientDataError(obs.StudyID.String(), "study flagged insufficient data")
	}

	switch {
	case obs.Binary != nil:
		tr, co := obs.Binary.Treatment, obs.Binary.Control
		return calc.ComputeBinary(obs.StudyID, tr.Events, tr.Total-tr.Events, co.Events, co.Total-co.Events, measure)
	case obs.Continuous != nil:
		tr, co := obs.Continuous.Treatment, obs.Continuous.Control
		return calc.ComputeContinuous(obs.StudyID, tr.N, tr.Mean, tr.SD, co.N, co.Mean, co.SD, measure)
	case obs.Precomputed != nil:
		analysisValue := obs.Precomputed.Estimate
		if measure.IsRatio() {
			if obs.Precomputed.Estimate <= 0 {
				return synthesis.EffectSize{}, core.NewInsufficientDataError(obs.StudyID.String(), "non-positive ratio estimate")
			}
			analysisValue = math.Log(obs.Precomputed.Estimate)
		}
		return calc.fromAnalysisScale(obs.StudyID, measure, analysisValue, obs.Precomputed.SE), nil
	}
	return synthesis.EffectSize{}, core.NewInsufficientDataError(obs.StudyID.String(), "no usable data")
}

// fromAnalysisScale builds the result struct: the CI is always derived on the
// analysis scale (log for ratio measures) and back-transformed, never computed
// directly on the ratio scale.
func (calc *Calculator) fromAnalysisScale(studyID core.StudyID, measure synthesis.Measure, estimate, se float64) synthesis.EffectSize {
	z := calc.dist.ZCritical(calc.cfg.ConfidenceLevel)
	return synthesis.EffectSize{
		StudyID:  studyID,
		Measure:  measure,
		Estimate: measure.FromAnalysisScale(estimate),
		SE:       se,
		CILower:  measure.FromAnalysisScale(estimate - z*se),
		CIUpper:  measure.FromAnalysisScale(estimate + z*se),
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
