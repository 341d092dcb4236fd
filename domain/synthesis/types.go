package synthesis

import (
	"math"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// Measure identifies the effect metric a study contributes on
type Measure string

const (
	MeasureOddsRatio      Measure = "OR"  // odds ratio (log scale analysis)
	MeasureRiskRatio      Measure = "RR"  // risk ratio (log scale analysis)
	MeasureRiskDifference Measure = "RD"  // absolute risk difference
	MeasureMeanDifference Measure = "MD"  // raw mean difference
	MeasureSMD            Measure = "SMD" // standardized mean difference (Hedges' g)
)

// IsRatio reports whether the measure is analyzed on the log scale
func (m Measure) IsRatio() bool {
	return m == MeasureOddsRatio || m == MeasureRiskRatio
}

// IsBinary reports whether the measure is computed from 2x2 tables
func (m Measure) IsBinary() bool {
	return m == MeasureOddsRatio || m == MeasureRiskRatio || m == MeasureRiskDifference
}

// IsContinuous reports whether the measure is computed from means/SDs
func (m Measure) IsContinuous() bool {
	return m == MeasureMeanDifference || m == MeasureSMD
}

// Valid reports whether the measure is a known effect metric
func (m Measure) Valid() bool {
	return m.IsBinary() || m.IsContinuous()
}

// NullValue returns the no-effect value on the native scale (1 for ratios, 0 otherwise)
func (m Measure) NullValue() float64 {
	if m.IsRatio() {
		return 1
	}
	return 0
}

// Model identifies the pooling assumption
type Model string

const (
	ModelFixed  Model = "fixed"
	ModelRandom Model = "random"
	ModelAuto   Model = "auto" // resolved to fixed or random from heterogeneity
)

// Valid reports whether the model selection is known
func (m Model) Valid() bool {
	return m == ModelFixed || m == ModelRandom || m == ModelAuto
}

// ============================================================================
// STUDY-LEVEL INPUTS
// ============================================================================

// BinaryArm holds event counts for one treatment arm
type BinaryArm struct {
	Events int `json:"events"`
	Total  int `json:"total"`
}

// BinaryComparison is one study's 2x2 table
type BinaryComparison struct {
	Treatment BinaryArm `json:"treatment"`
	Control   BinaryArm `json:"control"`
}

// ContinuousArm holds summary statistics for one treatment arm
type ContinuousArm struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
}

// ContinuousComparison is one study's two-arm continuous summary
type ContinuousComparison struct {
	Treatment ContinuousArm `json:"treatment"`
	Control   ContinuousArm `json:"control"`
}

// PrecomputedEffect carries an effect size supplied by the extraction pipeline
// (e.g. from a study that only reports an adjusted estimate).
type PrecomputedEffect struct {
	Estimate float64 `json:"estimate"` // native scale
	SE       float64 `json:"se"`       // analysis scale (log for ratio measures)
}

// StudyObservation represents one study's contribution to an outcome.
// Exactly one of Binary, Continuous, or Precomputed should be set.
type StudyObservation struct {
	StudyID      core.StudyID          `json:"study_id"`
	Binary       *BinaryComparison     `json:"binary,omitempty"`
	Continuous   *ContinuousComparison `json:"continuous,omitempty"`
	Precomputed  *PrecomputedEffect    `json:"precomputed,omitempty"`
	Insufficient bool                  `json:"insufficient,omitempty"` // flagged "insufficient data" upstream
}

// Validate enforces the numeric range invariants at the component boundary:
// counts are non-negative and bounded by arm totals, SDs are positive unless
// the study is flagged insufficient.
func (s StudyObservation) Validate() error {
	id := s.StudyID.String()
	if id == "" {
		return core.NewStudyValidationError("(unknown)", "study_id", "missing identifier")
	}
	if s.Insufficient {
		return nil
	}
	switch {
	case s.Binary != nil:
		for _, arm := range []struct {
			name string
			arm  BinaryArm
		}{{"treatment", s.Binary.Treatment}, {"control", s.Binary.Control}} {
			if arm.arm.Total <= 0 {
				return core.NewStudyValidationError(id, arm.name+".total", "sample size must be positive")
			}
			if arm.arm.Events < 0 {
				return core.NewStudyValidationError(id, arm.name+".events", "event count must be non-negative")
			}
			if arm.arm.Events > arm.arm.Total {
				return core.NewStudyValidationError(id, arm.name+".events", "event count exceeds sample size")
			}
		}
	case s.Continuous != nil:
		for _, arm := range []struct {
			name string
			arm  ContinuousArm
		}{{"treatment", s.Continuous.Treatment}, {"control", s.Continuous.Control}} {
			if arm.arm.N < 2 {
				return core.NewStudyValidationError(id, arm.name+".n", "sample size must be at least 2")
			}
			if arm.arm.SD <= 0 {
				return core.NewStudyValidationError(id, arm.name+".sd", "standard deviation must be positive")
			}
			if math.IsNaN(arm.arm.Mean) || math.IsInf(arm.arm.Mean, 0) {
				return core.NewStudyValidationError(id, arm.name+".mean", "mean is not finite")
			}
		}
	case s.Precomputed != nil:
		if s.Precomputed.SE <= 0 {
			return core.NewStudyValidationError(id, "precomputed.se", "standard error must be positive")
		}
		if math.IsNaN(s.Precomputed.Estimate) || math.IsInf(s.Precomputed.Estimate, 0) {
			return core.NewStudyValidationError(id, "precomputed.estimate", "estimate is not finite")
		}
	default:
		return core.NewInsufficientDataError(id, "no arm data or precomputed effect supplied")
	}
	return nil
}

// ============================================================================
// EFFECT SIZES
// ============================================================================

// EffectSize is one study's effect on a common metric.
// Estimate and the CI bounds are on the native scale (ratio measures are
// exponentiated); SE is on the analysis scale (log for ratio measures).
type EffectSize struct {
	StudyID   core.StudyID `json:"study_id"`
	Measure   Measure      `json:"measure"`
	Estimate  float64      `json:"estimate"`
	SE        float64      `json:"se"`
	CILower   float64      `json:"ci_lower"`
	CIUpper   float64      `json:"ci_upper"`
	Corrected bool         `json:"corrected,omitempty"` // continuity correction applied
}

// AnalysisValue returns the point estimate on the scale pooling operates on:
// log scale for ratio measures, native scale otherwise.
func (e EffectSize) AnalysisValue() float64 {
	if e.Measure.IsRatio() {
		return math.Log(e.Estimate)
	}
	return e.Estimate
}

// Variance returns SE squared on the analysis scale
func (e EffectSize) Variance() float64 {
	return e.SE * e.SE
}

// FromAnalysisScale back-transforms an analysis-scale value to the native scale
func (m Measure) FromAnalysisScale(v float64) float64 {
	if m.IsRatio() {
		return math.Exp(v)
	}
	return v
}
