package synthesis

import (
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
)

// Tau2MethodDL names the default between-study variance estimator
const Tau2MethodDL = "DerSimonian-Laird"

// PredictionInterval bounds the effect expected in a new study (native scale)
type PredictionInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// HeterogeneityStats quantifies between-study variability for one outcome.
// Computed once from the full effect-size set; any change in included studies
// requires full recomputation.
type HeterogeneityStats struct {
	K                   int                 `json:"k"`  // number of studies
	Q                   float64             `json:"q"`  // Cochran's Q
	DF                  int                 `json:"df"` // k - 1
	PValue              float64             `json:"p_value"`
	I2                  float64             `json:"i2"`   // percent, in [0, 100]
	Tau2                float64             `json:"tau2"` // never negative
	Tau2Method          string              `json:"tau2_method"`
	H2                  float64             `json:"h2"` // Q/df, floored at 1
	Prediction          *PredictionInterval `json:"prediction,omitempty"` // only when k >= 3
	InsufficientStudies bool                `json:"insufficient_studies,omitempty"`
}

// StudyWeight is one study's normalized contribution to the pooled estimate
type StudyWeight struct {
	StudyID core.StudyID `json:"study_id"`
	Weight  float64      `json:"weight"` // weights sum to 1
}

// PooledResult is the summary estimate for one outcome under a chosen model.
// Estimate/CI are native scale; SE is analysis scale.
type PooledResult struct {
	Model       Model         `json:"model"` // resolved model, never "auto"
	ModelReason string        `json:"model_reason"`
	Measure     Measure       `json:"measure"`
	Estimate    float64       `json:"estimate"`
	SE          float64       `json:"se"`
	CILower     float64       `json:"ci_lower"`
	CIUpper     float64       `json:"ci_upper"`
	Weights     []StudyWeight `json:"weights"`
	Tau2        float64       `json:"tau2"`
	Tau2Method  string        `json:"tau2_method"`
	K           int           `json:"k"`
}

// FunnelPoint is one study's funnel-plot coordinate
type FunnelPoint struct {
	StudyID   core.StudyID `json:"study_id"`
	Effect    float64      `json:"effect"`    // analysis scale
	SE        float64      `json:"se"`        // analysis scale
	Precision float64      `json:"precision"` // 1/SE
	Imputed   bool         `json:"imputed,omitempty"`
}

// EggerResult holds the regression asymmetry test
type EggerResult struct {
	Intercept   float64 `json:"intercept"`
	InterceptSE float64 `json:"intercept_se"`
	Slope       float64 `json:"slope"`
	TStat       float64 `json:"t_stat"`
	PValue      float64 `json:"p_value"`
	Asymmetric  bool    `json:"asymmetric"` // p < 0.10 convention
}

// BeggResult holds the rank correlation asymmetry test
type BeggResult struct {
	Tau    float64 `json:"tau"` // Kendall's tau
	Z      float64 `json:"z"`
	PValue float64 `json:"p_value"`
}

// TrimFillResult holds the trim-and-fill adjustment
type TrimFillResult struct {
	Imputed          int     `json:"imputed"` // number of mirror studies filled in
	AdjustedEstimate float64 `json:"adjusted_estimate"` // native scale
	AdjustedCILower  float64 `json:"adjusted_ci_lower"`
	AdjustedCIUpper  float64 `json:"adjusted_ci_upper"`
	Side             string  `json:"side"` // "left" or "right": the heavier funnel side
	Iterations       int     `json:"iterations"`
	Converged        bool    `json:"converged"` // false when the iteration cap was hit
}

// FunnelSummary describes the observed funnel on the analysis scale, before
// any imputation
type FunnelSummary struct {
	MeanEffect      float64 `json:"mean_effect"`
	MedianEffect    float64 `json:"median_effect"`
	EffectSpread    float64 `json:"effect_spread"` // sample standard deviation
	MedianPrecision float64 `json:"median_precision"`
}

// BiasAssessment summarizes publication-bias diagnostics for one outcome
type BiasAssessment struct {
	K        int            `json:"k"`
	LowPower bool           `json:"low_power,omitempty"` // k below the meaningful minimum
	Egger    EggerResult    `json:"egger"`
	Begg     BeggResult     `json:"begg"`
	TrimFill TrimFillResult `json:"trim_fill"`
	Funnel   []FunnelPoint  `json:"funnel"`
	Summary  FunnelSummary  `json:"summary"`
}

// Detected reports whether the assessment indicates publication bias under the
// convention used for GRADE: a significant Egger test together with an
// asymmetric trim-and-fill adjustment.
func (b BiasAssessment) Detected() bool {
	return b.Egger.Asymmetric && b.TrimFill.Imputed > 0
}
