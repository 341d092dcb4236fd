package synthesis

import (
	"fmt"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
)

// AnalysisConfig carries the tunable thresholds shared by the engine
// components. It is a value passed into each call, never module-level state,
// so one engine instance can serve concurrent analyses with different
// thresholds.
type AnalysisConfig struct {
	ConfidenceLevel      float64 `json:"confidence_level"`        // CI coverage, default 0.95
	AutoModelI2Threshold float64 `json:"auto_model_i2_threshold"` // percent; fixed below, random at or above
	MinStudiesPooling    int     `json:"min_studies_pooling"`
	MinStudiesBias       int     `json:"min_studies_bias"` // below this bias is computed but flagged low power
	EggerAlpha           float64 `json:"egger_alpha"`      // asymmetry significance convention, default 0.10
	HighI2Threshold      float64 `json:"high_i2_threshold"` // percent; GRADE inconsistency trigger
	LargeEffectRatio     float64 `json:"large_effect_ratio"` // ratio magnitude treated as a large effect
	ImpreciseCIWidth     float64 `json:"imprecise_ci_width"` // default clinical threshold for CI width
	RankingDraws         int     `json:"ranking_draws"` // Monte Carlo draws, minimum 1000
	RankingWorkers       int     `json:"ranking_workers"`
	TrimFillCapFactor    int     `json:"trim_fill_cap_factor"` // iteration cap = factor * k
	MaxLoopLength        int     `json:"max_loop_length"`      // longest closed loop enumerated
}

// DefaultAnalysisConfig returns the documented defaults
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		ConfidenceLevel:      0.95,
		AutoModelI2Threshold: 50,
		MinStudiesPooling:    2,
		MinStudiesBias:       10,
		EggerAlpha:           0.10,
		HighI2Threshold:      75,
		LargeEffectRatio:     2.0,
		ImpreciseCIWidth:     4.0,
		RankingDraws:         2000,
		RankingWorkers:       4,
		TrimFillCapFactor:    2,
		MaxLoopLength:        4,
	}
}

// Validate rejects configurations the components cannot honor
func (c AnalysisConfig) Validate() error {
	if c.ConfidenceLevel <= 0 || c.ConfidenceLevel >= 1 {
		return core.NewConfigurationError("confidence_level", fmt.Sprintf("must be in (0,1), got %g", c.ConfidenceLevel))
	}
	if c.AutoModelI2Threshold < 0 || c.AutoModelI2Threshold > 100 {
		return core.NewConfigurationError("auto_model_i2_threshold", fmt.Sprintf("must be in [0,100], got %g", c.AutoModelI2Threshold))
	}
	if c.MinStudiesPooling < 2 {
		return core.NewConfigurationError("min_studies_pooling", "must be at least 2")
	}
	if c.RankingDraws < 1000 {
		return core.NewConfigurationError("ranking_draws", fmt.Sprintf("must be at least 1000, got %d", c.RankingDraws))
	}
	if c.RankingWorkers < 1 {
		return core.NewConfigurationError("ranking_workers", "must be at least 1")
	}
	if c.TrimFillCapFactor < 1 {
		return core.NewConfigurationError("trim_fill_cap_factor", "must be at least 1")
	}
	if c.MaxLoopLength < 3 {
		return core.NewConfigurationError("max_loop_length", "must be at least 3")
	}
	return nil
}
