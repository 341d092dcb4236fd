package synthesis

import (
	"time"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
)

// OutcomeRequest is one outcome's worth of input to the synthesis pipeline
type OutcomeRequest struct {
	OutcomeID core.OutcomeID     `json:"outcome_id"`
	Label     string             `json:"label,omitempty"`
	Measure   Measure            `json:"measure"`
	Model     Model              `json:"model"`
	Studies   []StudyObservation `json:"studies"`

	// GRADE context from upstream collaborators
	Design               StudyDesign `json:"design"`
	RiskOfBias           RiskOfBias  `json:"risk_of_bias"`
	Indirect             bool        `json:"indirect,omitempty"`
	DoseResponse         bool        `json:"dose_response,omitempty"`
	PlausibleConfounding bool        `json:"plausible_confounding,omitempty"`
	ClinicalThreshold    float64     `json:"clinical_threshold,omitempty"`
}

// Report is the immutable end-to-end result for one outcome. Every field is a
// value object owned by the caller; nothing is shared or mutated afterwards.
type Report struct {
	AnalysisID    core.AnalysisID    `json:"analysis_id"`
	OutcomeID     core.OutcomeID     `json:"outcome_id"`
	Label         string             `json:"label,omitempty"`
	Effects       []EffectSize       `json:"effects"`
	Heterogeneity HeterogeneityStats `json:"heterogeneity"`
	Pooled        PooledResult       `json:"pooled"`
	Bias          *BiasAssessment    `json:"bias,omitempty"`
	Grade         GradeAssessment    `json:"grade"`
	ComputedAt    time.Time          `json:"computed_at"`
	RuntimeMs     int64              `json:"runtime_ms"`
}
