package synthesis

// StudyDesign is the design label supplied by the upstream classification
// collaborator; the engine never classifies studies itself.
type StudyDesign string

const (
	DesignRCT           StudyDesign = "rct"
	DesignObservational StudyDesign = "observational"
)

// Valid reports whether the design label is known
func (d StudyDesign) Valid() bool {
	return d == DesignRCT || d == DesignObservational
}

// QualityLevel is a GRADE evidence-quality rating
type QualityLevel string

const (
	QualityHigh     QualityLevel = "High"
	QualityModerate QualityLevel = "Moderate"
	QualityLow      QualityLevel = "Low"
	QualityVeryLow  QualityLevel = "Very Low"
)

var qualityRank = map[QualityLevel]int{
	QualityVeryLow:  1,
	QualityLow:      2,
	QualityModerate: 3,
	QualityHigh:     4,
}

// Rank maps the level to an ordinal (Very Low=1 .. High=4)
func (q QualityLevel) Rank() int {
	return qualityRank[q]
}

// QualityFromRank clamps an ordinal back into the valid range
func QualityFromRank(rank int) QualityLevel {
	if rank < 1 {
		rank = 1
	}
	if rank > 4 {
		rank = 4
	}
	for level, r := range qualityRank {
		if r == rank {
			return level
		}
	}
	return QualityVeryLow
}

// RiskOfBias is the risk-of-bias judgment from the upstream classifier
type RiskOfBias string

const (
	RiskLow      RiskOfBias = "low"
	RiskModerate RiskOfBias = "moderate"
	RiskHigh     RiskOfBias = "high"
	RiskCritical RiskOfBias = "critical"
)

// GradeFactor names one GRADE adjustment domain
type GradeFactor string

const (
	FactorRiskOfBias           GradeFactor = "risk_of_bias"
	FactorInconsistency        GradeFactor = "inconsistency"
	FactorIndirectness         GradeFactor = "indirectness"
	FactorImprecision          GradeFactor = "imprecision"
	FactorPublicationBias      GradeFactor = "publication_bias"
	FactorLargeEffect          GradeFactor = "large_effect"
	FactorDoseResponse         GradeFactor = "dose_response"
	FactorPlausibleConfounding GradeFactor = "plausible_confounding"
)

// AdjustmentDirection is up or down
type AdjustmentDirection string

const (
	AdjustUp   AdjustmentDirection = "up"
	AdjustDown AdjustmentDirection = "down"
)

// Adjustment is one applied GRADE factor with its rationale
type Adjustment struct {
	Factor    GradeFactor         `json:"factor"`
	Direction AdjustmentDirection `json:"direction"`
	Levels    int                 `json:"levels"` // magnitude, 1 or 2
	Rationale string              `json:"rationale"`
}

// GradeInput gathers the signals the grader consumes. Design, risk of bias and
// the upgrade flags come from upstream collaborators; heterogeneity, bias and
// pooled results come from the engine's own components.
type GradeInput struct {
	Design               StudyDesign        `json:"design"`
	RiskOfBias           RiskOfBias         `json:"risk_of_bias"`
	Indirect             bool               `json:"indirect"`              // population/outcome mismatch, caller-supplied
	DoseResponse         bool               `json:"dose_response"`         // caller-supplied gradient flag
	PlausibleConfounding bool               `json:"plausible_confounding"` // caller-supplied
	ClinicalThreshold    float64            `json:"clinical_threshold"`    // CI width considered imprecise; 0 uses the default
	Heterogeneity        HeterogeneityStats `json:"heterogeneity"`
	Pooled               PooledResult       `json:"pooled"`
	Bias                 *BiasAssessment    `json:"bias,omitempty"` // nil when not assessed
}

// GradeAssessment is the graded quality with its full audit trail: every
// applied factor carries direction, magnitude and a one-sentence rationale.
type GradeAssessment struct {
	StartingQuality QualityLevel `json:"starting_quality"`
	FinalQuality    QualityLevel `json:"final_quality"`
	Adjustments     []Adjustment `json:"adjustments"`
	Rationale       string       `json:"rationale"`
}
