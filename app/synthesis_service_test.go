package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	apperrors "github.com/GrimCyberMed/MedResearch-AI-sub006/internal/errors"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/ports"
)

// memoryRepository captures saved reports for assertions
type memoryRepository struct {
	saved []*synthesis.Report
}

func (m *memoryRepository) SaveReport(_ context.Context, report *synthesis.Report) error {
	m.saved = append(m.saved, report)
	return nil
}

func (m *memoryRepository) GetReport(_ context.Context, analysisID core.AnalysisID) (*synthesis.Report, error) {
	for _, r := range m.saved {
		if r.AnalysisID == analysisID {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memoryRepository) ListReports(_ context.Context, _ int) ([]ports.ReportSummary, error) {
	return nil, nil
}

func precomputedStudy(id string, estimate, se float64) synthesis.StudyObservation {
	return synthesis.StudyObservation{
		StudyID:     core.StudyID(id),
		Precomputed: &synthesis.PrecomputedEffect{Estimate: estimate, SE: se},
	}
}

func outcomeRequest(studies ...synthesis.StudyObservation) synthesis.OutcomeRequest {
	return synthesis.OutcomeRequest{
		OutcomeID:  core.OutcomeID("mortality"),
		Label:      "All-cause mortality",
		Measure:    synthesis.MeasureOddsRatio,
		Model:      synthesis.ModelAuto,
		Studies:    studies,
		Design:     synthesis.DesignRCT,
		RiskOfBias: synthesis.RiskLow,
	}
}

func newService(t *testing.T, repo ports.AnalysisRepository) *SynthesisService {
	t.Helper()
	svc, err := NewSynthesisService(synthesis.DefaultAnalysisConfig(), repo, nil)
	require.NoError(t, err)
	return svc
}

func TestSynthesize_FullPipeline(t *testing.T) {
	repo := &memoryRepository{}
	svc := newService(t, repo)

	req := outcomeRequest(
		precomputedStudy("s1", 2.0, 0.3),
		precomputedStudy("s2", 3.0, 0.4),
		precomputedStudy("s3", 2.4, 0.35),
		precomputedStudy("s4", 1.8, 0.25),
	)
	report, err := svc.Synthesize(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, core.ID(report.AnalysisID).IsEmpty())
	assert.Equal(t, req.OutcomeID, report.OutcomeID)
	assert.Len(t, report.Effects, 4)
	assert.Equal(t, 4, report.Pooled.K)
	assert.Greater(t, report.Pooled.Estimate, 1.0)
	assert.NotEmpty(t, report.Pooled.ModelReason)
	assert.NotNil(t, report.Bias, "4 studies is enough for the bias stage")
	assert.True(t, report.Bias.LowPower, "under 10 studies must be flagged low power")
	assert.Equal(t, synthesis.QualityHigh, report.Grade.StartingQuality)
	assert.NotEmpty(t, report.Grade.Rationale)
	assert.False(t, report.ComputedAt.IsZero())

	require.Len(t, repo.saved, 1)
	assert.Equal(t, report.AnalysisID, repo.saved[0].AnalysisID)
}

func TestSynthesize_TwoStudiesSkipBias(t *testing.T) {
	svc := newService(t, nil)

	report, err := svc.Synthesize(context.Background(), outcomeRequest(
		precomputedStudy("s1", 2.0, 0.3),
		precomputedStudy("s2", 3.0, 0.4),
	))
	require.NoError(t, err)

	assert.Nil(t, report.Bias, "bias stage requires 3 studies")
	assert.InDelta(t, 2.31, report.Pooled.Estimate, 0.01)
}

func TestSynthesize_InsufficientStudiesExcluded(t *testing.T) {
	svc := newService(t, nil)

	flagged := synthesis.StudyObservation{StudyID: core.StudyID("bad"), Insufficient: true}
	report, err := svc.Synthesize(context.Background(), outcomeRequest(
		precomputedStudy("s1", 2.0, 0.3),
		precomputedStudy("s2", 3.0, 0.4),
		flagged,
	))
	require.NoError(t, err)
	assert.Len(t, report.Effects, 2, "flagged study must be excluded, not fatal")
}

func TestSynthesize_TooFewUsableStudies(t *testing.T) {
	svc := newService(t, nil)

	flagged := synthesis.StudyObservation{StudyID: core.StudyID("bad"), Insufficient: true}
	_, err := svc.Synthesize(context.Background(), outcomeRequest(
		precomputedStudy("s1", 2.0, 0.3),
		flagged,
	))
	assert.True(t, core.IsInsufficientStudies(err), "got %v", err)
}

func TestSynthesize_EmptyRequest(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.Synthesize(context.Background(), outcomeRequest())
	assert.True(t, core.IsInsufficientStudies(err), "got %v", err)
}

func TestSynthesize_UnknownMeasure(t *testing.T) {
	svc := newService(t, nil)

	req := outcomeRequest(precomputedStudy("s1", 2.0, 0.3), precomputedStudy("s2", 3.0, 0.4))
	req.Measure = synthesis.Measure("HR")
	_, err := svc.Synthesize(context.Background(), req)
	assert.True(t, core.IsConfigurationError(err), "got %v", err)
}

func TestSynthesize_GradeReflectsBias(t *testing.T) {
	svc := newService(t, nil)

	// Graded small-study pattern: precise studies near the null, imprecise
	// studies far from it.
	studies := make([]synthesis.StudyObservation, 0, 10)
	for i := 0; i < 10; i++ {
		se := 0.1 + 0.04*float64(i)
		jitter := -0.01
		if i%2 == 1 {
			jitter = 0.01
		}
		studies = append(studies, synthesis.StudyObservation{
			StudyID:     core.StudyID(string(rune('a' + i))),
			Precomputed: &synthesis.PrecomputedEffect{Estimate: 0.2 + 1.5*se + jitter, SE: se},
		})
	}
	req := synthesis.OutcomeRequest{
		OutcomeID:  core.OutcomeID("response"),
		Measure:    synthesis.MeasureMeanDifference,
		Model:      synthesis.ModelAuto,
		Studies:    studies,
		Design:     synthesis.DesignRCT,
		RiskOfBias: synthesis.RiskLow,
	}

	report, err := svc.Synthesize(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, report.Bias)
	assert.True(t, report.Bias.Detected())

	var downgraded bool
	for _, adj := range report.Grade.Adjustments {
		if adj.Factor == synthesis.FactorPublicationBias {
			downgraded = true
		}
	}
	assert.True(t, downgraded, "detected bias must downgrade the evidence")
	assert.NotEqual(t, synthesis.QualityHigh, report.Grade.FinalQuality)
}

func TestSynthesize_StageFailureCarriesAnalysisCode(t *testing.T) {
	svc := newService(t, nil)

	req := outcomeRequest(
		precomputedStudy("s1", 2.0, 0.3),
		precomputedStudy("s2", 3.0, 0.4),
	)
	req.Design = synthesis.StudyDesign("case-series")
	_, err := svc.Synthesize(context.Background(), req)
	require.Error(t, err)

	assert.Equal(t, apperrors.CodeAnalysisError, apperrors.GetCode(err))
	assert.True(t, core.IsConfigurationError(err), "the stage cause must stay reachable, got %v", err)
}

func TestSynthesize_InvalidConfigRejected(t *testing.T) {
	cfg := synthesis.DefaultAnalysisConfig()
	cfg.RankingDraws = 10
	_, err := NewSynthesisService(cfg, nil, nil)
	assert.True(t, core.IsConfigurationError(err), "got %v", err)
}
