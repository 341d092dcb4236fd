package app

import (
	"context"
	"fmt"
	"time"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/stats/bias"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/stats/effectsize"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/stats/grade"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/stats/heterogeneity"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/stats/pooling"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal"
	apperrors "github.com/GrimCyberMed/MedResearch-AI-sub006/internal/errors"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/ports"
)

// minStudiesBiasRun is the floor below which the bias stage is skipped rather
// than failed: small reviews still get pooled results and a grade.
const minStudiesBiasRun = 3

// SynthesisService orchestrates the full outcome pipeline: effect sizes,
// heterogeneity, pooling, publication bias and evidence grading.
type SynthesisService struct {
	cfg       synthesis.AnalysisConfig
	effects   *effectsize.Calculator
	het       *heterogeneity.Analyzer
	pool      *pooling.Engine
	bias      *bias.Analyzer
	grader    *grade.Grader
	reports   ports.AnalysisRepository // nil disables persistence
	logger    *internal.Logger
}

// NewSynthesisService creates a synthesis service. The repository may be nil
// when persistence is not wired (CLI runs).
func NewSynthesisService(cfg synthesis.AnalysisConfig, reports ports.AnalysisRepository, logger *internal.Logger) (*SynthesisService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SynthesisService{
		cfg:     cfg,
		effects: effectsize.NewCalculator(cfg),
		het:     heterogeneity.NewAnalyzer(cfg),
		pool:    pooling.NewEngine(cfg),
		bias:    bias.NewAnalyzer(cfg),
		grader:  grade.NewGrader(cfg),
		reports: reports,
		logger:  logger.WithComponent("synthesis"),
	}, nil
}

// Synthesize runs the full pipeline for one outcome and returns an immutable
// report. The bias stage is skipped (nil in the report) when fewer than three
// studies are available.
func (s *SynthesisService) Synthesize(ctx context.Context, req synthesis.OutcomeRequest) (*synthesis.Report, error) {
	startTime := time.Now()

	if !req.Measure.Valid() {
		return nil, core.NewConfigurationError("measure", fmt.Sprintf("unknown measure %q", req.Measure))
	}
	model := req.Model
	if model == "" {
		model = synthesis.ModelAuto
	}

	effects, err := s.computeEffects(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("computed %d effect sizes for outcome %s", len(effects), req.OutcomeID)

	het := s.het.Assess(effects)

	pooled, err := s.pool.Pool(effects, model)
	if err != nil {
		return nil, apperrors.AnalysisError(fmt.Sprintf("pooling outcome %s", req.OutcomeID), err)
	}
	s.logger.Info("outcome %s pooled: %s=%.4f [%.4f, %.4f] (%s)",
		req.OutcomeID, pooled.Measure, pooled.Estimate, pooled.CILower, pooled.CIUpper, pooled.Model)

	var biasResult *synthesis.BiasAssessment
	if len(effects) >= minStudiesBiasRun {
		assessment, err := s.bias.Assess(effects)
		if err != nil {
			return nil, apperrors.AnalysisError(fmt.Sprintf("bias assessment for outcome %s", req.OutcomeID), err)
		}
		biasResult = &assessment
	} else {
		s.logger.Warn("outcome %s: %d studies, publication bias assessment skipped", req.OutcomeID, len(effects))
	}

	graded, err := s.grader.Grade(synthesis.GradeInput{
		Design:               req.Design,
		RiskOfBias:           req.RiskOfBias,
		Indirect:             req.Indirect,
		DoseResponse:         req.DoseResponse,
		PlausibleConfounding: req.PlausibleConfounding,
		ClinicalThreshold:    req.ClinicalThreshold,
		Heterogeneity:        het,
		Pooled:               pooled,
		Bias:                 biasResult,
	})
	if err != nil {
		return nil, apperrors.AnalysisError(fmt.Sprintf("grading outcome %s", req.OutcomeID), err)
	}

	report := &synthesis.Report{
		AnalysisID:    core.AnalysisID(core.NewID()),
		OutcomeID:     req.OutcomeID,
		Label:         req.Label,
		Effects:       effects,
		Heterogeneity: het,
		Pooled:        pooled,
		Bias:          biasResult,
		Grade:         graded,
		ComputedAt:    time.Now().UTC(),
		RuntimeMs:     time.Since(startTime).Milliseconds(),
	}

	if s.reports != nil {
		if err := s.reports.SaveReport(ctx, report); err != nil {
			// Persistence failure must not lose the computed result
			s.logger.Error("failed to persist report %s: %v", report.AnalysisID, err)
		}
	}
	return report, nil
}

// computeEffects converts observations to effect sizes, dropping studies the
// extraction flagged insufficient and failing on anything else invalid.
func (s *SynthesisService) computeEffects(ctx context.Context, req synthesis.OutcomeRequest) ([]synthesis.EffectSize, error) {
	if len(req.Studies) == 0 {
		return nil, core.NewInsufficientStudiesError("synthesis", 0, s.cfg.MinStudiesPooling)
	}

	effects := make([]synthesis.EffectSize, 0, len(req.Studies))
	for _, obs := range req.Studies {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if obs.Insufficient {
			s.logger.Warn("study %s flagged insufficient data, excluded from outcome %s", obs.StudyID, req.OutcomeID)
			continue
		}
		es, err := s.effects.ComputeObservation(obs, req.Measure)
		if err != nil {
			return nil, err
		}
		effects = append(effects, es)
	}
	if len(effects) < s.cfg.MinStudiesPooling {
		return nil, core.NewInsufficientStudiesError("synthesis", len(effects), s.cfg.MinStudiesPooling)
	}
	return effects, nil
}
