package ports

import (
	"context"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

// AnalysisRepository persists completed synthesis reports
type AnalysisRepository interface {
	// SaveReport stores one completed outcome report
	SaveReport(ctx context.Context, report *synthesis.Report) error

	// GetReport retrieves a report by analysis ID
	GetReport(ctx context.Context, analysisID core.AnalysisID) (*synthesis.Report, error)

	// ListReports returns recent reports, newest first
	ListReports(ctx context.Context, limit int) ([]ReportSummary, error)
}

// ReportSummary is the list-view projection of a stored report
type ReportSummary struct {
	AnalysisID core.AnalysisID        `json:"analysis_id"`
	OutcomeID  core.OutcomeID         `json:"outcome_id"`
	Label      string                 `json:"label,omitempty"`
	Measure    synthesis.Measure      `json:"measure"`
	Model      synthesis.Model        `json:"model"`
	Estimate   float64                `json:"estimate"`
	Quality    synthesis.QualityLevel `json:"quality"`
	CreatedAt  string                 `json:"created_at"`
}
