package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/errors"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/ports"
)

// AnalysisRepository persists synthesis reports as JSON payloads with the
// queryable columns denormalized for listing.
type AnalysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sqlx.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Connect opens a database handle and verifies the connection
func Connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

const analysisReportsSchema = `
	CREATE TABLE IF NOT EXISTS analysis_reports (
		analysis_id TEXT PRIMARY KEY,
		outcome_id  TEXT NOT NULL,
		label       TEXT NOT NULL,
		measure     TEXT NOT NULL,
		model       TEXT NOT NULL,
		estimate    DOUBLE PRECISION NOT NULL,
		quality     TEXT NOT NULL,
		payload     JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_analysis_reports_created_at ON analysis_reports (created_at DESC)`

// EnsureSchema creates the analysis_reports table if it does not exist yet
func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, analysisReportsSchema); err != nil {
		return errors.Wrap(err, "failed to create analysis_reports schema")
	}
	return nil
}

// SaveReport stores one completed outcome report
func (r *AnalysisRepository) SaveReport(ctx context.Context, report *synthesis.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO analysis_reports (analysis_id, outcome_id, label, measure, model, estimate, quality, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (analysis_id) DO UPDATE SET
			payload = EXCLUDED.payload,
			estimate = EXCLUDED.estimate,
			quality = EXCLUDED.quality`

	_, err = r.db.ExecContext(ctx, query,
		report.AnalysisID.String(),
		report.OutcomeID.String(),
		report.Label,
		string(report.Pooled.Measure),
		string(report.Pooled.Model),
		report.Pooled.Estimate,
		string(report.Grade.FinalQuality),
		payload,
		report.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by analysis ID
func (r *AnalysisRepository) GetReport(ctx context.Context, analysisID core.AnalysisID) (*synthesis.Report, error) {
	query := `SELECT payload FROM analysis_reports WHERE analysis_id = $1`

	var payload []byte
	err := r.db.QueryRowContext(ctx, query, analysisID.String()).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("analysis report")
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report synthesis.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// ListReports returns recent reports, newest first
func (r *AnalysisRepository) ListReports(ctx context.Context, limit int) ([]ports.ReportSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT analysis_id, outcome_id, label, measure, model, estimate, quality, created_at
		FROM analysis_reports
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var summaries []ports.ReportSummary
	for rows.Next() {
		var s ports.ReportSummary
		var createdAt time.Time
		if err := rows.Scan(&s.AnalysisID, &s.OutcomeID, &s.Label, &s.Measure, &s.Model, &s.Estimate, &s.Quality, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan report summary: %w", err)
		}
		s.CreatedAt = createdAt.Format(time.RFC3339)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
