package ports

import (
	"context"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

// StudyReader loads extracted study data from an external source (Excel/CSV
// extraction sheets). Rows that cannot be parsed are returned as warnings,
// not errors: one bad extraction row must never sink a whole review.
type StudyReader interface {
	// ReadStudies parses the source into validated study observations.
	// Warnings carry one entry per skipped row with the reason.
	ReadStudies(ctx context.Context) ([]synthesis.StudyObservation, []RowWarning, error)
}

// RowWarning describes one skipped input row
type RowWarning struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
