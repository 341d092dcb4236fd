package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/ports"
)

// Column names recognized in extraction sheets. A row is classified by which
// group of columns it fills: 2x2 counts, continuous summaries, or a
// precomputed estimate with its standard error.
const (
	colStudyID        = "study_id"
	colEventsTreat    = "events_treatment"
	colTotalTreat     = "total_treatment"
	colEventsControl  = "events_control"
	colTotalControl   = "total_control"
	colNTreat         = "n_treatment"
	colMeanTreat      = "mean_treatment"
	colSDTreat        = "sd_treatment"
	colNControl       = "n_control"
	colMeanControl    = "mean_control"
	colSDControl      = "sd_control"
	colEstimate       = "estimate"
	colStandardError  = "se"
	colInsufficient   = "insufficient"
)

// StudyReader reads study extraction data from Excel and CSV files
type StudyReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewStudyReader creates a reader that handles both Excel and CSV files
func NewStudyReader(filePath string) *StudyReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &StudyReader{filePath: filePath, fileType: fileType}
}

// ReadStudies parses the extraction sheet into validated study observations.
// Malformed rows become warnings, not errors.
func (r *StudyReader) ReadStudies(ctx context.Context) ([]synthesis.StudyObservation, []ports.RowWarning, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("%s file must have a header row and at least one data row", strings.ToUpper(r.fileType))
	}

	return r.processRows(ctx, rows)
}

func (r *StudyReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	log.Printf("[StudyReader] Sheet1 read (%d rows)", len(rows))
	return rows, nil
}

func (r *StudyReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	log.Printf("[StudyReader] CSV file read (%d rows)", len(rows))
	return rows, nil
}

// processRows maps header names to column indices and converts each data row
// into a study observation.
func (r *StudyReader) processRows(ctx context.Context, rows [][]string) ([]synthesis.StudyObservation, []ports.RowWarning, error) {
	cols := map[string]int{}
	for i, header := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(header))] = i
	}
	if _, ok := cols[colStudyID]; !ok {
		return nil, nil, fmt.Errorf("missing required column %q", colStudyID)
	}

	var studies []synthesis.StudyObservation
	var warnings []ports.RowWarning
	for i := 1; i < len(rows); i++ {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		obs, err := parseRow(rows[i], cols)
		if err != nil {
			warnings = append(warnings, ports.RowWarning{Row: i + 1, Reason: err.Error()})
			continue
		}
		if err := obs.Validate(); err != nil {
			warnings = append(warnings, ports.RowWarning{Row: i + 1, Reason: err.Error()})
			continue
		}
		studies = append(studies, obs)
	}

	log.Printf("[StudyReader] parsed %d studies, skipped %d rows", len(studies), len(warnings))
	return studies, warnings, nil
}

func parseRow(row []string, cols map[string]int) (synthesis.StudyObservation, error) {
	id := cellString(row, cols, colStudyID)
	if id == "" {
		return synthesis.StudyObservation{}, fmt.Errorf("empty %s", colStudyID)
	}
	obs := synthesis.StudyObservation{StudyID: core.StudyID(id)}

	if flag := cellString(row, cols, colInsufficient); flag != "" {
		insufficient, err := strconv.ParseBool(flag)
		if err != nil {
			return synthesis.StudyObservation{}, fmt.Errorf("bad %s value %q", colInsufficient, flag)
		}
		if insufficient {
			obs.Insufficient = true
			return obs, nil
		}
	}

	switch {
	case cellFilled(row, cols, colEventsTreat):
		et, err := cellInt(row, cols, colEventsTreat)
		if err != nil {
			return obs, err
		}
		tt, err := cellInt(row, cols, colTotalTreat)
		if err != nil {
			return obs, err
		}
		ec, err := cellInt(row, cols, colEventsControl)
		if err != nil {
			return obs, err
		}
		tc, err := cellInt(row, cols, colTotalControl)
		if err != nil {
			return obs, err
		}
		obs.Binary = &synthesis.BinaryComparison{
			Treatment: synthesis.BinaryArm{Events: et, Total: tt},
			Control:   synthesis.BinaryArm{Events: ec, Total: tc},
		}
	case cellFilled(row, cols, colMeanTreat):
		nt, err := cellInt(row, cols, colNTreat)
		if err != nil {
			return obs, err
		}
		mt, err := cellFloat(row, cols, colMeanTreat)
		if err != nil {
			return obs, err
		}
		st, err := cellFloat(row, cols, colSDTreat)
		if err != nil {
			return obs, err
		}
		nc, err := cellInt(row, cols, colNControl)
		if err != nil {
			return obs, err
		}
		mc, err := cellFloat(row, cols, colMeanControl)
		if err != nil {
			return obs, err
		}
		sc, err := cellFloat(row, cols, colSDControl)
		if err != nil {
			return obs, err
		}
		obs.Continuous = &synthesis.ContinuousComparison{
			Treatment: synthesis.ContinuousArm{N: nt, Mean: mt, SD: st},
			Control:   synthesis.ContinuousArm{N: nc, Mean: mc, SD: sc},
		}
	case cellFilled(row, cols, colEstimate):
		est, err := cellFloat(row, cols, colEstimate)
		if err != nil {
			return obs, err
		}
		se, err := cellFloat(row, cols, colStandardError)
		if err != nil {
			return obs, err
		}
		obs.Precomputed = &synthesis.PrecomputedEffect{Estimate: est, SE: se}
	default:
		return obs, fmt.Errorf("study %s: no recognizable data columns filled", id)
	}
	return obs, nil
}

func cellString(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func cellFilled(row []string, cols map[string]int, name string) bool {
	return cellString(row, cols, name) != ""
}

func cellInt(row []string, cols map[string]int, name string) (int, error) {
	raw := cellString(row, cols, name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("bad %s value %q", name, raw)
	}
	return v, nil
}

func cellFloat(row []string, cols map[string]int, name string) (float64, error) {
	raw := cellString(row, cols, name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s value %q", name, raw)
	}
	return v, nil
}
