package effectsize

import (
	"math"
	"testing"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

func newCalc() *Calculator {
	return NewCalculator(synthesis.DefaultAnalysisConfig())
}

func TestComputeBinary_OddsRatioMatchesHandCalculation(t *testing.T) {
	// 2x2 table: 10/100 events on treatment, 5/100 on control
	es, err := newCalc().ComputeBinary(core.StudyID("trial-1"), 10, 90, 5, 95, synthesis.MeasureOddsRatio)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	wantOR := (10.0 * 95.0) / (90.0 * 5.0) // 2.1111
	if math.Abs(es.Estimate-wantOR) > 1e-9 {
		t.Fatalf("expected OR=%.6f, got %.6f", wantOR, es.Estimate)
	}

	wantSE := math.Sqrt(1/10.0 + 1/90.0 + 1/5.0 + 1/95.0)
	if math.Abs(es.SE-wantSE) > 1e-9 {
		t.Fatalf("expected SE=%.6f, got %.6f", wantSE, es.SE)
	}
	if es.Corrected {
		t.Fatal("no zero cell, result should not be flagged corrected")
	}
}

func TestComputeBinary_DirectAndLogScaleAgree(t *testing.T) {
	// For tables with no zero cells, the exponentiated log-scale estimate
	// must match the directly computed ratio to floating-point tolerance.
	tables := [][4]int{
		{12, 88, 7, 93},
		{40, 60, 25, 75},
		{3, 197, 9, 191},
	}
	for _, tab := range tables {
		a, b, c, d := tab[0], tab[1], tab[2], tab[3]

		or, err := newCalc().ComputeBinary(core.StudyID("s"), a, b, c, d, synthesis.MeasureOddsRatio)
		if err != nil {
			t.Fatalf("OR: %v", err)
		}
		directOR := (float64(a) * float64(d)) / (float64(b) * float64(c))
		if math.Abs(or.Estimate-directOR) > 1e-12*directOR {
			t.Fatalf("OR mismatch: direct=%.10f log-scale=%.10f", directOR, or.Estimate)
		}

		rr, err := newCalc().ComputeBinary(core.StudyID("s"), a, b, c, d, synthesis.MeasureRiskRatio)
		if err != nil {
			t.Fatalf("RR: %v", err)
		}
		n1, n2 := float64(a+b), float64(c+d)
		directRR := (float64(a) / n1) / (float64(c) / n2)
		if math.Abs(rr.Estimate-directRR) > 1e-12*directRR {
			t.Fatalf("RR mismatch: direct=%.10f log-scale=%.10f", directRR, rr.Estimate)
		}
	}
}

func TestComputeBinary_CIDerivedInLogSpace(t *testing.T) {
	es, err := newCalc().ComputeBinary(core.StudyID("trial-1"), 20, 80, 10, 90, synthesis.MeasureOddsRatio)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	logOR := math.Log(es.Estimate)
	wantLower := math.Exp(logOR - 1.96*es.SE)
	wantUpper := math.Exp(logOR + 1.96*es.SE)
	if math.Abs(es.CILower-wantLower) > 1e-3 || math.Abs(es.CIUpper-wantUpper) > 1e-3 {
		t.Fatalf("CI not derived on log scale: got [%.4f, %.4f], want [%.4f, %.4f]",
			es.CILower, es.CIUpper, wantLower, wantUpper)
	}
	if es.CILower >= es.Estimate || es.CIUpper <= es.Estimate {
		t.Fatalf("CI [%.4f, %.4f] does not bracket estimate %.4f", es.CILower, es.CIUpper, es.Estimate)
	}
}

func TestComputeBinary_ZeroCellAppliesContinuityCorrection(t *testing.T) {
	es, err := newCalc().ComputeBinary(core.StudyID("trial-1"), 0, 50, 5, 45, synthesis.MeasureOddsRatio)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !es.Corrected {
		t.Fatal("zero cell must flag the result corrected")
	}

	// +0.5 to all four cells
	wantOR := (0.5 * 45.5) / (50.5 * 5.5)
	if math.Abs(es.Estimate-wantOR) > 1e-9 {
		t.Fatalf("expected corrected OR=%.6f, got %.6f", wantOR, es.Estimate)
	}
}

func TestComputeBinary_RejectsInvalidInput(t *testing.T) {
	calc := newCalc()

	if _, err := calc.ComputeBinary(core.StudyID("s"), -1, 10, 5, 5, synthesis.MeasureOddsRatio); !core.IsInsufficientData(err) {
		t.Fatalf("negative count: expected insufficient data error, got %v", err)
	}
	if _, err := calc.ComputeBinary(core.StudyID("s"), 0, 0, 5, 5, synthesis.MeasureRiskRatio); !core.IsInsufficientData(err) {
		t.Fatalf("empty arm: expected insufficient data error, got %v", err)
	}
	if _, err := calc.ComputeBinary(core.StudyID("s"), 5, 5, 5, 5, synthesis.MeasureSMD); !core.IsConfigurationError(err) {
		t.Fatalf("SMD on 2x2 table: expected configuration error, got %v", err)
	}
}

func TestComputeContinuous_HedgesGHandCalculation(t *testing.T) {
	// n=20 per arm, means 10 vs 8, common SD 2.5
	es, err := newCalc().ComputeContinuous(core.StudyID("trial-1"), 20, 10, 2.5, 20, 8, 2.5, synthesis.MeasureSMD)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// pooled SD = 2.5, Cohen's d = 0.8, J = 1 - 3/151
	j := 1 - 3.0/151.0
	wantG := j * 0.8
	if math.Abs(es.Estimate-wantG) > 1e-6 {
		t.Fatalf("expected Hedges' g=%.6f, got %.6f", wantG, es.Estimate)
	}
}

func TestComputeContinuous_MeanDifference(t *testing.T) {
	es, err := newCalc().ComputeContinuous(core.StudyID("trial-1"), 30, 12.4, 3.1, 28, 10.9, 2.8, synthesis.MeasureMeanDifference)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if math.Abs(es.Estimate-1.5) > 1e-9 {
		t.Fatalf("expected MD=1.5, got %.6f", es.Estimate)
	}
	wantSE := math.Sqrt(3.1*3.1/30 + 2.8*2.8/28)
	if math.Abs(es.SE-wantSE) > 1e-9 {
		t.Fatalf("expected SE=%.6f, got %.6f", wantSE, es.SE)
	}
}

func TestComputeContinuous_NonPositiveSDFails(t *testing.T) {
	_, err := newCalc().ComputeContinuous(core.StudyID("s"), 20, 10, 0, 20, 8, 2.5, synthesis.MeasureSMD)
	if !core.IsInsufficientData(err) {
		t.Fatalf("expected insufficient data error, got %v", err)
	}
}

func TestComputeObservation_Dispatch(t *testing.T) {
	calc := newCalc()

	binary := synthesis.StudyObservation{
		StudyID: core.StudyID("b1"),
		Binary: &synthesis.BinaryComparison{
			Treatment: synthesis.BinaryArm{Events: 10, Total: 100},
			Control:   synthesis.BinaryArm{Events: 5, Total: 100},
		},
	}
	es, err := calc.ComputeObservation(binary, synthesis.MeasureOddsRatio)
	if err != nil {
		t.Fatalf("binary dispatch: %v", err)
	}
	if es.StudyID != binary.StudyID {
		t.Fatalf("study id not carried through: %s", es.StudyID)
	}

	pre := synthesis.StudyObservation{
		StudyID:     core.StudyID("p1"),
		Precomputed: &synthesis.PrecomputedEffect{Estimate: 1.8, SE: 0.25},
	}
	es, err = calc.ComputeObservation(pre, synthesis.MeasureOddsRatio)
	if err != nil {
		t.Fatalf("precomputed dispatch: %v", err)
	}
	if math.Abs(es.Estimate-1.8) > 1e-12 {
		t.Fatalf("precomputed estimate not preserved: %.6f", es.Estimate)
	}

	flagged := synthesis.StudyObservation{StudyID: core.StudyID("f1"), Insufficient: true}
	if _, err := calc.ComputeObservation(flagged, synthesis.MeasureOddsRatio); !core.IsInsufficientData(err) {
		t.Fatalf("flagged study: expected insufficient data error, got %v", err)
	}
}
