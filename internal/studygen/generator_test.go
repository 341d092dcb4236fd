package studygen

import (
	"math"
	"testing"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

func TestEffects_SameSeedSameDraws(t *testing.T) {
	cfg := DefaultConfig()
	first := Effects(cfg)
	second := Effects(cfg)

	if len(first) != cfg.Studies {
		t.Fatalf("want %d studies, got %d", cfg.Studies, len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("study %d differs between identical configs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestEffects_CenterOnTrueEffect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Studies = 200
	effects := Effects(cfg)

	mean, median := Summary(effects)
	if math.Abs(mean-cfg.TrueEffect) > 0.1 {
		t.Fatalf("mean %.4f strayed from the true effect %.4f", mean, cfg.TrueEffect)
	}
	if math.Abs(median-cfg.TrueEffect) > 0.1 {
		t.Fatalf("median %.4f strayed from the true effect %.4f", median, cfg.TrueEffect)
	}
	for _, e := range effects {
		if e.SE < cfg.SEMin || e.SE > cfg.SEMax {
			t.Fatalf("study %s SE %.4f outside [%.2f, %.2f]", e.StudyID, e.SE, cfg.SEMin, cfg.SEMax)
		}
	}
}

func TestIdenticalStudies_SummaryMatchesValue(t *testing.T) {
	effects := IdenticalStudies(5, 0.4, 0.2, synthesis.MeasureOddsRatio)

	if len(effects) != 5 {
		t.Fatalf("want 5 studies, got %d", len(effects))
	}
	mean, median := Summary(effects)
	if math.Abs(mean-0.4) > 1e-12 || math.Abs(median-0.4) > 1e-12 {
		t.Fatalf("identical studies must summarize to 0.4, got mean %g median %g", mean, median)
	}
}

func TestSymmetricFunnel_SummaryCentersOnTarget(t *testing.T) {
	effects := SymmetricFunnel(6, 0.5, synthesis.MeasureMeanDifference)

	if len(effects) != 12 {
		t.Fatalf("want 12 studies from 6 pairs, got %d", len(effects))
	}
	mean, median := Summary(effects)
	if math.Abs(mean-0.5) > 1e-9 || math.Abs(median-0.5) > 1e-9 {
		t.Fatalf("mirrored pairs must center on 0.5, got mean %g median %g", mean, median)
	}
}
