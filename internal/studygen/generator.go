// Package studygen generates deterministic synthetic study sets for gold
// tests: symmetric and suppressed funnels, identical-study pools and small
// comparison networks with known truth.
package studygen

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

// Config controls the synthetic study sets
type Config struct {
	Studies int
	Seed    int64
	Measure synthesis.Measure

	// TrueEffect is on the analysis scale (log for ratio measures)
	TrueEffect float64
	// Tau is the between-study SD on the analysis scale; 0 for homogeneity
	Tau float64
	// SEMin/SEMax bound the simulated per-study standard errors
	SEMin, SEMax float64
}

// DefaultConfig returns a homogeneous log-odds setup
func DefaultConfig() Config {
	return Config{
		Studies:    12,
		Seed:       42,
		Measure:    synthesis.MeasureOddsRatio,
		TrueEffect: math.Log(1.8),
		Tau:        0,
		SEMin:      0.1,
		SEMax:      0.5,
	}
}

// Effects draws study effects around the true effect with per-study sampling
// error. The draw order is fixed by the seed, so identical configs produce
// identical sets.
func Effects(cfg Config) []synthesis.EffectSize {
	rng := rand.New(rand.NewSource(cfg.Seed))

	out := make([]synthesis.EffectSize, cfg.Studies)
	for i := range out {
		se := cfg.SEMin + rng.Float64()*(cfg.SEMax-cfg.SEMin)
		truth := cfg.TrueEffect + cfg.Tau*rng.NormFloat64()
		value := truth + se*rng.NormFloat64()
		out[i] = fromAnalysisScale(studyID(i), cfg.Measure, value, se)
	}
	return out
}

// SymmetricFunnel builds studies in mirrored pairs around the center so the
// funnel is exactly symmetric: trim-and-fill must impute nothing.
func SymmetricFunnel(pairs int, center float64, measure synthesis.Measure) []synthesis.EffectSize {
	out := make([]synthesis.EffectSize, 0, 2*pairs)
	for i := 0; i < pairs; i++ {
		se := 0.1 + 0.05*float64(i)
		offset := 0.3 + 0.1*float64(i)
		out = append(out,
			fromAnalysisScale(studyID(2*i), measure, center-offset, se),
			fromAnalysisScale(studyID(2*i+1), measure, center+offset, se),
		)
	}
	return out
}

// SuppressedFunnel starts from a symmetric funnel and removes the studies
// below the center with the largest standard errors, imitating unpublished
// small null studies.
func SuppressedFunnel(pairs, suppressed int, center float64, measure synthesis.Measure) []synthesis.EffectSize {
	full := SymmetricFunnel(pairs, center, measure)
	out := make([]synthesis.EffectSize, 0, len(full)-suppressed)
	removed := 0
	// Mirrored pairs are appended low-side first; walk from the widest pair
	for i := len(full) - 2; i >= 0 && removed < suppressed; i -= 2 {
		removed++
		full[i].SE = -1 // mark
	}
	for _, e := range full {
		if e.SE > 0 {
			out = append(out, e)
		}
	}
	return out
}

// IdenticalStudies replicates one effect k times, for pooling invariants
func IdenticalStudies(k int, value, se float64, measure synthesis.Measure) []synthesis.EffectSize {
	out := make([]synthesis.EffectSize, k)
	for i := range out {
		out[i] = fromAnalysisScale(studyID(i), measure, value, se)
	}
	return out
}

// Triangle builds a three-treatment looped network. inconsistency shifts the
// A-C direct evidence away from the A-B + B-C sum, so a zero value yields a
// perfectly consistent loop.
func Triangle(abEffect, bcEffect, inconsistency float64, studiesPerEdge int, seed int64) []synthesis.Contrast {
	rng := rand.New(rand.NewSource(seed))
	gen := func(treatment, comparator string, truth float64) synthesis.Contrast {
		effects := make([]synthesis.EffectSize, studiesPerEdge)
		for i := range effects {
			se := 0.15 + 0.05*rng.Float64()
			value := truth + se*rng.NormFloat64()
			effects[i] = fromAnalysisScale(core.StudyID(fmt.Sprintf("%s-%s-%02d", comparator, treatment, i+1)), synthesis.MeasureMeanDifference, value, se)
		}
		return synthesis.Contrast{Treatment: treatment, Comparator: comparator, Effects: effects}
	}
	return []synthesis.Contrast{
		gen("B", "A", abEffect),
		gen("C", "B", bcEffect),
		gen("C", "A", abEffect+bcEffect+inconsistency),
	}
}

// Star builds a hub-and-spoke network: every comparison shares the hub
func Star(hub string, spokes []string, spokeEffects []float64, studiesPerEdge int, seed int64) []synthesis.Contrast {
	rng := rand.New(rand.NewSource(seed))
	contrasts := make([]synthesis.Contrast, 0, len(spokes))
	for s, spoke := range spokes {
		effects := make([]synthesis.EffectSize, studiesPerEdge)
		for i := range effects {
			se := 0.2 + 0.05*rng.Float64()
			value := spokeEffects[s] + se*rng.NormFloat64()
			effects[i] = fromAnalysisScale(core.StudyID(fmt.Sprintf("%s-%s-%02d", hub, spoke, i+1)), synthesis.MeasureMeanDifference, value, se)
		}
		contrasts = append(contrasts, synthesis.Contrast{Treatment: spoke, Comparator: hub, Effects: effects})
	}
	return contrasts
}

// Summary reports the mean and median effect of a generated set on the
// analysis scale, for quick assertions about what a scenario produced.
func Summary(effects []synthesis.EffectSize) (mean, median float64) {
	values := make([]float64, len(effects))
	for i, e := range effects {
		values[i] = e.AnalysisValue()
	}
	mean, _ = stats.Mean(values)
	median, _ = stats.Median(values)
	return mean, median
}

func studyID(i int) core.StudyID {
	return core.StudyID(fmt.Sprintf("study-%02d", i+1))
}

func fromAnalysisScale(id core.StudyID, measure synthesis.Measure, value, se float64) synthesis.EffectSize {
	return synthesis.EffectSize{
		StudyID:  id,
		Measure:  measure,
		Estimate: measure.FromAnalysisScale(value),
		SE:       se,
		CILower:  measure.FromAnalysisScale(value - 1.96*se),
		CIUpper:  measure.FromAnalysisScale(value + 1.96*se),
	}
}
