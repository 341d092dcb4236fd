package bias

import (
	"math"
	"sort"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

// trimAndFill runs the L0 trim-and-fill estimator: iteratively trim the most
// extreme studies on the funnel's heavier side, re-estimate the center, then
// impute mirror-image studies around it. The iteration count is capped at
// TrimFillCapFactor * k so pathological input still terminates; hitting the
// cap is a flagged outcome, not an error.
func (a *Analyzer) trimAndFill(effects []synthesis.EffectSize) (synthesis.TrimFillResult, []synthesis.FunnelPoint) {
	n := len(effects)
	values, variances := analysisValues(effects)
	measure := effects[0].Measure

	// Orient the data so the heavier side is the right side
	center0, _ := fixedPooled(values, variances)
	flip := heavierSideIsLeft(values, center0)
	z := make([]float64, n)
	for i, v := range values {
		if flip {
			z[i] = -v
		} else {
			z[i] = v
		}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return z[order[i]] < z[order[j]] })

	maxIter := a.cfg.TrimFillCapFactor * n
	k0 := 0
	center := center0
	converged := false
	iterations := 0

	for iterations < maxIter {
		iterations++

		// Re-estimate the center from the trimmed set (the k0 most extreme
		// right-side studies removed)
		retained := order[:n-k0]
		var retValues, retVars []float64
		for _, idx := range retained {
			retValues = append(retValues, z[idx])
			retVars = append(retVars, variances[idx])
		}
		center, _ = fixedPooled(retValues, retVars)

		l0 := rankBasedL0(z, center)
		newK0 := int(math.Round(math.Max(0, l0)))
		if newK0 > n-2 {
			newK0 = n - 2
		}
		if newK0 == k0 {
			converged = true
			break
		}
		k0 = newK0
	}

	// Impute mirror images of the k0 most extreme right-side studies
	imputed := make([]synthesis.FunnelPoint, 0, k0)
	adjValues := append([]float64(nil), z...)
	adjVars := append([]float64(nil), variances...)
	for i := 0; i < k0; i++ {
		idx := order[n-1-i]
		mirror := 2*center - z[idx]
		adjValues = append(adjValues, mirror)
		adjVars = append(adjVars, variances[idx])

		effect := mirror
		if flip {
			effect = -mirror
		}
		imputed = append(imputed, synthesis.FunnelPoint{
			StudyID:   core.StudyID("imputed:" + effects[idx].StudyID.String()),
			Effect:    effect,
			SE:        effects[idx].SE,
			Precision: 1 / effects[idx].SE,
			Imputed:   true,
		})
	}

	adjusted, sumW := fixedPooled(adjValues, adjVars)
	if flip {
		adjusted = -adjusted
	}
	se := 1 / math.Sqrt(sumW)
	zc := a.dist.ZCritical(a.cfg.ConfidenceLevel)

	side := "right"
	if flip {
		side = "left"
	}
	return synthesis.TrimFillResult{
		Imputed:          k0,
		AdjustedEstimate: measure.FromAnalysisScale(adjusted),
		AdjustedCILower:  measure.FromAnalysisScale(adjusted - zc*se),
		AdjustedCIUpper:  measure.FromAnalysisScale(adjusted + zc*se),
		Side:             side,
		Iterations:       iterations,
		Converged:        converged,
	}, imputed
}

// rankBasedL0 computes the L0 estimator of suppressed-study count from the
// ranks of absolute deviations: L0 = (4*Tn - n(n+1)) / (2n - 1), where Tn is
// the rank sum of the positive deviations. Ties take midranks so a perfectly
// mirrored funnel yields exactly zero.
func rankBasedL0(z []float64, center float64) float64 {
	n := len(z)
	devs := make([]float64, n)
	for i, v := range z {
		devs[i] = v - center
	}
	ranks := midranks(devs)

	var tn float64
	for i, d := range devs {
		if d > 0 {
			tn += ranks[i]
		}
	}
	return (4*tn - float64(n*(n+1))) / float64(2*n-1)
}

// heavierSideIsLeft reports whether the rank mass of deviations below the
// center exceeds the mass above it.
func heavierSideIsLeft(values []float64, center float64) bool {
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = v - center
	}
	ranks := midranks(devs)

	var left, right float64
	for i, d := range devs {
		if d < 0 {
			left += ranks[i]
		} else if d > 0 {
			right += ranks[i]
		}
	}
	return left > right
}

// midranks ranks deviations by absolute magnitude, averaging the ranks of
// tied magnitudes.
func midranks(devs []float64) []float64 {
	n := len(devs)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return math.Abs(devs[order[i]]) < math.Abs(devs[order[j]])
	})

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i + 1
		for j < n && math.Abs(devs[order[j]]) == math.Abs(devs[order[i]]) {
			j++
		}
		avg := float64(i+1+j) / 2 // mean of ranks i+1 .. j
		for k := i; k < j; k++ {
			ranks[order[k]] = avg
		}
		i = j
	}
	return ranks
}
