package bias

import (
	"math"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

// egger regresses the standardized effect (y/SE) on precision (1/SE). An
// intercept significantly different from zero indicates funnel asymmetry; the
// p<0.10 convention follows the original test.
func (a *Analyzer) egger(effects []synthesis.EffectSize) synthesis.EggerResult {
	n := float64(len(effects))

	xs := make([]float64, len(effects))
	ys := make([]float64, len(effects))
	for i, e := range effects {
		xs[i] = 1 / e.SE
		ys[i] = e.AnalysisValue() / e.SE
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - meanX
		sxx += dx * dx
		sxy += dx * (ys[i] - meanY)
	}
	if sxx == 0 {
		// All studies share one precision; the regression is undefined.
		return synthesis.EggerResult{PValue: 1}
	}

	slope := sxy / sxx
	intercept := meanY - slope*meanX

	var rss float64
	for i := range xs {
		resid := ys[i] - (intercept + slope*xs[i])
		rss += resid * resid
	}
	df := len(effects) - 2
	mse := rss / float64(df)
	seIntercept := math.Sqrt(mse * (1/n + meanX*meanX/sxx))

	result := synthesis.EggerResult{
		Intercept:   intercept,
		InterceptSE: seIntercept,
		Slope:       slope,
		PValue:      1,
	}
	if seIntercept > 0 && isFinite(seIntercept) {
		result.TStat = intercept / seIntercept
		result.PValue = a.dist.TTestPValue(result.TStat, df)
	}
	result.Asymmetric = result.PValue < a.cfg.EggerAlpha
	return result
}
