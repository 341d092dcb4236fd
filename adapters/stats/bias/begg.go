package bias

import (
	"math"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

// begg computes Kendall's tau between the standardized deviates and the
// variances. The deviates use the variance of (y_i - pooled), which removes
// the artificial correlation the pooled mean induces.
func (a *Analyzer) begg(effects []synthesis.EffectSize) synthesis.BeggResult {
	values, variances := analysisValues(effects)
	pooled, sumW := fixedPooled(values, variances)

	n := len(effects)
	deviates := make([]float64, n)
	for i := range values {
		vStar := variances[i] - 1/sumW
		if vStar <= 0 {
			vStar = variances[i]
		}
		deviates[i] = (values[i] - pooled) / math.Sqrt(vStar)
	}

	concordant, discordant := 0, 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			du := deviates[j] - deviates[i]
			dv := variances[j] - variances[i]
			switch {
			case du*dv > 0:
				concordant++
			case du*dv < 0:
				discordant++
			}
			// ties contribute to neither count
		}
	}

	pairs := float64(n*(n-1)) / 2
	tau := float64(concordant-discordant) / pairs

	// Normal approximation for the null distribution of C - D
	z := float64(concordant-discordant) / math.Sqrt(float64(n*(n-1)*(2*n+5))/18)

	return synthesis.BeggResult{
		Tau:    tau,
		Z:      z,
		PValue: a.dist.NormalTwoTailedP(z),
	}
}
