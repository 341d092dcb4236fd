package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// StatisticalDistributions provides unified access to the distributions the
// engine components need. This keeps CDF/quantile calculations in one place
// instead of fragmented approximations per component.
type StatisticalDistributions struct{}

// NewDistributions creates a new distributions utility
func NewDistributions() *StatisticalDistributions {
	return &StatisticalDistributions{}
}

// TTestPValue computes the two-tailed p-value for a t-statistic
func (sd *StatisticalDistributions) TTestPValue(tStatistic float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(degreesOfFreedom)}
	return 2 * (1 - tDist.CDF(math.Abs(tStatistic)))
}

// TQuantile computes the upper quantile of Student's t (e.g. p=0.975 for 95% CI)
func (sd *StatisticalDistributions) TQuantile(p float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return math.NaN()
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(degreesOfFreedom)}
	return tDist.Quantile(p)
}

// ChiSquarePValue computes the upper-tail p-value for a chi-square statistic
func (sd *StatisticalDistributions) ChiSquarePValue(chiSquare float64, degreesOfFreedom int) float64 {
	if degreesOfFreedom <= 0 {
		return 1.0
	}

	chiDist := distuv.ChiSquared{K: float64(degreesOfFreedom)}
	return 1 - chiDist.CDF(chiSquare)
}

// NormalCDF computes the standard normal cumulative distribution function
func (sd *StatisticalDistributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalQuantile computes the standard normal quantile (inverse CDF)
func (sd *StatisticalDistributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// NormalTwoTailedP converts a z-statistic to a two-tailed p-value
func (sd *StatisticalDistributions) NormalTwoTailedP(z float64) float64 {
	return 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
}

// ZCritical returns the two-sided critical value for a confidence level
// (1.96 for 95% coverage).
func (sd *StatisticalDistributions) ZCritical(confidenceLevel float64) float64 {
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = 0.95
	}
	return distuv.UnitNormal.Quantile(0.5 + confidenceLevel/2)
}
