package tdp

import "math"

// Provide a qualitative explanation for what a particular epsilon value means.
func QualEps(eps, p float64) float64 {
	//    If someone believed a rider or driver was in the data with probability p,
	//    then after seeing one release they will be at most QualEps(eps, p) certain
	//    (assuming the sensitivity value is correct).
	//    e.g., for eps=1; p=0.5, they'd go from 50% certainty to at most 73.1% certainty.
	//
	//    p: initial belief that a given individual is in the data, e.g.
	//        0.5 is complete uncertainty (50/50 chance)
	//        0.01 is high certainty the person isn't in the data
	//        0.99 is high certainty the person is in the data
	if p > 0 && p < 1 {
		return (math.Exp(eps) * p) / (1 + ((math.Exp(eps) - 1) * p))
	}
	return -1
}

// half-width of the two-tailed (1 - alpha) confidence interval of Laplace noise
func laplaceCI(sensitivity, eps, alpha float64) float64 {
	// divide alpha by 2 because two-tailed
	rank := alpha / 2
	lbda := sensitivity / eps
	return math.Abs(lbda * math.Log(2*rank))
}

// AggregationThreshold is the smallest noised count for which DoAggregate
// stops flagging the release as too noisy.
func AggregationThreshold(sensitivity, eps, alpha, propWithin float64) float64 {
	return math.Ceil(laplaceCI(sensitivity, eps, alpha) / propWithin)
}

// DoAggregate reports whether a noised count is too noisy to show on its own.
func DoAggregate(noisedX, sensitivity, eps, alpha, propWithin float64) bool {
	// Checks whether noisedX is at least (100 * alpha)% likely to be within
	// (100 * propWithin)% of the true value. Only the noised value and the
	// public parameters are used, so this costs no privacy budget.
	//
	// Based on:
	// * Description: https://arxiv.org/pdf/2009.01265.pdf#section.4
	// * Code: https://github.com/google/differential-privacy/blob/main/java/main/com/google/privacy/differentialprivacy/LaplaceNoise.java#L127
	return laplaceCI(sensitivity, eps, alpha) > propWithin*noisedX
}

// LaplaceQuantile returns the q-th quantile of Lap(b) for q in [0.5, 1).
func LaplaceQuantile(b, q float64) float64 {
	return -b * math.Log(2*(1-q))
}

// Thresholds returns numBins+2 increasing histogram boundaries centred on
// center, spanning the 99th percentile of Lap(b) plus half a bin either side.
func Thresholds(center, b float64, numBins int) []float64 {
	lap99 := LaplaceQuantile(b, 0.99)
	min, max := center-lap99, center+lap99
	binRange := (max - min) / float64(numBins)
	out := make([]float64, 0, numBins+2)
	for i := 0; i <= numBins; i++ {
		out = append(out, min+float64(i)*binRange-binRange/2)
	}
	return append(out, max+binRange/2)
}
