package tdp

import "math"

// Kernel is a symmetric smoothing function that integrates to 1.
type Kernel func(u float64) float64

// Epanechnikov is 3/4 (1 - u^2) on [-1, 1] and 0 elsewhere.
func Epanechnikov(u float64) float64 {
	if math.Abs(u) <= 1 {
		return 0.75 * (1 - u*u)
	}
	return 0
}

// Gaussian is the standard normal density.
func Gaussian(u float64) float64 {
	return math.Exp(-u*u/2) / math.Sqrt(2*math.Pi)
}

// MaxEvaluationPoints caps how many points a density curve is evaluated at.
const MaxEvaluationPoints = 100

// SilvermanBandwidth is the rule-of-thumb bandwidth 1.06 sd n^(-1/5).
func SilvermanBandwidth(xs []float64) float64 {
	return 1.06 * StdDev(xs) * math.Pow(float64(len(xs)), -0.2)
}

// EvaluationPoints returns n evenly spaced points from min to max inclusive.
func EvaluationPoints(min, max float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{min}
	}
	out := make([]float64, n)
	step := (max - min) / float64(n-1)
	for i := range out {
		out[i] = min + step*float64(i)
	}
	out[n-1] = max
	return out
}

// DensityPoint is one (x, density) pair of an estimated curve.
type DensityPoint struct {
	X       float64 `json:"x"`
	Density float64 `json:"density"`
}

// KDE is a kernel density estimator evaluated on a fixed set of points.
type KDE struct {
	Kernel    Kernel
	Bandwidth float64
	Points    []float64
}

// NewKDE returns an estimator with kernel k and bandwidth h over xs.
func NewKDE(k Kernel, h float64, xs []float64) *KDE {
	return &KDE{Kernel: k, Bandwidth: h, Points: xs}
}

// Estimate evaluates the density of sample at every evaluation point. An
// empty sample, or a zero bandwidth, yields zero density everywhere.
func (k *KDE) Estimate(sample []float64) []DensityPoint {
	out := make([]DensityPoint, len(k.Points))
	h := k.Bandwidth
	for i, x := range k.Points {
		out[i].X = x
		if len(sample) == 0 || !(h > 0) {
			continue
		}
		var sum float64
		for _, v := range sample {
			sum += k.Kernel((x-v)/h) / h
		}
		out[i].Density = sum / float64(len(sample))
	}
	return out
}

// MaxDensity returns the largest density in points, 0 when empty.
func MaxDensity(points []DensityPoint) float64 {
	var max float64
	for _, p := range points {
		if p.Density > max {
			max = p.Density
		}
	}
	return max
}
