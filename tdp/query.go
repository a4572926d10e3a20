package tdp

import (
	"fmt"
	"math"
)

// Query describes one noised release: the true answer, the sensitivity of the
// question and the epsilon spent on it.
type Query struct {
	Name        string  `json:"name"`
	TrueValue   float64 `json:"-"`
	Sensitivity float64 `json:"sensitivity"`
	Epsilon     float64 `json:"epsilon"`
	// Round rounds the noised value to the nearest integer.
	Round bool `json:"round"`
	// Clamp floors the released value at zero. Signed quantities leave it off.
	Clamp bool `json:"clamp"`
}

// Scale is the Laplace scale b = sensitivity / epsilon.
func (q Query) Scale() float64 {
	return q.Sensitivity / q.Epsilon
}

// Release is the outcome of answering a Query.
type Release struct {
	Query
	Value float64 `json:"value"`
	// Raw is the noised value before rounding and clamping.
	Raw float64 `json:"-"`
}

// Release answers q with one fresh Laplace draw. Rounding happens before
// clamping so a clamped release is always exactly 0.
func (g *Generator) Release(q Query) (Release, error) {
	lap, err := g.Laplace(q.Sensitivity, q.Epsilon)
	if err != nil {
		return Release{}, fmt.Errorf("releasing %s: %w", q.Name, err)
	}
	raw := q.TrueValue + lap
	v := raw
	if q.Round {
		v = math.Round(v)
	}
	if q.Clamp {
		v = math.Max(0, v)
	}
	return Release{Query: q, Value: v, Raw: raw}, nil
}

// ReleaseAll answers qs in order, stopping at the first error.
func (g *Generator) ReleaseAll(qs []Query) ([]Release, error) {
	out := make([]Release, 0, len(qs))
	for _, q := range qs {
		r, err := g.Release(q)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Noise adds one Laplace draw to every value of trueValues using rule, and
// returns the released values. Every element gets an independent draw.
func (g *Generator) Noise(name string, trueValues []float64, rule Rule, epsilon float64) ([]float64, error) {
	out := make([]float64, len(trueValues))
	for i, v := range trueValues {
		r, err := g.Release(rule.Query(name, v, epsilon))
		if err != nil {
			return nil, err
		}
		out[i] = r.Value
	}
	return out, nil
}
