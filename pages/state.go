// Package pages holds one controller per demo page. Each controller owns its
// dataset and turns a State into plain result data; nothing here renders.
package pages

import (
	"fmt"

	"github.com/htried/taxi-diff-privacy/tdp"
)

// State is everything a page refresh depends on besides its own data.
type State struct {
	Epsilon float64
	Gen     *tdp.Generator
	Policy  tdp.Policy

	// parameters of the "too noisy to show" flag on map cells
	Alpha      float64
	PropWithin float64

	// cells per side of the map grids
	SideLength int

	// sample shown by the density page, and whether to draw it afresh
	Dist     string
	Resample bool

	released []tdp.Release
}

// NewState builds a State from validated request parameters.
func NewState(vars tdp.PageVars, gen *tdp.Generator, policy tdp.Policy) *State {
	return &State{
		Epsilon:    vars.Epsilon,
		Gen:        gen,
		Policy:     policy,
		Alpha:      vars.Alpha,
		PropWithin: vars.PropWithin,
		SideLength: vars.SideLength,
		Dist:       vars.Dist,
		Resample:   vars.Resample,
	}
}

// Validate rejects a State before any noise is drawn.
func (st *State) Validate() error {
	if !tdp.ValidateEpsilon(st.Epsilon) {
		return fmt.Errorf("%w: got %v", tdp.ErrInvalidEpsilon, st.Epsilon)
	}
	if st.Gen == nil {
		return fmt.Errorf("state has no generator")
	}
	if st.SideLength < 1 {
		st.SideLength = tdp.DefaultPageVars().SideLength
	}
	return nil
}

// Release answers one query named in the policy and records it.
func (st *State) Release(name string, trueValue float64) (float64, error) {
	q, err := st.Policy.Query(name, trueValue, st.Epsilon)
	if err != nil {
		return 0, err
	}
	r, err := st.Gen.Release(q)
	if err != nil {
		return 0, err
	}
	st.released = append(st.released, r)
	return r.Value, nil
}

// ReleaseAll answers name once per value, each with an independent draw.
func (st *State) ReleaseAll(name string, trueValues []float64) ([]float64, error) {
	out := make([]float64, len(trueValues))
	for i, v := range trueValues {
		n, err := st.Release(name, v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// Releases lists every release made through st, in order.
func (st *State) Releases() []tdp.Release {
	return st.released
}

// Sensitivity of a policy entry, for reporting alongside results.
func (st *State) Sensitivity(name string) float64 {
	r, err := st.Policy.Rule(name)
	if err != nil {
		return 0
	}
	return r.Sensitivity
}

// TooNoisy flags a released count whose noise likely swamps it.
func (st *State) TooNoisy(name string, noised float64) bool {
	if st.Alpha <= 0 || st.PropWithin <= 0 {
		return false
	}
	return tdp.DoAggregate(noised, st.Sensitivity(name), st.Epsilon, st.Alpha, st.PropWithin)
}
