package pages

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htried/taxi-diff-privacy/tdp"
)

// constSource always returns the same uniform. 0.5 makes every inverse-CDF
// Laplace draw exactly zero.
type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

// replays a fixed sequence of uniforms
type fixedSource struct {
	vals []float64
	i    int
}

func (f *fixedSource) Float64() float64 {
	v := f.vals[f.i%len(f.vals)]
	f.i++
	return v
}

func stateWith(src tdp.Source, eps float64) *State {
	vars := tdp.DefaultPageVars()
	vars.Epsilon = eps
	return NewState(vars, tdp.NewGenerator(src, tdp.InverseCDF), tdp.DefaultPolicy())
}

// noiseless is a state whose releases equal the true values.
func noiseless(eps float64) *State {
	return stateWith(constSource(0.5), eps)
}

func seededState(seed int64, eps float64) *State {
	return stateWith(rand.New(rand.NewSource(seed)), eps)
}

func TestStateValidate(t *testing.T) {
	for _, eps := range []float64{0, -1, 0.001, 10.01} {
		st := noiseless(eps)
		err := st.Validate()
		assert.ErrorIs(t, err, tdp.ErrInvalidEpsilon, "epsilon %v", eps)
	}

	st := noiseless(1)
	st.SideLength = 0
	st.Resample = true
	require.NoError(t, st.Validate())
	assert.Equal(t, 40, st.SideLength)

	st.Gen = nil
	assert.Error(t, st.Validate())
}

func TestStateRelease(t *testing.T) {
	st := noiseless(2)

	v, err := st.Release(tdp.WhiteTotalIncome, 1234.4)
	require.NoError(t, err)
	assert.Equal(t, 1234.0, v)

	_, err = st.Release("no.such.query", 1)
	assert.ErrorIs(t, err, tdp.ErrUnknownQuery)

	releases := st.Releases()
	require.Len(t, releases, 1)
	assert.Equal(t, tdp.WhiteTotalIncome, releases[0].Name)
	// half of the page budget
	assert.Equal(t, 1.0, releases[0].Epsilon)
	assert.Equal(t, 1000000.0, releases[0].Sensitivity)
}

func TestStateReleaseAllDrawsIndependently(t *testing.T) {
	st := seededState(7, 1)
	got, err := st.ReleaseAll(tdp.HoursIndividualBucket, []float64{5, 5, 5})
	require.NoError(t, err)
	assert.Len(t, st.Releases(), 3)
	assert.NotEqual(t, got[0], got[1])
	assert.NotEqual(t, got[1], got[2])
}

func TestStateTooNoisy(t *testing.T) {
	st := noiseless(1)
	// the 50% interval of Lap(3002) is about 2081 wide, a quarter of 8324
	assert.True(t, st.TooNoisy(tdp.PickupsCell, 100))
	assert.False(t, st.TooNoisy(tdp.PickupsCell, 10000))

	st.Alpha = 0
	assert.False(t, st.TooNoisy(tdp.PickupsCell, 100))
}
