package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomeNoiseless(t *testing.T) {
	res, err := NewIncome().Refresh(noiseless(1))
	require.NoError(t, err)

	want := []float64{45000, 95000, 65000, 105000, 75000, 65000, 35000, 95000, 25000, 95000}
	assert.Equal(t, want, res.PrivateIncomes)
	assert.Equal(t, 64834.0, res.PrivateAverage)
	assert.Equal(t, 10000.0, res.BucketGap)
	assert.Empty(t, res.Fallbacks)
}

func TestIncomeOutOfRange(t *testing.T) {
	in := &Income{Incomes: []float64{-5, 150000, 1e7}, Average: 1}
	res, err := in.Refresh(noiseless(1))
	require.NoError(t, err)
	// nothing positive in the histogram falls back to the lowest bucket
	assert.Equal(t, []float64{5000, 5000, 5000}, res.PrivateIncomes)
	assert.Equal(t, []int{0, 1, 2}, res.Fallbacks)
}

func TestIncomeReleasesAreBucketMidpoints(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		st := seededState(seed, 0.2)
		res, err := NewIncome().Refresh(st)
		require.NoError(t, err)
		for _, v := range res.PrivateIncomes {
			assert.Equal(t, 5000.0, float64(int(v)%10000))
			assert.Less(t, v, 150000.0)
		}
		assert.Len(t, st.Releases(), 10*15+1)
	}
}
