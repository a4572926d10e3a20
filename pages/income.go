package pages

import (
	"github.com/htried/taxi-diff-privacy/tdp"
)

// incomeBuckets are the $10,000 bins of a yearly income.
var incomeBuckets = tdp.Buckets{Start: 0, Gap: 10000, N: 15}

// Income shows individual driver incomes next to the published average.
type Income struct {
	Incomes []float64
	Average float64
}

type IncomeResult struct {
	Incomes        []float64 `json:"incomes"`
	PrivateIncomes []float64 `json:"privateIncomes"`
	Average        float64   `json:"average"`
	PrivateAverage float64   `json:"privateAverage"`
	BucketGap      float64   `json:"bucketGap"`
	// Fallbacks index the incomes whose noised buckets were all non-positive.
	Fallbacks []int `json:"fallbacks"`
}

func NewIncome() *Income {
	return &Income{Incomes: tdp.DriverIncomes, Average: tdp.AverageDriverIncome}
}

// Refresh releases every income through its bucket histogram and the average
// directly.
func (in *Income) Refresh(st *State) (IncomeResult, error) {
	if err := st.Validate(); err != nil {
		return IncomeResult{}, err
	}

	private := make([]float64, len(in.Incomes))
	fallbacks := []int{}
	for i, v := range in.Incomes {
		p, ok, err := privateBucket(st, tdp.IncomeIndividualBucket, incomeBuckets, v)
		if err != nil {
			return IncomeResult{}, err
		}
		if !ok {
			fallbacks = append(fallbacks, i)
		}
		private[i] = p
	}

	avg, err := st.Release(tdp.IncomeAverage, in.Average)
	if err != nil {
		return IncomeResult{}, err
	}

	return IncomeResult{
		Incomes:        in.Incomes,
		PrivateIncomes: private,
		Average:        in.Average,
		PrivateAverage: avg,
		BucketGap:      incomeBuckets.Gap,
		Fallbacks:      fallbacks,
	}, nil
}
