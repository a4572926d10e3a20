package pages

import (
	"github.com/htried/taxi-diff-privacy/tdp"
)

// hourBuckets are the 1 mph speed bins one driver's hourly average falls into.
var hourBuckets = tdp.Buckets{Start: 7.5, Gap: 1, N: 18}

// Hours compares the average speed of all drivers by hour of day with one
// driver's.
type Hours struct {
	All    []tdp.SeriesPoint
	Driver []tdp.SeriesPoint
}

// HoursResult holds the raw and released curves.
type HoursResult struct {
	AllRaw        []tdp.SeriesPoint `json:"allRaw"`
	AllPrivate    []tdp.SeriesPoint `json:"allPrivate"`
	DriverRaw     []tdp.SeriesPoint `json:"driverRaw"`
	DriverPrivate []tdp.SeriesPoint `json:"driverPrivate"`
	// DriverFallbacks are the hours where no speed bucket came out positive,
	// so the lowest bucket stands in for the driver's speed.
	DriverFallbacks []float64 `json:"driverFallbacks"`
}

func NewHours() *Hours {
	return &Hours{All: tdp.AllDriversHourlySpeed, Driver: tdp.DriverHourlySpeed}
}

// Refresh releases both curves at st.Epsilon.
func (h *Hours) Refresh(st *State) (HoursResult, error) {
	if err := st.Validate(); err != nil {
		return HoursResult{}, err
	}

	all, err := releaseDay(h.All, func(p tdp.SeriesPoint) (float64, error) {
		return st.Release(tdp.HoursAverageSpeed, p.Y)
	})
	if err != nil {
		return HoursResult{}, err
	}

	fallbacks := []float64{}
	driver, err := releaseDay(h.Driver, func(p tdp.SeriesPoint) (float64, error) {
		mid, ok, err := privateBucket(st, tdp.HoursIndividualBucket, hourBuckets, p.Y)
		if err == nil && !ok {
			fallbacks = append(fallbacks, p.X)
		}
		return mid, err
	})
	if err != nil {
		return HoursResult{}, err
	}

	return HoursResult{
		AllRaw:          h.All,
		AllPrivate:      all,
		DriverRaw:       h.Driver,
		DriverPrivate:   driver,
		DriverFallbacks: fallbacks,
	}, nil
}

// releaseDay maps release over a day curve. Hour 24 closes the curve, so it
// repeats the release of hour 0 instead of spending budget on its own.
func releaseDay(series []tdp.SeriesPoint, release func(tdp.SeriesPoint) (float64, error)) ([]tdp.SeriesPoint, error) {
	out := make([]tdp.SeriesPoint, len(series))
	for i, p := range series {
		if p.X == 24 && i > 0 && series[0].X == 0 {
			out[i] = tdp.SeriesPoint{X: p.X, Y: out[0].Y}
			continue
		}
		v, err := release(p)
		if err != nil {
			return nil, err
		}
		out[i] = tdp.SeriesPoint{X: p.X, Y: v}
	}
	return out, nil
}
