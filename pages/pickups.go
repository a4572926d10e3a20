package pages

import (
	"github.com/htried/taxi-diff-privacy/tdp"
)

// Pickups maps pickup density for all drivers and for a single driver.
type Pickups struct {
	Bounds tdp.Bounds
	All    []tdp.Point
	Driver []tdp.Point
}

type PickupsResult struct {
	All    Map `json:"all"`
	Driver Map `json:"driver"`
	// Threshold is the smallest released count not flagged as too noisy.
	Threshold float64 `json:"threshold"`
}

func NewPickups(all, driver []tdp.Point) *Pickups {
	return &Pickups{Bounds: tdp.Manhattan, All: all, Driver: driver}
}

// Refresh releases both maps on a st.SideLength grid.
func (p *Pickups) Refresh(st *State) (PickupsResult, error) {
	if err := st.Validate(); err != nil {
		return PickupsResult{}, err
	}

	all, err := privateMap(st, tdp.PickupsCell, countGrid(p.All, p.Bounds, st.SideLength))
	if err != nil {
		return PickupsResult{}, err
	}
	driver, err := privateMap(st, tdp.PickupsCell, countGrid(p.Driver, p.Bounds, st.SideLength))
	if err != nil {
		return PickupsResult{}, err
	}

	res := PickupsResult{All: all, Driver: driver}
	if st.Alpha > 0 && st.PropWithin > 0 {
		res.Threshold = tdp.AggregationThreshold(st.Sensitivity(tdp.PickupsCell), st.Epsilon, st.Alpha, st.PropWithin)
	}
	return res, nil
}
