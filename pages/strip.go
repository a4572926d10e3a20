package pages

import (
	"github.com/htried/taxi-diff-privacy/tdp"
)

const (
	// half-width in degrees of the box a point's neighbours are counted in
	hotspotRadius = 0.001
	// a point with more neighbours than this, itself included, is a hotspot
	hotspotMinNeighbors = 10
)

// Strip maps dropoffs along a strip of clubs.
type Strip struct {
	Bounds tdp.Bounds
	Points []tdp.Point
}

// StripPoint is one dropoff of the raw view.
type StripPoint struct {
	tdp.Point
	Neighbors int  `json:"neighbors"`
	Hotspot   bool `json:"hotspot"`
}

type StripResult struct {
	Map Map `json:"map"`
}

func NewStrip(points []tdp.Point) *Strip {
	return &Strip{Bounds: tdp.Manhattan, Points: points}
}

func (s *Strip) Refresh(st *State) (StripResult, error) {
	if err := st.Validate(); err != nil {
		return StripResult{}, err
	}
	m, err := privateMap(st, tdp.StripCell, countGrid(s.Points, s.Bounds, st.SideLength))
	if err != nil {
		return StripResult{}, err
	}
	return StripResult{Map: m}, nil
}

// Raw is the non-private view with hotspots flagged.
func (s *Strip) Raw() []StripPoint {
	counts := tdp.Neighbors(s.Points, hotspotRadius)
	out := make([]StripPoint, len(s.Points))
	for i, p := range s.Points {
		out[i] = StripPoint{Point: p, Neighbors: counts[i], Hotspot: counts[i] > hotspotMinNeighbors}
	}
	return out
}
